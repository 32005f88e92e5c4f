package coreir

import "testing"

func TestMerge2NoReplacementSharesOriginal(t *testing.T) {
	_, ok := Merge2[int, int, int](1, nil, 2, nil, func(a, b int) int { return a + b })
	if ok {
		t.Fatal("expected no merge when both replacements are nil")
	}
}

func TestMerge2WithOneReplacement(t *testing.T) {
	repl := 5
	sum, ok := Merge2[int, int, int](1, &repl, 2, nil, func(a, b int) int { return a + b })
	if !ok {
		t.Fatal("expected a merge")
	}
	if sum != 7 {
		t.Fatalf("expected 5+2=7, got %d", sum)
	}
}

func TestMergeSliceNoChangesSharesOriginal(t *testing.T) {
	orig := []int{1, 2, 3}
	out, ok := MergeSlice(orig, func(i, v int) (int, bool) { return v, false })
	if ok || out != nil {
		t.Fatalf("expected no merge, got %v ok=%v", out, ok)
	}
}

func TestMergeSliceSinglePositionChanged(t *testing.T) {
	orig := []int{1, 2, 3}
	out, ok := MergeSlice(orig, func(i, v int) (int, bool) {
		if i == 1 {
			return 20, true
		}
		return v, false
	})
	if !ok {
		t.Fatal("expected a merge")
	}
	want := []int{1, 20, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: got %d want %d", i, out[i], want[i])
		}
	}
	// original must be untouched
	if orig[1] != 2 {
		t.Fatalf("original slice was mutated: %v", orig)
	}
}
