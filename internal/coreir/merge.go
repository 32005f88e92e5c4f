package coreir

// Merge2 reconstructs a pair using f if either replacement is present,
// returning (_, false) when both are nil so the caller can go on sharing
// the original pair untouched.
func Merge2[A, B, R any](aOrig A, aRepl *A, bOrig B, bRepl *B, f func(A, B) R) (R, bool) {
	if aRepl == nil && bRepl == nil {
		var zero R
		return zero, false
	}
	a := aOrig
	if aRepl != nil {
		a = *aRepl
	}
	b := bOrig
	if bRepl != nil {
		b = *bRepl
	}
	return f(a, b), true
}

// Merge3 is Merge2 generalized to three positions.
func Merge3[A, B, C, R any](
	aOrig A, aRepl *A,
	bOrig B, bRepl *B,
	cOrig C, cRepl *C,
	f func(A, B, C) R,
) (R, bool) {
	if aRepl == nil && bRepl == nil && cRepl == nil {
		var zero R
		return zero, false
	}
	a := aOrig
	if aRepl != nil {
		a = *aRepl
	}
	b := bOrig
	if bRepl != nil {
		b = *bRepl
	}
	c := cOrig
	if cRepl != nil {
		c = *cRepl
	}
	return f(a, b, c), true
}

// MergeSlice is the sequence counterpart of Merge2/Merge3: replace(i, v)
// is consulted for every position of original; ok is false (and result is
// nil) only when replace never reports a change, so the caller shares
// original rather than allocating a copy that would compare equal to it
// anyway. Any reported change produces a full merged slice: positions
// replace leaves alone keep original's value, positions it changes carry
// the replacement.
//
// This is the one contract every tree rewriter in this package relies on:
// the produced slice is element-wise equal to original if and only if no
// replacement was supplied, and a replacement changes exactly the
// position it was supplied for.
func MergeSlice[T any](original []T, replace func(i int, orig T) (T, bool)) ([]T, bool) {
	var out []T
	changed := false
	for i, v := range original {
		nv, did := replace(i, v)
		if did && !changed {
			// First change seen: backfill everything before it from original.
			out = make([]T, len(original))
			copy(out, original[:i])
			changed = true
		}
		if changed {
			if did {
				out[i] = nv
			} else {
				out[i] = v
			}
		}
	}
	if !changed {
		return nil, false
	}
	return out, true
}
