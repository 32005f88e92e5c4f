package coreir

import (
	"testing"
	"unsafe"

	"surge/internal/source"
)

func exprSize() uintptr { return unsafe.Sizeof(Expr{}) }

func TestFixupMatches_CollapsesSingleIdentAlternative(t *testing.T) {
	strings := source.NewInterner()
	alloc := NewAllocator()

	n := Identifier{Name: strings.Intern("n")}
	m := Identifier{Name: strings.Intern("m")}

	body := alloc.AllocExpr(Expr{Kind: ExprConst, Data: ConstData{Literal: Literal{Kind: LiteralInt, Int: 7}}})
	scrutinee := alloc.AllocExpr(Expr{Kind: ExprIdent, Data: IdentData{Ident: n}})
	match := Expr{Kind: ExprMatch, Data: MatchData{
		Scrutinee:    scrutinee,
		Alternatives: []Alternative{{Pattern: NewIdentPattern(m), Expr: body}},
	}}

	replacements := make(map[source.StringID]source.StringID)
	out := fixupMatches(alloc, replacements, alloc.AllocExpr(match))

	if out.Kind != ExprConst {
		t.Fatalf("expected the single-alternative Match to collapse to its body, got %v", out.Kind)
	}
	if canonical, ok := replacements[m.Name]; !ok || canonical != n.Name {
		t.Fatalf("expected m to be recorded as an alias of n, got %v ok=%v", canonical, ok)
	}
}

func TestFixupMatches_RewritesIdentThroughReplacementMap(t *testing.T) {
	strings := source.NewInterner()
	alloc := NewAllocator()

	old := Identifier{Name: strings.Intern("old")}
	canon := Identifier{Name: strings.Intern("canon")}
	replacements := map[source.StringID]source.StringID{old.Name: canon.Name}

	root := alloc.AllocExpr(Expr{Kind: ExprIdent, Data: IdentData{Ident: old}})
	out := fixupMatches(alloc, replacements, root)

	d, ok := out.AsIdent()
	if !ok {
		t.Fatalf("expected an Ident node, got %v", out.Kind)
	}
	if d.Ident.Name != canon.Name {
		t.Fatalf("expected the Ident to be rewritten to the canonical name, got %v want %v", d.Ident.Name, canon.Name)
	}
}

func TestFixupMatches_FollowsChainedReplacements(t *testing.T) {
	strings := source.NewInterner()
	alloc := NewAllocator()

	a := strings.Intern("a")
	b := strings.Intern("b")
	c := strings.Intern("c")
	replacements := map[source.StringID]source.StringID{a: b, b: c}

	root := alloc.AllocExpr(Expr{Kind: ExprIdent, Data: IdentData{Ident: Identifier{Name: a}}})
	out := fixupMatches(alloc, replacements, root)

	d, _ := out.AsIdent()
	if d.Ident.Name != c {
		t.Fatalf("expected a chained replacement a->b->c to resolve to c, got %v", d.Ident.Name)
	}
}

func TestFixupMatches_LeavesMultiAlternativeMatchIntact(t *testing.T) {
	strings := source.NewInterner()
	alloc := NewAllocator()

	n := Identifier{Name: strings.Intern("n")}
	body1 := alloc.AllocExpr(Expr{Kind: ExprConst, Data: ConstData{Literal: Literal{Kind: LiteralInt, Int: 1}}})
	body2 := alloc.AllocExpr(Expr{Kind: ExprConst, Data: ConstData{Literal: Literal{Kind: LiteralInt, Int: 2}}})
	scrutinee := alloc.AllocExpr(Expr{Kind: ExprIdent, Data: IdentData{Ident: n}})
	match := Expr{Kind: ExprMatch, Data: MatchData{
		Scrutinee: scrutinee,
		Alternatives: []Alternative{
			{Pattern: NewLiteralPattern(Literal{Kind: LiteralInt, Int: 0}), Expr: body1},
			{Pattern: NewIdentPattern(Identifier{Name: strings.Intern("_")}), Expr: body2},
		},
	}}

	out := fixupMatches(alloc, make(map[source.StringID]source.StringID), alloc.AllocExpr(match))

	m, ok := out.AsMatch()
	if !ok {
		t.Fatalf("a literal-then-wildcard match must never collapse, got %v", out.Kind)
	}
	if len(m.Alternatives) != 2 {
		t.Fatalf("expected both alternatives to survive, got %d", len(m.Alternatives))
	}
}

func TestExprSize_DoesNotRegress(t *testing.T) {
	// Expr is the unit the arena bump-allocates by the thousands per
	// translated file; a growth here multiplies across every node in every
	// tree. Kind (1 byte) + Span + an interface value (2 words) is the
	// expected shape — catch an accidental inflation (e.g. a new field
	// added directly to Expr instead of behind its ExprData payload).
	const maxExprSize = 48
	if got := exprSize(); got > maxExprSize {
		t.Fatalf("Expr grew to %d bytes, expected <= %d; check for fields added outside ExprData", got, maxExprSize)
	}
}
