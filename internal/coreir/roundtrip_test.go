package coreir

import (
	"testing"
	"unsafe"

	"surge/internal/source"
	"surge/internal/types"
)

// TestPrintParse_RoundTripIdempotent checks print.go and parse.go agree on
// one canonical textual form: printing a parsed tree and reparsing the
// printed text must reproduce byte-identical output, for one representative
// snippet per grammar production.
func TestPrintParse_RoundTripIdempotent(t *testing.T) {
	cases := []string{
		`let x = 1 in x`,
		`let rec fact n = n in fact 3`,
		`let rec even n = odd n and odd n = even n in even 1`,
		`match n with | 1 -> "one" | _ -> "any" end`,
		`match p with | Pair a b -> a end`,
		`match r with | { x, y = yy } -> yy end`,
		`(1, 2, 3)`,
		`f (g x) y`,
		`Ctor 1 2.5 'c' 3b`,
	}

	for _, text := range cases {
		strs := source.NewInterner()
		alloc := NewAllocator()
		root, err := ParseCore(strs, alloc, text)
		if err != nil {
			t.Fatalf("parse(%q): %v", text, err)
		}
		printed := PrintString(strs, root)

		reparsed, err := ParseCore(strs, alloc, printed)
		if err != nil {
			t.Fatalf("reparse of printed form %q (from %q): %v", printed, text, err)
		}
		reprinted := PrintString(strs, reparsed)

		if printed != reprinted {
			t.Fatalf("print is not a fixed point for %q:\nfirst:  %s\nsecond: %s", text, printed, reprinted)
		}
	}
}

// TestExprSize_DoesNotRegress_Roundtrip is a second guard on Expr's size
// alongside postpass_test.go's own check, kept here so a future change to
// any of print.go/parse.go/serialize.go's flattened mirrors doesn't let
// Expr itself balloon unnoticed.
func TestExprSize_DoesNotRegress_Roundtrip(t *testing.T) {
	if got := unsafe.Sizeof(Expr{}); got > 48 {
		t.Fatalf("unsafe.Sizeof(Expr{}) = %d, want <= 48", got)
	}
}

// TestTranslateMatch_VariableArmBindsScrutineeThenReturnsBody exercises
// `let test = 1 in match test with | x -> x`: the single variable equation
// binds x to the scrutinee via a let and the match compiles away entirely
// (no surviving Match node), consuming the whole arm body. This covers the
// bare-variable-arm shape independent of postpass's Match-collapse rule,
// since a variable-only match never builds a Match node in the first
// place.
func TestTranslateMatch_VariableArmBindsScrutineeThenReturnsBody(t *testing.T) {
	tr, env := newTestTranslator()
	scrutinee := srcIdent(tr.strings, "test", env.intType)
	arm := SrcMatchArm{
		Pattern: srcPatIdent(tr.strings, "x", env.intType),
		Expr:    srcIdent(tr.strings, "x", env.intType),
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: env.intType, Data: SrcMatchData{Scrutinee: scrutinee, Arms: []SrcMatchArm{arm}}}

	out := tr.TranslateExpr(expr)
	if out.Kind == ExprMatch {
		t.Fatalf("a single bare-variable arm must never produce a Match node, got %+v", out)
	}
	let, ok := out.AsLet()
	if !ok {
		t.Fatalf("expected the compiled variable arm to be a Let, got %v", out.Kind)
	}
	if name, _ := tr.strings.Lookup(let.Binding.Name.Name); name != "x" {
		t.Fatalf("expected the let to bind the arm's own binder name 'x', got %q", name)
	}
	body, ok := let.Body.AsIdent()
	if !ok || body.Ident.Name != let.Binding.Name.Name {
		t.Fatalf("expected the let body to reference the bound name back, got %+v", let.Body)
	}
}

// TestTranslateMatch_NestedConstructorPatternDispatchesOneLevelAtATime
// covers `match test with | Ctor (Ctor x) -> x end` over a single-tag
// variant: the outer Match has exactly one alternative whose body is
// itself a Match on the nested pattern, since every core Match dispatches
// only one pattern level per node.
func TestTranslateMatch_NestedConstructorPatternDispatchesOneLevelAtATime(t *testing.T) {
	tr, env := newTestTranslator()
	variant := types.TypeID(340)
	env.variants[variant] = []VariantField{
		{Tag: tr.strings.Intern("Ctor"), Args: []types.TypeID{variant}},
	}
	scrutinee := srcIdent(tr.strings, "test", variant)
	arm := SrcMatchArm{
		Pattern: srcPatCtor(tr.strings, "Ctor", variant, srcPatCtor(tr.strings, "Ctor", variant, srcPatIdent(tr.strings, "x", env.intType))),
		Expr:    srcIdent(tr.strings, "x", env.intType),
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: env.intType, Data: SrcMatchData{Scrutinee: scrutinee, Arms: []SrcMatchArm{arm}}}

	out := tr.TranslateExpr(expr)
	m, ok := out.AsMatch()
	if !ok {
		t.Fatalf("expected root Match, got %v", out.Kind)
	}
	if len(m.Alternatives) != 1 || m.Alternatives[0].Pattern.Kind != PatternConstructor {
		t.Fatalf("expected a single Constructor alternative, got %+v", m.Alternatives)
	}
	inner, ok := m.Alternatives[0].Expr.AsMatch()
	if !ok {
		t.Fatalf("expected the outer alternative's body to be a nested Match, got %v", m.Alternatives[0].Expr.Kind)
	}
	if len(inner.Alternatives) != 1 || inner.Alternatives[0].Pattern.Kind != PatternConstructor {
		t.Fatalf("expected the nested Match to hold a single Constructor alternative, got %+v", inner.Alternatives)
	}
}

// TestTranslateMatch_LiteralScrutineeHoistsIntoMatchPattern covers
// `match 2 with | 1 -> "one" | _ -> "any" end`: a non-identifier scrutinee
// is hoisted into a synthetic `match_pattern` let-binding, since the
// pattern compiler's recursive steps all need to refer to the scrutinee by
// a plain identifier.
func TestTranslateMatch_LiteralScrutineeHoistsIntoMatchPattern(t *testing.T) {
	tr, env := newTestTranslator()
	scrutinee := srcLiteralInt(env, 2)
	arms := []SrcMatchArm{
		{Pattern: srcPatLiteralInt(env, 1), Expr: &SourceExpr{Kind: SrcLiteral, Type: env.stringType, Data: SrcLiteralData{Literal: Literal{Kind: LiteralString, String: "one"}}}},
		{Pattern: srcPatWildcard(tr.strings, env.intType), Expr: &SourceExpr{Kind: SrcLiteral, Type: env.stringType, Data: SrcLiteralData{Literal: Literal{Kind: LiteralString, String: "any"}}}},
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: env.stringType, Data: SrcMatchData{Scrutinee: scrutinee, Arms: arms}}

	out := tr.TranslateExpr(expr)
	want := `let match_pattern = 2 in match match_pattern with | 1 -> "one" | _ -> "any" end`
	got := PrintString(tr.strings, out)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestTranslateMatch_AsPatternBindsOuterNameAlongsideInnerMatch covers
// `match test with | x@Ctor -> x | y -> y end`: the `@` binder is threaded
// through the Binder before pattern classification, so it is available to
// every arm body regardless of which branch of the decision tree picks it
// up, while the constructor/variable dispatch underneath proceeds exactly
// as it would without the alias.
func TestTranslateMatch_AsPatternBindsOuterNameAlongsideInnerMatch(t *testing.T) {
	tr, env := newTestTranslator()
	variant := types.TypeID(350)
	env.variants[variant] = []VariantField{
		{Tag: tr.strings.Intern("Ctor"), Args: nil},
		{Tag: tr.strings.Intern("Other"), Args: nil},
	}
	scrutinee := srcIdent(tr.strings, "test", variant)
	asPat := &SourcePattern{
		Kind:   SrcPatAs,
		Type:   variant,
		Ident:  Identifier{Name: tr.strings.Intern("x"), Type: variant},
		AsName: srcPatCtor(tr.strings, "Ctor", variant),
	}
	arms := []SrcMatchArm{
		{Pattern: asPat, Expr: srcIdent(tr.strings, "x", variant)},
		{Pattern: srcPatIdent(tr.strings, "y", variant), Expr: srcIdent(tr.strings, "y", variant)},
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: variant, Data: SrcMatchData{Scrutinee: scrutinee, Arms: arms}}

	out := tr.TranslateExpr(expr)
	let, ok := out.AsLet()
	if !ok {
		t.Fatalf("expected the as-binder to surface as an outer Let, got %v", out.Kind)
	}
	if name, _ := tr.strings.Lookup(let.Binding.Name.Name); name != "x" {
		t.Fatalf("expected the outer let to bind the as-pattern's own name 'x', got %q", name)
	}
	if _, ok := let.Body.AsMatch(); !ok {
		t.Fatalf("expected the as-binder's body to still dispatch on the constructor, got %v", let.Body.Kind)
	}
}
