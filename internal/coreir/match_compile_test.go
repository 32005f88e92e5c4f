package coreir

import (
	"testing"

	"surge/internal/source"
	"surge/internal/types"
)

func newTestTranslator() (*Translator, *fakeEnv) {
	strings := source.NewInterner()
	env := newFakeEnv(strings)
	return NewTranslator(env, strings), env
}

func TestTranslateMatch_NonExhaustiveConstructorFallsBackToVariable(t *testing.T) {
	tr, env := newTestTranslator()
	variant := types.TypeID(300)
	ctorA := types.TypeID(301)
	env.variants[variant] = []VariantField{
		{Tag: tr.strings.Intern("CtorA"), Args: []types.TypeID{env.intType}},
		{Tag: tr.strings.Intern("CtorB"), Args: []types.TypeID{env.intType}},
	}

	scrutinee := srcIdent(tr.strings, "test", variant)
	armCtor := SrcMatchArm{
		Pattern: srcPatCtor(tr.strings, "CtorA", ctorA, srcPatIdent(tr.strings, "x", env.intType)),
		Expr:    srcLiteralInt(env, 1),
	}
	armFallback := SrcMatchArm{
		Pattern: srcPatIdent(tr.strings, "z", variant),
		Expr:    srcLiteralInt(env, 2),
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: env.intType, Data: SrcMatchData{Scrutinee: scrutinee, Arms: []SrcMatchArm{armCtor, armFallback}}}

	root := tr.translateAlloc(expr)
	out := fixupMatches(tr.allocator, tr.identReplacements, root)

	m, ok := out.AsMatch()
	if !ok {
		t.Fatalf("expected root Match, got %v", out.Kind)
	}
	if len(m.Alternatives) != 2 {
		t.Fatalf("expected 2 alternatives (one per tag + wildcard), got %d", len(m.Alternatives))
	}
	if m.Alternatives[0].Pattern.Kind != PatternConstructor {
		t.Fatalf("expected first alternative to be a Constructor pattern, got %v", m.Alternatives[0].Pattern.Kind)
	}
	if name, _ := tr.strings.Lookup(m.Alternatives[0].Pattern.Tag.Name); name != "CtorA" {
		t.Fatalf("expected tag CtorA, got %q", name)
	}
	last := m.Alternatives[len(m.Alternatives)-1]
	if !last.Pattern.IsWildcard(tr.strings) {
		t.Fatalf("expected a trailing wildcard alternative for a non-exhaustive constructor match, got %v", last.Pattern)
	}
}

func TestTranslateMatch_ExhaustiveSingleConstructorDropsFallback(t *testing.T) {
	tr, env := newTestTranslator()
	variant := types.TypeID(310)
	env.variants[variant] = []VariantField{
		{Tag: tr.strings.Intern("Ctor"), Args: []types.TypeID{variant}},
	}

	scrutinee := srcIdent(tr.strings, "test", variant)
	armNested := SrcMatchArm{
		Pattern: srcPatCtor(tr.strings, "Ctor", variant, srcPatCtor(tr.strings, "Ctor", variant, srcPatIdent(tr.strings, "x", env.intType))),
		Expr:    srcLiteralInt(env, 1),
	}
	armOuter := SrcMatchArm{
		Pattern: srcPatCtor(tr.strings, "Ctor", variant, srcPatIdent(tr.strings, "y", variant)),
		Expr:    srcLiteralInt(env, 2),
	}
	armFallback := SrcMatchArm{
		Pattern: srcPatIdent(tr.strings, "z", variant),
		Expr:    srcLiteralInt(env, 3),
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: env.intType, Data: SrcMatchData{Scrutinee: scrutinee, Arms: []SrcMatchArm{armNested, armOuter, armFallback}}}

	root := tr.translateAlloc(expr)
	out := fixupMatches(tr.allocator, tr.identReplacements, root)

	m, ok := out.AsMatch()
	if !ok {
		t.Fatalf("expected root Match, got %v", out.Kind)
	}
	// A single-constructor variant is exhaustive after seeing one tag: the
	// unreachable catch-all ("z") must not survive as a second alternative.
	if len(m.Alternatives) != 1 {
		t.Fatalf("expected exactly 1 alternative (no redundant wildcard), got %d", len(m.Alternatives))
	}
	inner, ok := m.Alternatives[0].Expr.AsMatch()
	if !ok {
		t.Fatalf("expected the first level's single alternative body to itself be a Match, got %v", m.Alternatives[0].Expr.Kind)
	}
	if len(inner.Alternatives) != 1 {
		t.Fatalf("expected the nested match to also collapse to 1 alternative, got %d", len(inner.Alternatives))
	}
}

func TestTranslateMatch_LiteralColumnAlwaysGetsWildcard(t *testing.T) {
	tr, env := newTestTranslator()
	scrutinee := srcIdent(tr.strings, "n", env.intType)
	arms := []SrcMatchArm{
		{Pattern: srcPatLiteralInt(env, 1), Expr: srcLiteralInt(env, 10)},
		{Pattern: srcPatLiteralInt(env, 2), Expr: srcLiteralInt(env, 20)},
		{Pattern: srcPatWildcard(tr.strings, env.intType), Expr: srcLiteralInt(env, 0)},
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: env.intType, Data: SrcMatchData{Scrutinee: scrutinee, Arms: arms}}

	root := tr.translateAlloc(expr)
	out := fixupMatches(tr.allocator, tr.identReplacements, root)

	m, ok := out.AsMatch()
	if !ok {
		t.Fatalf("expected root Match, got %v", out.Kind)
	}
	if len(m.Alternatives) != 3 {
		t.Fatalf("expected 2 literal alternatives + 1 wildcard, got %d", len(m.Alternatives))
	}
	for i, lit := range []int64{1, 2} {
		if m.Alternatives[i].Pattern.Kind != PatternLiteral || m.Alternatives[i].Pattern.Literal.Int != lit {
			t.Fatalf("alternative %d: expected literal %d, got %+v", i, lit, m.Alternatives[i].Pattern)
		}
	}
	if !m.Alternatives[2].Pattern.IsWildcard(tr.strings) {
		t.Fatalf("expected a mandatory trailing wildcard for a literal match, got %+v", m.Alternatives[2].Pattern)
	}
}

func TestTranslateMatch_RecordPatternMergesIntoOneAlternative(t *testing.T) {
	tr, env := newTestTranslator()
	recType := types.TypeID(320)
	env.rowFields[recType] = []RowField{
		{Name: tr.strings.Intern("x"), Type: env.intType},
		{Name: tr.strings.Intern("y"), Type: env.intType},
	}

	scrutinee := srcIdent(tr.strings, "point", recType)
	pat := &SourcePattern{
		Kind: SrcPatRecord,
		Type: recType,
		Fields: []SrcPatRecordField{
			{Name: Identifier{Name: tr.strings.Intern("x"), Type: env.intType}},
			{Name: Identifier{Name: tr.strings.Intern("y"), Type: env.intType}},
		},
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: env.intType, Data: SrcMatchData{
		Scrutinee: scrutinee,
		Arms:      []SrcMatchArm{{Pattern: pat, Expr: srcLiteralInt(env, 1)}},
	}}

	root := tr.translateAlloc(expr)
	out := fixupMatches(tr.allocator, tr.identReplacements, root)

	m, ok := out.AsMatch()
	if !ok {
		t.Fatalf("expected root Match, got %v", out.Kind)
	}
	if len(m.Alternatives) != 1 {
		t.Fatalf("a record pattern must merge into exactly one alternative, got %d", len(m.Alternatives))
	}
	if m.Alternatives[0].Pattern.Kind != PatternRecord || len(m.Alternatives[0].Pattern.RecordFields) != 2 {
		t.Fatalf("expected a 2-field record pattern, got %+v", m.Alternatives[0].Pattern)
	}
}

func TestTranslateMatch_AsPatternCollapsesThroughPostpass(t *testing.T) {
	tr, _ := newTestTranslator()
	intType := tr.env.IntType()
	scrutinee := srcIdent(tr.strings, "n", intType)
	asPat := &SourcePattern{
		Kind:   SrcPatAs,
		Type:   intType,
		Ident:  Identifier{Name: tr.strings.Intern("whole"), Type: intType},
		AsName: srcPatIdent(tr.strings, "inner", intType),
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: intType, Data: SrcMatchData{
		Scrutinee: scrutinee,
		Arms:      []SrcMatchArm{{Pattern: asPat, Expr: srcIdent(tr.strings, "whole", intType)}},
	}}

	out := tr.TranslateExpr(expr)
	// whole and inner both alias n; after fixup the whole tree should have
	// collapsed down to a reference to n with no surviving Match node.
	if out.Kind == ExprMatch {
		t.Fatalf("expected the as-pattern match to collapse away, got a surviving Match: %+v", out)
	}
}

func TestTranslateMatch_DuplicateBinderAcrossEquationsIsReplaced(t *testing.T) {
	tr, env := newTestTranslator()
	variant := types.TypeID(330)
	ctorA := types.TypeID(331)
	env.variants[variant] = []VariantField{
		{Tag: tr.strings.Intern("CtorA"), Args: []types.TypeID{env.intType}},
	}
	scrutinee := srcIdent(tr.strings, "test", variant)
	arm1 := SrcMatchArm{
		Pattern: srcPatCtor(tr.strings, "CtorA", ctorA, srcPatIdent(tr.strings, "x", env.intType)),
		Expr:    srcIdent(tr.strings, "x", env.intType),
	}
	expr := &SourceExpr{Kind: SrcMatch, Type: env.intType, Data: SrcMatchData{Scrutinee: scrutinee, Arms: []SrcMatchArm{arm1}}}

	out := tr.TranslateExpr(expr)
	m, ok := out.AsMatch()
	if !ok {
		t.Fatalf("expected root Match, got %v", out.Kind)
	}
	if len(m.Alternatives) != 1 || len(m.Alternatives[0].Pattern.Fields) != 1 {
		t.Fatalf("expected a single Constructor alternative binding one field, got %+v", m.Alternatives[0].Pattern)
	}
}
