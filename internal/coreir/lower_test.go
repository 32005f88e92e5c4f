package coreir

import (
	"testing"

	"surge/internal/source"
	"surge/internal/types"
)

func TestTranslateIf_LowersToBoolConstructorMatch(t *testing.T) {
	tr, env := newTestTranslator()
	env.boolType = types.TypeID(400)
	env.boolTrue = tr.strings.Intern("True")
	env.boolFalse = tr.strings.Intern("False")

	expr := &SourceExpr{Kind: SrcIf, Type: env.intType, Data: SrcIfData{
		Cond: srcIdent(tr.strings, "cond", env.boolType),
		Then: srcLiteralInt(env, 1),
		Else: srcLiteralInt(env, 2),
	}}

	out := tr.TranslateExpr(expr)
	m, ok := out.AsMatch()
	if !ok {
		t.Fatalf("expected `if` to lower to a Match, got %v", out.Kind)
	}
	if len(m.Alternatives) != 2 {
		t.Fatalf("expected exactly 2 alternatives (True, False), got %d", len(m.Alternatives))
	}
	trueName, _ := tr.strings.Lookup(m.Alternatives[0].Pattern.Tag.Name)
	falseName, _ := tr.strings.Lookup(m.Alternatives[1].Pattern.Tag.Name)
	if trueName != "True" || falseName != "False" {
		t.Fatalf("expected alternatives in True, False declaration order, got %q, %q", trueName, falseName)
	}
	if c1, _ := m.Alternatives[0].Expr.AsConst(); c1.Literal.Int != 1 {
		t.Fatalf("expected the True arm to carry the `then` branch")
	}
	if c2, _ := m.Alternatives[1].Expr.AsConst(); c2.Literal.Int != 2 {
		t.Fatalf("expected the False arm to carry the `else` branch")
	}
}

func TestTranslateRecord_NoBaseBuildsDataNodeInFieldOrder(t *testing.T) {
	tr, env := newTestTranslator()
	expr := &SourceExpr{Kind: SrcRecord, Type: env.intType, Data: SrcRecordData{
		Fields: []SrcRecordFieldExpr{
			{Name: Identifier{Name: tr.strings.Intern("x"), Type: env.intType}, Value: srcLiteralInt(env, 1)},
			{Name: Identifier{Name: tr.strings.Intern("y"), Type: env.intType}, Value: srcLiteralInt(env, 2)},
		},
	}}

	out := tr.TranslateExpr(expr)
	d, ok := out.AsData()
	if !ok {
		t.Fatalf("expected a Data node, got %v", out.Kind)
	}
	if len(d.Args) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(d.Args))
	}
	v0, _ := d.Args[0].AsConst()
	v1, _ := d.Args[1].AsConst()
	if v0.Literal.Int != 1 || v1.Literal.Int != 2 {
		t.Fatalf("expected fields in source order [1, 2], got [%d, %d]", v0.Literal.Int, v1.Literal.Int)
	}
}

func TestTranslateRecord_WithBaseReordersToRowOrderAndOverrides(t *testing.T) {
	tr, env := newTestTranslator()
	recType := types.TypeID(410)
	xName := tr.strings.Intern("x")
	yName := tr.strings.Intern("y")
	env.rowFields[recType] = []RowField{
		{Name: xName, Type: env.intType},
		{Name: yName, Type: env.intType},
	}

	expr := &SourceExpr{Kind: SrcRecord, Type: recType, Data: SrcRecordData{
		Base: srcIdent(tr.strings, "base", recType),
		Fields: []SrcRecordFieldExpr{
			{Name: Identifier{Name: yName, Type: env.intType}, Value: srcLiteralInt(env, 9)},
		},
	}}

	out := tr.TranslateExpr(expr)
	d, ok := out.AsData()
	if !ok {
		t.Fatalf("expected a Data node, got %v", out.Kind)
	}
	if len(d.Args) != 2 {
		t.Fatalf("expected 2 row-order fields, got %d", len(d.Args))
	}
	// x was not overridden: it must come from projecting the base record.
	xMatch, ok := d.Args[0].AsMatch()
	if !ok {
		t.Fatalf("expected field x to be a base projection (Match), got %v", d.Args[0].Kind)
	}
	if len(xMatch.Alternatives) != 1 || xMatch.Alternatives[0].Pattern.Kind != PatternRecord {
		t.Fatalf("expected the base projection to be a single-field record match, got %+v", xMatch.Alternatives)
	}
	// y was overridden with the literal 9.
	yConst, ok := d.Args[1].AsConst()
	if !ok || yConst.Literal.Int != 9 {
		t.Fatalf("expected field y to be the overriding literal 9, got %+v", d.Args[1])
	}
}

func TestProjectExpr_LowersToSingleFieldRecordMatch(t *testing.T) {
	tr, env := newTestTranslator()
	base := tr.translateAlloc(srcIdent(tr.strings, "point", env.intType))
	field := Identifier{Name: tr.strings.Intern("x"), Type: env.intType}

	out := tr.projectExpr(base.Span, base, field)
	if out.Kind != ExprMatch {
		t.Fatalf("expected projectExpr to build a Match, got %v", out.Kind)
	}
	m := out.Data.(MatchData)
	if len(m.Alternatives) != 1 || m.Alternatives[0].Pattern.Kind != PatternRecord {
		t.Fatalf("expected a single-field record pattern, got %+v", m.Alternatives)
	}
	if len(m.Alternatives[0].Pattern.RecordFields) != 1 || m.Alternatives[0].Pattern.RecordFields[0].Field.Name != field.Name {
		t.Fatalf("expected the record pattern to bind exactly field %v", field)
	}
}

func TestTranslateDo_LowersToFlatMapCall(t *testing.T) {
	tr, env := newTestTranslator()
	flatMapName := tr.strings.Intern("flatMap")

	expr := &SourceExpr{Kind: SrcDo, Type: env.intType, Data: SrcDoData{
		Binder:     srcPatIdent(tr.strings, "x", env.intType),
		Bound:      srcIdent(tr.strings, "xs", env.intType),
		Body:       srcIdent(tr.strings, "x", env.intType),
		FlatMap:    Identifier{Name: flatMapName},
		HasFlatMap: true,
	}}

	out := tr.TranslateExpr(expr)
	// The bound expression is always hoisted through a Binder first, so the
	// flatMap call sits inside a `let bind_arg0 = xs in ...` wrapper.
	l, ok := out.AsLet()
	if !ok {
		t.Fatalf("expected the hoisted bound expression to produce a Let, got %v", out.Kind)
	}
	call, ok := l.Body.AsCall()
	if !ok {
		t.Fatalf("expected the let's body to be the flatMap Call, got %v", l.Body.Kind)
	}
	callee, _ := call.Callee.AsIdent()
	if callee.Ident.Name != flatMapName {
		t.Fatalf("expected the callee to be the resolved flatMap identifier")
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected flatMap applied to exactly (lambda, bound), got %d args", len(call.Args))
	}
}

func TestTranslateDo_PanicsWithoutResolvedFlatMap(t *testing.T) {
	tr, env := newTestTranslator()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected translateDo to panic when HasFlatMap is false")
		}
	}()
	expr := &SourceExpr{Kind: SrcDo, Type: env.intType, Data: SrcDoData{
		Bound: srcIdent(tr.strings, "xs", env.intType),
		Body:  srcIdent(tr.strings, "x", env.intType),
	}}
	tr.TranslateExpr(expr)
}

func TestTranslateLet_PlainIdentBinderProducesSimpleLet(t *testing.T) {
	tr, env := newTestTranslator()
	expr := &SourceExpr{Kind: SrcLet, Type: env.intType, Data: SrcLetData{
		Binder: srcPatIdent(tr.strings, "x", env.intType),
		Value:  srcLiteralInt(env, 5),
		Body:   srcIdent(tr.strings, "x", env.intType),
	}}

	out := tr.TranslateExpr(expr)
	l, ok := out.AsLet()
	if !ok {
		t.Fatalf("expected a Let node, got %v", out.Kind)
	}
	if l.Binding.Expr.Kind != NamedExpr {
		t.Fatalf("expected a plain NamedExpr binding for a zero-argument let, got %v", l.Binding.Expr.Kind)
	}
}

func TestTranslateLet_FunctionBinderProducesRecursiveClosure(t *testing.T) {
	tr, env := newTestTranslator()
	expr := &SourceExpr{Kind: SrcLet, Type: env.intType, Data: SrcLetData{
		Binder: srcPatIdent(tr.strings, "f", env.intType),
		Args:   []Identifier{{Name: tr.strings.Intern("x"), Type: env.intType}},
		Value:  srcIdent(tr.strings, "x", env.intType),
		Body:   srcIdent(tr.strings, "f", env.intType),
	}}

	out := tr.TranslateExpr(expr)
	l, ok := out.AsLet()
	if !ok {
		t.Fatalf("expected a Let node, got %v", out.Kind)
	}
	if l.Binding.Expr.Kind != NamedRecursive || len(l.Binding.Expr.Recursive) != 1 {
		t.Fatalf("expected a single-closure NamedRecursive binding for a function let, got %+v", l.Binding.Expr)
	}
}

func TestTranslateLet_NonIdentBinderRoutesThroughPatternCompiler(t *testing.T) {
	tr, env := newTestTranslator()
	recType := types.TypeID(420)
	env.rowFields[recType] = []RowField{{Name: tr.strings.Intern("x"), Type: env.intType}}

	binder := &SourcePattern{
		Kind: SrcPatRecord,
		Type: recType,
		Fields: []SrcPatRecordField{
			{Name: Identifier{Name: tr.strings.Intern("x"), Type: env.intType}},
		},
	}
	expr := &SourceExpr{Kind: SrcLet, Type: env.intType, Data: SrcLetData{
		Binder: binder,
		Value:  srcIdent(tr.strings, "pair", recType),
		Body:   srcIdent(tr.strings, "x", env.intType),
	}}

	out := tr.TranslateExpr(expr)
	// A record-pattern let binding delegates entirely to the pattern
	// compiler, which produces a Match over the bound value directly
	// rather than a plain Let.
	if out.Kind != ExprMatch {
		t.Fatalf("expected a non-identifier let binder to compile to a Match, got %v", out.Kind)
	}
}

func TestTranslateLetRecursive_BuildsOneClosurePerBinding(t *testing.T) {
	tr, env := newTestTranslator()
	expr := &SourceExpr{Kind: SrcLetRecursive, Type: env.intType, Data: SrcLetRecursiveData{
		Bindings: []SrcRecClosureBinding{
			{Name: srcPatIdent(tr.strings, "isEven", env.intType), Args: []Identifier{{Name: tr.strings.Intern("n"), Type: env.intType}}, Expr: srcIdent(tr.strings, "n", env.intType)},
			{Name: srcPatIdent(tr.strings, "isOdd", env.intType), Args: []Identifier{{Name: tr.strings.Intern("n"), Type: env.intType}}, Expr: srcIdent(tr.strings, "n", env.intType)},
		},
		Body: srcIdent(tr.strings, "isEven", env.intType),
	}}

	out := tr.TranslateExpr(expr)
	l, ok := out.AsLet()
	if !ok {
		t.Fatalf("expected a Let node, got %v", out.Kind)
	}
	if l.Binding.Expr.Kind != NamedRecursive || len(l.Binding.Expr.Recursive) != 2 {
		t.Fatalf("expected a 2-closure NamedRecursive group, got %+v", l.Binding.Expr)
	}
}

func TestTranslateApply_ConstructorNameRoutesToDataConstructor(t *testing.T) {
	tr, env := newTestTranslator()
	ctorType := types.TypeID(430)
	env.fnParams[ctorType] = []types.TypeID{env.intType}
	env.fnResult[ctorType] = env.intType

	expr := &SourceExpr{Kind: SrcApply, Type: env.intType, Data: SrcApplyData{
		Callee: srcIdent(tr.strings, "Some", ctorType),
		Args:   []*SourceExpr{srcLiteralInt(env, 1)},
	}}

	out := tr.TranslateExpr(expr)
	if out.Kind != ExprData {
		t.Fatalf("expected an uppercase-named callee to lower to a Data node, got %v", out.Kind)
	}
}

func TestTranslateApply_PlainCalleeLowersToCall(t *testing.T) {
	tr, env := newTestTranslator()
	expr := &SourceExpr{Kind: SrcApply, Type: env.intType, Data: SrcApplyData{
		Callee: srcIdent(tr.strings, "double", env.intType),
		Args:   []*SourceExpr{srcLiteralInt(env, 1)},
	}}

	out := tr.TranslateExpr(expr)
	if out.Kind != ExprCall {
		t.Fatalf("expected a lowercase-named callee to lower to a Call, got %v", out.Kind)
	}
}

func TestTranslateBlock_OnlyFinalExprIsTheLetBody(t *testing.T) {
	tr, env := newTestTranslator()
	expr := &SourceExpr{Kind: SrcBlock, Type: env.intType, Data: SrcBlockData{
		Exprs: []*SourceExpr{srcLiteralInt(env, 1), srcLiteralInt(env, 2), srcLiteralInt(env, 3)},
	}}

	out := tr.TranslateExpr(expr)
	l, ok := out.AsLet()
	if !ok {
		t.Fatalf("expected the first two statements to become discard-lets, got %v", out.Kind)
	}
	inner, ok := l.Body.AsLet()
	if !ok {
		t.Fatalf("expected a nested discard-let for the second statement, got %v", l.Body.Kind)
	}
	finalConst, ok := inner.Body.AsConst()
	if !ok || finalConst.Literal.Int != 3 {
		t.Fatalf("expected the block's value to be its final expression, got %+v", inner.Body)
	}
}

func TestTranslateTuple_SingletonUnwraps(t *testing.T) {
	tr, env := newTestTranslator()
	expr := &SourceExpr{Kind: SrcTuple, Type: env.intType, Data: SrcTupleData{Elems: []*SourceExpr{srcLiteralInt(env, 42)}}}
	out := tr.TranslateExpr(expr)
	c, ok := out.AsConst()
	if !ok || c.Literal.Int != 42 {
		t.Fatalf("expected a 1-tuple to unwrap to its sole element, got %+v", out)
	}
}

func TestTranslateTuple_MultiElemBuildsSentinelTaggedData(t *testing.T) {
	tr, env := newTestTranslator()
	expr := &SourceExpr{Kind: SrcTuple, Type: env.intType, Data: SrcTupleData{
		Elems: []*SourceExpr{srcLiteralInt(env, 1), srcLiteralInt(env, 2)},
	}}
	out := tr.TranslateExpr(expr)
	d, ok := out.AsData()
	if !ok {
		t.Fatalf("expected a multi-element tuple to lower to a Data node, got %v", out.Kind)
	}
	if d.Tag.Name != SentinelTag.Name {
		t.Fatalf("expected the sentinel tag for tuple construction")
	}
	if len(d.Args) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(d.Args))
	}
}

func TestNewDataConstructor_EtaExpandsUnappliedParameters(t *testing.T) {
	tr, env := newTestTranslator()
	ctorType := types.TypeID(440)
	env.fnParams[ctorType] = []types.TypeID{env.intType, env.intType}
	env.fnResult[ctorType] = env.intType

	name := Identifier{Name: tr.strings.Intern("Pair"), Type: ctorType}
	out := tr.newDataConstructor(env.intType, name, []Expr{{Kind: ExprConst, Data: ConstData{Literal: Literal{Kind: LiteralInt, Int: 1}}}}, source.Span{})

	if out.Kind != ExprLet {
		t.Fatalf("expected eta-expansion to wrap the saturated Data node in a closure Let, got %v", out.Kind)
	}
	l := out.Data.(LetExprData)
	if l.Binding.Expr.Kind != NamedRecursive || len(l.Binding.Expr.Recursive[0].Args) != 1 {
		t.Fatalf("expected exactly 1 eta-bound parameter for a 2-arg constructor applied to 1 arg, got %+v", l.Binding.Expr)
	}
	data, ok := l.Binding.Expr.Recursive[0].Expr.AsData()
	if !ok || len(data.Args) != 2 {
		t.Fatalf("expected the wrapped Data node to be fully saturated with 2 args, got %+v", data)
	}
}

func TestNewDataConstructor_NoUnappliedParametersBuildsBareData(t *testing.T) {
	tr, env := newTestTranslator()
	ctorType := types.TypeID(450)
	env.fnParams[ctorType] = []types.TypeID{env.intType}
	env.fnResult[ctorType] = env.intType

	name := Identifier{Name: tr.strings.Intern("Some"), Type: ctorType}
	out := tr.newDataConstructor(env.intType, name, []Expr{{Kind: ExprConst, Data: ConstData{Literal: Literal{Kind: LiteralInt, Int: 1}}}}, source.Span{})

	if out.Kind != ExprData {
		t.Fatalf("expected a saturated constructor application to build a bare Data node, got %v", out.Kind)
	}
}
