package coreir

// translateApply lowers `f a1 ... an`, routing constructor applications to
// the data-constructor lowerer and everything else to a plain Call.
// Implicit arguments are prepended to the explicit ones, in source order.
func (t *Translator) translateApply(expr *SourceExpr) Expr {
	d := expr.Data.(SrcApplyData)
	allArgs := make([]Expr, 0, len(d.ImplicitArgs)+len(d.Args))
	for _, a := range d.ImplicitArgs {
		allArgs = append(allArgs, t.translate(a))
	}
	for _, a := range d.Args {
		allArgs = append(allArgs, t.translate(a))
	}

	if d.Callee.Kind == SrcIdent {
		id := d.Callee.Data.(SrcIdentData).Name
		if isConstructorName(t.strings, id.Name) {
			return t.newDataConstructor(expr.Type, id, allArgs, expr.Span)
		}
	}

	args := t.allocator.AllocExprs(len(allArgs), func(i int) Expr { return allArgs[i] })
	return Expr{Kind: ExprCall, Span: expr.Span, Data: CallData{Callee: t.translateAlloc(d.Callee), Args: args}}
}

// translateBlock lowers `e1; e2; ...; en` right-to-left into nested
// `let _ = ei in ...`; only the final expression's value is observable.
func (t *Translator) translateBlock(expr *SourceExpr) Expr {
	d := expr.Data.(SrcBlockData)
	if len(d.Exprs) == 0 {
		panic(coreirError("translateBlock: empty block"))
	}
	last := len(d.Exprs) - 1
	result := t.translate(d.Exprs[last])
	for i := last - 1; i >= 0; i-- {
		stmt := d.Exprs[i]
		binding := t.allocator.AllocLetBinding(LetBinding{
			Name:      Identifier{Name: t.dummyName},
			Expr:      NewNamedExpr(t.translateAlloc(stmt)),
			SpanStart: stmt.Span.Start,
		})
		result = Expr{Kind: ExprLet, Span: expr.Span, Data: LetExprData{Binding: binding, Body: t.allocator.AllocExpr(result)}}
	}
	return result
}

// translateTuple unwraps a 1-tuple to its sole element; otherwise builds a
// sentinel-tagged Data node.
func (t *Translator) translateTuple(expr *SourceExpr) Expr {
	d := expr.Data.(SrcTupleData)
	if len(d.Elems) == 1 {
		return t.translate(d.Elems[0])
	}
	args := t.allocator.AllocExprs(len(d.Elems), func(i int) Expr { return t.translate(d.Elems[i]) })
	return Expr{Kind: ExprData, Span: expr.Span, Data: DataExprData{Tag: Identifier{Name: t.dummyName, Type: expr.Type}, Args: args, SpanStart: expr.Span.Start}}
}
