package coreir

// translateDo lowers `do x <- bound; body` to `flatMap (fun x -> body') bound'`,
// where bound' is hoisted through the Binder so it evaluates before the
// lambda is built. A non-identifier binder pattern is handled by routing
// the lambda's body through the pattern compiler.
func (t *Translator) translateDo(expr *SourceExpr) Expr {
	d := expr.Data.(SrcDoData)
	if !d.HasFlatMap {
		panic(coreirError("do-notation missing resolved flat_map identifier"))
	}

	binder := NewBinder(t.strings)
	boundIdent := binder.Bind(t.translateAlloc(d.Bound), d.Bound.Type)

	doID := Identifier{Name: t.dummyName}
	if d.Binder != nil && d.Binder.Kind == SrcPatIdent {
		doID = d.Binder.Ident
	}

	coreBody := t.translateAlloc(d.Body)
	if d.Binder != nil && d.Binder.Kind != SrcPatIdent {
		idExpr := t.allocator.AllocExpr(Expr{Kind: ExprIdent, Span: d.Binder.Span, Data: IdentData{Ident: doID}})
		pt := newPatternTranslator(t)
		matched := pt.translateTop(idExpr, []equation{{patterns: []*SourcePattern{d.Binder}, result: coreBody}})
		coreBody = t.allocator.AllocExpr(matched)
	}

	lambda := t.newLambda(expr.Span.Start, doID, []Identifier{doID}, coreBody, d.Body.Span)

	flatMap := t.allocator.AllocExpr(Expr{Kind: ExprIdent, Data: IdentData{Ident: d.FlatMap}})
	call := Expr{
		Kind: ExprCall,
		Span: expr.Span,
		Data: CallData{Callee: flatMap, Args: t.allocator.AllocExprs(2, func(i int) Expr {
			if i == 0 {
				return lambda
			}
			return boundIdent
		})},
	}
	return binder.IntoExpr(t.allocator, call)
}
