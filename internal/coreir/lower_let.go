package coreir

// translateLet lowers one non-recursive binding. An identifier binder
// becomes a plain (or single-closure, if it takes arguments) LetBinding
// wrapping the translated body; anything else delegates entirely to the
// pattern compiler, which produces the equivalent match-based binding.
func (t *Translator) translateLet(expr *SourceExpr) Expr {
	d := expr.Data.(SrcLetData)

	if d.Binder.Kind != SrcPatIdent {
		bindExpr := t.translateAlloc(d.Value)
		tail := t.translateAlloc(d.Body)
		pt := newPatternTranslator(t)
		return pt.translateTop(bindExpr, []equation{{patterns: []*SourcePattern{d.Binder}, result: tail}})
	}

	name := d.Binder.Ident
	var named Named
	if len(d.Args) == 0 {
		named = NewNamedExpr(t.translateAlloc(d.Value))
	} else {
		named = NewNamedRecursive([]Closure{{
			Pos:  d.Value.Span.Start,
			Name: name,
			Args: d.Args,
			Expr: t.translateAlloc(d.Value),
		}})
	}
	binding := t.allocator.AllocLetBinding(LetBinding{Name: name, Expr: named, SpanStart: d.Value.Span.Start})
	return Expr{Kind: ExprLet, Span: expr.Span, Data: LetExprData{Binding: binding, Body: t.translateAlloc(d.Body)}}
}

// translateLetRecursive lowers a mutually-recursive binding group into a
// single Let(Recursive(...)). Every binder must be a plain identifier
// pattern — the upstream's renamer guarantees this; anything else is a
// contract violation.
func (t *Translator) translateLetRecursive(expr *SourceExpr) Expr {
	d := expr.Data.(SrcLetRecursiveData)
	closures := make([]Closure, len(d.Bindings))
	for i, b := range d.Bindings {
		if b.Name.Kind != SrcPatIdent {
			panic(coreirError("recursive let binder must be an identifier pattern"))
		}
		closures[i] = Closure{Pos: b.Pos, Name: b.Name.Ident, Args: b.Args, Expr: t.translateAlloc(b.Expr)}
	}
	binding := t.allocator.AllocLetBinding(LetBinding{
		Name:      Identifier{Name: t.dummyName},
		Expr:      NewNamedRecursive(closures),
		SpanStart: expr.Span.Start,
	})
	return Expr{Kind: ExprLet, Span: expr.Span, Data: LetExprData{Binding: binding, Body: t.translateAlloc(d.Body)}}
}
