package coreir

import (
	"surge/internal/source"
	"surge/internal/types"
)

// projectExpr lowers `base.field` to `match base with | { field } -> field`.
func (t *Translator) projectExpr(span source.Span, base *Expr, field Identifier) Expr {
	fieldIdent := t.allocator.AllocExpr(Expr{Kind: ExprIdent, Span: span, Data: IdentData{Ident: field}})
	alts := t.allocator.AllocAlternatives(1, func(int) Alternative {
		return Alternative{Pattern: NewRecordPattern([]RecordField{{Field: field}}), Expr: fieldIdent}
	})
	return Expr{Kind: ExprMatch, Span: span, Data: MatchData{Scrutinee: base, Alternatives: alts}}
}

// translateRecord lowers record construction, optionally with a `with`
// base update. When there is no base (or the base is a bare identifier,
// which is already side-effect-free to re-evaluate), fields lower in
// source order directly into a Data node. Otherwise every field value and
// the base itself are hoisted through the Binder — so they evaluate in
// source order — and the final argument list is reordered to the base's
// declared row-type order, with user-supplied fields overriding like-named
// base fields and the rest filled by projecting through the hoisted base.
func (t *Translator) translateRecord(expr *SourceExpr) Expr {
	d := expr.Data.(SrcRecordData)
	binder := NewBinder(t.strings)
	needsBindings := d.Base != nil && d.Base.Kind != SrcIdent

	args := make([]Expr, 0, len(d.Fields))
	lastSpan := expr.Span
	for _, f := range d.Fields {
		var val Expr
		var valType types.TypeID
		if f.Value != nil {
			lastSpan = f.Value.Span
			val = t.translate(f.Value)
			valType = f.Value.Type
		} else {
			val = Expr{Kind: ExprIdent, Span: lastSpan, Data: IdentData{Ident: f.Name}}
			valType = f.Name.Type
		}
		if needsBindings {
			val = binder.Bind(t.allocator.AllocExpr(val), valType)
		}
		args = append(args, val)
	}

	if d.Base != nil {
		coreBase := t.translateAlloc(d.Base)
		baseType := t.env.ResolveAlias(d.Base.Type)
		if needsBindings {
			bound := binder.Bind(coreBase, d.Base.Type)
			coreBase = t.allocator.AllocExpr(bound)
		}

		baseFields, _ := t.env.RowFields(baseType)
		inBase := make(map[source.StringID]bool, len(baseFields))
		for _, bf := range baseFields {
			inBase[bf.Name] = true
		}

		overridden := make(map[source.StringID]Expr, len(d.Fields))
		reordered := make([]Expr, 0, len(args))
		for i, f := range d.Fields {
			if inBase[f.Name.Name] {
				overridden[f.Name.Name] = args[i]
			} else {
				reordered = append(reordered, args[i])
			}
		}
		final := reordered
		for _, bf := range baseFields {
			if v, ok := overridden[bf.Name]; ok {
				final = append(final, v)
				continue
			}
			final = append(final, t.projectExpr(coreBase.Span, coreBase, Identifier{Name: bf.Name, Type: bf.Type}))
		}
		args = final
	}

	dataArgs := t.allocator.AllocExprs(len(args), func(i int) Expr { return args[i] })
	record := Expr{
		Kind: ExprData,
		Span: expr.Span,
		Data: DataExprData{Tag: Identifier{Name: t.dummyName, Type: expr.Type}, Args: dataArgs, SpanStart: expr.Span.Start},
	}
	return binder.IntoExpr(t.allocator, record)
}
