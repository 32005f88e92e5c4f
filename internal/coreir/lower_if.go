package coreir

// translateIf lowers `if c then t else e` to a two-arm Match over the
// boolean variant's True/False constructors, in that declaration order.
func (t *Translator) translateIf(expr *SourceExpr) Expr {
	d := expr.Data.(SrcIfData)
	trueName, falseName := t.env.BoolConstructors()
	boolType := t.env.BoolType()

	alts := t.allocator.AllocAlternatives(2, func(i int) Alternative {
		if i == 0 {
			return Alternative{
				Pattern: NewConstructorPattern(Identifier{Name: trueName, Type: boolType}, nil),
				Expr:    t.translateAlloc(d.Then),
			}
		}
		return Alternative{
			Pattern: NewConstructorPattern(Identifier{Name: falseName, Type: boolType}, nil),
			Expr:    t.translateAlloc(d.Else),
		}
	})
	return Expr{Kind: ExprMatch, Span: expr.Span, Data: MatchData{Scrutinee: t.translateAlloc(d.Cond), Alternatives: alts}}
}
