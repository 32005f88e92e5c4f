package coreir

// compileLiteral handles one consecutive run of literal-pattern equations:
// partition by literal value in stable first-seen order, one alternative
// per distinct value recursing on the rest of that value's equations, plus
// a mandatory trailing wildcard arm bound to `default` (literals are never
// exhaustive without a checker-level proof this package doesn't have).
func (pt *patternTranslator) compileLiteral(defaultExpr *Expr, variables []*Expr, equations []equation) *Expr {
	type litGroup struct {
		lit       Literal
		equations []equation
	}
	var groups []litGroup

	for _, eq := range equations {
		lit := unwrapAs(eq.first()).Literal
		idx := -1
		for i, g := range groups {
			if g.lit.Equal(lit) {
				idx = i
				break
			}
		}
		if idx < 0 {
			groups = append(groups, litGroup{lit: lit})
			idx = len(groups) - 1
		}
		groups[idx].equations = append(groups[idx].equations, equation{patterns: eq.rest(), result: eq.result})
	}

	var rest []*Expr
	if len(variables) > 1 {
		rest = variables[1:]
	}

	alts := make([]Alternative, 0, len(groups)+1)
	for _, g := range groups {
		alts = append(alts, Alternative{
			Pattern: NewLiteralPattern(g.lit),
			Expr:    pt.translate(defaultExpr, rest, g.equations),
		})
	}
	alts = append(alts, Alternative{
		Pattern: NewIdentPattern(Identifier{Name: pt.t.strings.Intern("_")}),
		Expr:    defaultExpr,
	})

	match := Expr{
		Kind: ExprMatch,
		Span: variables[0].Span,
		Data: MatchData{Scrutinee: variables[0], Alternatives: pt.t.allocator.AllocAlternatives(len(alts), func(i int) Alternative { return alts[i] })},
	}
	return pt.t.allocator.AllocExpr(match)
}
