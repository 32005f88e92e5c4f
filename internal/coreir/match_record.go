package coreir

// compileRecord handles one consecutive run of record/tuple-pattern
// equations. Record (and tuple, positionally) patterns never alias to more
// than one runtime shape, so every equation in the run merges into exactly
// one alternative — there is no tag to branch on and no wildcard arm.
func (pt *patternTranslator) compileRecord(defaultExpr *Expr, variables []*Expr, equations []equation) *Expr {
	firstPatterns := make([]*SourcePattern, len(equations))
	for i, eq := range equations {
		firstPatterns[i] = eq.first()
	}
	merged := pt.mergePatternIdentifiers(firstPatterns)
	newVariables := pt.insertNewVariables(merged, variables)

	newEquations := make([]equation, len(equations))
	for i, eq := range equations {
		p := unwrapAs(eq.first())
		var sub []*SourcePattern
		switch p.Kind {
		case SrcPatTuple:
			sub = p.SubPatterns
		case SrcPatRecord:
			sub = make([]*SourcePattern, len(p.Fields))
			for j, f := range p.Fields {
				if f.Value != nil {
					sub[j] = f.Value
				} else {
					sub[j] = &SourcePattern{Kind: SrcPatIdent, Span: p.Span, Type: f.Name.Type, Ident: f.Name}
				}
			}
		}
		patterns := make([]*SourcePattern, 0, len(sub)+len(eq.rest()))
		patterns = append(patterns, sub...)
		patterns = append(patterns, eq.rest()...)
		newEquations[i] = equation{patterns: patterns, result: eq.result}
	}

	match := Expr{
		Kind: ExprMatch,
		Span: variables[0].Span,
		Data: MatchData{Scrutinee: variables[0], Alternatives: pt.t.allocator.AllocAlternatives(1, func(int) Alternative {
			return Alternative{Pattern: merged, Expr: pt.translate(defaultExpr, newVariables, newEquations)}
		})},
	}
	return pt.t.allocator.AllocExpr(match)
}
