package coreir

import "surge/internal/source"

// compileConstructor handles one consecutive run of constructor-pattern
// equations: partition by tag in stable first-seen order, merge each
// tag's leading patterns into one binder pattern, recurse into that tag's
// own sub-columns, and add a trailing wildcard arm to `default` only when
// the scrutinee's variant is not fully covered.
func (pt *patternTranslator) compileConstructor(defaultExpr *Expr, variables []*Expr, equations []equation) *Expr {
	var order []source.StringID
	groups := make(map[source.StringID][]equation)
	for _, eq := range equations {
		tag := unwrapAs(eq.first()).Tag.Name
		if _, seen := groups[tag]; !seen {
			order = append(order, tag)
		}
		groups[tag] = append(groups[tag], eq)
	}

	alts := make([]Alternative, 0, len(order)+1)
	for _, tag := range order {
		group := groups[tag]

		firstPatterns := make([]*SourcePattern, len(group))
		for i, eq := range group {
			firstPatterns[i] = eq.first()
		}
		merged := pt.mergePatternIdentifiers(firstPatterns)
		newVariables := pt.insertNewVariables(merged, variables)

		newEquations := make([]equation, len(group))
		for i, eq := range group {
			subPatterns := unwrapAs(eq.first()).SubPatterns
			patterns := make([]*SourcePattern, 0, len(subPatterns)+len(eq.rest()))
			patterns = append(patterns, subPatterns...)
			patterns = append(patterns, eq.rest()...)
			newEquations[i] = equation{patterns: patterns, result: eq.result}
		}

		alts = append(alts, Alternative{
			Pattern: merged,
			Expr:    pt.translate(defaultExpr, newVariables, newEquations),
		})
	}

	if !pt.constructorsExhaustive(variables[0], order) {
		alts = append(alts, Alternative{
			Pattern: NewIdentPattern(Identifier{Name: pt.t.strings.Intern("_")}),
			Expr:    defaultExpr,
		})
	}

	match := Expr{
		Kind: ExprMatch,
		Span: variables[0].Span,
		Data: MatchData{Scrutinee: variables[0], Alternatives: pt.t.allocator.AllocAlternatives(len(alts), func(i int) Alternative { return alts[i] })},
	}
	return pt.t.allocator.AllocExpr(match)
}

// constructorsExhaustive reports whether matchedTags already covers every
// constructor of the scrutinee's variant type. A scrutinee whose type
// cannot be resolved to a variant (e.g. unknown/opaque) is treated as
// non-exhaustive, so a safety-net wildcard is always added.
func (pt *patternTranslator) constructorsExhaustive(scrutinee *Expr, matchedTags []source.StringID) bool {
	variantType := scrutinee.TypeOf(pt.t.env)
	variants, ok := pt.t.env.Variants(variantType)
	if !ok || len(variants) != len(matchedTags) {
		return false
	}
	seen := make(map[source.StringID]bool, len(matchedTags))
	for _, tag := range matchedTags {
		seen[tag] = true
	}
	for _, v := range variants {
		if !seen[v.Tag] {
			return false
		}
	}
	return true
}
