package coreir

// compileVariable handles one consecutive run of plain-identifier
// equations: a bare binder always matches, so the leading column is
// simply dropped (its name was already captured by bindVariables, or is
// a wildcard) and compilation continues on the rest with the same
// default.
func (pt *patternTranslator) compileVariable(defaultExpr *Expr, variables []*Expr, equations []equation) *Expr {
	newEquations := make([]equation, len(equations))
	for i, eq := range equations {
		binder := NewBinder(pt.t.strings)
		ident := unwrapAs(eq.first()).Ident
		if !ident.IsWildcard(pt.t.strings) {
			binder.BindID(ident, variables[0])
		}
		result := binder.IntoExprRef(pt.t.allocator, eq.result)
		newEquations[i] = equation{patterns: eq.rest(), result: result}
	}

	var rest []*Expr
	if len(variables) > 1 {
		rest = variables[1:]
	}
	return pt.translate(defaultExpr, rest, newEquations)
}
