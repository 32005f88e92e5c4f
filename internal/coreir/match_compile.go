package coreir

// equation pairs one match arm's remaining (unconsumed) patterns with the
// already-translated core expression it evaluates to.
type equation struct {
	patterns []*SourcePattern
	result   *Expr
}

func (eq equation) first() *SourcePattern { return eq.patterns[0] }
func (eq equation) rest() []*SourcePattern {
	if len(eq.patterns) == 0 {
		return nil
	}
	return eq.patterns[1:]
}

// cType classifies an equation's leading pattern for the purpose of
// grouping equations into one decision node.
type cType uint8

const (
	cVariable cType = iota
	cConstructor
	cRecord
	cLiteral
)

// varcon classifies a pattern, looking through any `as` wrapper.
func varcon(pat *SourcePattern) cType {
	switch unwrapAs(pat).Kind {
	case SrcPatIdent:
		return cVariable
	case SrcPatRecord, SrcPatTuple:
		return cRecord
	case SrcPatConstructor:
		return cConstructor
	case SrcPatLiteral:
		return cLiteral
	default:
		panic(coreirError("varcon: invalid pattern reached the match compiler"))
	}
}

// patternTranslator drives the nested-pattern-to-decision-tree compiler.
// It shares the owning Translator's allocator, environment, string
// interner and identifier-replacement map.
type patternTranslator struct {
	t *Translator
}

func newPatternTranslator(t *Translator) *patternTranslator {
	return &patternTranslator{t: t}
}

// translateMatch lowers a surface match expression into a one-level Match
// decision tree (possibly nested, one level at a time, through further
// Match nodes).
func (t *Translator) translateMatch(expr *SourceExpr) Expr {
	d := expr.Data.(SrcMatchData)
	scrutinee := t.translateAlloc(d.Scrutinee)

	equations := make([]equation, len(d.Arms))
	for i, arm := range d.Arms {
		equations[i] = equation{
			patterns: []*SourcePattern{arm.Pattern},
			result:   t.translateAlloc(arm.Expr),
		}
	}

	pt := newPatternTranslator(t)
	return pt.translateTop(scrutinee, equations)
}

// translateTop is the pattern compiler's entry point. A non-identifier
// scrutinee is hoisted into a fresh let-binding first, since every
// recursive step needs to reference the scrutinee by a plain identifier.
func (pt *patternTranslator) translateTop(scrutinee *Expr, equations []equation) Expr {
	unmatched := pt.t.allocator.AllocExpr(pt.t.errorExpr(scrutinee.Span, "Unmatched pattern"))

	if scrutinee.Kind == ExprIdent {
		return *pt.translate(unmatched, []*Expr{scrutinee}, equations)
	}

	name := Identifier{Name: pt.t.strings.Intern("match_pattern"), Type: scrutinee.TypeOf(pt.t.env)}
	scrutIdent := pt.t.allocator.AllocExpr(Expr{Kind: ExprIdent, Span: scrutinee.Span, Data: IdentData{Ident: name}})
	body := pt.translate(unmatched, []*Expr{scrutIdent}, equations)

	binding := pt.t.allocator.AllocLetBinding(LetBinding{
		Name:      name,
		Expr:      NewNamedExpr(scrutinee),
		SpanStart: scrutinee.Span.Start,
	})
	return Expr{Kind: ExprLet, Span: scrutinee.Span, Data: LetExprData{Binding: binding, Body: body}}
}

// translate is the recursive core of the pattern compiler. variables holds
// one live scrutinee expression per remaining pattern column; equations'
// patterns line up with variables column-for-column.
func (pt *patternTranslator) translate(defaultExpr *Expr, variables []*Expr, equations []equation) *Expr {
	binder := NewBinder(pt.t.strings)

	if len(variables) == 0 {
		if len(equations) == 0 {
			return binder.IntoExprRef(pt.t.allocator, defaultExpr)
		}
		return binder.IntoExprRef(pt.t.allocator, equations[0].result)
	}

	for _, eq := range equations {
		pt.bindVariables(eq.first(), variables[0], binder)
	}

	groups := groupConsecutive(equations)

	result := defaultExpr
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		result = pt.varconsCompile(result, variables, g.kind, g.equations)
	}

	return binder.IntoExprRef(pt.t.allocator, result)
}

// bindVariables threads an `as`-alias or a record pattern's whole-value
// import through the Binder before the pattern is classified/compiled, so
// the bound name is available to the arm body regardless of which branch
// of the decision tree it ends up in.
func (pt *patternTranslator) bindVariables(pat *SourcePattern, variable *Expr, binder *Binder) {
	switch pat.Kind {
	case SrcPatAs:
		binder.BindID(pat.Ident, variable)
		pt.bindVariables(pat.AsName, variable, binder)
	case SrcPatRecord:
		if pat.ImplicitImport != nil {
			binder.BindID(*pat.ImplicitImport, variable)
		}
	}
}

type equationGroup struct {
	kind      cType
	equations []equation
}

// groupConsecutive splits equations into maximal consecutive runs sharing
// the same leading-pattern classification. This is deliberately not a
// stable partition over the whole list: a later run of the same kind as
// an earlier one starts a new group rather than joining it, so that a
// variable equation sitting between two constructor runs still acts as a
// catch-all only for the equations below it.
func groupConsecutive(equations []equation) []equationGroup {
	if len(equations) == 0 {
		return nil
	}
	var groups []equationGroup
	start := 0
	kind := varcon(equations[0].first())
	for i := 1; i < len(equations); i++ {
		k := varcon(equations[i].first())
		if k != kind {
			groups = append(groups, equationGroup{kind: kind, equations: equations[start:i]})
			start, kind = i, k
		}
	}
	groups = append(groups, equationGroup{kind: kind, equations: equations[start:]})
	return groups
}

// varconsCompile dispatches one consecutive-run group to its kind-specific
// compiler.
func (pt *patternTranslator) varconsCompile(defaultExpr *Expr, variables []*Expr, kind cType, equations []equation) *Expr {
	switch kind {
	case cConstructor:
		return pt.compileConstructor(defaultExpr, variables, equations)
	case cRecord:
		return pt.compileRecord(defaultExpr, variables, equations)
	case cLiteral:
		return pt.compileLiteral(defaultExpr, variables, equations)
	default:
		return pt.compileVariable(defaultExpr, variables, equations)
	}
}

// insertNewVariables produces the scrutinee list for one level deeper: a
// fresh identifier expression per field the merged pattern introduces,
// followed by the columns not consumed by this level.
func (pt *patternTranslator) insertNewVariables(pattern Pattern, variables []*Expr) []*Expr {
	ids := patternIdentifiers(pattern)
	out := make([]*Expr, 0, len(ids)+len(variables)-1)
	for _, id := range ids {
		out = append(out, pt.t.allocator.AllocExpr(Expr{Kind: ExprIdent, Data: IdentData{Ident: id}}))
	}
	if len(variables) > 1 {
		out = append(out, variables[1:]...)
	}
	return out
}
