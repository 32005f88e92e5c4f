package coreir

import "surge/internal/source"

// fixupMatches is the translator's final pass: it rewrites every Ident
// reference through the identifier-replacement map
// the pattern compiler accumulated, and collapses any Match that still
// consists of a single Ident alternative matched against an Ident
// scrutinee into its body, threading the collapsed binding into the
// replacement map so downstream Ident references pick it up too. The pass
// runs to a fixed point per node: a collapsed Match's body is re-walked
// before the caller ever sees it.
func fixupMatches(allocator *Allocator, replacements map[source.StringID]source.StringID, root *Expr) *Expr {
	rewritten, changed := fixupExpr(allocator, replacements, *root)
	if !changed {
		return root
	}
	return allocator.AllocExpr(rewritten)
}

// resolveReplacement follows a (necessarily short, acyclic) chain of
// recorded replacements to its canonical name.
func resolveReplacement(replacements map[source.StringID]source.StringID, name source.StringID) (source.StringID, bool) {
	canonical, ok := replacements[name]
	if !ok {
		return name, false
	}
	seen := map[source.StringID]bool{name: true}
	for !seen[canonical] {
		seen[canonical] = true
		next, ok := replacements[canonical]
		if !ok {
			break
		}
		canonical = next
	}
	return canonical, true
}

func fixupExpr(allocator *Allocator, replacements map[source.StringID]source.StringID, e Expr) (Expr, bool) {
	switch e.Kind {
	case ExprConst:
		return e, false

	case ExprIdent:
		d := e.Data.(IdentData)
		canonical, changed := resolveReplacement(replacements, d.Ident.Name)
		if !changed {
			return e, false
		}
		return Expr{Kind: ExprIdent, Span: e.Span, Data: IdentData{Ident: Identifier{Name: canonical, Type: d.Ident.Type}}}, true

	case ExprCall:
		d := e.Data.(CallData)
		callee, calleeChanged := fixupExprPtr(allocator, replacements, d.Callee)
		args, argsChanged := fixupExprSlice(allocator, replacements, d.Args)
		if !calleeChanged && !argsChanged {
			return e, false
		}
		return Expr{Kind: ExprCall, Span: e.Span, Data: CallData{Callee: callee, Args: args}}, true

	case ExprData:
		d := e.Data.(DataExprData)
		args, changed := fixupExprSlice(allocator, replacements, d.Args)
		if !changed {
			return e, false
		}
		return Expr{Kind: ExprData, Span: e.Span, Data: DataExprData{Tag: d.Tag, Args: args, SpanStart: d.SpanStart}}, true

	case ExprLet:
		return fixupLet(allocator, replacements, e)

	case ExprMatch:
		return fixupMatch(allocator, replacements, e)

	default:
		panic(coreirError("fixupMatches: unknown expr kind"))
	}
}

func fixupExprPtr(allocator *Allocator, replacements map[source.StringID]source.StringID, p *Expr) (*Expr, bool) {
	if p == nil {
		return p, false
	}
	r, changed := fixupExpr(allocator, replacements, *p)
	if !changed {
		return p, false
	}
	return allocator.AllocExpr(r), true
}

func fixupExprSlice(allocator *Allocator, replacements map[source.StringID]source.StringID, s []Expr) ([]Expr, bool) {
	return MergeSlice(s, func(_ int, orig Expr) (Expr, bool) {
		return fixupExpr(allocator, replacements, orig)
	})
}

func fixupLet(allocator *Allocator, replacements map[source.StringID]source.StringID, e Expr) (Expr, bool) {
	d := e.Data.(LetExprData)
	binding, bindingChanged := fixupBinding(allocator, replacements, d.Binding)
	body, bodyChanged := fixupExprPtr(allocator, replacements, d.Body)
	if !bindingChanged && !bodyChanged {
		return e, false
	}
	return Expr{Kind: ExprLet, Span: e.Span, Data: LetExprData{Binding: binding, Body: body}}, true
}

func fixupBinding(allocator *Allocator, replacements map[source.StringID]source.StringID, b *LetBinding) (*LetBinding, bool) {
	named, changed := fixupNamed(allocator, replacements, b.Expr)
	if !changed {
		return b, false
	}
	return allocator.AllocLetBinding(LetBinding{Name: b.Name, Expr: named, SpanStart: b.SpanStart}), true
}

func fixupNamed(allocator *Allocator, replacements map[source.StringID]source.StringID, n Named) (Named, bool) {
	switch n.Kind {
	case NamedExpr:
		e, changed := fixupExprPtr(allocator, replacements, n.Expr)
		if !changed {
			return n, false
		}
		return NewNamedExpr(e), true
	case NamedRecursive:
		closures, changed := MergeSlice(n.Recursive, func(_ int, c Closure) (Closure, bool) {
			body, changed := fixupExprPtr(allocator, replacements, c.Expr)
			if !changed {
				return c, false
			}
			return Closure{Pos: c.Pos, Name: c.Name, Args: c.Args, Expr: body}, true
		})
		if !changed {
			return n, false
		}
		return NewNamedRecursive(closures), true
	default:
		return n, false
	}
}

// fixupMatch rewrites a Match's scrutinee/alternatives, then — after that
// rewrite — checks whether the result is collapsible: a single alternative
// with an Ident pattern, matched against an Ident scrutinee. A collapsible
// Match disappears entirely: its body replaces it (re-walked so further
// collapses downstream are picked up), and the pattern's binder name is
// recorded as an alias for the scrutinee's name so any reference still
// using it gets rewritten too.
func fixupMatch(allocator *Allocator, replacements map[source.StringID]source.StringID, e Expr) (Expr, bool) {
	d := e.Data.(MatchData)
	scrutinee, scrutChanged := fixupExprPtr(allocator, replacements, d.Scrutinee)
	alts, altsChanged := MergeSlice(d.Alternatives, func(_ int, alt Alternative) (Alternative, bool) {
		body, changed := fixupExprPtr(allocator, replacements, alt.Expr)
		if !changed {
			return alt, false
		}
		return Alternative{Pattern: alt.Pattern, Expr: body}, true
	})
	if !altsChanged {
		alts = d.Alternatives
	}

	if scrutinee.Kind == ExprIdent && len(alts) == 1 && alts[0].Pattern.Kind == PatternIdent {
		scrutID := scrutinee.Data.(IdentData).Ident
		patID := alts[0].Pattern.Ident
		if patID.Name != scrutID.Name {
			replacements[patID.Name] = scrutID.Name
		}
		body := *alts[0].Expr
		rewritten, changed := fixupExpr(allocator, replacements, body)
		if changed {
			return rewritten, true
		}
		return body, true
	}

	if !scrutChanged && !altsChanged {
		return e, false
	}
	return Expr{Kind: ExprMatch, Span: e.Span, Data: MatchData{Scrutinee: scrutinee, Alternatives: alts}}, true
}
