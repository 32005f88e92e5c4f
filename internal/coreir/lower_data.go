package coreir

import (
	"surge/internal/source"
	"surge/internal/types"
)

// newDataConstructor builds a saturated Data node for id applied to args.
// If id's type expects more arguments than args supplies, the remaining
// parameters are eta-expanded: a fresh lambda binds one fresh `#i`
// identifier per unapplied parameter and wraps the (now saturated) Data
// node.
func (t *Translator) newDataConstructor(exprType types.TypeID, id Identifier, args []Expr, span source.Span) Expr {
	params, result, isFn := t.env.FuncParamsAndResult(id.Type)
	dataType := exprType
	var unapplied []Identifier
	if isFn && len(params) > len(args) {
		dataType = result
		unapplied = make([]Identifier, 0, len(params)-len(args))
		for i := len(args); i < len(params); i++ {
			unapplied = append(unapplied, Identifier{Name: t.strings.Intern("#" + itoa(i)), Type: params[i]})
		}
	} else if isFn {
		dataType = result
	}

	allArgs := make([]Expr, 0, len(args)+len(unapplied))
	allArgs = append(allArgs, args...)
	for _, u := range unapplied {
		allArgs = append(allArgs, Expr{Kind: ExprIdent, Span: span, Data: IdentData{Ident: u}})
	}
	dataArgs := t.allocator.AllocExprs(len(allArgs), func(i int) Expr { return allArgs[i] })
	data := Expr{
		Kind: ExprData,
		Span: span,
		Data: DataExprData{Tag: Identifier{Name: id.Name, Type: dataType}, Args: dataArgs, SpanStart: span.Start},
	}
	if len(unapplied) == 0 {
		return data
	}
	name := Identifier{Name: t.strings.Intern("$" + t.strings.MustLookup(id.Name)), Type: id.Type}
	return t.newLambda(span.Start, name, unapplied, t.allocator.AllocExpr(data), span)
}

// newLambda wraps body in a single-closure recursive Let, returning an
// identifier expression pointing at the closure it just bound. This is how
// every lambda (user-written or eta-expansion-generated) enters the IR:
// there is no standalone "lambda value" node, only named closures.
func (t *Translator) newLambda(pos uint32, name Identifier, args []Identifier, body *Expr, span source.Span) Expr {
	binding := t.allocator.AllocLetBinding(LetBinding{
		Name:      name,
		Expr:      NewNamedRecursive([]Closure{{Pos: pos, Name: name, Args: args, Expr: body}}),
		SpanStart: pos,
	})
	return Expr{
		Kind: ExprLet,
		Span: span,
		Data: LetExprData{Binding: binding, Body: t.allocator.AllocExpr(Expr{Kind: ExprIdent, Span: span, Data: IdentData{Ident: name}})},
	}
}
