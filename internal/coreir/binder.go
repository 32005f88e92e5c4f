package coreir

import (
	"fmt"

	"surge/internal/source"
	"surge/internal/types"
)

// Binder is a scoped accumulator used while lowering record construction
// and do-notation: every call to Bind/BindID remembers a `let` to be
// spliced in later, in the exact order it was requested. IntoExpr then
// wraps a final body in `let b0 = e0 in let b1 = e1 in ... body`,
// outermost binding first — preserving source evaluation order regardless
// of what order the final expression ends up referencing the bindings in.
type Binder struct {
	bindings []LetBinding
	strings  *source.Interner
}

// NewBinder creates an empty Binder that mints fresh names through strings.
func NewBinder(strings *source.Interner) *Binder {
	return &Binder{strings: strings}
}

// Bind remembers `let bind_argN = expr` and returns an identifier
// expression referring to it. N is the binder's current insertion count.
func (b *Binder) Bind(expr *Expr, typ types.TypeID) Expr {
	name := Identifier{
		Name: b.strings.Intern(fmt.Sprintf("bind_arg%d", len(b.bindings))),
		Type: typ,
	}
	return b.BindID(name, expr)
}

// BindID is Bind but with a caller-chosen name — used for `x@pattern`
// aliases and implicit-import record fields, where the bound name is
// meaningful rather than synthetic.
func (b *Binder) BindID(name Identifier, expr *Expr) Expr {
	span := expr.SpanOf()
	b.bindings = append(b.bindings, LetBinding{
		Name:      name,
		Expr:      NewNamedExpr(expr),
		SpanStart: span.Start,
	})
	return Expr{Kind: ExprIdent, Span: span, Data: IdentData{Ident: name}}
}

// Empty reports whether any bindings have been accumulated.
func (b *Binder) Empty() bool { return b == nil || len(b.bindings) == 0 }

// IntoExpr splices every remembered binding around body, outermost-first,
// in original insertion order.
func (b *Binder) IntoExpr(allocator *Allocator, body Expr) Expr {
	result := body
	for i := len(b.bindings) - 1; i >= 0; i-- {
		bind := b.bindings[i]
		bodyPtr := allocator.AllocExpr(result)
		span := source.Span{File: bodyPtr.Span.File, Start: bind.SpanStart, End: bodyPtr.Span.End}
		result = Expr{
			Kind: ExprLet,
			Span: span,
			Data: LetExprData{Binding: allocator.AllocLetBinding(bind), Body: bodyPtr},
		}
	}
	return result
}

// IntoExprRef is IntoExpr but returns an arena-owned pointer to the result,
// for call sites that need a *Expr rather than a value (e.g. as a Match
// scrutinee or Call argument root).
func (b *Binder) IntoExprRef(allocator *Allocator, body *Expr) *Expr {
	if b.Empty() {
		return body
	}
	result := b.IntoExpr(allocator, *body)
	return allocator.AllocExpr(result)
}
