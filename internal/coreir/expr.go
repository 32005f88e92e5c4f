package coreir

import (
	"fmt"

	"surge/internal/source"
)

// ExprKind enumerates the six node shapes of the core IR.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	// ExprConst is a literal constant.
	ExprConst
	// ExprIdent is a variable reference.
	ExprIdent
	// ExprCall is a saturated function application.
	ExprCall
	// ExprData is a saturated data-constructor (or tuple/record) application.
	ExprData
	// ExprLet introduces one binding (or a mutually-recursive group) around a body.
	ExprLet
	// ExprMatch discriminates a scrutinee against one or more one-level patterns.
	ExprMatch
)

func (k ExprKind) String() string {
	switch k {
	case ExprConst:
		return "Const"
	case ExprIdent:
		return "Ident"
	case ExprCall:
		return "Call"
	case ExprData:
		return "Data"
	case ExprLet:
		return "Let"
	case ExprMatch:
		return "Match"
	default:
		return fmt.Sprintf("ExprKind(%d)", k)
	}
}

// ExprData is the kind-specific payload of an Expr, split out the same way
// internal/hir's ExprData is, so Kind always implies which concrete *Data
// type Data holds.
type ExprData interface{ exprData() }

// ConstData backs ExprConst.
type ConstData struct{ Literal Literal }

func (ConstData) exprData() {}

// IdentData backs ExprIdent.
type IdentData struct{ Ident Identifier }

func (IdentData) exprData() {}

// CallData backs ExprCall. Args is a contiguous, arena-owned sequence of
// length >= 1 (invariant enforced by the translator, never by this type).
type CallData struct {
	Callee *Expr
	Args   []Expr
}

func (CallData) exprData() {}

// DataExprData backs ExprData: a saturated data-constructor application.
// Tuple and record construction reuse this shape with SentinelTag as Tag.
type DataExprData struct {
	Tag       Identifier
	Args      []Expr
	SpanStart uint32
}

func (DataExprData) exprData() {}

// LetExprData backs ExprLet.
type LetExprData struct {
	Binding *LetBinding
	Body    *Expr
}

func (LetExprData) exprData() {}

// MatchData backs ExprMatch. Alternatives is non-empty; every pattern in
// it is exactly one level deep.
type MatchData struct {
	Scrutinee    *Expr
	Alternatives []Alternative
}

func (MatchData) exprData() {}

// Expr is one node of the core IR. All nodes born from one Translate call
// are owned by a single Arena and are immutable once built.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Data ExprData
}

// SpanOf returns the node's source span. Spans are computed once at
// construction time (Call: callee start to last-arg end; Data: span start
// to last-arg end; Let: binding's span-start to body's end; Match:
// scrutinee start to last-alternative's result end) rather than recomputed
// on every access, since nodes never mutate after construction.
func (e *Expr) SpanOf() source.Span {
	if e == nil {
		return source.Span{}
	}
	return e.Span
}

// AsConst returns the ConstData payload and true if Kind == ExprConst.
func (e *Expr) AsConst() (ConstData, bool) {
	if e == nil || e.Kind != ExprConst {
		return ConstData{}, false
	}
	return e.Data.(ConstData), true
}

// AsIdent returns the IdentData payload and true if Kind == ExprIdent.
func (e *Expr) AsIdent() (IdentData, bool) {
	if e == nil || e.Kind != ExprIdent {
		return IdentData{}, false
	}
	return e.Data.(IdentData), true
}

// AsCall returns the CallData payload and true if Kind == ExprCall.
func (e *Expr) AsCall() (CallData, bool) {
	if e == nil || e.Kind != ExprCall {
		return CallData{}, false
	}
	return e.Data.(CallData), true
}

// AsData returns the DataExprData payload and true if Kind == ExprData.
func (e *Expr) AsData() (DataExprData, bool) {
	if e == nil || e.Kind != ExprData {
		return DataExprData{}, false
	}
	return e.Data.(DataExprData), true
}

// AsLet returns the LetExprData payload and true if Kind == ExprLet.
func (e *Expr) AsLet() (LetExprData, bool) {
	if e == nil || e.Kind != ExprLet {
		return LetExprData{}, false
	}
	return e.Data.(LetExprData), true
}

// AsMatch returns the MatchData payload and true if Kind == ExprMatch.
func (e *Expr) AsMatch() (MatchData, bool) {
	if e == nil || e.Kind != ExprMatch {
		return MatchData{}, false
	}
	return e.Data.(MatchData), true
}

// SentinelTag is the reserved empty-name identifier used as the tag of
// tuple and record Data nodes.
var SentinelTag = Identifier{}
