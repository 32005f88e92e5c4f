package coreir

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"surge/internal/source"
)

// The wire* types below mirror Expr/Pattern/LetBinding with every interface
// field (ExprData, Named) replaced by a Kind-tagged flat struct, the way a
// msgpack codec needs: vmihailenco/msgpack's struct encoder has no way to
// pick a concrete type for an `interface{}` field without a registered
// type-switch of its own, so the translator's tagged-union shapes are
// flattened here rather than serialized directly. Only the structural
// identity of a CoreExpr survives a round trip through this file — checker
// TypeIDs are local to one in-process type interner and are dropped, the
// same way the binary form is documented as test/debug-only in DESIGN.md.

type wireLiteral struct {
	Kind   LiteralKind
	Byte   byte
	Int    int64
	Float  float64
	String string
	Char   rune
}

func toWireLiteral(l Literal) wireLiteral {
	return wireLiteral{Kind: l.Kind, Byte: l.Byte, Int: l.Int, Float: l.Float, String: l.String, Char: l.Char}
}

func fromWireLiteral(w wireLiteral) Literal {
	return Literal{Kind: w.Kind, Byte: w.Byte, Int: w.Int, Float: w.Float, String: w.String, Char: w.Char}
}

type wireIdentifier struct {
	Name uint32
}

func toWireIdent(id Identifier) wireIdentifier { return wireIdentifier{Name: uint32(id.Name)} }

func fromWireIdent(w wireIdentifier) Identifier {
	return Identifier{Name: source.StringID(w.Name)}
}

type wireRecordField struct {
	Field  wireIdentifier
	Rename uint32
}

type wirePattern struct {
	Kind         PatternKind
	Tag          wireIdentifier
	Fields       []wireIdentifier
	RecordFields []wireRecordField
	Ident        wireIdentifier
	Literal      wireLiteral
}

func toWirePattern(p Pattern) wirePattern {
	w := wirePattern{Kind: p.Kind, Tag: toWireIdent(p.Tag), Ident: toWireIdent(p.Ident), Literal: toWireLiteral(p.Literal)}
	for _, f := range p.Fields {
		w.Fields = append(w.Fields, toWireIdent(f))
	}
	for _, f := range p.RecordFields {
		w.RecordFields = append(w.RecordFields, wireRecordField{Field: toWireIdent(f.Field), Rename: uint32(f.Rename)})
	}
	return w
}

func fromWirePattern(w wirePattern) Pattern {
	p := Pattern{Kind: w.Kind, Tag: fromWireIdent(w.Tag), Ident: fromWireIdent(w.Ident), Literal: fromWireLiteral(w.Literal)}
	for _, f := range w.Fields {
		p.Fields = append(p.Fields, fromWireIdent(f))
	}
	for _, f := range w.RecordFields {
		p.RecordFields = append(p.RecordFields, RecordField{Field: fromWireIdent(f.Field), Rename: source.StringID(f.Rename)})
	}
	return p
}

type wireAlternative struct {
	Pattern wirePattern
	Expr    *wireExpr
}

type wireClosure struct {
	Pos  uint32
	Name wireIdentifier
	Args []wireIdentifier
	Expr *wireExpr
}

type wireNamed struct {
	Kind      NamedKind
	Expr      *wireExpr
	Recursive []wireClosure
}

type wireLetBinding struct {
	Name      wireIdentifier
	Expr      wireNamed
	SpanStart uint32
}

// wireExpr flattens every ExprKind's payload into one struct; only the
// fields relevant to Kind are populated.
type wireExpr struct {
	Kind ExprKind
	Span source.Span

	Literal wireLiteral    // ExprConst
	Ident   wireIdentifier // ExprIdent

	Callee *wireExpr  // ExprCall
	Args   []wireExpr // ExprCall, ExprData

	Tag       wireIdentifier // ExprData
	SpanStart uint32         // ExprData

	Binding *wireLetBinding // ExprLet
	Body    *wireExpr       // ExprLet

	Scrutinee    *wireExpr         // ExprMatch
	Alternatives []wireAlternative // ExprMatch
}

func toWireExpr(e *Expr) *wireExpr {
	if e == nil {
		return nil
	}
	w := &wireExpr{Kind: e.Kind, Span: e.Span}
	switch e.Kind {
	case ExprConst:
		w.Literal = toWireLiteral(e.Data.(ConstData).Literal)
	case ExprIdent:
		w.Ident = toWireIdent(e.Data.(IdentData).Ident)
	case ExprCall:
		d := e.Data.(CallData)
		w.Callee = toWireExpr(d.Callee)
		w.Args = toWireExprs(d.Args)
	case ExprData:
		d := e.Data.(DataExprData)
		w.Tag = toWireIdent(d.Tag)
		w.Args = toWireExprs(d.Args)
		w.SpanStart = d.SpanStart
	case ExprLet:
		d := e.Data.(LetExprData)
		w.Binding = toWireLetBinding(d.Binding)
		w.Body = toWireExpr(d.Body)
	case ExprMatch:
		d := e.Data.(MatchData)
		w.Scrutinee = toWireExpr(d.Scrutinee)
		for _, alt := range d.Alternatives {
			w.Alternatives = append(w.Alternatives, wireAlternative{Pattern: toWirePattern(alt.Pattern), Expr: toWireExpr(alt.Expr)})
		}
	}
	return w
}

func toWireExprs(es []Expr) []wireExpr {
	if es == nil {
		return nil
	}
	out := make([]wireExpr, len(es))
	for i := range es {
		out[i] = *toWireExpr(&es[i])
	}
	return out
}

func toWireLetBinding(lb *LetBinding) *wireLetBinding {
	if lb == nil {
		return nil
	}
	w := &wireLetBinding{Name: toWireIdent(lb.Name), SpanStart: lb.SpanStart}
	w.Expr.Kind = lb.Expr.Kind
	w.Expr.Expr = toWireExpr(lb.Expr.Expr)
	for _, c := range lb.Expr.Recursive {
		wc := wireClosure{Pos: c.Pos, Name: toWireIdent(c.Name), Expr: toWireExpr(c.Expr)}
		for _, a := range c.Args {
			wc.Args = append(wc.Args, toWireIdent(a))
		}
		w.Expr.Recursive = append(w.Expr.Recursive, wc)
	}
	return w
}

func fromWireExpr(w *wireExpr, alloc *Allocator) *Expr {
	if w == nil {
		return nil
	}
	e := Expr{Kind: w.Kind, Span: w.Span}
	switch w.Kind {
	case ExprConst:
		e.Data = ConstData{Literal: fromWireLiteral(w.Literal)}
	case ExprIdent:
		e.Data = IdentData{Ident: fromWireIdent(w.Ident)}
	case ExprCall:
		e.Data = CallData{Callee: fromWireExpr(w.Callee, alloc), Args: fromWireExprs(w.Args, alloc)}
	case ExprData:
		e.Data = DataExprData{Tag: fromWireIdent(w.Tag), Args: fromWireExprs(w.Args, alloc), SpanStart: w.SpanStart}
	case ExprLet:
		e.Data = LetExprData{Binding: fromWireLetBinding(w.Binding, alloc), Body: fromWireExpr(w.Body, alloc)}
	case ExprMatch:
		alts := make([]Alternative, len(w.Alternatives))
		for i, wa := range w.Alternatives {
			alts[i] = Alternative{Pattern: fromWirePattern(wa.Pattern), Expr: fromWireExpr(wa.Expr, alloc)}
		}
		e.Data = MatchData{Scrutinee: fromWireExpr(w.Scrutinee, alloc), Alternatives: alts}
	}
	return alloc.AllocExpr(e)
}

func fromWireExprs(ws []wireExpr, alloc *Allocator) []Expr {
	if ws == nil {
		return nil
	}
	out := make([]Expr, len(ws))
	for i := range ws {
		out[i] = *fromWireExpr(&ws[i], alloc)
	}
	return out
}

func fromWireLetBinding(w *wireLetBinding, alloc *Allocator) *LetBinding {
	if w == nil {
		return nil
	}
	named := Named{Kind: w.Expr.Kind, Expr: fromWireExpr(w.Expr.Expr, alloc)}
	for _, wc := range w.Expr.Recursive {
		c := Closure{Pos: wc.Pos, Name: fromWireIdent(wc.Name), Expr: fromWireExpr(wc.Expr, alloc)}
		for _, a := range wc.Args {
			c.Args = append(c.Args, fromWireIdent(a))
		}
		named.Recursive = append(named.Recursive, c)
	}
	return alloc.AllocLetBinding(LetBinding{Name: fromWireIdent(w.Name), Expr: named, SpanStart: w.SpanStart})
}

// wireFile is the top-level envelope: the interned string table alongside
// the tree, so a CoreExpr can be rebuilt in a fresh process without access
// to the producing process's string.Interner.
type wireFile struct {
	Strings []string
	Root    *wireExpr
}

// Serialize encodes expr (and the strings its names were interned from)
// into msgpack bytes.
func Serialize(strings *source.Interner, expr *CoreExpr) ([]byte, error) {
	w := wireFile{Strings: strings.Snapshot(), Root: toWireExpr(expr.Expr())}
	data, err := msgpack.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("coreir: serialize: %w", err)
	}
	return data, nil
}

// Deserialize decodes bytes produced by Serialize, returning a fresh
// Interner carrying the same string-to-StringID assignment as the
// producing process and the CoreExpr rebuilt over a new Allocator.
func Deserialize(data []byte) (*source.Interner, *CoreExpr, error) {
	var w wireFile
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, nil, fmt.Errorf("coreir: deserialize: %w", err)
	}
	strings := source.NewInterner()
	for _, s := range w.Strings {
		strings.Intern(s)
	}
	alloc := NewAllocator()
	root := fromWireExpr(w.Root, alloc)
	return strings, NewCoreExpr(alloc, root), nil
}
