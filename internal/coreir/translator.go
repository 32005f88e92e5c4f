package coreir

import "surge/internal/source"

// Translator lowers one typed surface expression tree into a core
// expression, owning the arena every produced node lives in and the
// identifier-replacement map accumulated while merging patterns.
// A Translator is used for exactly one top-level Translate call; it is not
// safe for concurrent use (see batch.go for running many in parallel, one
// per goroutine).
type Translator struct {
	allocator *Allocator
	env       PrimitiveEnv
	strings   *source.Interner

	// identReplacements maps a later-seen duplicate binder name to the
	// canonical (first-seen) name it was merged into. Populated during
	// pattern compilation (match_identifiers.go), consulted by the
	// post-pass fixup (postpass.go).
	identReplacements map[source.StringID]source.StringID

	dummyName source.StringID // the "" symbol used for `_`-style discard bindings
	freshN    int             // counts bind_argN/pattern_N/#N temporaries
}

// NewTranslator creates a Translator over env/strings, ready to translate
// one top-level expression.
func NewTranslator(env PrimitiveEnv, strings *source.Interner) *Translator {
	return &Translator{
		allocator:         NewAllocator(),
		env:               env,
		strings:           strings,
		identReplacements: make(map[source.StringID]source.StringID),
		dummyName:         strings.Intern(""),
	}
}

// Translate lowers expr into a self-owning CoreExpr: translation proper,
// followed by the single-arm-collapse and replacement-map fixup pass
// applied once over the whole produced tree.
func (t *Translator) Translate(expr *SourceExpr) *CoreExpr {
	root := t.TranslateExpr(expr)
	return NewCoreExpr(t.allocator, root)
}

// TranslateExpr is Translate without the CoreExpr wrapper, for callers
// that already own (or will build) the wrapper themselves (batch.go
// translates many expressions against independent allocators and wraps
// each individually).
func (t *Translator) TranslateExpr(expr *SourceExpr) *Expr {
	root := t.translateAlloc(expr)
	return fixupMatches(t.allocator, t.identReplacements, root)
}

func (t *Translator) translateAlloc(expr *SourceExpr) *Expr {
	e := t.translate(expr)
	return t.allocator.AllocExpr(e)
}

// translate peels leading non-recursive let-chains represented directly in
// the AST's own nesting; SourceExpr already nests SrcLet/SrcLetRecursive
// one at a time, so no flattening loop is needed here (the upstream's
// version exists only because its AST groups consecutive ValueBindings).
func (t *Translator) translate(expr *SourceExpr) Expr {
	switch expr.Kind {
	case SrcIdent:
		return t.translateIdent(expr)
	case SrcLiteral:
		d := expr.Data.(SrcLiteralData)
		return Expr{Kind: ExprConst, Span: expr.Span, Data: ConstData{Literal: d.Literal}}
	case SrcApply:
		return t.translateApply(expr)
	case SrcIf:
		return t.translateIf(expr)
	case SrcBlock:
		return t.translateBlock(expr)
	case SrcLambda:
		d := expr.Data.(SrcLambdaData)
		return t.newLambda(expr.Span.Start, d.Name, d.Args, t.translateAlloc(d.Body), expr.Span)
	case SrcProjection:
		d := expr.Data.(SrcProjectionData)
		return t.projectExpr(expr.Span, t.translateAlloc(d.Base), d.Field)
	case SrcRecord:
		return t.translateRecord(expr)
	case SrcTuple:
		return t.translateTuple(expr)
	case SrcArray:
		d := expr.Data.(SrcArrayData)
		args := t.allocator.AllocExprs(len(d.Elems), func(i int) Expr { return t.translate(d.Elems[i]) })
		return Expr{Kind: ExprData, Span: expr.Span, Data: DataExprData{Tag: Identifier{Name: t.dummyName, Type: expr.Type}, Args: args, SpanStart: expr.Span.Start}}
	case SrcDo:
		return t.translateDo(expr)
	case SrcLet:
		return t.translateLet(expr)
	case SrcLetRecursive:
		return t.translateLetRecursive(expr)
	case SrcMatch:
		return t.translateMatch(expr)
	case SrcTransparent:
		d := expr.Data.(SrcTransparentData)
		return t.translate(d.Inner)
	case SrcError:
		return t.errorExpr(expr.Span, "Evaluated an invalid expression")
	default:
		panic(coreirError("translate: unknown SourceExprKind"))
	}
}

func (t *Translator) translateIdent(expr *SourceExpr) Expr {
	d := expr.Data.(SrcIdentData)
	if isConstructorName(t.strings, d.Name.Name) {
		return t.newDataConstructor(d.Name.Type, d.Name, nil, expr.Span)
	}
	name := d.Name.Name
	if canonical, ok := t.identReplacements[name]; ok {
		name = canonical
	}
	return Expr{Kind: ExprIdent, Span: expr.Span, Data: IdentData{Ident: Identifier{Name: name, Type: d.Name.Type}}}
}

// isConstructorName mirrors the upstream's `is_constructor`: a name denotes
// a data constructor iff the last dot-separated segment starts uppercase.
func isConstructorName(strings *source.Interner, name source.StringID) bool {
	s, ok := strings.Lookup(name)
	if !ok || s == "" {
		return false
	}
	last := s
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			last = s[i+1:]
			break
		}
	}
	if last == "" {
		return false
	}
	c := last[0]
	return c >= 'A' && c <= 'Z'
}

func (t *Translator) errorExpr(span source.Span, msg string) Expr {
	errIdent := t.allocator.AllocExpr(Expr{
		Kind: ExprIdent,
		Data: IdentData{Ident: Identifier{Name: t.strings.Intern("@error")}},
	})
	args := t.allocator.AllocExprs(1, func(int) Expr {
		return Expr{Kind: ExprConst, Data: ConstData{Literal: Literal{Kind: LiteralString, String: msg}}}
	})
	return Expr{Kind: ExprCall, Span: span, Data: CallData{Callee: errIdent, Args: args}}
}

func (t *Translator) newTemp(prefix string) source.StringID {
	t.freshN++
	return t.strings.Intern(prefix + itoa(t.freshN))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
