package coreir

import (
	"surge/internal/source"
	"surge/internal/types"
)

// SourceExprKind enumerates the typed-AST node shapes the translator
// accepts as input: the narrow slice of a typed surface-syntax expression
// tree (produced upstream by the parser/checker) the lowering pass needs
// to walk. It is not itself part of the core IR and carries no
// arena/immutability invariants of its own.
type SourceExprKind uint8

const (
	SrcInvalid SourceExprKind = iota
	SrcIdent
	SrcLiteral
	SrcApply
	SrcIf
	SrcBlock
	SrcLambda
	SrcProjection
	SrcRecord
	SrcTuple
	SrcArray
	SrcDo
	SrcLet
	SrcLetRecursive
	SrcMatch
	SrcTransparent // type annotation / macro expansion: recurse on Inner
	SrcError
)

// SourceExpr is one node of the typed input tree.
type SourceExpr struct {
	Kind SourceExprKind
	Span source.Span
	Type types.TypeID
	Data SourceExprData
}

// SourceExprData is the kind-specific payload of a SourceExpr.
type SourceExprData interface{ sourceExprData() }

type SrcIdentData struct{ Name Identifier }

func (SrcIdentData) sourceExprData() {}

type SrcLiteralData struct{ Literal Literal }

func (SrcLiteralData) sourceExprData() {}

// SrcApplyData is a function (or constructor) application. ImplicitArgs
// precede Args in source evaluation order, matching the upstream's
// `implicit_args.chain(args)`.
type SrcApplyData struct {
	Callee       *SourceExpr
	ImplicitArgs []*SourceExpr
	Args         []*SourceExpr
}

func (SrcApplyData) sourceExprData() {}

type SrcIfData struct{ Cond, Then, Else *SourceExpr }

func (SrcIfData) sourceExprData() {}

// SrcBlockData is a `;`-separated sequence; only the last expression's
// value is observable.
type SrcBlockData struct{ Exprs []*SourceExpr }

func (SrcBlockData) sourceExprData() {}

type SrcLambdaData struct {
	Name Identifier // identity used for the generated recursive closure
	Args []Identifier
	Body *SourceExpr
}

func (SrcLambdaData) sourceExprData() {}

type SrcProjectionData struct {
	Base  *SourceExpr
	Field Identifier
}

func (SrcProjectionData) sourceExprData() {}

// SrcRecordFieldExpr is one `name = value` (or shorthand `name`) entry of a
// record-construction expression.
type SrcRecordFieldExpr struct {
	Name  Identifier
	Value *SourceExpr // nil for field-punning shorthand (`{ name }`)
}

// SrcRecordData is record construction with an optional base update
// (`{ base with f1 = e1, ... }`).
type SrcRecordData struct {
	Base   *SourceExpr // nil when there is no `with` clause
	Fields []SrcRecordFieldExpr
}

func (SrcRecordData) sourceExprData() {}

type SrcTupleData struct{ Elems []*SourceExpr }

func (SrcTupleData) sourceExprData() {}

type SrcArrayData struct{ Elems []*SourceExpr }

func (SrcArrayData) sourceExprData() {}

// SrcDoData is `do x <- bound; body`. FlatMap is the identifier the
// checker resolved for this node's monad; HasFlatMap false is a contract
// violation.
type SrcDoData struct {
	Binder     *SourcePattern // nil means no binder (`do bound; body`)
	Bound      *SourceExpr
	Body       *SourceExpr
	FlatMap    Identifier
	HasFlatMap bool
}

func (SrcDoData) sourceExprData() {}

// SrcLetData is one non-recursive binding wrapping Body; chained lets are
// represented as nested SrcLet nodes.
type SrcLetData struct {
	Binder *SourcePattern
	Args   []Identifier // non-empty for a function binding (`let f x = ...`)
	Value  *SourceExpr
	Body   *SourceExpr
}

func (SrcLetData) sourceExprData() {}

// SrcRecClosureBinding is one binding of a mutually-recursive let-group.
type SrcRecClosureBinding struct {
	Pos  uint32
	Name *SourcePattern // must resolve to PatternIdent; anything else is a contract violation
	Args []Identifier
	Expr *SourceExpr
}

type SrcLetRecursiveData struct {
	Bindings []SrcRecClosureBinding
	Body     *SourceExpr
}

func (SrcLetRecursiveData) sourceExprData() {}

type SrcMatchArm struct {
	Pattern *SourcePattern
	Expr    *SourceExpr
}

type SrcMatchData struct {
	Scrutinee *SourceExpr
	Arms      []SrcMatchArm
}

func (SrcMatchData) sourceExprData() {}

type SrcTransparentData struct{ Inner *SourceExpr }

func (SrcTransparentData) sourceExprData() {}

type SrcErrorData struct{}

func (SrcErrorData) sourceExprData() {}

// SourcePatternKind enumerates the (arbitrarily nested) shapes a surface
// pattern can take before the pattern-match compiler flattens them.
type SourcePatternKind uint8

const (
	SrcPatInvalid SourcePatternKind = iota
	SrcPatIdent
	SrcPatAs
	SrcPatConstructor
	SrcPatRecord
	SrcPatTuple
	SrcPatLiteral
	SrcPatError
)

// SrcPatRecordField is one field of a record pattern; Value is nil for the
// `{ x }` shorthand, which binds the field's own name.
type SrcPatRecordField struct {
	Name  Identifier
	Value *SourcePattern
}

// SourcePattern is a surface pattern, possibly nested arbitrarily deep.
type SourcePattern struct {
	Kind SourcePatternKind
	Span source.Span
	Type types.TypeID

	Ident Identifier // SrcPatIdent

	AsName *SourcePattern // SrcPatAs: inner pattern (the bound name is Ident)

	Tag         Identifier       // SrcPatConstructor
	SubPatterns []*SourcePattern // SrcPatConstructor args, or SrcPatTuple elems

	Fields         []SrcPatRecordField // SrcPatRecord
	ImplicitImport *Identifier          // SrcPatRecord: non-nil names the whole-record binding

	Literal Literal // SrcPatLiteral
}
