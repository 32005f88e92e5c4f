package coreir

import (
	"surge/internal/source"
	"surge/internal/types"
)

// RowField describes one declaration-order field of a record/tuple row.
type RowField struct {
	Name source.StringID
	Type types.TypeID
}

// VariantField describes one declaration-order constructor of a variant
// type: a tag name plus its (possibly empty) argument types.
type VariantField struct {
	Tag  source.StringID
	Args []types.TypeID
}

// TypeEnv is the slice of the upstream type checker's environment the
// translator needs: alias resolution, function-arrow peeling, and
// declaration-order row/variant iteration. It is intentionally narrow —
// the checker and its unification are out of scope for this package.
type TypeEnv interface {
	// ResolveAlias follows alias chains to the underlying type, returning
	// id unchanged if it is not an alias (or alias resolution fails).
	ResolveAlias(id types.TypeID) types.TypeID

	// FuncArrow peels one argument off a function type, returning the
	// remaining (possibly still-function) type. ok is false if id does not
	// resolve to a function type.
	FuncArrow(id types.TypeID) (rest types.TypeID, ok bool)

	// FuncParamsAndResult returns every parameter type and the result type
	// of a function type in one shot, used by data-constructor eta
	// expansion to find how many arguments remain unapplied. ok is false
	// if id does not resolve to a function type (a nullary constructor).
	FuncParamsAndResult(id types.TypeID) (params []types.TypeID, result types.TypeID, ok bool)

	// RowFields returns the declaration-order fields of a record/struct/
	// tuple type.
	RowFields(id types.TypeID) ([]RowField, bool)

	// Variants returns the declaration-order constructors of a variant/
	// union type.
	Variants(id types.TypeID) ([]VariantField, bool)

	// IsHole reports whether id is the inference "hole" placeholder.
	IsHole(id types.TypeID) bool

	ByteType() types.TypeID
	IntType() types.TypeID
	FloatType() types.TypeID
	StringType() types.TypeID
	CharType() types.TypeID
}

// PrimitiveEnv extends TypeEnv with the single extra fact the translator
// needs to desugar `if`: the boolean type and its True/False constructors,
// in that declaration order.
type PrimitiveEnv interface {
	TypeEnv

	// BoolType returns the TypeID of the language's boolean type.
	BoolType() types.TypeID

	// BoolConstructors returns the True and False constructor names, in
	// that order, for BoolType.
	BoolConstructors() (trueName, falseName source.StringID)
}

// SurgeEnv adapts surge's own type interner/string interner into the
// narrow TypeEnv/PrimitiveEnv contract above, giving the translator a
// concrete primitive environment backed by the existing type/symbol
// system rather than a bespoke one.
type SurgeEnv struct {
	Types   *types.Interner
	Strings *source.Interner

	boolType  types.TypeID
	boolTrue  source.StringID
	boolFalse source.StringID
}

// NewSurgeEnv builds an environment view over an existing type/string
// interner pair, registering a boolean union type with True/False tags if
// one has not already been supplied via SetBool.
func NewSurgeEnv(typesIn *types.Interner, strings *source.Interner) *SurgeEnv {
	return &SurgeEnv{Types: typesIn, Strings: strings}
}

// SetBool records the boolean type and its constructor names. Callers
// (normally the checker/prelude loader) must call this before the
// translator lowers any `if` expression.
func (e *SurgeEnv) SetBool(boolType types.TypeID, trueName, falseName source.StringID) {
	e.boolType = boolType
	e.boolTrue = trueName
	e.boolFalse = falseName
}

func (e *SurgeEnv) BoolType() types.TypeID { return e.boolType }

func (e *SurgeEnv) BoolConstructors() (trueName, falseName source.StringID) {
	return e.boolTrue, e.boolFalse
}

func (e *SurgeEnv) ResolveAlias(id types.TypeID) types.TypeID {
	if e == nil || e.Types == nil {
		return id
	}
	seen := make(map[types.TypeID]bool)
	for {
		info, ok := e.Types.AliasInfo(id)
		if !ok || info == nil || seen[id] {
			return id
		}
		seen[id] = true
		id = info.Target
	}
}

func (e *SurgeEnv) FuncArrow(id types.TypeID) (types.TypeID, bool) {
	if e == nil || e.Types == nil {
		return types.NoTypeID, false
	}
	id = e.ResolveAlias(id)
	info, ok := e.Types.FnInfo(id)
	if !ok || info == nil || len(info.Params) == 0 {
		return types.NoTypeID, false
	}
	if len(info.Params) == 1 {
		return info.Result, true
	}
	return e.Types.RegisterFn(info.Params[1:], info.Result), true
}

func (e *SurgeEnv) FuncParamsAndResult(id types.TypeID) ([]types.TypeID, types.TypeID, bool) {
	if e == nil || e.Types == nil {
		return nil, types.NoTypeID, false
	}
	id = e.ResolveAlias(id)
	info, ok := e.Types.FnInfo(id)
	if !ok || info == nil {
		return nil, types.NoTypeID, false
	}
	return info.Params, info.Result, true
}

func (e *SurgeEnv) RowFields(id types.TypeID) ([]RowField, bool) {
	if e == nil || e.Types == nil {
		return nil, false
	}
	id = e.ResolveAlias(id)
	if info, ok := e.Types.StructInfo(id); ok && info != nil {
		out := make([]RowField, 0, len(info.Fields))
		for _, f := range info.Fields {
			out = append(out, RowField{Name: f.Name, Type: f.Type})
		}
		return out, true
	}
	if info, ok := e.Types.TupleInfo(id); ok && info != nil {
		out := make([]RowField, 0, len(info.Elems))
		for i, elemTy := range info.Elems {
			out = append(out, RowField{Name: tuplePositionName(e.Strings, i), Type: elemTy})
		}
		return out, true
	}
	return nil, false
}

func (e *SurgeEnv) Variants(id types.TypeID) ([]VariantField, bool) {
	if e == nil || e.Types == nil {
		return nil, false
	}
	id = e.ResolveAlias(id)
	info, ok := e.Types.UnionInfo(id)
	if !ok || info == nil {
		return nil, false
	}
	out := make([]VariantField, 0, len(info.Members))
	for _, m := range info.Members {
		out = append(out, VariantField{Tag: m.TagName, Args: m.TagArgs})
	}
	return out, true
}

func (e *SurgeEnv) IsHole(id types.TypeID) bool {
	if e == nil || e.Types == nil {
		return id == types.NoTypeID
	}
	_, ok := e.Types.Lookup(id)
	return id == types.NoTypeID || !ok
}

func (e *SurgeEnv) ByteType() types.TypeID {
	return e.intern(types.MakeUint(types.Width8))
}
func (e *SurgeEnv) IntType() types.TypeID {
	return e.intern(types.MakeInt(types.WidthAny))
}
func (e *SurgeEnv) FloatType() types.TypeID {
	return e.intern(types.MakeFloat(types.WidthAny))
}
func (e *SurgeEnv) StringType() types.TypeID {
	return e.internKind(types.KindString)
}
func (e *SurgeEnv) CharType() types.TypeID {
	return e.internKind(types.KindUint) // char is a scalar-value-carrying uint in surge's numeric model
}

func (e *SurgeEnv) intern(t types.Type) types.TypeID {
	if e == nil || e.Types == nil {
		return types.NoTypeID
	}
	return e.Types.Intern(t)
}

func (e *SurgeEnv) internKind(k types.Kind) types.TypeID {
	return e.intern(types.Type{Kind: k})
}

// tuplePositionName mints the positional field name ("0", "1", ...) used
// when a tuple type is treated as a record keyed by position.
func tuplePositionName(strings *source.Interner, i int) source.StringID {
	if strings == nil {
		return source.NoStringID
	}
	return strings.Intern(positionDigits(i))
}

func positionDigits(i int) string {
	if i == 0 {
		return "0"
	}
	digits := make([]byte, 0, 4)
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
