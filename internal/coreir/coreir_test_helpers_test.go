package coreir

import (
	"surge/internal/source"
	"surge/internal/types"
)

// fakeEnv is a minimal, hand-built PrimitiveEnv double for tests: a plain
// map-backed lookup table, no dependency on the real type interner. Type
// IDs are arbitrary small integers the test itself assigns and looks up
// again, the same way mir_test builds mir.Func literals directly rather
// than going through a real compiler pipeline.
type fakeEnv struct {
	strings *source.Interner

	boolType  types.TypeID
	boolTrue  source.StringID
	boolFalse source.StringID

	rowFields map[types.TypeID][]RowField
	variants  map[types.TypeID][]VariantField
	fnParams  map[types.TypeID][]types.TypeID
	fnResult  map[types.TypeID]types.TypeID

	byteType, intType, floatType, stringType, charType types.TypeID
}

func newFakeEnv(strings *source.Interner) *fakeEnv {
	return &fakeEnv{
		strings:   strings,
		rowFields: make(map[types.TypeID][]RowField),
		variants:  make(map[types.TypeID][]VariantField),
		fnParams:  make(map[types.TypeID][]types.TypeID),
		fnResult:  make(map[types.TypeID]types.TypeID),
		byteType:   101,
		intType:    102,
		floatType:  103,
		stringType: 104,
		charType:   105,
	}
}

func (e *fakeEnv) ResolveAlias(id types.TypeID) types.TypeID { return id }

func (e *fakeEnv) FuncArrow(id types.TypeID) (types.TypeID, bool) {
	params, ok := e.fnParams[id]
	if !ok || len(params) == 0 {
		return types.NoTypeID, false
	}
	if len(params) == 1 {
		return e.fnResult[id], true
	}
	// Synthesize a fresh function TypeID for the remaining params, keyed by
	// reusing id+1000 so repeated calls in one test are stable enough.
	rest := id + 1000
	e.fnParams[rest] = params[1:]
	e.fnResult[rest] = e.fnResult[id]
	return rest, true
}

func (e *fakeEnv) FuncParamsAndResult(id types.TypeID) ([]types.TypeID, types.TypeID, bool) {
	params, ok := e.fnParams[id]
	if !ok {
		return nil, types.NoTypeID, false
	}
	return params, e.fnResult[id], true
}

func (e *fakeEnv) RowFields(id types.TypeID) ([]RowField, bool) {
	fields, ok := e.rowFields[id]
	return fields, ok
}

func (e *fakeEnv) Variants(id types.TypeID) ([]VariantField, bool) {
	vs, ok := e.variants[id]
	return vs, ok
}

func (e *fakeEnv) IsHole(id types.TypeID) bool { return id == types.NoTypeID }

func (e *fakeEnv) ByteType() types.TypeID   { return e.byteType }
func (e *fakeEnv) IntType() types.TypeID    { return e.intType }
func (e *fakeEnv) FloatType() types.TypeID  { return e.floatType }
func (e *fakeEnv) StringType() types.TypeID { return e.stringType }
func (e *fakeEnv) CharType() types.TypeID   { return e.charType }

func (e *fakeEnv) BoolType() types.TypeID { return e.boolType }
func (e *fakeEnv) BoolConstructors() (source.StringID, source.StringID) {
	return e.boolTrue, e.boolFalse
}

// srcIdent builds a bare identifier SourceExpr.
func srcIdent(strings *source.Interner, name string, typ types.TypeID) *SourceExpr {
	return &SourceExpr{Kind: SrcIdent, Type: typ, Data: SrcIdentData{Ident: Identifier{Name: strings.Intern(name), Type: typ}}}
}

// srcLiteralInt builds an int-literal SourceExpr.
func srcLiteralInt(env *fakeEnv, v int64) *SourceExpr {
	return &SourceExpr{Kind: SrcLiteral, Type: env.intType, Data: SrcLiteralData{Literal: Literal{Kind: LiteralInt, Int: v}}}
}

// srcPatIdent builds a plain identifier-binder SourcePattern.
func srcPatIdent(strings *source.Interner, name string, typ types.TypeID) *SourcePattern {
	return &SourcePattern{Kind: SrcPatIdent, Type: typ, Ident: Identifier{Name: strings.Intern(name), Type: typ}}
}

// srcPatWildcard builds the pure wildcard pattern "_".
func srcPatWildcard(strings *source.Interner, typ types.TypeID) *SourcePattern {
	return srcPatIdent(strings, "_", typ)
}

// srcPatCtor builds a constructor pattern over subPatterns.
func srcPatCtor(strings *source.Interner, tagName string, tagType types.TypeID, sub ...*SourcePattern) *SourcePattern {
	return &SourcePattern{
		Kind:        SrcPatConstructor,
		Type:        tagType,
		Tag:         Identifier{Name: strings.Intern(tagName), Type: tagType},
		SubPatterns: sub,
	}
}

// srcPatLiteralInt builds an int-literal pattern.
func srcPatLiteralInt(env *fakeEnv, v int64) *SourcePattern {
	return &SourcePattern{Kind: SrcPatLiteral, Type: env.intType, Literal: Literal{Kind: LiteralInt, Int: v}}
}
