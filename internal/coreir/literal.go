package coreir

import (
	"fmt"
	"math"

	"surge/internal/types"
)

// LiteralKind enumerates the kinds of literal a Const node can carry.
type LiteralKind uint8

const (
	LiteralInvalid LiteralKind = iota
	LiteralByte
	LiteralInt
	LiteralFloat
	LiteralString
	LiteralChar
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralByte:
		return "byte"
	case LiteralInt:
		return "int"
	case LiteralFloat:
		return "float"
	case LiteralString:
		return "string"
	case LiteralChar:
		return "char"
	default:
		return fmt.Sprintf("LiteralKind(%d)", k)
	}
}

// Literal is a totally-ordered, structurally-equatable constant value.
//
// Floats exclude NaN: a NaN value must never reach NewFloatLiteral, the
// same contract the upstream checker enforces before handing literals to
// the translator.
type Literal struct {
	Kind   LiteralKind
	Byte   byte
	Int    int64
	Float  float64
	String string
	Char   rune
}

// NewFloatLiteral builds a float literal, panicking on NaN input the way
// malformed-input contract violations are reported elsewhere in this
// package: NaN surviving to here is an upstream contract violation, not a
// user error.
func NewFloatLiteral(f float64) Literal {
	if math.IsNaN(f) {
		panic(fmt.Errorf("coreir: NaN is not a valid literal"))
	}
	return Literal{Kind: LiteralFloat, Float: f}
}

// Equal reports structural equality between two literals.
func (l Literal) Equal(other Literal) bool {
	if l.Kind != other.Kind {
		return false
	}
	switch l.Kind {
	case LiteralByte:
		return l.Byte == other.Byte
	case LiteralInt:
		return l.Int == other.Int
	case LiteralFloat:
		return l.Float == other.Float
	case LiteralString:
		return l.String == other.String
	case LiteralChar:
		return l.Char == other.Char
	default:
		return false
	}
}

// Less imposes a total order over literals for grouping purposes: first by
// kind, then by value. Kinds never mix within a single pattern column (the
// checker guarantees it), so the cross-kind order only needs to be total,
// not meaningful.
func (l Literal) Less(other Literal) bool {
	if l.Kind != other.Kind {
		return l.Kind < other.Kind
	}
	switch l.Kind {
	case LiteralByte:
		return l.Byte < other.Byte
	case LiteralInt:
		return l.Int < other.Int
	case LiteralFloat:
		return l.Float < other.Float
	case LiteralString:
		return l.String < other.String
	case LiteralChar:
		return l.Char < other.Char
	default:
		return false
	}
}

// String renders a literal using the textual surface's own lexical form.
func (l Literal) String() string {
	switch l.Kind {
	case LiteralByte:
		return fmt.Sprintf("%db", l.Byte)
	case LiteralInt:
		return fmt.Sprintf("%d", l.Int)
	case LiteralFloat:
		return fmt.Sprintf("%g", l.Float)
	case LiteralString:
		return fmt.Sprintf("%q", l.String)
	case LiteralChar:
		return fmt.Sprintf("%q", l.Char)
	default:
		return "<invalid literal>"
	}
}

// TypeOf resolves the primitive type of a literal through env, mirroring
// the Call/Data/Ident cases handled directly on Expr (see typeof.go).
func (l Literal) TypeOf(env TypeEnv) types.TypeID {
	if env == nil {
		return types.NoTypeID
	}
	switch l.Kind {
	case LiteralByte:
		return env.ByteType()
	case LiteralInt:
		return env.IntType()
	case LiteralFloat:
		return env.FloatType()
	case LiteralString:
		return env.StringType()
	case LiteralChar:
		return env.CharType()
	default:
		return types.NoTypeID
	}
}
