package coreir

import (
	"fmt"

	"surge/internal/source"
)

// PatternKind enumerates the one-level pattern shapes an Alternative can
// carry. Patterns never nest past this point — any deeper deconstruction
// is compiled into a further Match over a freshly bound scrutinee (see
// match_compile.go).
type PatternKind uint8

const (
	PatternInvalid PatternKind = iota
	PatternConstructor
	PatternRecord
	PatternIdent
	PatternLiteral
)

func (k PatternKind) String() string {
	switch k {
	case PatternConstructor:
		return "Constructor"
	case PatternRecord:
		return "Record"
	case PatternIdent:
		return "Ident"
	case PatternLiteral:
		return "Literal"
	default:
		return fmt.Sprintf("PatternKind(%d)", k)
	}
}

// RecordField is one field of a Record pattern: the field's own identifier
// (name + type), and an optional local rename. When Rename is NoStringID
// the field's own name is the local binding name.
type RecordField struct {
	Field  Identifier
	Rename source.StringID
}

// BindingName returns the name this field binds locally: Rename if
// present, otherwise Field.Name.
func (f RecordField) BindingName() source.StringID {
	if f.Rename != source.NoStringID {
		return f.Rename
	}
	return f.Field.Name
}

// Pattern is a single-level deconstruction used only inside Match
// alternatives.
type Pattern struct {
	Kind PatternKind

	// PatternConstructor
	Tag    Identifier
	Fields []Identifier // flat, positional field binders

	// PatternRecord
	RecordFields []RecordField

	// PatternIdent
	Ident Identifier

	// PatternLiteral
	Literal Literal
}

// NewConstructorPattern builds a Constructor pattern.
func NewConstructorPattern(tag Identifier, fields []Identifier) Pattern {
	return Pattern{Kind: PatternConstructor, Tag: tag, Fields: fields}
}

// NewRecordPattern builds a Record pattern.
func NewRecordPattern(fields []RecordField) Pattern {
	return Pattern{Kind: PatternRecord, RecordFields: fields}
}

// NewIdentPattern builds an Ident (wildcard/capture) pattern.
func NewIdentPattern(id Identifier) Pattern {
	return Pattern{Kind: PatternIdent, Ident: id}
}

// NewLiteralPattern builds a Literal pattern.
func NewLiteralPattern(lit Literal) Pattern {
	return Pattern{Kind: PatternLiteral, Literal: lit}
}

// IsWildcard reports whether this is a pure wildcard: an Ident pattern
// binding the special name "_".
func (p Pattern) IsWildcard(strings *source.Interner) bool {
	return p.Kind == PatternIdent && p.Ident.IsWildcard(strings)
}

// Alternative pairs a one-level Pattern with the expression to evaluate
// when it matches. Alternatives inside one Match are tried top to bottom;
// the first match wins.
type Alternative struct {
	Pattern Pattern
	Expr    *Expr
}
