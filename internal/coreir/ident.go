package coreir

import (
	"surge/internal/source"
	"surge/internal/types"
)

// Identifier pairs an interned name with the type the checker assigned it.
// Two identifiers may share a name while differing in type; binding
// equality only ever compares Name.
type Identifier struct {
	Name source.StringID
	Type types.TypeID
}

// NameEquals reports whether two identifiers bind the same logical name.
func (id Identifier) NameEquals(other Identifier) bool {
	return id.Name == other.Name
}

// IsWildcard reports whether id is the pure wildcard binder "_" — the one
// pattern identifier that introduces no binding at all.
func (id Identifier) IsWildcard(strings *source.Interner) bool {
	if strings == nil {
		return false
	}
	name, ok := strings.Lookup(id.Name)
	return ok && name == "_"
}
