package coreir

import "surge/internal/source"

// patternIdentifiers returns, in positional order, the identifier each
// fresh sub-scrutinee should carry when recursing past a one-level core
// Pattern: Constructor yields its field binders, Record yields each
// field's binding name (rename if present, else the field's own name)
// paired with the field's own type. Ident and Literal patterns introduce
// no further scrutinees.
func patternIdentifiers(pattern Pattern) []Identifier {
	switch pattern.Kind {
	case PatternConstructor:
		return pattern.Fields
	case PatternRecord:
		out := make([]Identifier, len(pattern.RecordFields))
		for i, f := range pattern.RecordFields {
			out[i] = Identifier{Name: f.BindingName(), Type: f.Field.Type}
		}
		return out
	default:
		return nil
	}
}

// getIdent returns the identifier a pattern ultimately binds, looking
// through any chain of `as` wrappers; ok is false for anything that is not
// (eventually) a plain identifier binder.
func getIdent(pat *SourcePattern) (Identifier, bool) {
	for pat != nil {
		switch pat.Kind {
		case SrcPatIdent:
			return pat.Ident, true
		case SrcPatAs:
			pat = pat.AsName
			continue
		default:
			return Identifier{}, false
		}
	}
	return Identifier{}, false
}

// unwrapAs strips any leading chain of `as` wrappers.
func unwrapAs(pat *SourcePattern) *SourcePattern {
	for pat != nil && pat.Kind == SrcPatAs {
		pat = pat.AsName
	}
	return pat
}

type recordFieldEntry struct {
	id        Identifier
	rename    source.StringID
	hasRename bool
}

func (rf recordFieldEntry) bindingName() source.StringID {
	if rf.hasRename {
		return rf.rename
	}
	return rf.id.Name
}

// extractIdent names the variable a sub-pattern at position index should
// bind: the pattern's own identifier if it is (eventually) a plain
// binder, otherwise a fresh "pattern_N" name.
func (pt *patternTranslator) extractIdent(index int, pat *SourcePattern) Identifier {
	if id, ok := getIdent(pat); ok {
		return id
	}
	return Identifier{Name: pt.t.strings.Intern("pattern_" + itoa(index)), Type: pat.Type}
}

// mergePatternIdentifiers gathers the top-level identifiers of every
// pattern in patterns (the first column of one equation group) into a
// single one-level core Pattern, recording later-seen duplicate binders
// in the translator's identifier-replacement map so a single canonical
// name survives per logical binding. Nested sub-patterns are left
// untouched here — only top-level binder names are resolved.
func (pt *patternTranslator) mergePatternIdentifiers(patterns []*SourcePattern) Pattern {
	var identifiers []Identifier
	var recordFields []recordFieldEntry
	var core *Pattern

	replacements := pt.t.identReplacements

	addDuplicateIdent := func(field source.StringID, pat *SourcePattern) bool {
		for _, rf := range recordFields {
			if rf.id.Name != field {
				continue
			}
			var duplicate source.StringID
			hasDup := false
			if pat != nil {
				if id, ok := getIdent(pat); ok {
					duplicate, hasDup = id.Name, true
				}
			} else {
				duplicate, hasDup = field, true
			}
			if hasDup {
				replacements[duplicate] = rf.bindingName()
			}
			return true
		}
		return false
	}

	for _, raw := range patterns {
		p := unwrapAs(raw)
		switch p.Kind {
		case SrcPatConstructor:
			if core == nil {
				core = &Pattern{Kind: PatternConstructor, Tag: p.Tag}
			}
			for i, sub := range p.SubPatterns {
				if i < len(identifiers) {
					if id, ok := getIdent(sub); ok {
						replacements[id.Name] = identifiers[i].Name
					}
				} else {
					identifiers = append(identifiers, pt.extractIdent(i, sub))
				}
			}

		case SrcPatIdent:
			if core == nil {
				core = &Pattern{Kind: PatternIdent, Ident: p.Ident}
			}

		case SrcPatTuple:
			rowFields, _ := pt.t.env.RowFields(p.Type)
			for i, elem := range p.SubPatterns {
				name := tuplePositionName(pt.t.strings, i)
				fieldType := elem.Type
				if i < len(rowFields) {
					name, fieldType = rowFields[i].Name, rowFields[i].Type
				}
				if addDuplicateIdent(name, elem) {
					continue
				}
				ident := pt.extractIdent(i, elem)
				recordFields = append(recordFields, recordFieldEntry{
					id:        Identifier{Name: name, Type: fieldType},
					rename:    ident.Name,
					hasRename: true,
				})
			}

		case SrcPatRecord:
			rowFields, _ := pt.t.env.RowFields(p.Type)
			for i, field := range p.Fields {
				if addDuplicateIdent(field.Name.Name, field.Value) {
					continue
				}
				fieldType := field.Name.Type
				for _, rf := range rowFields {
					if rf.Name == field.Name.Name {
						fieldType = rf.Type
						break
					}
				}
				entry := recordFieldEntry{id: Identifier{Name: field.Name.Name, Type: fieldType}}
				if field.Value != nil {
					entry.rename, entry.hasRename = pt.extractIdent(i, field.Value).Name, true
				}
				recordFields = append(recordFields, entry)
			}

		case SrcPatLiteral, SrcPatError:
			// contribute nothing to the merged binder pattern

		default:
			panic(coreirError("mergePatternIdentifiers: unexpected pattern kind"))
		}
	}

	if core != nil {
		if core.Kind == PatternConstructor {
			core.Fields = identifiers
		}
		return *core
	}

	fields := make([]RecordField, len(recordFields))
	for i, rf := range recordFields {
		f := RecordField{Field: rf.id}
		if rf.hasRename {
			f.Rename = rf.rename
		} else {
			f.Rename = source.NoStringID
		}
		fields[i] = f
	}
	return NewRecordPattern(fields)
}
