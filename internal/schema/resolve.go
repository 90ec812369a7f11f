package schema

import (
	"errors"
	"fmt"
	"strings"

	"atexport/internal/airtable"
)

var (
	// ErrMalformedOverride marks a full override that lacks its column or its type.
	ErrMalformedOverride = errors.New("override requires both sqlcol and sqltype")

	// ErrInvalidIndirection marks a lookup whose target is itself a lookup.
	ErrInvalidIndirection = errors.New("lookup field points at another lookup")

	// ErrFilterPattern marks a column filter that is not a valid regular expression.
	ErrFilterPattern = errors.New("invalid column filter pattern")

	// ErrColumnCollision marks two fields mapped onto the same column name.
	ErrColumnCollision = errors.New("column name collision")
)

// UnmappedType is the SQL type used for remote field types missing from
// TypeMap.
const UnmappedType = "VARCHAR"

// TypeMap is the SQL type of each remote field type. Types without an entry
// (formula included) resolve to UnmappedType.
var TypeMap = map[airtable.FieldType]string{
	airtable.AutoNumber:           "INTEGER",
	airtable.Checkbox:             "BOOLEAN",
	airtable.Count:                "INTEGER",
	airtable.Currency:             "FLOAT",
	airtable.DateTime:             "TIMESTAMP",
	airtable.Email:                "VARCHAR",
	airtable.MultilineText:        "VARCHAR",
	airtable.MultipleLookupValues: "TEXT[]",
	airtable.MultipleRecordLinks:  "TEXT[]",
	airtable.MultipleSelects:      "TEXT[]",
	airtable.Number:               "INTEGER",
	airtable.RichText:             "VARCHAR",
	airtable.SingleLineText:       "VARCHAR",
	airtable.SingleLookupValue:    "VARCHAR",
	airtable.SingleRecordLink:     "VARCHAR",
	airtable.SingleSelect:         "VARCHAR",
}

// LookupType returns the SQL type for t. ok is false when t has no entry and
// UnmappedType was returned instead.
func LookupType(t airtable.FieldType) (sqlType string, ok bool) {
	if s, ok := TypeMap[t]; ok {
		return s, true
	}
	return UnmappedType, false
}

// OverrideKind tags the variant held by an Override.
type OverrideKind int

const (
	// OverrideNone leaves the derivation untouched. An entry of this kind
	// still selects the field when all_columns is off.
	OverrideNone OverrideKind = iota
	// OverrideRename replaces the normalized name; suffixing still applies.
	OverrideRename
	// OverrideFull fixes both column and type and skips all derivation.
	OverrideFull
)

// Override is the user's per-field instruction, keyed by the field's display
// name in Overrides.
type Override struct {
	Kind    OverrideKind
	Column  string
	SQLType string
}

// Rename returns an override that only renames the column.
func Rename(column string) Override {
	return Override{Kind: OverrideRename, Column: column}
}

// Full returns an override that fixes both column name and SQL type.
func Full(column, sqlType string) Override {
	return Override{Kind: OverrideFull, Column: column, SQLType: sqlType}
}

// Valid reports whether a full override carries both halves. Other kinds are
// always valid.
func (o Override) Valid() bool {
	if o.Kind != OverrideFull {
		return true
	}
	return strings.TrimSpace(o.Column) != "" && strings.TrimSpace(o.SQLType) != ""
}

// Overrides maps remote field display names to overrides.
type Overrides map[string]Override

// Resolve derives the column name and SQL type of f.
//
// A full override is returned verbatim with overrideApplied set. Otherwise
// the name is the rename (or the normalized display name) and the type comes
// from TypeMap, then:
//
//   - richText columns get an "_md" suffix;
//   - multipleRecordLinks get "_id" and the single-link type when the field
//     prefers a single record, "_ids" otherwise;
//   - multipleLookupValues resolve as their target field carrying the
//     lookup's own id and name.
//
// Resolve has no side effects; equal inputs give equal outputs.
func Resolve(overrides Overrides, f airtable.Field) (column, sqlType string, overrideApplied bool, err error) {
	return FoldNone.Resolve(overrides, f)
}

// Resolve is the package-level Resolve with derived names normalized under
// fo.
func (fo Folding) Resolve(overrides Overrides, f airtable.Field) (column, sqlType string, overrideApplied bool, err error) {
	ov, ok := overrides[f.Name]
	if ok && ov.Kind == OverrideFull {
		if !ov.Valid() {
			return "", "", false, fmt.Errorf("field %q: %w", f.Name, ErrMalformedOverride)
		}
		return ov.Column, ov.SQLType, true, nil
	}

	if f.Type == airtable.MultipleLookupValues {
		if target := f.LookupTarget(); target != nil {
			if target.Type.IsLookup() {
				return "", "", false, fmt.Errorf("field %q: %w", f.Name, ErrInvalidIndirection)
			}
			return fo.Resolve(overrides, lookupAs(f, *target))
		}
	}

	column = fo.Normalize(f.Name)
	if ok && ov.Kind == OverrideRename && ov.Column != "" {
		column = ov.Column
	}
	sqlType, _ = LookupType(f.Type)

	switch f.Type {
	case airtable.RichText:
		column += "_md"
	case airtable.MultipleRecordLinks:
		if f.PrefersSingleRecordLink() {
			sqlType, _ = LookupType(airtable.SingleRecordLink)
			column = withSuffix(column, "_id")
		} else {
			column = withSuffix(column, "_ids")
		}
	}
	return column, sqlType, false, nil
}

// lookupAs is the target's descriptor under the lookup's identity.
func lookupAs(lookup, target airtable.Field) airtable.Field {
	target.ID = lookup.ID
	target.Name = lookup.Name
	target.Description = lookup.Description
	return target
}

func withSuffix(col, sfx string) string {
	if strings.HasSuffix(col, sfx) {
		return col
	}
	return col + sfx
}
