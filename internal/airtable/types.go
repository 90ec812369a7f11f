// Package airtable models the parts of the Airtable Web API this tool reads:
// base listings, table/field metadata and records. It also provides a small
// client over internal/datasource/httpds.
package airtable

import (
	"encoding/json"
	"strings"
)

// FieldType is the closed set of Airtable field kinds the exporter knows
// about. Tags outside the set decode to FieldTypeUnknown; the raw tag stays
// available on Field.RawType.
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	SingleLineText
	MultilineText
	RichText
	SingleSelect
	MultipleSelects
	MultipleRecordLinks
	SingleRecordLink
	MultipleLookupValues
	SingleLookupValue
	Checkbox
	DateTime
	Currency
	Number
	AutoNumber
	Email
	Formula
	Count
)

var fieldTypeTags = [...]string{
	FieldTypeUnknown:     "unknown",
	SingleLineText:       "singleLineText",
	MultilineText:        "multilineText",
	RichText:             "richText",
	SingleSelect:         "singleSelect",
	MultipleSelects:      "multipleSelects",
	MultipleRecordLinks:  "multipleRecordLinks",
	SingleRecordLink:     "singleRecordLink",
	MultipleLookupValues: "multipleLookupValues",
	SingleLookupValue:    "singleLookupValue",
	Checkbox:             "checkbox",
	DateTime:             "dateTime",
	Currency:             "currency",
	Number:               "number",
	AutoNumber:           "autoNumber",
	Email:                "email",
	Formula:              "formula",
	Count:                "count",
}

var fieldTypesByTag = func() map[string]FieldType {
	m := make(map[string]FieldType, len(fieldTypeTags))
	for i, tag := range fieldTypeTags {
		if FieldType(i) == FieldTypeUnknown {
			continue
		}
		m[tag] = FieldType(i)
	}
	return m
}()

// ParseFieldType maps an Airtable wire tag to a FieldType. Unrecognized tags
// return FieldTypeUnknown.
func ParseFieldType(tag string) FieldType {
	if t, ok := fieldTypesByTag[strings.TrimSpace(tag)]; ok {
		return t
	}
	return FieldTypeUnknown
}

// String returns the Airtable wire tag.
func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeTags) {
		return fieldTypeTags[FieldTypeUnknown]
	}
	return fieldTypeTags[t]
}

// IsLookup reports whether fields of this type read their value through a
// link into another table.
func (t FieldType) IsLookup() bool { return t == MultipleLookupValues }

// Field is one column of a remote table as described by the metadata API.
//
// For lookup fields Options.Result carries the descriptor of the field being
// looked up (type and options only; the API does not send id or name).
type Field struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name,omitempty"`
	Type        FieldType     `json:"-"`
	RawType     string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Options     *FieldOptions `json:"options,omitempty"`
}

// FieldOptions is the type-specific payload of a field. Only the keys the
// exporter inspects are modelled.
type FieldOptions struct {
	// formula
	Formula string `json:"formula,omitempty"`

	// multipleRecordLinks
	LinkedTableID           string `json:"linkedTableId,omitempty"`
	PrefersSingleRecordLink bool   `json:"prefersSingleRecordLink,omitempty"`

	// multipleLookupValues
	RecordLinkFieldID    string `json:"recordLinkFieldId,omitempty"`
	FieldIDInLinkedTable string `json:"fieldIdInLinkedTable,omitempty"`
	IsValid              *bool  `json:"isValid,omitempty"`
	Result               *Field `json:"result,omitempty"`
}

// UnmarshalJSON decodes a field and resolves its wire tag into Type.
func (f *Field) UnmarshalJSON(b []byte) error {
	type plain Field
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = Field(p)
	f.Type = ParseFieldType(f.RawType)
	return nil
}

// Tag returns the raw wire tag, falling back to the parsed type's tag for
// fields built in code.
func (f Field) Tag() string {
	if f.RawType != "" {
		return f.RawType
	}
	return f.Type.String()
}

// PrefersSingleRecordLink reports the link-cardinality preference; false
// when the field carries no options.
func (f Field) PrefersSingleRecordLink() bool {
	return f.Options != nil && f.Options.PrefersSingleRecordLink
}

// LookupTarget returns the embedded descriptor of the looked-up field, or nil.
func (f Field) LookupTarget() *Field {
	if f.Options == nil {
		return nil
	}
	return f.Options.Result
}

// FormulaText returns the raw formula expression, or "".
func (f Field) FormulaText() string {
	if f.Options == nil {
		return ""
	}
	return f.Options.Formula
}

// View is a saved view of a table.
type View struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is the metadata of one remote table.
type Table struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	PrimaryFieldID string  `json:"primaryFieldId"`
	Fields         []Field `json:"fields"`
	Views          []View  `json:"views,omitempty"`
}

// FieldNames maps field id to display name. Formula rewriting uses it to
// replace {fldXXX} references.
func (t Table) FieldNames() map[string]string {
	m := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		m[f.ID] = f.Name
	}
	return m
}

// Base is one entry of the base listing.
type Base struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PermissionLevel string `json:"permissionLevel,omitempty"`
}

// BaseSchema is the table metadata of a base.
type BaseSchema struct {
	Tables []Table `json:"tables"`
}

// Table finds a table by display name or id. Names win over ids when both
// could match.
func (s BaseSchema) Table(nameOrID string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == nameOrID {
			return t, true
		}
	}
	for _, t := range s.Tables {
		if t.ID == nameOrID {
			return t, true
		}
	}
	return Table{}, false
}

// Record is one row of a table. Numeric cell values are json.Number.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}
