// Package export turns Airtable records into rows keyed by the SQL column
// names of a schema.Table, and reads and writes those rows as JSON and CSV
// data files.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"atexport/internal/airtable"
	"atexport/internal/schema"
)

// Row is one record in schema column order.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value stored under column, or nil.
func (r Row) Get(column string) any {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i]
		}
	}
	return nil
}

// MarshalJSON writes the row as an object whose keys keep column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IsArrayType reports whether sqlType is a list type such as TEXT[].
func IsArrayType(sqlType string) bool {
	return strings.HasSuffix(strings.TrimSpace(sqlType), "[]")
}

// reducesLists reports whether list values are cut to their first element
// for a column of sqlType. Only the scalar types the resolver itself emits
// reduce; arrays and user-chosen types (JSON, JSONB, ...) keep the list.
func reducesLists(sqlType string) bool {
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	case "VARCHAR", "TEXT", "INTEGER", "BOOLEAN", "FLOAT", "TIMESTAMP":
		return true
	}
	return false
}

// MapRecord projects rec onto the columns of t. The primary key takes the
// record id; fields missing from the record are nil.
func MapRecord(t schema.Table, rec airtable.Record) Row {
	row := Row{
		Columns: t.ColumnNames(),
		Values:  make([]any, len(t.Columns)),
	}
	for i, col := range t.Columns {
		if col.IsPrimaryKey() {
			row.Values[i] = rec.ID
			continue
		}
		v, ok := rec.Fields[col.FieldName()]
		if !ok {
			continue
		}
		if list, isList := v.([]any); isList && reducesLists(col.SQLType) {
			if len(list) == 0 {
				v = nil
			} else {
				v = list[0]
			}
		}
		row.Values[i] = v
	}
	return row
}

// MapRecords maps every record of one table.
func MapRecords(t schema.Table, recs []airtable.Record) []Row {
	out := make([]Row, len(recs))
	for i, r := range recs {
		out[i] = MapRecord(t, r)
	}
	return out
}
