package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"atexport/internal/fileutil"
)

// Document is the schema map written by generate-schema-map: one Table per
// configured table, in configuration order.
type Document []Table

// Find returns the table whose SQL name is sqlTable.
func (d Document) Find(sqlTable string) (Table, bool) {
	for _, t := range d {
		if t.SQLTable == sqlTable {
			return t, true
		}
	}
	return Table{}, false
}

// Encode renders the document as indented JSON with a trailing newline.
func (d Document) Encode() ([]byte, error) {
	if d == nil {
		d = Document{}
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("schema: encode document: %w", err)
	}
	return append(b, '\n'), nil
}

// ReadDocument decodes a document and checks the primary key invariant of
// every table in it.
func ReadDocument(r io.Reader) (Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("schema: decode document: %w", err)
	}
	for i, t := range d {
		if t.SQLTable == "" {
			return nil, fmt.Errorf("schema: table #%d has no sqltable", i)
		}
		if len(t.Columns) == 0 || !t.Columns[0].IsPrimaryKey() || t.Columns[0].SQLColumn != PrimaryKeyColumn {
			return nil, fmt.Errorf("schema: table %q does not start with the %q primary key", t.SQLTable, PrimaryKeyColumn)
		}
	}
	return d, nil
}

// LoadDocument reads a document from path.
func LoadDocument(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schema: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDocument(f)
}

// SaveDocument writes d to path, leaving the file alone when unchanged.
func SaveDocument(path string, d Document) (changed bool, err error) {
	b, err := d.Encode()
	if err != nil {
		return false, err
	}
	return fileutil.WriteIfChanged(path, b, 0o644)
}
