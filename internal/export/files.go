package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"atexport/internal/fileutil"
)

// Format is a data file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV:
		return Format(s), nil
	}
	return "", fmt.Errorf("export: unknown format %q (want json or csv)", s)
}

// EncodeJSON renders rows as an indented JSON array of objects.
func EncodeJSON(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode json: %w", err)
	}
	return append(b, '\n'), nil
}

// EncodeCSV renders a header line of columns followed by one line per row.
// Lists and objects are written as JSON text, nil as an empty cell.
func EncodeCSV(columns []string, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	rec := make([]string, len(columns))
	for i, r := range rows {
		for j := range columns {
			if j >= len(r.Values) || r.Values[j] == nil {
				rec[j] = ""
				continue
			}
			s, err := toText(r.Values[j])
			if err != nil {
				return nil, fmt.Errorf("export: row %d column %s: %w", i, columns[j], err)
			}
			rec[j] = s.(string)
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes rows to path in the given format, leaving the file alone when
// the content is unchanged.
func Save(path string, f Format, columns []string, rows []Row) (changed bool, err error) {
	var data []byte
	switch f {
	case FormatJSON:
		data, err = EncodeJSON(rows)
	case FormatCSV:
		data, err = EncodeCSV(columns, rows)
	default:
		err = fmt.Errorf("export: unknown format %q", f)
	}
	if err != nil {
		return false, err
	}
	return fileutil.WriteIfChanged(path, data, 0o644)
}

// ReadJSON streams a JSON array of objects and returns each object as a
// row ordered by columns. Keys not in columns are ignored; missing keys
// are nil. Numbers stay json.Number.
func ReadJSON(r io.Reader, columns []string) ([][]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("export: read json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("export: read json: expected array, got %v", tok)
	}

	var rows [][]any
	for dec.More() {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("export: read json: row %d: %w", len(rows), err)
		}
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = obj[c]
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("export: read json: %w", err)
	}
	return rows, nil
}

// LoadJSON reads the data file at path with ReadJSON.
func LoadJSON(path string, columns []string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer f.Close()
	return ReadJSON(f, columns)
}
