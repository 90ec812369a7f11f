package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// JSONArrays returns a copy of rows in which every []string cell is replaced
// by its JSON text. Backends without a native array type store list columns
// this way. Rows without list cells are shared, not copied.
func JSONArrays(rows [][]any) ([][]any, error) {
	out := rows
	copied := false
	for i, row := range rows {
		var cp []any
		for j, v := range row {
			list, ok := v.([]string)
			if !ok {
				continue
			}
			b, err := json.Marshal(list)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			if !copied {
				out = append([][]any(nil), rows...)
				copied = true
			}
			if cp == nil {
				cp = append([]any(nil), row...)
				out[i] = cp
			}
			cp[j] = string(b)
		}
	}
	return out, nil
}

// TimesAsText formats time.Time cells as RFC 3339 strings in UTC.
func TimesAsText(rows [][]any) [][]any {
	out := rows
	copied := false
	for i, row := range rows {
		var cp []any
		for j, v := range row {
			ts, ok := v.(time.Time)
			if !ok {
				continue
			}
			if !copied {
				out = append([][]any(nil), rows...)
				copied = true
			}
			if cp == nil {
				cp = append([]any(nil), row...)
				out[i] = cp
			}
			cp[j] = ts.UTC().Format(time.RFC3339Nano)
		}
	}
	return out
}
