package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"atexport/internal/schema"
)

// ErrCoerce reports a value that does not fit its column type.
var ErrCoerce = errors.New("cannot coerce value")

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Coerce converts a decoded JSON value into the Go type the storage
// backends expect for sqlType. Numbers are expected as json.Number. Types
// other than the core keywords pass through, with objects and lists
// encoded as JSON text.
func Coerce(sqlType string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if IsArrayType(sqlType) {
		return toStrings(v)
	}
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	case "VARCHAR", "TEXT":
		return toText(v)
	case "INTEGER":
		return toNumber(v, true)
	case "FLOAT":
		return toNumber(v, false)
	case "BOOLEAN":
		return toBool(v)
	case "TIMESTAMP":
		return toTime(v)
	default:
		switch x := v.(type) {
		case map[string]any, []any:
			return toText(v)
		case json.Number:
			return x.String(), nil
		}
		return v, nil
	}
}

// SQLTypes returns the sqltype of every column of t in order.
func SQLTypes(t schema.Table) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.SQLType
	}
	return out
}

// CoerceRow coerces one row in place against the column types.
func CoerceRow(columns, sqlTypes []string, row []any) error {
	for i := range row {
		c, err := Coerce(sqlTypes[i], row[i])
		if err != nil {
			return fmt.Errorf("column %s: %w", columns[i], err)
		}
		row[i] = c
	}
	return nil
}

func toText(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("%w %v to text: %v", ErrCoerce, v, err)
		}
		return string(b), nil
	}
}

func toStrings(v any) (any, error) {
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if e == nil {
			continue
		}
		s, err := toText(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s.(string))
	}
	return out, nil
}

func toNumber(v any, integer bool) (any, error) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		if integer {
			if n, err := x.Int64(); err == nil {
				return n, nil
			}
		}
		n, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w %q to number", ErrCoerce, x.String())
		}
		f = n
	case float64:
		f = x
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("%w %q to number", ErrCoerce, x)
		}
		f = n
	default:
		return nil, fmt.Errorf("%w %T to number", ErrCoerce, v)
	}
	if integer && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return int64(f), nil
	}
	return f, nil
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("%w %q to bool", ErrCoerce, x)
		}
		return b, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w %q to bool", ErrCoerce, x.String())
		}
		return f != 0, nil
	case float64:
		return x != 0, nil
	default:
		return nil, fmt.Errorf("%w %T to bool", ErrCoerce, v)
	}
}

func toTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("%w %q to timestamp", ErrCoerce, x)
	default:
		return nil, fmt.Errorf("%w %T to timestamp", ErrCoerce, v)
	}
}
