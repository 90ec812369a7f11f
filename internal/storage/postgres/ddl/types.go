// Package ddl holds the Postgres dialect.
package ddl

import "strings"

// MapType maps a schema SQL type onto Postgres.
//
//	INTEGER   -> BIGINT
//	FLOAT     -> DOUBLE PRECISION
//	TIMESTAMP -> TIMESTAMPTZ
//	VARCHAR   -> TEXT
//
// Array types (TEXT[]) and BOOLEAN are native and kept; anything else is
// emitted unchanged.
func MapType(sqlType string, _ bool) string {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if strings.HasSuffix(t, "[]") {
		return t
	}
	switch t {
	case "INTEGER", "INT", "BIGINT":
		return "BIGINT"
	case "BOOLEAN", "BOOL":
		return "BOOLEAN"
	case "FLOAT", "DOUBLE", "REAL":
		return "DOUBLE PRECISION"
	case "TIMESTAMP", "TIMESTAMPTZ":
		return "TIMESTAMPTZ"
	case "VARCHAR", "TEXT":
		return "TEXT"
	default:
		return strings.TrimSpace(sqlType)
	}
}
