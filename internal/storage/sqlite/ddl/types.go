// Package ddl holds the SQLite dialect: type mapping and CREATE TABLE
// rendering for the generic ddl.TableDef model.
package ddl

import "strings"

// MapType maps a schema SQL type onto a SQLite type affinity.
//
//	INTEGER, BIGINT     -> INTEGER
//	BOOLEAN             -> INTEGER (0/1)
//	FLOAT, REAL, DOUBLE -> REAL
//	TIMESTAMP           -> TEXT (RFC 3339)
//	VARCHAR, TEXT       -> TEXT
//	TEXT[] and friends  -> TEXT (JSON array)
//
// Anything else, typically a user override, is emitted unchanged.
func MapType(sqlType string, _ bool) string {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if strings.HasSuffix(t, "[]") {
		return "TEXT"
	}
	switch t {
	case "INTEGER", "INT", "BIGINT":
		return "INTEGER"
	case "BOOLEAN", "BOOL":
		return "INTEGER"
	case "FLOAT", "REAL", "DOUBLE":
		return "REAL"
	case "TIMESTAMP", "DATETIME", "DATE":
		return "TEXT"
	case "VARCHAR", "TEXT":
		return "TEXT"
	default:
		return strings.TrimSpace(sqlType)
	}
}
