// Package ddl holds the SQL Server dialect.
package ddl

import "strings"

// MapType maps a schema SQL type onto SQL Server.
//
// Text goes to NVARCHAR(MAX), except the primary key which must fit an index
// key and gets NVARCHAR(255). Lists are stored as JSON in NVARCHAR(MAX).
// Unknown types pass through.
func MapType(sqlType string, pk bool) string {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if strings.HasSuffix(t, "[]") {
		return "NVARCHAR(MAX)"
	}
	switch t {
	case "VARCHAR", "TEXT":
		if pk {
			return "NVARCHAR(255)"
		}
		return "NVARCHAR(MAX)"
	case "INTEGER", "INT", "BIGINT":
		return "BIGINT"
	case "BOOLEAN", "BOOL":
		return "BIT"
	case "FLOAT", "DOUBLE", "REAL":
		return "FLOAT"
	case "TIMESTAMP", "DATETIME":
		return "DATETIME2"
	default:
		return strings.TrimSpace(sqlType)
	}
}
