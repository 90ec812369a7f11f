// Package all registers every built-in storage backend with the storage
// package. Import it for side effects:
//
//	import _ "atexport/internal/storage/all"
//
// after which storage.New and storage.EnsureTable accept the kinds
// "sqlite", "postgres", "mssql" and "mysql".
package all

import (
	_ "atexport/internal/storage/mssql"
	_ "atexport/internal/storage/mysql"
	_ "atexport/internal/storage/postgres"
	_ "atexport/internal/storage/sqlite"
)
