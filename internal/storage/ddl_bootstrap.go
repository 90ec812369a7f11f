package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"atexport/internal/schema"
)

// DDLBootstrapper creates the table described by t through repo, using the
// backend's own dialect. It must be idempotent.
type DDLBootstrapper func(ctx context.Context, repo Repository, t schema.Table) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the bootstrapper for a storage kind.
// Backends call it from init.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates t in the database behind repo with the bootstrapper
// registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, t schema.Table) error {
	kind = strings.ToLower(strings.TrimSpace(kind))
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage kind %q", kind)
	}
	if err := fn(ctx, repo, t); err != nil {
		return fmt.Errorf("%s: create table %s: %w", kind, t.SQLTable, err)
	}
	return nil
}
