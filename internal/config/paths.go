package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PathOptions controls EnsurePath.
type PathOptions struct {
	// MustExist fails when the path is missing instead of creating it.
	MustExist bool
	// ParentsOnly creates the parent directories but not the path itself,
	// for files another step writes later.
	ParentsOnly bool
	// BaseDir anchors relative paths. A relative path that already starts
	// with BaseDir is not anchored twice.
	BaseDir string
}

// EnsurePath resolves p against opts.BaseDir and creates it. A path with no
// extension, or an existing directory, is created as a directory; anything
// else as an empty file.
func EnsurePath(p string, opts PathOptions) (string, error) {
	if p == "" {
		return "", errors.New("config: empty path")
	}
	path := Resolve(p, opts.BaseDir)

	info, err := os.Stat(path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("config: %w", err)
	}
	if opts.MustExist && !exists {
		return "", fmt.Errorf("config: required %s does not exist: %w", path, fs.ErrNotExist)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	if opts.ParentsOnly || exists {
		return path, nil
	}

	if filepath.Ext(path) == "" || (info != nil && info.IsDir()) {
		if err := os.Mkdir(path, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("config: %w", err)
		}
		return path, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return path, f.Close()
}

// Resolve anchors a relative p under base.
func Resolve(p, base string) string {
	if base == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	cp, cb := filepath.Clean(p), filepath.Clean(base)
	if cp == cb || strings.HasPrefix(cp, cb+string(filepath.Separator)) {
		return cp
	}
	return filepath.Join(cb, cp)
}

// Path anchors p under the configured base directory.
func (c *Config) Path(p string) string { return Resolve(p, c.BaseDir) }

// SchemasPath is the location of the schema document.
func (c *Config) SchemasPath() string { return c.Path(c.SchemasFile) }

// DataFile is the data file of one SQL table; ext is "json" or "csv".
func (c *Config) DataFile(sqlTable, ext string) string {
	return filepath.Join(c.Path(c.DataDir), sqlTable+"."+ext)
}

// SQLFile is the generated CREATE TABLE script of one SQL table.
func (c *Config) SQLFile(sqlTable string) string {
	return filepath.Join(c.Path(c.SQLDir), "create_"+sqlTable+".sql")
}

// Target returns the storage kind and DSN. SQLite without a DSN opens
// db_file.
func (c *Config) Target() (kind, dsn string) {
	kind = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	dsn = c.DB.DSN
	if kind == "sqlite" && dsn == "" {
		dsn = c.Path(c.DBFile)
	}
	return kind, dsn
}
