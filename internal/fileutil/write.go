// Package fileutil writes generated artifacts (schema documents, DDL files,
// data files) without touching files whose content would not change.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"
)

// WriteIfChanged writes data to path unless the file already holds the same
// bytes. Parent directories are created. The write goes through a temp file
// in the same directory and a rename. changed reports whether a write
// happened.
func WriteIfChanged(path string, data []byte, perm fs.FileMode) (changed bool, err error) {
	if path == "" {
		return false, errors.New("fileutil: path must not be empty")
	}

	old, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(old) == len(data) && xxh3.Hash128(old) == xxh3.Hash128(data) {
			return false, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("fileutil: read %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("fileutil: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return false, fmt.Errorf("fileutil: temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("fileutil: write %s: %w", path, err)
	}
	if err = tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("fileutil: chmod %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return false, fmt.Errorf("fileutil: close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("fileutil: rename %s: %w", path, err)
	}
	return true, nil
}

// Fingerprint is the xxh3 hash of data, used in logs to tell artifact
// versions apart.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}
