package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultFilePragmas = "mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// FileDSN converts a filesystem path into an on-disk SQLite DSN with sensible
// defaults. Missing parent directories are created.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", abs, defaultFilePragmas), nil
}

// MemoryDSN names a private in-memory SQLite database. Connections opened with
// the same name share it.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.TrimSpace(name))
}

// OpenConfigured resolves the DSN for driver and opens the store. The sqlite
// driver reads path; postgres reads dsn.
func OpenConfigured(driver, path, dsn string) (*Storage, error) {
	if strings.EqualFold(strings.TrimSpace(driver), "postgres") {
		return Open(driver, dsn)
	}
	fileDSN, err := FileDSN(path)
	if err != nil {
		return nil, err
	}
	return Open(driver, fileDSN)
}
