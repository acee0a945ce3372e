// Package cookies manages the session credential file used for
// authenticated extraction (exported browser cookies).
package cookies

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Manager owns the well-known cookies file.
type Manager struct {
	path string
}

// NewManager creates a Manager for the given cookies path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Path returns the location of the cookies file.
func (m *Manager) Path() string {
	return m.path
}

// Exists reports whether a cookies file is present.
func (m *Manager) Exists() bool {
	info, err := os.Stat(m.path)
	return err == nil && !info.IsDir()
}

// Save writes new cookies content atomically, replacing any previous
// file. Content must look like a Netscape cookies export.
func (m *Manager) Save(content []byte) error {
	if err := Validate(content); err != nil {
		return err
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cookies directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cookies file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cookies: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cookies file: %w", err)
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cookies file: %w", err)
	}

	// Cookies grant account access; keep them private.
	if err := os.Chmod(m.path, 0600); err != nil {
		slog.Warn("Failed to restrict cookies file permissions", "error", err)
	}

	slog.Info("Cookies file updated", "path", m.path)
	return nil
}

// Remove deletes the cookies file if present.
func (m *Manager) Remove() error {
	err := os.Remove(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Validate rejects content that is clearly not a cookies export.
func Validate(content []byte) error {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return fmt.Errorf("cookies file is empty")
	}
	// Netscape exports start with a comment header; tab-separated entries
	// are also accepted since some exporters drop the header.
	if strings.HasPrefix(trimmed, "#") || strings.Contains(trimmed, "\t") {
		return nil
	}
	return fmt.Errorf("content does not look like a cookies export")
}
