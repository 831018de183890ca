// Package docstore persists uploaded document text as files on disk.
// Database rows keep paths relative to the store root, so the root can move
// between deployments without rewriting rows.
package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"resumebot/pkg/logx"
)

// Document kinds, used as subdirectories of the store root.
const (
	KindResume  = "resumes"
	KindVacancy = "vacancies"
)

// Store writes and reads document files under a root directory.
type Store struct {
	root   string
	logger *logx.Logger
}

// New creates the store directories under root if needed.
func New(root string) (*Store, error) {
	for _, kind := range []string{KindResume, KindVacancy} {
		if err := os.MkdirAll(filepath.Join(root, kind), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir %s: %w", kind, err)
		}
	}
	return &Store{root: root, logger: logx.NewLogger("docstore")}, nil
}

// Save writes content under the given kind and returns the relative path to
// store in the database.
func (s *Store) Save(kind, content string) (string, error) {
	if kind != KindResume && kind != KindVacancy {
		return "", fmt.Errorf("unknown document kind %q", kind)
	}

	rel := filepath.Join(kind, uuid.NewString()+".txt")
	if err := os.WriteFile(filepath.Join(s.root, rel), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	s.logger.Debug("saved document %s (%d bytes)", rel, len(content))
	return rel, nil
}

// Read returns the content of a previously saved document.
func (s *Store) Read(relPath string) (string, error) {
	abs, err := s.resolve(relPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", relPath, err)
	}
	return string(data), nil
}

// Delete removes a stored document. Deleting a missing file is not an error;
// replacement cleanup must be idempotent.
func (s *Store) Delete(relPath string) error {
	abs, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document %s: %w", relPath, err)
	}
	return nil
}

// resolve rejects paths that escape the store root.
func (s *Store) resolve(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid document path %q", relPath)
	}
	return filepath.Join(s.root, clean), nil
}
