package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type action string

const (
	actionDelete action = "delete"
	actionMove   action = "move"
	actionUpdate action = "update"
	actionAdd    action = "add"
)

type rollbackEntry struct {
	action   action
	path     string
	auxPath  string // move destination
	tempCopy string // snapshot path
}

// Session groups file mutations so an edited pipeline definition can be
// rolled back as a unit. Every mutating call stores its own snapshot, so
// repeated updates of the same file restore to the pre-session content.
type Session struct {
	ID        string
	tempDir   string
	rollbacks []rollbackEntry
	committed bool
	mu        sync.Mutex
}

// NewSession creates a revision session with its own snapshot directory.
func NewSession() (*Session, error) {
	tmp, err := os.MkdirTemp("", "mlgate-patch-*")
	if err != nil {
		return nil, err
	}
	return &Session{ID: filepath.Base(tmp), tempDir: tmp}, nil
}

func (s *Session) backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	rel := strings.TrimPrefix(path, string(os.PathSeparator))
	unique := fmt.Sprintf("%s.%d.bak", rel, time.Now().UnixNano())
	dst := filepath.Join(s.tempDir, unique)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *Session) assertActive() error {
	if s.committed {
		return errors.New("session already committed")
	}
	return nil
}

// Delete removes a file, keeping a snapshot for rollback.
func (s *Session) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.assertActive(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	backup, err := s.backup(path)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	s.rollbacks = append(s.rollbacks, rollbackEntry{action: actionDelete, path: path, tempCopy: backup})
	return nil
}

// Move renames a file.
func (s *Session) Move(src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.assertActive(); err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	s.rollbacks = append(s.rollbacks, rollbackEntry{action: actionMove, path: src, auxPath: dst})
	return nil
}

// Update overwrites an existing file, keeping a snapshot for rollback.
func (s *Session) Update(path string, newData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.assertActive(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	backup, err := s.backup(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, newData, 0o644); err != nil {
		return err
	}
	s.rollbacks = append(s.rollbacks, rollbackEntry{action: actionUpdate, path: path, tempCopy: backup})
	return nil
}

// Add creates a new file; it fails when the file already exists.
func (s *Session) Add(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.assertActive(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("add: file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	s.rollbacks = append(s.rollbacks, rollbackEntry{action: actionAdd, path: path})
	return nil
}

// Rollback restores every file touched by the session, newest change first.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.rollbacks) - 1; i >= 0; i-- {
		entry := s.rollbacks[i]
		switch entry.action {
		case actionDelete, actionUpdate:
			data, err := os.ReadFile(entry.tempCopy)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(entry.path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(entry.path, data, 0o644); err != nil {
				return err
			}
		case actionMove:
			if err := os.Rename(entry.auxPath, entry.path); err != nil {
				return err
			}
		case actionAdd:
			if err := os.Remove(entry.path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("rollback add: %w", err)
			}
		}
	}
	if err := os.RemoveAll(s.tempDir); err != nil {
		return fmt.Errorf("rollback cleanup: %w", err)
	}
	s.rollbacks = nil
	return nil
}

// Commit discards rollback state and removes snapshots.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return nil
	}
	s.committed = true
	s.rollbacks = nil
	if err := os.RemoveAll(s.tempDir); err != nil {
		return fmt.Errorf("commit cleanup: %w", err)
	}
	return nil
}
