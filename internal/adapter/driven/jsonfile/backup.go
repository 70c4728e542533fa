package jsonfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// backupStampLayout sorts lexicographically in chronological order.
const backupStampLayout = "20060102-150405.000000000"

// backup copies the current data file into the backup directory and prunes
// old copies. Missing or empty files are not backed up.
func (s *Store) backup() error {
	if s.keepBackups < 0 {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s for backup: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return fmt.Errorf("ensure backup dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.bak", filepath.Base(s.path), time.Now().UTC().Format(backupStampLayout))
	if err := atomic.WriteFile(filepath.Join(s.backupDir, name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	return s.pruneBackups()
}

// Backups returns the backup file paths, oldest first.
func (s *Store) Backups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	prefix := filepath.Base(s.path) + "."
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".bak") {
			continue
		}
		paths = append(paths, filepath.Join(s.backupDir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Store) pruneBackups() error {
	paths, err := s.Backups()
	if err != nil {
		return err
	}
	if len(paths) <= s.keepBackups {
		return nil
	}

	for _, p := range paths[:len(paths)-s.keepBackups] {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove old backup: %w", err)
		}
	}
	return nil
}
