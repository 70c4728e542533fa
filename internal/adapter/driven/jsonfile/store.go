// Package jsonfile implements the local wishlist store backed by a single JSON
// file. It is the fallback used whenever the remote document store cannot be
// reached.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
)

// DefaultFileName is the fallback file in the working directory.
const DefaultFileName = "wunschliste.json"

const (
	defaultBackupDirName = ".wunschliste-backups"
	defaultKeepBackups   = 5
)

// Compile-time interface satisfaction check.
var _ driven.WishStore = (*Store)(nil)

// Options tunes backup behaviour. Zero values select the defaults.
type Options struct {
	// BackupDir receives a copy of the previous file before every rewrite.
	// Defaults to .wunschliste-backups next to the data file.
	BackupDir string
	// KeepBackups is the number of backups retained. Zero means 5, negative
	// disables backups.
	KeepBackups int
}

// Store is the JSON file implementation of the WishStore port interface.
// Every operation reads the file afresh; writes replace it atomically.
type Store struct {
	mu          sync.Mutex
	path        string
	backupDir   string
	keepBackups int
}

// Open prepares the store at path. A missing file is created with an empty
// list. An existing file must parse as a wishlist, otherwise Open returns an
// error wrapping driven.ErrStoreCorrupt and leaves the file untouched.
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		path = DefaultFileName
	}

	s := &Store{
		path:        path,
		backupDir:   opts.BackupDir,
		keepBackups: opts.KeepBackups,
	}
	if s.backupDir == "" {
		s.backupDir = filepath.Join(filepath.Dir(path), defaultBackupDirName)
	}
	if s.keepBackups == 0 {
		s.keepBackups = defaultKeepBackups
	}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := atomic.WriteFile(path, bytes.NewReader([]byte("[]\n"))); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if _, err := s.load(); err != nil {
		return nil, err
	}

	// Check write permission without modifying the content.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s for writing: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", path, err)
	}

	// Rewrites create a temp file next to the data file.
	if err := checkDirWritable(filepath.Dir(path)); err != nil {
		return nil, err
	}

	return s, nil
}

func checkDirWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".wunschliste-check-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Path returns the data file location.
func (s *Store) Path() string {
	return s.path
}

// Backend reports model.BackendLocalFile.
func (s *Store) Backend() model.Backend {
	return model.BackendLocalFile
}

// Close is a no-op; the store holds no open handles between operations.
func (s *Store) Close() error {
	return nil
}

// List returns all wishes in file order.
func (s *Store) List(ctx context.Context) ([]model.Wish, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	wishes := make([]model.Wish, 0, len(records))
	for _, r := range records {
		wishes = append(wishes, r.toModel())
	}
	return wishes, nil
}

// Get returns the wish with the given ID, or (nil, nil) if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*model.Wish, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	if i := indexOf(records, id); i >= 0 {
		w := records[i].toModel()
		return &w, nil
	}
	return nil, nil
}

// Add appends a wish. Returns driven.ErrWishAlreadyExists if the ID is taken.
func (s *Store) Add(ctx context.Context, wish model.Wish) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if indexOf(records, wish.ID) >= 0 {
		return fmt.Errorf("add wish %q: %w", wish.ID, driven.ErrWishAlreadyExists)
	}

	records = append(records, fromModel(wish, nil))
	return s.save(records)
}

// Update replaces the stored wish with the same ID. Keys unknown to this
// version are kept. Returns driven.ErrWishNotFound if the wish does not exist.
func (s *Store) Update(ctx context.Context, wish model.Wish) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(records, wish.ID)
	if i < 0 {
		return fmt.Errorf("update wish %q: %w", wish.ID, driven.ErrWishNotFound)
	}

	records[i] = fromModel(wish, &records[i])
	return s.save(records)
}

// Remove deletes the wish with the given ID. Returns driven.ErrWishNotFound if
// the wish does not exist.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return fmt.Errorf("remove wish %q: %w", id, driven.ErrWishNotFound)
	}

	records = append(records[:i], records[i+1:]...)
	return s.save(records)
}

// load reads and validates the data file. A missing or empty file is an empty list.
func (s *Store) load() ([]wishRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []wishRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []wishRecord{}, nil
	}

	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", driven.ErrStoreCorrupt, s.path, err)
	}

	var records []wishRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", driven.ErrStoreCorrupt, s.path, err)
	}
	if records == nil {
		records = []wishRecord{}
	}
	return records, nil
}

// save backs up the current file and atomically replaces it with records.
func (s *Store) save(records []wishRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode wishlist: %w", err)
	}

	if err := s.backup(); err != nil {
		return err
	}

	if err := atomic.WriteFile(s.path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func indexOf(records []wishRecord, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
