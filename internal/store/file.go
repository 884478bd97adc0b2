package store

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

	"github.com/observatoire/observatoire/internal/domain"
)

// FileStore is a Repository backed by one JSON file.
//
// Read-modify-write cycles are serialised with an in-process mutex, so
// concurrent refreshes of different agencies never drop each other's
// update. Separate processes sharing the file are not coordinated.
type FileStore struct {
	path string

	mu     sync.Mutex
	rename func(oldpath, newpath string) error // injectable for tests
}

var (
	_ Repository = (*FileStore)(nil)
	_ Seeder     = (*FileStore)(nil)
)

// NewFileStore returns a FileStore for the JSON file at path. The file
// need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, rename: os.Rename}
}

// Path returns the data file location.
func (s *FileStore) Path() string { return s.path }

// ReadAll decodes the data file. A missing or empty file yields an empty
// slice; an undecodable file yields a domain.KindIO error.
func (s *FileStore) ReadAll(_ context.Context) ([]domain.Agency, error) {
	return s.load("store.read")
}

// UpdateByURL replaces the latest audit of the agency at url and rewrites
// the file. The file is untouched when the agency is unknown.
func (s *FileStore) UpdateByURL(_ context.Context, url string, audit domain.AuditResult) error {
	const op = "store.update"

	s.mu.Lock()
	defer s.mu.Unlock()

	agencies, err := s.load(op)
	if err != nil {
		return err
	}

	idx := -1
	for i := range agencies {
		if agencies[i].URL == url {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NotFound(op, url)
	}

	a := audit
	agencies[idx].LatestAudit = &a
	return s.write(op, agencies)
}

// Seed appends agencies whose URL is not yet in the file.
func (s *FileStore) Seed(_ context.Context, agencies []domain.Agency) (int, error) {
	const op = "store.seed"

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(op)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[a.URL] = true
	}

	inserted := 0
	for _, a := range agencies {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		existing = append(existing, a)
		inserted++
	}
	if inserted == 0 {
		return 0, nil
	}
	return inserted, s.write(op, existing)
}

func (s *FileStore) load(op string) ([]domain.Agency, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Agency{}, nil
	}
	if err != nil {
		return nil, domain.Wrap(op, domain.KindIO, err, "could not read data file")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Agency{}, nil
	}

	var agencies []domain.Agency
	if err := json.Unmarshal(data, &agencies); err != nil {
		return nil, domain.Wrap(op, domain.KindIO, err, "data file is not a valid agency list")
	}
	if agencies == nil {
		agencies = []domain.Agency{}
	}
	return agencies, nil
}

// write replaces the data file atomically: encode, write a sibling temp
// file, fsync, then rename over the original.
func (s *FileStore) write(op string, agencies []domain.Agency) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(agencies); err != nil {
		return domain.Wrap(op, domain.KindIO, err, "could not encode data file")
	}

	perm := fs.FileMode(0o644)
	if fi, err := os.Stat(s.path); err == nil {
		perm = fi.Mode().Perm()
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return domain.Wrap(op, domain.KindIO, err, "failed to write data file; check file permissions")
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return domain.Wrap(op, domain.KindIO, err, "failed to write data file; check file permissions")
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return domain.Wrap(op, domain.KindIO, err, "failed to write data file; check file permissions")
	}
	if err := s.rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return domain.Wrap(op, domain.KindIO, fmt.Errorf("rename %s: %w", tmpPath, err),
			"failed to write data file; check file permissions")
	}
	return nil
}
