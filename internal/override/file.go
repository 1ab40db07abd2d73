package override

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vilniusrent/valuation-cli/internal/district"
)

// FileStore persists the override set as a single JSON list, mirroring the
// original client-local storage. Every mutation rewrites the whole set
// atomically: either the new file lands or the prior state stays intact.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore at the given path. The file is created on
// first Apply; a missing file reads as an empty set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) List(ctx context.Context) ([]Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

func (s *FileStore) Apply(ctx context.Context, o Override) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	overrides := s.read()
	replaced := false
	for i := range overrides {
		if overrides[i].RawName == o.RawName {
			overrides[i] = o
			replaced = true
			break
		}
	}
	if !replaced {
		overrides = append(overrides, o)
	}

	return s.write(overrides)
}

func (s *FileStore) Remove(ctx context.Context, rawName string) (*district.CanonicalDistrict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	overrides := s.read()
	for i, o := range overrides {
		if o.RawName == rawName {
			previous := o.PreviousDistrict
			overrides = append(overrides[:i], overrides[i+1:]...)
			if err := s.write(overrides); err != nil {
				return nil, err
			}
			return previous, nil
		}
	}
	return nil, eris.Errorf("override: no override for %q", rawName)
}

func (s *FileStore) Close() error { return nil }

// read loads the persisted set. Unreadable or corrupt data degrades to an
// empty set with a warning; override persistence is a curation aid, never a
// fatal path.
func (s *FileStore) read() []Override {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("override: unreadable store, using empty set",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		return nil
	}

	var overrides []Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		zap.L().Warn("override: corrupt store, using empty set",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return nil
	}
	return overrides
}

// write replaces the whole set via temp file and rename.
func (s *FileStore) write(overrides []Override) error {
	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return eris.Wrap(err, "override: marshal set")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "override: create store dir")
	}

	tmp, err := os.CreateTemp(dir, ".overrides-*.json")
	if err != nil {
		return eris.Wrap(err, "override: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "override: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "override: close temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "override: replace store file")
	}
	return nil
}
