package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/playperu/whereami/internal/whereami"
)

// FileStore keeps the catalog as a JSON array on disk. The whole file is read
// on Load and rewritten on Save.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) ([]whereami.Location, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var locs []whereami.Location
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return locs, nil
}

// Save writes to a temp file and renames it over the catalog so readers never
// observe a half-written array.
func (s *FileStore) Save(_ context.Context, locs []whereami.Location) error {
	if locs == nil {
		locs = []whereami.Location{}
	}
	data, err := json.Marshal(locs)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}
