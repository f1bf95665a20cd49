// Package artifacts abstracts the binary store the download gateway
// pulls release builds from.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNotFound = errors.New("artifact not found")

// Store fetches a release binary by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// DirStore serves artifacts from a local directory, one file per key.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (s *DirStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" || key != filepath.Base(key) {
		return nil, fmt.Errorf("invalid artifact key %q", key)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}
