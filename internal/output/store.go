package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrArtifactExists is returned by Store.Publish when the key is taken.
var ErrArtifactExists = errors.New("artifact already exists")

// Store publishes finished artifact files under a key. Stores never
// overwrite an existing key.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Publish(ctx context.Context, key, src, contentType string) error
	Location(key string) string
}

// LocalStore keeps artifacts in a directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Location(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.Location(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Publish copies src into the directory next to its destination and links
// it into place, so the artifact appears complete or not at all.
func (s *LocalStore) Publish(_ context.Context, key, src, _ string) error {
	tmp, err := os.CreateTemp(s.dir, ".cimt-*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if err := copyFile(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("stage %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}

	if err := os.Link(tmp.Name(), s.Location(key)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", key, ErrArtifactExists)
		}
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func copyFile(dst *os.File, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(dst, in)
	return err
}
