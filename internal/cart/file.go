package cart

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilePersister keeps one JSON file per storage key in Dir.
type FilePersister struct {
	Dir string
}

func (f FilePersister) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(f.Dir, safe+".json")
}

// Load reads the snapshot file for key.
func (f FilePersister) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("cart: read snapshot: %w", err)
	}
	return data, nil
}

// Save replaces the snapshot file atomically through a temp file and rename.
func (f FilePersister) Save(_ context.Context, key string, blob []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("cart: create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.Dir, ".cart-*.tmp")
	if err != nil {
		return fmt.Errorf("cart: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("cart: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("cart: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("cart: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		cleanup()
		return fmt.Errorf("cart: replace snapshot: %w", err)
	}
	return nil
}
