package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte) (string, error) {
	dest := filepath.Join(s.dir, filepath.Base(key))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload %s: %w", key, err)
	}
	return dest, nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", key, err)
	}
	return data, nil
}
