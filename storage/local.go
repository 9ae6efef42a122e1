package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage keeps documents under a root directory on disk.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) path(location string) string {
	return filepath.Join(s.root, filepath.FromSlash(location))
}

func (s *LocalStorage) Save(ctx context.Context, location string, data io.Reader, size int64) error {
	full := s.path(location)
	if err := os.MkdirAll(filepath.Dir(full), os.ModePerm); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, data)
	return err
}

func (s *LocalStorage) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return os.Open(s.path(location))
}

func (s *LocalStorage) Delete(ctx context.Context, location string) error {
	err := os.Remove(s.path(location))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStorage) Exists(ctx context.Context, location string) (bool, error) {
	_, err := os.Stat(s.path(location))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
