package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the blob as a raw file, like an EEPROM image.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// ReadBlob implements Store.
func (s *FileStore) ReadBlob(context.Context) ([]byte, error) {
	blob, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return blob, err
}

// WriteBlob implements Store. The file is replaced atomically.
func (s *FileStore) WriteBlob(_ context.Context, blob []byte) error {
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
