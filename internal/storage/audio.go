// Package storage holds uploaded audio blobs on local disk, keyed by opaque
// object keys so filenames supplied by browsers never touch the filesystem.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AudioStore writes and reads recording blobs under a single root directory.
type AudioStore struct {
	root string
}

// NewAudioStore ensures the root directory exists and returns the store.
func NewAudioStore(root string) (*AudioStore, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("audio store: mkdir %s: %w", root, err)
	}
	return &AudioStore{root: root}, nil
}

// Save streams src into a new blob and returns its key. The original
// filename contributes only its extension.
func (s *AudioStore) Save(src io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" || len(ext) > 8 {
		ext = ".webm"
	}
	key := uuid.NewString() + ext
	f, err := os.Create(filepath.Join(s.root, key))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return key, nil
}

// Open returns a reader over a stored blob. The caller closes it.
func (s *AudioStore) Open(key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(s.root, key))
}

// Remove deletes a blob. Missing blobs are not an error; the DB row is the
// source of truth and may outlive the file.
func (s *AudioStore) Remove(key string) error {
	if !validKey(key) {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// validKey rejects anything that is not a bare filename we generated.
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, "/\\") && key == filepath.Base(key)
}
