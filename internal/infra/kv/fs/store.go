// Package fs stores each collection as a JSON file under a root directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trainingcore/pkg/domain"
)

var _ domain.KeyValueStore = (*Store)(nil)

const fileSuffix = ".json"

// Store maps key k to <root>/<k>.json. Writes go to a temp file in the same
// directory and are renamed into place.
type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./trainingdata"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create kv root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory holding the collection files.
func (s *Store) Root() string { return s.root }

// Driver implements domain.KeyValueStore.
func (s *Store) Driver() domain.Driver { return domain.DriverFilesystem }

// sanitizeKey keeps keys to a single path element inside root.
func sanitizeKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" || k == "." || strings.Contains(k, "..") || strings.ContainsAny(k, `/\`) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidKey, key)
	}
	return k, nil
}

func (s *Store) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, k+fileSuffix), nil
}

// Get implements domain.KeyValueStore.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, false, err
	}
	// #nosec G304 -- path is built from a sanitized single-element key under root
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements domain.KeyValueStore.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Close implements domain.KeyValueStore.
func (s *Store) Close() error { return nil }
