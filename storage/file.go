// Copyright 2025 The PeopleBlood Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileStore keeps one file per key under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates a new file store instance rooted at the given directory.
// The directory is created on first write.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Ensures that the root directory exists.
func (s *FileStore) rootMustExist() error {
	if err := os.MkdirAll(s.root, 0o700); err != nil {
		return fmt.Errorf("setting up file store: %w", err)
	}

	return nil
}

// Keys are escaped so arbitrary strings map to a single file name.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.root, url.PathEscape(key)+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(s.path(key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("reading %q: %w", key, err)
	}

	return data, nil
}

// Set writes through a temporary file and a rename so readers never observe
// a partially written value.
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	if err := s.rootMustExist(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmp.Write(value); err != nil {
		return errors.Join(
			fmt.Errorf("writing %q: %w", key, err),
			tmp.Close(),
			os.Remove(tmp.Name()),
		)
	}

	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("closing %q: %w", key, err), os.Remove(tmp.Name()))
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return errors.Join(fmt.Errorf("replacing %q: %w", key, err), os.Remove(tmp.Name()))
	}

	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %q: %w", key, err)
	}

	return nil
}
