// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/capsignin/session"
	"github.com/hashicorp/go-hclog"
)

// FileStore keeps the credential in a JSON key/value file readable only by
// its owner. Clear removes the file. It's safe for concurrent use within one
// process.
//
// The credential survives a host restart while the client's account cache
// doesn't. Routing then asks for a fresh sign-in, which replaces the
// credential, but a logout before that still sends the stored credential to
// the backend so the earlier backend session is ended.
type FileStore struct {
	path   string
	logger hclog.Logger

	mu sync.Mutex
}

// NewFileStore creates a FileStore at path. The file and its directory are
// created on the first Save.
//
// Supported options: WithLogger
func NewFileStore(path string, opt ...Option) (*FileStore, error) {
	const op = "store.NewFileStore"
	if path == "" {
		return nil, fmt.Errorf("%s: path is empty: %w", op, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	return &FileStore{
		path:   filepath.Clean(path),
		logger: opts.withLogger.Named("store").With("path", path),
	}, nil
}

// Path returns the store's file path.
func (s *FileStore) Path() string { return s.path }

// Load returns the stored credential, or an empty one when nothing is
// stored.
func (s *FileStore) Load(ctx context.Context) (session.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", &Error{Operation: "load", Path: s.path, Cause: err}
	}
	values, err := s.read()
	if err != nil {
		return "", &Error{Operation: "load", Path: s.path, Cause: err}
	}
	return session.Credential(values[Key]), nil
}

// Save overwrites the stored credential, keeping any other entries.
func (s *FileStore) Save(ctx context.Context, c session.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return &Error{Operation: "save", Path: s.path, Cause: err}
	}
	if c == "" {
		return &Error{Operation: "save", Path: s.path, Cause: ErrInvalidParameter}
	}
	values, err := s.read()
	if err != nil {
		s.logger.Warn("replacing unreadable credential store", "error", err)
		values = map[string]string{}
	}
	values[Key] = string(c)
	if err := s.write(values); err != nil {
		return &Error{Operation: "save", Path: s.path, Cause: err}
	}
	s.logger.Debug("credential saved")
	return nil
}

// Clear removes the store's file and everything in it.
func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Operation: "clear", Path: s.path, Cause: err}
	}
	s.logger.Debug("credential store cleared")
	return nil
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return map[string]string{}, nil
	case err != nil:
		return nil, err
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, err)
	}
	return values, nil
}

// write replaces the file atomically.
func (s *FileStore) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
