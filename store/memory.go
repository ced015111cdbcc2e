// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"sync"

	"github.com/hashicorp/capsignin/session"
)

// MemoryStore keeps the credential in memory. It's safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Load returns the stored credential, or an empty one.
func (s *MemoryStore) Load(context.Context) (session.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session.Credential(s.values[Key]), nil
}

// Save overwrites the stored credential.
func (s *MemoryStore) Save(_ context.Context, c session.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == "" {
		return &Error{Operation: "save", Cause: ErrInvalidParameter}
	}
	s.values[Key] = string(c)
	return nil
}

// Clear removes everything held by the store.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	return nil
}
