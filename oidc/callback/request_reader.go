// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"sync"

	"github.com/hashicorp/capsignin/oidc"
)

// RequestReader defines an interface for finding and reading an oidc.Request
//
// Implementations must be concurrently safe, since the reader will likely be
// used within a concurrent http.Handler
type RequestReader interface {
	// Read an existing Request entry. The returned request's State()
	// must match the state used to look it up. Implementations must be
	// concurrently safe, which likely means returning a deep copy.
	Read(ctx context.Context, state string) (oidc.Request, error)
}

// SingleRequestReader implements the RequestReader interface for a single
// pending request. It is concurrently safe.
type SingleRequestReader struct {
	mu      sync.Mutex
	request oidc.Request
}

// NewSingleRequestReader returns a reader holding r, which may be nil.
func NewSingleRequestReader(r oidc.Request) *SingleRequestReader {
	return &SingleRequestReader{request: r}
}

// Set replaces the pending request. A nil r clears it.
func (sr *SingleRequestReader) Set(r oidc.Request) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.request = r
}

// Pending returns the pending request, if any.
func (sr *SingleRequestReader) Pending() oidc.Request {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.request
}

// Read() will return its single request if the state matches its
// Request.State(), otherwise it returns an error of oidc.ErrNotFound. It
// satisfies the RequestReader interface.
func (sr *SingleRequestReader) Read(_ context.Context, state string) (oidc.Request, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.request == nil || sr.request.State() != state {
		return nil, oidc.ErrNotFound
	}
	return sr.request, nil
}
