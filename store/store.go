// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
store provides durable storage for the session Credential. The credential
lives under the single well-known key "sessionToken"; clearing a store
removes everything it holds.
*/
package store

import (
	"errors"

	"github.com/hashicorp/capsignin/session"
	"github.com/hashicorp/go-hclog"
)

// Key is the well-known key of the session credential.
const Key = "sessionToken"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrCorrupt          = errors.New("corrupt credential store")
)

var (
	_ session.CredentialStore = (*MemoryStore)(nil)
	_ session.CredentialStore = (*FileStore)(nil)
)

// Error indicates a credential storage failure.
type Error struct {
	// Operation is one of "load", "save" or "clear".
	Operation string
	Path      string
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Operation + " credential"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

type options struct {
	withLogger hclog.Logger
}

func getOpts(opt ...Option) options {
	opts := options{withLogger: hclog.NewNullLogger()}
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && l != nil {
			o.withLogger = l
		}
	}
}
