// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import "time"

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// WithExpirySkew provides an optional expiry skew duration for: Token, Request
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *tokenOptions:
			v.withExpirySkew = d
		case *reqOptions:
			v.withExpirySkew = d
		}
	}
}

// WithNow provides an optional func for determining what the current time it
// is. Supported by: Request, Token
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if now == nil {
			return
		}
		switch v := o.(type) {
		case *reqOptions:
			v.withNowFunc = now
		case *tokenOptions:
			v.withNowFunc = now
		}
	}
}

// WithScopes provides an optional list of scopes. Supported by: Config,
// Request
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withScopes = scopes
		case *reqOptions:
			v.withScopes = scopes
		}
	}
}

// WithAudiences provides an optional list of audiences used when verifying
// an id_token's "aud" claim. Supported by: Config
func WithAudiences(auds ...string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withAudiences = auds
		}
	}
}
