// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

// DefaultVerificationScopes are the scopes of the token whose id_token is
// sent to the backend.
var DefaultVerificationScopes = []string{"User.Read"}

type options struct {
	withLogger                hclog.Logger
	withLoginScopes           []string
	withVerificationScopes    []string
	withPrompt                string
	withLogoutRedirect        bool
	withPostLogoutRedirectURL string
}

func getDefaults() options {
	return options{
		withLogger:             hclog.NewNullLogger(),
		withVerificationScopes: DefaultVerificationScopes,
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
//
// Valid for: all constructors in this package
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithLoginScopes provides the scopes requested by an interactive login. When
// empty the provider's configured scopes are used.
//
// Valid for: NewAccountResolver, NewCoordinator
func WithLoginScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withLoginScopes = scopes
		}
	}
}

// WithVerificationScopes provides the scopes of the silently acquired token
// sent to the backend. Defaults to DefaultVerificationScopes.
//
// Valid for: NewCredentialExchange, NewCoordinator
func WithVerificationScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && len(scopes) > 0 {
			o.withVerificationScopes = scopes
		}
	}
}

// WithPrompt provides the prompt policy of an interactive login, for example
// "select_account".
//
// Valid for: NewAccountResolver, NewCoordinator
func WithPrompt(prompt string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withPrompt = prompt
		}
	}
}

// WithLogoutRedirect ends the provider's session through its hosted end
// session page on logout, which also clears the provider's own session
// cookie. postLogoutRedirectURL is where the provider sends the browser
// afterwards; it may be empty.
//
// Valid for: NewCredentialExchange, NewCoordinator
func WithLogoutRedirect(postLogoutRedirectURL string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withLogoutRedirect = true
			o.withPostLogoutRedirectURL = postLogoutRedirectURL
		}
	}
}
