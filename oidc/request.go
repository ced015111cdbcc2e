// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/capsignin/oidc/internal/strutils"
	"golang.org/x/text/language"
)

// Prompt is a string values that specifies whether the Authorization Server
// prompts the End-User for reauthentication and consent.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#AuthRequest
type Prompt string

const (
	None          Prompt = "none"
	Login         Prompt = "login"
	Consent       Prompt = "consent"
	SelectAccount Prompt = "select_account"
)

// Request basically represents one OIDC authentication attempt for a user. It
// contains the data needed to uniquely represent that one-time flow across the
// redirect to the provider and back. State() is passed throughout the OIDC
// interactions to uniquely identify the attempt. The State() and Nonce()
// cannot be equal, and will be used during the OIDC flow to prevent CSRF and
// replay attacks.
type Request interface {
	// State is a unique identifier and an opaque value used to maintain
	// request between the oidc request and the callback.
	State() string

	// Nonce is a unique nonce used to associate a client session with an
	// id_token, and to mitigate replay attacks.
	Nonce() string

	// IsExpired returns true if the request has expired.
	IsExpired() bool

	// RedirectURL is the URL the provider should redirect to after the user
	// authenticates.
	RedirectURL() string

	// Scopes is a list of additional scopes to request.
	Scopes() []string

	// PKCEVerifier is the code verifier sent with the token exchange.
	PKCEVerifier() CodeVerifier

	// Prompts is an optional list of prompts sent to the provider.
	Prompts() []Prompt

	// UILocales optionally specifies the End-User's preferred languages for
	// the provider's user interface, in order of preference.
	UILocales() []language.Tag
}

// Req represents the oidc request used for oidc flows and implements the
// Request interface.
type Req struct {
	state       string
	nonce       string
	expiration  time.Time
	redirectURL string
	scopes      []string
	verifier    CodeVerifier
	prompts     []Prompt
	uiLocales   []language.Tag

	// nowFunc is an optional function that returns the current time
	nowFunc func() time.Time
	skew    time.Duration
}

// ensure that Req implements the Request interface
var _ Request = (*Req)(nil)

// NewRequest creates a new Request (*Req). A PKCE code verifier is always
// generated unless one is provided with WithPKCE.
//
// Supports the options:
//   - WithNow
//   - WithScopes
//   - WithPKCE
//   - WithPrompts
//   - WithExpirySkew
//   - WithUILocales
func NewRequest(expireIn time.Duration, redirectURL string, opt ...Option) (*Req, error) {
	const op = "oidc.NewRequest"
	opts := getReqOpts(opt...)
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}
	nonce, err := NewID("n")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's nonce: %w", op, err)
	}
	state, err := NewID("st")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's state: %w", op, err)
	}
	verifier := opts.withVerifier
	if verifier == nil {
		v, err := NewCodeVerifier()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		verifier = v
	}
	r := &Req{
		state:       state,
		nonce:       nonce,
		redirectURL: redirectURL,
		verifier:    verifier,
		prompts:     opts.withPrompts,
		uiLocales:   opts.withUILocales,
		nowFunc:     opts.withNowFunc,
		skew:        opts.withExpirySkew,
	}
	if len(opts.withScopes) > 0 {
		r.scopes = strutils.RemoveDuplicatesStable(append([]string{oidc.ScopeOpenID}, opts.withScopes...), false)
	}
	r.expiration = r.now().Add(expireIn)
	return r, nil
}

func (r *Req) State() string              { return r.state }       // State implements the Request.State() interface function.
func (r *Req) Nonce() string              { return r.nonce }       // Nonce implements the Request.Nonce() interface function.
func (r *Req) RedirectURL() string        { return r.redirectURL } // RedirectURL implements the Request.RedirectURL() interface function.
func (r *Req) Scopes() []string           { return r.scopes }      // Scopes implements the Request.Scopes() interface function.
func (r *Req) PKCEVerifier() CodeVerifier { return r.verifier }    // PKCEVerifier implements the Request.PKCEVerifier() interface function.
func (r *Req) Prompts() []Prompt          { return r.prompts }     // Prompts implements the Request.Prompts() interface function.

// UILocales implements the Request.UILocales() interface function.
func (r *Req) UILocales() []language.Tag { return r.uiLocales }

// DefaultRequestExpirySkew defines a default time skew when checking a
// Request's expiration.
const DefaultRequestExpirySkew = 1 * time.Second

// IsExpired returns true if the request has expired.
func (r *Req) IsExpired() bool {
	return r.expiration.Before(r.now().Add(r.skew))
}

// now returns the current time using the optional nowFunc.
func (r *Req) now() time.Time {
	if r.nowFunc != nil {
		return r.nowFunc()
	}
	return time.Now() // fallback to this default
}

// reqOptions is the set of available options for Req functions
type reqOptions struct {
	withNowFunc    func() time.Time
	withScopes     []string
	withVerifier   CodeVerifier
	withPrompts    []Prompt
	withUILocales  []language.Tag
	withExpirySkew time.Duration
}

// reqDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func reqDefaults() reqOptions {
	return reqOptions{
		withExpirySkew: DefaultRequestExpirySkew,
	}
}

// getReqOpts gets the request defaults and applies the opt overrides passed in
func getReqOpts(opt ...Option) reqOptions {
	opts := reqDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithPKCE provides an option to use a CodeVerifier with the authorization
// code flow.
//
// Valid for: Request
func WithPKCE(v CodeVerifier) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withVerifier = v
		}
	}
}

// WithPrompts provides an optional list of values that specifies whether the
// provider prompts the user for reauthentication, consent or account
// selection.
//
// Valid for: Request
func WithPrompts(prompts ...Prompt) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withPrompts = prompts
		}
	}
}

// WithUILocales provides an optional list of the End-User's preferred
// languages for the provider's login pages.
//
// Valid for: Request
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#AuthRequest
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withUILocales = locales
		}
	}
}
