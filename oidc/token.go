// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Token interface represents an OIDC id_token, as well as an Oauth2
// access_token and refresh_token (including the the access_token expiry).
type Token interface {
	// RefreshToken returns the Token's refresh_token.
	RefreshToken() RefreshToken

	// AccessToken returns the Token's access_token.
	AccessToken() AccessToken

	// IDToken returns the Token's id_token.
	IDToken() IDToken

	// Expiry returns the expiration of the access_token.
	Expiry() time.Time

	// Valid will ensure that the access_token is not empty or expired.
	Valid() bool

	// IsExpired returns true if the token has expired.
	IsExpired() bool
}

// Tk satisfies the Token interface and represents an Oauth2 access_token and
// refresh_token (including the the access_token expiry), as well as an OIDC
// id_token. The access_token and refresh_token may be empty.
type Tk struct {
	idToken IDToken
	expiry  time.Time
	access  AccessToken
	refresh RefreshToken
	skew    time.Duration

	// nowFunc is an optional function that returns the current time
	nowFunc func() time.Time
}

// ensure that Tk implements the Token interface.
var _ Token = (*Tk)(nil)

// NewToken creates a new Token (*Tk). The IDToken is required and the
// *oauth2.Token may be nil.
//
// Supports the WithNow and WithExpirySkew options.
func NewToken(i IDToken, t *oauth2.Token, opt ...Option) (*Tk, error) {
	const op = "oidc.NewToken"
	if i == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	opts := getTokenOpts(opt...)
	tk := &Tk{
		idToken: i,
		skew:    opts.withExpirySkew,
		nowFunc: opts.withNowFunc,
	}
	if t != nil {
		tk.access = AccessToken(t.AccessToken)
		tk.refresh = RefreshToken(t.RefreshToken)
		tk.expiry = t.Expiry
	}
	return tk, nil
}

// AccessToken implements the Token.AccessToken() interface function.
func (t *Tk) AccessToken() AccessToken { return t.access }

// RefreshToken implements the Token.RefreshToken() interface function.
func (t *Tk) RefreshToken() RefreshToken { return t.refresh }

// IDToken implements the Token.IDToken() interface function.
func (t *Tk) IDToken() IDToken { return t.idToken }

// Expiry implements the Token.Expiry() interface function.
func (t *Tk) Expiry() time.Time { return t.expiry }

// StaticTokenSource returns a TokenSource that always returns the same token.
// Because the provided token t is never refreshed. It will return nil, if the
// t.AccessToken() is empty.
func (t *Tk) StaticTokenSource() oauth2.TokenSource {
	if t.access == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: string(t.access),
		Expiry:      t.expiry,
	})
}

// IsExpired will return true if the token's access_token is expired or empty.
func (t *Tk) IsExpired() bool {
	if t.access == "" {
		return true
	}
	if t.expiry.IsZero() {
		return false
	}
	return t.expiry.Round(0).Before(t.now().Add(t.skew))
}

// Valid will ensure that the access_token is not empty or expired. It will
// return false if t.AccessToken() is empty.
func (t *Tk) Valid() bool {
	if t == nil || t.access == "" {
		return false
	}
	return !t.IsExpired()
}

// now returns the current time using the optional timeFn
func (t *Tk) now() time.Time {
	if t.nowFunc != nil {
		return t.nowFunc()
	}
	return time.Now() // fallback to this default
}

// tokenOptions is the set of available options for Token functions
type tokenOptions struct {
	withExpirySkew time.Duration
	withNowFunc    func() time.Time
}

// DefaultTokenExpirySkew defines a time skew when checking a Token's
// expiration.
const DefaultTokenExpirySkew = 10 * time.Second

// tokenDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func tokenDefaults() tokenOptions {
	return tokenOptions{
		withExpirySkew: DefaultTokenExpirySkew,
	}
}

// getTokenOpts gets the token defaults and applies the opt overrides passed in
func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
