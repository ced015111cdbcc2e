// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/capsignin/oidc/internal/strutils"
	sdkHttp "github.com/hashicorp/capsignin/sdk/http"
)

// DefaultHTTPTimeout is the timeout used for requests to the provider.
const DefaultHTTPTimeout = 30 * time.Second

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration for an OIDC public client using the
// authorization code flow with PKCE.
type Config struct {
	// ClientID is the relying party ID.
	ClientID string

	// ClientSecret is the relying party secret. Public clients (the normal
	// case for this package) leave it empty and rely on PKCE.
	ClientSecret ClientSecret

	// Scopes is a list of default oidc scopes to request of the provider. The
	// required "openid" scope is requested by default, and does not need to be
	// part of this optional list.
	Scopes []string

	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.
	Issuer string

	// SupportedSigningAlgs is a list of supported signing algorithms.
	SupportedSigningAlgs []Alg

	// AllowedRedirectURLs is a list of allowed URLs for the provider to
	// redirect to after a user authenticates.
	AllowedRedirectURLs []string

	// Audiences is an optional list of case-sensitive strings to use when
	// verifying an id_token's "aud" claim (which is also a list). If
	// provided, the audiences of an id_token must match one of the
	// configured audiences.
	Audiences []string

	// ProviderCA is an optional CA certs (PEM encoded) to use when sending
	// requests to the provider.
	ProviderCA string

	// SkipIssuerCheck allows a discovery document whose issuer does not match
	// the configured Issuer and skips the id_token "iss" check. Multi-tenant
	// authorities (for example .../common/v2.0) need it.
	SkipIssuerCheck bool
}

// NewConfig composes a new config for a provider.
//
// The "openid" scope will always be added to the list of scopes.
//
// Supported options:
//
//	WithProviderCA
//	WithScopes
//	WithAudiences
//	WithSkipIssuerCheck
func NewConfig(issuer string, clientID string, clientSecret ClientSecret, supported []Alg, allowedRedirectURLs []string, opt ...Option) (*Config, error) {
	const op = "oidc.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:               issuer,
		ClientID:             clientID,
		ClientSecret:         clientSecret,
		SupportedSigningAlgs: supported,
		AllowedRedirectURLs:  allowedRedirectURLs,
		Scopes:               opts.withScopes,
		Audiences:            opts.withAudiences,
		ProviderCA:           opts.withProviderCA,
		SkipIssuerCheck:      opts.withSkipIssuerCheck,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration. Among other validations, it verifies
// the issuer is not empty, but it doesn't verify the Issuer is discoverable
// via an http request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%s: client ID is empty: %w", op, ErrInvalidParameter)
	}
	if c.Issuer == "" {
		return fmt.Errorf("%s: discovery URL is empty: %w", op, ErrInvalidParameter)
	}
	if len(c.AllowedRedirectURLs) == 0 {
		return fmt.Errorf("%s: allowed redirect URLs are empty: %w", op, ErrInvalidParameter)
	}
	for _, r := range c.AllowedRedirectURLs {
		if _, err := url.Parse(r); err != nil {
			return fmt.Errorf("%s: redirect URL %s is invalid: %w", op, r, ErrInvalidParameter)
		}
	}
	u, err := url.Parse(c.Issuer)
	if err != nil {
		return fmt.Errorf("%s: issuer %s is invalid (%s): %w", op, c.Issuer, err, ErrInvalidIssuer)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
		return fmt.Errorf("%s: issuer %s schema is not http or https: %w", op, c.Issuer, ErrInvalidIssuer)
	}
	if len(c.SupportedSigningAlgs) == 0 {
		return fmt.Errorf("%s: supported algorithms is empty: %w", op, ErrInvalidParameter)
	}
	for _, a := range c.SupportedSigningAlgs {
		if !supportedAlgorithms[a] {
			return fmt.Errorf("%s: unsupported algorithm %s: %w", op, a, ErrUnsupportedAlg)
		}
	}
	return nil
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA, DefaultHTTPTimeout)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options
type configOptions struct {
	withScopes          []string
	withAudiences       []string
	withProviderCA      string
	withSkipIssuerCheck bool
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithProviderCA provides optional CA certs (PEM encoded) for the provider's
// config. These certs will be used when making http requests to the
// provider.
//
// Valid for: Config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithSkipIssuerCheck disables issuer matching for multi-tenant authorities.
//
// Valid for: Config
func WithSkipIssuerCheck() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSkipIssuerCheck = true
		}
	}
}
