// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config reads the sign-in host's configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/capsignin/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/language"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultAuthority is the multi-tenant Microsoft identity platform.
const DefaultAuthority = "https://login.microsoftonline.com/common/v2.0"

const defaultOrigin = "http://localhost:4200"

// multiTenant are the Microsoft authority tenants whose discovery document
// advertises a templated issuer rather than the authority itself.
var multiTenant = []string{"common", "organizations", "consumers"}

// Config is the host configuration.
type Config struct {
	ClientID              string        `env:"SIGNIN_CLIENT_ID"`
	Authority             string        `env:"SIGNIN_AUTHORITY"                envDefault:"https://login.microsoftonline.com/common/v2.0"`
	Origin                string        `env:"SIGNIN_ORIGIN"`
	RedirectURL           string        `env:"SIGNIN_REDIRECT_URL"`
	PostLogoutRedirectURL string        `env:"SIGNIN_POST_LOGOUT_REDIRECT_URL"`
	Scopes                []string      `env:"SIGNIN_SCOPES"                   envDefault:"User.Read,profile,email,offline_access" envSeparator:","`
	VerificationScopes    []string      `env:"SIGNIN_VERIFICATION_SCOPES"      envDefault:"User.Read"                              envSeparator:","`
	SigningAlgs           []string      `env:"SIGNIN_SIGNING_ALGS"             envDefault:"RS256"                                  envSeparator:","`
	UILocales             []string      `env:"SIGNIN_UI_LOCALES"                                                                   envSeparator:","`
	SkipIssuerCheck       bool          `env:"SIGNIN_SKIP_ISSUER_CHECK"`
	ProviderCAPEM         string        `env:"SIGNIN_PROVIDER_CA_PEM"`
	BackendURL            string        `env:"SIGNIN_BACKEND_URL"`
	BackendCAPEM          string        `env:"SIGNIN_BACKEND_CA_PEM"`
	BackendTimeout        time.Duration `env:"SIGNIN_BACKEND_TIMEOUT"          envDefault:"30s"`
	BackendAllowHTTP      bool          `env:"SIGNIN_BACKEND_ALLOW_HTTP"`
	LoginRequestTTL       time.Duration `env:"SIGNIN_LOGIN_REQUEST_TTL"        envDefault:"10m"`
	CredentialFile        string        `env:"SIGNIN_CREDENTIAL_FILE"          envDefault:"${HOME}/.signin/credential.json" envExpand:"true"`
	LogoutRedirect        bool          `env:"SIGNIN_LOGOUT_REDIRECT"          envDefault:"true"`
	LogLevel              string        `env:"SIGNIN_LOG_LEVEL"                envDefault:"info"`
	Addr                  string        `env:"SIGNIN_ADDR"                     envDefault:"localhost:4200"`
}

// Load parses the process environment, derives the unset URLs and validates
// the result.
//
// Supported options: WithEnvironment
func Load(opt ...Option) (*Config, error) {
	const op = "config.Load"
	opts := getOpts(opt...)
	var c Config
	envOpts := env.Options{}
	if opts.withEnvironment != nil {
		envOpts.Environment = opts.withEnvironment
	}
	if err := env.ParseWithOptions(&c, envOpts); err != nil {
		return nil, fmt.Errorf("%s: parse env: %w", op, err)
	}
	c.Scopes = trimCSV(c.Scopes)
	c.VerificationScopes = trimCSV(c.VerificationScopes)
	c.SigningAlgs = trimCSV(c.SigningAlgs)
	c.UILocales = trimCSV(c.UILocales)
	c.derive()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// derive fills in the URLs which default relative to the origin.
func (c *Config) derive() {
	origin := strings.TrimSuffix(c.Origin, "/")
	if origin == "" {
		origin = defaultOrigin
		if u, err := url.Parse(c.RedirectURL); err == nil && c.RedirectURL != "" && u.Host != "" {
			origin = u.Scheme + "://" + u.Host
		}
	}
	if c.RedirectURL == "" {
		c.RedirectURL = origin + "/callback"
	}
	if c.PostLogoutRedirectURL == "" {
		c.PostLogoutRedirectURL = origin + "/login"
	}
	if !c.SkipIssuerCheck && isMultiTenant(c.Authority) {
		c.SkipIssuerCheck = true
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_CLIENT_ID is required: %w", ErrInvalidConfig))
	}
	if err := validURL(c.Authority); err != nil {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_AUTHORITY: %w", err))
	}
	if err := validURL(c.RedirectURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_REDIRECT_URL: %w", err))
	}
	if err := validURL(c.PostLogoutRedirectURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_POST_LOGOUT_REDIRECT_URL: %w", err))
	}
	if c.BackendURL == "" {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_BACKEND_URL is required: %w", ErrInvalidConfig))
	} else if err := validURL(c.BackendURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_BACKEND_URL: %w", err))
	} else if strings.HasPrefix(strings.ToLower(c.BackendURL), "http:") && !c.BackendAllowHTTP {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_BACKEND_URL %q is not https and SIGNIN_BACKEND_ALLOW_HTTP is not set: %w", c.BackendURL, ErrInvalidConfig))
	}
	if len(c.SigningAlgs) == 0 {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_SIGNING_ALGS is empty: %w", ErrInvalidConfig))
	}
	for _, l := range c.UILocales {
		if _, err := language.Parse(l); err != nil {
			result = multierror.Append(result, fmt.Errorf("SIGNIN_UI_LOCALES %q: %w: %s", l, ErrInvalidConfig, err))
		}
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_LOG_LEVEL %q is unknown: %w", c.LogLevel, ErrInvalidConfig))
	}
	if c.CredentialFile == "" {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_CREDENTIAL_FILE is empty: %w", ErrInvalidConfig))
	}
	if c.Addr == "" {
		result = multierror.Append(result, fmt.Errorf("SIGNIN_ADDR is empty: %w", ErrInvalidConfig))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// OIDCConfig returns the provider configuration for the public client.
func (c *Config) OIDCConfig() (*oidc.Config, error) {
	const op = "Config.OIDCConfig"
	algs := make([]oidc.Alg, 0, len(c.SigningAlgs))
	for _, a := range c.SigningAlgs {
		algs = append(algs, oidc.Alg(a))
	}
	opts := []oidc.Option{oidc.WithScopes(c.Scopes...)}
	if c.ProviderCAPEM != "" {
		opts = append(opts, oidc.WithProviderCA(c.ProviderCAPEM))
	}
	if c.SkipIssuerCheck {
		opts = append(opts, oidc.WithSkipIssuerCheck())
	}
	oc, err := oidc.NewConfig(c.Authority, c.ClientID, "", algs, []string{c.RedirectURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return oc, nil
}

// UILocaleTags returns the parsed SIGNIN_UI_LOCALES, skipping any which don't
// parse.
func (c *Config) UILocaleTags() []language.Tag {
	tags := make([]language.Tag, 0, len(c.UILocales))
	for _, l := range c.UILocales {
		if t, err := language.Parse(l); err == nil {
			tags = append(tags, t)
		}
	}
	return tags
}

// Logger returns the host's root logger.
func (c *Config) Logger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "signin",
		Level: hclog.LevelFromString(c.LogLevel),
	})
}

func validURL(s string) error {
	u, err := url.Parse(s)
	switch {
	case err != nil:
		return fmt.Errorf("%q is not a URL: %w", s, ErrInvalidConfig)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("%q scheme is not http or https: %w", s, ErrInvalidConfig)
	case u.Host == "":
		return fmt.Errorf("%q has no host: %w", s, ErrInvalidConfig)
	}
	return nil
}

func isMultiTenant(authority string) bool {
	u, err := url.Parse(authority)
	if err != nil || !strings.HasSuffix(u.Hostname(), "login.microsoftonline.com") {
		return false
	}
	tenant, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	for _, t := range multiTenant {
		if strings.EqualFold(tenant, t) {
			return true
		}
	}
	return false
}

func trimCSV(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
