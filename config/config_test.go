// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"testing"
	"time"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func testEnv(overrides map[string]string) map[string]string {
	environ := map[string]string{
		"HOME":               "/home/alice",
		"SIGNIN_CLIENT_ID":   "client-id",
		"SIGNIN_BACKEND_URL": "https://api.example.com",
	}
	for k, v := range overrides {
		if v == "" {
			delete(environ, k)
			continue
		}
		environ[k] = v
	}
	return environ
}

func TestLoad(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		environ   map[string]string
		check     func(*assert.Assertions, *Config)
		wantIsErr error
		wantErr   string
	}{
		{
			name:    "defaults",
			environ: testEnv(nil),
			check: func(assert *assert.Assertions, c *Config) {
				assert.Equal(DefaultAuthority, c.Authority)
				assert.Equal("http://localhost:4200/callback", c.RedirectURL)
				assert.Equal("http://localhost:4200/login", c.PostLogoutRedirectURL)
				assert.Equal([]string{"User.Read", "profile", "email", "offline_access"}, c.Scopes)
				assert.Equal([]string{"User.Read"}, c.VerificationScopes)
				assert.Equal([]string{"RS256"}, c.SigningAlgs)
				assert.Equal("/home/alice/.signin/credential.json", c.CredentialFile)
				assert.Equal(30*time.Second, c.BackendTimeout)
				assert.Equal(10*time.Minute, c.LoginRequestTTL)
				assert.True(c.LogoutRedirect)
				assert.True(c.SkipIssuerCheck)
				assert.Equal("localhost:4200", c.Addr)
				assert.Equal("info", c.LogLevel)
			},
		},
		{
			name: "origin",
			environ: testEnv(map[string]string{
				"SIGNIN_ORIGIN": "https://app.example.com/",
			}),
			check: func(assert *assert.Assertions, c *Config) {
				assert.Equal("https://app.example.com/callback", c.RedirectURL)
				assert.Equal("https://app.example.com/login", c.PostLogoutRedirectURL)
			},
		},
		{
			name: "post-logout-from-redirect",
			environ: testEnv(map[string]string{
				"SIGNIN_REDIRECT_URL": "https://app.example.com/auth/callback",
			}),
			check: func(assert *assert.Assertions, c *Config) {
				assert.Equal("https://app.example.com/auth/callback", c.RedirectURL)
				assert.Equal("https://app.example.com/login", c.PostLogoutRedirectURL)
			},
		},
		{
			name: "single-tenant",
			environ: testEnv(map[string]string{
				"SIGNIN_AUTHORITY": "https://login.microsoftonline.com/00000000-0000-0000-0000-0000000000aa/v2.0",
			}),
			check: func(assert *assert.Assertions, c *Config) {
				assert.False(c.SkipIssuerCheck)
			},
		},
		{
			name: "overrides",
			environ: testEnv(map[string]string{
				"SIGNIN_AUTHORITY":       "https://idp.example.com",
				"SIGNIN_SCOPES":          " openid , ,profile",
				"SIGNIN_SIGNING_ALGS":    "ES256,RS256",
				"SIGNIN_LOGOUT_REDIRECT": "false",
				"SIGNIN_LOG_LEVEL":       "debug",
				"SIGNIN_BACKEND_TIMEOUT": "5s",
				"SIGNIN_CREDENTIAL_FILE": "/tmp/credential.json",
				"SIGNIN_UI_LOCALES":      "en-US, de",
			}),
			check: func(assert *assert.Assertions, c *Config) {
				assert.Equal([]string{"openid", "profile"}, c.Scopes)
				assert.Equal([]string{"ES256", "RS256"}, c.SigningAlgs)
				assert.False(c.LogoutRedirect)
				assert.False(c.SkipIssuerCheck)
				assert.Equal(5*time.Second, c.BackendTimeout)
				assert.Equal("/tmp/credential.json", c.CredentialFile)
				assert.Equal(hclog.Debug, c.Logger().GetLevel())
				assert.Equal([]language.Tag{language.AmericanEnglish, language.German}, c.UILocaleTags())
			},
		},
		{
			name:      "missing-required",
			environ:   testEnv(map[string]string{"SIGNIN_CLIENT_ID": "", "SIGNIN_BACKEND_URL": ""}),
			wantIsErr: ErrInvalidConfig,
			wantErr:   "SIGNIN_BACKEND_URL is required",
		},
		{
			name:      "bad-backend-url",
			environ:   testEnv(map[string]string{"SIGNIN_BACKEND_URL": "ftp://api.example.com"}),
			wantIsErr: ErrInvalidConfig,
			wantErr:   "SIGNIN_BACKEND_URL",
		},
		{
			name:      "backend-http-rejected",
			environ:   testEnv(map[string]string{"SIGNIN_BACKEND_URL": "http://localhost:5000"}),
			wantIsErr: ErrInvalidConfig,
			wantErr:   "SIGNIN_BACKEND_ALLOW_HTTP",
		},
		{
			name: "backend-http-allowed",
			environ: testEnv(map[string]string{
				"SIGNIN_BACKEND_URL":        "http://localhost:5000",
				"SIGNIN_BACKEND_ALLOW_HTTP": "true",
			}),
			check: func(assert *assert.Assertions, c *Config) {
				assert.True(c.BackendAllowHTTP)
				assert.Equal("http://localhost:5000", c.BackendURL)
			},
		},
		{
			name:      "bad-log-level",
			environ:   testEnv(map[string]string{"SIGNIN_LOG_LEVEL": "loud"}),
			wantIsErr: ErrInvalidConfig,
			wantErr:   "SIGNIN_LOG_LEVEL",
		},
		{
			name:      "bad-locale",
			environ:   testEnv(map[string]string{"SIGNIN_UI_LOCALES": "en-US,not a locale"}),
			wantIsErr: ErrInvalidConfig,
			wantErr:   "SIGNIN_UI_LOCALES",
		},
		{
			name:    "bad-duration",
			environ: testEnv(map[string]string{"SIGNIN_BACKEND_TIMEOUT": "soon"}),
			wantErr: "parse env",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := Load(WithEnvironment(tt.environ))
			if tt.wantErr != "" {
				require.Error(err)
				assert.Contains(err.Error(), tt.wantErr)
				if tt.wantIsErr != nil {
					assert.ErrorIs(err, tt.wantIsErr)
				}
				assert.Nil(got)
				return
			}
			require.NoError(err)
			tt.check(assert, got)
		})
	}
}

func TestConfig_OIDCConfig(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	c, err := Load(WithEnvironment(testEnv(map[string]string{"SIGNIN_PROVIDER_CA_PEM": "not-a-pem"})))
	require.NoError(err)

	got, err := c.OIDCConfig()
	require.NoError(err)
	assert.Equal("client-id", got.ClientID)
	assert.Equal(DefaultAuthority, got.Issuer)
	assert.Equal([]string{"http://localhost:4200/callback"}, got.AllowedRedirectURLs)
	assert.Equal([]oidc.Alg{oidc.RS256}, got.SupportedSigningAlgs)
	assert.Equal("not-a-pem", got.ProviderCA)
	assert.True(got.SkipIssuerCheck)
	assert.Empty(got.ClientSecret)

	c.SigningAlgs = []string{"none"}
	_, err = c.OIDCConfig()
	assert.ErrorIs(err, oidc.ErrUnsupportedAlg)
}
