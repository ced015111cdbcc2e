// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/capsignin/oidc/internal/strutils"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// TestProvider is a local TLS server that supports the provider capabilities
// a public client needs: discovery, an auto-approving authorization endpoint
// with PKCE, authorization_code and refresh_token grants, JWKS and an end
// session endpoint. It makes writing tests much easier. Most of this is from
// Consul's oauthtest package with a few changes so it could become part of
// this package's public testing API.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks *jose.JSONWebKeySet

	mu                  sync.Mutex
	clientID            string
	allowedRedirectURIs []string
	subject             string
	customClaims        map[string]interface{}
	expiry              time.Duration
	loginError          string
	omitIDToken         bool
	disableRefresh      bool
	disableEndSession   bool

	// pending authorization codes and issued refresh tokens
	codes         map[string]testCode
	refreshTokens map[string]bool
	tokenRequests int

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t TestingT
}

type testCode struct {
	nonce       string
	challenge   string
	redirectURI string
	scope       string
}

// TestProviderClientID is the default client id of a TestProvider.
const TestProviderClientID = "test-client-id"

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// StartTestProvider creates a disposable TestProvider. It's registered with
// t.Cleanup() when t supports it, otherwise callers must call Stop().
func StartTestProvider(t TestingT) *TestProvider {
	helper(t)
	require := require.New(t)

	p := &TestProvider{
		t:        t,
		clientID: TestProviderClientID,
		allowedRedirectURIs: []string{
			"https://example.com/callback",
		},
		subject: "alice-subject",
		customClaims: map[string]interface{}{
			"name":               "Alice Doe",
			"preferred_username": "alice@example.com",
			"oid":                "00000000-0000-0000-0000-00000000a11c",
		},
		expiry:        5 * time.Minute,
		codes:         map[string]testCode{},
		refreshTokens: map[string]bool{},
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	if c, ok := t.(CleanupT); ok {
		c.Cleanup(p.httpServer.Close)
	}

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// SetClientID configures the client id the provider accepts.
func (p *TestProvider) SetClientID(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
}

// SetAllowedRedirectURIs configures the allowed redirect URIs for the OIDC
// workflow. If not configured a sample of "https://example.com/callback" is
// used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetSubject configures the subject (sub claim) of issued id_tokens.
func (p *TestProvider) SetSubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subject = sub
}

// SetCustomClaims lets you set claims to return in the id_tokens issued.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetExpiry configures the lifetime of issued tokens.
func (p *TestProvider) SetExpiry(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiry = d
}

// SetLoginError makes the authorization endpoint redirect back with the given
// oauth error code (for example "access_denied"). An empty code restores
// normal behavior.
func (p *TestProvider) SetLoginError(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginError = code
}

// OmitIDTokens forces an error state where the /token endpoint does not return
// id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// DisableRefresh makes every refresh_token grant fail with invalid_grant.
func (p *TestProvider) DisableRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableRefresh = true
}

// DisableEndSession omits the end_session_endpoint from discovery.
func (p *TestProvider) DisableEndSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableEndSession = true
}

// TokenRequests returns the number of requests made to the token endpoint.
func (p *TestProvider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http client that trusts the provider and doesn't
// follow redirects, which is handy for walking through the authorization
// endpoint in tests.
func (p *TestProvider) HTTPClient() *http.Client {
	c := p.httpServer.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

// SigningKeys returns the test provider's pem-encoded keys used to sign JWTs.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, redirectURI, errorCode, errorMessage string) {
	qv := req.URL.Query()

	redirectURI += "?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(errorCode)

	if errorMessage != "" {
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}

	http.Redirect(w, req, redirectURI, http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		reply := struct {
			Issuer             string   `json:"issuer"`
			AuthEndpoint       string   `json:"authorization_endpoint"`
			TokenEndpoint      string   `json:"token_endpoint"`
			JWKSURI            string   `json:"jwks_uri"`
			EndSessionEndpoint string   `json:"end_session_endpoint,omitempty"`
			Algs               []string `json:"id_token_signing_alg_values_supported"`
		}{
			Issuer:             p.Addr(),
			AuthEndpoint:       p.Addr() + "/authorize",
			TokenEndpoint:      p.Addr() + "/token",
			JWKSURI:            p.Addr() + "/certs",
			EndSessionEndpoint: p.Addr() + "/logout",
			Algs:               []string{string(ES256)},
		}
		if p.disableEndSession {
			reply.EndSessionEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/authorize":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		redirectURI := qv.Get("redirect_uri")
		if !strutils.StrListContains(p.allowedRedirectURIs, redirectURI) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case p.loginError != "":
			p.writeAuthErrorResponse(w, req, redirectURI, p.loginError, "")
			return
		case qv.Get("client_id") != p.clientID:
			p.writeAuthErrorResponse(w, req, redirectURI, "unauthorized_client", "")
			return
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, redirectURI, "unsupported_response_type", "")
			return
		case !strutils.StrListContains(strings.Fields(qv.Get("scope")), "openid"):
			p.writeAuthErrorResponse(w, req, redirectURI, "invalid_scope", "")
			return
		case qv.Get("state") == "":
			p.writeAuthErrorResponse(w, req, redirectURI, "invalid_request", "missing state parameter")
			return
		case qv.Get("code_challenge") == "" || qv.Get("code_challenge_method") != string(S256):
			p.writeAuthErrorResponse(w, req, redirectURI, "invalid_request", "PKCE S256 code challenge required")
			return
		}

		code, err := NewID("code")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		p.codes[code] = testCode{
			nonce:       qv.Get("nonce"),
			challenge:   qv.Get("code_challenge"),
			redirectURI: redirectURI,
			scope:       qv.Get("scope"),
		}
		http.Redirect(w, req, redirectURI+"?state="+url.QueryEscape(qv.Get("state"))+"&code="+url.QueryEscape(code), http.StatusFound)

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.tokenRequests++
		if req.FormValue("client_id") != p.clientID {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "unknown client")
			return
		}
		switch req.FormValue("grant_type") {
		case "authorization_code":
			c, ok := p.codes[req.FormValue("code")]
			switch {
			case !ok:
				_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected auth code")
				return
			case c.redirectURI != req.FormValue("redirect_uri"):
				_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
				return
			case oauth2.S256ChallengeFromVerifier(req.FormValue("code_verifier")) != c.challenge:
				_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
				return
			}
			delete(p.codes, req.FormValue("code"))
			offline := strutils.StrListContains(strings.Fields(c.scope), "offline_access")
			p.writeTokens(w, c.nonce, offline)

		case "refresh_token":
			rt := req.FormValue("refresh_token")
			if p.disableRefresh || !p.refreshTokens[rt] {
				_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "refresh token is invalid or expired")
				return
			}
			delete(p.refreshTokens, rt)
			p.writeTokens(w, "", true)

		default:
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "bad grant_type")
		}

	case "/logout":
		if p.disableEndSession {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if redirect := req.URL.Query().Get("post_logout_redirect_uri"); redirect != "" {
			http.Redirect(w, req, redirect, http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// writeTokens issues a token response, p.mu must be held.
func (p *TestProvider) writeTokens(w http.ResponseWriter, nonce string, withRefresh bool) {
	now := time.Now()
	stdClaims := jwt.Claims{
		Subject:   p.subject,
		Issuer:    p.Addr(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(p.expiry)),
		Audience:  jwt.Audience{p.clientID},
	}
	privateClaims := map[string]interface{}{}
	for k, v := range p.customClaims {
		privateClaims[k] = v
	}
	if nonce != "" {
		privateClaims["nonce"] = nonce
	}
	idToken := TestSignJWT(p.t, p.ecdsaPrivateKey, stdClaims, privateClaims)

	accessToken, err := NewID("at")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	reply := struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		IDToken      string `json:"id_token,omitempty"`
		RefreshToken string `json:"refresh_token,omitempty"`
	}{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(p.expiry.Seconds()),
		IDToken:     idToken,
	}
	if p.omitIDToken {
		reply.IDToken = ""
	}
	if withRefresh {
		rt, err := NewID("rt")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		p.refreshTokens[rt] = true
		reply.RefreshToken = rt
	}
	_ = p.writeJSON(w, &reply)
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response
func testJWKS(t TestingT, pubKey string) *jose.JSONWebKeySet {
	helper(t)
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       pub,
				Algorithm: string(ES256),
				Use:       "sig",
			},
		},
	}
}
