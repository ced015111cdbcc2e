// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/capsignin/oidc/internal/strutils"
	"golang.org/x/oauth2"
)

// Provider provides integration with an OIDC provider for a public client
// using the authorization code flow with PKCE.
type Provider struct {
	config   *Config
	provider *oidc.Provider
	client   *http.Client

	// endSessionURL is the provider's advertised end_session_endpoint, it
	// may be empty.
	endSessionURL string

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like: refreshing JWKs key sets, refreshing tokens, etc
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates and initializes a Provider. Initializing the provider
// includes making an http request to the provider's issuer for discovery.
//
// See Provider.Done() which must be called to release provider resources.
func NewProvider(c *Config) (*Provider, error) {
	const op = "oidc.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Provider with it's background ctx/cancel will
	// allow us to use p.Done() to release any resources when returning errors
	// from this function.
	p := &Provider{
		config:              c,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}

	client, err := c.HTTPClient()
	if err != nil {
		p.Done() // release the backgroundCtxCancel resources
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	p.client = client

	discoveryCtx := HTTPClientContext(p.backgroundCtx, client)
	if c.SkipIssuerCheck {
		discoveryCtx = oidc.InsecureIssuerURLContext(discoveryCtx, c.Issuer)
	}
	provider, err := oidc.NewProvider(discoveryCtx, c.Issuer) // makes http req to issuer for discovery
	if err != nil {
		p.Done() // release the backgroundCtxCancel resources
		return nil, fmt.Errorf("%s: unable to create provider: %w", op, err)
	}
	p.provider = provider

	var discovered struct {
		EndSessionURL string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&discovered); err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to read discovery claims: %w", op, err)
	}
	p.endSessionURL = discovered.EndSessionURL

	return p, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// Config returns the provider's config.
func (p *Provider) Config() *Config { return p.config }

// AuthURL will generate a URL the caller can use to kick off an OIDC
// authorization code flow with PKCE. The request's RedirectURL() must be one
// of the config's AllowedRedirectURLs.
//
// See NewRequest() to create an oidc flow Request with a valid state, nonce
// and code verifier that will uniquely identify the user's authentication
// attempt through out the flow.
func (p *Provider) AuthURL(ctx context.Context, r Request) (string, error) {
	const op = "Provider.AuthURL"
	if r == nil {
		return "", fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if r.State() == r.Nonce() {
		return "", fmt.Errorf("%s: request state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	if r.IsExpired() {
		return "", fmt.Errorf("%s: request is expired: %w", op, ErrExpiredRequest)
	}
	if r.PKCEVerifier() == nil {
		return "", fmt.Errorf("%s: request is missing a PKCE code verifier: %w", op, ErrInvalidParameter)
	}
	if !strutils.StrListContains(p.config.AllowedRedirectURLs, r.RedirectURL()) {
		return "", fmt.Errorf("%s: %s is not an allowed redirect URL: %w", op, r.RedirectURL(), ErrUnauthorizedRedirectURI)
	}
	oauth2Config := p.oauth2Config(r.RedirectURL(), r.Scopes())
	authCodeOpts := []oauth2.AuthCodeOption{
		oidc.Nonce(r.Nonce()),
		oauth2.S256ChallengeOption(r.PKCEVerifier().Verifier()),
	}
	if len(r.Prompts()) > 0 {
		prompts := make([]string, 0, len(r.Prompts()))
		for _, pr := range r.Prompts() {
			prompts = append(prompts, string(pr))
		}
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("prompt", strings.Join(prompts, " ")))
	}
	if len(r.UILocales()) > 0 {
		locales := make([]string, 0, len(r.UILocales()))
		for _, l := range r.UILocales() {
			locales = append(locales, l.String())
		}
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("ui_locales", strings.Join(locales, " ")))
	}
	return oauth2Config.AuthCodeURL(r.State(), authCodeOpts...), nil
}

// Exchange will request a token from the oidc token endpoint, using the
// authorizationCode and authorizationState it received in an earlier
// successful oidc authentication response.
//
// It will also validate the authorizationState it receives against the
// existing Request for the user's oidc authentication flow, and verify the
// returned id_token (including its nonce).
func (p *Provider) Exchange(ctx context.Context, r Request, authorizationState string, authorizationCode string) (*Tk, error) {
	const op = "Provider.Exchange"
	if r == nil {
		return nil, fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if r.State() != authorizationState {
		return nil, fmt.Errorf("%s: authentication request state and authorization state are not equal: %w", op, ErrInvalidResponseState)
	}
	if r.IsExpired() {
		return nil, fmt.Errorf("%s: authentication request is expired: %w", op, ErrExpiredRequest)
	}
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}

	oauth2Config := p.oauth2Config(r.RedirectURL(), r.Scopes())
	var exchangeOpts []oauth2.AuthCodeOption
	if r.PKCEVerifier() != nil {
		exchangeOpts = append(exchangeOpts, oauth2.VerifierOption(r.PKCEVerifier().Verifier()))
	}
	oauth2Token, err := oauth2Config.Exchange(HTTPClientContext(ctx, p.client), authorizationCode, exchangeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w", op, err)
	}

	idToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, fmt.Errorf("%s: id_token is missing from auth code exchange: %w", op, ErrMissingIDToken)
	}
	t, err := NewToken(IDToken(idToken), oauth2Token)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create new id_token: %w", op, err)
	}
	if _, err := p.VerifyIDToken(ctx, t.IDToken(), WithNonce(r.Nonce())); err != nil {
		return nil, fmt.Errorf("%s: id_token failed verification: %w", op, err)
	}
	return t, nil
}

// Refresh uses the refresh_token to silently request a new Token from the
// provider's token endpoint. Providers may omit the id_token from a refresh
// response, in which case ErrMissingIDToken is returned so the caller can
// decide how to proceed.
func (p *Provider) Refresh(ctx context.Context, t RefreshToken, opt ...Option) (*Tk, error) {
	const op = "Provider.Refresh"
	if t == "" {
		return nil, fmt.Errorf("%s: refresh token is empty: %w", op, ErrMissingRefreshToken)
	}
	opts := getReqOpts(opt...)
	redirect := ""
	if len(p.config.AllowedRedirectURLs) > 0 {
		redirect = p.config.AllowedRedirectURLs[0]
	}
	oauth2Config := p.oauth2Config(redirect, opts.withScopes)
	ts := oauth2Config.TokenSource(HTTPClientContext(ctx, p.client), &oauth2.Token{RefreshToken: string(t)})
	oauth2Token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to refresh token: %w", op, err)
	}
	idToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, fmt.Errorf("%s: id_token is missing from refresh: %w", op, ErrMissingIDToken)
	}
	tk, err := NewToken(IDToken(idToken), oauth2Token)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create new id_token: %w", op, err)
	}
	if _, err := p.VerifyIDToken(ctx, tk.IDToken()); err != nil {
		return nil, fmt.Errorf("%s: id_token failed verification: %w", op, err)
	}
	return tk, nil
}

// VerifyIDToken will verify the inbound IDToken and return its claims. It
// verifies it's been signed by the provider, checks the audiences and the
// nonce when WithNonce is provided.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (p *Provider) VerifyIDToken(ctx context.Context, t IDToken, opt ...Option) (map[string]interface{}, error) {
	const op = "Provider.VerifyIDToken"
	if t == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	opts := getVerifyOpts(opt...)
	algs := make([]string, 0, len(p.config.SupportedSigningAlgs))
	for _, a := range p.config.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	oidcConfig := &oidc.Config{
		SupportedSigningAlgs: algs,
		ClientID:             p.config.ClientID,
		SkipIssuerCheck:      p.config.SkipIssuerCheck,
	}
	verifier := p.provider.Verifier(oidcConfig)

	oidcIDToken, err := verifier.Verify(HTTPClientContext(ctx, p.client), string(t))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrIDTokenVerificationFailed, err)
	}
	if opts.withNonce != "" && oidcIDToken.Nonce != opts.withNonce {
		return nil, fmt.Errorf("%s: invalid id_token nonce: %w", op, ErrInvalidNonce)
	}
	if len(p.config.Audiences) > 0 {
		found := false
		for _, v := range p.config.Audiences {
			if strutils.StrListContains(oidcIDToken.Audience, v) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s: invalid id_token audiences: %w", op, ErrInvalidAudience)
		}
	}
	var claims map[string]interface{}
	if err := oidcIDToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to get id_token claims: %w", op, err)
	}
	return claims, nil
}

// EndSessionURL builds the provider's RP-initiated logout URL. It returns
// ErrUnsupportedEndSession when the provider doesn't advertise an
// end_session_endpoint.
//
// See: https://openid.net/specs/openid-connect-rpinitiated-1_0.html
func (p *Provider) EndSessionURL(idTokenHint IDToken, postLogoutRedirectURL string) (string, error) {
	const op = "Provider.EndSessionURL"
	if p.endSessionURL == "" {
		return "", fmt.Errorf("%s: %w", op, ErrUnsupportedEndSession)
	}
	u, err := url.Parse(p.endSessionURL)
	if err != nil {
		return "", fmt.Errorf("%s: end_session_endpoint is invalid: %w", op, err)
	}
	q := u.Query()
	q.Set("client_id", p.config.ClientID)
	if idTokenHint != "" {
		q.Set("id_token_hint", string(idTokenHint))
	}
	if postLogoutRedirectURL != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirectURL)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *Provider) oauth2Config(redirectURL string, requestScopes []string) oauth2.Config {
	scopes := requestScopes
	if len(scopes) == 0 {
		// Add the "openid" scope, which is a required scope for oidc flows
		scopes = strutils.RemoveDuplicatesStable(append([]string{oidc.ScopeOpenID}, p.config.Scopes...), false)
	}
	endpoint := p.provider.Endpoint()
	if p.config.ClientSecret == "" {
		// public clients identify themselves with the client_id param
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	return oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  redirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

// verifyOptions is the set of available options for VerifyIDToken
type verifyOptions struct {
	withNonce string
}

func getVerifyOpts(opt ...Option) verifyOptions {
	opts := verifyOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithNonce provides the nonce an id_token must carry.
//
// Valid for: Provider.VerifyIDToken
func WithNonce(nonce string) Option {
	return func(o interface{}) {
		if o, ok := o.(*verifyOptions); ok {
			o.withNonce = nonce
		}
	}
}
