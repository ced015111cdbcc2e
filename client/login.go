// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/hashicorp/capsignin/oidc/callback"
	"github.com/hashicorp/capsignin/session"
)

// LoginRedirect starts an interactive login and returns the provider URL the
// browser must be sent to. It returns ErrInteractionInProgress when another
// interaction is outstanding.
func (c *PublicClient) LoginRedirect(ctx context.Context, r session.LoginRequest) (string, error) {
	const op = "PublicClient.LoginRedirect"
	p, err := c.getProvider(op)
	if err != nil {
		return "", err
	}
	c.expireStale()

	c.mu.Lock()
	if c.status != session.InteractionNone || c.result != nil {
		status := c.status
		c.mu.Unlock()
		return "", fmt.Errorf("%s: %s: %w", op, status, ErrInteractionInProgress)
	}
	opts := []oidc.Option{
		oidc.WithScopes(mergeScopes(DefaultScopes, r.Scopes)...),
		oidc.WithNow(c.nowFunc),
	}
	if r.Prompt != "" {
		opts = append(opts, oidc.WithPrompts(oidc.Prompt(r.Prompt)))
	}
	if len(c.uiLocales) > 0 {
		opts = append(opts, oidc.WithUILocales(c.uiLocales...))
	}
	req, err := oidc.NewRequest(c.requestTTL, c.redirectURL, opts...)
	if err != nil {
		c.mu.Unlock()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	authURL, err := p.AuthURL(ctx, req)
	if err != nil {
		c.mu.Unlock()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	c.pending.Set(req)
	notify := c.setStatusLocked(session.InteractionLogin)
	c.mu.Unlock()
	notify()
	return authURL, nil
}

// CallbackHandler returns the handler which must be served at the client's
// redirect URL. It completes the code exchange, records the outcome for
// HandleRedirect and sends the browser to landingURL.
func (c *PublicClient) CallbackHandler(ctx context.Context, landingURL string) (http.HandlerFunc, error) {
	const op = "PublicClient.CallbackHandler"
	if landingURL == "" {
		return nil, fmt.Errorf("%s: landing URL is empty: %w", op, ErrInvalidParameter)
	}
	p, err := c.getProvider(op)
	if err != nil {
		return nil, err
	}
	success := func(state string, t oidc.Token, w http.ResponseWriter, req *http.Request) {
		c.record(state, func(r oidc.Request) *redirectResult {
			return &redirectResult{token: t, scopes: r.Scopes()}
		})
		http.Redirect(w, req, landingURL, http.StatusFound)
	}
	failure := func(state string, respErr *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		if respErr != nil {
			e = respErr.Err()
		}
		c.logger.Warn("login callback failed", "error", e)
		c.record(state, func(oidc.Request) *redirectResult {
			return &redirectResult{err: e}
		})
		http.Redirect(w, req, landingURL, http.StatusFound)
	}
	h, err := callback.AuthCode(ctx, p, c.pending, success, failure)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return h, nil
}

// record stores the callback's outcome when state belongs to the pending
// request. Callbacks for any other state are dropped.
func (c *PublicClient) record(state string, fn func(oidc.Request) *redirectResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.pending.Pending()
	if r == nil || r.State() != state {
		c.logger.Debug("ignoring callback without a pending request")
		return
	}
	c.pending.Set(nil)
	c.result = fn(r)
}

// HandleRedirect drains the result recorded by the callback. It returns nil
// when nothing is pending. A login still waiting for its callback is
// abandoned, so the user may start over after leaving the provider's page. A
// successful login caches the account and makes it active.
func (c *PublicClient) HandleRedirect(ctx context.Context) (*session.RedirectResult, error) {
	const op = "PublicClient.HandleRedirect"
	c.mu.Lock()
	res := c.result
	c.result = nil
	if res == nil {
		notify := func() {}
		if c.status == session.InteractionLogin {
			c.logger.Debug("abandoning login request without a callback result")
			c.pending.Set(nil)
			notify = c.setStatusLocked(session.InteractionNone)
		}
		c.mu.Unlock()
		notify()
		return nil, nil
	}
	notify := c.setStatusLocked(session.InteractionHandleRedirect)
	c.mu.Unlock()
	notify()
	defer c.setStatus(session.InteractionNone)

	if res.err != nil {
		return nil, fmt.Errorf("%s: %w", op, res.err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var claims map[string]interface{}
	if err := res.token.IDToken().Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	account, err := AccountFromClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ca := &cachedAccount{
		account: account,
		token:   res.token,
		refresh: res.token.RefreshToken(),
		scopes:  res.scopes,
	}

	c.mu.Lock()
	if i := slices.IndexFunc(c.accounts, func(e *cachedAccount) bool { return e.account.ID == account.ID }); i >= 0 {
		c.accounts[i] = ca
	} else {
		c.accounts = append(c.accounts, ca)
	}
	c.activeID = account.ID
	a := cloneAccount(ca.account)
	out := &session.RedirectResult{
		Kind:    session.RedirectLogin,
		Account: &a,
		Token:   tokenResult(ca),
	}
	c.mu.Unlock()
	c.logger.Debug("login completed", "account", account.ID)
	return out, nil
}

// mergeScopes returns base followed by the scopes in extra it lacks.
func mergeScopes(base, extra []string) []string {
	scopes := slices.Clone(base)
	for _, s := range extra {
		if s != "" && !slices.Contains(scopes, s) {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
