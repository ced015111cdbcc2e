// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package client is a public (browser-side) OIDC client. It runs the
// authorization code flow with PKCE in redirect mode, caches the signed in
// accounts with their tokens, and reports its interaction status to
// subscribers. PublicClient satisfies session.IdentityProvider.
package client

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/hashicorp/capsignin/oidc/callback"
	"github.com/hashicorp/capsignin/session"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

// DefaultScopes are requested by every interactive login.
var DefaultScopes = []string{"openid", "profile", "email", "offline_access"}

// expirySkew is subtracted from a cached access token's expiry before it's
// considered fresh.
const expirySkew = 30 * time.Second

var _ session.IdentityProvider = (*PublicClient)(nil)

type cachedAccount struct {
	account session.Account
	token   oidc.Token
	refresh oidc.RefreshToken
	scopes  []string
}

// redirectResult is the outcome of a callback waiting to be drained by
// HandleRedirect.
type redirectResult struct {
	token  oidc.Token
	scopes []string
	err    error
}

// PublicClient is an OIDC public client. It's safe for concurrent use.
type PublicClient struct {
	config      *oidc.Config
	redirectURL string
	logger      hclog.Logger
	requestTTL  time.Duration
	nowFunc     func() time.Time
	uiLocales   []language.Tag
	refreshes   singleflight.Group

	initMu   sync.Mutex
	provider *oidc.Provider

	// pending is the outstanding login request read by the callback.
	pending *callback.SingleRequestReader

	mu          sync.Mutex
	accounts    []*cachedAccount
	activeID    string
	status      session.InteractionStatus
	result      *redirectResult
	nextID      uint64
	subscribers map[uint64]func(session.InteractionStatus)
}

// NewPublicClient creates a client for the provider described by c. The
// provider's callback must be served at redirectURL, which must be one of
// c.AllowedRedirectURLs. Initialize must be called before the client is
// used and Done once it's no longer needed.
//
// Supported options: WithLogger, WithRequestTTL, WithNow, WithUILocales
func NewPublicClient(c *oidc.Config, redirectURL string, opt ...Option) (*PublicClient, error) {
	const op = "client.NewPublicClient"
	switch {
	case c == nil:
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	case redirectURL == "":
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	case !slices.Contains(c.AllowedRedirectURLs, redirectURL):
		return nil, fmt.Errorf("%s: %s is not an allowed redirect URL: %w", op, redirectURL, ErrInvalidParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	opts := getOpts(opt...)
	return &PublicClient{
		config:      c,
		redirectURL: redirectURL,
		logger:      opts.withLogger.Named("client"),
		requestTTL:  opts.withRequestTTL,
		nowFunc:     opts.withNowFunc,
		uiLocales:   opts.withUILocales,
		pending:     callback.NewSingleRequestReader(nil),
		subscribers: map[uint64]func(session.InteractionStatus){},
	}, nil
}

// Initialize runs provider discovery. It's safe to call more than once,
// discovery only happens the first time it succeeds.
func (c *PublicClient) Initialize(ctx context.Context) error {
	const op = "PublicClient.Initialize"
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.provider != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p, err := oidc.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.provider = p
	c.logger.Debug("provider initialized", "issuer", c.config.Issuer)
	return nil
}

// Done releases the provider's resources.
func (c *PublicClient) Done() {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	c.provider.Done()
	c.provider = nil
}

func (c *PublicClient) getProvider(op string) (*oidc.Provider, error) {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.provider == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotInitialized)
	}
	return c.provider, nil
}

// Accounts returns the cached accounts in the order they signed in.
func (c *PublicClient) Accounts() []session.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	accounts := make([]session.Account, 0, len(c.accounts))
	for _, ca := range c.accounts {
		accounts = append(accounts, cloneAccount(ca.account))
	}
	return accounts
}

// ActiveAccount returns the active account or nil.
func (c *PublicClient) ActiveAccount() *session.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	ca := c.findLocked(c.activeID)
	if ca == nil {
		return nil
	}
	a := cloneAccount(ca.account)
	return &a
}

// SetActiveAccount marks a as the active account. A nil a, or one which
// isn't cached, clears the active account.
func (c *PublicClient) SetActiveAccount(a *session.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = ""
	if a != nil && c.findLocked(a.ID) != nil {
		c.activeID = a.ID
	}
}

// ClearCache removes every cached account and token.
func (c *PublicClient) ClearCache(ctx context.Context) error {
	const op = "PublicClient.ClearCache"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = nil
	c.activeID = ""
	return nil
}

// InteractionStatus returns the current interaction status.
func (c *PublicClient) InteractionStatus() session.InteractionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SubscribeInteraction registers fn for every interaction status transition.
// fn is never called while the client's locks are held.
func (c *PublicClient) SubscribeInteraction(fn func(session.InteractionStatus)) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
		})
	}
}

// setStatusLocked updates the status and returns the func which notifies
// subscribers, it must be called after c.mu is released.
func (c *PublicClient) setStatusLocked(s session.InteractionStatus) func() {
	if c.status == s {
		return func() {}
	}
	c.logger.Trace("interaction status", "from", c.status.String(), "to", s.String())
	c.status = s
	ids := slices.Sorted(maps.Keys(c.subscribers))
	fns := make([]func(session.InteractionStatus), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subscribers[id])
	}
	return func() {
		for _, fn := range fns {
			fn(s)
		}
	}
}

func (c *PublicClient) setStatus(s session.InteractionStatus) {
	c.mu.Lock()
	notify := c.setStatusLocked(s)
	c.mu.Unlock()
	notify()
}

// expireStale abandons a login whose request expired before its callback
// arrived.
func (c *PublicClient) expireStale() {
	c.mu.Lock()
	if c.status != session.InteractionLogin || c.result != nil {
		c.mu.Unlock()
		return
	}
	if r := c.pending.Pending(); r != nil && !r.IsExpired() {
		c.mu.Unlock()
		return
	}
	c.logger.Debug("abandoning stale login request")
	c.pending.Set(nil)
	notify := c.setStatusLocked(session.InteractionNone)
	c.mu.Unlock()
	notify()
}

func (c *PublicClient) findLocked(id string) *cachedAccount {
	if id == "" {
		return nil
	}
	for _, ca := range c.accounts {
		if ca.account.ID == id {
			return ca
		}
	}
	return nil
}

func (c *PublicClient) now() time.Time {
	if c.nowFunc != nil {
		return c.nowFunc()
	}
	return time.Now()
}

func (c *PublicClient) fresh(t oidc.Token) bool {
	if t == nil || t.AccessToken() == "" {
		return false
	}
	if t.Expiry().IsZero() {
		return true
	}
	return c.now().Add(expirySkew).Before(t.Expiry())
}

func tokenResult(ca *cachedAccount) *session.TokenResult {
	return &session.TokenResult{
		AccessToken: string(ca.token.AccessToken()),
		IDToken:     string(ca.token.IDToken()),
		Account:     cloneAccount(ca.account),
		ExpiresOn:   ca.token.Expiry(),
		Scopes:      slices.Clone(ca.scopes),
	}
}

func cloneAccount(a session.Account) session.Account {
	a.Claims = maps.Clone(a.Claims)
	return a
}
