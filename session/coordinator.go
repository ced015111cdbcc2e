// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

// Coordinator drives the sign-in flow for one user: it drains redirects,
// resolves the active account, exchanges credentials and derives the Route.
// It's safe for concurrent use.
type Coordinator struct {
	provider IdentityProvider
	store    CredentialStore
	logger   hclog.Logger

	tracker  *InteractionTracker
	resolver *AccountResolver
	exchange *CredentialExchange
	sub      *Subscription

	exchanges singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	account *Account
	lastErr error
}

// NewCoordinator creates a Coordinator. Close must be called to release it.
//
// Supported options: WithLogger, WithLoginScopes, WithPrompt,
// WithVerificationScopes, WithLogoutRedirect
func NewCoordinator(p IdentityProvider, b Backend, s CredentialStore, opt ...Option) (*Coordinator, error) {
	const op = "session.NewCoordinator"
	exchange, err := NewCredentialExchange(p, b, s, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tracker, err := NewInteractionTracker(p, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resolver, err := NewAccountResolver(p, tracker, opt...)
	if err != nil {
		tracker.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getOpts(opt...)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		provider: p,
		store:    s,
		logger:   opts.withLogger,
		tracker:  tracker,
		resolver: resolver,
		exchange: exchange,
		ctx:      ctx,
		cancel:   cancel,
	}
	// the resolver only runs once the tracker reports the provider idle.
	c.sub = tracker.Subscribe(c.interactionDone)
	return c, nil
}

// Start handles a page load: it initializes the provider, drains any pending
// redirect and, once the provider is idle, resolves the active account and
// exchanges a credential for it after a login or when none is stored. It
// returns the Route to render.
func (c *Coordinator) Start(ctx context.Context) (Route, error) {
	const op = "Coordinator.Start"
	ctx, release := c.bind(ctx)
	defer release()
	if ctx.Err() != nil {
		return RouteLogin, fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if err := c.provider.Initialize(ctx); err != nil {
		c.setErr(err)
		return RouteLogin, fmt.Errorf("%s: unable to initialize provider: %w", op, err)
	}
	c.tracker.Drain(ctx)
	return c.Route(ctx), nil
}

// Login starts an interactive login and returns the URL the browser must be
// sent to. A login requested while another interaction is in flight returns
// ErrInteractionSuppressed.
func (c *Coordinator) Login(ctx context.Context) (string, error) {
	const op = "Coordinator.Login"
	ctx, release := c.bind(ctx)
	defer release()
	if ctx.Err() != nil {
		return "", fmt.Errorf("%s: %w", op, ErrClosed)
	}
	switch c.resolver.Attempt() {
	case AttemptFailed, AttemptResolved:
		c.resolver.Reset()
	}
	authURL, err := c.resolver.BeginInteractiveLogin(ctx, LoginRequest{})
	if err != nil {
		if !errors.Is(err, ErrInteractionSuppressed) {
			c.setErr(err)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	c.setErr(nil)
	return authURL, nil
}

// Logout signs the user out. The backend is told on a best-effort basis,
// local state is always cleared. It returns the provider's end session URL
// when WithLogoutRedirect was used.
func (c *Coordinator) Logout(ctx context.Context) (string, error) {
	const op = "Coordinator.Logout"
	ctx, release := c.bind(ctx)
	defer release()

	c.mu.Lock()
	account := c.account.clone()
	c.account = nil
	c.lastErr = nil
	c.mu.Unlock()
	c.resolver.Reset()

	logoutURL, err := c.exchange.Logout(ctx, account)
	if err != nil {
		return logoutURL, fmt.Errorf("%s: %w", op, err)
	}
	return logoutURL, nil
}

// Route derives the view to render: RouteAuthenticated only when a Credential
// is stored and an account is active.
func (c *Coordinator) Route(ctx context.Context) Route {
	cred, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("unable to load credential", "error", err)
		return RouteLogin
	}
	if cred == "" || c.Account() == nil {
		return RouteLogin
	}
	return RouteAuthenticated
}

// Account returns the active account, or nil.
func (c *Coordinator) Account() *Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account.clone()
}

// Message returns the plain language message for the last failure, or an
// empty string.
func (c *Coordinator) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return UserMessage(c.lastErr)
}

// Err returns the last failure.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close tears the coordinator down. Results of operations still running are
// discarded.
func (c *Coordinator) Close() {
	c.cancel()
	c.sub.Unsubscribe()
	c.tracker.Close()
}

func (c *Coordinator) interactionDone(ctx context.Context, n Notification) {
	ctx, release := c.bind(ctx)
	defer release()
	if ctx.Err() != nil {
		return
	}

	account, err := c.resolver.Complete(ctx, n)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.setState(nil, err)
		return
	}
	if account == nil {
		// lastErr stays until the next Login or a resolved account
		c.clearAccount()
		return
	}

	// a fresh login always replaces the stored credential
	if n.Redirect == nil || n.Redirect.Kind != RedirectLogin {
		cred, err := c.store.Load(ctx)
		if err != nil {
			c.logger.Warn("unable to load credential, exchanging a new one", "error", err)
		}
		if cred != "" {
			c.setState(account, nil)
			return
		}
	}

	_, err, _ = c.exchanges.Do(account.ID, func() (interface{}, error) {
		return c.exchange.AcquireAndVerify(ctx, *account)
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.setState(nil, err)
		return
	}
	c.setState(account, nil)
}

func (c *Coordinator) setState(a *Account, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = a.clone()
	c.lastErr = err
}

func (c *Coordinator) clearAccount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = nil
}

func (c *Coordinator) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

// bind returns a context which is done once either ctx is done or the
// coordinator is closed. Close cancels it synchronously.
func (c *Coordinator) bind(ctx context.Context) (context.Context, func()) {
	bound, cancel := context.WithCancel(c.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}
