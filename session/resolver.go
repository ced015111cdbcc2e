// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// AttemptState is the state of one interactive login attempt.
type AttemptState int

const (
	AttemptIdle AttemptState = iota
	AttemptRequested
	AttemptComplete
	AttemptResolved
	AttemptFailed
)

func (s AttemptState) String() string {
	switch s {
	case AttemptIdle:
		return "idle"
	case AttemptRequested:
		return "interaction-requested"
	case AttemptComplete:
		return "interaction-complete"
	case AttemptResolved:
		return "account-resolved"
	case AttemptFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AccountResolver decides which cached account is active and starts
// interactive logins. It's safe for concurrent use.
type AccountResolver struct {
	provider IdentityProvider
	tracker  *InteractionTracker
	logger   hclog.Logger
	scopes   []string
	prompt   string

	mu       sync.Mutex
	attempt  AttemptState
	starting bool
}

// NewAccountResolver creates a resolver for p which consults t before
// starting an interaction.
//
// Supported options: WithLogger, WithLoginScopes, WithPrompt
func NewAccountResolver(p IdentityProvider, t *InteractionTracker, opt ...Option) (*AccountResolver, error) {
	const op = "session.NewAccountResolver"
	if p == nil {
		return nil, fmt.Errorf("%s: identity provider is nil: %w", op, ErrNilParameter)
	}
	if t == nil {
		return nil, fmt.Errorf("%s: interaction tracker is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &AccountResolver{
		provider: p,
		tracker:  t,
		logger:   opts.withLogger.Named("resolver"),
		scopes:   opts.withLoginScopes,
		prompt:   opts.withPrompt,
	}, nil
}

// ResolveActiveAccount returns the explicitly active account while it's
// still cached, otherwise the first cached account. The returned account is
// marked active. It returns nil when the cache is empty.
func (r *AccountResolver) ResolveActiveAccount() *Account {
	accounts := r.provider.Accounts()
	if len(accounts) == 0 {
		return nil
	}
	if active := r.provider.ActiveAccount(); active != nil {
		for i := range accounts {
			if accounts[i].ID == active.ID {
				return accounts[i].clone()
			}
		}
	}
	a := accounts[0].clone()
	r.provider.SetActiveAccount(a.clone())
	r.logger.Debug("active account selected", "account", a.ID)
	return a
}

// BeginInteractiveLogin starts a redirect login and returns the provider URL
// the browser must visit. While another interaction is in flight the request
// is suppressed with ErrInteractionSuppressed and the provider isn't called.
func (r *AccountResolver) BeginInteractiveLogin(ctx context.Context, req LoginRequest) (string, error) {
	const op = "AccountResolver.BeginInteractiveLogin"
	if len(req.Scopes) == 0 {
		req.Scopes = r.scopes
	}
	if req.Prompt == "" {
		req.Prompt = r.prompt
	}

	r.mu.Lock()
	if r.starting || r.tracker.InProgress() || r.provider.InteractionStatus() != InteractionNone {
		r.mu.Unlock()
		r.logger.Debug("interactive login suppressed, an interaction is in flight")
		return "", fmt.Errorf("%s: %w", op, ErrInteractionSuppressed)
	}
	r.starting = true
	r.mu.Unlock()

	authURL, err := r.provider.LoginRedirect(ctx, req)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.starting = false
	switch {
	case errors.Is(err, ErrInteractionInProgress):
		r.logger.Debug("interactive login suppressed by provider")
		return "", fmt.Errorf("%s: %w: %w", op, ErrInteractionSuppressed, err)
	case err != nil:
		return "", fmt.Errorf("%s: unable to start login: %w", op, err)
	}
	r.attempt = AttemptRequested
	return authURL, nil
}

// Complete handles the tracker's idle notification. It prefers the account
// of a login redirect result and otherwise re-resolves the active account.
// When a requested login ends without any account the attempt fails with
// ErrNoAccount.
func (r *AccountResolver) Complete(ctx context.Context, n Notification) (*Account, error) {
	const op = "AccountResolver.Complete"
	r.mu.Lock()
	requested := r.attempt == AttemptRequested
	if requested {
		r.attempt = AttemptComplete
	}
	r.mu.Unlock()

	loginResult := n.Redirect != nil && n.Redirect.Kind == RedirectLogin
	var account *Account
	if loginResult && n.Redirect.Account != nil && r.cached(n.Redirect.Account.ID) {
		account = n.Redirect.Account.clone()
		r.provider.SetActiveAccount(account.clone())
	} else {
		account = r.ResolveActiveAccount()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case account != nil:
		if requested || loginResult {
			r.attempt = AttemptResolved
		}
		return account, nil
	case requested || loginResult:
		r.attempt = AttemptFailed
		r.logger.Warn("login interaction completed without an account")
		return nil, fmt.Errorf("%s: %w", op, ErrNoAccount)
	default:
		return nil, nil
	}
}

// Attempt returns the state of the current login attempt.
func (r *AccountResolver) Attempt() AttemptState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

// Reset returns the attempt to AttemptIdle so the user can start over.
func (r *AccountResolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempt = AttemptIdle
}

func (r *AccountResolver) cached(id string) bool {
	for _, a := range r.provider.Accounts() {
		if a.ID == id {
			return true
		}
	}
	return false
}
