// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// CredentialExchange trades a silently acquired provider token for a backend
// Credential.
type CredentialExchange struct {
	provider IdentityProvider
	backend  Backend
	store    CredentialStore
	logger   hclog.Logger

	scopes                []string
	logoutRedirect        bool
	postLogoutRedirectURL string
}

// NewCredentialExchange creates an exchange for the provider p, backend b and
// credential store s.
//
// Supported options: WithLogger, WithVerificationScopes, WithLogoutRedirect
func NewCredentialExchange(p IdentityProvider, b Backend, s CredentialStore, opt ...Option) (*CredentialExchange, error) {
	const op = "session.NewCredentialExchange"
	switch {
	case p == nil:
		return nil, fmt.Errorf("%s: identity provider is nil: %w", op, ErrNilParameter)
	case b == nil:
		return nil, fmt.Errorf("%s: backend is nil: %w", op, ErrNilParameter)
	case s == nil:
		return nil, fmt.Errorf("%s: credential store is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &CredentialExchange{
		provider:              p,
		backend:               b,
		store:                 s,
		logger:                opts.withLogger.Named("exchange"),
		scopes:                opts.withVerificationScopes,
		logoutRedirect:        opts.withLogoutRedirect,
		postLogoutRedirectURL: opts.withPostLogoutRedirectURL,
	}, nil
}

// AcquireAndVerify silently acquires a token for a, sends its id_token to the
// backend and stores the returned Credential. Every failure cleans up the
// stored credential, the provider cache and the provider session before
// returning an error wrapping ErrSilentToken or ErrVerification. Nothing is
// retried. When ctx is done before a result arrives the result is discarded
// and ctx.Err() is returned without touching any state.
func (e *CredentialExchange) AcquireAndVerify(ctx context.Context, a Account) (Credential, error) {
	const op = "CredentialExchange.AcquireAndVerify"
	if a.ID == "" {
		return "", fmt.Errorf("%s: account id is empty: %w", op, ErrInvalidParameter)
	}

	tk, err := e.provider.AcquireTokenSilent(ctx, TokenRequest{Account: a, Scopes: e.scopes})
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	switch {
	case err != nil:
		e.cleanupAfter(ctx, "silent token acquisition failed", err)
		return "", fmt.Errorf("%s: %w: %w", op, ErrSilentToken, err)
	case tk == nil || tk.IDToken == "":
		e.cleanupAfter(ctx, "silent token acquisition returned no id_token", nil)
		return "", fmt.Errorf("%s: id_token is empty: %w", op, ErrSilentToken)
	}

	cred, err := e.backend.Verify(ctx, tk.IDToken)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	switch {
	case err != nil:
		e.cleanupAfter(ctx, "backend verification failed", err)
		return "", fmt.Errorf("%s: %w: %w", op, ErrVerification, err)
	case cred == "":
		e.cleanupAfter(ctx, "backend returned an empty credential", nil)
		return "", fmt.Errorf("%s: credential is empty: %w", op, ErrVerification)
	}

	if err := e.store.Save(ctx, cred); err != nil {
		e.cleanupAfter(ctx, "unable to store credential", err)
		return "", fmt.Errorf("%s: unable to store credential: %w", op, err)
	}
	e.logger.Info("session established", "account", a.ID)
	return cred, nil
}

// Cleanup clears the stored credential and the provider cache, then ends the
// provider session locally. Every step is attempted; their errors are
// combined.
func (e *CredentialExchange) Cleanup(ctx context.Context) error {
	const op = "CredentialExchange.Cleanup"
	var result *multierror.Error
	if err := e.store.Clear(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: unable to clear credential: %w", op, err))
	}
	if err := e.provider.ClearCache(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: unable to clear provider cache: %w", op, err))
	}
	if _, err := e.provider.Logout(ctx, LogoutRequest{}); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: unable to sign out of provider: %w", op, err))
	}
	return result.ErrorOrNil()
}

// Logout terminates the backend session on a best-effort basis and then
// unconditionally clears the stored credential, ends the provider session
// and clears the provider cache. With WithLogoutRedirect the provider's end session URL
// is returned. Only local failures are returned.
func (e *CredentialExchange) Logout(ctx context.Context, a *Account) (string, error) {
	const op = "CredentialExchange.Logout"
	cred, err := e.store.Load(ctx)
	if err != nil {
		e.logger.Warn("unable to load credential for backend logout", "error", err)
	}
	if err := e.backend.Logout(ctx, cred); err != nil {
		e.logger.Warn("backend logout failed, continuing with local sign out", "error", err)
	}

	var result *multierror.Error
	if err := e.store.Clear(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: unable to clear credential: %w", op, err))
	}
	// provider Logout reads the cached id_token for its end session hint.
	logoutURL, err := e.provider.Logout(ctx, LogoutRequest{
		Account:               a.clone(),
		Redirect:              e.logoutRedirect,
		PostLogoutRedirectURL: e.postLogoutRedirectURL,
	})
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: unable to sign out of provider: %w", op, err))
	}
	if err := e.provider.ClearCache(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: unable to clear provider cache: %w", op, err))
	}
	if a != nil {
		e.logger.Info("signed out", "account", a.ID)
	}
	return logoutURL, result.ErrorOrNil()
}

func (e *CredentialExchange) cleanupAfter(ctx context.Context, reason string, cause error) {
	if cause != nil {
		e.logger.Warn(reason, "error", cause)
	} else {
		e.logger.Warn(reason)
	}
	if err := e.Cleanup(ctx); err != nil {
		e.logger.Error("cleanup incomplete", "error", err)
	}
}
