// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import "context"

// LoginRequest is an interactive login request.
type LoginRequest struct {
	Scopes []string

	// Prompt is the provider prompt policy, for example "select_account".
	Prompt string
}

// TokenRequest is a silent token request for a known account.
type TokenRequest struct {
	Account Account
	Scopes  []string
}

// LogoutRequest is a provider sign-out request.
type LogoutRequest struct {
	Account *Account

	// Redirect asks for the provider's end session URL so the provider's own
	// session is ended as well.
	Redirect bool

	PostLogoutRedirectURL string
}

// IdentityProvider is the identity provider SDK a Coordinator depends on.
type IdentityProvider interface {
	// Initialize prepares the provider, it's safe to call more than once.
	Initialize(ctx context.Context) error

	// Accounts returns the cached accounts in a deterministic order.
	Accounts() []Account
	ActiveAccount() *Account
	SetActiveAccount(a *Account)

	// HandleRedirect drains the pending redirect result. It returns nil
	// when nothing is pending.
	HandleRedirect(ctx context.Context) (*RedirectResult, error)

	// LoginRedirect starts an interactive login and returns the URL the
	// browser must be sent to. It returns ErrInteractionInProgress when an
	// interaction is outstanding.
	LoginRedirect(ctx context.Context, r LoginRequest) (string, error)

	// AcquireTokenSilent returns a token for the account without user
	// interaction or ErrInteractionRequired.
	AcquireTokenSilent(ctx context.Context, r TokenRequest) (*TokenResult, error)

	// Logout signs out locally and, when requested, returns the provider's
	// end session URL.
	Logout(ctx context.Context, r LogoutRequest) (string, error)

	ClearCache(ctx context.Context) error

	InteractionStatus() InteractionStatus

	// SubscribeInteraction registers fn for every interaction status
	// transition and returns a func which removes it.
	SubscribeInteraction(fn func(InteractionStatus)) (unsubscribe func())
}

// Backend verifies provider id_tokens and terminates backend sessions.
type Backend interface {
	Verify(ctx context.Context, idToken string) (Credential, error)
	Logout(ctx context.Context, c Credential) error
}

// CredentialStore is the durable slot holding the Credential. Load returns
// an empty Credential and no error when the slot is empty.
type CredentialStore interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, c Credential) error
	Clear(ctx context.Context) error
}
