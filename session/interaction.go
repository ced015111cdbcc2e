// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

// InteractionStatus is the identity provider's interaction state. At most one
// interaction is outstanding at a time.
type InteractionStatus int

const (
	InteractionNone InteractionStatus = iota
	InteractionLogin
	InteractionLogout
	InteractionAcquireToken
	InteractionHandleRedirect
)

func (s InteractionStatus) String() string {
	switch s {
	case InteractionNone:
		return "none"
	case InteractionLogin:
		return "login-interactive"
	case InteractionLogout:
		return "logout-interactive"
	case InteractionAcquireToken:
		return "acquire-token-interactive"
	case InteractionHandleRedirect:
		return "handling-redirect"
	default:
		return "unknown"
	}
}

// RedirectKind is the kind of interaction a redirect result completes.
type RedirectKind int

const (
	RedirectLogin RedirectKind = iota
	RedirectLogout
)

// RedirectResult is the outcome of draining a pending redirect.
type RedirectResult struct {
	Kind    RedirectKind
	Account *Account
	Token   *TokenResult
}

// Notification is delivered to tracker subscribers when the provider's
// interaction status becomes InteractionNone.
type Notification struct {
	Status InteractionStatus

	// Redirect is the result of the drain which produced the notification,
	// if any.
	Redirect *RedirectResult
}
