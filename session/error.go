// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")

	// ErrInteractionInProgress is returned by an IdentityProvider when an
	// interactive flow is requested while another one is outstanding.
	ErrInteractionInProgress = errors.New("interaction in progress")

	// ErrInteractionRequired is returned by an IdentityProvider when a token
	// can't be acquired silently.
	ErrInteractionRequired = errors.New("interaction required")

	ErrInteractionSuppressed = errors.New("interaction suppressed")
	ErrNoAccount             = errors.New("no account after login")
	ErrSilentToken           = errors.New("silent token acquisition failed")
	ErrVerification          = errors.New("backend verification failed")
	ErrClosed                = errors.New("coordinator is closed")
)

// UserMessage returns the plain language message shown on the login view for
// err. It returns an empty string for a nil err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInteractionSuppressed), errors.Is(err, ErrInteractionInProgress):
		return "A sign-in is already in progress. Finish it in the other window or try again in a moment."
	case errors.Is(err, ErrNoAccount):
		return "Sign-in did not complete. Please try again."
	case errors.Is(err, ErrSilentToken):
		return "We could not complete your login. Please sign in again."
	case errors.Is(err, ErrVerification):
		return "We could not verify your sign-in with the server. Please try again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Sign-in was interrupted. Please try again."
	default:
		return "Something went wrong while signing you in. Please try again."
	}
}
