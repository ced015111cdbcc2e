// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"errors"

	"github.com/hashicorp/capsignin/session"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrNotInitialized   = errors.New("client is not initialized")
	ErrInvalidClaims    = errors.New("invalid id_token claims")

	// ErrInteractionInProgress is returned when an interactive login is
	// requested while another interaction is outstanding.
	ErrInteractionInProgress = session.ErrInteractionInProgress

	// ErrInteractionRequired is returned when a token can't be acquired
	// without the user signing in again.
	ErrInteractionRequired = session.ErrInteractionRequired
)
