// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"suppressed", fmt.Errorf("op: %w", ErrInteractionSuppressed), "A sign-in is already in progress. Finish it in the other window or try again in a moment."},
		{"in-progress", ErrInteractionInProgress, "A sign-in is already in progress. Finish it in the other window or try again in a moment."},
		{"no-account", ErrNoAccount, "Sign-in did not complete. Please try again."},
		{"silent", fmt.Errorf("op: %w: %w", ErrSilentToken, ErrInteractionRequired), "We could not complete your login. Please sign in again."},
		{"verification", fmt.Errorf("op: %w: %w", ErrVerification, errors.New("401")), "We could not verify your sign-in with the server. Please try again."},
		{"canceled", context.Canceled, "Sign-in was interrupted. Please try again."},
		{"unknown", errors.New("boom"), "Something went wrong while signing you in. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
