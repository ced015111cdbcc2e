// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"testing"

	"github.com/hashicorp/capsignin/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountFromClaims(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		claims    map[string]interface{}
		want      session.Account
		wantIsErr error
	}{
		{
			name: "microsoft",
			claims: map[string]interface{}{
				"iss":                "https://login.microsoftonline.com/tid-1/v2.0",
				"sub":                "alice-subject",
				"oid":                "oid-1",
				"tid":                "tid-1",
				"name":               "Alice Doe",
				"preferred_username": "alice@example.com",
			},
			want: session.Account{ID: "oid-1.tid-1", Name: "Alice Doe", Username: "alice@example.com"},
		},
		{
			name: "oid-only",
			claims: map[string]interface{}{
				"sub": "alice-subject",
				"oid": "oid-1",
			},
			want: session.Account{ID: "oid-1"},
		},
		{
			name: "generic-with-email",
			claims: map[string]interface{}{
				"iss":   "https://idp.example.com",
				"sub":   "alice-subject",
				"email": "alice@example.com",
			},
			want: session.Account{ID: "https://idp.example.com|alice-subject", Username: "alice@example.com"},
		},
		{
			name: "upn",
			claims: map[string]interface{}{
				"iss": "https://idp.example.com",
				"sub": "alice-subject",
				"upn": "alice@corp.example.com",
			},
			want: session.Account{ID: "https://idp.example.com|alice-subject", Username: "alice@corp.example.com"},
		},
		{
			name:      "missing-sub",
			claims:    map[string]interface{}{"oid": "oid-1"},
			wantIsErr: ErrInvalidClaims,
		},
		{
			name: "non-string-claims",
			claims: map[string]interface{}{
				"sub":  "alice-subject",
				"iss":  "https://idp.example.com",
				"name": 42,
			},
			want: session.Account{ID: "https://idp.example.com|alice-subject"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := AccountFromClaims(tt.claims)
			if tt.wantIsErr != nil {
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want.ID, got.ID)
			assert.Equal(tt.want.Name, got.Name)
			assert.Equal(tt.want.Username, got.Username)
			assert.Equal(tt.claims, got.Claims)
		})
	}
}
