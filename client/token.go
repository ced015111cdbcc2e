// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/hashicorp/capsignin/session"
)

// AcquireTokenSilent returns a token for the cached account without user
// interaction. A fresh cached token with the requested scopes is returned as
// is, otherwise the account's refresh token is redeemed. Any failure to
// obtain a token is reported as ErrInteractionRequired.
func (c *PublicClient) AcquireTokenSilent(ctx context.Context, r session.TokenRequest) (*session.TokenResult, error) {
	const op = "PublicClient.AcquireTokenSilent"
	if r.Account.ID == "" {
		return nil, fmt.Errorf("%s: account id is empty: %w", op, ErrInvalidParameter)
	}
	p, err := c.getProvider(op)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	ca := c.findLocked(r.Account.ID)
	if ca == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: account is not cached: %w", op, ErrInteractionRequired)
	}
	scopes := r.Scopes
	if len(scopes) == 0 {
		scopes = ca.scopes
	}
	if c.fresh(ca.token) && containsAll(ca.scopes, scopes) {
		res := tokenResult(ca)
		c.mu.Unlock()
		return res, nil
	}
	refresh := ca.refresh
	c.mu.Unlock()

	if refresh == "" {
		return nil, fmt.Errorf("%s: no refresh token: %w", op, ErrInteractionRequired)
	}
	key := r.Account.ID + "|" + strings.Join(slices.Sorted(slices.Values(scopes)), " ")
	v, err, _ := c.refreshes.Do(key, func() (interface{}, error) {
		return p.Refresh(ctx, refresh, oidc.WithScopes(scopes...))
	})
	if err != nil {
		c.logger.Debug("silent refresh failed", "account", r.Account.ID, "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInteractionRequired, err)
	}
	tk := v.(*oidc.Tk)

	c.mu.Lock()
	defer c.mu.Unlock()
	ca = c.findLocked(r.Account.ID)
	if ca == nil {
		return nil, fmt.Errorf("%s: account was removed: %w", op, ErrInteractionRequired)
	}
	ca.token = tk
	if tk.RefreshToken() != "" {
		ca.refresh = tk.RefreshToken()
	}
	ca.scopes = mergeScopes(ca.scopes, scopes)
	var claims map[string]interface{}
	if err := tk.IDToken().Claims(&claims); err == nil {
		if a, err := AccountFromClaims(claims); err == nil && a.ID == ca.account.ID {
			ca.account = a
		}
	}
	return tokenResult(ca), nil
}

func containsAll(granted, requested []string) bool {
	for _, s := range requested {
		if !slices.Contains(granted, s) {
			return false
		}
	}
	return true
}
