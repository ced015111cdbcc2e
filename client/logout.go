// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/hashicorp/capsignin/session"
)

// Logout removes every cached account and abandons any pending login. When
// r.Redirect is set it returns the provider's end session URL, with the
// account's id_token as the hint. Providers without an end_session_endpoint
// yield an empty URL.
func (c *PublicClient) Logout(ctx context.Context, r session.LogoutRequest) (string, error) {
	const op = "PublicClient.Logout"
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	id := c.activeID
	if r.Account != nil {
		id = r.Account.ID
	}
	var hint oidc.IDToken
	if ca := c.findLocked(id); ca != nil && ca.token != nil {
		hint = ca.token.IDToken()
	}
	c.accounts = nil
	c.activeID = ""
	c.result = nil
	c.pending.Set(nil)
	notify := c.setStatusLocked(session.InteractionLogout)
	c.mu.Unlock()
	notify()
	defer c.setStatus(session.InteractionNone)

	if !r.Redirect {
		return "", nil
	}
	p, err := c.getProvider(op)
	if err != nil {
		return "", err
	}
	u, err := p.EndSessionURL(hint, r.PostLogoutRedirectURL)
	switch {
	case errors.Is(err, oidc.ErrUnsupportedEndSession):
		c.logger.Debug("provider has no end session endpoint")
		return "", nil
	case err != nil:
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
