// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

// Account is an authenticated end-user as known to the identity provider.
// Accounts are owned by the provider's cache.
type Account struct {
	// ID is the provider's stable home account identifier.
	ID string

	// Name is the display name.
	Name string

	// Username is the user's login name, typically an email address.
	Username string

	// Claims are the id_token claims the account was built from.
	Claims map[string]interface{}
}

func (a *Account) clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Claims != nil {
		c.Claims = make(map[string]interface{}, len(a.Claims))
		for k, v := range a.Claims {
			c.Claims[k] = v
		}
	}
	return &c
}
