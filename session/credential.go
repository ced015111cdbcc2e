// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"encoding/json"
	"time"
)

// Credential is the opaque session token issued by the backend after it
// verified the provider's id_token.
type Credential string

// RedactedCredential is the redacted string or json for a Credential.
const RedactedCredential = "[REDACTED: session credential]"

// String will redact the credential.
func (c Credential) String() string {
	return RedactedCredential
}

// MarshalJSON will redact the credential.
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedCredential)
}

// TokenResult is a provider token acquired for an Account. It's transient
// and never persisted by this package.
type TokenResult struct {
	AccessToken string
	IDToken     string
	Account     Account
	ExpiresOn   time.Time
	Scopes      []string
}

// Route is the view a user should see. It's derived, never stored.
type Route int

const (
	RouteLogin Route = iota
	RouteAuthenticated
)

// Path returns the route's path.
func (r Route) Path() string {
	if r == RouteAuthenticated {
		return "/welcome"
	}
	return "/login"
}

func (r Route) String() string {
	if r == RouteAuthenticated {
		return "welcome"
	}
	return "login"
}
