// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"gopkg.in/square/go-jose.v2/jwt"
)

// UnmarshalClaims will retrieve the claims from the provided raw JWT token
// without verifying the token's signature.
func UnmarshalClaims(rawToken string, claims interface{}) error {
	const op = "oidc.UnmarshalClaims"
	if rawToken == "" {
		return fmt.Errorf("%s: raw token is empty: %w", op, ErrInvalidParameter)
	}
	parsed, err := jwt.ParseSigned(rawToken)
	if err != nil {
		return fmt.Errorf("%s: malformed jwt (%s): %w", op, err, ErrInvalidParameter)
	}
	if err := parsed.UnsafeClaimsWithoutVerification(claims); err != nil {
		return fmt.Errorf("%s: unable to unmarshal jwt payload: %w", op, err)
	}
	return nil
}
