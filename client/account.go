// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"fmt"

	"github.com/hashicorp/capsignin/session"
)

// AccountFromClaims builds an Account from verified id_token claims. The
// account ID is the Microsoft home account id ("<oid>.<tid>") when the
// claims carry an oid, otherwise "<iss>|<sub>".
func AccountFromClaims(claims map[string]interface{}) (session.Account, error) {
	const op = "client.AccountFromClaims"
	sub := stringClaim(claims, "sub")
	if sub == "" {
		return session.Account{}, fmt.Errorf("%s: missing sub claim: %w", op, ErrInvalidClaims)
	}
	var id string
	switch oid, tid := stringClaim(claims, "oid"), stringClaim(claims, "tid"); {
	case oid != "" && tid != "":
		id = oid + "." + tid
	case oid != "":
		id = oid
	default:
		id = stringClaim(claims, "iss") + "|" + sub
	}
	username := stringClaim(claims, "preferred_username")
	if username == "" {
		username = stringClaim(claims, "email")
	}
	if username == "" {
		username = stringClaim(claims, "upn")
	}
	return session.Account{
		ID:       id,
		Name:     stringClaim(claims, "name"),
		Username: username,
		Claims:   claims,
	}, nil
}

func stringClaim(claims map[string]interface{}, name string) string {
	s, _ := claims[name].(string)
	return s
}
