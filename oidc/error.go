// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrInvalidCACert              = errors.New("invalid CA certificate")
	ErrInvalidIssuer              = errors.New("invalid issuer")
	ErrIdGeneratorFailed          = errors.New("id generation failed")
	ErrExpiredRequest             = errors.New("request is expired")
	ErrInvalidResponseState       = errors.New("invalid response state")
	ErrMissingIDToken             = errors.New("id_token is missing")
	ErrMissingRefreshToken        = errors.New("refresh_token is missing")
	ErrIDTokenVerificationFailed  = errors.New("id_token verification failed")
	ErrInvalidAudience            = errors.New("invalid audience")
	ErrInvalidNonce               = errors.New("invalid nonce")
	ErrNotFound                   = errors.New("not found")
	ErrLoginFailed                = errors.New("login failed")
	ErrUnsupportedAlg             = errors.New("unsupported signing algorithm")
	ErrUnsupportedChallengeMethod = errors.New("unsupported PKCE challenge method")
	ErrUnsupportedEndSession      = errors.New("provider does not support end session")
	ErrUnauthorizedRedirectURI    = errors.New("unauthorized redirect_uri")
)
