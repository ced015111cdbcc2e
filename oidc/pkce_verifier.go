// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"golang.org/x/oauth2"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// S256 is the only method this package generates; plain is not supported.
	// See: https://tools.ietf.org/html/rfc7636#section-4.3
	S256 ChallengeMethod = "S256"
)

// verifierLen is the length of a verifier generated by oauth2.GenerateVerifier
const verifierLen = 43

// CodeVerifier represents a PKCE code verifier and its challenge.
type CodeVerifier interface {
	// Verifier returns the code verifier (see:
	// https://tools.ietf.org/html/rfc7636#section-4.1)
	Verifier() string

	// Challenge returns the code verifier's code challenge (see:
	// https://tools.ietf.org/html/rfc7636#section-4.2)
	Challenge() string

	// Method returns the code verifier's challenge method (see
	// https://tools.ietf.org/html/rfc7636#section-4.2)
	Method() ChallengeMethod
}

// S256Verifier represents an OAuth PKCE code verifier that uses the S256
// challenge method. It implements the CodeVerifier interface.
type S256Verifier struct {
	verifier  string
	challenge string
	method    ChallengeMethod
}

// ensure that S256Verifier implements the CodeVerifier interface
var _ CodeVerifier = (*S256Verifier)(nil)

// NewCodeVerifier creates a new CodeVerifier (*S256Verifier).
//
// See: https://tools.ietf.org/html/rfc7636#section-4.1
func NewCodeVerifier() (*S256Verifier, error) {
	const op = "oidc.NewCodeVerifier"
	v := &S256Verifier{
		verifier: oauth2.GenerateVerifier(),
		method:   S256,
	}
	c, err := CreateCodeChallenge(S256, v)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	v.challenge = c
	return v, nil
}

func (v *S256Verifier) Verifier() string        { return v.verifier }  // Verifier implements the CodeVerifier.Verifier() interface function.
func (v *S256Verifier) Challenge() string       { return v.challenge } // Challenge implements the CodeVerifier.Challenge() interface function.
func (v *S256Verifier) Method() ChallengeMethod { return v.method }    // Method implements the CodeVerifier.Method() interface function.

// CreateCodeChallenge creates a code challenge from the verifier. Supported
// ChallengeMethods: S256
//
// See: https://tools.ietf.org/html/rfc7636#section-4.2
func CreateCodeChallenge(method ChallengeMethod, v CodeVerifier) (string, error) {
	const op = "oidc.CreateCodeChallenge"
	if v == nil {
		return "", fmt.Errorf("%s: verifier is nil: %w", op, ErrNilParameter)
	}
	if method != S256 {
		return "", fmt.Errorf("%s: %s is invalid: %w", op, method, ErrUnsupportedChallengeMethod)
	}
	return oauth2.S256ChallengeFromVerifier(v.Verifier()), nil
}
