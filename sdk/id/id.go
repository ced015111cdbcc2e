// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// randomLen is the number of random bytes in an id before encoding.
const randomLen = 32

// EncodedLen is the length of a generated id without a prefix.
var EncodedLen = base64.RawURLEncoding.EncodedLen(randomLen)

// New generates a random, url safe ID with an optional prefix.
func New(optionalPrefix string) (string, error) {
	b, err := uuid.GenerateRandomBytes(randomLen)
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	id := base64.RawURLEncoding.EncodeToString(b)
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
