// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleRequestReader(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()

	sr := NewSingleRequestReader(nil)
	_, err := sr.Read(ctx, "st_anything")
	assert.ErrorIs(err, oidc.ErrNotFound)
	assert.Nil(sr.Pending())

	r, err := oidc.NewRequest(time.Minute, "https://alice.com/callback")
	require.NoError(err)
	sr.Set(r)
	assert.Equal(r, sr.Pending())

	got, err := sr.Read(ctx, r.State())
	require.NoError(err)
	assert.Equal(r, got)

	_, err = sr.Read(ctx, "st_other")
	assert.ErrorIs(err, oidc.ErrNotFound)

	sr.Set(nil)
	_, err = sr.Read(ctx, r.State())
	assert.ErrorIs(err, oidc.ErrNotFound)
}
