// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/stretchr/testify/require"
)

// testSuccessFn is a test SuccessResponseFunc
func testSuccessFn(state string, t oidc.Token, w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("login successful"))
}

// testFailFn is a test ErrorResponseFunc
func testFailFn(state string, r *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
	if e != nil {
		w.WriteHeader(http.StatusInternalServerError)
		j, _ := json.Marshal(&AuthenErrorResponse{
			Error:       "internal-callback-error",
			Description: e.Error(),
		})
		_, _ = w.Write(j)
		return
	}
	if r != nil {
		w.WriteHeader(http.StatusUnauthorized)
		j, _ := json.Marshal(r)
		_, _ = w.Write(j)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	j, _ := json.Marshal(&AuthenErrorResponse{
		Error: "unknown-callback-error",
	})
	_, _ = w.Write(j)
}

// testNilRequestReader always returns a nil request.
type testNilRequestReader struct{}

func (*testNilRequestReader) Read(context.Context, string) (oidc.Request, error) {
	return nil, nil
}

// testNewProvider creates a new public client Provider for the TestProvider
// (tp) which allows redirectURL.
func testNewProvider(t *testing.T, redirectURL string, tp *oidc.TestProvider) *oidc.Provider {
	const op = "testNewProvider"
	t.Helper()
	require := require.New(t)
	require.NotEmptyf(redirectURL, "%s: redirect URL is empty", op)

	tp.SetAllowedRedirectURIs([]string{redirectURL})
	c, err := oidc.NewConfig(
		tp.Addr(),
		oidc.TestProviderClientID,
		"",
		[]oidc.Alg{oidc.ES256},
		[]string{redirectURL},
		oidc.WithProviderCA(tp.CACert()),
	)
	require.NoError(err)
	p, err := oidc.NewProvider(c)
	require.NoError(err)
	t.Cleanup(p.Done)
	return p
}
