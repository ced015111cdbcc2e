// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/hashicorp/capsignin/session"
	"github.com/stretchr/testify/require"
)

const (
	testRedirect  = "https://example.com/callback"
	testLanding   = "https://example.com/login"
	testAccountID = "00000000-0000-0000-0000-00000000a11c"
)

// testNewClient returns an initialized client for tp.
func testNewClient(t *testing.T, tp *oidc.TestProvider, opt ...Option) *PublicClient {
	t.Helper()
	require := require.New(t)
	c, err := oidc.NewConfig(tp.Addr(), oidc.TestProviderClientID, "", []oidc.Alg{oidc.ES256}, []string{testRedirect}, oidc.WithProviderCA(tp.CACert()))
	require.NoError(err)
	client, err := NewPublicClient(c, testRedirect, opt...)
	require.NoError(err)
	require.NoError(client.Initialize(context.Background()))
	t.Cleanup(client.Done)
	return client
}

// testCallback walks the provider's authorization endpoint for authURL and
// serves the resulting redirect to the client's callback handler.
func testCallback(t *testing.T, tp *oidc.TestProvider, c *PublicClient, authURL string) *httptest.ResponseRecorder {
	t.Helper()
	require := require.New(t)
	resp, err := tp.HTTPClient().Get(authURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(err)

	h, err := c.CallbackHandler(context.Background(), testLanding)
	require.NoError(err)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, loc.String(), nil))
	return rec
}

// testLogin completes an interactive login and drains its result.
func testLogin(t *testing.T, tp *oidc.TestProvider, c *PublicClient, r session.LoginRequest) *session.RedirectResult {
	t.Helper()
	require := require.New(t)
	authURL, err := c.LoginRedirect(context.Background(), r)
	require.NoError(err)
	rec := testCallback(t, tp, c, authURL)
	require.Equal(http.StatusFound, rec.Code)
	res, err := c.HandleRedirect(context.Background())
	require.NoError(err)
	require.NotNil(res)
	return res
}

// testStatusRecorder records every interaction status transition.
type testStatusRecorder struct {
	mu       sync.Mutex
	statuses []session.InteractionStatus
}

func (r *testStatusRecorder) record(s session.InteractionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *testStatusRecorder) get() []session.InteractionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.InteractionStatus(nil), r.statuses...)
}

func httptestGet(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}
