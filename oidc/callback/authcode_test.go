// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/hashicorp/capsignin/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tp := oidc.StartTestProvider(t)
	p := testNewProvider(t, "https://alice.com/callback", tp)
	rw := NewSingleRequestReader(nil)

	tests := []struct {
		name      string
		p         *oidc.Provider
		rw        RequestReader
		sFn       SuccessResponseFunc
		eFn       ErrorResponseFunc
		wantErr   bool
		wantIsErr error
	}{
		{"valid", p, rw, testSuccessFn, testFailFn, false, nil},
		{"nil-p", nil, rw, testSuccessFn, testFailFn, true, oidc.ErrInvalidParameter},
		{"nil-rw", p, nil, testSuccessFn, testFailFn, true, oidc.ErrInvalidParameter},
		{"nil-sFn", p, rw, nil, testFailFn, true, oidc.ErrInvalidParameter},
		{"nil-eFn", p, rw, testSuccessFn, nil, true, oidc.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := AuthCode(ctx, tt.p, tt.rw, tt.sFn, tt.eFn)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func Test_AuthCodeResponses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tp := oidc.StartTestProvider(t)
	redirect := "https://alice.com/callback"
	p := testNewProvider(t, redirect, tp)

	tests := []struct {
		name                string
		exp                 time.Duration
		readerOverride      RequestReader
		stateOverride       string
		codeOverride        string
		loginError          string
		omitIDToken         bool
		wantStatusCode      int
		wantError           bool
		wantRespError       string
		wantRespDescription string
	}{
		{
			name:           "basic",
			exp:            1 * time.Minute,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "provider-error",
			exp:            1 * time.Minute,
			loginError:     "access_denied",
			wantStatusCode: http.StatusUnauthorized,
			wantError:      true,
			wantRespError:  "access_denied",
		},
		{
			name:                "expired",
			exp:                 1 * time.Nanosecond,
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "request is expired",
		},
		{
			name:                "state-not-matching",
			exp:                 1 * time.Minute,
			stateOverride:       "not-matching",
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "not found",
		},
		{
			name:                "reader-returns-nil",
			exp:                 1 * time.Minute,
			readerOverride:      &testNilRequestReader{},
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "not found",
		},
		{
			name:                "bad-code",
			exp:                 1 * time.Minute,
			codeOverride:        "not-a-code",
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "unable to exchange authorization code",
		},
		{
			name:                "missing-id-token",
			exp:                 1 * time.Minute,
			omitIDToken:         true,
			wantStatusCode:      http.StatusInternalServerError,
			wantError:           true,
			wantRespError:       "internal-callback-error",
			wantRespDescription: "id_token is missing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			tp := tp
			p := p
			if tt.omitIDToken {
				tp = oidc.StartTestProvider(t)
				tp.OmitIDTokens()
				p = testNewProvider(t, redirect, tp)
			}
			tp.SetLoginError(tt.loginError)
			defer tp.SetLoginError("")

			oidcRequest, err := oidc.NewRequest(tt.exp, redirect)
			require.NoError(err)

			var reader RequestReader = NewSingleRequestReader(oidcRequest)
			if tt.readerOverride != nil {
				reader = tt.readerOverride
			}
			h, err := AuthCode(ctx, p, reader, testSuccessFn, testFailFn)
			require.NoError(err)

			var callbackQuery url.Values
			if tt.exp > time.Millisecond {
				authURL, err := p.AuthURL(ctx, oidcRequest)
				require.NoError(err)
				resp, err := tp.HTTPClient().Get(authURL)
				require.NoError(err)
				resp.Body.Close()
				require.Equal(http.StatusFound, resp.StatusCode)
				loc, err := url.Parse(resp.Header.Get("Location"))
				require.NoError(err)
				callbackQuery = loc.Query()
			} else {
				callbackQuery = url.Values{"state": {oidcRequest.State()}, "code": {"unused"}}
			}
			if tt.stateOverride != "" {
				callbackQuery.Set("state", tt.stateOverride)
			}
			if tt.codeOverride != "" {
				callbackQuery.Set("code", tt.codeOverride)
			}

			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, redirect+"?"+callbackQuery.Encode(), nil))
			resp := rec.Result()
			contents, err := io.ReadAll(resp.Body)
			require.NoError(err)

			assert.Equal(tt.wantStatusCode, resp.StatusCode)
			if tt.wantError {
				var errResp AuthenErrorResponse
				require.NoError(json.Unmarshal(contents, &errResp))
				assert.Equal(tt.wantRespError, errResp.Error)
				if tt.wantRespDescription != "" {
					assert.Contains(errResp.Description, tt.wantRespDescription)
				}
				return
			}
			assert.Equal("login successful", string(contents))
		})
	}
}

func TestAuthenErrorResponse_Err(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	var nilResp *AuthenErrorResponse
	assert.NoError(nilResp.Err())

	err := (&AuthenErrorResponse{Error: "access_denied"}).Err()
	assert.ErrorIs(err, oidc.ErrLoginFailed)
	assert.Contains(err.Error(), "access_denied")

	err = (&AuthenErrorResponse{Error: "access_denied", Description: "user cancelled"}).Err()
	assert.ErrorIs(err, oidc.ErrLoginFailed)
	assert.Contains(err.Error(), "user cancelled")
}
