// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/capsignin/oidc"
)

// SuccessResponseFunc is used by Callbacks to create a http response when the
// callback is successful.
//
// The function state parameter will contain the state that was returned as
// part of a successful oidc authentication response. The oidc.Token is the
// result of a successful token exchange with the provider.  The function
// should use the http.ResponseWriter to send back whatever content (headers,
// html, JSON, etc) it wishes to the client that originated the oidc flow.
//
// A public client typically records the token as its pending redirect result
// and redirects the browser back to the page that started the flow.
type SuccessResponseFunc func(state string, t oidc.Token, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Callbacks to create a http response when the
// callback fails.
//
// The function receives the state returned as part of the oidc authentication
// response.  It also gets parameters for the oidc authentication error response
// and/or the callback error raised while processing the request.  The function
// should use the http.ResponseWriter to send back whatever content (headers,
// html, JSON, etc) it wishes to the client that originated the oidc flow.
//
// respErr is set when the provider redirected back with an oauth error, e is
// set when processing the response failed.
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string
	Description string
	URI         string
}

// Err converts the error response into an error wrapping oidc.ErrLoginFailed.
func (r *AuthenErrorResponse) Err() error {
	if r == nil {
		return nil
	}
	if r.Description != "" {
		return fmt.Errorf("%s (%s): %w", r.Error, r.Description, oidc.ErrLoginFailed)
	}
	return fmt.Errorf("%s: %w", r.Error, oidc.ErrLoginFailed)
}
