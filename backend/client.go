// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
backend is a client for the sign-in backend. The backend verifies a provider
id_token and answers with its own session token, and it terminates that
session on logout.
*/
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/capsignin/session"
	sdkHttp "github.com/hashicorp/capsignin/sdk/http"
	"github.com/hashicorp/go-hclog"
)

const (
	VerifyPath = "/Account/MicrosoftLogin"
	LogoutPath = "/Account/Logout"

	// DefaultTimeout bounds every backend request.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidCACert    = errors.New("invalid CA certificate")
	ErrRejected         = errors.New("backend rejected request")
	ErrMissingToken     = errors.New("backend response is missing a token")
	ErrInsecureURL      = errors.New("backend URL is not https")
)

var _ session.Backend = (*Client)(nil)

// StatusError is returned for non-2xx backend responses. It wraps
// ErrRejected.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend responded %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (e *StatusError) Unwrap() error { return ErrRejected }

// Client calls the backend's account endpoints.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	logger  hclog.Logger
}

// NewClient creates a Client for the backend at baseURL.
//
// An http baseURL is rejected with ErrInsecureURL unless WithAllowHTTP is used.
//
// Supported options: WithCACert, WithTimeout, WithHTTPClient, WithLogger,
// WithAllowHTTP
func NewClient(baseURL string, opt ...Option) (*Client, error) {
	const op = "backend.NewClient"
	if baseURL == "" {
		return nil, fmt.Errorf("%s: base URL is empty: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: base URL %q is invalid: %w", op, baseURL, ErrInvalidParameter)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("%s: base URL scheme %q is not http or https: %w", op, u.Scheme, ErrInvalidParameter)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%s: base URL %q has no host: %w", op, baseURL, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	if u.Scheme == "http" && !opts.withAllowHTTP {
		return nil, fmt.Errorf("%s: base URL %q is not https: %w", op, u.Redacted(), ErrInsecureURL)
	}

	c := &Client{
		baseURL: u,
		client:  opts.withHTTPClient,
		logger:  opts.withLogger.Named("backend"),
	}
	if c.client == nil {
		c.client, err = sdkHttp.NewClient(opts.withCACert, opts.withTimeout)
		if err != nil {
			if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidCACert)
			}
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	if u.Scheme == "http" {
		c.logger.Warn("backend is not using https", "url", u.Redacted())
	}
	return c, nil
}

// Verify sends idToken to the backend for verification and returns the
// session credential from the response's token field.
func (c *Client) Verify(ctx context.Context, idToken string) (session.Credential, error) {
	const op = "Client.Verify"
	if idToken == "" {
		return "", fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	body, err := json.Marshal(struct {
		Token string `json:"token"`
	}{Token: idToken})
	if err != nil {
		return "", fmt.Errorf("%s: unable to encode request: %w", op, err)
	}
	req, err := c.newRequest(ctx, VerifyPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	// field names match case-insensitively, so both "token" and "Token" work
	var reply struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("%s: unable to decode response: %w", op, err)
	}
	if reply.Token == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMissingToken)
	}
	c.logger.Debug("id_token verified")
	return session.Credential(reply.Token), nil
}

// Logout ends the backend session. The credential, when not empty, is sent
// as a bearer token.
func (c *Client) Logout(ctx context.Context, cred session.Credential) error {
	const op = "Client.Logout"
	req, err := c.newRequest(ctx, LogoutPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cred != "" {
		req.Header.Set("Authorization", "Bearer "+string(cred))
	}
	if _, err := c.do(req); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("unable to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("backend rejected request", "path", req.URL.Path, "status", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
