// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNewCoordinator(t *testing.T, p *testProvider, b *testBackend, s *testStore, opt ...Option) *Coordinator {
	t.Helper()
	opt = append([]Option{WithLogger(hclog.NewNullLogger())}, opt...)
	c, err := NewCoordinator(p, b, s, opt...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewCoordinator(t *testing.T) {
	t.Parallel()
	_, err := NewCoordinator(nil, &testBackend{}, &testStore{})
	assert.ErrorIs(t, err, ErrNilParameter)
	_, err = NewCoordinator(newTestProvider(), nil, &testStore{})
	assert.ErrorIs(t, err, ErrNilParameter)
	_, err = NewCoordinator(newTestProvider(), &testBackend{}, nil)
	assert.ErrorIs(t, err, ErrNilParameter)
}

func TestCoordinator_HappyPath(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	p := newTestProvider()
	b := &testBackend{credential: "abc123"}
	s := &testStore{}
	c := testNewCoordinator(t, p, b, s)

	route, err := c.Start(ctx)
	require.NoError(err)
	assert.Equal(RouteLogin, route)
	assert.Nil(c.Account())

	authURL, err := c.Login(ctx)
	require.NoError(err)
	assert.Equal(p.loginURL, authURL)

	// the browser comes back from the provider with account A
	p.completeLogin(testAccountA)
	route, err = c.Start(ctx)
	require.NoError(err)
	assert.Equal(RouteAuthenticated, route)
	assert.Equal(Credential("abc123"), s.get())
	require.NotNil(c.Account())
	assert.Equal(testAccountA.ID, c.Account().ID)
	assert.Empty(c.Message())
	assert.Equal(AttemptResolved, c.resolver.Attempt())

	verifies, _ := b.calls()
	assert.Equal(1, verifies)
	assert.Equal([]string{"id-token"}, b.idTokens)

	// reloading the page doesn't exchange again
	route, err = c.Start(ctx)
	require.NoError(err)
	assert.Equal(RouteAuthenticated, route)
	verifies, _ = b.calls()
	assert.Equal(1, verifies)
}

func TestCoordinator_StoredCredential(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	p := newTestProvider(testAccountA)
	b := &testBackend{credential: "abc123"}
	s := &testStore{value: "existing"}
	c := testNewCoordinator(t, p, b, s)

	route, err := c.Start(context.Background())
	require.NoError(err)
	assert.Equal(RouteAuthenticated, route)
	verifies, _ := b.calls()
	assert.Zero(verifies)
	assert.Equal(Credential("existing"), s.get())
}

func TestCoordinator_CachedAccountWithoutCredential(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	p := newTestProvider(testAccountB, testAccountA)
	b := &testBackend{credential: "abc123"}
	s := &testStore{}
	c := testNewCoordinator(t, p, b, s)

	route, err := c.Start(context.Background())
	require.NoError(err)
	assert.Equal(RouteAuthenticated, route)
	assert.Equal(testAccountB.ID, c.Account().ID)
	assert.Equal(testAccountB.ID, p.ActiveAccount().ID)
	assert.Equal(Credential("abc123"), s.get())
}

func TestCoordinator_SilentFailure(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	p := newTestProvider(testAccountA)
	p.SetActiveAccount(&testAccountA)
	p.tokenErr = ErrInteractionRequired
	b := &testBackend{credential: "abc123"}
	s := &testStore{}
	c := testNewCoordinator(t, p, b, s)

	route, err := c.Start(context.Background())
	require.NoError(err)
	assert.Equal(RouteLogin, route)
	assert.NotEmpty(c.Message())
	assert.ErrorIs(c.Err(), ErrSilentToken)
	verifies, _ := b.calls()
	assert.Zero(verifies)
	assert.Nil(c.Account())
}

func TestCoordinator_BackendRejects(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	p := newTestProvider()
	b := &testBackend{verifyErr: errTestRejected}
	s := &testStore{value: "stale"}
	c := testNewCoordinator(t, p, b, s)

	_, err := c.Login(ctx)
	require.NoError(err)
	p.completeLogin(testAccountA)
	route, err := c.Start(ctx)
	require.NoError(err)

	verifies, _ := b.calls()
	assert.Equal(1, verifies)
	assert.Equal(RouteLogin, route)
	assert.Empty(s.get())
	assert.Empty(p.Accounts())
	assert.Nil(c.Account())
	assert.ErrorIs(c.Err(), ErrVerification)
	assert.NotEmpty(c.Message())

	// the user can start over
	_, err = c.Login(ctx)
	assert.NoError(err)
}

func TestCoordinator_LoginFailed(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	p := newTestProvider()
	b := &testBackend{credential: "abc123"}
	c := testNewCoordinator(t, p, b, &testStore{})

	_, err := c.Login(ctx)
	require.NoError(err)
	p.failLogin(errors.New("access_denied"))

	route, err := c.Start(ctx)
	require.NoError(err)
	assert.Equal(RouteLogin, route)
	assert.ErrorIs(c.Err(), ErrNoAccount)
	assert.Equal(UserMessage(ErrNoAccount), c.Message())
	assert.Equal(AttemptFailed, c.resolver.Attempt())

	// a failed attempt isn't retried until the user asks
	route, err = c.Start(ctx)
	require.NoError(err)
	assert.Equal(RouteLogin, route)
	verifies, _ := b.calls()
	assert.Zero(verifies)

	_, err = c.Login(ctx)
	require.NoError(err)
	assert.Equal(AttemptRequested, c.resolver.Attempt())
	assert.Empty(c.Message())
}

func TestCoordinator_LoginStartFails(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	p := newTestProvider()
	p.loginErr = errors.New("discovery unavailable")
	c := testNewCoordinator(t, p, &testBackend{credential: "abc123"}, &testStore{})

	_, err := c.Login(ctx)
	require.Error(err)
	msg := c.Message()
	assert.NotEmpty(msg)

	// the login view reloads after the failed submit
	route, err := c.Start(ctx)
	require.NoError(err)
	assert.Equal(RouteLogin, route)
	assert.Equal(msg, c.Message())
	assert.Nil(c.Account())

	p.mu.Lock()
	p.loginErr = nil
	p.mu.Unlock()
	_, err = c.Login(ctx)
	require.NoError(err)
	assert.Empty(c.Message())
}

func TestCoordinator_LoginSuppressed(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	p := newTestProvider()
	c := testNewCoordinator(t, p, &testBackend{}, &testStore{})

	_, err := c.Login(ctx)
	require.NoError(err)
	_, err = c.Login(ctx)
	assert.ErrorIs(err, ErrInteractionSuppressed)
	assert.Nil(c.Err())
	_, login, _, _, _ := p.counts()
	assert.Equal(1, login)
}

func TestCoordinator_Logout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name      string
		logoutErr error
		opt       []Option
		wantURL   string
	}{
		{
			name: "backend-ok",
		},
		{
			name:      "backend-fails",
			logoutErr: errors.New("connection refused"),
		},
		{
			name:      "backend-fails-with-redirect",
			logoutErr: errors.New("connection refused"),
			opt:       []Option{WithLogoutRedirect("https://app.example.com/login")},
			wantURL:   "https://idp.example.com/logout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			p := newTestProvider(testAccountA)
			b := &testBackend{credential: "abc123", logoutErr: tt.logoutErr}
			s := &testStore{}
			c := testNewCoordinator(t, p, b, s, tt.opt...)

			route, err := c.Start(ctx)
			require.NoError(err)
			require.Equal(RouteAuthenticated, route)

			got, err := c.Logout(ctx)
			require.NoError(err)
			assert.Equal(tt.wantURL, got)
			_, logouts := b.calls()
			assert.Equal(1, logouts)
			assert.Equal([]Credential{"abc123"}, b.logoutCreds)
			assert.Empty(s.get())
			assert.Empty(p.Accounts())
			assert.Nil(c.Account())
			assert.Equal(RouteLogin, c.Route(ctx))
			assert.Empty(c.Message())
		})
	}
}

func TestCoordinator_LogoutAfterRestart(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	// the credential outlived the process, the provider's account cache didn't
	p := newTestProvider()
	b := &testBackend{credential: "abc123"}
	s := &testStore{value: "persisted"}
	c := testNewCoordinator(t, p, b, s)

	route, err := c.Start(ctx)
	require.NoError(err)
	assert.Equal(RouteLogin, route)
	verifies, _ := b.calls()
	assert.Zero(verifies)

	_, err = c.Logout(ctx)
	require.NoError(err)
	assert.Equal([]Credential{"persisted"}, b.logoutCreds)
	assert.Empty(s.get())
}

func TestCoordinator_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("operations-after-close", func(t *testing.T) {
		assert := assert.New(t)
		p := newTestProvider(testAccountA)
		c := testNewCoordinator(t, p, &testBackend{credential: "abc123"}, &testStore{})
		c.Close()
		route, err := c.Start(ctx)
		assert.ErrorIs(err, ErrClosed)
		assert.Equal(RouteLogin, route)
		_, err = c.Login(ctx)
		assert.ErrorIs(err, ErrClosed)
		assert.Equal(0, p.subscribers())
		c.Close()
	})
	t.Run("late-result-discarded", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := newTestProvider(testAccountA)
		b := &testBackend{credential: "abc123"}
		s := &testStore{}
		c := testNewCoordinator(t, p, b, s)
		b.verifyHook = c.Close

		route, err := c.Start(ctx)
		require.NoError(err)
		assert.Equal(RouteLogin, route)
		verifies, _ := b.calls()
		assert.Equal(1, verifies)
		assert.Empty(s.get())
		assert.Nil(c.Account())
		assert.Nil(c.Err())
		assert.Len(p.Accounts(), 1)
	})
}

func TestCoordinator_RouteStoreFailure(t *testing.T) {
	t.Parallel()
	p := newTestProvider(testAccountA)
	s := &testStore{value: "abc123"}
	c := testNewCoordinator(t, p, &testBackend{}, s)
	_, err := c.Start(context.Background())
	require.NoError(t, err)
	s.mu.Lock()
	s.loadErr = errors.New("permission denied")
	s.mu.Unlock()
	assert.Equal(t, RouteLogin, c.Route(context.Background()))
}
