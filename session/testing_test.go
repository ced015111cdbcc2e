// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"sync"
)

// testProvider is an in-memory IdentityProvider.
type testProvider struct {
	mu          sync.Mutex
	accounts    []Account
	active      *Account
	status      InteractionStatus
	pending     *RedirectResult
	redirectErr error
	loginErr    error
	tokenErr    error
	idToken     string
	loginURL    string
	logoutURL   string
	clearErr    error
	nextSub     int
	subs        map[int]func(InteractionStatus)

	// handleHook runs inside HandleRedirect before the result is consumed.
	handleHook func()

	initCalls, handleCalls, loginCalls, silentCalls, logoutCalls, clearCalls int
	lastLogout                                                           LogoutRequest
}

func newTestProvider(accounts ...Account) *testProvider {
	return &testProvider{
		accounts:  accounts,
		idToken:   "id-token",
		loginURL:  "https://idp.example.com/authorize?state=st_1",
		logoutURL: "https://idp.example.com/logout",
		subs:      map[int]func(InteractionStatus){},
	}
}

// completeLogin simulates the browser coming back from the provider with a
// successful login for a.
func (p *testProvider) completeLogin(a Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &RedirectResult{Kind: RedirectLogin, Account: &a, Token: &TokenResult{IDToken: p.idToken, Account: a}}
}

// failLogin simulates the browser coming back with a failed login.
func (p *testProvider) failLogin(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirectErr = err
}

func (p *testProvider) emit(s InteractionStatus) {
	p.mu.Lock()
	p.status = s
	subs := make([]func(InteractionStatus), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (p *testProvider) Initialize(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initCalls++
	return nil
}

func (p *testProvider) Accounts() []Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Account(nil), p.accounts...)
}

func (p *testProvider) ActiveAccount() *Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active.clone()
}

func (p *testProvider) SetActiveAccount(a *Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = a.clone()
}

func (p *testProvider) HandleRedirect(context.Context) (*RedirectResult, error) {
	p.mu.Lock()
	p.handleCalls++
	pending, redirectErr, hook := p.pending, p.redirectErr, p.handleHook
	p.pending, p.redirectErr = nil, nil
	p.mu.Unlock()

	if pending == nil && redirectErr == nil {
		return nil, nil
	}
	p.emit(InteractionHandleRedirect)
	if hook != nil {
		hook()
	}
	if redirectErr != nil {
		p.emit(InteractionNone)
		return nil, redirectErr
	}
	p.mu.Lock()
	if pending.Account != nil {
		p.accounts = append(p.accounts, *pending.Account)
		p.active = pending.Account.clone()
	}
	p.mu.Unlock()
	p.emit(InteractionNone)
	return pending, nil
}

func (p *testProvider) LoginRedirect(context.Context, LoginRequest) (string, error) {
	p.mu.Lock()
	if p.loginErr != nil {
		err := p.loginErr
		p.mu.Unlock()
		return "", err
	}
	if p.status != InteractionNone {
		p.mu.Unlock()
		return "", ErrInteractionInProgress
	}
	p.loginCalls++
	url := p.loginURL
	p.mu.Unlock()
	p.emit(InteractionLogin)
	return url, nil
}

func (p *testProvider) AcquireTokenSilent(_ context.Context, r TokenRequest) (*TokenResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.silentCalls++
	if p.tokenErr != nil {
		return nil, p.tokenErr
	}
	return &TokenResult{AccessToken: "access-token", IDToken: p.idToken, Account: r.Account, Scopes: r.Scopes}, nil
}

func (p *testProvider) Logout(_ context.Context, r LogoutRequest) (string, error) {
	p.mu.Lock()
	p.logoutCalls++
	p.lastLogout = r
	p.mu.Unlock()

	p.emit(InteractionLogout)
	p.mu.Lock()
	p.accounts = nil
	p.active = nil
	p.mu.Unlock()
	p.emit(InteractionNone)
	if r.Redirect {
		return p.logoutURL, nil
	}
	return "", nil
}

func (p *testProvider) ClearCache(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearCalls++
	if p.clearErr != nil {
		return p.clearErr
	}
	p.accounts = nil
	p.active = nil
	return nil
}

func (p *testProvider) InteractionStatus() InteractionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *testProvider) SubscribeInteraction(fn func(InteractionStatus)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *testProvider) subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *testProvider) counts() (handle, login, silent, logout, clearCache int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handleCalls, p.loginCalls, p.silentCalls, p.logoutCalls, p.clearCalls
}

var errTestRejected = errors.New("401 Unauthorized")

// testBackend is an in-memory Backend.
type testBackend struct {
	mu          sync.Mutex
	credential  Credential
	verifyErr   error
	logoutErr   error
	verifyHook  func()
	verifyCalls int
	logoutCalls int
	idTokens    []string
	logoutCreds []Credential
}

func (b *testBackend) Verify(_ context.Context, idToken string) (Credential, error) {
	b.mu.Lock()
	b.verifyCalls++
	b.idTokens = append(b.idTokens, idToken)
	hook := b.verifyHook
	cred, err := b.credential, b.verifyErr
	b.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	return cred, nil
}

func (b *testBackend) Logout(_ context.Context, c Credential) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutCalls++
	b.logoutCreds = append(b.logoutCreds, c)
	return b.logoutErr
}

func (b *testBackend) calls() (verify, logout int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.verifyCalls, b.logoutCalls
}

// testStore is an in-memory CredentialStore.
type testStore struct {
	mu       sync.Mutex
	value    Credential
	loadErr  error
	saveErr  error
	clearErr error
}

func (s *testStore) Load(context.Context) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", s.loadErr
	}
	return s.value, nil
}

func (s *testStore) Save(_ context.Context, c Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.value = c
	return nil
}

func (s *testStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.value = ""
	return nil
}

func (s *testStore) get() Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

var (
	testAccountA = Account{ID: "tenant|alice", Name: "Alice Doe", Username: "alice@example.com"}
	testAccountB = Account{ID: "tenant|bob", Name: "Bob Roe", Username: "bob@example.com"}
)
