// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Command signin serves the sign-in flow: a login page, the provider's
// redirect callback and a welcome page for the signed in user.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/capsignin/backend"
	"github.com/hashicorp/capsignin/client"
	"github.com/hashicorp/capsignin/config"
	"github.com/hashicorp/capsignin/session"
	"github.com/hashicorp/capsignin/store"
	"github.com/hashicorp/go-hclog"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.routes(ctx)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	logger.Info("listening", "addr", cfg.Addr, "redirect_url", cfg.RedirectURL)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("stopped")
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// newApp wires the public client, backend client and credential store into
// a coordinator. The provider is discovered before the app is returned.
func newApp(ctx context.Context, cfg *config.Config, logger hclog.Logger) (*app, error) {
	oc, err := cfg.OIDCConfig()
	if err != nil {
		return nil, err
	}
	pc, err := client.NewPublicClient(oc, cfg.RedirectURL,
		client.WithLogger(logger),
		client.WithRequestTTL(cfg.LoginRequestTTL),
		client.WithUILocales(cfg.UILocaleTags()...),
	)
	if err != nil {
		return nil, err
	}
	if err := pc.Initialize(ctx); err != nil {
		return nil, err
	}

	backendOpts := []backend.Option{
		backend.WithLogger(logger),
		backend.WithTimeout(cfg.BackendTimeout),
	}
	if cfg.BackendCAPEM != "" {
		backendOpts = append(backendOpts, backend.WithCACert(cfg.BackendCAPEM))
	}
	if cfg.BackendAllowHTTP {
		backendOpts = append(backendOpts, backend.WithAllowHTTP())
	}
	bc, err := backend.NewClient(cfg.BackendURL, backendOpts...)
	if err != nil {
		pc.Done()
		return nil, err
	}

	fs, err := store.NewFileStore(cfg.CredentialFile, store.WithLogger(logger))
	if err != nil {
		pc.Done()
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithLoginScopes(cfg.Scopes...),
		session.WithVerificationScopes(cfg.VerificationScopes...),
	}
	if cfg.LogoutRedirect {
		opts = append(opts, session.WithLogoutRedirect(cfg.PostLogoutRedirectURL))
	}
	return newAppWith(pc, bc, fs, logger, opts...)
}
