// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/capsignin/client"
	"github.com/hashicorp/capsignin/session"
	"github.com/hashicorp/go-hclog"
)

// app serves the sign-in routes for a single browser user.
type app struct {
	client *client.PublicClient
	coord  *session.Coordinator
	logger hclog.Logger
	views  *views
}

func newAppWith(pc *client.PublicClient, b session.Backend, s session.CredentialStore, logger hclog.Logger, opt ...session.Option) (*app, error) {
	const op = "newApp"
	coord, err := session.NewCoordinator(pc, b, s, opt...)
	if err != nil {
		pc.Done()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v, err := newViews()
	if err != nil {
		coord.Close()
		pc.Done()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &app{
		client: pc,
		coord:  coord,
		logger: logger.Named("http"),
		views:  v,
	}, nil
}

// Close tears down the coordinator and releases the provider.
func (a *app) Close() {
	a.coord.Close()
	a.client.Done()
}

func (a *app) routes(ctx context.Context) (http.Handler, error) {
	callback, err := a.client.CallbackHandler(ctx, session.RouteLogin.Path())
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", a.loginPage)
	mux.HandleFunc("POST /login", a.loginSubmit)
	mux.HandleFunc("GET /callback", callback)
	mux.HandleFunc("GET /welcome", a.welcome)
	mux.HandleFunc("POST /logout", a.logout)
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, session.RouteLogin.Path(), http.StatusSeeOther)
	})
	return mux, nil
}
