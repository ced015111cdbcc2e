// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"net/http"

	"github.com/hashicorp/capsignin/session"
)

// loginPage handles every page load of the login route. It drains a
// pending provider redirect, then sends an authenticated user on to the
// welcome route.
func (a *app) loginPage(w http.ResponseWriter, req *http.Request) {
	route, err := a.coord.Start(req.Context())
	if err != nil {
		a.logger.Error("unable to start sign-in", "error", err)
	}
	if route == session.RouteAuthenticated {
		http.Redirect(w, req, route.Path(), http.StatusSeeOther)
		return
	}
	a.views.render(w, "login", loginView{Message: a.coord.Message()})
}

func (a *app) loginSubmit(w http.ResponseWriter, req *http.Request) {
	authURL, err := a.coord.Login(req.Context())
	switch {
	case errors.Is(err, session.ErrInteractionSuppressed):
		a.logger.Debug("login suppressed", "error", err)
		http.Redirect(w, req, session.RouteLogin.Path(), http.StatusSeeOther)
		return
	case err != nil:
		a.logger.Error("unable to start login", "error", err)
		http.Redirect(w, req, session.RouteLogin.Path(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, req, authURL, http.StatusSeeOther)
}
