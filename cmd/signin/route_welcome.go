// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"net/http"

	"github.com/hashicorp/capsignin/session"
)

func (a *app) welcome(w http.ResponseWriter, req *http.Request) {
	account := a.coord.Account()
	if a.coord.Route(req.Context()) != session.RouteAuthenticated || account == nil {
		http.Redirect(w, req, session.RouteLogin.Path(), http.StatusSeeOther)
		return
	}
	a.views.render(w, "welcome", welcomeView{
		Name:     account.Name,
		Username: account.Username,
	})
}
