// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"net/http"

	"github.com/hashicorp/capsignin/session"
)

// logout always leaves the user signed out locally. The browser is sent to
// the provider's end session page when there is one.
func (a *app) logout(w http.ResponseWriter, req *http.Request) {
	logoutURL, err := a.coord.Logout(req.Context())
	if err != nil {
		a.logger.Warn("logout completed with errors", "error", err)
	}
	if logoutURL == "" {
		logoutURL = session.RouteLogin.Path()
	}
	http.Redirect(w, req, logoutURL, http.StatusSeeOther)
}
