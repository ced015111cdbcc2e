// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

type loginView struct {
	Message string
}

type welcomeView struct {
	Name     string
	Username string
}

type views struct {
	templates map[string]*template.Template
}

func newViews() (*views, error) {
	const op = "newViews"
	v := &views{templates: map[string]*template.Template{}}
	for _, name := range []string{"login", "welcome"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("%s: unable to parse %s: %w", op, name, err)
		}
		v.templates[name] = t
	}
	return v, nil
}

func (v *views) render(w http.ResponseWriter, name string, data interface{}) {
	t, ok := v.templates[name]
	if !ok {
		http.Error(w, "unknown view", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
