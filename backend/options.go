// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

type options struct {
	withCACert     string
	withTimeout    time.Duration
	withHTTPClient *http.Client
	withLogger     hclog.Logger
	withAllowHTTP  bool
}

func getDefaults() options {
	return options{
		withTimeout: DefaultTimeout,
		withLogger:  hclog.NewNullLogger(),
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaults()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithCACert provides a PEM encoded CA certificate used to verify the
// backend's TLS certificate.
func WithCACert(pem string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withCACert = pem
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && d > 0 {
			o.withTimeout = d
		}
	}
}

// WithHTTPClient provides the http client, WithCACert and WithTimeout are
// ignored when it's used.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withHTTPClient = c
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithAllowHTTP permits an http base URL. It's meant for local development
// against a backend without TLS.
func WithAllowHTTP() Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withAllowHTTP = true
		}
	}
}
