// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package client

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/language"
)

// DefaultRequestTTL is how long an interactive login may take before its
// pending request is considered stale.
const DefaultRequestTTL = 10 * time.Minute

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

type options struct {
	withLogger     hclog.Logger
	withRequestTTL time.Duration
	withNowFunc    func() time.Time
	withUILocales  []language.Tag
}

func getDefaults() options {
	return options{
		withLogger:     hclog.NewNullLogger(),
		withRequestTTL: DefaultRequestTTL,
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

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithRequestTTL overrides DefaultRequestTTL.
func WithRequestTTL(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && d > 0 {
			o.withRequestTTL = d
		}
	}
}

// WithNow provides a time source for login requests and cached tokens.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && now != nil {
			o.withNowFunc = now
		}
	}
}

// WithUILocales provides the preferred languages of the provider's login
// pages, sent with every interactive login.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withUILocales = locales
		}
	}
}
