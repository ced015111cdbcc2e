// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

type options struct {
	withEnvironment map[string]string
}

func getOpts(opt ...Option) options {
	var opts options
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithEnvironment reads variables from environ instead of the process
// environment.
func WithEnvironment(environ map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withEnvironment = environ
		}
	}
}
