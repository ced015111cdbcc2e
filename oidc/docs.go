// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oidc is a package for integrating with an OIDC provider as a public client,
using the authorization code flow with PKCE.

Primary types provided by the package

* Request: represents one OIDC authentication attempt for a user. It contains
the state, nonce and PKCE code verifier needed to complete that one-time flow
across the redirect to the provider and back. All Requests expire.

* Token: represents an OIDC id_token, as well as an Oauth2 access_token and
refresh_token (including the access_token expiry)

* Config: provides the configuration for a public OIDC client (client id,
issuer, allowed redirect URLs, supported signing algorithms, additional scopes
requested, etc)

* Provider: provides integration with a provider. The provider provides
capabilities like: generating an auth URL, exchanging codes for tokens,
refreshing tokens, verifying id_tokens and building end session URLs.

* Alg: represents asymmetric signing algorithms

* TestProvider: an in-process OIDC provider which is useful when writing tests
or running a local development environment.

The oidc/callback package

The callback package includes the ability to create a http.HandlerFunc which can be used
for the redirect leg of the OIDC flow where the authorization code is exchanged for
tokens.
*/
package oidc
