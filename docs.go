// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// capsignin (cap sign-in) coordinates a browser user's sign-in with an OIDC
// provider and a backend which exchanges the provider's id_token for its own
// session credential.
//
// The packages are:
//
//   - oidc: provider discovery, the authorization code flow with PKCE, token
//     refresh and id_token verification, plus an in-process TestProvider.
//   - oidc/callback: the redirect callback handler.
//   - client: a public client which caches accounts and reports its
//     interaction status.
//   - session: the Coordinator which drives login, credential exchange and
//     logout, and the interfaces it depends on.
//   - backend: the backend's account endpoints.
//   - store: durable storage for the session credential.
//   - config: environment configuration for cmd/signin.
package capsignin
