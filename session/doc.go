// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
session coordinates a single user's sign-in against an OIDC identity provider
and a backend which exchanges the provider's id_token for a session
credential.

Primary types provided by the package

* InteractionTracker: observes the provider's interaction status, drains any
pending redirect result exactly once and notifies subscribers when the
provider becomes idle.

* AccountResolver: picks the one active account from the provider's cache or
starts an interactive login when there isn't one.

* CredentialExchange: silently acquires a provider token for the active
account, relays its id_token to the backend and stores the returned
Credential. Any failure leaves a clean, signed out state behind.

* Coordinator: wires the three together for a host and derives the Route a
user should see.

The package depends only on the IdentityProvider, Backend and CredentialStore
interfaces. See the client, backend and store packages for implementations.
*/
package session
