// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth is the client for the tour backend's password authentication.
//
// # Key Types
//
//   - Client: Signs in and out against the backend's /auth/v1 endpoints
//   - Session: The signed-in user and their access token
//   - TokenStore: Where the current session is kept between runs
//   - Sealer: Encrypts a FileStore's session file at rest
//
// Client.SignOut satisfies session.SignOuter, so the idle watchdog can end a
// session directly.
//
// # Usage
//
//	c, err := auth.NewClient(auth.Options{BaseURL: url, AnonKey: key, Store: store})
//	s, err := c.SignIn(ctx, email, password)
//	...
//	err = c.SignOut(ctx)
package auth
