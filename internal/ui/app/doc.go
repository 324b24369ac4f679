// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the campus tour screens to the session watchdog.
//
// The model owns three views (login, places, detail) and, while a user is
// signed in, one session.Watchdog. Terminal input is published to a
// session.Feed the watchdog subscribes to. Watchdog notifications and the
// post-expiry navigation arrive back in Update as WatchdogMsg and
// NavigateMsg through a Sender, so no timer goroutine touches model state.
//
// # Usage
//
//	err := app.Run(ctx, app.Deps{
//	    Auth:    authClient,
//	    Places:  tourClient,
//	    Session: cfg.WatchdogConfig(),
//	}, app.RunOptions{AltScreen: true, Mouse: true})
package app
