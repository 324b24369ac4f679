// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the inactivity watchdog that enforces an idle
// session timeout on the client, independent of server-side session expiry.
//
// The watchdog runs one epoch at a time. An epoch starts when the watchdog
// starts, when accepted user activity is observed, or when the user extends
// the session. Each epoch arms a warning timer and an expiry timer; while the
// warning is showing, a recurring tick re-derives the countdown from the
// absolute time of the last activity.
//
// # Key Types
//
//   - Watchdog: the Active -> Warning -> Expired state machine
//   - Config: idle budget, warning lead and intake throttle
//   - State: snapshot exposed to the UI (ShowWarning, SecondsRemaining)
//   - Feed: fan-out ActivitySource fed by the host's input loop
//   - Event: notifications delivered to observers
//
// # Usage
//
//	feed := session.NewFeed()
//	wd, err := session.New(session.DefaultConfig(), authClient, navigator,
//	    session.Options{Source: feed})
//	if err != nil {
//	    return err
//	}
//	if err := wd.Start(); err != nil {
//	    return err
//	}
//	defer wd.Stop()
//
//	// Host input loop:
//	feed.Publish(session.Activity{Kind: session.ActivityKey, At: time.Now()})
//
//	// "Stay signed in" button:
//	wd.Extend()
package session
