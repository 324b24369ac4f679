// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/jeranaias/campustour-tui/internal/auth"
	"github.com/jeranaias/campustour-tui/internal/config"
	"github.com/jeranaias/campustour-tui/internal/session"
	"github.com/jeranaias/campustour-tui/internal/tour"
)

// =============================================================================
// WATCHDOG MESSAGES
// =============================================================================

// WatchdogMsg carries a watchdog event into the update loop.
type WatchdogMsg struct {
	Event session.Event
}

// NavigateMsg asks the app to switch views. The watchdog sends it after a
// forced sign-out.
type NavigateMsg struct {
	Destination session.Destination
}

// ConfigReloadedMsg delivers a configuration re-read from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// BACKEND MESSAGES
// =============================================================================

type signedInMsg struct {
	session *auth.Session
}

type signInFailedMsg struct {
	err error
}

type placesLoadedMsg struct {
	places []tour.Place
}

type placesFailedMsg struct {
	err error
}

type signedOutMsg struct {
	err error
}
