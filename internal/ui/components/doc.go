// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the UI components for the campustour TUI.

Each component is a small Bubble Tea model (Update returns the component by
value) styled through the shared styles.Theme.

# Components

LoginForm (login_form.go) - Email/password form with an inline spinner.
PlaceList (place_list.go) - Filterable, scrollable list of tour stops.
PlaceDetail (place_detail.go) - Markdown description rendered with glamour in a viewport.
SessionTimeoutOverlay (session_timeout_overlay.go) - Idle warning countdown and expired notice.
InlineSpinner (spinner.go) - Busy indicator for backend calls.
StatusBar (statusbar.go) - Key hints and the session phase indicator.

# Usage

	overlay := components.NewSessionTimeoutOverlay()
	overlay.SetState(watchdog.Snapshot())
	if overlay.IsVisible() {
	    return overlay.View()
	}
*/
package components
