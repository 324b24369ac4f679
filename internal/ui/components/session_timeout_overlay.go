// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/campustour-tui/internal/session"
	"github.com/jeranaias/campustour-tui/internal/ui/styles"
	"github.com/jeranaias/campustour-tui/internal/util"
)

// =============================================================================
// SESSION TIMEOUT OVERLAY
// =============================================================================

// SessionTimeoutOverlay renders the idle-timeout warning and the expired
// notice. It holds no timers: the watchdog owns timing and the overlay only
// draws the last snapshot it was given.
type SessionTimeoutOverlay struct {
	state session.State

	// Dimensions
	width  int
	height int
}

// NewSessionTimeoutOverlay creates a hidden overlay.
func NewSessionTimeoutOverlay() SessionTimeoutOverlay {
	return SessionTimeoutOverlay{}
}

// SetSize sets the overlay dimensions.
func (o *SessionTimeoutOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// SetState replaces the snapshot the overlay renders.
func (o *SessionTimeoutOverlay) SetState(st session.State) {
	o.state = st
}

// IsVisible reports whether the overlay covers the screen.
func (o SessionTimeoutOverlay) IsVisible() bool {
	return o.state.ShowWarning() || o.state.Phase == session.PhaseExpired
}

// IsExpired reports whether the last snapshot was terminal.
func (o SessionTimeoutOverlay) IsExpired() bool {
	return o.state.Phase == session.PhaseExpired
}

// SecondsRemaining returns the countdown currently shown.
func (o SessionTimeoutOverlay) SecondsRemaining() int {
	return o.state.SecondsRemaining()
}

// View renders the overlay, or "" when hidden.
func (o SessionTimeoutOverlay) View() string {
	switch {
	case o.IsExpired():
		return o.viewExpired()
	case o.state.ShowWarning():
		return o.viewWarning()
	}
	return ""
}

// =============================================================================
// RENDER METHODS
// =============================================================================

func (o SessionTimeoutOverlay) dims() (width, height, boxWidth int) {
	width, height = o.width, o.height
	if width == 0 {
		width = 60
	}
	if height == 0 {
		height = 24
	}
	boxWidth = width - 8
	if boxWidth < 40 {
		boxWidth = 40
	}
	if boxWidth > 60 {
		boxWidth = 60
	}
	return width, height, boxWidth
}

func (o SessionTimeoutOverlay) viewWarning() string {
	width, height, boxWidth := o.dims()

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true)
	timeStyle := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true)
	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(boxWidth - 8).
		Align(lipgloss.Center)
	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Italic(true).
		Align(lipgloss.Center)

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(styles.StatusIndicators.Warning+" Are you still there?"),
		"",
		msgStyle.Render("You will be signed out in "+timeStyle.Render(util.FormatCountdown(o.state.SecondsRemaining()))),
		"",
		hintStyle.Render("Press enter to stay signed in"),
	)

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Amber).
		Padding(1, 3).
		Width(boxWidth).
		Align(lipgloss.Center).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim))
}

func (o SessionTimeoutOverlay) viewExpired() string {
	width, height, boxWidth := o.dims()

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Rose).
		Bold(true)
	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(boxWidth - 8).
		Align(lipgloss.Center)
	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Align(lipgloss.Center)

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(styles.StatusIndicators.Error+" Session Expired"),
		"",
		msgStyle.Render("You were signed out after a period of inactivity."),
		"",
		hintStyle.Render("Returning to sign in..."),
	)

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Rose).
		Padding(1, 3).
		Width(boxWidth).
		Align(lipgloss.Center).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim))
}
