// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/campustour-tui/internal/session"
	"github.com/jeranaias/campustour-tui/internal/ui/styles"
	"github.com/jeranaias/campustour-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Shortcut is one key hint in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar renders key hints on the left and the session state on the
// right.
type StatusBar struct {
	Width     int
	Shortcuts []Shortcut
	theme     *styles.Theme

	session  session.State
	signedIn bool
}

// NewStatusBar creates a new StatusBar component
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// SetWidth updates the status bar width
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetShortcuts replaces the key hints.
func (s *StatusBar) SetShortcuts(shortcuts ...Shortcut) {
	s.Shortcuts = shortcuts
}

// SetSession updates the session indicator. signedIn false hides it.
func (s *StatusBar) SetSession(st session.State, signedIn bool) {
	s.session = st
	s.signedIn = signedIn
}

// View renders the status bar
func (s *StatusBar) View() string {
	inner := s.Width - s.theme.StatusBar.GetHorizontalFrameSize()
	indicator := s.sessionIndicator()
	avail := inner - lipgloss.Width(indicator) - 1
	if avail < 0 {
		avail = 0
	}

	// Drop hints from the end until they fit.
	hints := s.Shortcuts
	left := s.renderHints(hints)
	for len(hints) > 0 && lipgloss.Width(left) > avail {
		hints = hints[:len(hints)-1]
		left = s.renderHints(hints)
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(indicator)
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Width(s.Width).Render(left + strings.Repeat(" ", gap) + indicator)
}

func (s *StatusBar) renderHints(hints []Shortcut) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, s.theme.ShortcutKey.Render(h.Key)+" "+s.theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

// sessionIndicator summarizes the watchdog phase.
func (s *StatusBar) sessionIndicator() string {
	if !s.signedIn {
		return ""
	}
	switch s.session.Phase {
	case session.PhaseWarning:
		return lipgloss.NewStyle().Foreground(styles.Amber).Bold(true).
			Render(styles.StatusIndicators.Warning + " signing out in " + util.FormatCountdown(s.session.SecondsRemaining()))
	case session.PhaseExpired:
		return lipgloss.NewStyle().Foreground(styles.Rose).Bold(true).
			Render(styles.StatusIndicators.Error + " session expired")
	default:
		return lipgloss.NewStyle().Foreground(styles.Emerald).
			Render(styles.StatusIndicators.Success + " signed in")
	}
}
