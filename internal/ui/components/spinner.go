// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/campustour-tui/internal/ui/styles"
)

// =============================================================================
// INLINE SPINNER
// =============================================================================

// InlineSpinner is a minimal spinner shown next to a status message while
// a backend call is in flight.
type InlineSpinner struct {
	spinner spinner.Model
	active  bool
	label   string
}

// NewInlineSpinner creates a minimal inline ASCII-compatible spinner.
func NewInlineSpinner() InlineSpinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	return InlineSpinner{spinner: s}
}

// Start begins the spinner with label beside it.
func (i *InlineSpinner) Start(label string) tea.Cmd {
	i.active = true
	i.label = label
	return i.spinner.Tick
}

// IsActive reports whether the spinner is running.
func (i InlineSpinner) IsActive() bool {
	return i.active
}

// Stop ends the spinner.
func (i *InlineSpinner) Stop() {
	i.active = false
}

// Update handles messages.
func (i InlineSpinner) Update(msg tea.Msg) (InlineSpinner, tea.Cmd) {
	if !i.active {
		return i, nil
	}
	var cmd tea.Cmd
	i.spinner, cmd = i.spinner.Update(msg)
	return i, cmd
}

// View renders the spinner character and its label.
func (i InlineSpinner) View() string {
	if !i.active {
		return ""
	}
	frame := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Render(i.spinner.View())
	if i.label == "" {
		return frame
	}
	return frame + " " + lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(i.label)
}
