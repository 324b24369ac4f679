// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Header and footer
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	StatusBar      lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style

	// Place list
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListCategory     lipgloss.Style
	FilterPrompt     lipgloss.Style

	// Place detail
	DetailTitle lipgloss.Style
	DetailMeta  lipgloss.Style
	Link        lipgloss.Style

	// Login form
	FormBox    lipgloss.Style
	FormTitle  lipgloss.Style
	FormLabel  lipgloss.Style
	FormNotice lipgloss.Style

	// Shared
	Hint      lipgloss.Style
	ErrorText lipgloss.Style
}

// NewTheme creates a theme for mode ("auto", "dark" or "light"). In auto
// mode the background is detected from the terminal.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ListItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.ListItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Purple).
		PaddingLeft(1)

	t.ListCategory = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.FilterPrompt = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.DetailTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.DetailMeta = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Link = lipgloss.NewStyle().
		Foreground(Cyan).
		Underline(true)

	t.FormBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3)

	t.FormTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.FormLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.FormNotice = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose)
}
