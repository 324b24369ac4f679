// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	if theme := NewTheme("dark"); !theme.IsDark {
		t.Error("NewTheme(dark) should be dark")
	}
	if theme := NewTheme("LIGHT"); theme.IsDark {
		t.Error("NewTheme(LIGHT) should be light")
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme("dark")
	for name, s := range map[string]interface{ Render(...string) string }{
		"Header":           theme.Header,
		"ListItem":         theme.ListItem,
		"ListItemSelected": theme.ListItemSelected,
		"DetailTitle":      theme.DetailTitle,
		"FormBox":          theme.FormBox,
		"ErrorText":        theme.ErrorText,
	} {
		if !strings.Contains(s.Render("Library"), "Library") {
			t.Errorf("%s style lost its content", name)
		}
	}
}

func TestGlamourStyle(t *testing.T) {
	theme := &Theme{IsDark: true, ColorProfile: termenv.TrueColor}
	if got := theme.GlamourStyle(); got != "dark" {
		t.Errorf("GlamourStyle() = %q, want dark", got)
	}
	theme.IsDark = false
	if got := theme.GlamourStyle(); got != "light" {
		t.Errorf("GlamourStyle() = %q, want light", got)
	}
	theme.ColorProfile = termenv.Ascii
	if got := theme.GlamourStyle(); got != "notty" {
		t.Errorf("GlamourStyle() = %q, want notty", got)
	}
}
