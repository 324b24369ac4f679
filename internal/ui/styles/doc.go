// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the campustour TUI.
//
// All colors use Lip Gloss AdaptiveColor so they follow the terminal's
// light or dark background. Status messages pair every color with an ASCII
// indicator.
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	title := theme.DetailTitle.Render(place.Name)
//	warn := styles.RenderWarning("Session expires in 4:59")
package styles
