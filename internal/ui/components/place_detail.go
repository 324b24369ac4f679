// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/campustour-tui/internal/tour"
	"github.com/jeranaias/campustour-tui/internal/ui/styles"
)

// PlaceDetail shows one place: its markdown description rendered with
// glamour inside a scrollable viewport.
type PlaceDetail struct {
	place    tour.Place
	viewport viewport.Model
	theme    *styles.Theme
	width    int
}

// NewPlaceDetail creates an empty detail view.
func NewPlaceDetail(theme *styles.Theme) PlaceDetail {
	return PlaceDetail{
		viewport: viewport.New(80, 20),
		theme:    theme,
		width:    80,
	}
}

// SetSize sets the area available to the view.
func (d *PlaceDetail) SetSize(width, height int) {
	d.width = width
	d.viewport.Width = width
	d.viewport.Height = height - 3 // title, meta, blank line
	if d.viewport.Height < 1 {
		d.viewport.Height = 1
	}
	if d.place.ID != "" {
		d.render()
	}
}

// SetPlace switches to p and scrolls to the top.
func (d *PlaceDetail) SetPlace(p tour.Place) {
	d.place = p
	d.render()
	d.viewport.GotoTop()
}

// Place returns the place being shown.
func (d PlaceDetail) Place() tour.Place {
	return d.place
}

func (d *PlaceDetail) render() {
	d.viewport.SetContent(renderMarkdown(d.place.Description, d.width, d.theme.GlamourStyle()))
}

// renderMarkdown falls back to the raw text when glamour cannot render.
func renderMarkdown(md string, width int, style string) string {
	if strings.TrimSpace(md) == "" {
		return "_No description yet._"
	}
	wrap := width - 2
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// Update scrolls the viewport.
func (d PlaceDetail) Update(msg tea.Msg) (PlaceDetail, tea.Cmd) {
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

// View renders the title, metadata and description.
func (d PlaceDetail) View() string {
	meta := d.place.Category
	if d.place.PanoramaURL != "" {
		if meta != "" {
			meta += "  |  "
		}
		meta += "360° view: " + d.theme.Link.Render(d.place.PanoramaURL)
	}
	return d.theme.DetailTitle.Render(d.place.Name) + "\n" +
		d.theme.DetailMeta.Render(meta) + "\n\n" +
		d.viewport.View()
}
