// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/campustour-tui/internal/tour"
	"github.com/jeranaias/campustour-tui/internal/ui/styles"
	"github.com/jeranaias/campustour-tui/internal/util"
)

// PlaceSelectedMsg is emitted when the user opens a place.
type PlaceSelectedMsg struct {
	Place tour.Place
}

// PlaceList is a filterable, scrollable list of tour stops.
type PlaceList struct {
	all        []tour.Place
	visible    []tour.Place
	categories []string
	cursor   int
	offset   int
	filter   textinput.Model
	filterOn bool

	width  int
	height int
	theme  *styles.Theme
}

// NewPlaceList creates an empty list.
func NewPlaceList(theme *styles.Theme) PlaceList {
	fi := textinput.New()
	fi.Prompt = "/"
	fi.Placeholder = "filter by name or category"
	fi.PromptStyle = theme.FilterPrompt
	fi.CharLimit = 64

	return PlaceList{
		filter: fi,
		width:  80,
		height: 20,
		theme:  theme,
	}
}

// SetPlaces replaces the catalog and re-applies the current filter.
func (l *PlaceList) SetPlaces(places []tour.Place) {
	l.all = places
	l.categories = tour.Categories(places)
	l.applyFilter()
}

// SetSize sets the list area.
func (l *PlaceList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.filter.Width = width - 4
	l.clampOffset()
}

// Len returns the number of places currently shown.
func (l PlaceList) Len() int {
	return len(l.visible)
}

// Selected returns the highlighted place.
func (l PlaceList) Selected() (tour.Place, bool) {
	if l.cursor < 0 || l.cursor >= len(l.visible) {
		return tour.Place{}, false
	}
	return l.visible[l.cursor], true
}

// Filtering reports whether the filter input has focus.
func (l PlaceList) Filtering() bool {
	return l.filterOn
}

func (l *PlaceList) applyFilter() {
	l.visible = tour.Filter(l.all, l.filter.Value())
	if l.cursor >= len(l.visible) {
		l.cursor = len(l.visible) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.clampOffset()
}

func (l *PlaceList) rows() int {
	rows := l.height - 2 // filter line and count line
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (l *PlaceList) clampOffset() {
	rows := l.rows()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// Update handles navigation and filtering keys.
func (l PlaceList) Update(msg tea.Msg) (PlaceList, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}

	if l.filterOn {
		switch key.Type {
		case tea.KeyEsc:
			l.filterOn = false
			l.filter.Blur()
			l.filter.SetValue("")
			l.applyFilter()
			return l, nil
		case tea.KeyEnter:
			l.filterOn = false
			l.filter.Blur()
			return l, nil
		}
		var cmd tea.Cmd
		l.filter, cmd = l.filter.Update(msg)
		l.applyFilter()
		return l, cmd
	}

	switch key.String() {
	case "up", "k":
		if l.cursor > 0 {
			l.cursor--
		}
	case "down", "j":
		if l.cursor < len(l.visible)-1 {
			l.cursor++
		}
	case "home", "g":
		l.cursor = 0
	case "end", "G":
		if n := len(l.visible); n > 0 {
			l.cursor = n - 1
		}
	case "/":
		l.filterOn = true
		return l, l.filter.Focus()
	case "enter":
		if p, ok := l.Selected(); ok {
			return l, func() tea.Msg { return PlaceSelectedMsg{Place: p} }
		}
	}
	l.clampOffset()
	return l, nil
}

// filterHint lists the catalog's categories after the filter key hint.
func (l PlaceList) filterHint() string {
	const hint = "press / to filter"
	if len(l.categories) == 0 {
		return l.theme.Hint.Render(hint)
	}
	cats := util.TruncateWidth(strings.Join(l.categories, " · "), l.width-lipgloss.Width(hint)-3)
	return l.theme.Hint.Render(hint+": ") + l.theme.ListCategory.Render(cats)
}

// View renders the filter line, the visible rows and a count.
func (l PlaceList) View() string {
	var b strings.Builder

	if l.filterOn || l.filter.Value() != "" {
		b.WriteString(l.filter.View())
	} else {
		b.WriteString(l.filterHint())
	}
	b.WriteString("\n")

	if len(l.visible) == 0 {
		b.WriteString(l.theme.Hint.Render("  no places match"))
		b.WriteString("\n")
	}

	nameWidth := l.width * 3 / 5
	if nameWidth < 12 {
		nameWidth = 12
	}
	catWidth := l.width - nameWidth - 6
	if catWidth < 0 {
		catWidth = 0
	}

	end := l.offset + l.rows()
	if end > len(l.visible) {
		end = len(l.visible)
	}
	for i := l.offset; i < end; i++ {
		p := l.visible[i]
		row := util.PadRight(p.Name, nameWidth) + "  " + l.theme.ListCategory.Render(util.TruncateWidth(p.Category, catWidth))
		if i == l.cursor {
			b.WriteString(l.theme.ListItemSelected.Render(row))
		} else {
			b.WriteString(l.theme.ListItem.Render(row))
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Foreground(styles.TextMuted).
		Render(fmt.Sprintf("%d of %d places", len(l.visible), len(l.all))))
	return b.String()
}
