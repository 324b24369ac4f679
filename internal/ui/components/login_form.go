// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/campustour-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN FORM
// =============================================================================

// LoginSubmitMsg is emitted when the user submits the form.
type LoginSubmitMsg struct {
	Email    string
	Password string
}

// LoginForm collects an email and password.
type LoginForm struct {
	email    textinput.Model
	password textinput.Model
	focus    int

	notice  string
	err     string
	spinner InlineSpinner
	theme   *styles.Theme
	width   int
}

// NewLoginForm creates a form with the email field focused.
func NewLoginForm(theme *styles.Theme) LoginForm {
	email := newField("you@university.edu")
	email.CharLimit = 254
	email.Focus()

	password := newField("password")
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 128

	return LoginForm{
		email:    email,
		password: password,
		spinner:  NewInlineSpinner(),
		theme:    theme,
		width:    50,
	}
}

func newField(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.Width = 36
	ti.PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(styles.Cyan)
	return ti
}

// SetWidth sets the available width.
func (f *LoginForm) SetWidth(w int) {
	f.width = w
}

// SetNotice shows an informational line above the fields, e.g. why the
// user was returned to this screen.
func (f *LoginForm) SetNotice(s string) {
	f.notice = s
}

// SetError shows a failure under the fields and stops the spinner.
func (f *LoginForm) SetError(s string) {
	f.err = s
	f.spinner.Stop()
}

// Busy reports whether a submission is in flight.
func (f LoginForm) Busy() bool {
	return f.spinner.IsActive()
}

// Reset clears the password, errors and busy state, keeping the email.
func (f *LoginForm) Reset() tea.Cmd {
	f.password.SetValue("")
	f.err = ""
	f.spinner.Stop()
	f.focus = 0
	f.password.Blur()
	return f.email.Focus()
}

// Init starts the cursor blink.
func (f LoginForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles focus movement, submission and field editing.
func (f LoginForm) Update(msg tea.Msg) (LoginForm, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if f.Busy() {
			return f, nil
		}
		switch key.Type {
		case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
			return f, f.toggleFocus()
		case tea.KeyEnter:
			if f.focus == 0 {
				return f, f.toggleFocus()
			}
			return f.submit()
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	f.spinner, cmd = f.spinner.Update(msg)
	cmds = append(cmds, cmd)
	if f.focus == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	cmds = append(cmds, cmd)
	return f, tea.Batch(cmds...)
}

func (f *LoginForm) toggleFocus() tea.Cmd {
	if f.focus == 0 {
		f.focus = 1
		f.email.Blur()
		return f.password.Focus()
	}
	f.focus = 0
	f.password.Blur()
	return f.email.Focus()
}

func (f LoginForm) submit() (LoginForm, tea.Cmd) {
	email := strings.TrimSpace(f.email.Value())
	password := f.password.Value()
	if email == "" || password == "" {
		f.err = "Email and password are required."
		return f, nil
	}
	f.err = ""
	spin := f.spinner.Start("Signing in")
	submit := func() tea.Msg { return LoginSubmitMsg{Email: email, Password: password} }
	return f, tea.Batch(spin, submit)
}

// View renders the form.
func (f LoginForm) View() string {
	var parts []string
	parts = append(parts, f.theme.FormTitle.Render("Campus Virtual Tour"))
	parts = append(parts, f.theme.HeaderSubtitle.Render("Sign in to explore the campus in 360°"))
	parts = append(parts, "")
	if f.notice != "" {
		parts = append(parts, f.theme.FormNotice.Render(f.notice), "")
	}
	parts = append(parts,
		f.theme.FormLabel.Render("Email"),
		f.email.View(),
		"",
		f.theme.FormLabel.Render("Password"),
		f.password.View(),
		"",
	)
	switch {
	case f.Busy():
		parts = append(parts, f.spinner.View())
	case f.err != "":
		parts = append(parts, styles.RenderError(f.err))
	default:
		parts = append(parts, f.theme.Hint.Render("tab to switch fields, enter to sign in"))
	}

	boxWidth := f.width - 4
	if boxWidth > 56 {
		boxWidth = 56
	}
	if boxWidth < 30 {
		boxWidth = 30
	}
	return f.theme.FormBox.Width(boxWidth).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
