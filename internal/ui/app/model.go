// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/campustour-tui/internal/audit"
	"github.com/jeranaias/campustour-tui/internal/auth"
	"github.com/jeranaias/campustour-tui/internal/clock"
	"github.com/jeranaias/campustour-tui/internal/session"
	"github.com/jeranaias/campustour-tui/internal/tour"
	"github.com/jeranaias/campustour-tui/internal/ui/components"
	"github.com/jeranaias/campustour-tui/internal/ui/styles"
	"github.com/jeranaias/campustour-tui/internal/util"
)

// backendTimeout bounds sign-in, sign-out and catalog calls made from the UI.
const backendTimeout = 20 * time.Second

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Authenticator is the part of auth.Client the app uses.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context) error
	Current() (*auth.Session, error)
}

// PlaceLister loads the tour catalog.
type PlaceLister interface {
	ListPlaces(ctx context.Context) ([]tour.Place, error)
}

// Deps are the collaborators the app is built from.
type Deps struct {
	Auth    Authenticator
	Places  PlaceLister
	Session session.Config

	// Optional.
	Journal *audit.Journal
	Theme   *styles.Theme
	Clock   clock.Clock
	Logger  *logrus.Logger
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// View identifies the screen being shown.
type View int

const (
	ViewLogin View = iota
	ViewPlaces
	ViewDetail
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewPlaces:
		return "places"
	case ViewDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Model is the root Bubble Tea model.
//
// It is the watchdog's activity source (input is published to feed), its
// navigator (NavigateMsg), and its observer (WatchdogMsg). All watchdog
// callbacks reach the model through sender, never by touching the model
// from a timer goroutine.
type Model struct {
	deps   Deps
	log    *logrus.Entry
	theme  *styles.Theme
	clk    clock.Clock
	sender Sender

	feed       *session.Feed
	watchdog   *session.Watchdog
	detachObs  []func()
	sessionCfg session.Config

	view    View
	user    *auth.Session
	loading bool
	status  string

	login     components.LoginForm
	list      components.PlaceList
	detail    components.PlaceDetail
	overlay   components.SessionTimeoutOverlay
	busy      components.InlineSpinner
	statusBar *components.StatusBar

	width  int
	height int
}

// New builds the model. sender delivers asynchronous messages back into
// the program; Run supplies one bound to the tea.Program.
func New(deps Deps, sender Sender) (*Model, error) {
	if deps.Auth == nil || deps.Places == nil {
		return nil, errors.New("app: auth and places are required")
	}
	if sender == nil {
		return nil, errors.New("app: sender is required")
	}
	if err := deps.Session.Validate(); err != nil {
		return nil, err
	}
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme("auto")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	m := &Model{
		deps:       deps,
		log:        deps.Logger.WithField("component", "app"),
		theme:      deps.Theme,
		clk:        deps.Clock,
		sender:     sender,
		feed:       session.NewFeed(),
		sessionCfg: deps.Session,
		view:       ViewLogin,
		login:      components.NewLoginForm(deps.Theme),
		list:       components.NewPlaceList(deps.Theme),
		detail:     components.NewPlaceDetail(deps.Theme),
		overlay:    components.NewSessionTimeoutOverlay(),
		busy:       components.NewInlineSpinner(),
		statusBar:  components.NewStatusBar(deps.Theme),
		width:      80,
		height:     24,
	}
	return m, nil
}

// CurrentView returns the screen being shown.
func (m *Model) CurrentView() View { return m.view }

// Watchdog returns the running watchdog, or nil when signed out.
func (m *Model) Watchdog() *session.Watchdog { return m.watchdog }

// Shutdown stops the watchdog. It is safe to call more than once.
func (m *Model) Shutdown() {
	m.stopWatchdog()
}

// Init resumes a stored session if one is still valid.
func (m *Model) Init() tea.Cmd {
	if s, err := m.deps.Auth.Current(); err == nil {
		return func() tea.Msg { return signedInMsg{session: s} }
	}
	return m.login.Init()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		if m.view == ViewDetail && !m.overlay.IsVisible() {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		return m, nil

	case WatchdogMsg:
		return m.handleWatchdog(msg.Event)

	case NavigateMsg:
		return m.handleNavigate(msg.Destination)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case components.LoginSubmitMsg:
		return m, m.signIn(msg.Email, msg.Password)

	case signedInMsg:
		return m.handleSignedIn(msg.session)

	case signInFailedMsg:
		m.login.SetError(signInErrorText(msg.err))
		return m, nil

	case placesLoadedMsg:
		m.loading = false
		m.busy.Stop()
		m.status = ""
		m.list.SetPlaces(msg.places)
		return m, nil

	case placesFailedMsg:
		m.loading = false
		m.busy.Stop()
		if errors.Is(msg.err, tour.ErrUnauthorized) {
			m.log.WithError(msg.err).Warn("catalog rejected the session")
			return m, m.signOut("Your sign-in is no longer valid. Please sign in again.")
		}
		m.status = "Could not load places: " + msg.err.Error()
		return m, nil

	case signedOutMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("sign out failed")
		}
		return m, nil

	case components.PlaceSelectedMsg:
		m.detail.SetPlace(msg.Place)
		m.view = ViewDetail
		return m, nil
	}

	return m.forward(msg)
}

// forward routes other messages (spinner ticks, cursor blinks) to the
// active view.
func (m *Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.busy, cmd = m.busy.Update(msg)
	cmds = append(cmds, cmd)

	switch m.view {
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
		cmds = append(cmds, cmd)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.overlay.SetSize(w, h)
	m.login.SetWidth(w)
	body := h - 2 // header and status bar
	if body < 3 {
		body = 3
	}
	m.list.SetSize(w-2, body)
	m.detail.SetSize(w-2, body)
}

// =============================================================================
// INPUT AND ACTIVITY
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.stopWatchdog()
		return m, tea.Quit
	}

	if m.watchdog != nil {
		if m.overlay.IsExpired() {
			return m, nil
		}
		if m.overlay.IsVisible() {
			// The warning consumes input. Enter is the explicit
			// "stay signed in"; anything else still counts as activity.
			if msg.Type == tea.KeyEnter {
				m.watchdog.Extend()
			} else {
				m.publish(session.ActivityKey)
			}
			m.refreshOverlay()
			return m, nil
		}
		m.publish(session.ActivityKey)
	}

	switch m.view {
	case ViewLogin:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd

	case ViewPlaces:
		if !m.list.Filtering() {
			switch msg.String() {
			case "q":
				m.stopWatchdog()
				return m, tea.Quit
			case "ctrl+x":
				return m, m.signOut("Signed out.")
			case "r":
				return m, m.loadPlaces()
			}
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd

	case ViewDetail:
		switch msg.String() {
		case "esc", "backspace", "h":
			m.view = ViewPlaces
			return m, nil
		case "ctrl+x":
			return m, m.signOut("Signed out.")
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.watchdog == nil || m.overlay.IsExpired() {
		return
	}
	kind, ok := mouseActivity(msg)
	if !ok {
		return
	}
	m.publish(kind)
	if m.overlay.IsVisible() {
		m.refreshOverlay()
	}
}

func mouseActivity(msg tea.MouseMsg) (session.ActivityKind, bool) {
	switch msg.Type {
	case tea.MouseMotion:
		return session.ActivityPointer, true
	case tea.MouseWheelUp, tea.MouseWheelDown:
		return session.ActivityScroll, true
	case tea.MouseLeft, tea.MouseRight, tea.MouseMiddle:
		return session.ActivityClick, true
	}
	return 0, false
}

// publish offers an interaction to whatever is subscribed to the feed. The
// watchdog applies its own throttle.
func (m *Model) publish(kind session.ActivityKind) {
	m.feed.Publish(session.Activity{Kind: kind, At: m.clk.Now()})
}

// =============================================================================
// WATCHDOG LIFECYCLE
// =============================================================================

func (m *Model) startWatchdog() error {
	m.stopWatchdog()

	sender := m.sender
	wd, err := session.New(m.sessionCfg,
		m.deps.Auth,
		session.NavigatorFunc(func(d session.Destination) { sender.Send(NavigateMsg{Destination: d}) }),
		session.Options{
			Clock:  m.clk,
			Source: m.feed,
			Logger: m.deps.Logger,
		},
	)
	if err != nil {
		return err
	}

	m.detachObs = append(m.detachObs, wd.Subscribe(func(ev session.Event) {
		sender.Send(WatchdogMsg{Event: ev})
	}))
	if m.deps.Journal != nil {
		m.detachObs = append(m.detachObs, m.deps.Journal.Observe(wd))
	}

	m.watchdog = wd
	m.overlay.SetState(wd.Snapshot())
	return wd.Start()
}

func (m *Model) stopWatchdog() {
	if m.watchdog == nil {
		return
	}
	m.watchdog.Stop()
	for _, detach := range m.detachObs {
		detach()
	}
	m.detachObs = nil
	m.watchdog = nil
	m.overlay.SetState(session.State{})
}

// refreshOverlay re-reads the watchdog rather than trusting event payloads,
// which may be stale by the time they are delivered.
func (m *Model) refreshOverlay() {
	if m.watchdog == nil {
		m.overlay.SetState(session.State{})
		return
	}
	m.overlay.SetState(m.watchdog.Snapshot())
}

func (m *Model) handleWatchdog(ev session.Event) (tea.Model, tea.Cmd) {
	if m.watchdog == nil || ev.State.SessionID != m.watchdog.ID() {
		return m, nil
	}
	m.refreshOverlay()
	if ev.Kind == session.EventSignOutFailed {
		m.status = "Could not reach the server to end your session; it was cleared locally."
	}
	return m, nil
}

func (m *Model) handleNavigate(dest session.Destination) (tea.Model, tea.Cmd) {
	expired := m.watchdog != nil && m.watchdog.Snapshot().Phase == session.PhaseExpired
	m.stopWatchdog()
	m.user = nil
	m.list.SetPlaces(nil)

	if dest.View != ViewLogin.String() {
		m.log.WithField("destination", dest.String()).Warn("unknown navigation target; showing login")
	}
	notice := ""
	switch {
	case dest.Reason == "expired" || expired:
		notice = fmt.Sprintf("You were signed out after %s of inactivity.", util.FormatIdle(m.sessionCfg.Timeout))
		if m.status != "" {
			notice += " " + m.status
		}
	case dest.Reason != "":
		notice = "Signed out (" + dest.Reason + ")."
	}
	m.status = ""
	m.view = ViewLogin
	m.login.SetNotice(notice)
	return m, m.login.Reset()
}

func (m *Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	cfg := msg.Config.WatchdogConfig()
	if err := cfg.Validate(); err != nil {
		m.log.WithError(err).Warn("ignoring reloaded session settings")
		return m, nil
	}
	m.sessionCfg = cfg
	if m.watchdog != nil {
		if err := m.watchdog.Reconfigure(cfg); err != nil {
			m.log.WithError(err).Warn("watchdog rejected reloaded settings")
		}
	}
	return m, nil
}

// =============================================================================
// BACKEND COMMANDS
// =============================================================================

func (m *Model) signIn(email, password string) tea.Cmd {
	authc := m.deps.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
		defer cancel()
		s, err := authc.SignIn(ctx, email, password)
		if err != nil {
			return signInFailedMsg{err: err}
		}
		return signedInMsg{session: s}
	}
}

func signInErrorText(err error) string {
	var se *auth.StatusError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.As(err, &se):
		return fmt.Sprintf("The server could not sign you in (HTTP %d).", se.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to respond."
	default:
		return "Sign in failed: " + err.Error()
	}
}

func (m *Model) handleSignedIn(s *auth.Session) (tea.Model, tea.Cmd) {
	m.user = s
	if err := m.startWatchdog(); err != nil {
		m.log.WithError(err).Error("could not start session watchdog")
		m.login.SetError("Could not start your session: " + err.Error())
		return m, nil
	}
	m.login.SetNotice("")
	m.view = ViewPlaces
	m.record("SIGNED_IN", s.User.Email)
	return m, m.loadPlaces()
}

func (m *Model) loadPlaces() tea.Cmd {
	lister := m.deps.Places
	m.loading = true
	spin := m.busy.Start("Loading places")
	load := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
		defer cancel()
		places, err := lister.ListPlaces(ctx)
		if err != nil {
			return placesFailedMsg{err: err}
		}
		return placesLoadedMsg{places: places}
	}
	return tea.Batch(spin, load)
}

// signOut ends the session at the user's request (or when the backend no
// longer accepts it) and returns to the login view with notice.
func (m *Model) signOut(notice string) tea.Cmd {
	m.record("SIGNED_OUT", "")
	m.stopWatchdog()
	m.user = nil
	m.list.SetPlaces(nil)
	m.view = ViewLogin
	m.login.SetNotice(notice)

	authc := m.deps.Auth
	timeout := m.sessionCfg.SignOutTimeout
	if timeout <= 0 {
		timeout = session.DefaultSignOutTimeout
	}
	signOut := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return signedOutMsg{err: authc.SignOut(ctx)}
	}
	return tea.Batch(m.login.Reset(), signOut)
}

// record journals a non-watchdog lifecycle event.
func (m *Model) record(kind, detail string) {
	if m.deps.Journal == nil || m.watchdog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := m.deps.Journal.Record(ctx, audit.Entry{
		SessionID: m.watchdog.ID(),
		Kind:      kind,
		At:        m.clk.Now(),
		Detail:    detail,
	})
	if err != nil {
		m.log.WithError(err).WithField("kind", kind).Warn("failed to journal event")
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the current state.
func (m *Model) View() string {
	if m.overlay.IsVisible() {
		m.overlay.SetSize(m.width, m.height)
		return m.overlay.View()
	}

	if m.view == ViewLogin {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.login.View())
	}

	var body string
	switch m.view {
	case ViewPlaces:
		body = m.list.View()
		if m.loading {
			body = m.busy.View() + "\n" + body
		}
	case ViewDetail:
		body = m.detail.View()
	}
	if m.status != "" {
		body = styles.RenderError(m.status) + "\n" + body
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body, m.statusBarView())
}

func (m *Model) headerView() string {
	title := m.theme.HeaderTitle.Render("Campus Virtual Tour")
	who := ""
	if m.user != nil && m.user.User.Email != "" {
		who = m.theme.HeaderSubtitle.Render("  " + m.user.User.Email)
	}
	return m.theme.Header.Width(m.width).Render(title + who)
}

func (m *Model) statusBarView() string {
	switch m.view {
	case ViewPlaces:
		m.statusBar.SetShortcuts(
			components.Shortcut{Key: "enter", Desc: "open"},
			components.Shortcut{Key: "/", Desc: "filter"},
			components.Shortcut{Key: "r", Desc: "reload"},
			components.Shortcut{Key: "ctrl+x", Desc: "sign out"},
			components.Shortcut{Key: "q", Desc: "quit"},
		)
	case ViewDetail:
		m.statusBar.SetShortcuts(
			components.Shortcut{Key: "esc", Desc: "back"},
			components.Shortcut{Key: "↑/↓", Desc: "scroll"},
			components.Shortcut{Key: "ctrl+x", Desc: "sign out"},
		)
	}
	if m.watchdog != nil {
		m.statusBar.SetSession(m.watchdog.Snapshot(), true)
	} else {
		m.statusBar.SetSession(session.State{}, false)
	}
	m.statusBar.SetWidth(m.width)
	return m.statusBar.View()
}
