// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jeranaias/campustour-tui/internal/clock"
)

// =============================================================================
// STATE
// =============================================================================

// Phase is the watchdog's position in the idle lifecycle.
type Phase int

const (
	// PhaseActive means no warning is shown.
	PhaseActive Phase = iota
	// PhaseWarning means the countdown is visible and the user has not acted.
	PhaseWarning
	// PhaseExpired is terminal; sign-out has been triggered.
	PhaseExpired
)

// String returns a string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "ACTIVE"
	case PhaseWarning:
		return "WARNING"
	case PhaseExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// State is a point-in-time view of the watchdog.
type State struct {
	SessionID      string
	Phase          Phase
	LastActivityAt time.Time

	// Remaining is Timeout minus the idle time, clamped at zero.
	Remaining time.Duration
}

// ShowWarning reports whether the warning UI should be visible.
func (s State) ShowWarning() bool {
	return s.Phase == PhaseWarning
}

// SecondsRemaining rounds Remaining up to whole seconds.
func (s State) SecondsRemaining() int {
	if s.Remaining <= 0 {
		return 0
	}
	return int((s.Remaining + time.Second - 1) / time.Second)
}

// =============================================================================
// EVENTS AND CAPABILITIES
// =============================================================================

// EventKind identifies a watchdog notification.
type EventKind int

const (
	EventStarted EventKind = iota
	EventWarning
	EventTick
	EventReset
	EventExtended
	EventExpired
	EventSignOutFailed
	EventStopped
)

// String returns the audit name of the event.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "SESSION_STARTED"
	case EventWarning:
		return "SESSION_WARNING"
	case EventTick:
		return "SESSION_TICK"
	case EventReset:
		return "SESSION_ACTIVITY"
	case EventExtended:
		return "SESSION_EXTENDED"
	case EventExpired:
		return "SESSION_EXPIRED"
	case EventSignOutFailed:
		return "SESSION_SIGNOUT_FAILED"
	case EventStopped:
		return "SESSION_STOPPED"
	default:
		return "SESSION_UNKNOWN"
	}
}

// Event is delivered to observers after every transition.
type Event struct {
	Kind  EventKind
	State State
	Err   error
}

// SignOuter ends the authenticated session.
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// SignOutFunc adapts a function to SignOuter.
type SignOutFunc func(ctx context.Context) error

// SignOut calls f(ctx).
func (f SignOutFunc) SignOut(ctx context.Context) error { return f(ctx) }

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(dest Destination)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(dest Destination)

// Navigate calls f(dest).
func (f NavigatorFunc) Navigate(dest Destination) { f(dest) }

// Options carries the watchdog's optional collaborators.
type Options struct {
	// Clock defaults to clock.Real.
	Clock clock.Clock

	// Source may be nil, in which case only Extend resets the idle timer.
	Source ActivitySource

	// Logger defaults to logrus.StandardLogger().
	Logger *logrus.Logger

	// SessionID defaults to a random "sess_" identifier.
	SessionID string
}

// =============================================================================
// WATCHDOG
// =============================================================================

// epoch holds every timer handle armed since the last reset.
type epoch struct {
	startedAt time.Time
	warning   clock.Timer
	expiry    clock.Timer
	tick      clock.Timer
}

func (e *epoch) cancel() {
	for _, t := range []clock.Timer{e.warning, e.expiry, e.tick} {
		if t != nil {
			t.Stop()
		}
	}
}

// Watchdog enforces the idle session timeout.
type Watchdog struct {
	id       string
	clk      clock.Clock
	source   ActivitySource
	signOut  SignOuter
	navigate Navigator
	log      *logrus.Entry

	mu           sync.Mutex
	cfg          Config
	pending      *Config
	throttle     *rate.Limiter
	epoch        *epoch
	phase        Phase
	lastActivity time.Time
	started      bool
	stopped      bool
	unsubscribe  func()

	// cancelSignOut aborts an expiry sign-out still in flight.
	cancelSignOut context.CancelFunc

	obsMu     sync.Mutex
	obsNext   int
	observers []observer
}

type observer struct {
	id int
	fn func(Event)
}

// New validates cfg and returns a stopped watchdog. Call Start to arm it.
func New(cfg Config, signOut SignOuter, navigate Navigator, opts Options) (*Watchdog, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if signOut == nil || navigate == nil {
		return nil, fmt.Errorf("%w: sign-out and navigation capabilities are required", ErrInvalidConfig)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := opts.SessionID
	if id == "" {
		id = "sess_" + uuid.NewString()
	}

	return &Watchdog{
		id:       id,
		clk:      clk,
		source:   opts.Source,
		signOut:  signOut,
		navigate: navigate,
		log:      logger.WithField("session_id", id),
		cfg:      cfg,
		throttle: newThrottle(cfg.ThrottleWindow),
	}, nil
}

func newThrottle(window time.Duration) *rate.Limiter {
	return rate.NewLimiter(throttleLimit(window), 1)
}

func throttleLimit(window time.Duration) rate.Limit {
	if window <= 0 {
		return rate.Inf
	}
	return rate.Every(window)
}

// ID returns the watchdog's session identifier.
func (w *Watchdog) ID() string {
	return w.id
}

// Config returns the configuration of the current epoch.
func (w *Watchdog) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Start arms the first epoch and subscribes to the activity source.
func (w *Watchdog) Start() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	w.armEpochLocked(false)
	st := w.stateLocked(w.clk.Now())
	cfg := w.cfg
	w.mu.Unlock()

	if w.source != nil {
		unsub := w.source.Subscribe(func(a Activity) { w.RecordActivity(a) })
		w.mu.Lock()
		if w.stopped || w.phase == PhaseExpired {
			w.mu.Unlock()
			unsub()
		} else {
			w.unsubscribe = unsub
			w.mu.Unlock()
		}
	} else {
		w.log.Debug("no activity source; only explicit extend resets the idle timer")
	}

	w.log.WithFields(logrus.Fields{
		"timeout":      cfg.Timeout,
		"warning_lead": cfg.WarningLead,
	}).Info("session watchdog started")
	w.emit(Event{Kind: EventStarted, State: st})
	return nil
}

// RecordActivity offers a raw interaction to the watchdog. The first event
// in each throttle window resets the epoch; it reports whether a reset
// happened.
func (w *Watchdog) RecordActivity(a Activity) bool {
	w.mu.Lock()
	if !w.started || w.stopped || w.phase == PhaseExpired {
		w.mu.Unlock()
		return false
	}
	if !w.throttle.AllowN(w.clk.Now(), 1) {
		w.mu.Unlock()
		return false
	}
	wasWarning := w.phase == PhaseWarning
	w.armEpochLocked(true)
	st := w.stateLocked(w.clk.Now())
	w.mu.Unlock()

	entry := w.log.WithField("activity", a.Kind.String())
	if wasWarning {
		entry.Info("activity during warning; idle timer reset")
	} else {
		entry.Debug("idle timer reset")
	}
	w.emit(Event{Kind: EventReset, State: st})
	return true
}

// Extend is the "stay signed in" action. It resets the epoch exactly like
// accepted activity but bypasses the throttle. It is a no-op once the
// watchdog has expired or been stopped.
func (w *Watchdog) Extend() {
	w.mu.Lock()
	if !w.started || w.stopped || w.phase == PhaseExpired {
		w.mu.Unlock()
		return
	}
	w.armEpochLocked(false)
	st := w.stateLocked(w.clk.Now())
	w.mu.Unlock()

	w.log.Info("session extended")
	w.emit(Event{Kind: EventExtended, State: st})
}

// Stop cancels every pending timer and unsubscribes from the activity
// source. No side effect fires afterwards. Stop is idempotent.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.epoch != nil {
		w.epoch.cancel()
		w.epoch = nil
	}
	unsub := w.unsubscribe
	w.unsubscribe = nil
	cancelSignOut := w.cancelSignOut
	w.cancelSignOut = nil
	st := w.stateLocked(w.clk.Now())
	w.mu.Unlock()

	if cancelSignOut != nil {
		cancelSignOut()
	}
	if unsub != nil {
		unsub()
	}
	w.log.Debug("session watchdog stopped")
	w.emit(Event{Kind: EventStopped, State: st})
}

// Snapshot returns the current state with Remaining computed from now.
func (w *Watchdog) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked(w.clk.Now())
}

// Reconfigure validates cfg and applies it at the start of the next epoch.
// Before Start it applies immediately.
func (w *Watchdog) Reconfigure(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		w.cfg = cfg
		w.throttle.SetLimitAt(w.clk.Now(), throttleLimit(cfg.ThrottleWindow))
		return nil
	}
	w.pending = &cfg
	w.log.WithFields(logrus.Fields{
		"timeout":      cfg.Timeout,
		"warning_lead": cfg.WarningLead,
	}).Info("watchdog configuration staged for next epoch")
	return nil
}

// Subscribe registers fn for every Event. Observers run outside the
// watchdog's lock, on whichever goroutine caused the transition.
func (w *Watchdog) Subscribe(fn func(Event)) (cancel func()) {
	w.obsMu.Lock()
	id := w.obsNext
	w.obsNext++
	w.observers = append(w.observers, observer{id: id, fn: fn})
	w.obsMu.Unlock()

	return func() {
		w.obsMu.Lock()
		defer w.obsMu.Unlock()
		for i, o := range w.observers {
			if o.id == id {
				w.observers = append(w.observers[:i], w.observers[i+1:]...)
				return
			}
		}
	}
}

// =============================================================================
// EPOCH MANAGEMENT
// =============================================================================

// armEpochLocked replaces the current epoch with a fresh one starting now.
// It is the only place timers are armed for a new epoch. fromActivity marks
// an epoch armed by throttled activity.
func (w *Watchdog) armEpochLocked(fromActivity bool) {
	if w.epoch != nil {
		w.epoch.cancel()
	}
	now := w.clk.Now()
	if w.pending != nil {
		w.cfg = *w.pending
		w.pending = nil
		// The limiter keeps its token state so the event that armed this
		// epoch still counts against the current window.
		w.throttle.SetLimitAt(now, throttleLimit(w.cfg.ThrottleWindow))
		if fromActivity {
			// Leaving an unlimited window refills the bucket; charge the
			// event again. No-op when its token is already spent.
			w.throttle.AllowN(now, 1)
		}
	}

	ep := &epoch{startedAt: now}
	w.epoch = ep
	w.phase = PhaseActive
	w.lastActivity = now

	ep.warning = w.clk.AfterFunc(w.cfg.Timeout-w.cfg.WarningLead, func() { w.onWarning(ep) })
	ep.expiry = w.clk.AfterFunc(w.cfg.Timeout, func() { w.onExpiry(ep) })
}

func (w *Watchdog) scheduleTickLocked(ep *epoch) {
	ep.tick = w.clk.AfterFunc(w.cfg.TickInterval, func() { w.onTick(ep) })
}

func (w *Watchdog) onWarning(ep *epoch) {
	w.mu.Lock()
	if w.epoch != ep || w.phase != PhaseActive {
		w.mu.Unlock()
		return
	}
	w.phase = PhaseWarning
	st := w.stateLocked(w.clk.Now())
	if st.Remaining > 0 {
		w.scheduleTickLocked(ep)
	}
	w.mu.Unlock()

	w.log.WithField("remaining", st.Remaining).Info("session timeout warning")
	w.emit(Event{Kind: EventWarning, State: st})
}

func (w *Watchdog) onTick(ep *epoch) {
	w.mu.Lock()
	if w.epoch != ep || w.phase != PhaseWarning {
		w.mu.Unlock()
		return
	}
	st := w.stateLocked(w.clk.Now())
	if st.Remaining > 0 {
		w.scheduleTickLocked(ep)
	}
	w.mu.Unlock()

	w.emit(Event{Kind: EventTick, State: st})
}

func (w *Watchdog) onExpiry(ep *epoch) {
	w.mu.Lock()
	if w.epoch != ep || w.stopped || w.phase == PhaseExpired {
		w.mu.Unlock()
		return
	}
	ep.cancel()
	w.epoch = nil
	w.phase = PhaseExpired
	st := w.stateLocked(w.clk.Now())
	unsub := w.unsubscribe
	w.unsubscribe = nil
	cfg := w.cfg
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SignOutTimeout)
	w.cancelSignOut = cancel
	w.mu.Unlock()
	defer cancel()

	if unsub != nil {
		unsub()
	}
	w.log.WithField("idle", cfg.Timeout).Warn("session expired due to inactivity")
	w.emit(Event{Kind: EventExpired, State: st})

	err := w.signOut.SignOut(ctx)

	w.mu.Lock()
	w.cancelSignOut = nil
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		w.log.Debug("watchdog stopped during expiry sign-out; not navigating")
		return
	}

	if err != nil {
		w.log.WithError(err).Warn("sign-out after expiry failed; navigating anyway")
		w.emit(Event{Kind: EventSignOutFailed, State: st, Err: err})
	}

	w.navigate.Navigate(cfg.Destination)
}

func (w *Watchdog) stateLocked(now time.Time) State {
	st := State{
		SessionID:      w.id,
		Phase:          w.phase,
		LastActivityAt: w.lastActivity,
	}
	switch {
	case !w.started:
		st.Remaining = w.cfg.Timeout
	case w.phase != PhaseExpired:
		remaining := w.cfg.Timeout - now.Sub(w.lastActivity)
		if remaining > 0 {
			st.Remaining = remaining
		}
	}
	return st
}

func (w *Watchdog) emit(ev Event) {
	w.obsMu.Lock()
	fns := make([]func(Event), len(w.observers))
	for i, o := range w.observers {
		fns[i] = o.fn
	}
	w.obsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
