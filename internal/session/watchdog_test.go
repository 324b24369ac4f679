// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/campustour-tui/internal/clock"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// =============================================================================
// TEST HARNESS
// =============================================================================

type harness struct {
	clk  *clock.Fake
	feed *Feed
	wd   *Watchdog

	mu          sync.Mutex
	signOuts    int
	signOutErr  error
	navigations []Destination
	events      []Event
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{clk: clock.NewFake(t0), feed: NewFeed()}

	signOut := SignOutFunc(func(ctx context.Context) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.signOuts++
		return h.signOutErr
	})
	nav := NavigatorFunc(func(d Destination) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.navigations = append(h.navigations, d)
	})

	wd, err := New(cfg, signOut, nav, Options{
		Clock:     h.clk,
		Source:    h.feed,
		Logger:    quietLogger(),
		SessionID: "sess_test",
	})
	require.NoError(t, err)
	wd.Subscribe(func(ev Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, ev)
	})
	h.wd = wd
	return h
}

func (h *harness) advanceTo(d time.Duration) {
	h.clk.Set(t0.Add(d))
}

func (h *harness) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signOuts, len(h.navigations)
}

func (h *harness) eventKinds() []EventKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	kinds := make([]EventKind, 0, len(h.events))
	for _, ev := range h.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (h *harness) key() bool {
	return h.wd.RecordActivity(Activity{Kind: ActivityKey, At: h.clk.Now()})
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 30*time.Minute, cfg.Timeout)
	require.Equal(t, 5*time.Minute, cfg.WarningLead)
	require.Equal(t, time.Second, cfg.ThrottleWindow)
	require.Equal(t, time.Second, cfg.TickInterval)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "login?reason=expired", cfg.Destination.String())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"lead equals timeout", func(c *Config) { c.WarningLead = c.Timeout }},
		{"lead exceeds timeout", func(c *Config) { c.WarningLead = c.Timeout + time.Second }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero lead", func(c *Config) { c.WarningLead = 0 }},
		{"negative throttle", func(c *Config) { c.ThrottleWindow = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestNew_RejectsMisconfiguration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarningLead = cfg.Timeout

	noop := SignOutFunc(func(context.Context) error { return nil })
	nav := NavigatorFunc(func(Destination) {})

	_, err := New(cfg, noop, nav, Options{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(DefaultConfig(), nil, nav, Options{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_GeneratesSessionID(t *testing.T) {
	noop := SignOutFunc(func(context.Context) error { return nil })
	wd, err := New(DefaultConfig(), noop, NavigatorFunc(func(Destination) {}), Options{Logger: quietLogger()})
	require.NoError(t, err)
	require.Regexp(t, `^sess_[0-9a-f-]{36}$`, wd.ID())
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestWatchdog_StartTwice(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())
	require.ErrorIs(t, h.wd.Start(), ErrAlreadyStarted)

	h.wd.Stop()
	require.ErrorIs(t, h.wd.Start(), ErrStopped)
}

func TestWatchdog_InitialState(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	st := h.wd.Snapshot()
	require.Equal(t, PhaseActive, st.Phase)
	require.False(t, st.ShowWarning())
	require.Equal(t, t0, st.LastActivityAt)
	require.Equal(t, 1800, st.SecondsRemaining())
	require.Equal(t, 1, h.feed.Subscribers())
	require.Equal(t, []EventKind{EventStarted}, h.eventKinds())
}

// P4: warning timing with the default 1800s/300s configuration.
func TestWatchdog_WarningTiming(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	h.advanceTo(secs(1499))
	require.False(t, h.wd.Snapshot().ShowWarning())

	h.advanceTo(secs(1500))
	st := h.wd.Snapshot()
	require.True(t, st.ShowWarning())
	require.Equal(t, 300, st.SecondsRemaining())

	h.advanceTo(secs(1799))
	st = h.wd.Snapshot()
	require.True(t, st.ShowWarning())
	require.Equal(t, 1, st.SecondsRemaining())
}

// P1: the countdown never increases within one warning epoch.
func TestWatchdog_CountdownMonotonic(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())
	h.advanceTo(secs(1500))

	prev := h.wd.Snapshot().SecondsRemaining()
	for i := 1501; i < 1800; i += 7 {
		h.advanceTo(secs(i))
		cur := h.wd.Snapshot().SecondsRemaining()
		require.LessOrEqual(t, cur, prev, "at t=%ds", i)
		prev = cur
	}
}

func TestWatchdog_TicksPublishAbsoluteRemaining(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	// Each tick derives remaining from the epoch start, not from the previous tick.
	h.advanceTo(secs(1500))
	h.advanceTo(secs(1650))

	h.mu.Lock()
	var ticks []Event
	for _, ev := range h.events {
		if ev.Kind == EventTick {
			ticks = append(ticks, ev)
		}
	}
	h.mu.Unlock()

	require.NotEmpty(t, ticks)
	last := ticks[len(ticks)-1]
	require.Equal(t, 150, last.State.SecondsRemaining())
	for i := 1; i < len(ticks); i++ {
		require.LessOrEqual(t, ticks[i].State.Remaining, ticks[i-1].State.Remaining)
	}
}

// P5: expiry signs out and navigates exactly once and leaves nothing armed.
func TestWatchdog_ExpiryIsTerminal(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	h.advanceTo(secs(1800))

	signOuts, navs := h.counts()
	require.Equal(t, 1, signOuts)
	require.Equal(t, 1, navs)
	require.Equal(t, ExpiredDestination, h.navigations[0])

	st := h.wd.Snapshot()
	require.Equal(t, PhaseExpired, st.Phase)
	require.Equal(t, 0, st.SecondsRemaining())
	require.Equal(t, 0, h.clk.Pending())
	require.Equal(t, 0, h.feed.Subscribers())

	h.advanceTo(secs(7200))
	signOuts, navs = h.counts()
	require.Equal(t, 1, signOuts)
	require.Equal(t, 1, navs)
}

func TestWatchdog_NoActivityAcceptedAfterExpiry(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())
	h.advanceTo(secs(1800))

	require.False(t, h.key())
	h.wd.Extend()
	require.Equal(t, PhaseExpired, h.wd.Snapshot().Phase)
	require.Equal(t, 0, h.clk.Pending())
}

func TestWatchdog_SignOutFailureStillNavigates(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.signOutErr = errors.New("network unreachable")
	require.NoError(t, h.wd.Start())

	h.advanceTo(secs(1800))

	signOuts, navs := h.counts()
	require.Equal(t, 1, signOuts, "sign-out must not be retried")
	require.Equal(t, 1, navs)
	require.Contains(t, h.eventKinds(), EventSignOutFailed)
}

// P6: extend during the warning hides it and pushes the next warning out.
func TestWatchdog_ExtendDuringWarning(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	h.advanceTo(secs(1600))
	require.True(t, h.wd.Snapshot().ShowWarning())

	h.wd.Extend()
	st := h.wd.Snapshot()
	require.False(t, st.ShowWarning())
	require.Equal(t, t0.Add(secs(1600)), st.LastActivityAt)

	h.advanceTo(secs(3099))
	require.False(t, h.wd.Snapshot().ShowWarning())

	h.advanceTo(secs(3100))
	require.True(t, h.wd.Snapshot().ShowWarning())

	signOuts, _ := h.counts()
	require.Equal(t, 0, signOuts)
}

// P2: repeated extends are indistinguishable from one.
func TestWatchdog_ExtendIdempotent(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())
	h.advanceTo(secs(1550))

	h.wd.Extend()
	once := h.wd.Snapshot()
	pendingOnce := h.clk.Pending()

	h.wd.Extend()
	h.wd.Extend()
	require.Equal(t, once, h.wd.Snapshot())
	require.Equal(t, pendingOnce, h.clk.Pending())
	require.Equal(t, 2, pendingOnce, "one warning and one expiry timer")
}

// P3: a burst of activity inside one window resets at most once.
func TestWatchdog_ThrottleBound(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())
	h.advanceTo(secs(100))

	accepted := 0
	for i := 0; i < 50; i++ {
		h.clk.Advance(10 * time.Millisecond)
		if h.key() {
			accepted++
		}
	}
	require.Equal(t, 1, accepted)
	require.Equal(t, t0.Add(secs(100)+10*time.Millisecond), h.wd.Snapshot().LastActivityAt)

	h.clk.Advance(600 * time.Millisecond)
	require.True(t, h.key(), "a new window accepts the next event")
}

func TestWatchdog_FeedActivityResets(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	h.advanceTo(secs(1700))
	require.True(t, h.wd.Snapshot().ShowWarning())

	h.feed.Publish(Activity{Kind: ActivityPointer, At: h.clk.Now()})
	st := h.wd.Snapshot()
	require.False(t, st.ShowWarning())
	require.Equal(t, 1800, st.SecondsRemaining())

	// The old epoch's expiry must not fire.
	h.advanceTo(secs(1800))
	signOuts, _ := h.counts()
	require.Equal(t, 0, signOuts)

	h.advanceTo(secs(1700 + 1800))
	signOuts, navs := h.counts()
	require.Equal(t, 1, signOuts)
	require.Equal(t, 1, navs)
}

// P7: teardown cancels everything and suppresses side effects.
func TestWatchdog_StopCancelsEverything(t *testing.T) {
	for _, at := range []int{0, 900, 1500, 1650} {
		h := newHarness(t, DefaultConfig())
		require.NoError(t, h.wd.Start())
		h.advanceTo(secs(at))

		h.wd.Stop()
		require.Equal(t, 0, h.clk.Pending(), "stop at t=%ds", at)
		require.Equal(t, 0, h.feed.Subscribers())

		h.advanceTo(secs(10_000))
		signOuts, navs := h.counts()
		require.Equal(t, 0, signOuts)
		require.Equal(t, 0, navs)
		require.False(t, h.key())

		h.wd.Stop()
	}
}

func TestWatchdog_StopDuringExpirySignOut(t *testing.T) {
	clk := clock.NewFake(t0)
	var wd *Watchdog
	var signOutErr error
	navigated := 0
	wd, err := New(DefaultConfig(),
		SignOutFunc(func(ctx context.Context) error {
			wd.Stop()
			signOutErr = ctx.Err()
			return signOutErr
		}),
		NavigatorFunc(func(Destination) { navigated++ }),
		Options{Clock: clk, Logger: quietLogger()})
	require.NoError(t, err)
	var kinds []EventKind
	wd.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	require.NoError(t, wd.Start())

	clk.Advance(secs(1800))
	require.ErrorIs(t, signOutErr, context.Canceled)
	require.Equal(t, 0, navigated)
	require.NotContains(t, kinds, EventSignOutFailed)
	require.Equal(t, EventStopped, kinds[len(kinds)-1])
}

func TestWatchdog_StopUnblocksPendingSignOut(t *testing.T) {
	clk := clock.NewFake(t0)
	cfg := DefaultConfig()
	cfg.SignOutTimeout = time.Minute
	entered := make(chan struct{})
	var navigated atomicCount
	wd, err := New(cfg,
		SignOutFunc(func(ctx context.Context) error {
			close(entered)
			<-ctx.Done()
			return ctx.Err()
		}),
		NavigatorFunc(func(Destination) { navigated.add() }),
		Options{Clock: clk, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, wd.Start())

	done := make(chan struct{})
	go func() {
		defer close(done)
		clk.Advance(secs(1800))
	}()
	<-entered
	wd.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("expiry did not return after Stop")
	}
	require.Equal(t, 0, navigated.get())
}

type atomicCount struct {
	mu sync.Mutex
	n  int
}

func (c *atomicCount) add() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *atomicCount) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestWatchdog_WithoutSourceStillExpires(t *testing.T) {
	clk := clock.NewFake(t0)
	var signedOut, navigated int
	wd, err := New(DefaultConfig(),
		SignOutFunc(func(context.Context) error { signedOut++; return nil }),
		NavigatorFunc(func(Destination) { navigated++ }),
		Options{Clock: clk, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, wd.Start())

	clk.Advance(secs(1800))
	require.Equal(t, 1, signedOut)
	require.Equal(t, 1, navigated)
}

func TestWatchdog_ReconfigureAppliesNextEpoch(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	short := DefaultConfig()
	short.Timeout = 10 * time.Minute
	short.WarningLead = time.Minute
	require.NoError(t, h.wd.Reconfigure(short))

	// Current epoch keeps the old budget.
	require.Equal(t, 30*time.Minute, h.wd.Config().Timeout)
	h.advanceTo(secs(600))
	require.False(t, h.wd.Snapshot().ShowWarning())

	h.wd.Extend()
	require.Equal(t, 10*time.Minute, h.wd.Config().Timeout)
	h.advanceTo(secs(600 + 540))
	require.True(t, h.wd.Snapshot().ShowWarning())

	bad := DefaultConfig()
	bad.WarningLead = bad.Timeout
	require.ErrorIs(t, h.wd.Reconfigure(bad), ErrInvalidConfig)
}

func TestWatchdog_ReconfigureKeepsThrottleWindow(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	longer := DefaultConfig()
	longer.Timeout = 20 * time.Minute
	require.NoError(t, h.wd.Reconfigure(longer))

	h.advanceTo(secs(100))
	require.True(t, h.key())
	require.Equal(t, 20*time.Minute, h.wd.Config().Timeout)

	h.advanceTo(secs(100) + 10*time.Millisecond)
	require.False(t, h.key(), "second event in the same window must be throttled")

	h.advanceTo(secs(101))
	require.True(t, h.key())
}

func TestWatchdog_ReconfigureThrottleWindow(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())

	unthrottled := DefaultConfig()
	unthrottled.ThrottleWindow = 0
	require.NoError(t, h.wd.Reconfigure(unthrottled))

	h.advanceTo(secs(10))
	require.True(t, h.key())
	require.True(t, h.key())

	wide := DefaultConfig()
	wide.ThrottleWindow = 5 * time.Second
	require.NoError(t, h.wd.Reconfigure(wide))
	h.advanceTo(secs(20))
	require.True(t, h.key())
	h.advanceTo(secs(23))
	require.False(t, h.key())
	h.advanceTo(secs(26))
	require.True(t, h.key())
}

func TestWatchdog_EventSequence(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.wd.Start())
	h.advanceTo(secs(1502))
	h.wd.Extend()
	h.wd.Stop()

	require.Equal(t, []EventKind{
		EventStarted, EventWarning, EventTick, EventTick, EventExtended, EventStopped,
	}, h.eventKinds())
}

func TestState_SecondsRemainingRoundsUp(t *testing.T) {
	require.Equal(t, 0, State{}.SecondsRemaining())
	require.Equal(t, 1, State{Remaining: 10 * time.Millisecond}.SecondsRemaining())
	require.Equal(t, 300, State{Remaining: 300 * time.Second}.SecondsRemaining())
	require.Equal(t, 300, State{Remaining: 299*time.Second + 1}.SecondsRemaining())
}

func TestPhase_String(t *testing.T) {
	require.Equal(t, "ACTIVE", PhaseActive.String())
	require.Equal(t, "WARNING", PhaseWarning.String())
	require.Equal(t, "EXPIRED", PhaseExpired.String())
	require.Equal(t, "UNKNOWN", Phase(42).String())
}
