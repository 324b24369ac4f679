// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Default watchdog settings.
const (
	// DefaultTimeout is the total idle budget before forced sign-out.
	DefaultTimeout = 30 * time.Minute

	// DefaultWarningLead is how long before expiry the countdown appears.
	DefaultWarningLead = 5 * time.Minute

	// DefaultThrottleWindow bounds epoch resets to one per window.
	DefaultThrottleWindow = time.Second

	// DefaultTickInterval is the countdown refresh rate during the warning.
	DefaultTickInterval = time.Second

	// DefaultSignOutTimeout bounds the sign-out call made on expiry.
	DefaultSignOutTimeout = 10 * time.Second
)

var (
	// ErrInvalidConfig is returned for a configuration the watchdog cannot run.
	ErrInvalidConfig = errors.New("invalid watchdog configuration")

	// ErrAlreadyStarted is returned by Start on a running watchdog.
	ErrAlreadyStarted = errors.New("watchdog already started")

	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("watchdog stopped")
)

// Destination identifies the view to navigate to after expiry.
type Destination struct {
	View   string
	Reason string
}

// String renders the destination as "view?reason=...".
func (d Destination) String() string {
	if d.Reason == "" {
		return d.View
	}
	return d.View + "?" + url.Values{"reason": {d.Reason}}.Encode()
}

// ExpiredDestination is the default post-expiry destination.
var ExpiredDestination = Destination{View: "login", Reason: "expired"}

// Config holds the watchdog timing.
type Config struct {
	// Timeout is the idle budget (SESSION_TIMEOUT).
	Timeout time.Duration

	// WarningLead is how long before Timeout the warning shows (WARNING_LEAD).
	// Must be positive and strictly less than Timeout.
	WarningLead time.Duration

	// ThrottleWindow is the leading-edge throttle applied to activity.
	// Zero disables throttling.
	ThrottleWindow time.Duration

	// TickInterval is how often the countdown is recomputed.
	TickInterval time.Duration

	// SignOutTimeout bounds the sign-out call on expiry.
	SignOutTimeout time.Duration

	// Destination is passed to the navigator on expiry.
	Destination Destination
}

// DefaultConfig returns the default watchdog configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		WarningLead:    DefaultWarningLead,
		ThrottleWindow: DefaultThrottleWindow,
		TickInterval:   DefaultTickInterval,
		SignOutTimeout: DefaultSignOutTimeout,
		Destination:    ExpiredDestination,
	}
}

// Validate rejects configurations that cannot produce a warning before expiry.
func (c Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	case c.WarningLead <= 0:
		return fmt.Errorf("%w: warning lead must be positive, got %v", ErrInvalidConfig, c.WarningLead)
	case c.WarningLead >= c.Timeout:
		return fmt.Errorf("%w: warning lead %v must be less than timeout %v", ErrInvalidConfig, c.WarningLead, c.Timeout)
	case c.ThrottleWindow < 0:
		return fmt.Errorf("%w: throttle window must not be negative, got %v", ErrInvalidConfig, c.ThrottleWindow)
	case c.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval must be positive, got %v", ErrInvalidConfig, c.TickInterval)
	}
	return nil
}

// withDefaults fills zero-valued optional fields.
func (c Config) withDefaults() Config {
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.SignOutTimeout <= 0 {
		c.SignOutTimeout = DefaultSignOutTimeout
	}
	if c.Destination.View == "" {
		c.Destination = ExpiredDestination
	}
	return c
}
