// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for campustour.
//
// Configuration file location:
//   - ~/.campustour/config.toml
//   - Built-in defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/campustour-tui/internal/session"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete campustour configuration.
type Config struct {
	Version string `toml:"version"`

	// Session holds the inactivity watchdog timing.
	Session SessionConfig `toml:"session"`

	// Backend is the backend-as-a-service endpoint (auth + data).
	Backend BackendConfig `toml:"backend"`

	// Audit controls the local session-event journal.
	Audit AuditConfig `toml:"audit"`

	Logging LoggingConfig `toml:"logging"`

	UI UIConfig `toml:"ui"`
}

// SessionConfig contains the idle-timeout settings.
type SessionConfig struct {
	// TimeoutSecs is the idle budget before forced sign-out.
	TimeoutSecs int `toml:"timeout_secs"`
	// WarningLeadSecs is how long before expiry the countdown appears.
	// Must be less than TimeoutSecs.
	WarningLeadSecs int `toml:"warning_lead_secs"`
	// ThrottleMillis limits idle-timer resets to one per window.
	ThrottleMillis int `toml:"throttle_millis"`
	// TickMillis is the countdown refresh interval.
	TickMillis int `toml:"tick_millis"`
	// SignOutTimeoutSecs bounds the sign-out request on expiry.
	SignOutTimeoutSecs int `toml:"signout_timeout_secs"`
}

// BackendConfig contains the backend-as-a-service connection settings.
type BackendConfig struct {
	URL         string `toml:"url"`
	AnonKey     string `toml:"anon_key"`
	TimeoutSecs int    `toml:"timeout_secs"`
	// TokenPath is where the signed-in session is kept (empty = ~/.campustour/session.json).
	TokenPath string `toml:"token_path"`
}

// AuditConfig contains session journal settings.
type AuditConfig struct {
	Enabled bool `toml:"enabled"`
	// DatabasePath is the SQLite journal (empty = ~/.campustour/audit.db).
	DatabasePath string `toml:"database_path"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is one of: trace, debug, info, warn, error.
	Level string `toml:"level"`
	// Path is the log file (empty = ~/.campustour/campustour.log).
	Path string `toml:"path"`
	JSON bool   `toml:"json"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is one of: auto, dark, light.
	Theme     string `toml:"theme"`
	Mouse     bool   `toml:"mouse"`
	AltScreen bool   `toml:"alt_screen"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Session: SessionConfig{
			TimeoutSecs:        int(session.DefaultTimeout / time.Second),
			WarningLeadSecs:    int(session.DefaultWarningLead / time.Second),
			ThrottleMillis:     int(session.DefaultThrottleWindow / time.Millisecond),
			TickMillis:         int(session.DefaultTickInterval / time.Millisecond),
			SignOutTimeoutSecs: int(session.DefaultSignOutTimeout / time.Second),
		},
		Backend: BackendConfig{
			TimeoutSecs: 15,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:     "auto",
			Mouse:     true,
			AltScreen: true,
		},
	}
}

// WatchdogConfig converts the session section into watchdog timing.
func (c *Config) WatchdogConfig() session.Config {
	return session.Config{
		Timeout:        time.Duration(c.Session.TimeoutSecs) * time.Second,
		WarningLead:    time.Duration(c.Session.WarningLeadSecs) * time.Second,
		ThrottleWindow: time.Duration(c.Session.ThrottleMillis) * time.Millisecond,
		TickInterval:   time.Duration(c.Session.TickMillis) * time.Millisecond,
		SignOutTimeout: time.Duration(c.Session.SignOutTimeoutSecs) * time.Second,
		Destination:    session.ExpiredDestination,
	}
}

// BackendTimeout returns the HTTP timeout for backend calls.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the campustour configuration directory.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CAMPUSTOUR_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".campustour"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ResolvePath returns p if set, otherwise name inside the config directory.
func ResolvePath(p, name string) (string, error) {
	if p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ensureSecurePermissions tightens a config file to 0600. The file holds
// the backend anon key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file if present, applies environment
// overrides, and validates the result.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is like LoadFromPath but falls back to defaults when the file
// does not exist.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg. Keys absent from the file keep the
// values already in cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("could not ensure secure permissions on config file")
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		logrus.WithField("keys", strings.Join(keys, ",")).Warn("ignoring unknown config keys")
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# campustour configuration file")
	fmt.Fprintln(file, "# Changes to [session] apply at the next idle-timer reset.")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Session.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Session.TimeoutSecs),
		})
	}
	if c.Session.WarningLeadSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.warning_lead_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Session.WarningLeadSecs),
		})
	} else if c.Session.WarningLeadSecs >= c.Session.TimeoutSecs {
		errs = append(errs, ValidationError{
			Field: "session.warning_lead_secs",
			Message: fmt.Sprintf("must be less than session.timeout_secs (%d >= %d)",
				c.Session.WarningLeadSecs, c.Session.TimeoutSecs),
		})
	}
	if c.Session.ThrottleMillis < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.throttle_millis",
			Message: "must not be negative",
		})
	}
	if c.Session.TickMillis <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.tick_millis",
			Message: fmt.Sprintf("must be positive, got %d", c.Session.TickMillis),
		})
	}
	if c.Session.SignOutTimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.signout_timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Session.SignOutTimeoutSecs),
		})
	}

	if c.Backend.URL != "" {
		u, err := url.Parse(c.Backend.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "backend.url",
				Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host", c.Backend.URL),
			})
		}
	}
	if c.Backend.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: fmt.Sprintf("must be positive, got %d", c.Backend.TimeoutSecs),
		})
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Logging.Level),
		})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies CAMPUSTOUR_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	// CAMPUSTOUR_BACKEND_URL
	if v := os.Getenv("CAMPUSTOUR_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}

	// CAMPUSTOUR_ANON_KEY
	if v := os.Getenv("CAMPUSTOUR_ANON_KEY"); v != "" {
		c.Backend.AnonKey = v
	}

	// CAMPUSTOUR_SESSION_TIMEOUT_SECS
	if n, ok := envInt("CAMPUSTOUR_SESSION_TIMEOUT_SECS"); ok {
		c.Session.TimeoutSecs = n
	}

	// CAMPUSTOUR_WARNING_LEAD_SECS
	if n, ok := envInt("CAMPUSTOUR_WARNING_LEAD_SECS"); ok {
		c.Session.WarningLeadSecs = n
	}

	// CAMPUSTOUR_LOG_LEVEL
	if v := os.Getenv("CAMPUSTOUR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	// CAMPUSTOUR_AUDIT
	if v := os.Getenv("CAMPUSTOUR_AUDIT"); v != "" {
		c.Audit.Enabled = v == "1" || strings.ToLower(v) == "true"
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("var", key).Warn("ignoring non-numeric environment override")
		return 0, false
	}
	return n, true
}
