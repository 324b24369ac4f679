// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for campustour.
//
// Configuration is TOML, with sensible defaults, environment variable
// overrides, validation, and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - SessionConfig: Idle timeout, warning lead, throttle and tick
//   - BackendConfig: Backend URL and anon key
//   - Watcher: Reloads the file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CAMPUSTOUR_*)
//   - ~/.campustour/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Feed the session section to the watchdog:
//
//	wd, err := session.New(cfg.WatchdogConfig(), client, nav, opts)
package config
