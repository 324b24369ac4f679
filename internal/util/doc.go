// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across campustour.
//
// # Key Functions
//
// Display:
//   - TruncateWidth, PadRight: Column-aware truncation (go-runewidth)
//   - FormatCountdown: Whole seconds as M:SS for the timeout warning
//   - FormatIdle: Compact durations for status lines
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	label := util.PadRight(place.Name, 28)
//	shown := util.FormatCountdown(state.SecondsRemaining()) // "4:59"
package util
