// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// campustour - Campus virtual tour for the terminal.
package main

import "github.com/jeranaias/campustour-tui/internal/cli"

func main() {
	cli.Execute()
}
