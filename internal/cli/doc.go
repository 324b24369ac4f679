// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the campustour command line.
//
// Running campustour with no subcommand starts the interactive tour. The
// subcommands cover scripting and troubleshooting:
//
//	campustour login [--email EMAIL]   sign in and store the session
//	campustour logout                  revoke and clear the session
//	campustour whoami                  show the signed-in account
//	campustour places [-f TEXT]        list tour places
//	campustour audit [-n N]            recent session events
//	campustour config show|path|init   configuration file helpers
//	campustour version
//
// Every command accepts --json for machine-readable output.
package cli
