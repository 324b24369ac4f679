// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/campustour-tui/internal/config"
)

// RunOptions controls the terminal program.
type RunOptions struct {
	AltScreen bool
	Mouse     bool

	// ConfigPath, when set, is watched and reloads are applied to the
	// running watchdog.
	ConfigPath string
}

// Run starts the TUI and blocks until it exits or ctx is cancelled.
func Run(ctx context.Context, deps Deps, opts RunOptions) error {
	sender := newProgramSender()
	defer sender.close()

	m, err := New(deps, sender)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if opts.Mouse {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, progOpts...)
	sender.attach(p)

	if opts.ConfigPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		log := m.log.WithField("path", opts.ConfigPath)
		err := config.Watch(watchCtx, opts.ConfigPath,
			func(c *config.Config) {
				log.Info("configuration reloaded")
				sender.Send(ConfigReloadedMsg{Config: c})
			},
			func(err error) {
				log.WithError(err).Warn("configuration reload failed")
			},
		)
		if err != nil {
			log.WithError(err).Warn("live reload disabled")
		}
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
