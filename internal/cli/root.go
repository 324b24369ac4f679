// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/campustour-tui/internal/audit"
	"github.com/jeranaias/campustour-tui/internal/auth"
	"github.com/jeranaias/campustour-tui/internal/config"
	"github.com/jeranaias/campustour-tui/internal/logging"
	"github.com/jeranaias/campustour-tui/internal/tour"
	"github.com/jeranaias/campustour-tui/internal/ui/app"
	"github.com/jeranaias/campustour-tui/internal/ui/styles"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	logLevel   string
	logStderr  bool
	json       bool
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:")+" "+err.Error())
		stop()
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "campustour",
		Short:         "Campus virtual tour in the terminal",
		Long:          "Browse campus places from the terminal. Signed-in sessions end automatically after a period of inactivity.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.campustour/config.toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	root.PersistentFlags().BoolVar(&opts.logStderr, "log-stderr", false, "log to stderr instead of the log file")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "machine-readable output")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newPlacesCmd(opts),
		newAuditCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// =============================================================================
// RUNTIME ENVIRONMENT
// =============================================================================

// runtimeEnv is everything a command needs, built from the config file.
type runtimeEnv struct {
	cfg     *config.Config
	cfgPath string
	log     *logrus.Logger
	auth    *auth.Client
	tour    *tour.Client
	journal *audit.Journal

	closers []io.Closer
}

func (o *globalOptions) resolveConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPath()
}

func (o *globalOptions) loadConfig() (*config.Config, string, error) {
	path, err := o.resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, path, nil
}

// openEnv loads configuration and builds the logger and backend clients.
// withJournal opens the audit database when it is enabled.
func openEnv(opts *globalOptions, stderr io.Writer, withJournal bool) (*runtimeEnv, error) {
	cfg, path, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	env := &runtimeEnv{cfg: cfg, cfgPath: path}

	logOpts := logging.Options{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON}
	if opts.logStderr {
		logOpts.Output = stderr
	} else if logOpts.Path, err = config.ResolvePath(cfg.Logging.Path, "campustour.log"); err != nil {
		return nil, err
	}
	log, closer, err := logging.Init(logOpts)
	if err != nil {
		return nil, err
	}
	env.log = log
	env.closers = append(env.closers, closer)

	tokenPath, err := config.ResolvePath(cfg.Backend.TokenPath, "session.json")
	if err != nil {
		env.Close()
		return nil, err
	}
	sealer, err := auth.LoadOrCreateSealer(tokenPath + ".key")
	if err != nil {
		env.Close()
		return nil, err
	}
	httpClient := newHTTPClient(cfg.BackendTimeout())

	env.auth, err = auth.NewClient(auth.Options{
		BaseURL:    cfg.Backend.URL,
		AnonKey:    cfg.Backend.AnonKey,
		HTTPClient: httpClient,
		Store:      auth.NewSealedFileStore(tokenPath, sealer),
		Logger:     log,
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("backend: %w (set backend.url and backend.anon_key in %s)", err, path)
	}
	env.tour, err = tour.NewClient(tour.Options{
		BaseURL:    cfg.Backend.URL,
		AnonKey:    cfg.Backend.AnonKey,
		Tokens:     env.auth,
		HTTPClient: httpClient,
		Logger:     log,
	})
	if err != nil {
		env.Close()
		return nil, err
	}

	if withJournal && cfg.Audit.Enabled {
		dbPath, err := config.ResolvePath(cfg.Audit.DatabasePath, "audit.db")
		if err != nil {
			env.Close()
			return nil, err
		}
		j, err := audit.Open(dbPath, log)
		if err != nil {
			log.WithError(err).Warn("audit journal unavailable; continuing without it")
		} else {
			env.journal = j
			env.closers = append(env.closers, j)
		}
	}
	return env, nil
}

// Close releases the journal and log file, newest first.
func (e *runtimeEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
	e.closers = nil
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(ctx context.Context, opts *globalOptions) error {
	if !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "start the interactive tour"}
	}
	env, err := openEnv(opts, os.Stderr, true)
	if err != nil {
		return err
	}
	defer env.Close()

	env.log.WithField("version", Version).Info("campustour starting")
	return app.Run(ctx, app.Deps{
		Auth:    env.auth,
		Places:  env.tour,
		Session: env.cfg.WatchdogConfig(),
		Journal: env.journal,
		Theme:   styles.NewTheme(env.cfg.UI.Theme),
		Logger:  env.log,
	}, app.RunOptions{
		AltScreen:  env.cfg.UI.AltScreen,
		Mouse:      env.cfg.UI.Mouse,
		ConfigPath: env.cfgPath,
	})
}
