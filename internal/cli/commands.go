// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/campustour-tui/internal/auth"
	"github.com/jeranaias/campustour-tui/internal/config"
	"github.com/jeranaias/campustour-tui/internal/tour"
	"github.com/jeranaias/campustour-tui/internal/util"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = auth.DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// =============================================================================
// LOGIN / LOGOUT / WHOAMI
// =============================================================================

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Example: `  campustour login --email ada@example.edu
  echo "$PASSWORD" | campustour login --email ada@example.edu`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer env.Close()

			in := cmd.InOrStdin()
			lines := bufio.NewReader(in)
			out := cmd.OutOrStdout()
			if email == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Email: ")
				if email, err = readLine(lines); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := readPassword(in, lines)
			if err != nil {
				return err
			}
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			s, err := env.auth.SignIn(cmd.Context(), email, password)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidCredentials) {
					return errors.New("invalid email or password")
				}
				return err
			}
			return OutputJSON(out, opts.json, "login", func() (interface{}, error) {
				if !opts.json {
					fmt.Fprintln(out, SuccessStyle.Render("Signed in")+" as "+s.User.Email)
				}
				return whoamiData(s), nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and clear the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), env.cfg.WatchdogConfig().SignOutTimeout)
			defer cancel()
			out := cmd.OutOrStdout()
			err = env.auth.SignOut(ctx)
			if err != nil {
				// The local session is gone regardless.
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Warning:")+" server did not confirm sign-out: "+err.Error())
			}
			return OutputJSON(out, opts.json, "logout", func() (interface{}, error) {
				if !opts.json {
					fmt.Fprintln(out, SuccessStyle.Render("Signed out"))
				}
				return map[string]bool{"revoked": err == nil}, nil
			})
		},
	}
}

// WhoamiData is the JSON shape of the whoami command.
type WhoamiData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func whoamiData(s *auth.Session) WhoamiData {
	return WhoamiData{UserID: s.User.ID, Email: s.User.Email, ExpiresAt: s.ExpiresAt}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, opts.json, "whoami", func() (interface{}, error) {
				s, err := env.auth.Current()
				if err != nil {
					return nil, err
				}
				if !opts.json {
					fmt.Fprintln(out, RenderLabel("Email")+ValueStyle.Render(s.User.Email))
					fmt.Fprintln(out, RenderLabel("User ID")+ValueStyle.Render(s.User.ID))
					if !s.ExpiresAt.IsZero() {
						fmt.Fprintln(out, RenderLabel("Token expires")+ValueStyle.Render(s.ExpiresAt.Local().Format(time.RFC1123)))
					}
				}
				return whoamiData(s), nil
			})
		},
	}
}

// =============================================================================
// PLACES
// =============================================================================

func newPlacesCmd(opts *globalOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "places",
		Short: "List tour places",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, opts.json, "places", func() (interface{}, error) {
				places, err := env.tour.ListPlaces(cmd.Context())
				if err != nil {
					if errors.Is(err, tour.ErrUnauthorized) {
						return nil, fmt.Errorf("%w; run `campustour login`", err)
					}
					return nil, err
				}
				places = tour.Filter(places, query)
				if !opts.json {
					printPlaces(out, places)
				}
				return places, nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "filter", "f", "", "only places whose name or category contains this text")
	return cmd
}

func printPlaces(w io.Writer, places []tour.Place) {
	if len(places) == 0 {
		fmt.Fprintln(w, DimStyle.Render("no places"))
		return
	}
	nameWidth := 0
	for _, p := range places {
		if n := util.StringWidth(p.Name); n > nameWidth {
			nameWidth = n
		}
	}
	if nameWidth > 40 {
		nameWidth = 40
	}
	for _, p := range places {
		name := util.PadRight(util.TruncateWidth(p.Name, nameWidth), nameWidth)
		fmt.Fprintln(w, ValueStyle.Render(name)+"  "+DimStyle.Render(p.Category))
	}
}

// =============================================================================
// AUDIT
// =============================================================================

// AuditEntryData is the JSON shape of one journal row.
type AuditEntryData struct {
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	At        time.Time `json:"at"`
	Detail    string    `json:"detail,omitempty"`
}

func newAuditCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent session events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(opts, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer env.Close()
			if env.journal == nil {
				return errors.New("audit journal is disabled (audit.enabled = false)")
			}

			out := cmd.OutOrStdout()
			return OutputJSON(out, opts.json, "audit", func() (interface{}, error) {
				entries, err := env.journal.Recent(cmd.Context(), limit)
				if err != nil {
					return nil, err
				}
				data := make([]AuditEntryData, 0, len(entries))
				for _, e := range entries {
					data = append(data, AuditEntryData{SessionID: e.SessionID, Kind: e.Kind, At: e.At, Detail: e.Detail})
					if !opts.json {
						fmt.Fprintf(out, "%s  %s  %s  %s\n",
							DimStyle.Render(e.At.Local().Format("2006-01-02 15:04:05")),
							util.TruncateRunes(e.SessionID, 8),
							RenderLabel(e.Kind, 24),
							e.Detail)
					}
				}
				return data, nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	return cmd
}

// =============================================================================
// CONFIG
// =============================================================================

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Inspect or create the configuration file"}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Backend.AnonKey != "" {
				shown.Backend.AnonKey = maskSecret(shown.Backend.AnonKey)
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return NewJSONResponse("config show", shown).Print(out)
			}
			return toml.NewEncoder(out).Encode(shown)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.resolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.resolveConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Wrote")+" "+path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 4) + s[len(s)-4:]
}

// =============================================================================
// VERSION
// =============================================================================

// VersionData is the JSON shape of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return NewJSONResponse("version", data).Print(out)
			}
			fmt.Fprintf(out, "campustour %s\n", data.Version)
			fmt.Fprintf(out, "  commit:   %s\n", data.GitCommit)
			fmt.Fprintf(out, "  built:    %s\n", data.BuildDate)
			fmt.Fprintf(out, "  go:       %s\n", data.GoVersion)
			fmt.Fprintf(out, "  platform: %s\n", data.Platform)
			return nil
		},
	}
}
