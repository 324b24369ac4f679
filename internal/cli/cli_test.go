// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/campustour-tui/internal/config"
)

const testAnonKey = "anon-cli-key"

type fakeBackend struct {
	srv        *httptest.Server
	logoutHits atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "hunter2" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"expires_in":   3600,
			"user":         map[string]string{"id": "u-1", "email": body.Email},
		})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutHits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/rest/v1/places", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"1","name":"Library","category":"Academic"},
			{"id":"2","name":"Stadium","category":"Athletics"}
		]`))
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

// isolate points every path at a temp home and the backend at b.
func isolate(t *testing.T, b *fakeBackend) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("CAMPUSTOUR_HOME", home)
	t.Setenv("CAMPUSTOUR_SESSION_TIMEOUT_SECS", "")
	t.Setenv("CAMPUSTOUR_WARNING_LEAD_SECS", "")
	t.Setenv("CAMPUSTOUR_LOG_LEVEL", "")
	t.Setenv("CAMPUSTOUR_AUDIT", "")
	if b != nil {
		t.Setenv("CAMPUSTOUR_BACKEND_URL", b.srv.URL)
		t.Setenv("CAMPUSTOUR_ANON_KEY", testAnonKey)
	} else {
		t.Setenv("CAMPUSTOUR_BACKEND_URL", "")
		t.Setenv("CAMPUSTOUR_ANON_KEY", "")
	}
	return home
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	isolate(t, nil)
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "campustour "+Version)

	out, _, err = run(t, "", "version", "--json")
	require.NoError(t, err)
	var resp struct {
		Success bool
		Data    VersionData
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.Equal(t, Version, resp.Data.Version)
}

func TestConfigInitAndPath(t *testing.T) {
	home := isolate(t, nil)

	out, _, err := run(t, "", "config", "path")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "config.toml"), strings.TrimSpace(out))

	_, _, err = run(t, "", "config", "init")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(home, "config.toml"))
	require.NoError(t, err)

	_, _, err = run(t, "", "config", "init")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--force")

	_, _, err = run(t, "", "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigShowMasksAnonKey(t *testing.T) {
	b := newFakeBackend(t)
	isolate(t, b)

	out, _, err := run(t, "", "config", "show")
	require.NoError(t, err)
	require.Contains(t, out, "timeout_secs = 1800")
	require.NotContains(t, out, testAnonKey)
	require.Contains(t, out, "anon****")
}

func TestConfigShowHonoursConfigFlag(t *testing.T) {
	isolate(t, nil)
	path := filepath.Join(t.TempDir(), "custom.toml")
	cfg := config.Default()
	cfg.Session.TimeoutSecs = 900
	require.NoError(t, config.SaveTOML(cfg, path))

	out, _, err := run(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	require.Contains(t, out, "timeout_secs = 900")
}

func TestCommandsRequireBackend(t *testing.T) {
	isolate(t, nil)
	_, _, err := run(t, "", "whoami")
	require.Error(t, err)
	require.Contains(t, err.Error(), "backend.url")
}

func TestLoginWhoamiPlacesLogout(t *testing.T) {
	b := newFakeBackend(t)
	home := isolate(t, b)

	out, _, err := run(t, "ada@example.edu\nhunter2\n", "login")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in")
	require.FileExists(t, filepath.Join(home, "session.json"))

	out, _, err = run(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "ada@example.edu")

	out, _, err = run(t, "", "places")
	require.NoError(t, err)
	require.Contains(t, out, "Library")
	require.Contains(t, out, "Stadium")

	out, _, err = run(t, "", "places", "--filter", "athl")
	require.NoError(t, err)
	require.NotContains(t, out, "Library")
	require.Contains(t, out, "Stadium")

	out, _, err = run(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")
	require.Equal(t, int32(1), b.logoutHits.Load())

	_, _, err = run(t, "", "whoami")
	require.Error(t, err)
}

func TestLoginEmailFlagAndBadPassword(t *testing.T) {
	b := newFakeBackend(t)
	isolate(t, b)

	_, _, err := run(t, "wrong\n", "login", "--email", "ada@example.edu")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid email or password")
}

func TestPlacesJSONAndUnauthorized(t *testing.T) {
	b := newFakeBackend(t)
	isolate(t, b)

	_, _, err := run(t, "", "places")
	require.Error(t, err)
	require.Contains(t, err.Error(), "campustour login")

	_, _, err = run(t, "hunter2", "login", "--email", "ada@example.edu")
	require.NoError(t, err)

	out, _, err := run(t, "", "places", "--json")
	require.NoError(t, err)
	var resp struct {
		Success bool
		Data    []struct{ Name string }
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
}

func TestAuditEmptyAndDisabled(t *testing.T) {
	b := newFakeBackend(t)
	isolate(t, b)

	out, _, err := run(t, "", "audit", "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"success": true`)

	t.Setenv("CAMPUSTOUR_AUDIT", "false")
	_, _, err = run(t, "", "audit")
	require.Error(t, err)
	require.Contains(t, err.Error(), "disabled")
}

func TestRootRequiresTerminal(t *testing.T) {
	isolate(t, nil)
	_, _, err := run(t, "")
	var tty *TTYRequiredError
	require.ErrorAs(t, err, &tty)
}

func TestMaskSecret(t *testing.T) {
	require.Equal(t, "****", maskSecret("abcd"))
	require.Equal(t, "abcd****wxyz", maskSecret("abcdefghwxyz"))
}
