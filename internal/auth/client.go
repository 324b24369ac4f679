// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/campustour-tui/internal/clock"
)

const (
	// DefaultTimeout is the default timeout for auth requests.
	DefaultTimeout = 15 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 1 << 20
)

var (
	// ErrNotConfigured indicates the backend URL or anon key is missing.
	ErrNotConfigured = errors.New("backend not configured")

	// ErrInvalidCredentials is returned when the backend rejects email/password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotSignedIn is returned when there is no usable session.
	ErrNotSignedIn = errors.New("not signed in")
)

// StatusError is an unexpected HTTP status from the backend.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

// User identifies the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in user and their bearer credentials.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	AnonKey    string
	HTTPClient *http.Client
	Store      TokenStore
	Clock      clock.Clock
	Logger     *logrus.Logger
}

// Client talks to the backend's auth endpoints.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	store   TokenStore
	clk     clock.Clock
	log     *logrus.Entry
}

// NewClient validates opts and returns a client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" || opts.AnonKey == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	c := &Client{
		baseURL: base,
		anonKey: opts.AnonKey,
		http:    opts.HTTPClient,
		store:   opts.Store,
		clk:     opts.Clock,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.clk == nil {
		c.clk = clock.Real{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c.log = logger.WithField("component", "auth")
	return c, nil
}

// =============================================================================
// SIGN IN / SIGN OUT
// =============================================================================

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// SignIn exchanges email and password for a session and stores it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("sign in: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		c.log.WithField("email", email).Info("sign in rejected")
		return nil, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Op: "sign in", StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("sign in: decode response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("sign in: response has no access token")
	}

	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		User:         tr.User,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.clk.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if err := c.store.Save(s); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	c.log.WithField("user_id", s.User.ID).Info("signed in")
	return s, nil
}

// SignOut revokes the current session on the backend. The local session is
// cleared whether or not the request succeeds. Signing out with no session
// is a no-op.
func (c *Client) SignOut(ctx context.Context) error {
	s, err := c.store.Load()
	if err != nil {
		return errors.Join(fmt.Errorf("sign out: %w", err), c.store.Clear())
	}
	if s == nil {
		return nil
	}

	remoteErr := c.revoke(ctx, s.AccessToken)
	clearErr := c.store.Clear()
	if clearErr != nil {
		clearErr = fmt.Errorf("sign out: %w", clearErr)
	}

	entry := c.log.WithField("user_id", s.User.ID)
	if remoteErr != nil {
		entry.WithError(remoteErr).Warn("sign out request failed; local session cleared")
	} else {
		entry.Info("signed out")
	}
	return errors.Join(remoteErr, clearErr)
}

func (c *Client) revoke(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Token already revoked or expired server-side.
		return nil
	default:
		return &StatusError{Op: "sign out", StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
}

// =============================================================================
// CURRENT SESSION
// =============================================================================

// Current returns the stored session if it is still valid.
func (c *Client) Current() (*Session, error) {
	s, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotSignedIn
	}
	if s.Expired(c.clk.Now()) {
		return nil, fmt.Errorf("%w: session expired at %s", ErrNotSignedIn, s.ExpiresAt.Format(time.RFC3339))
	}
	return s, nil
}

// AccessToken returns the current bearer token, or "" when signed out.
func (c *Client) AccessToken() string {
	s, err := c.Current()
	if err != nil {
		return ""
	}
	return s.AccessToken
}

// errorMessage extracts a human-readable message from a backend error body.
func errorMessage(body []byte) string {
	var e struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
		Msg         string `json:"msg"`
		Message     string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return strings.TrimSpace(string(body))
	}
	for _, s := range []string{e.Description, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}
