// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tour reads the campus place catalog from the tour backend.
package tour

import (
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
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultTimeout is the default timeout for catalog requests.
	DefaultTimeout = 15 * time.Second

	maxResponseSize = 4 << 20

	placeColumns = "id,name,category,description,panorama_url"
)

var (
	// ErrNotConfigured indicates the backend URL or anon key is missing.
	ErrNotConfigured = errors.New("backend not configured")

	// ErrUnauthorized indicates the access token was rejected.
	ErrUnauthorized = errors.New("not authorized to read places")
)

// Place is one stop on the virtual tour.
type Place struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"` // markdown
	PanoramaURL string `json:"panorama_url"`
}

// TokenSource yields the bearer token for data requests.
type TokenSource interface {
	AccessToken() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) AccessToken() string { return f() }

// Options configures a Client.
type Options struct {
	BaseURL    string
	AnonKey    string
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client fetches places from the backend's REST interface.
type Client struct {
	baseURL string
	anonKey string
	tokens  TokenSource
	http    *http.Client
	log     *logrus.Entry
}

// NewClient validates opts and returns a client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" || opts.AnonKey == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		baseURL: base,
		anonKey: opts.AnonKey,
		tokens:  opts.Tokens,
		http:    opts.HTTPClient,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c.log = logger.WithField("component", "tour")
	return c, nil
}

// ListPlaces returns every place ordered by name.
func (c *Client) ListPlaces(ctx context.Context) ([]Place, error) {
	q := url.Values{}
	q.Set("select", placeColumns)
	q.Set("order", "name.asc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/places?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	token := c.anonKey
	if c.tokens != nil {
		if t := c.tokens.AccessToken(); t != "" {
			token = t
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("list places: backend returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []Place
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&places); err != nil {
		return nil, fmt.Errorf("list places: decode response: %w", err)
	}
	c.log.WithField("count", len(places)).Debug("places loaded")
	return places, nil
}

// =============================================================================
// SEARCH
// =============================================================================

// normalize maps s to a form where compatibility variants and case
// differences compare equal. Casers are stateful, so each call gets its own.
func normalize(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Filter returns the places whose name or category contains query.
// An empty query returns places unchanged.
func Filter(places []Place, query string) []Place {
	q := normalize(query)
	if q == "" {
		return places
	}
	var out []Place
	for _, p := range places {
		if strings.Contains(normalize(p.Name), q) || strings.Contains(normalize(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func Categories(places []Place) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range places {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}
