// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tour

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/campustour-tui/internal/logging"
)

var samplePlaces = []Place{
	{ID: "1", Name: "Biblioteca Central", Category: "Library"},
	{ID: "2", Name: "Café Norte", Category: "Dining"},
	{ID: "3", Name: "ＳＴＲＡＳＳＥ Hall", Category: "Residence"},
	{ID: "4", Name: "Engineering Lab", Category: "Academic"},
}

func TestListPlaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/places", r.URL.Path)
		require.Equal(t, placeColumns, r.URL.Query().Get("select"))
		require.Equal(t, "name.asc", r.URL.Query().Get("order"))
		require.Equal(t, "anon", r.Header.Get("apikey"))
		require.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(samplePlaces)
	}))
	defer srv.Close()

	c, err := NewClient(Options{
		BaseURL: srv.URL,
		AnonKey: "anon",
		Tokens:  TokenFunc(func() string { return "user-token" }),
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)

	got, err := c.ListPlaces(context.Background())
	require.NoError(t, err)
	require.Equal(t, samplePlaces, got)
}

func TestListPlaces_FallsBackToAnonKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL, AnonKey: "anon", Logger: logging.Discard()})
	require.NoError(t, err)

	got, err := c.ListPlaces(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestListPlaces_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL, AnonKey: "anon", Logger: logging.Discard()})
	require.NoError(t, err)

	_, err = c.ListPlaces(context.Background())
	require.True(t, errors.Is(err, ErrUnauthorized))
}

func TestListPlaces_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relation does not exist", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL, AnonKey: "anon", Logger: logging.Discard()})
	require.NoError(t, err)

	_, err = c.ListPlaces(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 500")
	require.Contains(t, err.Error(), "relation does not exist")
}

func TestNewClient_RequiresConfig(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "https://x.example.edu"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2", "3", "4"}},
		{"   ", []string{"1", "2", "3", "4"}},
		{"biblio", []string{"1"}},
		{"CAFÉ", []string{"2"}},
		{"strasse", []string{"3"}},
		{"dining", []string{"2"}},
		{"lab", []string{"4"}},
		{"observatory", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var ids []string
			for _, p := range Filter(samplePlaces, tt.query) {
				ids = append(ids, p.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}

func TestCategories(t *testing.T) {
	places := append([]Place{{ID: "5", Name: "Annex", Category: "Library"}, {ID: "6"}}, samplePlaces...)
	require.Equal(t, []string{"Library", "Dining", "Residence", "Academic"}, Categories(places))
}
