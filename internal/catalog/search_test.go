// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wavelink/gateway/internal/cache"
	"github.com/wavelink/gateway/internal/health"
	"github.com/wavelink/gateway/internal/registry"
	"github.com/wavelink/gateway/internal/upstream"
)

func TestSearchMergesPipedFirstThenInvidiousDeduplicated(t *testing.T) {
	piped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"url":"/watch?v=abc","title":"Song A","uploaderName":"Artist A","duration":200,"type":"stream"},
			{"url":"/watch?v=def","title":"Song B","uploaderName":"Artist B","duration":200,"type":"stream"}
		]}`))
	}))
	defer piped.Close()

	invidious := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"type":"video","videoId":"def","title":"Song B Dup","author":"Artist B"},
			{"type":"video","videoId":"xyz","title":"Song C","author":"Artist C"}
		]`))
	}))
	defer invidious.Close()

	reg := registry.New(registry.Config{Piped: []string{piped.URL}, Invidious: []string{invidious.URL}})
	client := upstream.New(reg, health.New(), cache.NewNoOpCache())
	svc := New(client, "IN")

	tracks, err := svc.Search(context.Background(), "test", "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 deduplicated tracks, got %d: %+v", len(tracks), tracks)
	}
	if tracks[0].ID != "abc" || tracks[1].ID != "def" || tracks[2].ID != "xyz" {
		t.Fatalf("expected piped-first ordering with dedup, got %+v", tracks)
	}
	if tracks[1].Title != "Song B" {
		t.Fatalf("expected piped's copy of the duplicate id to win, got %q", tracks[1].Title)
	}
}

func TestSearchReturnsPartialResultsWhenOneSideFails(t *testing.T) {
	piped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"url":"/watch?v=abc","title":"Song A","uploaderName":"Artist A","duration":200,"type":"stream"}]}`))
	}))
	defer piped.Close()
	badInvidious := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer badInvidious.Close()

	reg := registry.New(registry.Config{Piped: []string{piped.URL}, Invidious: []string{badInvidious.URL}})
	client := upstream.New(reg, health.New(), cache.NewNoOpCache())
	svc := New(client, "IN")

	tracks, err := svc.Search(context.Background(), "test", "")
	if err != nil {
		t.Fatalf("expected partial success, got error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track from the surviving side, got %d", len(tracks))
	}
}

func TestSearchReturnsErrorWhenBothSidesFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	reg := registry.New(registry.Config{Piped: []string{bad.URL}, Invidious: []string{bad.URL}})
	client := upstream.New(reg, health.New(), cache.NewNoOpCache())
	svc := New(client, "IN")

	_, err := svc.Search(context.Background(), "test", "")
	if err == nil {
		t.Fatal("expected an error when both service kinds fail")
	}
}
