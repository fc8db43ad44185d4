// SPDX-License-Identifier: MIT

package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wavelink/gateway/internal/cache"
	"github.com/wavelink/gateway/internal/health"
	"github.com/wavelink/gateway/internal/registry"
)

func TestFetchRawSkipsFailingInstanceAndRecordsHealth(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer good.Close()

	reg := registry.New(registry.Config{Piped: []string{bad.URL, good.URL}})
	tracker := health.New()
	c := New(reg, tracker, cache.NewNoOpCache())

	resp, err := c.FetchRaw(context.Background(), "piped", func(base string) string {
		return base + "/stream/abc"
	}, FetchOptions{})
	if err != nil {
		t.Fatalf("FetchRaw returned error: %v", err)
	}
	if resp.Instance != good.URL {
		t.Fatalf("expected fallback to good instance, got %s", resp.Instance)
	}

	st := tracker.Get("piped", registry.Normalize(bad.URL))
	if st.FailureStreak != 1 {
		t.Errorf("expected bad instance to have failure streak 1, got %d", st.FailureStreak)
	}
	st = tracker.Get("piped", registry.Normalize(good.URL))
	if st.FailureStreak != 0 {
		t.Errorf("expected good instance to have failure streak 0, got %d", st.FailureStreak)
	}
}

func TestFetchRawReturnsAggregateErrorWhenAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reg := registry.New(registry.Config{Piped: []string{srv.URL}})
	tracker := health.New()
	c := New(reg, tracker, cache.NewNoOpCache())

	_, err := c.FetchRaw(context.Background(), "piped", func(base string) string {
		return base
	}, FetchOptions{})
	if err == nil {
		t.Fatal("expected an error when every candidate fails")
	}
	var aggErr *AggregateError
	if !asAggregateError(err, &aggErr) {
		t.Fatalf("expected *AggregateError, got %T: %v", err, err)
	}
	if len(aggErr.Attempts) != 1 {
		t.Fatalf("expected 1 attempt recorded, got %d", len(aggErr.Attempts))
	}
}

func TestFetchRawNoCandidates(t *testing.T) {
	reg := registry.New(registry.Config{})
	c := New(reg, health.New(), cache.NewNoOpCache())

	_, err := c.FetchRaw(context.Background(), "piped", func(base string) string { return base }, FetchOptions{})
	if err != ErrNoCandidates {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

type streamPayload struct {
	Title string `json:"title"`
}

func TestFetchJSONCachesDecodedValue(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"hello"}`))
	}))
	defer srv.Close()

	reg := registry.New(registry.Config{Piped: []string{srv.URL}})
	c := New(reg, health.New(), cache.NewMemoryCache(time.Minute))

	build := func(base string) string { return base }
	cacheOpts := &CacheOptions{Key: "piped::stream:abc", TTL: time.Minute}

	first, err := FetchJSON[streamPayload](context.Background(), c, "piped", build, FetchOptions{}, cacheOpts)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.Title != "hello" {
		t.Fatalf("unexpected payload: %+v", first)
	}

	second, err := FetchJSON[streamPayload](context.Background(), c, "piped", build, FetchOptions{}, cacheOpts)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if second.Title != "hello" {
		t.Fatalf("unexpected cached payload: %+v", second)
	}
	if calls != 1 {
		t.Fatalf("expected cache hit to avoid a second network call, got %d calls", calls)
	}
}

func TestFetchJSONRejectsNonJSONContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	reg := registry.New(registry.Config{Piped: []string{srv.URL}})
	c := New(reg, health.New(), cache.NewNoOpCache())

	_, err := FetchJSON[streamPayload](context.Background(), c, "piped", func(base string) string { return base }, FetchOptions{}, nil)
	if err == nil {
		t.Fatal("expected an error for non-JSON content type")
	}
}

func TestFetchJSONFallsThroughNonJSONCandidate(t *testing.T) {
	htmlMirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer htmlMirror.Close()

	jsonMirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"hello"}`))
	}))
	defer jsonMirror.Close()

	reg := registry.New(registry.Config{Piped: []string{htmlMirror.URL, jsonMirror.URL}})
	tracker := health.New()
	c := New(reg, tracker, cache.NewNoOpCache())

	out, err := FetchJSON[streamPayload](context.Background(), c, "piped", func(base string) string { return base }, FetchOptions{}, nil)
	if err != nil {
		t.Fatalf("expected fallthrough to the JSON-serving instance, got error: %v", err)
	}
	if out.Title != "hello" {
		t.Fatalf("unexpected payload: %+v", out)
	}

	st := tracker.Get("piped", registry.Normalize(htmlMirror.URL))
	if st.FailureStreak != 1 {
		t.Errorf("expected HTML-serving instance to be recorded as a failure, got streak %d", st.FailureStreak)
	}
}

func TestPreferredInstancePromotedToHead(t *testing.T) {
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"a"}`))
	}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"b"}`))
	}))
	defer b.Close()

	reg := registry.New(registry.Config{Piped: []string{a.URL, b.URL}})
	tracker := health.New()
	// Make "a" rank first under normal conditions.
	tracker.RecordSuccess("piped", registry.Normalize(a.URL), time.Millisecond)
	tracker.RecordSuccess("piped", registry.Normalize(b.URL), time.Second)

	c := New(reg, tracker, cache.NewNoOpCache())
	resp, err := c.FetchRaw(context.Background(), "piped", func(base string) string { return base }, FetchOptions{
		PreferredInstance: b.URL,
	})
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if resp.Instance != b.URL {
		t.Fatalf("expected preferred instance b to be tried first, got %s", resp.Instance)
	}
}

func asAggregateError(err error, target **AggregateError) bool {
	if ae, ok := err.(*AggregateError); ok {
		*target = ae
		return true
	}
	return false
}
