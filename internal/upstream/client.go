// SPDX-License-Identifier: MIT

// Package upstream implements the ranked-iteration fetcher that tries
// upstream instances of a service kind in health-ranked order until one
// succeeds, recording the outcome of every attempt into the Health Tracker.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wavelink/gateway/internal/cache"
	"github.com/wavelink/gateway/internal/health"
	xglog "github.com/wavelink/gateway/internal/log"
	"github.com/wavelink/gateway/internal/metrics"
	"github.com/wavelink/gateway/internal/registry"
)

// AttemptDeadline bounds the full candidate-iteration sequence for a single
// fetch_raw/fetch_json call, covering every instance tried.
const AttemptDeadline = 12 * time.Second

// perInstanceRate bounds outbound request rate to a single upstream instance
// so a recovering mirror is not immediately hammered once it starts ranking
// first again.
const perInstanceRate = rate.Limit(5)
const perInstanceBurst = 10

// BuildURL constructs the request URL for a candidate base instance.
type BuildURL func(base string) string

// Response is the result of a successful fetch_raw call.
type Response struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	URL         string // the full request URL that succeeded
	Instance    string // the base instance URL that succeeded
	Latency     time.Duration
}

// FetchOptions configures a single fetch_raw/fetch_json call.
type FetchOptions struct {
	// Headers are merged over the default Accept: application/json header.
	Headers map[string]string
	// StrictStatus, when true (the default), treats any non-2xx status as a
	// failure and advances to the next candidate.
	StrictStatus *bool
	// PreferredInstance, if non-empty and present in the kind's candidate
	// list, is promoted to the head of the ranking for this call only. It
	// never mutates the registry or the Health Tracker's ranking for other
	// callers.
	PreferredInstance string
	// RequireJSON, when true, treats a response whose Content-Type does not
	// advertise JSON as a candidate failure and continues to the next
	// instance, per spec §4.3. FetchJSON sets this; FetchRaw callers that
	// tolerate non-JSON bodies (e.g. the Stream Resolver's piped HTML
	// fallback) leave it false.
	RequireJSON bool
}

func (o FetchOptions) strictStatus() bool {
	if o.StrictStatus == nil {
		return true
	}
	return *o.StrictStatus
}

// CacheOptions enables fetch_json's read-through cache behavior.
type CacheOptions struct {
	Key string
	TTL time.Duration
}

// Attempt records why a single candidate instance failed.
type Attempt struct {
	URL    string
	Reason string
}

// AggregateError is returned when every candidate instance for a kind fails.
type AggregateError struct {
	Kind     string
	Attempts []Attempt
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all %s instances failed:", e.Kind)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, " [%s: %s]", a.URL, a.Reason)
	}
	return b.String()
}

// Unwrap lets errors.Is/As traverse into per-attempt context when the reason
// itself wraps a lower-level error (none of our reasons currently do, but
// the hook is cheap to keep open for callers that build on this type).
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, errors.New(a.Reason))
	}
	return errs
}

// ErrNoCandidates is returned when a kind's registry snapshot is empty.
var ErrNoCandidates = errors.New("upstream: no candidate instances configured")

// Client is the ranked-iteration fetcher described by the gateway's
// Upstream Client contract.
type Client struct {
	httpClient *http.Client
	registry   *registry.Registry
	tracker    *health.Tracker
	cache      cache.Cache

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	lastUsed sync.Map // kind (string) -> url (string)
}

// New creates an upstream Client.
func New(reg *registry.Registry, tracker *health.Tracker, c cache.Cache) *Client {
	return &Client{
		httpClient: &http.Client{},
		registry:   reg,
		tracker:    tracker,
		cache:      c,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiterFor(kind, url string) *rate.Limiter {
	key := kind + "|" + url
	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()
	l, ok := c.limiters[key]
	if !ok {
		l = rate.NewLimiter(perInstanceRate, perInstanceBurst)
		c.limiters[key] = l
	}
	return l
}

// LastUsed returns the most recent instance that succeeded for kind, if any.
func (c *Client) LastUsed(kind string) (string, bool) {
	v, ok := c.lastUsed.Load(kind)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// candidates returns the ranked instance list for kind, with an optional
// preferred instance promoted to the head for this call only.
func (c *Client) candidates(kind string, preferred string) []string {
	urls := c.registry.URLs(registry.Kind(kind))
	ranked := c.tracker.Rank(kind, urls)
	if preferred == "" {
		return ranked
	}
	preferred = registry.Normalize(preferred)
	present := false
	for _, u := range ranked {
		if u == preferred {
			present = true
			break
		}
	}
	if !present {
		return ranked
	}
	out := make([]string, 0, len(ranked))
	out = append(out, preferred)
	for _, u := range ranked {
		if u != preferred {
			out = append(out, u)
		}
	}
	return out
}

// FetchRaw tries candidate instances of kind in ranked order, returning the
// first successful response. Every attempt's outcome is recorded into the
// Health Tracker. Callers get back the raw bytes; FetchJSON layers decoding
// and caching on top.
func (c *Client) FetchRaw(ctx context.Context, kind string, build BuildURL, opts FetchOptions) (*Response, error) {
	candidates := c.candidates(kind, opts.PreferredInstance)
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	ctx, cancel := context.WithTimeout(ctx, AttemptDeadline)
	defer cancel()

	logger := xglog.FromContext(ctx).With().Str(xglog.FieldServiceKind, kind).Logger()

	var attempts []Attempt
	for rank, base := range candidates {
		url := build(base)

		if l := c.limiterFor(kind, base); l != nil {
			_ = l.Wait(ctx)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			attempts = append(attempts, Attempt{URL: url, Reason: err.Error()})
			continue
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		elapsed := time.Since(start)
		if err != nil {
			c.tracker.RecordFailure(kind, base)
			logger.Warn().Str(xglog.FieldInstance, base).Str(xglog.FieldReason, err.Error()).Msg("upstream request failed")
			attempts = append(attempts, Attempt{URL: url, Reason: err.Error()})
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
		resp.Body.Close()

		if opts.strictStatus() && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
			c.tracker.RecordFailure(kind, base)
			reason := fmt.Sprintf("HTTP %d", resp.StatusCode)
			logger.Warn().Str(xglog.FieldInstance, base).Str(xglog.FieldReason, reason).Msg("upstream request failed")
			attempts = append(attempts, Attempt{URL: url, Reason: reason})
			continue
		}
		if readErr != nil {
			c.tracker.RecordFailure(kind, base)
			attempts = append(attempts, Attempt{URL: url, Reason: readErr.Error()})
			continue
		}
		if opts.RequireJSON {
			if ct := resp.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "json") {
				c.tracker.RecordFailure(kind, base)
				reason := fmt.Sprintf("non-JSON content-type %q", ct)
				logger.Warn().Str(xglog.FieldInstance, base).Str(xglog.FieldReason, reason).Msg("upstream request failed")
				attempts = append(attempts, Attempt{URL: url, Reason: reason})
				continue
			}
		}

		c.tracker.RecordSuccess(kind, base, elapsed)
		c.lastUsed.Store(kind, base)
		metrics.InstanceRankPosition.WithLabelValues(kind).Set(float64(rank))

		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			URL:        url,
			Instance:   base,
			Latency:    elapsed,
		}, nil
	}

	return nil, &AggregateError{Kind: kind, Attempts: attempts}
}
