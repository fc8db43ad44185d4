// SPDX-License-Identifier: MIT

// Package mediaproxy streams upstream media bytes to the client with full
// HTTP range semantics and a bounded, non-recursive retry ladder that
// re-drives the Stream Resolver when the upstream CDN rejects a request
// mid-flight.
package mediaproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	xglog "github.com/wavelink/gateway/internal/log"
	"github.com/wavelink/gateway/internal/metrics"
	"github.com/wavelink/gateway/internal/resolver"
)

// headToFirstByteTimeout bounds how long the proxy waits for upstream
// response headers, via the transport's ResponseHeaderTimeout; the body
// itself has no deadline once headers arrive and streaming starts, since a
// request context's deadline in net/http bounds the whole request
// (headers and body alike), not just the header round trip.
const headToFirstByteTimeout = 10 * time.Second

var passthroughHeaders = []string{
	"Content-Length",
	"Accept-Ranges",
	"Content-Range",
	"ETag",
	"Last-Modified",
	"Cache-Control",
}

// Proxy streams resolved media URLs to clients, bounding concurrent
// in-flight streams with a weighted semaphore, grounded on the teacher's
// streamLimiter *semaphore.Weighted field in internal/proxy/proxy.go.
type Proxy struct {
	resolver   *resolver.Resolver
	httpClient *http.Client
	sem        *semaphore.Weighted
}

// New creates a Proxy allowing at most maxConcurrentStreams simultaneous
// upstream streams.
func New(res *resolver.Resolver, maxConcurrentStreams int64) *Proxy {
	return &Proxy{
		resolver: res,
		httpClient: &http.Client{
			// No overall Timeout: a context deadline or client Timeout in
			// net/http bounds the full request including the body read, and
			// streamed media bodies can legitimately run for minutes.
			Timeout: 0,
			Transport: &http.Transport{
				ResponseHeaderTimeout: headToFirstByteTimeout,
			},
		},
		sem: semaphore.NewWeighted(maxConcurrentStreams),
	}
}

// Request describes one /streams/{id}/proxy call.
type Request struct {
	VideoID  string
	Src      string
	Source   string // "piped" or "invidious"
	Instance string
}

// ErrAtCapacity is returned when the concurrent-stream semaphore could not
// be acquired before the request's context was cancelled.
var ErrAtCapacity = errors.New("mediaproxy: at stream capacity")

// Serve executes the full attempt ladder (A -> B -> C) for req and streams
// the winning response to w. It returns only after the response has been
// fully written or a terminal failure has been reported to the client.
func (p *Proxy) Serve(w http.ResponseWriter, r *http.Request, req Request) error {
	ctx := r.Context()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return ErrAtCapacity
	}
	defer p.sem.Release(1)

	logger := xglog.FromContext(ctx).With().Str(xglog.FieldVideoID, req.VideoID).Logger()

	// Attempt A: the provided src, as-is.
	streamed, lastStatus := p.tryAttempt(w, r, req.Src)
	metrics.ObserveProxyAttempt("a", outcomeLabel(streamed))
	if streamed {
		return nil
	}
	logger.Warn().Str(xglog.FieldReason, fmt.Sprintf("attempt A failed: status=%d", lastStatus)).Msg("media proxy attempt failed")

	// Attempt B: re-resolve the same source; only spend an upstream attempt
	// if it yields a URL different from the one that just failed.
	if urlB, ok := p.reresolve(ctx, req.VideoID, req.Source, req.Instance); ok && urlB != req.Src {
		streamed, status := p.tryAttempt(w, r, urlB)
		metrics.ObserveProxyAttempt("b", outcomeLabel(streamed))
		if streamed {
			return nil
		}
		lastStatus = status
		logger.Warn().Str(xglog.FieldReason, fmt.Sprintf("attempt B failed: status=%d", lastStatus)).Msg("media proxy attempt failed")
	}

	// Attempt C: re-resolve against the other service kind.
	other := otherSource(req.Source)
	if urlC, ok := p.reresolve(ctx, req.VideoID, other, ""); ok {
		streamed, status := p.tryAttempt(w, r, urlC)
		metrics.ObserveProxyAttempt("c", outcomeLabel(streamed))
		if streamed {
			return nil
		}
		lastStatus = status
		logger.Warn().Str(xglog.FieldReason, fmt.Sprintf("attempt C failed: status=%d", lastStatus)).Msg("media proxy attempt failed")
	}

	writeFailure(w, lastStatus)
	return nil
}

func outcomeLabel(streamed bool) string {
	if streamed {
		return "streamed"
	}
	return "failed"
}

func otherSource(source string) string {
	if source == "invidious" {
		return "piped"
	}
	return "invidious"
}

// reresolve invalidates the cached resolution for videoID and re-drives the
// Stream Resolver preferring source, returning the new audio URL.
func (p *Proxy) reresolve(ctx context.Context, videoID, source, instance string) (string, bool) {
	p.resolver.Invalidate(videoID)
	ctx, cancel := context.WithTimeout(ctx, headToFirstByteTimeout+2*time.Second)
	defer cancel()
	rs, err := p.resolver.Resolve(ctx, videoID, resolver.Options{
		PreferredSource:   source,
		PreferredInstance: instance,
	})
	if err != nil || rs.AudioURL == "" {
		return "", false
	}
	return rs.AudioURL, true
}

// tryAttempt issues the upstream request for srcURL and, on a streamable
// response, forwards it to w. It returns streamed=true only once bytes have
// started flowing to the client; per spec, that transition is irreversible.
func (p *Proxy) tryAttempt(w http.ResponseWriter, r *http.Request, srcURL string) (streamed bool, status int) {
	req, err := p.buildUpstreamRequest(r, srcURL)
	if err != nil {
		return false, 0
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, 0
	}

	if resp.StatusCode == http.StatusForbidden {
		drainAndClose(resp.Body)
		return false, http.StatusForbidden
	}

	contentType := resp.Header.Get("Content-Type")
	if needsContentTypeOverride(resp.StatusCode, contentType, srcURL) {
		contentType = audioMimeForItag(itagFromURL(srcURL))
	}

	p.writeSuccess(w, r, resp, contentType)
	return true, resp.StatusCode
}

func (p *Proxy) buildUpstreamRequest(r *http.Request, srcURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "audio/webm,audio/ogg,audio/*;q=0.9,application/ogg;q=0.7,video/*;q=0.6,*/*;q=0.5")
	req.Header.Set("Referer", "https://www.youtube.com/")
	req.Header.Set("Origin", "https://www.youtube.com")
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}
	return req, nil
}

func (p *Proxy) writeSuccess(w http.ResponseWriter, r *http.Request, resp *http.Response, contentType string) {
	defer resp.Body.Close()

	h := w.Header()
	for _, name := range passthroughHeaders {
		if v := resp.Header.Get(name); v != "" {
			h.Set(name, v)
		}
	}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Expose-Headers", "Content-Range, Accept-Ranges, Content-Length")
	h.Set("Access-Control-Allow-Headers", "Range")

	w.WriteHeader(resp.StatusCode)

	buf := make([]byte, 32*1024)
	_, _ = io.CopyBuffer(w, resp.Body, buf)
}

func drainAndClose(body io.ReadCloser) {
	done := make(chan struct{})
	go func() {
		_, _ = io.CopyN(io.Discard, body, 64*1024)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	_ = body.Close()
}

func writeFailure(w http.ResponseWriter, lastStatus int) {
	status := http.StatusInternalServerError
	message := "Unable to load stream"
	if lastStatus == http.StatusForbidden {
		status = http.StatusForbidden
		message = "Access denied by video provider"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"message":%q,"error":"try a VPN or a different region"}`, message)
}
