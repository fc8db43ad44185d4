// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wavelink/gateway/internal/cache"
	xglog "github.com/wavelink/gateway/internal/log"
	"github.com/wavelink/gateway/internal/upstream"
)

// CacheTTL is how long a resolved stream stays fresh, per spec.
const CacheTTL = 5 * time.Minute

// ErrUnavailable is returned when both service kinds fail to produce a
// playable result for a video id.
var ErrUnavailable = errors.New("resolver: stream unavailable")

// Resolver resolves video ids into ResolvedStreams, normalizing the piped
// and invidious wire schemas into one canonical shape.
type Resolver struct {
	client *upstream.Client
	cache  cache.Cache
	sfg    singleflight.Group
}

// New creates a Resolver backed by an upstream Client and a TTL Cache.
func New(client *upstream.Client, c cache.Cache) *Resolver {
	return &Resolver{client: client, cache: c}
}

func cacheKey(videoID string) string {
	return "resolved::" + videoID
}

// Resolve produces a ResolvedStream for videoID, consulting the cache first
// and collapsing concurrent identical calls for the same video id into one
// upstream round trip via singleflight.
func (r *Resolver) Resolve(ctx context.Context, videoID string, opts Options) (*ResolvedStream, error) {
	if cached, ok := r.cache.Get(cacheKey(videoID)); ok {
		if rs, ok := cached.(*ResolvedStream); ok {
			return rs, nil
		}
	}

	v, err, _ := r.sfg.Do(videoID, func() (any, error) {
		return r.resolveUncached(ctx, videoID, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ResolvedStream), nil
}

func (r *Resolver) resolveUncached(ctx context.Context, videoID string, opts Options) (*ResolvedStream, error) {
	order := []string{"piped", "invidious"}
	if opts.PreferredSource == "invidious" {
		order = []string{"invidious", "piped"}
	}

	logger := xglog.FromContext(ctx).With().Str(xglog.FieldVideoID, videoID).Logger()

	var lastErr error
	for _, kind := range order {
		rs, err := r.resolveFromKind(ctx, kind, videoID, opts.PreferredInstance)
		if err != nil {
			lastErr = err
			logger.Warn().Str(xglog.FieldSource, kind).Str(xglog.FieldReason, err.Error()).Msg("resolve attempt failed")
			continue
		}
		r.cache.Set(cacheKey(videoID), rs, CacheTTL)
		return rs, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return nil, ErrUnavailable
}

func (r *Resolver) resolveFromKind(ctx context.Context, kind, videoID, preferredInstance string) (*ResolvedStream, error) {
	var build upstream.BuildURL
	switch kind {
	case "piped":
		build = func(base string) string { return base + "/streams/" + videoID }
	case "invidious":
		build = func(base string) string { return base + "/api/v1/videos/" + videoID }
	default:
		return nil, fmt.Errorf("resolver: unknown service kind %q", kind)
	}

	resp, err := r.client.FetchRaw(ctx, kind, build, upstream.FetchOptions{
		PreferredInstance: preferredInstance,
	})
	if err != nil {
		return nil, err
	}

	switch kind {
	case "piped":
		return buildFromPiped(resp, videoID)
	default:
		return buildFromInvidious(resp, videoID)
	}
}

func buildFromPiped(resp *upstream.Response, videoID string) (*ResolvedStream, error) {
	parsed, err := parsePipedResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	audio := pipedAudioVariants(parsed)
	sortAudioLadder(audio)
	if len(audio) == 0 {
		return nil, fmt.Errorf("resolver: piped response for %s has no playable audio", videoID)
	}
	video := pipedVideoVariants(parsed)
	sortVideoLadder(video)

	return &ResolvedStream{
		AudioURL:    audio[0].URL,
		ManifestURL: parsed.HLS,
		MimeType:    audio[0].MimeType,
		AudioLadder: audio,
		VideoLadder: video,
		Source:      "piped",
		Instance:    resp.Instance,
	}, nil
}

func buildFromInvidious(resp *upstream.Response, videoID string) (*ResolvedStream, error) {
	parsed, err := parseInvidiousResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	audio := invidiousAudioVariants(resp.Instance, videoID, parsed)
	sortAudioLadder(audio)
	if len(audio) == 0 {
		return nil, fmt.Errorf("resolver: invidious response for %s has no playable audio", videoID)
	}
	video := invidiousVideoVariants(resp.Instance, videoID, parsed)
	sortVideoLadder(video)

	return &ResolvedStream{
		AudioURL:    audio[0].URL,
		MimeType:    audio[0].MimeType,
		AudioLadder: audio,
		VideoLadder: video,
		Source:      "invidious",
		Instance:    resp.Instance,
	}, nil
}

// Invalidate removes the cached resolution for videoID, used by the media
// proxy's retry ladder before it re-drives a fresh resolve.
func (r *Resolver) Invalidate(videoID string) {
	r.cache.Delete(cacheKey(videoID))
}
