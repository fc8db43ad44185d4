// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/wavelink/gateway/internal/upstream"
)

const (
	pipedSearchTTL     = 30 * time.Second
	invidiousSearchTTL = 45 * time.Second
	maxSearchResults   = 60
)

// ErrSearchUnavailable is returned when both service kinds fail to answer a
// search request.
var ErrSearchUnavailable = errors.New("catalog: search unavailable")

// Search launches a piped music search and an invidious video search in
// parallel, waits for both, and accepts a partial result if only one
// succeeds. Results are merged piped-first, invidious appended, deduplicated
// by video id, and truncated to 60 items.
func (s *Service) Search(ctx context.Context, query, region string) ([]Track, error) {
	if region == "" {
		region = s.defaultRegion
	}

	var wg sync.WaitGroup
	var pipedTracks, invidiousTracks []Track
	var pipedErr, invidiousErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		pipedTracks, pipedErr = s.searchPiped(ctx, query, region)
	}()
	go func() {
		defer wg.Done()
		invidiousTracks, invidiousErr = s.searchInvidious(ctx, query, region)
	}()
	wg.Wait()

	if pipedErr != nil && invidiousErr != nil {
		return nil, fmt.Errorf("%w: piped=%v invidious=%v", ErrSearchUnavailable, pipedErr, invidiousErr)
	}

	merged := make([]Track, 0, len(pipedTracks)+len(invidiousTracks))
	seen := make(map[string]struct{}, len(pipedTracks)+len(invidiousTracks))
	for _, t := range append(pipedTracks, invidiousTracks...) {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
		if len(merged) == maxSearchResults {
			break
		}
	}
	return merged, nil
}

func (s *Service) searchPiped(ctx context.Context, query, region string) ([]Track, error) {
	build := func(base string) string {
		v := url.Values{"q": {query}, "region": {region}, "filter": {"music_songs"}}
		return base + "/search?" + v.Encode()
	}
	cacheOpts := &upstream.CacheOptions{
		Key: "piped::search:" + query + ":" + region,
		TTL: pipedSearchTTL,
	}
	resp, err := upstream.FetchJSON[pipedSearchResponse](ctx, s.client, "piped", build, upstream.FetchOptions{}, cacheOpts)
	if err != nil {
		return nil, err
	}
	return pipedItemsToTracks(resp.Items, ""), nil
}

func (s *Service) searchInvidious(ctx context.Context, query, region string) ([]Track, error) {
	build := func(base string) string {
		v := url.Values{"q": {query}, "type": {"video"}, "region": {region}}
		return base + "/api/v1/search?" + v.Encode()
	}
	cacheOpts := &upstream.CacheOptions{
		Key: "invidious::search:" + query + ":" + region,
		TTL: invidiousSearchTTL,
	}
	videos, err := upstream.FetchJSON[[]invidiousVideo](ctx, s.client, "invidious", build, upstream.FetchOptions{}, cacheOpts)
	if err != nil {
		return nil, err
	}
	return invidiousVideosToTracks(videos, ""), nil
}
