// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/wavelink/gateway/internal/metrics"
	"github.com/wavelink/gateway/internal/upstream"
)

const (
	trendingTTL    = 10 * time.Minute
	maxTrending    = 40
)

// seedQuery is one fallback search used to fill out trending when the
// upstream trending endpoints return fewer than maxTrending music items.
type seedQuery struct {
	Query  string
	Weight float64
}

// trendingSeedQueries is a fixed set of broad music-genre queries used only
// as a last resort; weights bias the fallback ranking toward queries more
// likely to surface popular music.
var trendingSeedQueries = []seedQuery{
	{Query: "top hits", Weight: 1.0},
	{Query: "new music", Weight: 0.96},
	{Query: "official music video", Weight: 0.93},
	{Query: "pop songs", Weight: 0.9},
	{Query: "hip hop music", Weight: 0.88},
	{Query: "acoustic cover", Weight: 0.86},
}

type scoredTrack struct {
	track Track
	score float64
}

// Trending returns a ranked list of up to 40 music tracks for region.
func (s *Service) Trending(ctx context.Context, region string) ([]Track, error) {
	if region == "" {
		region = s.defaultRegion
	}

	var wg sync.WaitGroup
	var pipedTracks, invidiousTracks []Track
	wg.Add(2)
	go func() {
		defer wg.Done()
		pipedTracks, _ = s.trendingPiped(ctx, region)
	}()
	go func() {
		defer wg.Done()
		invidiousTracks, _ = s.trendingInvidious(ctx, region)
	}()
	wg.Wait()

	result := make([]Track, 0, maxTrending)
	seen := make(map[string]struct{})
	appendFiltered := func(tracks []Track) {
		for _, t := range tracks {
			if len(result) == maxTrending {
				return
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			if !IsMusic(Candidate{Title: t.Title, Uploader: t.Artist, DurationS: t.DurationS, HasDuration: t.DurationS > 0}) {
				metrics.ClassifierRejectionsTotal.WithLabelValues("trending").Inc()
				continue
			}
			seen[t.ID] = struct{}{}
			result = append(result, t)
		}
	}
	appendFiltered(pipedTracks)
	appendFiltered(invidiousTracks)

	if len(result) < maxTrending {
		fallback := s.trendingFallback(ctx, region, seen)
		for _, t := range fallback {
			if len(result) == maxTrending {
				break
			}
			result = append(result, t)
		}
	}

	return result, nil
}

func (s *Service) trendingPiped(ctx context.Context, region string) ([]Track, error) {
	build := func(base string) string {
		v := url.Values{"region": {region}, "type": {"music"}}
		return base + "/trending?" + v.Encode()
	}
	cacheOpts := &upstream.CacheOptions{Key: "piped::trending:" + region, TTL: trendingTTL}
	items, err := upstream.FetchJSON[[]pipedItem](ctx, s.client, "piped", build, upstream.FetchOptions{}, cacheOpts)
	if err != nil {
		return nil, err
	}
	return pipedItemsToTracks(items, ""), nil
}

func (s *Service) trendingInvidious(ctx context.Context, region string) ([]Track, error) {
	build := func(base string) string {
		v := url.Values{"type": {"music"}, "region": {region}}
		return base + "/api/v1/trending?" + v.Encode()
	}
	cacheOpts := &upstream.CacheOptions{Key: "invidious::trending:" + region, TTL: trendingTTL}
	videos, err := upstream.FetchJSON[[]invidiousVideo](ctx, s.client, "invidious", build, upstream.FetchOptions{}, cacheOpts)
	if err != nil {
		return nil, err
	}
	return invidiousVideosToTracks(videos, ""), nil
}

// trendingFallback runs the weighted seed-query searches in parallel,
// scores each result by weight-0.01*index, filters through the music
// classifier, and returns them ranked by descending score, skipping ids
// already present in seen.
func (s *Service) trendingFallback(ctx context.Context, region string, seen map[string]struct{}) []Track {
	var wg sync.WaitGroup
	scored := make([][]scoredTrack, len(trendingSeedQueries))

	for i, sq := range trendingSeedQueries {
		wg.Add(1)
		go func(i int, sq seedQuery) {
			defer wg.Done()
			tracks, err := s.searchInvidious(ctx, sq.Query, region)
			if err != nil {
				return
			}
			out := make([]scoredTrack, 0, len(tracks))
			for idx, t := range tracks {
				if !IsMusic(Candidate{Title: t.Title, Uploader: t.Artist, DurationS: t.DurationS, HasDuration: t.DurationS > 0}) {
					continue
				}
				out = append(out, scoredTrack{track: t, score: sq.Weight - 0.01*float64(idx)})
			}
			scored[i] = out
		}(i, sq)
	}
	wg.Wait()

	var all []scoredTrack
	for _, group := range scored {
		all = append(all, group...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	out := make([]Track, 0, len(all))
	for _, st := range all {
		if _, dup := seen[st.track.ID]; dup {
			continue
		}
		seen[st.track.ID] = struct{}{}
		out = append(out, st.track)
	}
	return out
}
