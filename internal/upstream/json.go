// SPDX-License-Identifier: MIT

package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wavelink/gateway/internal/metrics"
)

// FetchJSON wraps FetchRaw with a read-through cache and JSON decoding. When
// cacheOpts has a non-empty Key, a cache hit short-circuits the network
// entirely; a miss populates the cache with the decoded value after a
// successful fetch.
//
// Go does not allow type parameters on methods, so this is a free function
// taking the Client as its first argument, matching the generic-fetch shape
// used by the teacher's typed-cache helpers.
func FetchJSON[T any](ctx context.Context, c *Client, kind string, build BuildURL, opts FetchOptions, cacheOpts *CacheOptions) (T, error) {
	var zero T

	if cacheOpts != nil && cacheOpts.Key != "" && c.cache != nil {
		if cached, ok := c.cache.Get(cacheOpts.Key); ok {
			if out, ok := coerce[T](cached); ok {
				metrics.ObserveCacheResult(kind, true)
				return out, nil
			}
			// Wrong shape in the cache: fall through and refetch.
		}
		metrics.ObserveCacheResult(kind, false)
	}

	opts.RequireJSON = true
	resp, err := c.FetchRaw(ctx, kind, build, opts)
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return zero, fmt.Errorf("upstream: decode response from %s: %w", resp.Instance, err)
	}

	if cacheOpts != nil && cacheOpts.Key != "" && c.cache != nil {
		c.cache.Set(cacheOpts.Key, out, cacheOpts.TTL)
	}

	return out, nil
}

// coerce adapts a cache.Cache value back to T. Values round-tripped through
// the in-memory cache keep their original type (an any holding a T); values
// round-tripped through Redis have been JSON-marshaled and unmarshaled into
// a generic any, so they need a re-marshal/unmarshal through T's concrete
// shape instead of a type assertion.
func coerce[T any](v any) (T, bool) {
	var zero T
	if typed, ok := v.(T); ok {
		return typed, true
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false
	}
	return out, true
}
