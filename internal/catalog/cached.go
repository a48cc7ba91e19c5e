package catalog

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"melodeck/internal/cache"
)

// TTLPolicy sets cache lifetimes per endpoint class
type TTLPolicy struct {
	Feed   time.Duration // modules, trending, charts
	Search time.Duration
	Detail time.Duration // songs, albums, artists, playlists, lyrics
}

// DefaultTTLPolicy returns the standard lifetimes
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Feed:   10 * time.Minute,
		Search: 5 * time.Minute,
		Detail: time.Hour,
	}
}

// For returns the lifetime for an endpoint
func (p TTLPolicy) For(endpoint string) time.Duration {
	switch {
	case strings.HasPrefix(endpoint, "/search"):
		return p.Search
	case endpoint == EndpointModules, endpoint == EndpointTrending, endpoint == EndpointCharts:
		return p.Feed
	default:
		return p.Detail
	}
}

// sharedFetchTimeout bounds a collapsed upstream call, which outlives the
// request that started it
const sharedFetchTimeout = 30 * time.Second

// CachedFetcher serves successful envelopes from a cache and collapses
// concurrent identical upstream calls. Failures are never cached, and cache
// errors never fail a fetch.
type CachedFetcher struct {
	next   Fetcher
	cache  cache.Cache
	policy TTLPolicy
	group  singleflight.Group
}

// NewCachedFetcher wraps next with the given cache
func NewCachedFetcher(next Fetcher, c cache.Cache, policy TTLPolicy) *CachedFetcher {
	return &CachedFetcher{next: next, cache: c, policy: policy}
}

// CacheKey is the cache key for an endpoint and its query parameters.
// url.Values.Encode sorts by key, so parameter order does not matter.
func CacheKey(endpoint string, params url.Values) string {
	key := "catalog:" + endpoint
	if len(params) > 0 {
		key += "?" + params.Encode()
	}
	return key
}

// Fetch implements Fetcher
func (f *CachedFetcher) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	key := CacheKey(endpoint, params)

	cached, err := f.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Response cache read failed", "key", key, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	// The call is shared by every waiter on key, so it must not inherit the
	// cancellation of whichever caller happened to start it.
	ch := f.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		body, err := f.next.Fetch(shared, endpoint, params)
		if err != nil {
			return nil, err
		}
		if _, err := Envelope(endpoint, body); err == nil {
			if err := f.cache.Set(shared, key, body, f.policy.For(endpoint)); err != nil {
				slog.Warn("Response cache write failed", "key", key, "error", err)
			}
		}
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
