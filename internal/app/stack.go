// Package app assembles the catalog stack shared by the server and the
// cache warmer: cache layers, the authenticated client and the cached catalog.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"melodeck/internal/cache"
	"melodeck/internal/catalog"
	"melodeck/internal/config"
	"melodeck/internal/models"
)

// Cache key prefix in Valkey
const valkeyPrefix = "melodeck:"

// Stack is the assembled catalog stack
type Stack struct {
	Memory   *cache.MemoryCache
	Mongo    *cache.MongoCache // nil without MONGODB_URL
	Database *models.Database  // nil without MONGODB_URL
	Layers   *cache.Layered
	Client   *catalog.Client
	Fetcher  catalog.Fetcher // Client behind the response cache
	Catalog  *catalog.Catalog
}

// NewStack builds the stack from configuration. Remote cache layers that
// cannot be reached are skipped with a warning; the catalog still works.
func NewStack(ctx context.Context, cfg *config.Config) (*Stack, error) {
	s := &Stack{Memory: cache.NewMemoryCache(cfg.L1CacheItems)}
	layers := []cache.Layer{{Name: "memory", Cache: s.Memory, MaxTTL: 15 * time.Minute}}

	if cfg.ValkeyURL != "" {
		valkey, err := cache.NewValkeyCache(ctx, cfg.ValkeyURL, valkeyPrefix)
		if err != nil {
			slog.Warn("Valkey unavailable, continuing without it", "error", err)
		} else {
			layers = append(layers, cache.Layer{Name: "valkey", Cache: valkey})
		}
	}

	if cfg.MongodbURL != "" {
		db, err := models.NewDatabase(ctx, cfg.MongodbURL, cfg.MongodbDatabase)
		if err != nil {
			slog.Warn("MongoDB unavailable, continuing without it", "error", err)
		} else {
			mongo, err := cache.NewMongoCache(ctx, db.Collection(cache.ResponseCacheCollection))
			if err != nil {
				_ = db.Close(ctx)
				slog.Warn("Failed to prepare MongoDB cache collection", "error", err)
			} else {
				s.Database, s.Mongo = db, mongo
				layers = append(layers, cache.Layer{Name: "mongodb", Cache: mongo})
			}
		}
	}
	s.Layers = cache.NewLayered(5*time.Minute, layers...)

	auth, err := catalog.NewAuthenticator(cfg.Catalog())
	if err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("failed to configure catalog auth: %w", err)
	}
	s.Client = catalog.NewClient(cfg.Catalog(), auth)
	s.Fetcher = catalog.NewCachedFetcher(s.Client, s.Layers, catalog.DefaultTTLPolicy())
	s.Catalog = catalog.New(s.Fetcher)

	slog.Info("Catalog stack ready",
		"api_url", cfg.Catalog().APIURL,
		"auth_method", cfg.Catalog().AuthMethod,
		"cache_layers", s.Layers.Names(),
	)
	return s, nil
}

// Close releases the cache layers and the database connection
func (s *Stack) Close(ctx context.Context) {
	if s.Layers != nil {
		if err := s.Layers.Close(); err != nil {
			slog.Warn("Failed to close cache layers", "error", err)
		}
	}
	if s.Database != nil {
		if err := s.Database.Close(ctx); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}
}
