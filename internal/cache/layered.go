package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Layer is a named cache tier
type Layer struct {
	Name  string
	Cache Cache
	// MaxTTL caps the expiration written to this layer; zero means uncapped
	MaxTTL time.Duration
}

// TTLReader is implemented by layers that can report how long a key has left.
// Zero means the key never expires or the layer does not know.
type TTLReader interface {
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Layered checks layers fastest first and backfills faster layers on a hit.
// A failing layer is logged and skipped, never surfaced from Get.
type Layered struct {
	layers      []Layer
	backfillTTL time.Duration
}

// NewLayered builds a layered cache. backfillTTL is the longest expiration used
// when copying a hit from a slower layer into faster ones; the copy never
// outlives the entry it came from.
func NewLayered(backfillTTL time.Duration, layers ...Layer) *Layered {
	return &Layered{layers: layers, backfillTTL: backfillTTL}
}

// Names lists the layer names in lookup order
func (l *Layered) Names() []string {
	names := make([]string, len(l.layers))
	for i, layer := range l.layers {
		names[i] = layer.Name
	}
	return names
}

func (l *Layered) ttlFor(layer Layer, expiration time.Duration) time.Duration {
	if layer.MaxTTL > 0 && (expiration <= 0 || expiration > layer.MaxTTL) {
		return layer.MaxTTL
	}
	return expiration
}

// Get returns the first hit, or (nil, nil) when every layer misses
func (l *Layered) Get(ctx context.Context, key string) ([]byte, error) {
	for i, layer := range l.layers {
		data, err := layer.Cache.Get(ctx, key)
		if err != nil {
			slog.Warn("Cache layer read failed", "layer", layer.Name, "key", key, "error", err)
			continue
		}
		if data == nil {
			continue
		}

		slog.Debug("Cache hit", "layer", layer.Name, "key", key)
		if i == 0 {
			return data, nil
		}
		ttl := l.remaining(ctx, layer, key)
		for _, faster := range l.layers[:i] {
			if err := faster.Cache.Set(ctx, key, data, l.ttlFor(faster, ttl)); err != nil {
				slog.Warn("Cache backfill failed", "layer", faster.Name, "key", key, "error", err)
			}
		}
		return data, nil
	}
	return nil, nil
}

// remaining is the backfill expiration for a hit in layer: backfillTTL, cut
// down to what the source entry has left when the layer can tell
func (l *Layered) remaining(ctx context.Context, layer Layer, key string) time.Duration {
	reader, ok := layer.Cache.(TTLReader)
	if !ok {
		return l.backfillTTL
	}
	left, err := reader.TTL(ctx, key)
	if err != nil {
		slog.Warn("Cache TTL lookup failed", "layer", layer.Name, "key", key, "error", err)
		return l.backfillTTL
	}
	if left > 0 && (l.backfillTTL <= 0 || left < l.backfillTTL) {
		return left
	}
	return l.backfillTTL
}

// Set writes to every layer and joins any failures
func (l *Layered) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	var errs []error
	for _, layer := range l.layers {
		if err := layer.Cache.Set(ctx, key, value, l.ttlFor(layer, expiration)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete removes the key from every layer
func (l *Layered) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, layer := range l.layers {
		if err := layer.Cache.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Exists reports whether any layer holds the key
func (l *Layered) Exists(ctx context.Context, key string) (bool, error) {
	var errs []error
	for _, layer := range l.layers {
		ok, err := layer.Cache.Exists(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// Close closes every layer
func (l *Layered) Close() error {
	var errs []error
	for _, layer := range l.layers {
		if err := layer.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s cache: %w", layer.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Health checks every layer
func (l *Layered) Health(ctx context.Context) error {
	var errs []error
	for _, layer := range l.layers {
		if err := layer.Cache.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", layer.Name, err))
		}
	}
	return errors.Join(errs...)
}

// HealthByLayer reports each layer's status as "ok" or the error text
func (l *Layered) HealthByLayer(ctx context.Context) map[string]string {
	status := make(map[string]string, len(l.layers))
	for _, layer := range l.layers {
		if err := layer.Cache.Health(ctx); err != nil {
			status[layer.Name] = err.Error()
		} else {
			status[layer.Name] = "ok"
		}
	}
	return status
}
