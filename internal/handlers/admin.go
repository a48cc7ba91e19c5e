package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"melodeck/internal/cache"
	"melodeck/internal/session"
	"melodeck/internal/templates"
)

// hottestKeys is how many keys the stats list
const hottestKeys = 10

// AdminHandler exposes cache and session statistics
type AdminHandler struct {
	layers   *cache.Layered
	memory   *cache.MemoryCache
	mongo    *cache.MongoCache // nil when MongoDB is not configured
	sessions *session.Manager
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(layers *cache.Layered, memory *cache.MemoryCache, mongo *cache.MongoCache, sessions *session.Manager) *AdminHandler {
	return &AdminHandler{
		layers:   layers,
		memory:   memory,
		mongo:    mongo,
		sessions: sessions,
	}
}

// CacheStats is the admin view of the response cache
type CacheStats struct {
	Layers        map[string]string `json:"layers"`
	MemoryEntries int               `json:"memory_entries"`
	Sessions      int               `json:"sessions"`
	Mongo         *cache.Stats      `json:"mongo,omitempty"`
	MongoError    string            `json:"mongo_error,omitempty"`
	CollectedAt   time.Time         `json:"collected_at"`
}

// GetCacheStats handles GET /api/admin/cache-stats
func (h *AdminHandler) GetCacheStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, h.collectCacheStats(ctx))
}

// GetCacheStatsPage handles GET /admin/cache-stats (HTML page)
func (h *AdminHandler) GetCacheStatsPage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var buf bytes.Buffer
	err := templates.RenderPage(&buf, "admin", gin.H{"Stats": h.collectCacheStats(ctx)})
	if err != nil {
		slog.Error("Failed to render cache stats page", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Render error"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// collectCacheStats gathers what each layer can report. A failing layer
// shows up in the result rather than failing the request.
func (h *AdminHandler) collectCacheStats(ctx context.Context) *CacheStats {
	stats := &CacheStats{
		Layers:      h.layers.HealthByLayer(ctx),
		Sessions:    h.sessions.Len(),
		CollectedAt: time.Now(),
	}
	if h.memory != nil {
		stats.MemoryEntries = h.memory.Len()
	}

	if h.mongo != nil {
		mongoStats, err := h.mongo.Stats(ctx, hottestKeys)
		if err != nil {
			slog.Warn("Failed to collect MongoDB cache stats", "error", err)
			stats.MongoError = err.Error()
		} else {
			stats.Mongo = mongoStats
		}
	}
	return stats
}
