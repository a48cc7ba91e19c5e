// Package handlers wires the HTTP surface: server-rendered pages, the raw
// catalog proxy, live session endpoints and operational routes.
package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"melodeck/internal/monitoring"
)

// RequestIDHeader carries the per-request id in both directions
const RequestIDHeader = "X-Request-ID"

// Handlers groups everything the router mounts. Admin is optional.
type Handlers struct {
	Pages *PageHandler
	API   *APIHandler
	Live  *LiveHandler
	Admin *AdminHandler
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), monitoring.Middleware(), RequestLogger())

	router.GET("/", h.Pages.Home)
	router.GET("/search", h.Pages.Search)
	router.GET("/album/:id", h.Pages.Album)
	router.GET("/artist/:id", h.Pages.Artist)
	router.GET("/playlist/:id", h.Pages.Playlist)
	router.GET("/healthz", h.Pages.Health)
	router.NoRoute(h.Pages.NotFound)

	api := router.Group("/api")
	{
		api.GET("/search/:category", h.API.Search)
		api.GET("/songs/:id", h.API.Song)
		api.GET("/albums/:id", h.API.Album)
		api.GET("/artists/:id", h.API.Artist)
		api.GET("/playlists/:id", h.API.Playlist)
		api.GET("/modules", h.API.Modules)
		api.GET("/trending", h.API.Trending)
		api.GET("/charts", h.API.Charts)
		api.GET("/lyrics/:id", h.API.Lyrics)
	}

	if h.Admin != nil {
		router.GET("/api/admin/cache-stats", h.Admin.GetCacheStats)
		router.GET("/admin/cache-stats", h.Admin.GetCacheStatsPage)
	}

	live := router.Group("/live/:sid", h.Live.LoadSession)
	{
		live.GET("/events", h.Live.Events)
		live.POST("/search/input", h.Live.SearchInput)
		live.POST("/search/filter", h.Live.SearchFilter)
		live.POST("/search/clear", h.Live.SearchClear)
		live.POST("/search/category", h.Live.SearchCategory)
		live.POST("/play/:id", h.Live.Play)
		live.POST("/playback", h.Live.Playback)
		live.POST("/toggle", h.Live.Toggle)
		live.POST("/close", h.Live.Close)
	}

	return router
}

// RequestID reuses the caller's X-Request-ID or assigns a new one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request. The SSE stream is logged when it closes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "Request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		)
	}
}
