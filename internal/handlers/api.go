package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"melodeck/internal/catalog"
	"melodeck/internal/models"
	"melodeck/internal/monitoring"
)

// Paging defaults for category searches
const (
	DefaultSearchPage  = "1"
	DefaultSearchLimit = "20"
)

// APIHandler re-exposes the catalog endpoints under /api. Successful
// upstream bodies are passed through unchanged.
type APIHandler struct {
	fetcher catalog.Fetcher
}

// NewAPIHandler creates a proxy over the given fetcher
func NewAPIHandler(fetcher catalog.Fetcher) *APIHandler {
	return &APIHandler{fetcher: fetcher}
}

func (h *APIHandler) proxy(c *gin.Context, endpoint string, params url.Values) {
	body, err := h.fetcher.Fetch(c.Request.Context(), endpoint, params)
	if err != nil {
		slog.Warn("Catalog proxy request failed", "endpoint", endpoint, "error", err)

		var apiErr *catalog.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError {
			monitoring.CaptureException(c, err)
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Search handles GET /api/search/:category. "all" requires a query; the
// category endpoints pass query, page and limit through.
func (h *APIHandler) Search(c *gin.Context) {
	filter, ok := models.ParseFilter(c.Param("category"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Unknown search category"})
		return
	}

	query := c.Query("query")
	if filter == models.FilterAll {
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
			return
		}
		h.proxy(c, catalog.EndpointSearchAll, url.Values{"query": {query}})
		return
	}

	h.proxy(c, catalog.SearchEndpoint(filter), url.Values{
		"query": {query},
		"page":  {c.DefaultQuery("page", DefaultSearchPage)},
		"limit": {c.DefaultQuery("limit", DefaultSearchLimit)},
	})
}

// Song handles GET /api/songs/:id
func (h *APIHandler) Song(c *gin.Context) {
	h.proxy(c, catalog.DetailEndpoint(models.ItemTypeSong, c.Param("id")), nil)
}

// Album handles GET /api/albums/:id
func (h *APIHandler) Album(c *gin.Context) {
	h.proxy(c, catalog.DetailEndpoint(models.ItemTypeAlbum, c.Param("id")), nil)
}

// Artist handles GET /api/artists/:id
func (h *APIHandler) Artist(c *gin.Context) {
	h.proxy(c, catalog.DetailEndpoint(models.ItemTypeArtist, c.Param("id")), nil)
}

// Playlist handles GET /api/playlists/:id
func (h *APIHandler) Playlist(c *gin.Context) {
	h.proxy(c, catalog.DetailEndpoint(models.ItemTypePlaylist, c.Param("id")), nil)
}

// Modules handles GET /api/modules
func (h *APIHandler) Modules(c *gin.Context) {
	h.proxy(c, catalog.EndpointModules, nil)
}

// Trending handles GET /api/trending
func (h *APIHandler) Trending(c *gin.Context) {
	h.proxy(c, catalog.EndpointTrending, nil)
}

// Charts handles GET /api/charts
func (h *APIHandler) Charts(c *gin.Context) {
	h.proxy(c, catalog.EndpointCharts, nil)
}

// Lyrics handles GET /api/lyrics/:id
func (h *APIHandler) Lyrics(c *gin.Context) {
	h.proxy(c, catalog.LyricsEndpoint(c.Param("id")), nil)
}
