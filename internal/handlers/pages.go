package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"melodeck/internal/catalog"
	"melodeck/internal/models"
	"melodeck/internal/render"
	"melodeck/internal/session"
	"melodeck/internal/templates"
)

// DetailSource loads album, artist and playlist records
type DetailSource interface {
	Detail(ctx context.Context, itemType models.ItemType, id string) (gjson.Result, error)
}

// HealthReporter reports the state of each cache layer
type HealthReporter interface {
	HealthByLayer(ctx context.Context) map[string]string
}

// PageHandler renders the HTML pages. Each render opens a live session
// the page script connects to.
type PageHandler struct {
	details  DetailSource
	renderer *render.Renderer
	sessions *session.Manager
	health   HealthReporter
}

// NewPageHandler creates a page handler; health may be nil
func NewPageHandler(details DetailSource, renderer *render.Renderer, sessions *session.Manager, health HealthReporter) *PageHandler {
	return &PageHandler{
		details:  details,
		renderer: renderer,
		sessions: sessions,
		health:   health,
	}
}

type filterTab struct {
	Value  models.Filter
	Label  string
	Active bool
}

func filterTabs() []filterTab {
	labels := map[models.Filter]string{
		models.FilterAll:       "All",
		models.FilterSongs:     "Songs",
		models.FilterAlbums:    "Albums",
		models.FilterArtists:   "Artists",
		models.FilterPlaylists: "Playlists",
	}
	tabs := make([]filterTab, 0, len(models.Filters))
	for _, f := range models.Filters {
		tabs = append(tabs, filterTab{Value: f, Label: labels[f], Active: f == models.FilterAll})
	}
	return tabs
}

// pageView is the data every page template receives
type pageView struct {
	Title     string
	Page      session.Kind
	SessionID string
	Loading   template.HTML
	PlayIcon  template.HTML

	// search
	Filters []filterTab
	Browse  template.HTML

	// detail
	Header     *models.NormalizedCard
	ListTitle  string
	Songs      template.HTML
	DetailType models.ItemType
}

// newView opens a live session for the page
func (h *PageHandler) newView(title string, kind session.Kind) pageView {
	s := h.sessions.Create(kind)
	return pageView{
		Title:     title,
		Page:      kind,
		SessionID: s.ID,
		Loading:   h.renderer.State(render.StateLoading, render.MsgLoading),
		PlayIcon:  h.renderer.PlayIcon(),
	}
}

func (h *PageHandler) renderPage(c *gin.Context, status int, name string, view pageView) {
	var buf bytes.Buffer
	if err := templates.RenderPage(&buf, name, view); err != nil {
		slog.Error("Failed to render page", "page", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Render error"})
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// Home handles GET /
func (h *PageHandler) Home(c *gin.Context) {
	h.renderPage(c, http.StatusOK, "home", h.newView("Home", session.KindHome))
}

// NotFound serves the home markup with a 404 status. No session is opened,
// so nothing is loaded from upstream for unknown paths.
func (h *PageHandler) NotFound(c *gin.Context) {
	h.renderPage(c, http.StatusNotFound, "home", pageView{
		Title:    "Home",
		Page:     session.KindHome,
		Loading:  h.renderer.State(render.StateEmpty, render.MsgNotFound),
		PlayIcon: h.renderer.PlayIcon(),
	})
}

// Search handles GET /search
func (h *PageHandler) Search(c *gin.Context) {
	view := h.newView("Search", session.KindSearch)
	view.Filters = filterTabs()
	view.Browse = h.renderer.BrowseHTML()
	h.renderPage(c, http.StatusOK, "search", view)
}

// Album handles GET /album/:id
func (h *PageHandler) Album(c *gin.Context) {
	h.detail(c, models.ItemTypeAlbum)
}

// Artist handles GET /artist/:id
func (h *PageHandler) Artist(c *gin.Context) {
	h.detail(c, models.ItemTypeArtist)
}

// Playlist handles GET /playlist/:id
func (h *PageHandler) Playlist(c *gin.Context) {
	h.detail(c, models.ItemTypePlaylist)
}

// detail renders a header card and the record's songs. Upstream failures
// still render the page, with the error state in place of the list.
func (h *PageHandler) detail(c *gin.Context, itemType models.ItemType) {
	id := c.Param("id")
	view := h.newView("", session.KindDetail)
	view.DetailType = itemType
	view.ListTitle = detailListTitle(itemType)

	data, err := h.details.Detail(c.Request.Context(), itemType, id)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, catalog.ErrNotFound) {
			status = http.StatusNotFound
		}
		slog.Warn("Failed to load detail page", "type", itemType, "id", id, "error", err)
		view.Title = "Unavailable"
		view.Songs = h.renderer.State(render.StateError, render.MsgLoadFailed)
		h.renderPage(c, status, "detail", view)
		return
	}

	normalizer := h.renderer.Normalizer()
	header := normalizer.Card(data, itemType)
	view.Header = &header
	view.Title = header.Title

	songs := detailSongs(data)
	if len(songs) == 0 {
		view.Songs = h.renderer.State(render.StateEmpty, render.MsgNoItems)
	} else {
		view.Songs = h.renderer.CardGrid(normalizer.Cards(songs, models.ItemTypeSong))
	}
	h.renderPage(c, http.StatusOK, "detail", view)
}

// detailSongs finds the track list of an album, playlist or artist record
func detailSongs(data gjson.Result) []gjson.Result {
	for _, key := range []string{"songs", "topSongs", "songs.results"} {
		if list := data.Get(key); list.IsArray() && len(list.Array()) > 0 {
			return list.Array()
		}
	}
	return nil
}

func detailListTitle(itemType models.ItemType) string {
	if itemType == models.ItemTypeArtist {
		return "Top Songs"
	}
	return "Songs"
}

// Health handles GET /healthz
func (h *PageHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	layers := map[string]string{}
	if h.health != nil {
		layers = h.health.HealthByLayer(ctx)
		for _, state := range layers {
			if state != "ok" {
				status = "degraded"
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"cache":    layers,
		"sessions": h.sessions.Len(),
	})
}
