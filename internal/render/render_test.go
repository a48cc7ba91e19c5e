package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"melodeck/internal/config"
	"melodeck/internal/models"
	"melodeck/internal/normalize"
	"melodeck/internal/testutil"
	"melodeck/internal/ui"
)

func newTestRenderer() *Renderer {
	return NewRenderer(normalize.New(normalize.DefaultPlaceholderImage), 6, config.DefaultUIConfig().BrowseCategories)
}

func parseItems(t *testing.T, raw string) []gjson.Result {
	t.Helper()
	require.True(t, gjson.Valid(raw), "fixture must be valid JSON")
	return gjson.Parse(raw).Array()
}

func TestRenderCards(t *testing.T) {
	r := newTestRenderer()
	surface := testutil.NewRecordingSurface()

	items := parseItems(t, `[
		{"id":"a1","type":"album","name":"Album &amp; One","image":[{"url":"https://img/1.jpg"}]},
		{"id":"s1","type":"song","name":"Song One","primaryArtists":"Singer"}
	]`)

	n := r.RenderCards(surface, ui.TrendingGrid, items, models.ItemTypeSong, MsgNoItems)
	assert.Equal(t, 2, n)

	html := surface.HTML(ui.TrendingGrid)
	assert.Contains(t, html, `href="/album/a1"`)
	assert.Contains(t, html, `Album &amp; One`)
	assert.Contains(t, html, `data-play="s1"`)
	assert.Contains(t, html, `class="play-button"`)
	assert.Equal(t, 1, strings.Count(html, "<a "), "songs are not links")
}

func TestRenderCards_Empty(t *testing.T) {
	r := newTestRenderer()
	surface := testutil.NewRecordingSurface()

	n := r.RenderCards(surface, ui.ChartsGrid, nil, models.ItemTypePlaylist, MsgNoItems)
	assert.Zero(t, n)

	html := surface.HTML(ui.ChartsGrid)
	assert.Contains(t, html, "state-empty")
	assert.Contains(t, html, MsgNoItems)
}

func TestRenderStates_AreDistinct(t *testing.T) {
	r := newTestRenderer()
	surface := testutil.NewRecordingSurface()

	r.RenderLoading(surface, ui.SearchResults, MsgSearching)
	loading := surface.HTML(ui.SearchResults)
	r.RenderError(surface, ui.SearchResults, MsgLoadFailed)
	failed := surface.HTML(ui.SearchResults)
	r.RenderEmpty(surface, ui.SearchResults, MsgNoResults)
	empty := surface.HTML(ui.SearchResults)

	assert.Contains(t, loading, "state-loading")
	assert.Contains(t, failed, "state-error")
	assert.Contains(t, failed, MsgLoadFailed)
	assert.Contains(t, empty, "state-empty")
	assert.NotEqual(t, failed, empty)
	assert.Len(t, surface.For(ui.SearchResults), 3, "each render replaces the container")
}

func TestRenderSections_SkipsEmptyAndCaps(t *testing.T) {
	r := newTestRenderer()
	surface := testutil.NewRecordingSurface()

	items := gjson.Parse(testutil.Envelope(testutil.Albums(9))).Get("data").Array()

	ok := r.RenderSections(surface, ui.SearchResults, []Section{
		{Title: "Top Songs", Hint: models.ItemTypeSong},
		{Title: "Albums", Items: items, Hint: models.ItemTypeAlbum},
	}, MsgNoResults)
	require.True(t, ok)

	html := surface.HTML(ui.SearchResults)
	assert.Contains(t, html, "Albums")
	assert.NotContains(t, html, "Top Songs")
	assert.Equal(t, 6, strings.Count(html, `class="card card-album"`))
	assert.Contains(t, html, `href="/album/album-5"`)
	assert.NotContains(t, html, `href="/album/album-6"`)
}

func TestRenderSections_AllEmpty(t *testing.T) {
	r := newTestRenderer()
	surface := testutil.NewRecordingSurface()

	ok := r.RenderSections(surface, ui.SearchResults, []Section{{Title: "Results"}}, MsgNoResults)
	assert.False(t, ok)
	assert.Contains(t, surface.HTML(ui.SearchResults), MsgNoResults)
}

func TestRenderBrowse(t *testing.T) {
	r := newTestRenderer()
	surface := testutil.NewRecordingSurface()

	r.RenderBrowse(surface, ui.SearchResults)
	html := surface.HTML(ui.SearchResults)

	assert.Contains(t, html, "Browse All")
	assert.Contains(t, html, `data-category="Hip Hop"`)
	assert.Contains(t, html, "fa-headphones")
	assert.Equal(t, 6, strings.Count(html, `class="category-card"`))
}

func TestIcons(t *testing.T) {
	r := newTestRenderer()
	assert.Contains(t, string(r.PlayIcon()), "fa-play")
	assert.Contains(t, string(r.PauseIcon()), "fa-pause")
}
