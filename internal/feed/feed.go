// Package feed loads the three home page sections.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"melodeck/internal/config"
	"melodeck/internal/models"
	"melodeck/internal/render"
	"melodeck/internal/ui"
)

// Source provides the raw feed payloads (the envelope's data member)
type Source interface {
	Modules(ctx context.Context) (gjson.Result, error)
	Trending(ctx context.Context) (gjson.Result, error)
	Charts(ctx context.Context) (gjson.Result, error)
}

// Loader populates the trending, charts and recommended containers. Each
// section renders as soon as its own data arrives and fails on its own.
type Loader struct {
	source   Source
	renderer *render.Renderer
	mode     config.FeedSource
	size     int
}

// NewLoader creates a loader showing up to size cards per section
func NewLoader(source Source, renderer *render.Renderer, mode config.FeedSource, size int) *Loader {
	if size <= 0 {
		size = 6
	}
	if mode == "" {
		mode = config.FeedSourceModules
	}
	return &Loader{source: source, renderer: renderer, mode: mode, size: size}
}

type section struct {
	target string
	load   func(ctx context.Context) ([]gjson.Result, models.ItemType, error)
}

// pick selects a section's records from a payload, with the type assumed
// for records that do not declare one
type pick func(data gjson.Result) ([]gjson.Result, models.ItemType)

// Load shows a loading state in every container, then fills each one
// independently. It returns once all three have rendered.
func (l *Loader) Load(ctx context.Context, s ui.Surface) {
	sections := l.sections(ctx)

	for _, sec := range sections {
		l.renderer.RenderLoading(s, sec.target, render.MsgLoading)
	}

	var g errgroup.Group
	for _, sec := range sections {
		g.Go(func() error {
			items, hint, err := sec.load(ctx)
			if err != nil {
				slog.Warn("Failed to load home section", "section", sec.target, "error", err)
				l.renderer.RenderError(s, sec.target, render.MsgLoadFailed)
				return nil
			}
			l.renderer.RenderCards(s, sec.target, items, hint, render.MsgNoItems)
			return nil
		})
	}
	_ = g.Wait()
}

func (l *Loader) sections(ctx context.Context) []section {
	// one /modules call per page load, shared by whichever sections need it
	modules := sync.OnceValues(func() (gjson.Result, error) {
		return l.source.Modules(ctx)
	})
	from := func(fetch func() (gjson.Result, error), p pick) func(context.Context) ([]gjson.Result, models.ItemType, error) {
		return func(context.Context) ([]gjson.Result, models.ItemType, error) {
			data, err := fetch()
			if err != nil {
				return nil, "", err
			}
			items, hint := p(data)
			return items, hint, nil
		}
	}

	if l.mode == config.FeedSourceEndpoints {
		trending := func() (gjson.Result, error) { return l.source.Trending(ctx) }
		charts := func() (gjson.Result, error) { return l.source.Charts(ctx) }
		return []section{
			{target: ui.TrendingGrid, load: from(trending, func(data gjson.Result) ([]gjson.Result, models.ItemType) {
				return firstN(listOf(data, "songs", "results"), l.size), models.ItemTypeSong
			})},
			{target: ui.ChartsGrid, load: from(charts, func(data gjson.Result) ([]gjson.Result, models.ItemType) {
				return firstN(listOf(data, "charts", "playlists", "results"), l.size), models.ItemTypePlaylist
			})},
			{target: ui.RecommendedGrid, load: from(modules, func(data gjson.Result) ([]gjson.Result, models.ItemType) {
				if albums := data.Get("albums").Array(); len(albums) > 0 {
					return firstN(albums, l.size), models.ItemTypeAlbum
				}
				return firstN(data.Get("playlists").Array(), l.size), models.ItemTypePlaylist
			})},
		}
	}

	return []section{
		{target: ui.TrendingGrid, load: from(modules, l.pickTrending)},
		{target: ui.ChartsGrid, load: from(modules, l.pickCharts)},
		{target: ui.RecommendedGrid, load: from(modules, l.pickRecommended)},
	}
}

// pickTrending prefers a trending field, else the first albums
func (l *Loader) pickTrending(data gjson.Result) ([]gjson.Result, models.ItemType) {
	if trending := data.Get("trending"); trending.Exists() {
		if items := listOf(trending, "songs", "albums", "playlists", "results", "data"); len(items) > 0 {
			return firstN(items, l.size), models.DefaultItemType
		}
	}
	return firstN(data.Get("albums").Array(), l.size), models.ItemTypeAlbum
}

// pickCharts prefers a charts field, else the first playlists
func (l *Loader) pickCharts(data gjson.Result) ([]gjson.Result, models.ItemType) {
	if charts := listOf(data.Get("charts"), "results", "data"); len(charts) > 0 {
		return firstN(charts, l.size), models.ItemTypePlaylist
	}
	return firstN(data.Get("playlists").Array(), l.size), models.ItemTypePlaylist
}

// pickRecommended takes the slice after the first section's worth of
// playlists, else of albums, skipping anything already shown above
func (l *Loader) pickRecommended(data gjson.Result) ([]gjson.Result, models.ItemType) {
	trending, _ := l.pickTrending(data)
	charts, _ := l.pickCharts(data)
	seen := make(map[string]bool)
	for _, shown := range [][]gjson.Result{trending, charts} {
		for _, item := range shown {
			if id := item.Get("id").String(); id != "" {
				seen[id] = true
			}
		}
	}

	for _, field := range []struct {
		name string
		hint models.ItemType
	}{{"playlists", models.ItemTypePlaylist}, {"albums", models.ItemTypeAlbum}} {
		list := data.Get(field.name).Array()
		if len(list) <= l.size {
			continue
		}
		candidates := firstN(list[l.size:], l.size)
		picked := make([]gjson.Result, 0, len(candidates))
		for _, item := range candidates {
			if id := item.Get("id").String(); id != "" && seen[id] {
				continue
			}
			picked = append(picked, item)
		}
		if len(picked) > 0 {
			return picked, field.hint
		}
	}
	return nil, models.ItemTypePlaylist
}

// listOf returns v itself when it is an array, otherwise the concatenation
// of the array members named by keys
func listOf(v gjson.Result, keys ...string) []gjson.Result {
	if v.IsArray() {
		return v.Array()
	}
	if !v.IsObject() {
		return nil
	}
	var out []gjson.Result
	for _, key := range keys {
		if member := v.Get(key); member.IsArray() {
			out = append(out, member.Array()...)
		}
	}
	return out
}

func firstN(items []gjson.Result, n int) []gjson.Result {
	if len(items) > n {
		return items[:n]
	}
	return items
}
