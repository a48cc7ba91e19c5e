// Package search drives the search box, filter tabs and result area of a page.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"melodeck/internal/catalog"
	"melodeck/internal/clock"
	"melodeck/internal/models"
	"melodeck/internal/render"
	"melodeck/internal/ui"
)

// DefaultDelay is the quiet period before typed input is searched
const DefaultDelay = 500 * time.Millisecond

// Searcher runs a catalog search. FilterAll must hit the aggregate endpoint.
type Searcher interface {
	Search(ctx context.Context, filter models.Filter, query string) (gjson.Result, error)
}

// Options tunes a Controller
type Options struct {
	Delay     time.Duration
	Scheduler clock.Scheduler
}

// group is one subsection of an aggregate search
type group struct {
	title string
	field string
	hint  models.ItemType
}

var allGroups = []group{
	{"Top Songs", "songs", models.ItemTypeSong},
	{"Albums", "albums", models.ItemTypeAlbum},
	{"Artists", "artists", models.ItemTypeArtist},
	{"Playlists", "playlists", models.ItemTypePlaylist},
}

// Controller owns one page's search state.
//
// Requests are tagged with a sequence number when issued. A response renders
// only if its tag is still the latest and the query and filter it was issued
// for are still current; anything else is dropped.
type Controller struct {
	ctx      context.Context
	searcher Searcher
	renderer *render.Renderer
	surface  ui.Surface
	debounce *Debouncer

	mu           sync.Mutex
	state        models.SearchState
	pendingQuery string
	edits        uint64 // bumped by every input, clear and category pick
	seq          uint64 // tag of the latest issued request
	closed       bool
	inflight     sync.WaitGroup

	// orders client events that may arrive out of order
	eventMu   sync.Mutex
	lastEvent uint64
}

// NewController creates a controller with the "all" filter active
func NewController(ctx context.Context, searcher Searcher, renderer *render.Renderer, surface ui.Surface, opts Options) *Controller {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Controller{
		ctx:      ctx,
		searcher: searcher,
		renderer: renderer,
		surface:  surface,
		debounce: NewDebouncer(opts.Scheduler, delay),
		state:    models.SearchState{ActiveFilter: models.FilterAll},
	}
}

// State returns a snapshot of the search state
func (c *Controller) State() models.SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ShowBrowse renders the initial view: browse categories, "all" tab, no clear button
func (c *Controller) ShowBrowse() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surface.Apply(ui.Patch{Kind: ui.PatchTab, Target: ui.FilterTabs, Value: string(c.state.ActiveFilter)})
	ui.SetVisible(c.surface, ui.ClearSearch, false)
	c.renderer.RenderBrowse(c.surface, ui.SearchResults)
}

// InOrder runs apply for a client event numbered seq unless an event with an
// equal or higher number was already applied, and reports whether it ran.
// A zero seq is unnumbered and always runs.
func (c *Controller) InOrder(seq uint64, apply func()) bool {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()
	if seq != 0 {
		if seq <= c.lastEvent {
			slog.Debug("Dropped stale search event", "seq", seq, "last", c.lastEvent)
			return false
		}
		c.lastEvent = seq
	}
	apply()
	return true
}

// Input handles a keystroke in the search box. A non-empty query is searched
// after the debounce delay; an empty one cancels and shows the browse view.
func (c *Controller) Input(raw string) {
	query := strings.TrimSpace(raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.debounce.Cancel()
	c.edits++

	if query == "" {
		c.resetLocked()
		return
	}

	ui.SetVisible(c.surface, ui.ClearSearch, true)
	c.pendingQuery = query
	edit := c.edits
	c.debounce.Trigger(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// a later edit may have landed after the timer fired
		if c.closed || c.edits != edit {
			return
		}
		c.pendingQuery = ""
		c.startLocked(query)
	})
}

// SelectFilter switches the active tab. With a pending or active query it
// searches again at once under the new filter.
func (c *Controller) SelectFilter(filter models.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.state.ActiveFilter = filter
	c.surface.Apply(ui.Patch{Kind: ui.PatchTab, Target: ui.FilterTabs, Value: string(filter)})

	query := c.state.LastQuery
	if c.debounce.Cancel() && c.pendingQuery != "" {
		query = c.pendingQuery
	}
	c.pendingQuery = ""
	if query != "" {
		c.startLocked(query)
	}
}

// Clear empties the search box and shows the browse view
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.debounce.Cancel()
	c.edits++
	ui.SetValue(c.surface, ui.SearchInput, "")
	c.resetLocked()
}

// SelectCategory fills the search box with a category label and searches it at once
func (c *Controller) SelectCategory(label string) {
	query := strings.TrimSpace(label)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || query == "" {
		return
	}

	c.debounce.Cancel()
	c.edits++
	c.pendingQuery = ""
	ui.SetValue(c.surface, ui.SearchInput, query)
	ui.SetVisible(c.surface, ui.ClearSearch, true)
	c.startLocked(query)
}

// Wait blocks until every issued request has been handled
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close cancels any pending search and ignores later responses
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.debounce.Cancel()
	c.mu.Unlock()
}

// resetLocked forgets the query, invalidates in-flight requests and shows browse
func (c *Controller) resetLocked() {
	c.pendingQuery = ""
	c.state.LastQuery = ""
	c.seq++
	ui.SetVisible(c.surface, ui.ClearSearch, false)
	c.renderer.RenderBrowse(c.surface, ui.SearchResults)
}

// startLocked issues a request for query under the active filter
func (c *Controller) startLocked(query string) {
	c.seq++
	tag := c.seq
	filter := c.state.ActiveFilter
	c.state.LastQuery = query

	c.renderer.RenderLoading(c.surface, ui.SearchResults, render.MsgSearching)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		data, err := c.searcher.Search(c.ctx, filter, query)
		c.deliver(tag, filter, query, data, err)
	}()
}

func (c *Controller) deliver(tag uint64, filter models.Filter, query string, data gjson.Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || tag != c.seq || query != c.state.LastQuery || filter != c.state.ActiveFilter {
		slog.Debug("Dropping stale search response", "query", query, "filter", filter)
		return
	}

	if err != nil {
		slog.Warn("Search failed", "query", query, "filter", filter, "error", err)
		c.renderer.RenderError(c.surface, ui.SearchResults, render.MsgLoadFailed)
		return
	}

	c.renderer.RenderSections(c.surface, ui.SearchResults, sectionsFor(filter, data), render.MsgNoResults)
}

// sectionsFor groups an aggregate response, or wraps a category response
// in a single "Results" section
func sectionsFor(filter models.Filter, data gjson.Result) []render.Section {
	if filter == models.FilterAll {
		sections := make([]render.Section, 0, len(allGroups))
		for _, g := range allGroups {
			sections = append(sections, render.Section{
				Title: g.title,
				Items: catalog.GroupResults(data, g.field),
				Hint:  g.hint,
			})
		}
		return sections
	}
	return []render.Section{{Title: "Results", Items: catalog.Results(data), Hint: filter.ItemType()}}
}
