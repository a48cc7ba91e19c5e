// Package render turns catalog records into HTML fragments and pushes them
// to a page surface.
package render

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/tidwall/gjson"

	"melodeck/internal/config"
	"melodeck/internal/models"
	"melodeck/internal/normalize"
	"melodeck/internal/templates"
	"melodeck/internal/ui"
)

// User-visible state messages
const (
	MsgLoading    = "Loading..."
	MsgSearching  = "Searching..."
	MsgLoadFailed = "Failed to load content. Please retry."
	MsgNoItems    = "No items found"
	MsgNoResults  = "No results found"
	MsgNotFound   = "Page not found"
)

// StateKind distinguishes the placeholder states of a container
type StateKind string

const (
	StateLoading StateKind = "loading"
	StateError   StateKind = "error"
	StateEmpty   StateKind = "empty"
)

var stateIcons = map[StateKind]string{
	StateLoading: "fa-spinner fa-spin",
	StateError:   "fa-exclamation-circle",
	StateEmpty:   "fa-music",
}

// Section is a titled group of raw records
type Section struct {
	Title string
	Items []gjson.Result
	Hint  models.ItemType
}

type sectionView struct {
	Title string
	Cards []models.NormalizedCard
}

type stateView struct {
	Kind    StateKind
	Icon    string
	Message string
}

// Renderer renders cards, sections and placeholders. It holds no per-page state.
type Renderer struct {
	normalizer *normalize.Normalizer
	perSection int
	categories []config.BrowseCategory
}

// NewRenderer creates a renderer capping each section at perSection cards
func NewRenderer(n *normalize.Normalizer, perSection int, categories []config.BrowseCategory) *Renderer {
	if perSection <= 0 {
		perSection = 6
	}
	return &Renderer{normalizer: n, perSection: perSection, categories: categories}
}

// Normalizer returns the normalizer used for cards
func (r *Renderer) Normalizer() *normalize.Normalizer {
	return r.normalizer
}

// PerSection is the card cap per section
func (r *Renderer) PerSection() int {
	return r.perSection
}

// Categories returns the browse categories
func (r *Renderer) Categories() []config.BrowseCategory {
	return r.categories
}

func (r *Renderer) execute(name string, data any, fallback string) template.HTML {
	tmpl, err := templates.GetTemplate(templates.FragmentsName)
	if err != nil {
		slog.Error("Failed to load fragment templates", "error", err)
		return template.HTML(template.HTMLEscapeString(fallback))
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Failed to render fragment", "template", name, "error", err)
		return template.HTML(template.HTMLEscapeString(fallback))
	}
	return template.HTML(buf.String())
}

// CardGrid renders normalized cards
func (r *Renderer) CardGrid(cards []models.NormalizedCard) template.HTML {
	return r.execute("card_grid", cards, "")
}

// State renders a loading, error or empty placeholder
func (r *Renderer) State(kind StateKind, message string) template.HTML {
	return r.execute("state", stateView{Kind: kind, Icon: stateIcons[kind], Message: message}, message)
}

// RenderCards replaces target with one card per item, or with the empty
// state when there are none. It returns the number of cards rendered.
func (r *Renderer) RenderCards(s ui.Surface, target string, items []gjson.Result, hint models.ItemType, emptyMsg string) int {
	if len(items) == 0 {
		r.RenderEmpty(s, target, emptyMsg)
		return 0
	}
	ui.Replace(s, target, r.CardGrid(r.normalizer.Cards(items, hint)))
	return len(items)
}

// RenderLoading replaces target with the loading state
func (r *Renderer) RenderLoading(s ui.Surface, target, message string) {
	ui.Replace(s, target, r.State(StateLoading, message))
}

// RenderError replaces target with the error state
func (r *Renderer) RenderError(s ui.Surface, target, message string) {
	ui.Replace(s, target, r.State(StateError, message))
}

// RenderEmpty replaces target with the empty state
func (r *Renderer) RenderEmpty(s ui.Surface, target, message string) {
	ui.Replace(s, target, r.State(StateEmpty, message))
}

// SectionsHTML renders the non-empty sections, each capped at PerSection.
// The second result is false when every section was empty.
func (r *Renderer) SectionsHTML(sections []Section) (template.HTML, bool) {
	views := make([]sectionView, 0, len(sections))
	for _, sec := range sections {
		if len(sec.Items) == 0 {
			continue
		}
		items := sec.Items
		if len(items) > r.perSection {
			items = items[:r.perSection]
		}
		views = append(views, sectionView{Title: sec.Title, Cards: r.normalizer.Cards(items, sec.Hint)})
	}
	if len(views) == 0 {
		return "", false
	}
	return r.execute("sections", views, ""), true
}

// RenderSections replaces target with the non-empty sections, or with the
// empty state when all are empty
func (r *Renderer) RenderSections(s ui.Surface, target string, sections []Section, emptyMsg string) bool {
	html, ok := r.SectionsHTML(sections)
	if !ok {
		r.RenderEmpty(s, target, emptyMsg)
		return false
	}
	ui.Replace(s, target, html)
	return true
}

// BrowseHTML renders the browse categories view
func (r *Renderer) BrowseHTML() template.HTML {
	return r.execute("browse", r.categories, "")
}

// RenderBrowse replaces target with the browse categories view
func (r *Renderer) RenderBrowse(s ui.Surface, target string) {
	ui.Replace(s, target, r.BrowseHTML())
}

// PlayIcon is the play button content when paused
func (r *Renderer) PlayIcon() template.HTML {
	return r.execute("play_icon", nil, "Play")
}

// PauseIcon is the play button content while playing
func (r *Renderer) PauseIcon() template.HTML {
	return r.execute("pause_icon", nil, "Pause")
}
