// Package ui describes the page elements the controllers write to and the
// patches they send them.
package ui

import "html/template"

// Element ids owned by the page templates
const (
	TrendingGrid    = "trendingGrid"
	ChartsGrid      = "chartsGrid"
	RecommendedGrid = "recommendedGrid"
	SearchResults   = "searchResults"

	PlayerImage  = "playerImage"
	PlayerTitle  = "playerTitle"
	PlayerArtist = "playerArtist"
	AudioPlayer  = "audioPlayer"
	PlayButton   = "playBtn"

	SearchInput = "searchInput"
	ClearSearch = "clearSearch"
	FilterTabs  = "filterTabs"
)

// PatchKind names the operation a patch performs on its target
type PatchKind string

const (
	PatchReplace PatchKind = "replace" // innerHTML
	PatchText    PatchKind = "text"    // textContent
	PatchAttr    PatchKind = "attr"    // setAttribute(Name, Value)
	PatchShow    PatchKind = "show"
	PatchHide    PatchKind = "hide"
	PatchValue   PatchKind = "value" // input value
	PatchTab     PatchKind = "tab"   // mark filter tab Value active
	PatchPlay    PatchKind = "play"  // load Value into the audio element and start it
	PatchPause   PatchKind = "pause"
	PatchResume  PatchKind = "resume"
	PatchAlert   PatchKind = "alert"
)

// Patch is one change to the page
type Patch struct {
	Kind   PatchKind `json:"kind"`
	Target string    `json:"target,omitempty"`
	HTML   string    `json:"html,omitempty"`
	Name   string    `json:"name,omitempty"`
	Value  string    `json:"value,omitempty"`
	Token  uint64    `json:"token,omitempty"` // ties a play/resume to its acknowledgement
}

// Surface receives patches for one page. Implementations must be safe for
// concurrent use and must not block.
type Surface interface {
	Apply(p Patch)
}

// Replace swaps the whole content of a container
func Replace(s Surface, target string, html template.HTML) {
	s.Apply(Patch{Kind: PatchReplace, Target: target, HTML: string(html)})
}

// SetText sets the text content of an element
func SetText(s Surface, target, text string) {
	s.Apply(Patch{Kind: PatchText, Target: target, Value: text})
}

// SetAttr sets an attribute on an element
func SetAttr(s Surface, target, name, value string) {
	s.Apply(Patch{Kind: PatchAttr, Target: target, Name: name, Value: value})
}

// SetVisible shows or hides an element
func SetVisible(s Surface, target string, visible bool) {
	kind := PatchHide
	if visible {
		kind = PatchShow
	}
	s.Apply(Patch{Kind: kind, Target: target})
}

// SetValue sets the value of an input
func SetValue(s Surface, target, value string) {
	s.Apply(Patch{Kind: PatchValue, Target: target, Value: value})
}

// Alert shows a blocking message to the user
func Alert(s Surface, message string) {
	s.Apply(Patch{Kind: PatchAlert, Value: message})
}

// SurfaceFunc adapts a function to Surface
type SurfaceFunc func(p Patch)

// Apply calls f(p)
func (f SurfaceFunc) Apply(p Patch) { f(p) }
