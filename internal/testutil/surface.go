package testutil

import (
	"sync"

	"melodeck/internal/ui"
)

// RecordingSurface collects patches for assertions
type RecordingSurface struct {
	mu      sync.Mutex
	patches []ui.Patch
}

// NewRecordingSurface creates an empty recording surface
func NewRecordingSurface() *RecordingSurface {
	return &RecordingSurface{}
}

// Apply implements ui.Surface
func (r *RecordingSurface) Apply(p ui.Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = append(r.patches, p)
}

// Patches returns a copy of every recorded patch
func (r *RecordingSurface) Patches() []ui.Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ui.Patch(nil), r.patches...)
}

// Reset drops recorded patches
func (r *RecordingSurface) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = nil
}

// For returns the patches addressed to target, in order
func (r *RecordingSurface) For(target string) []ui.Patch {
	var out []ui.Patch
	for _, p := range r.Patches() {
		if p.Target == target {
			out = append(out, p)
		}
	}
	return out
}

// OfKind returns the patches of one kind, in order
func (r *RecordingSurface) OfKind(kind ui.PatchKind) []ui.Patch {
	var out []ui.Patch
	for _, p := range r.Patches() {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// HTML returns the content of the last replace patch for target
func (r *RecordingSurface) HTML(target string) string {
	patches := r.For(target)
	for i := len(patches) - 1; i >= 0; i-- {
		if patches[i].Kind == ui.PatchReplace {
			return patches[i].HTML
		}
	}
	return ""
}

// Text returns the value of the last text patch for target
func (r *RecordingSurface) Text(target string) string {
	patches := r.For(target)
	for i := len(patches) - 1; i >= 0; i-- {
		if patches[i].Kind == ui.PatchText {
			return patches[i].Value
		}
	}
	return ""
}

// Alerts returns the messages of every alert patch
func (r *RecordingSurface) Alerts() []string {
	var out []string
	for _, p := range r.OfKind(ui.PatchAlert) {
		out = append(out, p.Value)
	}
	return out
}
