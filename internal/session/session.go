// Package session keeps the server-side state of each open page and
// connects its controllers to the browser.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"melodeck/internal/feed"
	"melodeck/internal/player"
	"melodeck/internal/search"
	"melodeck/internal/ui"
)

// Kind is the page a session belongs to
type Kind string

const (
	KindHome   Kind = "home"
	KindSearch Kind = "search"
	KindDetail Kind = "detail"
)

// eventBuffer bounds the patches queued for a slow or absent stream
const eventBuffer = 256

// Session is one open page. It is itself the ui.Surface its controllers
// write to; patches queue until the page's event stream drains them.
type Session struct {
	ID   string
	Kind Kind

	ctx    context.Context
	cancel context.CancelFunc
	events chan ui.Patch

	Search *search.Controller
	Player *player.Controller
	Feed   *feed.Loader
	audio  *audioBridge

	start    sync.Once
	mu       sync.Mutex
	lastSeen time.Time
	dropped  int
}

// Apply queues a patch without blocking; when the queue is full the patch is dropped
func (s *Session) Apply(p ui.Patch) {
	select {
	case s.events <- p:
	default:
		s.mu.Lock()
		s.dropped++
		dropped := s.dropped
		s.mu.Unlock()
		slog.Warn("Dropping patch for slow session", "session_id", s.ID, "kind", p.Kind, "dropped", dropped)
	}
}

// Events is the patch queue
func (s *Session) Events() <-chan ui.Patch {
	return s.events
}

// Done is closed when the session ends
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context is cancelled when the session ends
func (s *Session) Context() context.Context {
	return s.ctx
}

// Start runs the page's initial work once, normally when its event stream connects
func (s *Session) Start() {
	s.start.Do(func() {
		switch s.Kind {
		case KindHome:
			go s.Feed.Load(s.ctx, s)
		case KindSearch:
			s.Search.ShowBrowse()
		}
	})
}

// Touch records activity
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen is the time of the latest activity
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Ack forwards the page's answer to a play or resume patch
func (s *Session) Ack(token uint64, playing bool, reason string) bool {
	return s.audio.Ack(token, playing, reason)
}

// Close ends the session and releases anything waiting on the page
func (s *Session) Close() {
	s.Search.Close()
	s.audio.close()
	s.cancel()
}
