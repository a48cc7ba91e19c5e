package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"melodeck/internal/clock"
	"melodeck/internal/config"
	"melodeck/internal/feed"
	"melodeck/internal/monitoring"
	"melodeck/internal/player"
	"melodeck/internal/render"
	"melodeck/internal/search"
	"melodeck/internal/ui"
)

// Catalog is everything the page controllers read from the catalog
type Catalog interface {
	search.Searcher
	player.SongFetcher
	feed.Source
}

// Options configures new sessions
type Options struct {
	FeedSource     config.FeedSource
	SectionSize    int
	DebounceDelay  time.Duration
	ConfirmTimeout time.Duration
	IdleTimeout    time.Duration
	MaxSessions    int             // zero means 10000
	Scheduler      clock.Scheduler // nil means real timers
}

// Manager creates, finds and expires sessions
type Manager struct {
	catalog  Catalog
	renderer *render.Renderer
	opts     Options
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager
func NewManager(catalog Catalog, renderer *render.Renderer, opts Options) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 10 * time.Second
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 10000
	}
	return &Manager{
		catalog:  catalog,
		renderer: renderer,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session for a page of the given kind. At capacity the least
// recently seen session is closed to make room.
func (m *Manager) Create(kind Kind) *Session {
	id := uuid.NewString()
	ctx := monitoring.WithHub(context.Background(), map[string]string{"session_id": id, "page": string(kind)})
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:       id,
		Kind:     kind,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan ui.Patch, eventBuffer),
		lastSeen: m.now(),
	}
	s.audio = newAudioBridge(s, m.opts.ConfirmTimeout)
	s.Search = search.NewController(ctx, m.catalog, m.renderer, s, search.Options{
		Delay:     m.opts.DebounceDelay,
		Scheduler: m.opts.Scheduler,
	})
	s.Player = player.NewController(m.catalog, s.audio, m.renderer, s)
	s.Feed = feed.NewLoader(m.catalog, m.renderer, m.opts.FeedSource, m.opts.SectionSize)

	m.mu.Lock()
	var evicted []*Session
	for len(m.sessions) >= m.opts.MaxSessions {
		oldest := m.oldestLocked()
		delete(m.sessions, oldest.ID)
		evicted = append(evicted, oldest)
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	for _, old := range evicted {
		old.Close()
		slog.Info("Evicted session at capacity", "session_id", old.ID, "max_sessions", m.opts.MaxSessions)
	}
	slog.Debug("Session created", "session_id", s.ID, "kind", kind)
	return s
}

// oldestLocked is the least recently seen session (caller holds mu, map non-empty)
func (m *Manager) oldestLocked() *Session {
	var oldest *Session
	for _, s := range m.sessions {
		if oldest == nil || s.LastSeen().Before(oldest.LastSeen()) {
			oldest = s
		}
	}
	return oldest
}

// Get finds a live session and records activity on it
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch(m.now())
	}
	return s, ok
}

// Remove closes and forgets a session
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Len is the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle since before now minus the idle timeout
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		slog.Info("Expired idle sessions", "count", len(expired), "remaining", m.Len())
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every session
func (m *Manager) Run(ctx context.Context) {
	interval := m.opts.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// Close ends every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
