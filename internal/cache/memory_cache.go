package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process LRU cache used as the first layer
type MemoryCache struct {
	maxItems int
	items    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
	now      func() time.Time
}

type memoryItem struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an LRU cache holding at most maxItems entries
func NewMemoryCache(maxItems int) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 1
	}
	return &MemoryCache{
		maxItems: maxItems,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

func (m *MemoryCache) expired(item *memoryItem) bool {
	return !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt)
}

// Get returns a copy of the cached value, or nil on a miss
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, found := m.items[key]
	if !found {
		return nil, nil
	}
	item := elem.Value.(*memoryItem)
	if m.expired(item) {
		m.removeElement(elem)
		return nil, nil
	}

	m.lru.MoveToFront(elem)
	return append([]byte(nil), item.value...), nil
}

// Set stores a copy of value, evicting the least recently used entries
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = m.now().Add(expiration)
	}
	stored := append([]byte(nil), value...)

	if elem, found := m.items[key]; found {
		item := elem.Value.(*memoryItem)
		item.value = stored
		item.expiresAt = expiresAt
		m.lru.MoveToFront(elem)
		return nil
	}

	m.items[key] = m.lru.PushFront(&memoryItem{key: key, value: stored, expiresAt: expiresAt})

	for m.lru.Len() > m.maxItems {
		m.removeElement(m.lru.Back())
	}
	return nil
}

// Delete removes a key from the cache
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if elem, found := m.items[key]; found {
		m.removeElement(elem)
	}
	return nil
}

// Exists reports whether an unexpired entry is present
func (m *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	elem, found := m.items[key]
	if !found {
		return false, nil
	}
	return !m.expired(elem.Value.(*memoryItem)), nil
}

// TTL returns the time left before key expires, zero when it never expires
// or is absent
func (m *MemoryCache) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	elem, found := m.items[key]
	if !found {
		return 0, nil
	}
	item := elem.Value.(*memoryItem)
	if item.expiresAt.IsZero() || m.expired(item) {
		return 0, nil
	}
	return item.expiresAt.Sub(m.now()), nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (m *MemoryCache) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, elem := range m.items {
		if m.expired(elem.Value.(*memoryItem)) {
			m.removeElement(elem)
			removed++
		}
	}
	return removed
}

// Close drops all entries
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element)
	m.lru = list.New()
	return nil
}

// Health always succeeds
func (m *MemoryCache) Health(context.Context) error {
	return nil
}

// removeElement removes an element from both the map and list (caller holds mu)
func (m *MemoryCache) removeElement(elem *list.Element) {
	item := elem.Value.(*memoryItem)
	delete(m.items, item.key)
	m.lru.Remove(elem)
}
