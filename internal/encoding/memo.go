package encoding

import (
	"container/list"
	"sync"
)

// Memo is an LRU cache for text embeddings keyed by exact query string.
// It is shared across concurrent queries; a duplicate computation on a
// Get/Set race is wasted work but not incorrect. Get takes the full lock
// because the recency bump mutates the list.
type Memo struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type memoEntry struct {
	key   string
	value []float32
}

// NewMemo creates a memo with the given capacity.
func NewMemo(capacity int) *Memo {
	return &Memo{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present, marking it as most
// recently used.
func (m *Memo) Get(key string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.cache[key]; ok {
		m.lru.MoveToFront(elem)
		return elem.Value.(*memoEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (m *Memo) Set(key string, value []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.cache[key]; ok {
		m.lru.MoveToFront(elem)
		elem.Value.(*memoEntry).value = value
		return
	}

	entry := &memoEntry{key: key, value: value}
	elem := m.lru.PushFront(entry)
	m.cache[key] = elem

	if m.lru.Len() > m.capacity {
		oldest := m.lru.Back()
		if oldest != nil {
			m.lru.Remove(oldest)
			delete(m.cache, oldest.Value.(*memoEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}
