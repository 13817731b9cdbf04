package preferences

import (
	"context"
	"sync"

	"github.com/hyperjump/mitate/internal/models"
)

// MemoryStore is an in-memory Store used in tests and single-shot CLI runs.
type MemoryStore struct {
	mu        sync.RWMutex
	colors    map[string][]string
	styles    map[string][]string
	favorites map[string][]string
	history   map[string][]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		colors:    make(map[string][]string),
		styles:    make(map[string][]string),
		favorites: make(map[string][]string),
		history:   make(map[string][]string),
	}
}

func (s *MemoryStore) GetPreferences(ctx context.Context, userID string) (*models.PreferenceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &models.PreferenceSnapshot{
		Colors:      append([]string(nil), s.colors[userID]...),
		Styles:      append([]string(nil), s.styles[userID]...),
		FavoriteIDs: append([]string(nil), s.favorites[userID]...),
	}, nil
}

func (s *MemoryStore) SetPreferences(ctx context.Context, userID string, colors, styles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors[userID] = append([]string(nil), colors...)
	s.styles[userID] = append([]string(nil), styles...)
	return nil
}

func (s *MemoryStore) AddFavorite(ctx context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.favorites[userID] {
		if id == productID {
			return nil
		}
	}
	s.favorites[userID] = append(s.favorites[userID], productID)
	return nil
}

func (s *MemoryStore) RemoveFavorite(ctx context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.favorites[userID]
	for i, id := range ids {
		if id == productID {
			s.favorites[userID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) RecordSearch(ctx context.Context, userID, query string) error {
	if userID == "" || query == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = append(s.history[userID], query)
	return nil
}

func (s *MemoryStore) GetRecentQueries(ctx context.Context, userID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.history[userID]
	seen := make(map[string]bool)
	var queries []string
	for i := len(all) - 1; i >= 0 && len(queries) < limit; i-- {
		if seen[all[i]] {
			continue
		}
		seen[all[i]] = true
		queries = append(queries, all[i])
	}
	return queries, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
