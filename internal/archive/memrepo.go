package archive

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/chess-audio-guide/internal/domain"
)

// memrepo is used when no DATABASE_URL is configured.
type memrepo struct {
	mu        sync.RWMutex
	byID      map[string]*domain.ArchivedMatch
	bySession map[string][]string
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:      make(map[string]*domain.ArchivedMatch),
		bySession: make(map[string][]string),
	}
}

func (m *memrepo) SaveMatch(ctx context.Context, match *domain.ArchivedMatch) error {
	if match == nil {
		return nil
	}
	cp := clone(match)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[cp.ID]; !exists {
		key := strings.TrimSpace(cp.SessionID)
		m.bySession[key] = append(m.bySession[key], cp.ID)
	}
	m.byID[cp.ID] = cp
	return nil
}

func (m *memrepo) GetMatch(ctx context.Context, id string) (*domain.ArchivedMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	got, ok := m.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return clone(got), nil
}

func (m *memrepo) RecentMatches(ctx context.Context, sessionID string, limit int) ([]*domain.ArchivedMatch, error) {
	m.mu.RLock()
	ids := m.bySession[strings.TrimSpace(sessionID)]
	items := make([]*domain.ArchivedMatch, 0, len(ids))
	for _, id := range ids {
		items = append(items, clone(m.byID[id]))
	}
	m.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ArchivedAt.After(items[j].ArchivedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) Close() error { return nil }

func clone(src *domain.ArchivedMatch) *domain.ArchivedMatch {
	cp := *src
	cp.MovesUCI = append([]string(nil), src.MovesUCI...)
	cp.MovesSAN = append([]string(nil), src.MovesSAN...)
	cp.Comments = append([]string(nil), src.Comments...)
	return &cp
}
