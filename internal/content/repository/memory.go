package repository

import (
	"context"
	"sync"

	"github.com/yangjihun/FM-COMMIT/internal/content"
)

// MemoryRepo is an in-memory Repository used by unit tests and by the server
// when no MongoDB URI is configured.
type MemoryRepo[T any, PT content.Record[T]] struct {
	mu    sync.RWMutex
	items []T
}

func NewMemoryRepo[T any, PT content.Record[T]]() *MemoryRepo[T, PT] {
	return &MemoryRepo[T, PT]{}
}

func (m *MemoryRepo[T, PT]) indexOf(id string) int {
	for i := range m.items {
		if PT(&m.items[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func (m *MemoryRepo[T, PT]) List(ctx context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *MemoryRepo[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return nil, content.ErrNotFound
	}
	item := m.items[i]
	return &item, nil
}

func (m *MemoryRepo[T, PT]) Insert(ctx context.Context, item *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(PT(item).GetID()) >= 0 {
		return content.ErrDuplicateID
	}
	m.items = append(m.items, *item)
	return nil
}

// Update stores item whole; callers pass the merged record so untouched
// fields already hold their stored values.
func (m *MemoryRepo[T, PT]) Update(ctx context.Context, item *T, fields []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(PT(item).GetID())
	if i < 0 {
		return content.ErrNotFound
	}
	m.items[i] = *item
	return nil
}

func (m *MemoryRepo[T, PT]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return content.ErrNotFound
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return nil
}

func (m *MemoryRepo[T, PT]) ReplaceAll(ctx context.Context, items []T) error {
	next := make([]T, len(items))
	copy(next, items)
	seen := make(map[string]bool, len(next))
	for i := range next {
		id := PT(&next[i]).GetID()
		if seen[id] {
			return content.ErrDuplicateID
		}
		seen[id] = true
	}
	m.mu.Lock()
	m.items = next
	m.mu.Unlock()
	return nil
}

// MemoryStudyRepo holds the singleton study document in memory.
type MemoryStudyRepo struct {
	mu  sync.RWMutex
	doc *content.Study
}

func NewMemoryStudyRepo() *MemoryStudyRepo { return &MemoryStudyRepo{} }

func (m *MemoryStudyRepo) Get(ctx context.Context) (*content.Study, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil, nil
	}
	cp := *m.doc
	return &cp, nil
}

func (m *MemoryStudyRepo) Put(ctx context.Context, s *content.Study) error {
	cp := *s
	m.mu.Lock()
	m.doc = &cp
	m.mu.Unlock()
	return nil
}
