package subscription

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in process; used for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]Subscription)}
}

func (m *MemoryStore) Get(_ context.Context, business string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[business]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (m *MemoryStore) Save(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.Business] = *sub
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Business < out[j].Business })
	return out, nil
}
