package follow

import (
	"context"
	"sync"
)

// MemoryStore 进程内存储，重启即丢失。
type MemoryStore struct {
	mu      sync.Mutex
	follows map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{follows: make(map[string]map[string]struct{})}
}

func (m *MemoryStore) Toggle(_ context.Context, session, providerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.follows[session]
	if _, ok := set[providerID]; ok {
		delete(set, providerID)
		if len(set) == 0 {
			delete(m.follows, session)
		}
		return false, nil
	}
	if set == nil {
		set = make(map[string]struct{})
		m.follows[session] = set
	}
	set[providerID] = struct{}{}
	return true, nil
}

func (m *MemoryStore) Following(_ context.Context, session string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.follows[session]))
	for id := range m.follows[session] {
		out = append(out, id)
	}
	return out, nil
}
