package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps events in process; used by tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *MemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for i := len(m.events) - 1; i >= 0; i-- {
		if matches(m.events[i], filter) {
			out = append(out, m.events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context, filter Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, evt := range m.events {
		if matches(evt, filter) {
			total++
		}
	}
	return total, nil
}

func matches(evt Event, filter Filter) bool {
	if filter.RequestID != "" && evt.RequestID != filter.RequestID {
		return false
	}
	if filter.Action != "" && evt.Action != filter.Action {
		return false
	}
	if filter.ActorID != "" && evt.ActorID != filter.ActorID {
		return false
	}
	if filter.From != nil && evt.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && evt.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}
