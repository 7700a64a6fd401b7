package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu     sync.Mutex
	items  []Notification
	Emails map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Emails: map[string]string{}}
}

func (m *MemoryStore) CreateNotification(_ context.Context, recipientID, ntype, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Type:        ntype,
		Title:       title,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

func (m *MemoryStore) RecipientEmail(_ context.Context, recipientID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Emails[recipientID], nil
}

func (m *MemoryStore) ListNotifications(_ context.Context, recipientID string, limit, offset int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].RecipientID == recipientID {
			out = append(out, m.items[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CountNotifications(_ context.Context, recipientID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.items {
		if n.RecipientID == recipientID {
			total++
		}
	}
	return total, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, recipientID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for i := range m.items {
		if m.items[i].ID == notificationID && m.items[i].RecipientID == recipientID {
			m.items[i].ReadAt = &now
		}
	}
	return nil
}
