package payroll

import (
	"context"
	"sync"

	"hrleave/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) InsertEvent(ctx context.Context, evt Event) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO payroll_leave_events (id, event_type, request_id, employee_id, leave_type_code, start_date, end_date, working_days, unpaid_days, occurred_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    ON CONFLICT (id) DO NOTHING
  `, evt.ID, string(evt.Type), evt.RequestID, evt.EmployeeID, evt.LeaveTypeCode, evt.StartDate, evt.EndDate, evt.WorkingDays, evt.UnpaidDays, evt.OccurredAt)
	return err
}

func (s *Store) ListEvents(ctx context.Context, employeeID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, event_type, request_id, employee_id, leave_type_code, start_date, end_date, working_days, unpaid_days, occurred_at
    FROM payroll_leave_events
    WHERE employee_id = $1
    ORDER BY occurred_at DESC
    LIMIT $2
  `, employeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		var eventType string
		if err := rows.Scan(&evt.ID, &eventType, &evt.RequestID, &evt.EmployeeID, &evt.LeaveTypeCode, &evt.StartDate, &evt.EndDate, &evt.WorkingDays, &evt.UnpaidDays, &evt.OccurredAt); err != nil {
			return nil, err
		}
		evt.Type = EventType(eventType)
		out = append(out, evt)
	}
	return out, rows.Err()
}

// MemoryStore is the in-process outbox used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) InsertEvent(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *MemoryStore) ListEvents(_ context.Context, employeeID string, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for i := len(m.events) - 1; i >= 0; i-- {
		if employeeID == "" || m.events[i].EmployeeID == employeeID {
			out = append(out, m.events[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
