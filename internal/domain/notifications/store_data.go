package notifications

import (
	"context"

	"hrleave/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateNotification(ctx context.Context, recipientID, ntype, title, body string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (recipient_id, type, title, body)
    VALUES ($1,$2,$3,$4)
  `, recipientID, ntype, title, body)
	return err
}

func (s *Store) RecipientEmail(ctx context.Context, recipientID string) (string, error) {
	var email string
	if err := s.DB.QueryRow(ctx, "SELECT COALESCE(email, '') FROM employees WHERE id = $1", recipientID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, recipient_id, type, title, body, read_at, created_at
    FROM notifications
    WHERE recipient_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, recipientID string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE recipient_id = $1", recipientID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE recipient_id = $1 AND id = $2
  `, recipientID, notificationID)
	return err
}
