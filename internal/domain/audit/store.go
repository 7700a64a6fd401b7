package audit

import (
	"context"
	"fmt"

	"hrleave/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, evt Event) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_audit_logs (id, request_id, action, actor_id, delegate_id, escalation_level, comment, entity_type, entity_id, before_json, after_json, checksum, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, evt.ID, nullIfEmpty(evt.RequestID), evt.Action, nullIfEmpty(evt.ActorID), nullIfEmpty(evt.DelegateID), evt.EscalationLevel,
		evt.Comment, evt.EntityType, evt.EntityID, nullIfEmptyJSON(evt.Before), nullIfEmptyJSON(evt.After), evt.Checksum, evt.CreatedAt)
	return err
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Event, error) {
	query, args := buildBaseQuery(`SELECT id, COALESCE(request_id, ''), action, COALESCE(actor_id, ''), COALESCE(delegate_id, ''),
    escalation_level, comment, entity_type, entity_id, before_json, after_json, checksum, created_at`, filter)
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.RequestID, &evt.Action, &evt.ActorID, &evt.DelegateID, &evt.EscalationLevel,
			&evt.Comment, &evt.EntityType, &evt.EntityID, &evt.Before, &evt.After, &evt.Checksum, &evt.CreatedAt); err != nil {
			return nil, err
		}
		evt.CreatedAt = evt.CreatedAt.UTC()
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM leave_audit_logs WHERE 1=1"
	var args []any
	if filter.RequestID != "" {
		args = append(args, filter.RequestID)
		query += fmt.Sprintf(" AND request_id = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	return query, args
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullIfEmptyJSON(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return value
}
