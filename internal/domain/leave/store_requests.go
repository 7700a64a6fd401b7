package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"hrleave/internal/platform/querier"
)

const requestColumns = `id, employee_id, department_id, leave_type_id, leave_type_code, start_date, end_date,
    total_days, working_days, justification, attachments, mission_details, status, steps, submitted_by,
    decision_reason, is_post_leave, converted_unpaid_days, approval_config_code, hr_override, meta, version,
    created_at, updated_at`

var blockingStatuses = []string{string(StatusPending), string(StatusUnderReview), string(StatusApproved)}

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var req LeaveRequest
	var status string
	var attachments, mission, steps, meta []byte
	if err := row.Scan(&req.ID, &req.EmployeeID, &req.DepartmentID, &req.LeaveTypeID, &req.LeaveTypeCode,
		&req.StartDate, &req.EndDate, &req.TotalDays, &req.WorkingDays, &req.Justification, &attachments, &mission,
		&status, &steps, &req.SubmittedBy, &req.DecisionReason, &req.IsPostLeave, &req.ConvertedToUnpaidDays,
		&req.ApprovalConfigCode, &req.HROverride, &meta, &req.Version, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return LeaveRequest{}, err
	}
	req.Status = RequestStatus(status)
	req.StartDate, req.EndDate = DateOnly(req.StartDate), DateOnly(req.EndDate)
	for _, part := range []struct {
		data []byte
		into any
	}{{attachments, &req.Attachments}, {mission, &req.MissionDetails}, {steps, &req.Steps}, {meta, &req.Meta}} {
		if err := unmarshalJSON(part.data, part.into); err != nil {
			return LeaveRequest{}, err
		}
	}
	return req, nil
}

type requestJSON struct {
	attachments, mission, steps, meta []byte
}

func encodeRequest(req LeaveRequest) (requestJSON, error) {
	var out requestJSON
	var err error
	if out.attachments, err = marshalJSON(req.Attachments); err != nil {
		return out, err
	}
	if out.mission, err = marshalJSON(req.MissionDetails); err != nil {
		return out, err
	}
	if out.steps, err = marshalJSON(req.Steps); err != nil {
		return out, err
	}
	out.meta, err = marshalJSON(req.Meta)
	return out, err
}

// lockAndCheckOverlap serialises writers of one employee's requests until the
// transaction ends, then checks for an overlapping blocking request.
func lockAndCheckOverlap(ctx context.Context, tx querier.Querier, req LeaveRequest) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", req.EmployeeID); err != nil {
		return err
	}
	existing, err := scanRequest(tx.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE employee_id = $1 AND id <> $2 AND status = ANY($3)
      AND start_date <= $5 AND end_date >= $4
    LIMIT 1
  `, req.EmployeeID, req.ID, blockingStatuses, req.StartDate, req.EndDate))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return NewOverlapError(existing)
}

func (s *PgStore) CreateRequest(ctx context.Context, req LeaveRequest) error {
	encoded, err := encodeRequest(req)
	if err != nil {
		return err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockAndCheckOverlap(ctx, tx, req); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO leave_requests (`+requestColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
  `, req.ID, req.EmployeeID, req.DepartmentID, req.LeaveTypeID, req.LeaveTypeCode, req.StartDate, req.EndDate,
		req.TotalDays, req.WorkingDays, req.Justification, encoded.attachments, encoded.mission, string(req.Status),
		encoded.steps, req.SubmittedBy, req.DecisionReason, req.IsPostLeave, req.ConvertedToUnpaidDays,
		req.ApprovalConfigCode, req.HROverride, encoded.meta, req.Version, req.CreatedAt, req.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgStore) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
  `, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrRequestNotFound
	}
	return req, err
}

func (s *PgStore) UpdateRequest(ctx context.Context, req LeaveRequest, expectedVersion int) error {
	encoded, err := encodeRequest(req)
	if err != nil {
		return err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if req.Status.Open() {
		if err := lockAndCheckOverlap(ctx, tx, req); err != nil {
			return err
		}
	}
	tag, err := tx.Exec(ctx, `
    UPDATE leave_requests
    SET start_date = $3, end_date = $4, total_days = $5, working_days = $6, justification = $7,
        attachments = $8, mission_details = $9, status = $10, steps = $11, decision_reason = $12,
        converted_unpaid_days = $13, meta = $14, updated_at = $15, version = version + 1
    WHERE id = $1 AND version = $2
  `, req.ID, expectedVersion, req.StartDate, req.EndDate, req.TotalDays, req.WorkingDays, req.Justification,
		encoded.attachments, encoded.mission, string(req.Status), encoded.steps, req.DecisionReason,
		req.ConvertedToUnpaidDays, encoded.meta, req.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM leave_requests WHERE id = $1)", req.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrRequestNotFound
		}
		return ErrConflict
	}
	return tx.Commit(ctx)
}

func (s *PgStore) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	query := "SELECT " + requestColumns + " FROM leave_requests WHERE 1=1"
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}
	if filter.EmployeeID != "" {
		add(" AND employee_id = $%d", filter.EmployeeID)
	}
	if len(filter.EmployeeIDs) > 0 {
		add(" AND employee_id = ANY($%d)", filter.EmployeeIDs)
	}
	if filter.LeaveTypeID != "" {
		add(" AND leave_type_id = $%d", filter.LeaveTypeID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, strings.ToUpper(string(st)))
		}
		add(" AND status = ANY($%d)", statuses)
	}
	if filter.From != nil {
		add(" AND end_date >= $%d", DateOnly(*filter.From))
	}
	if filter.To != nil {
		add(" AND start_date <= $%d", DateOnly(*filter.To))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		add(" LIMIT $%d", filter.Limit)
		add(" OFFSET $%d", filter.Offset)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LeaveRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
