package leave

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const leaveTypeColumns = `id, code, name, is_paid, requires_attachment, min_tenure_months, max_duration_days, allow_post_leave, pauses_accrual, created_at`

func scanLeaveType(row pgx.Row) (LeaveType, error) {
	var lt LeaveType
	err := row.Scan(&lt.ID, &lt.Code, &lt.Name, &lt.IsPaid, &lt.RequiresAttachment, &lt.MinTenureMonths,
		&lt.MaxDurationDays, &lt.AllowPostLeave, &lt.PausesAccrual, &lt.CreatedAt)
	return lt, err
}

func (s *PgStore) GetLeaveType(ctx context.Context, leaveTypeID string) (LeaveType, error) {
	lt, err := scanLeaveType(s.DB.QueryRow(ctx, "SELECT "+leaveTypeColumns+" FROM leave_types WHERE id = $1", leaveTypeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveType{}, ErrTypeNotFound
	}
	return lt, err
}

func (s *PgStore) GetLeaveTypeByCode(ctx context.Context, code string) (LeaveType, error) {
	lt, err := scanLeaveType(s.DB.QueryRow(ctx, "SELECT "+leaveTypeColumns+" FROM leave_types WHERE code = $1", code))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveType{}, ErrTypeNotFound
	}
	return lt, err
}

func (s *PgStore) ListLeaveTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+leaveTypeColumns+" FROM leave_types ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

func (s *PgStore) UpsertLeaveType(ctx context.Context, lt LeaveType) (LeaveType, error) {
	return scanLeaveType(s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (`+leaveTypeColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    ON CONFLICT (id) DO UPDATE SET
      code = EXCLUDED.code, name = EXCLUDED.name, is_paid = EXCLUDED.is_paid,
      requires_attachment = EXCLUDED.requires_attachment, min_tenure_months = EXCLUDED.min_tenure_months,
      max_duration_days = EXCLUDED.max_duration_days, allow_post_leave = EXCLUDED.allow_post_leave,
      pauses_accrual = EXCLUDED.pauses_accrual
    RETURNING `+leaveTypeColumns+`
  `, lt.ID, lt.Code, lt.Name, lt.IsPaid, lt.RequiresAttachment, lt.MinTenureMonths, lt.MaxDurationDays,
		lt.AllowPostLeave, lt.PausesAccrual, lt.CreatedAt))
}

const entitlementColumns = `id, COALESCE(employee_id, ''), leave_type_id, days, monthly_accrual_rate, carry_over_cap, expiry_months, last_accrued_at, updated_at`

func scanEntitlement(row pgx.Row) (LeaveEntitlement, error) {
	var ent LeaveEntitlement
	var rate, capDays decimal.NullDecimal
	if err := row.Scan(&ent.ID, &ent.EmployeeID, &ent.LeaveTypeID, &ent.Days, &rate, &capDays,
		&ent.ExpiryMonths, &ent.LastAccruedAt, &ent.UpdatedAt); err != nil {
		return LeaveEntitlement{}, err
	}
	if rate.Valid {
		ent.MonthlyAccrualRate = &rate.Decimal
	}
	if capDays.Valid {
		ent.CarryOverCap = &capDays.Decimal
	}
	return ent, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func (s *PgStore) FindEntitlement(ctx context.Context, employeeID, leaveTypeID string) (LeaveEntitlement, error) {
	ent, err := scanEntitlement(s.DB.QueryRow(ctx, `
    SELECT `+entitlementColumns+`
    FROM leave_entitlements
    WHERE leave_type_id = $2 AND (employee_id = $1 OR employee_id IS NULL)
    ORDER BY employee_id NULLS LAST
    LIMIT 1
  `, employeeID, leaveTypeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveEntitlement{}, ErrEntitlementNotFound
	}
	return ent, err
}

func (s *PgStore) ListEntitlements(ctx context.Context) ([]LeaveEntitlement, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+entitlementColumns+" FROM leave_entitlements ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaveEntitlement
	for rows.Next() {
		ent, err := scanEntitlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, rows.Err()
}

func (s *PgStore) UpsertEntitlement(ctx context.Context, ent LeaveEntitlement) (LeaveEntitlement, error) {
	if ent.ID == "" {
		ent.ID = newID()
	}
	return scanEntitlement(s.DB.QueryRow(ctx, `
    INSERT INTO leave_entitlements (id, employee_id, leave_type_id, days, monthly_accrual_rate, carry_over_cap, expiry_months, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT ((COALESCE(employee_id, '')), leave_type_id) DO UPDATE SET
      days = EXCLUDED.days, monthly_accrual_rate = EXCLUDED.monthly_accrual_rate,
      carry_over_cap = EXCLUDED.carry_over_cap, expiry_months = EXCLUDED.expiry_months,
      updated_at = EXCLUDED.updated_at
    RETURNING `+entitlementColumns+`
  `, ent.ID, nullIfEmpty(ent.EmployeeID), ent.LeaveTypeID, ent.Days, nullDecimal(ent.MonthlyAccrualRate),
		nullDecimal(ent.CarryOverCap), ent.ExpiryMonths, ent.UpdatedAt))
}

func (s *PgStore) ApplyAccrual(ctx context.Context, entitlementID string, days decimal.Decimal, periodStart, at time.Time) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    INSERT INTO leave_accrual_runs (entitlement_id, period_start, days, created_at)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (entitlement_id, period_start) DO NOTHING
  `, entitlementID, periodStart, days, at)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `
    UPDATE leave_entitlements
    SET days = days + $2, last_accrued_at = $3, updated_at = $3
    WHERE id = $1
  `, entitlementID, days, at); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *PgStore) CreateAdjustment(ctx context.Context, adj LeaveAdjustment) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_adjustments (id, employee_id, leave_type_id, change_days, reason, applied_by, effective_date, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, adj.ID, adj.EmployeeID, adj.LeaveTypeID, adj.Change, adj.Reason, adj.AppliedBy, adj.EffectiveDate, adj.CreatedAt)
	return err
}

func (s *PgStore) ListAdjustments(ctx context.Context, employeeID, leaveTypeID string) ([]LeaveAdjustment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, leave_type_id, change_days, reason, applied_by, effective_date, created_at
    FROM leave_adjustments
    WHERE employee_id = $1 AND ($2 = '' OR leave_type_id = $2)
    ORDER BY created_at
  `, employeeID, leaveTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaveAdjustment
	for rows.Next() {
		var adj LeaveAdjustment
		if err := rows.Scan(&adj.ID, &adj.EmployeeID, &adj.LeaveTypeID, &adj.Change, &adj.Reason, &adj.AppliedBy,
			&adj.EffectiveDate, &adj.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, adj)
	}
	return out, rows.Err()
}

func (s *PgStore) RecordCarryOver(ctx context.Context, entitlementID string, year int, adj LeaveAdjustment) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    INSERT INTO leave_carry_over_runs (entitlement_id, year, adjustment_id, created_at)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (entitlement_id, year) DO NOTHING
  `, entitlementID, year, adj.ID, adj.CreatedAt)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO leave_adjustments (id, employee_id, leave_type_id, change_days, reason, applied_by, effective_date, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, adj.ID, adj.EmployeeID, adj.LeaveTypeID, adj.Change, adj.Reason, adj.AppliedBy, adj.EffectiveDate, adj.CreatedAt); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

const approvalConfigColumns = `id, code, levels, COALESCE(leave_type_id, ''), COALESCE(department_id, ''), hr_override, is_active, created_at`

func scanApprovalConfig(row pgx.Row) (ApprovalConfig, error) {
	var cfg ApprovalConfig
	var levels []byte
	if err := row.Scan(&cfg.ID, &cfg.Code, &levels, &cfg.LeaveTypeID, &cfg.DepartmentID, &cfg.HROverride, &cfg.IsActive, &cfg.CreatedAt); err != nil {
		return ApprovalConfig{}, err
	}
	return cfg, unmarshalJSON(levels, &cfg.Levels)
}

func (s *PgStore) UpsertApprovalConfig(ctx context.Context, cfg ApprovalConfig) (ApprovalConfig, error) {
	levels, err := marshalJSON(cfg.Levels)
	if err != nil {
		return ApprovalConfig{}, err
	}
	return scanApprovalConfig(s.DB.QueryRow(ctx, `
    INSERT INTO approval_configs (id, code, levels, leave_type_id, department_id, hr_override, is_active, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (code) DO UPDATE SET
      levels = EXCLUDED.levels, leave_type_id = EXCLUDED.leave_type_id, department_id = EXCLUDED.department_id,
      hr_override = EXCLUDED.hr_override, is_active = EXCLUDED.is_active
    RETURNING `+approvalConfigColumns+`
  `, cfg.ID, cfg.Code, levels, nullIfEmpty(cfg.LeaveTypeID), nullIfEmpty(cfg.DepartmentID), cfg.HROverride, cfg.IsActive, cfg.CreatedAt))
}

func (s *PgStore) findApprovalConfig(ctx context.Context, where string, arg any) (ApprovalConfig, error) {
	cfg, err := scanApprovalConfig(s.DB.QueryRow(ctx, "SELECT "+approvalConfigColumns+" FROM approval_configs WHERE "+where+" ORDER BY code LIMIT 1", arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return ApprovalConfig{}, ErrConfigNotFound
	}
	return cfg, err
}

func (s *PgStore) FindApprovalConfigByLeaveType(ctx context.Context, leaveTypeID string) (ApprovalConfig, error) {
	if leaveTypeID == "" {
		return ApprovalConfig{}, ErrConfigNotFound
	}
	return s.findApprovalConfig(ctx, "leave_type_id = $1 AND is_active", leaveTypeID)
}

func (s *PgStore) FindApprovalConfigByDepartment(ctx context.Context, departmentID string) (ApprovalConfig, error) {
	if departmentID == "" {
		return ApprovalConfig{}, ErrConfigNotFound
	}
	return s.findApprovalConfig(ctx, "department_id = $1 AND is_active", departmentID)
}

func (s *PgStore) FindApprovalConfigByCode(ctx context.Context, code string) (ApprovalConfig, error) {
	return s.findApprovalConfig(ctx, "code = $1", code)
}

func (s *PgStore) ListApprovalConfigs(ctx context.Context) ([]ApprovalConfig, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+approvalConfigColumns+" FROM approval_configs ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ApprovalConfig
	for rows.Next() {
		cfg, err := scanApprovalConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}
