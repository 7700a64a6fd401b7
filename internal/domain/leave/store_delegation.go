package leave

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const delegationColumns = `id, manager_id, delegate_id, start_date, end_date, is_active, departments, leave_types, created_at`

func scanDelegation(row pgx.Row) (ManagerDelegation, error) {
	var d ManagerDelegation
	err := row.Scan(&d.ID, &d.ManagerID, &d.DelegateID, &d.StartDate, &d.EndDate, &d.IsActive, &d.Departments, &d.LeaveTypes, &d.CreatedAt)
	return d, err
}

func (s *PgStore) CreateDelegation(ctx context.Context, d ManagerDelegation) error {
	departments, leaveTypes := d.Departments, d.LeaveTypes
	if departments == nil {
		departments = []string{}
	}
	if leaveTypes == nil {
		leaveTypes = []string{}
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO manager_delegations (`+delegationColumns+`)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, d.ID, d.ManagerID, d.DelegateID, d.StartDate, d.EndDate, d.IsActive, departments, leaveTypes, d.CreatedAt)
	return err
}

func (s *PgStore) RevokeDelegation(ctx context.Context, delegationID string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE manager_delegations SET is_active = false WHERE id = $1", delegationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDelegationNotFound
	}
	return nil
}

func (s *PgStore) ListDelegationsByManager(ctx context.Context, managerID string) ([]ManagerDelegation, error) {
	return s.listDelegations(ctx, "SELECT "+delegationColumns+" FROM manager_delegations WHERE manager_id = $1 ORDER BY created_at DESC", managerID)
}

func (s *PgStore) ListDelegations(ctx context.Context) ([]ManagerDelegation, error) {
	return s.listDelegations(ctx, "SELECT "+delegationColumns+" FROM manager_delegations ORDER BY created_at DESC")
}

func (s *PgStore) listDelegations(ctx context.Context, query string, args ...any) ([]ManagerDelegation, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ManagerDelegation
	for rows.Next() {
		d, err := scanDelegation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
