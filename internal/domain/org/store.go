package org

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"hrleave/internal/platform/querier"
)

// Store reads the employees/positions/departments tables owned by the
// organisation service.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `e.id, e.name, e.email, COALESCE(e.gender, ''), e.department_id, e.position_id, COALESCE(e.country, ''), e.hire_date`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.Name, &emp.Email, &emp.Gender, &emp.DepartmentID, &emp.PositionID, &emp.Country, &emp.HireDate)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees e
    WHERE e.id = $1
  `, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Store) GetSupervisorPosition(ctx context.Context, employeeID string) (Position, error) {
	pos, err := scanPosition(s.DB.QueryRow(ctx, `
    SELECT p.id, p.title, p.department_id, COALESCE(p.reports_to, ''), COALESCE(h.id, '')
    FROM employees e
    JOIN positions own ON own.id = e.position_id
    JOIN positions p ON p.id = own.reports_to
    LEFT JOIN employees h ON h.position_id = p.id
    WHERE e.id = $1
    LIMIT 1
  `, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrPositionNotFound
	}
	return pos, err
}

func (s *Store) GetDepartmentHead(ctx context.Context, departmentID string) (Position, error) {
	pos, err := scanPosition(s.DB.QueryRow(ctx, `
    SELECT p.id, p.title, p.department_id, COALESCE(p.reports_to, ''), COALESCE(h.id, '')
    FROM departments d
    JOIN positions p ON p.id = d.head_position_id
    LEFT JOIN employees h ON h.position_id = p.id
    WHERE d.id = $1
    LIMIT 1
  `, departmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrPositionNotFound
	}
	return pos, err
}

func (s *Store) GetPosition(ctx context.Context, positionID string) (Position, error) {
	pos, err := scanPosition(s.DB.QueryRow(ctx, `
    SELECT p.id, p.title, p.department_id, COALESCE(p.reports_to, ''), COALESCE(h.id, '')
    FROM positions p
    LEFT JOIN employees h ON h.position_id = p.id
    WHERE p.id = $1
    LIMIT 1
  `, positionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrPositionNotFound
	}
	return pos, err
}

func (s *Store) ListReports(ctx context.Context, managerEmployeeID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees m
    JOIN positions p ON p.reports_to = m.position_id
    JOIN employees e ON e.position_id = p.id
    WHERE m.id = $1
    ORDER BY e.name
  `, managerEmployeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func scanPosition(row pgx.Row) (Position, error) {
	var pos Position
	err := row.Scan(&pos.ID, &pos.Title, &pos.DepartmentID, &pos.ReportsTo, &pos.HolderID)
	return pos, err
}
