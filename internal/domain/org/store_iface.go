package org

import "context"

// Directory is the read-only view of the organisation consumed by the leave engine.
type Directory interface {
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	// GetSupervisorPosition returns the position the employee's own position reports to.
	GetSupervisorPosition(ctx context.Context, employeeID string) (Position, error)
	GetDepartmentHead(ctx context.Context, departmentID string) (Position, error)
	GetPosition(ctx context.Context, positionID string) (Position, error)
	ListReports(ctx context.Context, managerEmployeeID string) ([]Employee, error)
}
