package org

import (
	"context"
	"sort"
	"sync"
)

// Static is an in-memory Directory for tests and local runs.
type Static struct {
	mu          sync.RWMutex
	employees   map[string]Employee
	positions   map[string]Position
	departments map[string]string
}

func NewStatic() *Static {
	return &Static{
		employees:   make(map[string]Employee),
		positions:   make(map[string]Position),
		departments: make(map[string]string),
	}
}

func (s *Static) AddPosition(pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos.ID] = pos
}

// AddEmployee registers the employee and marks them as holder of their position.
func (s *Static) AddEmployee(emp Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = emp
	if pos, ok := s.positions[emp.PositionID]; ok {
		pos.HolderID = emp.ID
		s.positions[pos.ID] = pos
	}
}

func (s *Static) SetDepartmentHead(departmentID, positionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[departmentID] = positionID
}

func (s *Static) GetEmployee(_ context.Context, employeeID string) (Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[employeeID]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, nil
}

func (s *Static) GetSupervisorPosition(_ context.Context, employeeID string) (Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[employeeID]
	if !ok {
		return Position{}, ErrEmployeeNotFound
	}
	own, ok := s.positions[emp.PositionID]
	if !ok || own.ReportsTo == "" {
		return Position{}, ErrPositionNotFound
	}
	sup, ok := s.positions[own.ReportsTo]
	if !ok {
		return Position{}, ErrPositionNotFound
	}
	return sup, nil
}

func (s *Static) GetDepartmentHead(_ context.Context, departmentID string) (Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posID, ok := s.departments[departmentID]
	if !ok {
		return Position{}, ErrPositionNotFound
	}
	pos, ok := s.positions[posID]
	if !ok {
		return Position{}, ErrPositionNotFound
	}
	return pos, nil
}

func (s *Static) GetPosition(_ context.Context, positionID string) (Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[positionID]
	if !ok {
		return Position{}, ErrPositionNotFound
	}
	return pos, nil
}

func (s *Static) ListReports(_ context.Context, managerEmployeeID string) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	manager, ok := s.employees[managerEmployeeID]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	if manager.PositionID == "" {
		return nil, nil
	}
	var out []Employee
	for _, emp := range s.employees {
		pos, ok := s.positions[emp.PositionID]
		if ok && pos.ReportsTo == manager.PositionID && emp.ID != manager.ID {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
