// Package memory is an in-process leave.Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hrleave/internal/domain/leave"
)

type Store struct {
	mu sync.RWMutex

	requests     map[string]leave.LeaveRequest
	types        map[string]leave.LeaveType
	entitlements map[string]leave.LeaveEntitlement
	adjustments  []leave.LeaveAdjustment
	accruals     map[string]bool
	carryOvers   map[string]bool
	configs      map[string]leave.ApprovalConfig
	calendars    map[string]leave.Calendar
	delegations  map[string]leave.ManagerDelegation
}

var _ leave.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		requests:     make(map[string]leave.LeaveRequest),
		types:        make(map[string]leave.LeaveType),
		entitlements: make(map[string]leave.LeaveEntitlement),
		accruals:     make(map[string]bool),
		carryOvers:   make(map[string]bool),
		configs:      make(map[string]leave.ApprovalConfig),
		calendars:    make(map[string]leave.Calendar),
		delegations:  make(map[string]leave.ManagerDelegation),
	}
}

// --- requests ---

func (m *Store) CreateRequest(_ context.Context, req leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[req.ID]; ok {
		return fmt.Errorf("leave request %s already exists", req.ID)
	}
	if existing, ok := m.overlappingLocked(req); ok {
		return leave.NewOverlapError(existing)
	}
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *Store) overlappingLocked(req leave.LeaveRequest) (leave.LeaveRequest, bool) {
	for _, other := range m.requests {
		if other.ID == req.ID || other.EmployeeID != req.EmployeeID {
			continue
		}
		if !other.Status.Open() && other.Status != leave.StatusApproved {
			continue
		}
		if leave.RangesOverlap(other.StartDate, other.EndDate, req.StartDate, req.EndDate) {
			return other, true
		}
	}
	return leave.LeaveRequest{}, false
}

func (m *Store) GetRequest(_ context.Context, requestID string) (leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[requestID]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrRequestNotFound
	}
	return req.Clone(), nil
}

func (m *Store) UpdateRequest(_ context.Context, req leave.LeaveRequest, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.requests[req.ID]
	if !ok {
		return leave.ErrRequestNotFound
	}
	if current.Version != expectedVersion {
		return leave.ErrConflict
	}
	if req.Status.Open() {
		if existing, ok := m.overlappingLocked(req); ok {
			return leave.NewOverlapError(existing)
		}
	}
	stored := req.Clone()
	stored.Version = expectedVersion + 1
	m.requests[req.ID] = stored
	return nil
}

func (m *Store) ListRequests(_ context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	employees := map[string]bool{}
	for _, id := range filter.EmployeeIDs {
		employees[id] = true
	}
	statuses := map[leave.RequestStatus]bool{}
	for _, st := range filter.Statuses {
		statuses[st] = true
	}

	out := []leave.LeaveRequest{}
	for _, req := range m.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if len(employees) > 0 && !employees[req.EmployeeID] {
			continue
		}
		if filter.LeaveTypeID != "" && req.LeaveTypeID != filter.LeaveTypeID {
			continue
		}
		if len(statuses) > 0 && !statuses[req.Status] {
			continue
		}
		if filter.From != nil && leave.DateOnly(req.EndDate).Before(leave.DateOnly(*filter.From)) {
			continue
		}
		if filter.To != nil && leave.DateOnly(req.StartDate).After(leave.DateOnly(*filter.To)) {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// --- catalog ---

func (m *Store) GetLeaveType(_ context.Context, leaveTypeID string) (leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lt, ok := m.types[leaveTypeID]
	if !ok {
		return leave.LeaveType{}, leave.ErrTypeNotFound
	}
	return lt, nil
}

func (m *Store) GetLeaveTypeByCode(_ context.Context, code string) (leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, lt := range m.types {
		if lt.Code == code {
			return lt, nil
		}
	}
	return leave.LeaveType{}, leave.ErrTypeNotFound
}

func (m *Store) ListLeaveTypes(_ context.Context) ([]leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.LeaveType, 0, len(m.types))
	for _, lt := range m.types {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Store) UpsertLeaveType(_ context.Context, lt leave.LeaveType) (leave.LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lt.ID == "" {
		lt.ID = uuid.NewString()
	}
	m.types[lt.ID] = lt
	return lt, nil
}

func (m *Store) FindEntitlement(_ context.Context, employeeID, leaveTypeID string) (leave.LeaveEntitlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var fallback *leave.LeaveEntitlement
	for _, ent := range m.entitlements {
		if ent.LeaveTypeID != leaveTypeID {
			continue
		}
		if ent.EmployeeID == employeeID && employeeID != "" {
			return ent, nil
		}
		if ent.IsDefault() {
			e := ent
			fallback = &e
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return leave.LeaveEntitlement{}, leave.ErrEntitlementNotFound
}

func (m *Store) ListEntitlements(_ context.Context) ([]leave.LeaveEntitlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.LeaveEntitlement, 0, len(m.entitlements))
	for _, ent := range m.entitlements {
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) UpsertEntitlement(_ context.Context, ent leave.LeaveEntitlement) (leave.LeaveEntitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.entitlements {
		if existing.EmployeeID == ent.EmployeeID && existing.LeaveTypeID == ent.LeaveTypeID {
			ent.ID = id
			ent.LastAccruedAt = existing.LastAccruedAt
		}
	}
	if ent.ID == "" {
		ent.ID = uuid.NewString()
	}
	m.entitlements[ent.ID] = ent
	return ent, nil
}

func (m *Store) ApplyAccrual(_ context.Context, entitlementID string, days decimal.Decimal, periodStart, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, ok := m.entitlements[entitlementID]
	if !ok {
		return false, leave.ErrEntitlementNotFound
	}
	key := entitlementID + "|" + periodStart.Format("2006-01")
	if m.accruals[key] {
		return false, nil
	}
	m.accruals[key] = true
	ent.Days = ent.Days.Add(days)
	accruedAt := at
	ent.LastAccruedAt = &accruedAt
	ent.UpdatedAt = at
	m.entitlements[entitlementID] = ent
	return true, nil
}

func (m *Store) CreateAdjustment(_ context.Context, adj leave.LeaveAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments = append(m.adjustments, adj)
	return nil
}

func (m *Store) ListAdjustments(_ context.Context, employeeID, leaveTypeID string) ([]leave.LeaveAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.LeaveAdjustment
	for _, adj := range m.adjustments {
		if adj.EmployeeID == employeeID && (leaveTypeID == "" || adj.LeaveTypeID == leaveTypeID) {
			out = append(out, adj)
		}
	}
	return out, nil
}

func (m *Store) RecordCarryOver(_ context.Context, entitlementID string, year int, adj leave.LeaveAdjustment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s|%d", entitlementID, year)
	if m.carryOvers[key] {
		return false, nil
	}
	m.carryOvers[key] = true
	m.adjustments = append(m.adjustments, adj)
	return true, nil
}

func (m *Store) UpsertApprovalConfig(_ context.Context, cfg leave.ApprovalConfig) (leave.ApprovalConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.configs {
		if existing.Code == cfg.Code {
			cfg.ID = id
		}
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.Levels = append([]leave.ApprovalLevel(nil), cfg.Levels...)
	m.configs[cfg.ID] = cfg
	return cfg, nil
}

func (m *Store) findConfig(match func(leave.ApprovalConfig) bool) (leave.ApprovalConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found []leave.ApprovalConfig
	for _, cfg := range m.configs {
		if match(cfg) {
			found = append(found, cfg)
		}
	}
	if len(found) == 0 {
		return leave.ApprovalConfig{}, leave.ErrConfigNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Code < found[j].Code })
	return found[0], nil
}

func (m *Store) FindApprovalConfigByLeaveType(_ context.Context, leaveTypeID string) (leave.ApprovalConfig, error) {
	if leaveTypeID == "" {
		return leave.ApprovalConfig{}, leave.ErrConfigNotFound
	}
	return m.findConfig(func(cfg leave.ApprovalConfig) bool { return cfg.IsActive && cfg.LeaveTypeID == leaveTypeID })
}

func (m *Store) FindApprovalConfigByDepartment(_ context.Context, departmentID string) (leave.ApprovalConfig, error) {
	if departmentID == "" {
		return leave.ApprovalConfig{}, leave.ErrConfigNotFound
	}
	return m.findConfig(func(cfg leave.ApprovalConfig) bool { return cfg.IsActive && cfg.DepartmentID == departmentID })
}

func (m *Store) FindApprovalConfigByCode(_ context.Context, code string) (leave.ApprovalConfig, error) {
	return m.findConfig(func(cfg leave.ApprovalConfig) bool { return cfg.Code == code })
}

func (m *Store) ListApprovalConfigs(_ context.Context) ([]leave.ApprovalConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.ApprovalConfig, 0, len(m.configs))
	for _, cfg := range m.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// --- calendars ---

func (m *Store) CreateCalendar(_ context.Context, cal leave.Calendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calendars[cal.ID] = copyCalendar(cal)
	return nil
}

func (m *Store) GetCalendar(_ context.Context, calendarID string) (leave.Calendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cal, ok := m.calendars[calendarID]
	if !ok {
		return leave.Calendar{}, leave.ErrCalendarNotFound
	}
	return copyCalendar(cal), nil
}

func (m *Store) ListCalendars(_ context.Context) ([]leave.Calendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.Calendar, 0, len(m.calendars))
	for _, cal := range m.calendars {
		out = append(out, copyCalendar(cal))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Country < out[j].Country
	})
	return out, nil
}

func (m *Store) AddHoliday(_ context.Context, calendarID string, holiday leave.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[calendarID]
	if !ok {
		return leave.ErrCalendarNotFound
	}
	cal.Holidays = append(cal.Holidays, holiday)
	m.calendars[calendarID] = cal
	return nil
}

func (m *Store) RemoveHoliday(_ context.Context, calendarID, holidayID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[calendarID]
	if !ok {
		return leave.ErrCalendarNotFound
	}
	for i, h := range cal.Holidays {
		if h.ID == holidayID {
			cal.Holidays = append(cal.Holidays[:i:i], cal.Holidays[i+1:]...)
			m.calendars[calendarID] = cal
			return nil
		}
	}
	return fmt.Errorf("holiday %w", leave.ErrNotFound)
}

func (m *Store) AddBlockedPeriod(_ context.Context, calendarID string, period leave.BlockedPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[calendarID]
	if !ok {
		return leave.ErrCalendarNotFound
	}
	if err := leave.CheckBlockedPeriodOverlap(cal.BlockedPeriods, period); err != nil {
		return err
	}
	cal.BlockedPeriods = append(cal.BlockedPeriods, period)
	m.calendars[calendarID] = cal
	return nil
}

func (m *Store) RemoveBlockedPeriod(_ context.Context, calendarID, periodID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[calendarID]
	if !ok {
		return leave.ErrCalendarNotFound
	}
	for i, bp := range cal.BlockedPeriods {
		if bp.ID == periodID {
			cal.BlockedPeriods = append(cal.BlockedPeriods[:i:i], cal.BlockedPeriods[i+1:]...)
			m.calendars[calendarID] = cal
			return nil
		}
	}
	return fmt.Errorf("blocked period %w", leave.ErrNotFound)
}

func copyCalendar(cal leave.Calendar) leave.Calendar {
	cal.Holidays = append([]leave.Holiday(nil), cal.Holidays...)
	cal.BlockedPeriods = append([]leave.BlockedPeriod(nil), cal.BlockedPeriods...)
	return cal
}

// --- delegations ---

func (m *Store) CreateDelegation(_ context.Context, d leave.ManagerDelegation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegations[d.ID] = d
	return nil
}

func (m *Store) RevokeDelegation(_ context.Context, delegationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.delegations[delegationID]
	if !ok {
		return leave.ErrDelegationNotFound
	}
	d.IsActive = false
	m.delegations[delegationID] = d
	return nil
}

func (m *Store) ListDelegationsByManager(_ context.Context, managerID string) ([]leave.ManagerDelegation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.ManagerDelegation
	for _, d := range m.delegations {
		if d.ManagerID == managerID {
			out = append(out, d)
		}
	}
	sortDelegations(out)
	return out, nil
}

func (m *Store) ListDelegations(_ context.Context) ([]leave.ManagerDelegation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.ManagerDelegation, 0, len(m.delegations))
	for _, d := range m.delegations {
		out = append(out, d)
	}
	sortDelegations(out)
	return out, nil
}

func sortDelegations(items []leave.ManagerDelegation) {
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
}
