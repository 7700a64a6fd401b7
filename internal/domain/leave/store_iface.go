package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type RequestFilter struct {
	EmployeeID  string
	EmployeeIDs []string
	LeaveTypeID string
	Statuses    []RequestStatus
	// From/To select requests whose date range intersects [From, To].
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type RequestStore interface {
	// CreateRequest persists a new request after re-checking, against committed
	// state, that no open or approved request of the same employee overlaps it.
	CreateRequest(ctx context.Context, req LeaveRequest) error
	GetRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	// UpdateRequest writes req if the stored version still equals expectedVersion.
	UpdateRequest(ctx context.Context, req LeaveRequest, expectedVersion int) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
}

type CatalogStore interface {
	GetLeaveType(ctx context.Context, leaveTypeID string) (LeaveType, error)
	GetLeaveTypeByCode(ctx context.Context, code string) (LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)
	UpsertLeaveType(ctx context.Context, lt LeaveType) (LeaveType, error)

	// FindEntitlement returns the employee's own entitlement or the leave type default.
	FindEntitlement(ctx context.Context, employeeID, leaveTypeID string) (LeaveEntitlement, error)
	ListEntitlements(ctx context.Context) ([]LeaveEntitlement, error)
	UpsertEntitlement(ctx context.Context, ent LeaveEntitlement) (LeaveEntitlement, error)
	// ApplyAccrual adds days once per period; applied is false when the period was already accrued.
	ApplyAccrual(ctx context.Context, entitlementID string, days decimal.Decimal, periodStart, at time.Time) (bool, error)

	CreateAdjustment(ctx context.Context, adj LeaveAdjustment) error
	ListAdjustments(ctx context.Context, employeeID, leaveTypeID string) ([]LeaveAdjustment, error)
	// RecordCarryOver stores the forfeiture adjustment once per entitlement and year.
	RecordCarryOver(ctx context.Context, entitlementID string, year int, adj LeaveAdjustment) (bool, error)

	UpsertApprovalConfig(ctx context.Context, cfg ApprovalConfig) (ApprovalConfig, error)
	FindApprovalConfigByLeaveType(ctx context.Context, leaveTypeID string) (ApprovalConfig, error)
	FindApprovalConfigByDepartment(ctx context.Context, departmentID string) (ApprovalConfig, error)
	FindApprovalConfigByCode(ctx context.Context, code string) (ApprovalConfig, error)
	ListApprovalConfigs(ctx context.Context) ([]ApprovalConfig, error)
}

type CalendarStore interface {
	CreateCalendar(ctx context.Context, cal Calendar) error
	GetCalendar(ctx context.Context, calendarID string) (Calendar, error)
	ListCalendars(ctx context.Context) ([]Calendar, error)
	AddHoliday(ctx context.Context, calendarID string, holiday Holiday) error
	RemoveHoliday(ctx context.Context, calendarID, holidayID string) error
	// AddBlockedPeriod rejects a period overlapping another one of the same calendar.
	AddBlockedPeriod(ctx context.Context, calendarID string, period BlockedPeriod) error
	RemoveBlockedPeriod(ctx context.Context, calendarID, periodID string) error
}

type DelegationStore interface {
	CreateDelegation(ctx context.Context, d ManagerDelegation) error
	RevokeDelegation(ctx context.Context, delegationID string) error
	ListDelegationsByManager(ctx context.Context, managerID string) ([]ManagerDelegation, error)
	ListDelegations(ctx context.Context) ([]ManagerDelegation, error)
}

type Store interface {
	RequestStore
	CatalogStore
	CalendarStore
	DelegationStore
}
