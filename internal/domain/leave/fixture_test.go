package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/leave/memory"
	"hrleave/internal/domain/notifications"
	"hrleave/internal/domain/org"
	"hrleave/internal/domain/payroll"
)

const (
	typeAnnual    = "lt-annual"
	typeSick      = "lt-sick"
	typeMaternity = "lt-maternity"
	typeMission   = "lt-mission"
	typeStudy     = "lt-study"
)

var (
	hr       = leave.Actor{EmployeeID: "hr1", IsHR: true}
	manager  = leave.Actor{EmployeeID: "m1"}
	delegate = leave.Actor{EmployeeID: "del1"}
	director = leave.Actor{EmployeeID: "dir1"}
	peer     = leave.Actor{EmployeeID: "e2"}
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	now      time.Time
	svc      *leave.Service
	store    *memory.Store
	dir      *org.Static
	audit    *audit.Service
	payroll  *payroll.MemoryStore
	notified *notifications.MemoryStore
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newFixture starts the clock on Monday 2025-03-03 09:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:   t,
		ctx: context.Background(),
		now: time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC),
	}

	f.dir = org.NewStatic()
	for _, pos := range []org.Position{
		{ID: "p-hr", DepartmentID: "hrd"},
		{ID: "p-dir", DepartmentID: "d1"},
		{ID: "p-mgr", DepartmentID: "d1", ReportsTo: "p-dir"},
		{ID: "p-del", DepartmentID: "d1", ReportsTo: "p-dir"},
		{ID: "p-e1", DepartmentID: "d1", ReportsTo: "p-mgr"},
		{ID: "p-e2", DepartmentID: "d1", ReportsTo: "p-mgr"},
	} {
		f.dir.AddPosition(pos)
	}
	f.dir.SetDepartmentHead("d1", "p-dir")
	for _, emp := range []org.Employee{
		{ID: "hr1", Name: "Hana", PositionID: "p-hr", DepartmentID: "hrd", HireDate: day(2015, 1, 1)},
		{ID: "dir1", Name: "Dara", PositionID: "p-dir", DepartmentID: "d1", HireDate: day(2016, 1, 1)},
		{ID: "m1", Name: "Mo", PositionID: "p-mgr", DepartmentID: "d1", HireDate: day(2018, 1, 1)},
		{ID: "del1", Name: "Dee", PositionID: "p-del", DepartmentID: "d1", HireDate: day(2019, 1, 1)},
		{ID: "e1", Name: "Eve", Gender: org.GenderFemale, PositionID: "p-e1", DepartmentID: "d1", Country: "US", HireDate: day(2020, 1, 15)},
		{ID: "e2", Name: "Eli", Gender: org.GenderMale, PositionID: "p-e2", DepartmentID: "d1", Country: "US", HireDate: day(2024, 12, 1)},
	} {
		f.dir.AddEmployee(emp)
	}

	f.store = memory.New()
	for _, lt := range []leave.LeaveType{
		{ID: typeAnnual, Code: "ANNUAL", Name: "Annual leave", IsPaid: true},
		{ID: typeSick, Code: leave.CodeSick, Name: "Sick leave", IsPaid: true, AllowPostLeave: true},
		{ID: typeMaternity, Code: leave.CodeMaternity, Name: "Maternity leave", IsPaid: true, PausesAccrual: true, MaxDurationDays: 120},
		{ID: typeMission, Code: leave.CodeMission, Name: "Mission", IsPaid: true},
		{ID: typeStudy, Code: "STUDY", Name: "Study leave", MinTenureMonths: 12, MaxDurationDays: 5},
	} {
		_, err := f.store.UpsertLeaveType(f.ctx, lt)
		require.NoError(t, err)
	}
	f.entitlement("", typeAnnual, 20)
	f.entitlement("", typeSick, 30)

	f.svc = leave.NewService(f.store, f.dir, leave.DefaultOptions())
	f.svc.SetClock(f.clock)

	f.audit = audit.New(audit.NewMemoryStore())
	f.audit.Now = f.clock
	f.svc.Audit = f.audit

	f.payroll = payroll.NewMemoryStore()
	f.svc.Payroll = payroll.NewPublisher(f.payroll, nil)
	f.notified = notifications.NewMemoryStore()
	f.svc.Notify = notifications.New(f.notified, nil)
	return f
}

func (f *fixture) clock() time.Time {
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) entitlement(employeeID, leaveTypeID string, days int64) leave.LeaveEntitlement {
	ent, err := f.store.UpsertEntitlement(f.ctx, leave.LeaveEntitlement{
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Days:        decimal.NewFromInt(days),
	})
	require.NoError(f.t, err)
	return ent
}

func (f *fixture) submit(employeeID, leaveTypeID string, start, end time.Time, opts ...func(*leave.SubmitInput)) (leave.LeaveRequest, error) {
	in := leave.SubmitInput{
		EmployeeID:    employeeID,
		LeaveTypeID:   leaveTypeID,
		StartDate:     start,
		EndDate:       end,
		Justification: "family trip",
	}
	for _, opt := range opts {
		opt(&in)
	}
	return f.svc.Submit(f.ctx, in)
}

func (f *fixture) mustSubmit(employeeID, leaveTypeID string, start, end time.Time, opts ...func(*leave.SubmitInput)) leave.LeaveRequest {
	f.t.Helper()
	req, err := f.submit(employeeID, leaveTypeID, start, end, opts...)
	require.NoError(f.t, err)
	return req
}

func (f *fixture) timelineActions(requestID string) []string {
	events, err := f.audit.Timeline(f.ctx, requestID)
	require.NoError(f.t, err)
	var actions []string
	for _, evt := range events {
		actions = append(actions, evt.Action)
	}
	return actions
}

func withAttachments(files ...string) func(*leave.SubmitInput) {
	return func(in *leave.SubmitInput) { in.Attachments = files }
}

func postLeave(in *leave.SubmitInput) {
	in.IsPostLeave = true
}

func ruleOf(err error) string {
	return leave.RuleOf(err)
}
