package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/org"
)

func TestSupervisorSkipsVacantPositions(t *testing.T) {
	f := newFixture(t)
	f.dir.AddPosition(org.Position{ID: "p-vac", DepartmentID: "d1", ReportsTo: "p-dir"})
	f.dir.AddPosition(org.Position{ID: "p-e3", DepartmentID: "d1", ReportsTo: "p-vac"})
	f.dir.AddEmployee(org.Employee{ID: "e3", PositionID: "p-e3", DepartmentID: "d1", HireDate: day(2021, 1, 1)})

	req := f.mustSubmit("e3", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))
	assert.Equal(t, "dir1", req.Steps[0].ApproverID)

	_, err := f.svc.Decide(f.ctx, director, req.ID, leave.DecisionApprove, "")
	assert.NoError(t, err)
}

func TestHierarchyCycleYieldsNoApprover(t *testing.T) {
	f := newFixture(t)
	f.dir.AddPosition(org.Position{ID: "p-c1", DepartmentID: "d1", ReportsTo: "p-c2"})
	f.dir.AddPosition(org.Position{ID: "p-c2", DepartmentID: "d1", ReportsTo: "p-c1"})
	f.dir.AddPosition(org.Position{ID: "p-e4", DepartmentID: "d1", ReportsTo: "p-c1"})
	f.dir.AddEmployee(org.Employee{ID: "e4", PositionID: "p-e4", DepartmentID: "d1", HireDate: day(2021, 1, 1)})

	req := f.mustSubmit("e4", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))
	require.Len(t, req.Steps, 2)
	assert.Equal(t, leave.StepPending, req.Steps[0].Status)
	assert.Empty(t, req.Steps[0].ApproverID)

	_, err := f.svc.Decide(f.ctx, manager, req.ID, leave.DecisionApprove, "")
	assert.ErrorIs(t, err, leave.ErrUnauthorized)

	req, err = f.svc.Finalize(f.ctx, hr, req.ID, leave.DecisionApprove, "no manager on record")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, req.Status)
	assert.Equal(t, audit.ActionOverridden, f.timelineActions(req.ID)[0])
}

func TestApprovalConfigPrecedence(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfigureApprovalFlow(f.ctx, hr, leave.ApprovalConfig{
		Code:         "dept-flow",
		DepartmentID: "d1",
		Levels:       []leave.ApprovalLevel{{Level: 2, Type: leave.StepHR}, {Level: 1, Type: leave.StepDepartmentHead}},
		HROverride:   true,
		IsActive:     true,
	})
	require.NoError(t, err)
	_, err = f.svc.ConfigureApprovalFlow(f.ctx, hr, leave.ApprovalConfig{
		Code:        "sick-flow",
		LeaveTypeID: typeSick,
		Levels:      []leave.ApprovalLevel{{Level: 1, Type: leave.StepManager, EscalationHours: 8}},
		IsActive:    true,
	})
	require.NoError(t, err)

	annual := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))
	assert.Equal(t, "DEPT-FLOW", annual.ApprovalConfigCode)
	require.Len(t, annual.Steps, 2)
	assert.Equal(t, leave.StepDepartmentHead, annual.Steps[0].Type)
	assert.Equal(t, "dir1", annual.Steps[0].ApproverID)

	sick := f.mustSubmit("e1", typeSick, day(2025, 4, 7), day(2025, 4, 7))
	assert.Equal(t, "SICK-FLOW", sick.ApprovalConfigCode)
	require.Len(t, sick.Steps, 1)
	assert.Equal(t, 8, sick.Steps[0].EscalationHours)

	sick, err = f.svc.Decide(f.ctx, manager, sick.ID, leave.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, sick.Status)
}

func TestOptionalUnresolvedStepIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.dir.AddPosition(org.Position{ID: "p-coach", DepartmentID: "d1"})
	optional := false
	_, err := f.svc.ConfigureApprovalFlow(f.ctx, hr, leave.ApprovalConfig{
		Code:        "coached",
		LeaveTypeID: typeAnnual,
		Levels: []leave.ApprovalLevel{
			{Level: 1, Type: leave.StepCustom, PositionID: "p-coach", Required: &optional},
			{Level: 2, Type: leave.StepManager},
		},
		IsActive: true,
	})
	require.NoError(t, err)

	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))
	require.Len(t, req.Steps, 2)
	assert.Equal(t, leave.StepSkipped, req.Steps[0].Status)
	assert.Equal(t, leave.StepPending, req.Steps[1].Status)
	assert.Equal(t, 1, req.CurrentStep())
}

func TestCustomStepWithNamedEmployee(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfigureApprovalFlow(f.ctx, hr, leave.ApprovalConfig{
		Code:        "named",
		LeaveTypeID: typeAnnual,
		Levels:      []leave.ApprovalLevel{{Level: 1, Type: leave.StepCustom, EmployeeID: "del1"}},
		IsActive:    true,
	})
	require.NoError(t, err)

	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))
	assert.Equal(t, "del1", req.Steps[0].ApproverID)

	_, err = f.svc.Decide(f.ctx, manager, req.ID, leave.DecisionApprove, "")
	assert.ErrorIs(t, err, leave.ErrUnauthorized)
	req, err = f.svc.Decide(f.ctx, delegate, req.ID, leave.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, req.Status)
}

func TestConfigureApprovalFlowValidation(t *testing.T) {
	f := newFixture(t)
	bad := []leave.ApprovalConfig{
		{Code: "", Levels: []leave.ApprovalLevel{{Level: 1, Type: leave.StepHR}}},
		{Code: "empty"},
		{Code: "dup", Levels: []leave.ApprovalLevel{{Level: 1, Type: leave.StepHR}, {Level: 1, Type: leave.StepManager}}},
		{Code: "unknown", Levels: []leave.ApprovalLevel{{Level: 1, Type: "CEO"}}},
		{Code: "custom", Levels: []leave.ApprovalLevel{{Level: 1, Type: leave.StepCustom}}},
	}
	for _, cfg := range bad {
		_, err := f.svc.ConfigureApprovalFlow(f.ctx, hr, cfg)
		assert.ErrorIs(t, err, leave.ErrValidation, cfg.Code)
	}
	_, err := f.svc.ConfigureApprovalFlow(f.ctx, manager, leave.ApprovalConfig{Code: "x"})
	assert.ErrorIs(t, err, leave.ErrUnauthorized)
}
