package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/leave"
)

func managerOnlyFlow(t *testing.T, f *fixture) {
	t.Helper()
	_, err := f.svc.ConfigureApprovalFlow(f.ctx, hr, leave.ApprovalConfig{
		Code:        "manager-only",
		LeaveTypeID: typeAnnual,
		Levels:      []leave.ApprovalLevel{{Level: 1, Type: leave.StepManager}},
		IsActive:    true,
	})
	require.NoError(t, err)
}

func TestEscalationMovesToNextRequiredStep(t *testing.T) {
	f := newFixture(t)
	esc := leave.NewEscalator(f.svc, leave.DefaultEscalationPolicy())
	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))

	f.advance(23 * time.Hour)
	summary, err := esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Zero(t, summary.Escalated)

	f.advance(2 * time.Hour)
	summary, err = esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Escalated)

	got, err := f.svc.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.Equal(t, leave.StepEscalated, got.Steps[0].Status)
	assert.Equal(t, leave.StepPending, got.Steps[1].Status)
	assert.Equal(t, 1, got.Meta.EscalationLevel)
	require.NotNil(t, got.Meta.LastEscalationCheck)
	assert.Equal(t, audit.ActionAutoEscalated, f.timelineActions(req.ID)[0])

	events, err := f.audit.Timeline(f.ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, events[0].EscalationLevel)
	assert.Equal(t, 1, *events[0].EscalationLevel)

	// the window restarts from the last check
	summary, err = esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, summary.Escalated)

	f.advance(25 * time.Hour)
	summary, err = esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Escalated)
	got, err = f.svc.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Meta.EscalationLevel)
	assert.Equal(t, leave.StepPending, got.Steps[1].Status)

	_, err = f.svc.Decide(f.ctx, manager, req.ID, leave.DecisionApprove, "")
	assert.ErrorIs(t, err, leave.ErrUnauthorized)
	got, err = f.svc.Decide(f.ctx, hr, req.ID, leave.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
}

func TestEscalationAppendsHRStepWhenChainIsExhausted(t *testing.T) {
	f := newFixture(t)
	managerOnlyFlow(t, f)
	esc := leave.NewEscalator(f.svc, leave.DefaultEscalationPolicy())
	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))
	require.Len(t, req.Steps, 1)

	f.advance(25 * time.Hour)
	summary, err := esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Escalated)

	got, err := f.svc.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, leave.StepEscalated, got.Steps[0].Status)
	assert.Equal(t, leave.StepHR, got.Steps[1].Type)
	assert.Equal(t, leave.StepPending, got.Steps[1].Status)
	assert.Equal(t, 2, got.Steps[1].Level)
}

func TestEscalationHoldPolicy(t *testing.T) {
	f := newFixture(t)
	managerOnlyFlow(t, f)
	esc := leave.NewEscalator(f.svc, leave.EscalationPolicy{OnExhausted: leave.ExhaustedHold})
	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))

	f.advance(25 * time.Hour)
	summary, err := esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Held)
	assert.Zero(t, summary.Escalated)

	got, err := f.svc.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, leave.StepPending, got.Steps[0].Status)
	assert.Zero(t, got.Meta.EscalationLevel)
	assert.Equal(t, []string{audit.ActionSubmitted}, f.timelineActions(req.ID))
}

func TestEscalationRejectPolicy(t *testing.T) {
	f := newFixture(t)
	managerOnlyFlow(t, f)
	esc := leave.NewEscalator(f.svc, leave.EscalationPolicy{OnExhausted: leave.ExhaustedReject, MaxLevel: 1})
	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))

	f.advance(25 * time.Hour)
	summary, err := esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Escalated)

	f.advance(25 * time.Hour)
	summary, err = esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rejected)

	got, err := f.svc.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, got.Status)
	assert.Equal(t, leave.StepRejected, got.Steps[0].Status)
	assert.Contains(t, got.DecisionReason, "automatically rejected")
	assert.Equal(t, audit.ActionRejected, f.timelineActions(req.ID)[0])

	// terminal requests are no longer scanned
	f.advance(48 * time.Hour)
	summary, err = esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)
}

func TestRejectPolicyWaitsForRemainingRequiredSteps(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfigureApprovalFlow(f.ctx, hr, leave.ApprovalConfig{
		Code:        "three-step",
		LeaveTypeID: typeAnnual,
		Levels: []leave.ApprovalLevel{
			{Level: 1, Type: leave.StepManager},
			{Level: 2, Type: leave.StepDepartmentHead},
			{Level: 3, Type: leave.StepHR},
		},
		IsActive: true,
	})
	require.NoError(t, err)
	esc := leave.NewEscalator(f.svc, leave.EscalationPolicy{OnExhausted: leave.ExhaustedReject, MaxLevel: 1})
	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))
	require.Len(t, req.Steps, 3)

	for i := 0; i < 2; i++ {
		f.advance(25 * time.Hour)
		summary, err := esc.RunEscalations(f.ctx, f.now)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Escalated)
		assert.Zero(t, summary.Rejected)
	}

	got, err := f.svc.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.Equal(t, leave.StepEscalated, got.Steps[0].Status)
	assert.Equal(t, leave.StepEscalated, got.Steps[1].Status)
	assert.Equal(t, leave.StepPending, got.Steps[2].Status)
	assert.Equal(t, 2, got.Meta.EscalationLevel)
	assert.Empty(t, got.DecisionReason)
}

func TestEscalationUsesStepHours(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfigureApprovalFlow(f.ctx, hr, leave.ApprovalConfig{
		Code:        "fast",
		LeaveTypeID: typeAnnual,
		Levels: []leave.ApprovalLevel{
			{Level: 1, Type: leave.StepManager, EscalationHours: 4},
			{Level: 2, Type: leave.StepDepartmentHead},
		},
		IsActive: true,
	})
	require.NoError(t, err)
	esc := leave.NewEscalator(f.svc, leave.DefaultEscalationPolicy())
	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))

	f.advance(5 * time.Hour)
	summary, err := esc.RunEscalations(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Escalated)

	got, err := f.svc.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StepPending, got.Steps[1].Status)

	got, err = f.svc.Decide(f.ctx, director, req.ID, leave.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
}
