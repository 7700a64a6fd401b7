package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hrleave/internal/domain/leave"
)

var defaultLeaveTypes = []leave.LeaveType{
	{Code: "ANNUAL", Name: "Annual leave", IsPaid: true},
	{Code: leave.CodeSick, Name: "Sick leave", IsPaid: true, AllowPostLeave: true},
	{Code: leave.CodeMaternity, Name: "Maternity leave", IsPaid: true, PausesAccrual: true, MaxDurationDays: 98},
	{Code: leave.CodeMission, Name: "Mission", IsPaid: true},
	{Code: "UNPAID", Name: "Unpaid leave"},
}

var defaultEntitlements = map[string]int64{
	"ANNUAL":            21,
	leave.CodeSick:      30,
	leave.CodeMaternity: 98,
}

// Seed installs the default leave types, their company-wide entitlements and
// the default approval configuration. Existing rows are left untouched.
func Seed(ctx context.Context, store leave.CatalogStore, approvalCode string) error {
	now := time.Now().UTC()
	for _, lt := range defaultLeaveTypes {
		existing, err := store.GetLeaveTypeByCode(ctx, lt.Code)
		switch {
		case err == nil:
			lt = existing
		case errors.Is(err, leave.ErrNotFound):
			lt.ID = uuid.NewString()
			lt.CreatedAt = now
			if lt, err = store.UpsertLeaveType(ctx, lt); err != nil {
				return err
			}
		default:
			return err
		}

		days, ok := defaultEntitlements[lt.Code]
		if !ok {
			continue
		}
		if _, err := store.FindEntitlement(ctx, "", lt.ID); err == nil {
			continue
		} else if !errors.Is(err, leave.ErrNotFound) {
			return err
		}
		if _, err := store.UpsertEntitlement(ctx, leave.LeaveEntitlement{
			LeaveTypeID: lt.ID,
			Days:        decimal.NewFromInt(days),
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
	}

	_, err := store.FindApprovalConfigByCode(ctx, approvalCode)
	if err == nil || !errors.Is(err, leave.ErrNotFound) {
		return err
	}
	_, err = store.UpsertApprovalConfig(ctx, leave.ApprovalConfig{
		ID:   uuid.NewString(),
		Code: approvalCode,
		Levels: []leave.ApprovalLevel{
			{Level: 1, Type: leave.StepManager},
			{Level: 2, Type: leave.StepHR},
		},
		HROverride: true,
		IsActive:   true,
		CreatedAt:  now,
	})
	return err
}
