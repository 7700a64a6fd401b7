package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hrleave/internal/domain/audit"
)

type AccrualSummary struct {
	Processed int             `json:"processed"`
	Accrued   int             `json:"accrued"`
	Paused    int             `json:"paused"`
	Days      decimal.Decimal `json:"days"`
}

// TriggerAccrual credits the monthly rate of every employee entitlement once
// for the month containing now. An employee on approved leave of a type that
// pauses accrual during the previous month gets nothing for that period.
func (s *Service) TriggerAccrual(ctx context.Context, now time.Time) (AccrualSummary, error) {
	ents, err := s.Store.ListEntitlements(ctx)
	if err != nil {
		return AccrualSummary{}, err
	}
	pausing, err := s.pausingTypes(ctx)
	if err != nil {
		return AccrualSummary{}, err
	}

	period := monthStart(now)
	prevStart := period.AddDate(0, -1, 0)
	prevEnd := period.AddDate(0, 0, -1)
	summary := AccrualSummary{Days: decimal.Zero}

	for _, ent := range ents {
		if ent.IsDefault() || ent.MonthlyAccrualRate == nil || !ent.MonthlyAccrualRate.IsPositive() {
			continue
		}
		summary.Processed++

		days := *ent.MonthlyAccrualRate
		paused, err := s.onPausingLeave(ctx, ent.EmployeeID, pausing, prevStart, prevEnd)
		if err != nil {
			slog.Warn("accrual pause lookup failed", "entitlementId", ent.ID, "err", err)
			continue
		}
		if paused {
			days = decimal.Zero
		}
		applied, err := s.Store.ApplyAccrual(ctx, ent.ID, days, period, now.UTC())
		if err != nil {
			slog.Warn("accrual failed", "entitlementId", ent.ID, "err", err)
			continue
		}
		if !applied {
			continue
		}
		if paused {
			summary.Paused++
			continue
		}
		summary.Accrued++
		summary.Days = summary.Days.Add(days)
		s.record(ctx, audit.Event{
			Action:     audit.ActionAccrued,
			EntityType: "leave_entitlement",
			EntityID:   ent.ID,
			Comment:    fmt.Sprintf("monthly accrual %s", period.Format("2006-01")),
		}, ent, map[string]any{"employeeId": ent.EmployeeID, "leaveTypeId": ent.LeaveTypeID, "days": days, "period": period})
	}
	return summary, nil
}

func (s *Service) pausingTypes(ctx context.Context) (map[string]bool, error) {
	types, err := s.Store.ListLeaveTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, lt := range types {
		if lt.PausesAccrual {
			out[lt.ID] = true
		}
	}
	return out, nil
}

func (s *Service) onPausingLeave(ctx context.Context, employeeID string, pausing map[string]bool, from, to time.Time) (bool, error) {
	if len(pausing) == 0 {
		return false, nil
	}
	reqs, err := s.Store.ListRequests(ctx, RequestFilter{
		EmployeeID: employeeID,
		Statuses:   []RequestStatus{StatusApproved},
		From:       &from,
		To:         &to,
	})
	if err != nil {
		return false, err
	}
	for _, req := range reqs {
		if pausing[req.LeaveTypeID] {
			return true, nil
		}
	}
	return false, nil
}

type CarryOverSummary struct {
	Year          int             `json:"year"`
	Processed     int             `json:"processed"`
	Deferred      int             `json:"deferred"`
	Forfeited     int             `json:"forfeited"`
	DaysForfeited decimal.Decimal `json:"daysForfeited"`
}

// TriggerCarryOver forfeits, for every employee entitlement with a cap, the
// balance above the cap carried out of year. Days above the cap stay usable
// for ExpiryMonths after January 1 of the next year; entitlements still inside
// that window are deferred and the unused excess is forfeited by a later run.
// Running it twice for the same year changes nothing.
func (s *Service) TriggerCarryOver(ctx context.Context, year int) (CarryOverSummary, error) {
	ents, err := s.Store.ListEntitlements(ctx)
	if err != nil {
		return CarryOverSummary{}, err
	}
	summary := CarryOverSummary{Year: year, DaysForfeited: decimal.Zero}
	now := s.Now().UTC()

	for _, ent := range ents {
		if ent.IsDefault() || ent.CarryOverCap == nil {
			continue
		}
		expiry := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, ent.ExpiryMonths, 0)
		if now.Before(expiry) {
			summary.Deferred++
			continue
		}
		summary.Processed++

		bal, err := s.Balances.ComputeBalance(ctx, ent.EmployeeID, ent.LeaveTypeID)
		if err != nil {
			slog.Warn("carry-over balance failed", "entitlementId", ent.ID, "err", err)
			continue
		}
		capDays := decimal.Max(*ent.CarryOverCap, decimal.Zero)
		if !bal.Available.GreaterThan(capDays) {
			continue
		}
		excess := bal.Available.Sub(capDays)
		adj := LeaveAdjustment{
			ID:            uuid.NewString(),
			EmployeeID:    ent.EmployeeID,
			LeaveTypeID:   ent.LeaveTypeID,
			Change:        excess.Neg(),
			Reason:        fmt.Sprintf("carry-over cap %d", year),
			AppliedBy:     "system",
			EffectiveDate: expiry,
			CreatedAt:     now,
		}
		applied, err := s.Store.RecordCarryOver(ctx, ent.ID, year, adj)
		if err != nil {
			slog.Warn("carry-over failed", "entitlementId", ent.ID, "err", err)
			continue
		}
		if !applied {
			continue
		}
		summary.Forfeited++
		summary.DaysForfeited = summary.DaysForfeited.Add(excess)
		s.record(ctx, audit.Event{
			Action:     audit.ActionCarriedOver,
			EntityType: "leave_entitlement",
			EntityID:   ent.ID,
			Comment:    adj.Reason,
		}, bal, adj)
	}
	return summary, nil
}
