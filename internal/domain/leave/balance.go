package leave

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is entitlement + adjustments - approved working days. Available may
// be negative after retroactive approvals.
type Balance struct {
	EmployeeID     string          `json:"employeeId"`
	LeaveTypeID    string          `json:"leaveTypeId"`
	Entitlement    decimal.Decimal `json:"entitlement"`
	Adjustments    decimal.Decimal `json:"adjustments"`
	Used           decimal.Decimal `json:"used"`
	Available      decimal.Decimal `json:"available"`
	HasEntitlement bool            `json:"hasEntitlement"`
}

type BalanceCalculator struct {
	Catalog  CatalogStore
	Requests RequestStore
}

func NewBalanceCalculator(catalog CatalogStore, requests RequestStore) *BalanceCalculator {
	return &BalanceCalculator{Catalog: catalog, Requests: requests}
}

func (c *BalanceCalculator) ComputeBalance(ctx context.Context, employeeID, leaveTypeID string) (Balance, error) {
	bal := Balance{EmployeeID: employeeID, LeaveTypeID: leaveTypeID}

	ent, err := c.Catalog.FindEntitlement(ctx, employeeID, leaveTypeID)
	switch {
	case err == nil:
		bal.Entitlement = ent.Days
		bal.HasEntitlement = true
	case errors.Is(err, ErrNotFound):
	default:
		return Balance{}, err
	}

	adjustments, err := c.Catalog.ListAdjustments(ctx, employeeID, leaveTypeID)
	if err != nil {
		return Balance{}, err
	}
	for _, adj := range adjustments {
		bal.Adjustments = bal.Adjustments.Add(adj.Change)
	}

	approved, err := c.Requests.ListRequests(ctx, RequestFilter{
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Statuses:    []RequestStatus{StatusApproved},
	})
	if err != nil {
		return Balance{}, err
	}
	for _, req := range approved {
		bal.Used = bal.Used.Add(decimal.NewFromInt(int64(req.WorkingDays)))
	}

	bal.Available = bal.Entitlement.Add(bal.Adjustments).Sub(bal.Used)
	return bal, nil
}

// CheckAndConvertToUnpaid compares the requested working days with the
// available balance. Without any entitlement the whole request is unpaid.
func (c *BalanceCalculator) CheckAndConvertToUnpaid(ctx context.Context, employeeID, leaveTypeID string, requested int, at time.Time) (BalanceCheck, error) {
	bal, err := c.ComputeBalance(ctx, employeeID, leaveTypeID)
	if err != nil {
		return BalanceCheck{}, err
	}
	req := decimal.NewFromInt(int64(requested))
	check := BalanceCheck{
		Requested:         req,
		Available:         bal.Available,
		ConvertedToUnpaid: decimal.Zero,
		HasEntitlement:    bal.HasEntitlement,
		CheckedAt:         at.UTC(),
	}
	if !bal.HasEntitlement {
		check.ConvertedToUnpaid = req
		return check, nil
	}
	usable := decimal.Max(bal.Available, decimal.Zero)
	if req.GreaterThan(usable) {
		check.ConvertedToUnpaid = req.Sub(usable)
	}
	return check, nil
}
