package leave

import (
	"context"
	"time"
)

// ActiveFor reports whether the delegation covers the given moment, department
// and leave type. Empty scope lists match everything.
func (d ManagerDelegation) ActiveFor(at time.Time, departmentID, leaveTypeID string) bool {
	if !d.IsActive {
		return false
	}
	day := DateOnly(at)
	if day.Before(DateOnly(d.StartDate)) {
		return false
	}
	if d.EndDate != nil && day.After(DateOnly(*d.EndDate)) {
		return false
	}
	return inScope(d.Departments, departmentID) && inScope(d.LeaveTypes, leaveTypeID)
}

func inScope(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

type DelegationResolver struct {
	Store DelegationStore
}

func NewDelegationResolver(store DelegationStore) *DelegationResolver {
	return &DelegationResolver{Store: store}
}

// Resolve returns who acts for managerID at the given moment. Delegation is
// single hop: a delegate's own delegations are not followed. When several
// delegations match, the most recently created wins.
func (r *DelegationResolver) Resolve(ctx context.Context, managerID, departmentID, leaveTypeID string, at time.Time) (string, *ManagerDelegation, error) {
	if managerID == "" {
		return "", nil, nil
	}
	delegations, err := r.Store.ListDelegationsByManager(ctx, managerID)
	if err != nil {
		return "", nil, err
	}
	var match *ManagerDelegation
	for i := range delegations {
		d := delegations[i]
		if d.DelegateID == managerID || !d.ActiveFor(at, departmentID, leaveTypeID) {
			continue
		}
		if match == nil || d.CreatedAt.After(match.CreatedAt) {
			match = &d
		}
	}
	if match == nil {
		return managerID, nil, nil
	}
	return match.DelegateID, match, nil
}
