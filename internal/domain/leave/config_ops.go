package leave

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrleave/internal/domain/audit"
)

func (s *Service) ListLeaveTypes(ctx context.Context) ([]LeaveType, error) {
	return s.Store.ListLeaveTypes(ctx)
}

// ConfigureLeaveType creates or updates a leave type. Codes are unique and
// stored upper-case.
func (s *Service) ConfigureLeaveType(ctx context.Context, actor Actor, lt LeaveType) (LeaveType, error) {
	if !actor.IsHR {
		return LeaveType{}, ErrUnauthorized
	}
	lt.Code = strings.ToUpper(strings.TrimSpace(lt.Code))
	lt.Name = strings.TrimSpace(lt.Name)
	if lt.Code == "" || lt.Name == "" {
		return LeaveType{}, validationf(RuleInput, "leave type code and name are required")
	}
	if lt.MinTenureMonths < 0 || lt.MaxDurationDays < 0 {
		return LeaveType{}, validationf(RuleInput, "tenure and duration limits must not be negative")
	}
	var before any
	existing, err := s.Store.GetLeaveTypeByCode(ctx, lt.Code)
	switch {
	case err == nil:
		if lt.ID != "" && lt.ID != existing.ID {
			return LeaveType{}, validationf(RuleInput, "leave type code %s already exists", lt.Code)
		}
		lt.ID = existing.ID
		lt.CreatedAt = existing.CreatedAt
		before = existing
	case errors.Is(err, ErrNotFound):
		if lt.ID == "" {
			lt.ID = uuid.NewString()
		}
		lt.CreatedAt = s.Now().UTC()
	default:
		return LeaveType{}, err
	}

	saved, err := s.Store.UpsertLeaveType(ctx, lt)
	if err != nil {
		return LeaveType{}, err
	}
	s.configChanged(ctx, actor, "leave_type", saved.ID, before, saved)
	return saved, nil
}

// ConfigureEntitlement stores an employee entitlement, or the leave type
// default when EmployeeID is empty.
func (s *Service) ConfigureEntitlement(ctx context.Context, actor Actor, ent LeaveEntitlement) (LeaveEntitlement, error) {
	if !actor.IsHR {
		return LeaveEntitlement{}, ErrUnauthorized
	}
	if ent.Days.IsNegative() {
		return LeaveEntitlement{}, validationf(RuleInput, "entitlement days must not be negative")
	}
	if ent.MonthlyAccrualRate != nil && ent.MonthlyAccrualRate.IsNegative() {
		return LeaveEntitlement{}, validationf(RuleInput, "accrual rate must not be negative")
	}
	if ent.CarryOverCap != nil && ent.CarryOverCap.IsNegative() {
		return LeaveEntitlement{}, validationf(RuleInput, "carry-over cap must not be negative")
	}
	if ent.ExpiryMonths < 0 || ent.ExpiryMonths > 11 {
		return LeaveEntitlement{}, validationf(RuleInput, "expiry months must be between 0 and 11")
	}
	if _, err := s.Store.GetLeaveType(ctx, ent.LeaveTypeID); err != nil {
		return LeaveEntitlement{}, err
	}
	if ent.EmployeeID != "" {
		if _, err := s.employee(ctx, ent.EmployeeID); err != nil {
			return LeaveEntitlement{}, err
		}
	}
	ent.UpdatedAt = s.Now().UTC()
	saved, err := s.Store.UpsertEntitlement(ctx, ent)
	if err != nil {
		return LeaveEntitlement{}, err
	}
	s.configChanged(ctx, actor, "leave_entitlement", saved.ID, nil, saved)
	return saved, nil
}

func (s *Service) ListEntitlements(ctx context.Context) ([]LeaveEntitlement, error) {
	return s.Store.ListEntitlements(ctx)
}

// ConfigureApprovalFlow stores an approval configuration. Levels must be
// distinct, of a known type, and CUSTOM levels need a position or employee.
func (s *Service) ConfigureApprovalFlow(ctx context.Context, actor Actor, cfg ApprovalConfig) (ApprovalConfig, error) {
	if !actor.IsHR {
		return ApprovalConfig{}, ErrUnauthorized
	}
	cfg.Code = strings.ToUpper(strings.TrimSpace(cfg.Code))
	if cfg.Code == "" {
		return ApprovalConfig{}, validationf(RuleInput, "approval config code is required")
	}
	if len(cfg.Levels) == 0 {
		return ApprovalConfig{}, validationf(RuleInput, "approval config needs at least one level")
	}
	seen := map[int]bool{}
	for _, level := range cfg.Levels {
		if level.Level <= 0 || seen[level.Level] {
			return ApprovalConfig{}, validationf(RuleInput, "approval levels must be positive and distinct")
		}
		seen[level.Level] = true
		if !level.Type.Valid() {
			return ApprovalConfig{}, validationf(RuleInput, "unknown approval step type %q", level.Type)
		}
		if level.Type == StepCustom && level.PositionID == "" && level.EmployeeID == "" {
			return ApprovalConfig{}, validationf(RuleInput, "custom level %d needs a position or employee", level.Level)
		}
		if level.EscalationHours < 0 {
			return ApprovalConfig{}, validationf(RuleInput, "escalation hours must not be negative")
		}
	}
	sort.SliceStable(cfg.Levels, func(i, j int) bool { return cfg.Levels[i].Level < cfg.Levels[j].Level })
	if cfg.LeaveTypeID != "" {
		if _, err := s.Store.GetLeaveType(ctx, cfg.LeaveTypeID); err != nil {
			return ApprovalConfig{}, err
		}
	}

	var before any
	existing, err := s.Store.FindApprovalConfigByCode(ctx, cfg.Code)
	switch {
	case err == nil:
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		before = existing
	case errors.Is(err, ErrNotFound):
		cfg.ID = uuid.NewString()
		cfg.CreatedAt = s.Now().UTC()
	default:
		return ApprovalConfig{}, err
	}
	saved, err := s.Store.UpsertApprovalConfig(ctx, cfg)
	if err != nil {
		return ApprovalConfig{}, err
	}
	s.configChanged(ctx, actor, "approval_config", saved.ID, before, saved)
	return saved, nil
}

func (s *Service) ListApprovalFlows(ctx context.Context) ([]ApprovalConfig, error) {
	return s.Store.ListApprovalConfigs(ctx)
}

type DelegationInput struct {
	ManagerID   string
	DelegateID  string
	StartDate   time.Time
	EndDate     *time.Time
	Departments []string
	LeaveTypes  []string
}

// CreateDelegation is allowed to HR and to the delegating manager.
func (s *Service) CreateDelegation(ctx context.Context, actor Actor, in DelegationInput) (ManagerDelegation, error) {
	if !actor.IsHR && actor.EmployeeID != in.ManagerID {
		return ManagerDelegation{}, ErrUnauthorized
	}
	if in.ManagerID == "" || in.DelegateID == "" {
		return ManagerDelegation{}, validationf(RuleInput, "manager and delegate are required")
	}
	if in.ManagerID == in.DelegateID {
		return ManagerDelegation{}, validationf(RuleInput, "a manager cannot delegate to themselves")
	}
	if in.StartDate.IsZero() {
		return ManagerDelegation{}, validationf(RuleInput, "delegation start date is required")
	}
	if in.EndDate != nil && DateOnly(*in.EndDate).Before(DateOnly(in.StartDate)) {
		return ManagerDelegation{}, validationf(RuleDateRange, "delegation end date must not be before start date")
	}
	for _, id := range []string{in.ManagerID, in.DelegateID} {
		if _, err := s.employee(ctx, id); err != nil {
			return ManagerDelegation{}, err
		}
	}
	d := ManagerDelegation{
		ID:          uuid.NewString(),
		ManagerID:   in.ManagerID,
		DelegateID:  in.DelegateID,
		StartDate:   DateOnly(in.StartDate),
		IsActive:    true,
		Departments: in.Departments,
		LeaveTypes:  in.LeaveTypes,
		CreatedAt:   s.Now().UTC(),
	}
	if in.EndDate != nil {
		end := DateOnly(*in.EndDate)
		d.EndDate = &end
	}
	if err := s.Store.CreateDelegation(ctx, d); err != nil {
		return ManagerDelegation{}, err
	}
	s.configChanged(ctx, actor, "manager_delegation", d.ID, nil, d)
	return d, nil
}

func (s *Service) RevokeDelegation(ctx context.Context, actor Actor, delegationID string) error {
	delegations, err := s.Store.ListDelegations(ctx)
	if err != nil {
		return err
	}
	var found *ManagerDelegation
	for i := range delegations {
		if delegations[i].ID == delegationID {
			found = &delegations[i]
			break
		}
	}
	if found == nil {
		return ErrDelegationNotFound
	}
	if !actor.IsHR && actor.EmployeeID != found.ManagerID {
		return ErrUnauthorized
	}
	if err := s.Store.RevokeDelegation(ctx, delegationID); err != nil {
		return err
	}
	after := *found
	after.IsActive = false
	s.configChanged(ctx, actor, "manager_delegation", delegationID, *found, after)
	return nil
}

// ListDelegations returns all delegations for HR, otherwise the actor's own.
func (s *Service) ListDelegations(ctx context.Context, actor Actor) ([]ManagerDelegation, error) {
	if actor.IsHR {
		return s.Store.ListDelegations(ctx)
	}
	return s.Store.ListDelegationsByManager(ctx, actor.EmployeeID)
}

func (s *Service) configChanged(ctx context.Context, actor Actor, entityType, entityID string, before, after any) {
	s.record(ctx, audit.Event{
		Action:     audit.ActionConfigChanged,
		ActorID:    actor.EmployeeID,
		EntityType: entityType,
		EntityID:   entityID,
	}, before, after)
}
