package leave

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"hrleave/internal/domain/org"
)

const (
	maxHierarchyDepth = 32
	defaultConfigCode = "DEFAULT"
)

// Chain is a freshly built approval chain for one request.
type Chain struct {
	Steps      []ApprovalStep
	ConfigCode string
	HROverride bool
}

// FlowBuilder selects the approval configuration for a request and resolves
// each level to a concrete approver.
type FlowBuilder struct {
	Catalog                CatalogStore
	Directory              org.Directory
	Delegations            *DelegationResolver
	DefaultCode            string
	DefaultEscalationHours int
}

func NewFlowBuilder(catalog CatalogStore, directory org.Directory, delegations *DelegationResolver) *FlowBuilder {
	return &FlowBuilder{
		Catalog:                catalog,
		Directory:              directory,
		Delegations:            delegations,
		DefaultCode:            "STANDARD",
		DefaultEscalationHours: 24,
	}
}

// ResolveConfig picks the active configuration bound to the leave type, then
// the department, then the default code. found is false when none exists.
func (b *FlowBuilder) ResolveConfig(ctx context.Context, leaveTypeID, departmentID string) (ApprovalConfig, bool, error) {
	lookups := []func() (ApprovalConfig, error){
		func() (ApprovalConfig, error) { return b.Catalog.FindApprovalConfigByLeaveType(ctx, leaveTypeID) },
		func() (ApprovalConfig, error) { return b.Catalog.FindApprovalConfigByDepartment(ctx, departmentID) },
		func() (ApprovalConfig, error) { return b.Catalog.FindApprovalConfigByCode(ctx, b.DefaultCode) },
	}
	for _, lookup := range lookups {
		cfg, err := lookup()
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return ApprovalConfig{}, false, err
		}
		if cfg.IsActive && len(cfg.Levels) > 0 {
			return cfg, true, nil
		}
	}
	return ApprovalConfig{}, false, nil
}

func defaultLevels() []ApprovalLevel {
	return []ApprovalLevel{
		{Level: 1, Type: StepManager},
		{Level: 2, Type: StepHR},
	}
}

// Build creates the steps for a new request. Optional steps without an
// approver are SKIPPED; required ones stay WAITING and are resolved again when
// they are reached. The first non-skipped step is PENDING.
func (b *FlowBuilder) Build(ctx context.Context, emp org.Employee, lt LeaveType, at time.Time) (Chain, error) {
	cfg, found, err := b.ResolveConfig(ctx, lt.ID, emp.DepartmentID)
	if err != nil {
		return Chain{}, err
	}
	chain := Chain{ConfigCode: defaultConfigCode, HROverride: true}
	levels := defaultLevels()
	if found {
		chain.ConfigCode = cfg.Code
		chain.HROverride = cfg.HROverride
		levels = append([]ApprovalLevel(nil), cfg.Levels...)
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

	for _, level := range levels {
		step := ApprovalStep{
			Level:           level.Level,
			Type:            level.Type,
			Status:          StepWaiting,
			Required:        level.IsRequired(),
			EscalationHours: level.EscalationHours,
			PositionID:      level.PositionID,
			DepartmentID:    level.DepartmentID,
		}
		if step.EscalationHours <= 0 {
			step.EscalationHours = b.DefaultEscalationHours
		}
		if level.Type == StepCustom && level.EmployeeID != "" {
			step.ApproverID = level.EmployeeID
		}
		approver, delegatedFrom, err := b.resolve(ctx, step, emp, lt.ID, at)
		if err != nil {
			return Chain{}, err
		}
		step.ApproverID, step.DelegatedFrom = approver, delegatedFrom
		if step.Type != StepHR && approver == "" && !step.Required {
			step.Status = StepSkipped
		}
		chain.Steps = append(chain.Steps, step)
	}

	if activateNext(chain.Steps, -1, at) < 0 {
		chain.Steps = append(chain.Steps, b.hrStep(chain.Steps, at))
	}
	return chain, nil
}

func (b *FlowBuilder) hrStep(steps []ApprovalStep, at time.Time) ApprovalStep {
	level := 1
	if len(steps) > 0 {
		level = steps[len(steps)-1].Level + 1
	}
	activated := at.UTC()
	return ApprovalStep{
		Level:           level,
		Type:            StepHR,
		Status:          StepPending,
		Required:        true,
		EscalationHours: b.DefaultEscalationHours,
		ActivatedAt:     &activated,
	}
}

// activateNext marks the first WAITING step after index from as PENDING and
// returns its index, or -1.
func activateNext(steps []ApprovalStep, from int, at time.Time) int {
	for i := from + 1; i < len(steps); i++ {
		if steps[i].Status == StepWaiting {
			activated := at.UTC()
			steps[i].Status = StepPending
			steps[i].ActivatedAt = &activated
			return i
		}
	}
	return -1
}

// resolve returns the approver for a step. HR steps have no individual
// approver; MANAGER steps follow an active delegation.
func (b *FlowBuilder) resolve(ctx context.Context, step ApprovalStep, emp org.Employee, leaveTypeID string, at time.Time) (string, string, error) {
	switch step.Type {
	case StepManager:
		supervisor, err := b.SupervisorOf(ctx, emp)
		if err != nil || supervisor == "" {
			return "", "", err
		}
		return b.delegate(ctx, supervisor, emp.DepartmentID, leaveTypeID, at)
	case StepDepartmentHead:
		departmentID := step.DepartmentID
		if departmentID == "" {
			departmentID = emp.DepartmentID
		}
		pos, err := b.Directory.GetDepartmentHead(ctx, departmentID)
		if errors.Is(err, org.ErrPositionNotFound) {
			return "", "", nil
		}
		if err != nil {
			return "", "", err
		}
		if pos.HolderID == emp.ID {
			supervisor, err := b.SupervisorOf(ctx, emp)
			return supervisor, "", err
		}
		return pos.HolderID, "", nil
	case StepCustom:
		if step.ApproverID != "" {
			return step.ApproverID, "", nil
		}
		if step.PositionID == "" {
			return "", "", nil
		}
		pos, err := b.Directory.GetPosition(ctx, step.PositionID)
		if errors.Is(err, org.ErrPositionNotFound) {
			return "", "", nil
		}
		if err != nil {
			return "", "", err
		}
		if pos.HolderID == emp.ID {
			return "", "", nil
		}
		return pos.HolderID, "", nil
	}
	return "", "", nil
}

func (b *FlowBuilder) delegate(ctx context.Context, managerID, departmentID, leaveTypeID string, at time.Time) (string, string, error) {
	if b.Delegations == nil {
		return managerID, "", nil
	}
	effective, d, err := b.Delegations.Resolve(ctx, managerID, departmentID, leaveTypeID, at)
	if err != nil {
		return "", "", err
	}
	if d == nil {
		return managerID, "", nil
	}
	return effective, managerID, nil
}

// SupervisorOf walks up the position hierarchy from the employee's position
// and returns the first holder that is not the employee. Vacant positions are
// skipped. A cycle or an over-deep chain yields no supervisor.
func (b *FlowBuilder) SupervisorOf(ctx context.Context, emp org.Employee) (string, error) {
	pos, err := b.Directory.GetSupervisorPosition(ctx, emp.ID)
	if errors.Is(err, org.ErrPositionNotFound) || errors.Is(err, org.ErrEmployeeNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	visited := map[string]bool{}
	if emp.PositionID != "" {
		visited[emp.PositionID] = true
	}
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		if visited[pos.ID] {
			slog.Warn("position hierarchy cycle", "employeeId", emp.ID, "positionId", pos.ID)
			return "", nil
		}
		visited[pos.ID] = true
		if !pos.Vacant() && pos.HolderID != emp.ID {
			return pos.HolderID, nil
		}
		if pos.ReportsTo == "" {
			return "", nil
		}
		pos, err = b.Directory.GetPosition(ctx, pos.ReportsTo)
		if errors.Is(err, org.ErrPositionNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
	}
	slog.Warn("position hierarchy too deep", "employeeId", emp.ID)
	return "", nil
}

// Authorization is the outcome of CanApproveStep. OnBehalfOf is set when the
// actor acts as a delegate.
type Authorization struct {
	Allowed    bool
	OnBehalfOf string
}

// CanApproveStep decides whether actor may decide the given step right now.
// Delegation and missing approvers are re-resolved at decision time.
func (b *FlowBuilder) CanApproveStep(ctx context.Context, actor Actor, req LeaveRequest, step ApprovalStep, at time.Time) (Authorization, error) {
	if step.Status != StepPending || actor.EmployeeID == "" || actor.EmployeeID == req.EmployeeID {
		return Authorization{}, nil
	}
	switch step.Type {
	case StepHR:
		return Authorization{Allowed: actor.IsHR}, nil
	case StepManager:
		manager := step.DelegatedFrom
		if manager == "" {
			manager = step.ApproverID
		}
		if manager == "" {
			emp, err := b.Directory.GetEmployee(ctx, req.EmployeeID)
			if err != nil {
				return Authorization{}, err
			}
			if manager, err = b.SupervisorOf(ctx, emp); err != nil {
				return Authorization{}, err
			}
		}
		if manager == "" {
			return Authorization{}, nil
		}
		effective, delegatedFrom, err := b.delegate(ctx, manager, req.DepartmentID, req.LeaveTypeID, at)
		if err != nil {
			return Authorization{}, err
		}
		if actor.EmployeeID != effective {
			return Authorization{}, nil
		}
		return Authorization{Allowed: true, OnBehalfOf: delegatedFrom}, nil
	default:
		expected := step.ApproverID
		if expected == "" {
			emp, err := b.Directory.GetEmployee(ctx, req.EmployeeID)
			if err != nil {
				return Authorization{}, err
			}
			if expected, _, err = b.resolve(ctx, step, emp, req.LeaveTypeID, at); err != nil {
				return Authorization{}, err
			}
		}
		return Authorization{Allowed: expected != "" && expected == actor.EmployeeID}, nil
	}
}
