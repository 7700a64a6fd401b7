package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/notifications"
	"hrleave/internal/domain/org"
	"hrleave/internal/domain/payroll"
	"hrleave/internal/requestctx"
)

type AuditRecorder interface {
	Record(ctx context.Context, evt audit.Event, before, after any) error
}

type Notifier interface {
	Create(ctx context.Context, recipientID, ntype, title, body string) error
}

type PayrollPublisher interface {
	Publish(ctx context.Context, evt payroll.Event)
}

type Metrics interface {
	LeaveSubmitted()
	LeaveDecided()
	EscalationSweep(escalated, failed int)
}

type Options struct {
	Rules                  Rules
	DefaultApprovalCode    string
	DefaultEscalationHours int
}

func DefaultOptions() Options {
	return Options{
		Rules:                  DefaultRules(),
		DefaultApprovalCode:    "STANDARD",
		DefaultEscalationHours: 24,
	}
}

// Service is the leave request state machine together with the balance,
// accrual and configuration operations around it.
type Service struct {
	Store       Store
	Directory   org.Directory
	Calendar    *CalendarService
	Balances    *BalanceCalculator
	Validator   *Validator
	Flow        *FlowBuilder
	Delegations *DelegationResolver

	Audit   AuditRecorder
	Notify  Notifier
	Payroll PayrollPublisher
	Metrics Metrics
	Now     func() time.Time

	employeeLocks keyedMutex
}

func NewService(store Store, directory org.Directory, opts Options) *Service {
	calendar := NewCalendarService(store, directory)
	delegations := NewDelegationResolver(store)
	flow := NewFlowBuilder(store, directory, delegations)
	if opts.DefaultApprovalCode != "" {
		flow.DefaultCode = opts.DefaultApprovalCode
	}
	if opts.DefaultEscalationHours > 0 {
		flow.DefaultEscalationHours = opts.DefaultEscalationHours
	}
	return &Service{
		Store:       store,
		Directory:   directory,
		Calendar:    calendar,
		Balances:    NewBalanceCalculator(store, store),
		Validator:   NewValidator(opts.Rules, calendar, store),
		Flow:        flow,
		Delegations: delegations,
		Now:         time.Now,
	}
}

// SetClock replaces the time source of the service and its components.
func (s *Service) SetClock(now func() time.Time) {
	s.Now = now
	s.Calendar.Now = now
}

type SubmitInput struct {
	EmployeeID     string
	LeaveTypeID    string
	StartDate      time.Time
	EndDate        time.Time
	Justification  string
	Attachments    []string
	MissionDetails map[string]string
	IsPostLeave    bool
	SubmittedBy    string
}

type EditInput struct {
	StartDate      *time.Time
	EndDate        *time.Time
	Justification  *string
	Attachments    *[]string
	MissionDetails map[string]string
}

func (s *Service) Submit(ctx context.Context, in SubmitInput) (LeaveRequest, error) {
	if strings.TrimSpace(in.EmployeeID) == "" || strings.TrimSpace(in.LeaveTypeID) == "" {
		return LeaveRequest{}, validationf(RuleInput, "employee and leave type are required")
	}
	emp, err := s.employee(ctx, in.EmployeeID)
	if err != nil {
		return LeaveRequest{}, err
	}
	lt, err := s.Store.GetLeaveType(ctx, in.LeaveTypeID)
	if err != nil {
		return LeaveRequest{}, err
	}

	unlock := s.employeeLocks.Lock(emp.ID)
	defer unlock()

	now := s.Now()
	start, end := DateOnly(in.StartDate), DateOnly(in.EndDate)
	working, err := s.Calendar.TotalWorkingDays(ctx, emp.ID, start, end)
	if err != nil {
		return LeaveRequest{}, err
	}
	candidate := Candidate{
		Employee:       emp,
		LeaveType:      lt,
		StartDate:      start,
		EndDate:        end,
		TotalDays:      TotalCalendarDays(start, end),
		WorkingDays:    working,
		Attachments:    in.Attachments,
		MissionDetails: in.MissionDetails,
		IsPostLeave:    in.IsPostLeave,
	}
	if err := s.Validator.Validate(ctx, candidate, now); err != nil {
		return LeaveRequest{}, err
	}

	chain, err := s.Flow.Build(ctx, emp, lt, now)
	if err != nil {
		return LeaveRequest{}, err
	}
	check, err := s.Balances.CheckAndConvertToUnpaid(ctx, emp.ID, lt.ID, working, now)
	if err != nil {
		return LeaveRequest{}, err
	}

	submittedBy := in.SubmittedBy
	if submittedBy == "" {
		submittedBy = emp.ID
	}
	req := LeaveRequest{
		ID:                    uuid.NewString(),
		EmployeeID:            emp.ID,
		DepartmentID:          emp.DepartmentID,
		LeaveTypeID:           lt.ID,
		LeaveTypeCode:         lt.Code,
		StartDate:             start,
		EndDate:               end,
		TotalDays:             candidate.TotalDays,
		WorkingDays:           working,
		Justification:         strings.TrimSpace(in.Justification),
		Attachments:           in.Attachments,
		MissionDetails:        in.MissionDetails,
		Status:                StatusPending,
		Steps:                 chain.Steps,
		SubmittedBy:           submittedBy,
		IsPostLeave:           in.IsPostLeave,
		ConvertedToUnpaidDays: check.ConvertedToUnpaid,
		ApprovalConfigCode:    chain.ConfigCode,
		HROverride:            chain.HROverride,
		Meta:                  RequestMeta{BalanceCheck: &check},
		Version:               1,
		CreatedAt:             now.UTC(),
		UpdatedAt:             now.UTC(),
	}
	if err := s.Store.CreateRequest(ctx, req); err != nil {
		return LeaveRequest{}, err
	}

	s.record(ctx, audit.Event{RequestID: req.ID, Action: audit.ActionSubmitted, ActorID: submittedBy}, nil, req)
	s.notifyApprover(ctx, req, notifications.TypeLeaveAwaitingApproval)
	if req.ConvertedToUnpaidDays.IsPositive() {
		s.notify(ctx, req.EmployeeID, notifications.TypeLeaveUnpaid, "Leave partly unpaid",
			fmt.Sprintf("%s working days of your request exceed your balance and will be unpaid.", req.ConvertedToUnpaidDays.String()))
		s.publish(ctx, payroll.EventUnpaidConversion, req)
	}
	if s.Metrics != nil {
		s.Metrics.LeaveSubmitted()
	}
	return req, nil
}

// Edit changes a PENDING request of the requester. Changed dates trigger a
// full revalidation, ignoring the request itself for the overlap check, and a
// fresh balance check. Other edits only re-check attachments and mission details.
func (s *Service) Edit(ctx context.Context, requesterID, requestID string, in EditInput) (LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.EmployeeID != requesterID {
		return LeaveRequest{}, ErrUnauthorized
	}

	unlock := s.employeeLocks.Lock(req.EmployeeID)
	defer unlock()

	if req, err = s.Store.GetRequest(ctx, requestID); err != nil {
		return LeaveRequest{}, err
	}
	if req.Status != StatusPending {
		return LeaveRequest{}, fmt.Errorf("%w: only pending requests can be edited", ErrInvalidState)
	}

	before := req.Clone()
	expected := req.Version
	now := s.Now()

	datesChanged := false
	if in.StartDate != nil && !DateOnly(*in.StartDate).Equal(req.StartDate) {
		req.StartDate = DateOnly(*in.StartDate)
		datesChanged = true
	}
	if in.EndDate != nil && !DateOnly(*in.EndDate).Equal(req.EndDate) {
		req.EndDate = DateOnly(*in.EndDate)
		datesChanged = true
	}
	if in.Justification != nil {
		req.Justification = strings.TrimSpace(*in.Justification)
	}
	if in.Attachments != nil {
		req.Attachments = *in.Attachments
	}
	if in.MissionDetails != nil {
		req.MissionDetails = in.MissionDetails
	}

	emp, err := s.employee(ctx, req.EmployeeID)
	if err != nil {
		return LeaveRequest{}, err
	}
	lt, err := s.Store.GetLeaveType(ctx, req.LeaveTypeID)
	if err != nil {
		return LeaveRequest{}, err
	}
	candidate := Candidate{
		Employee:         emp,
		LeaveType:        lt,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		TotalDays:        req.TotalDays,
		WorkingDays:      req.WorkingDays,
		Attachments:      req.Attachments,
		MissionDetails:   req.MissionDetails,
		IsPostLeave:      req.IsPostLeave,
		ExcludeRequestID: req.ID,
	}
	if !datesChanged {
		if err := s.Validator.ValidateContent(candidate); err != nil {
			return LeaveRequest{}, err
		}
	} else {
		working, err := s.Calendar.TotalWorkingDays(ctx, emp.ID, req.StartDate, req.EndDate)
		if err != nil {
			return LeaveRequest{}, err
		}
		req.TotalDays = TotalCalendarDays(req.StartDate, req.EndDate)
		req.WorkingDays = working
		candidate.TotalDays, candidate.WorkingDays = req.TotalDays, working
		if err := s.Validator.Validate(ctx, candidate, now); err != nil {
			return LeaveRequest{}, err
		}
		check, err := s.Balances.CheckAndConvertToUnpaid(ctx, emp.ID, lt.ID, working, now)
		if err != nil {
			return LeaveRequest{}, err
		}
		req.Meta.BalanceCheck = &check
		req.ConvertedToUnpaidDays = check.ConvertedToUnpaid
	}
	req.UpdatedAt = now.UTC()

	if err := s.Store.UpdateRequest(ctx, req, expected); err != nil {
		return LeaveRequest{}, err
	}
	req.Version = expected + 1
	s.record(ctx, audit.Event{RequestID: req.ID, Action: audit.ActionEdited, ActorID: requesterID}, before, req)
	return req, nil
}

func (s *Service) Cancel(ctx context.Context, requesterID, requestID string) (LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.EmployeeID != requesterID {
		return LeaveRequest{}, ErrUnauthorized
	}
	if req.Status != StatusPending {
		return LeaveRequest{}, fmt.Errorf("%w: only pending requests can be cancelled", ErrInvalidState)
	}

	before := req.Clone()
	expected := req.Version
	req.Status = StatusCancelled
	req.UpdatedAt = s.Now().UTC()
	if err := s.Store.UpdateRequest(ctx, req, expected); err != nil {
		return LeaveRequest{}, err
	}
	req.Version = expected + 1

	s.record(ctx, audit.Event{RequestID: req.ID, Action: audit.ActionCancelled, ActorID: requesterID}, before, req)
	s.notifyApprover(ctx, req, notifications.TypeLeaveCancelled)
	return req, nil
}

// Decide records the actor's decision on the current step. Approval advances
// to the next waiting step or approves the request; rejection is final.
func (s *Service) Decide(ctx context.Context, actor Actor, requestID string, decision Decision, comment string) (LeaveRequest, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return LeaveRequest{}, validationf(RuleInput, "decision must be APPROVE or REJECT")
	}
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !req.Status.Open() {
		return LeaveRequest{}, fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}
	idx := req.CurrentStep()
	if idx < 0 {
		return LeaveRequest{}, fmt.Errorf("%w: no pending step", ErrInvalidState)
	}

	now := s.Now()
	auth, err := s.Flow.CanApproveStep(ctx, actor, req, req.Steps[idx], now)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !auth.Allowed {
		return LeaveRequest{}, ErrUnauthorized
	}

	before := req.Clone()
	expected := req.Version
	decidedAt := now.UTC()
	step := &req.Steps[idx]
	step.DecidedBy = actor.EmployeeID
	step.DecidedAt = &decidedAt
	step.Comment = comment

	evt := audit.Event{RequestID: req.ID, ActorID: actor.EmployeeID, Comment: comment}
	if auth.OnBehalfOf != "" {
		evt.ActorID = auth.OnBehalfOf
		evt.DelegateID = actor.EmployeeID
	}

	if decision == DecisionReject {
		step.Status = StepRejected
		req.Status = StatusRejected
		req.DecisionReason = comment
		evt.Action = audit.ActionRejected
	} else {
		step.Status = StepApproved
		evt.Action = audit.ActionApproved
		if next := activateNext(req.Steps, idx, now); next >= 0 {
			req.Status = StatusUnderReview
			req.Meta.LastEscalationCheck = &decidedAt
		} else {
			req.Status = StatusApproved
			req.DecisionReason = comment
		}
	}
	req.UpdatedAt = decidedAt

	if err := s.Store.UpdateRequest(ctx, req, expected); err != nil {
		return LeaveRequest{}, err
	}
	req.Version = expected + 1

	s.record(ctx, evt, before, req)
	s.afterDecision(ctx, req)
	return req, nil
}

// Finalize lets HR close an open request directly. Bypassing a pending
// non-HR step is recorded as OVERRIDDEN and needs the chain's HR override.
func (s *Service) Finalize(ctx context.Context, actor Actor, requestID string, decision Decision, comment string) (LeaveRequest, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return LeaveRequest{}, validationf(RuleInput, "decision must be APPROVE or REJECT")
	}
	if !actor.IsHR {
		return LeaveRequest{}, ErrUnauthorized
	}
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.EmployeeID == actor.EmployeeID {
		return LeaveRequest{}, ErrUnauthorized
	}
	if !req.Status.Open() {
		return LeaveRequest{}, fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}

	idx := req.CurrentStep()
	natural := idx >= 0 && req.Steps[idx].Type == StepHR && !hasWaiting(req.Steps, idx)
	if !natural && !req.HROverride {
		return LeaveRequest{}, fmt.Errorf("%w: HR override is disabled for this approval flow", ErrUnauthorized)
	}

	before := req.Clone()
	expected := req.Version
	now := s.Now().UTC()
	if idx >= 0 {
		step := &req.Steps[idx]
		step.DecidedBy = actor.EmployeeID
		step.DecidedAt = &now
		step.Comment = comment
		step.Status = StepApproved
		if decision == DecisionReject {
			step.Status = StepRejected
		}
	}
	req.Status = StatusApproved
	if decision == DecisionReject {
		req.Status = StatusRejected
	}
	req.DecisionReason = comment
	req.UpdatedAt = now

	if err := s.Store.UpdateRequest(ctx, req, expected); err != nil {
		return LeaveRequest{}, err
	}
	req.Version = expected + 1

	action := audit.ActionOverridden
	if natural {
		action = audit.ActionApproved
		if decision == DecisionReject {
			action = audit.ActionRejected
		}
	}
	s.record(ctx, audit.Event{RequestID: req.ID, Action: action, ActorID: actor.EmployeeID, Comment: comment}, before, req)
	s.afterDecision(ctx, req)
	return req, nil
}

func hasWaiting(steps []ApprovalStep, after int) bool {
	for i := after + 1; i < len(steps); i++ {
		if steps[i].Status == StepWaiting {
			return true
		}
	}
	return false
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.Store.GetRequest(ctx, requestID)
}

// History lists an employee's requests, newest first.
func (s *Service) History(ctx context.Context, employeeID string, statuses []RequestStatus, limit, offset int) ([]LeaveRequest, error) {
	return s.Store.ListRequests(ctx, RequestFilter{EmployeeID: employeeID, Statuses: statuses, Limit: limit, Offset: offset})
}

// TeamRequests lists requests of the manager's direct reports.
func (s *Service) TeamRequests(ctx context.Context, managerID string, statuses []RequestStatus, limit, offset int) ([]LeaveRequest, error) {
	reports, err := s.Directory.ListReports(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return []LeaveRequest{}, nil
	}
	ids := make([]string, 0, len(reports))
	for _, emp := range reports {
		ids = append(ids, emp.ID)
	}
	return s.Store.ListRequests(ctx, RequestFilter{EmployeeIDs: ids, Statuses: statuses, Limit: limit, Offset: offset})
}

// CanView reports whether actor may read the request: the requester, HR, or
// anyone who is or was an approver on its chain.
func (s *Service) CanView(ctx context.Context, actor Actor, req LeaveRequest) bool {
	if actor.IsHR || actor.EmployeeID == req.EmployeeID {
		return true
	}
	for _, step := range req.Steps {
		if step.ApproverID == actor.EmployeeID || step.DelegatedFrom == actor.EmployeeID || step.DecidedBy == actor.EmployeeID {
			return true
		}
	}
	idx := req.CurrentStep()
	if idx < 0 {
		return false
	}
	auth, err := s.Flow.CanApproveStep(ctx, actor, req, req.Steps[idx], s.Now())
	return err == nil && auth.Allowed
}

func (s *Service) GetBalance(ctx context.Context, employeeID, leaveTypeID string) (Balance, error) {
	if _, err := s.Store.GetLeaveType(ctx, leaveTypeID); err != nil {
		return Balance{}, err
	}
	return s.Balances.ComputeBalance(ctx, employeeID, leaveTypeID)
}

type AdjustmentInput struct {
	EmployeeID    string
	LeaveTypeID   string
	Change        decimal.Decimal
	Reason        string
	EffectiveDate time.Time
}

// ManualAdjustment records an HR correction to an employee's balance.
func (s *Service) ManualAdjustment(ctx context.Context, actor Actor, in AdjustmentInput) (LeaveAdjustment, error) {
	if !actor.IsHR {
		return LeaveAdjustment{}, ErrUnauthorized
	}
	if in.Change.IsZero() {
		return LeaveAdjustment{}, validationf(RuleInput, "adjustment change must not be zero")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return LeaveAdjustment{}, validationf(RuleInput, "adjustment reason is required")
	}
	if _, err := s.employee(ctx, in.EmployeeID); err != nil {
		return LeaveAdjustment{}, err
	}
	if _, err := s.Store.GetLeaveType(ctx, in.LeaveTypeID); err != nil {
		return LeaveAdjustment{}, err
	}
	before, err := s.Balances.ComputeBalance(ctx, in.EmployeeID, in.LeaveTypeID)
	if err != nil {
		return LeaveAdjustment{}, err
	}

	now := s.Now().UTC()
	effective := DateOnly(in.EffectiveDate)
	if in.EffectiveDate.IsZero() {
		effective = DateOnly(now)
	}
	adj := LeaveAdjustment{
		ID:            uuid.NewString(),
		EmployeeID:    in.EmployeeID,
		LeaveTypeID:   in.LeaveTypeID,
		Change:        in.Change,
		Reason:        strings.TrimSpace(in.Reason),
		AppliedBy:     actor.EmployeeID,
		EffectiveDate: effective,
		CreatedAt:     now,
	}
	if err := s.Store.CreateAdjustment(ctx, adj); err != nil {
		return LeaveAdjustment{}, err
	}
	after, err := s.Balances.ComputeBalance(ctx, in.EmployeeID, in.LeaveTypeID)
	if err != nil {
		requestctx.Logger(ctx).Warn("balance recompute failed", "employeeId", in.EmployeeID, "err", err)
	}
	s.record(ctx, audit.Event{
		Action:     audit.ActionAdjusted,
		ActorID:    actor.EmployeeID,
		Comment:    adj.Reason,
		EntityType: "leave_adjustment",
		EntityID:   adj.ID,
	}, before, map[string]any{"adjustment": adj, "balance": after})
	return adj, nil
}

func (s *Service) employee(ctx context.Context, employeeID string) (org.Employee, error) {
	emp, err := s.Directory.GetEmployee(ctx, employeeID)
	if errors.Is(err, org.ErrEmployeeNotFound) {
		return org.Employee{}, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}
	return emp, err
}

func (s *Service) afterDecision(ctx context.Context, req LeaveRequest) {
	if s.Metrics != nil {
		s.Metrics.LeaveDecided()
	}
	switch req.Status {
	case StatusApproved:
		s.notify(ctx, req.EmployeeID, notifications.TypeLeaveApproved, "Leave approved",
			fmt.Sprintf("Your leave from %s to %s was approved.", req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly)))
		s.publish(ctx, payroll.EventLeaveApproved, req)
	case StatusRejected:
		s.notify(ctx, req.EmployeeID, notifications.TypeLeaveRejected, "Leave rejected",
			fmt.Sprintf("Your leave from %s to %s was rejected: %s", req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly), req.DecisionReason))
		s.publish(ctx, payroll.EventLeaveRejected, req)
	default:
		s.notifyApprover(ctx, req, notifications.TypeLeaveAwaitingApproval)
	}
}

func (s *Service) record(ctx context.Context, evt audit.Event, before, after any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, evt, before, after); err != nil {
		requestctx.Logger(ctx).Warn("audit log failed", "action", evt.Action, "leaveRequestId", evt.RequestID, "err", err)
	}
}

func (s *Service) notify(ctx context.Context, recipientID, ntype, title, body string) {
	if s.Notify == nil || recipientID == "" {
		return
	}
	if err := s.Notify.Create(ctx, recipientID, ntype, title, body); err != nil {
		requestctx.Logger(ctx).Warn("leave notification failed", "type", ntype, "recipientId", recipientID, "err", err)
	}
}

func (s *Service) notifyApprover(ctx context.Context, req LeaveRequest, ntype string) {
	idx := req.CurrentStep()
	if idx < 0 || req.Steps[idx].ApproverID == "" {
		return
	}
	title := "Leave request awaiting approval"
	if ntype == notifications.TypeLeaveCancelled {
		title = "Leave request cancelled"
	}
	s.notify(ctx, req.Steps[idx].ApproverID, ntype, title,
		fmt.Sprintf("Request %s for %s to %s.", req.ID, req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly)))
}

func (s *Service) publish(ctx context.Context, eventType payroll.EventType, req LeaveRequest) {
	if s.Payroll == nil {
		return
	}
	s.Payroll.Publish(ctx, payroll.Event{
		Type:          eventType,
		RequestID:     req.ID,
		EmployeeID:    req.EmployeeID,
		LeaveTypeCode: req.LeaveTypeCode,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		WorkingDays:   req.WorkingDays,
		UnpaidDays:    req.ConvertedToUnpaidDays,
		OccurredAt:    s.Now().UTC(),
	})
}
