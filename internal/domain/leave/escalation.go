package leave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/notifications"
)

type ExhaustedPolicy string

const (
	ExhaustedEscalateToHR ExhaustedPolicy = "escalate_to_hr"
	ExhaustedHold         ExhaustedPolicy = "hold"
	ExhaustedReject       ExhaustedPolicy = "reject"
)

// EscalationPolicy decides what happens when a pending step has no later
// required step to move to.
type EscalationPolicy struct {
	DefaultHours int
	OnExhausted  ExhaustedPolicy
	// MaxLevel bounds the escalation level under the reject policy.
	MaxLevel int
}

func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{DefaultHours: 24, OnExhausted: ExhaustedEscalateToHR}
}

type EscalationSummary struct {
	Scanned   int `json:"scanned"`
	Escalated int `json:"escalated"`
	Rejected  int `json:"rejected"`
	Held      int `json:"held"`
	Failed    int `json:"failed"`
}

// Escalator runs the periodic sweep over open requests. Only one sweep runs
// at a time per process.
type Escalator struct {
	Service *Service
	Policy  EscalationPolicy

	mu      sync.Mutex
	running bool
}

func NewEscalator(svc *Service, policy EscalationPolicy) *Escalator {
	if policy.DefaultHours <= 0 {
		policy.DefaultHours = 24
	}
	if policy.OnExhausted == "" {
		policy.OnExhausted = ExhaustedEscalateToHR
	}
	return &Escalator{Service: svc, Policy: policy}
}

type escalationOutcome int

const (
	outcomeNone escalationOutcome = iota
	outcomeEscalated
	outcomeHeld
	outcomeRejected
)

// RunEscalations escalates every open request whose current step waited
// longer than its escalation hours. A failing request is logged and skipped.
func (e *Escalator) RunEscalations(ctx context.Context, now time.Time) (EscalationSummary, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return EscalationSummary{}, ErrSweepInProgress
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	open, err := e.Service.Store.ListRequests(ctx, RequestFilter{Statuses: []RequestStatus{StatusPending, StatusUnderReview}})
	if err != nil {
		return EscalationSummary{}, err
	}

	var summary EscalationSummary
	for _, req := range open {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++
		outcome, err := e.escalateOne(ctx, req.ID, now)
		if err != nil {
			summary.Failed++
			slog.Warn("escalation failed", "requestId", req.ID, "err", err)
			continue
		}
		switch outcome {
		case outcomeEscalated:
			summary.Escalated++
		case outcomeHeld:
			summary.Held++
		case outcomeRejected:
			summary.Rejected++
		}
	}
	if e.Service.Metrics != nil {
		e.Service.Metrics.EscalationSweep(summary.Escalated, summary.Failed)
	}
	return summary, nil
}

func (e *Escalator) escalateOne(ctx context.Context, requestID string, now time.Time) (escalationOutcome, error) {
	req, err := e.Service.Store.GetRequest(ctx, requestID)
	if err != nil {
		return outcomeNone, err
	}
	if !req.Status.Open() {
		return outcomeNone, nil
	}
	idx := req.CurrentStep()
	if idx < 0 {
		return outcomeNone, nil
	}

	hours := req.Steps[idx].EscalationHours
	if hours <= 0 {
		hours = e.Policy.DefaultHours
	}
	since := req.CreatedAt
	if req.Meta.LastEscalationCheck != nil {
		since = *req.Meta.LastEscalationCheck
	}
	if now.Sub(since) < time.Duration(hours)*time.Hour {
		return outcomeNone, nil
	}

	before := req.Clone()
	expected := req.Version
	at := now.UTC()
	outcome := outcomeEscalated
	action := audit.ActionAutoEscalated
	comment := ""

	if next := nextRequiredWaiting(req.Steps, idx); next >= 0 {
		req.Steps[idx].Status = StepEscalated
		skipBetween(req.Steps, idx, next)
		req.Steps[next].Status = StepPending
		req.Steps[next].ActivatedAt = &at
		req.Meta.EscalationLevel++
	} else if req.Steps[idx].Type == StepHR {
		req.Meta.EscalationLevel++
	} else if hr := nextWaitingOfType(req.Steps, idx, StepHR); hr >= 0 {
		req.Steps[idx].Status = StepEscalated
		skipBetween(req.Steps, idx, hr)
		req.Steps[hr].Status = StepPending
		req.Steps[hr].ActivatedAt = &at
		req.Meta.EscalationLevel++
	} else {
		switch e.Policy.OnExhausted {
		case ExhaustedHold:
			outcome = outcomeHeld
		case ExhaustedReject:
			if e.Policy.MaxLevel > 0 && req.Meta.EscalationLevel >= e.Policy.MaxLevel {
				req.Steps[idx].Status = StepRejected
				req.Steps[idx].DecidedAt = &at
				req.Status = StatusRejected
				req.DecisionReason = fmt.Sprintf("automatically rejected after %d escalations", req.Meta.EscalationLevel)
				outcome = outcomeRejected
				action = audit.ActionRejected
				comment = req.DecisionReason
			} else {
				req.Meta.EscalationLevel++
			}
		default:
			req.Steps[idx].Status = StepEscalated
			skipBetween(req.Steps, idx, len(req.Steps))
			step := e.Service.Flow.hrStep(req.Steps, at)
			step.EscalationHours = e.Policy.DefaultHours
			req.Steps = append(req.Steps, step)
			req.Meta.EscalationLevel++
		}
	}

	req.Meta.LastEscalationCheck = &at
	req.UpdatedAt = at
	if err := e.Service.Store.UpdateRequest(ctx, req, expected); err != nil {
		return outcomeNone, err
	}
	if outcome == outcomeHeld {
		return outcome, nil
	}

	level := req.Meta.EscalationLevel
	e.Service.record(ctx, audit.Event{RequestID: req.ID, Action: action, EscalationLevel: &level, Comment: comment}, before, req)
	if outcome == outcomeRejected {
		e.Service.afterDecision(ctx, req)
		return outcome, nil
	}
	e.Service.notifyApprover(ctx, req, notifications.TypeLeaveEscalated)
	return outcome, nil
}

func nextRequiredWaiting(steps []ApprovalStep, after int) int {
	for i := after + 1; i < len(steps); i++ {
		if steps[i].Status == StepWaiting && steps[i].Required {
			return i
		}
	}
	return -1
}

func nextWaitingOfType(steps []ApprovalStep, after int, t StepType) int {
	for i := after + 1; i < len(steps); i++ {
		if steps[i].Status == StepWaiting && steps[i].Type == t {
			return i
		}
	}
	return -1
}

// skipBetween marks waiting steps strictly between from and to as SKIPPED.
func skipBetween(steps []ApprovalStep, from, to int) {
	for i := from + 1; i < to && i < len(steps); i++ {
		if steps[i].Status == StepWaiting {
			steps[i].Status = StepSkipped
		}
	}
}
