package leave

import (
	"context"
	"strings"
	"time"

	"hrleave/internal/domain/org"
)

// Rules holds the tunable thresholds of the validation pipeline.
type Rules struct {
	NoticeDays         int
	PostLeaveGraceDays int
	SickCapDays        int
	SickWindowYears    int
}

func DefaultRules() Rules {
	return Rules{
		NoticeDays:         7,
		PostLeaveGraceDays: 3,
		SickCapDays:        360,
		SickWindowYears:    3,
	}
}

// Candidate is a request as it would be stored, before it is accepted.
type Candidate struct {
	Employee         org.Employee
	LeaveType        LeaveType
	StartDate        time.Time
	EndDate          time.Time
	TotalDays        int
	WorkingDays      int
	Attachments      []string
	MissionDetails   map[string]string
	IsPostLeave      bool
	ExcludeRequestID string
}

type Validator struct {
	Rules    Rules
	Calendar *CalendarService
	Requests RequestStore
}

func NewValidator(rules Rules, calendar *CalendarService, requests RequestStore) *Validator {
	return &Validator{Rules: rules, Calendar: calendar, Requests: requests}
}

type validation struct {
	c       Candidate
	today   time.Time
	history []LeaveRequest
}

type ruleFunc func(ctx context.Context, v *Validator, in *validation) error

// pipeline runs in order; the first failing rule wins.
var pipeline = []ruleFunc{
	checkDateRange,
	checkEligibility,
	checkNotice,
	checkBlockedPeriods,
	checkMaxDuration,
	checkTypeSpecific,
	checkPostLeave,
	checkOverlap,
}

// Validate runs every business rule against c and returns the first
// *ValidationError, or nil.
func (v *Validator) Validate(ctx context.Context, c Candidate, now time.Time) error {
	c.StartDate, c.EndDate = DateOnly(c.StartDate), DateOnly(c.EndDate)
	history, err := v.Requests.ListRequests(ctx, RequestFilter{
		EmployeeID: c.Employee.ID,
		Statuses:   []RequestStatus{StatusPending, StatusUnderReview, StatusApproved},
	})
	if err != nil {
		return err
	}
	in := &validation{c: c, today: DateOnly(now)}
	for _, req := range history {
		if req.ID != c.ExcludeRequestID {
			in.history = append(in.history, req)
		}
	}
	for _, rule := range pipeline {
		if err := rule(ctx, v, in); err != nil {
			return err
		}
	}
	return nil
}

func checkDateRange(_ context.Context, _ *Validator, in *validation) error {
	if in.c.StartDate.IsZero() || in.c.EndDate.IsZero() {
		return validationf(RuleDateRange, "start and end dates are required")
	}
	if in.c.EndDate.Before(in.c.StartDate) {
		return validationf(RuleDateRange, "end date must not be before start date")
	}
	return nil
}

func checkEligibility(_ context.Context, _ *Validator, in *validation) error {
	required := in.c.LeaveType.MinTenureMonths
	if required <= 0 {
		return nil
	}
	if in.c.Employee.HireDate.IsZero() || MonthsBetween(in.c.Employee.HireDate, in.today) < required {
		return validationf(RuleEligibility, "%s requires at least %d months of service", in.c.LeaveType.Name, required)
	}
	return nil
}

func checkNotice(_ context.Context, v *Validator, in *validation) error {
	if in.c.IsPostLeave || v.Rules.NoticeDays <= 0 {
		return nil
	}
	earliest := in.today.AddDate(0, 0, v.Rules.NoticeDays)
	if in.c.StartDate.Before(earliest) {
		return validationf(RuleNoticePeriod, "leave must be requested at least %d days in advance", v.Rules.NoticeDays)
	}
	return nil
}

func checkBlockedPeriods(ctx context.Context, v *Validator, in *validation) error {
	blocked, err := v.Calendar.BlockedPeriodsIntersecting(ctx, in.c.Employee.ID, in.c.StartDate, in.c.EndDate)
	if err != nil {
		return err
	}
	if len(blocked) > 0 {
		bp := blocked[0]
		return validationf(RuleBlockedPeriod, "leave overlaps blocked period %s to %s (%s)",
			bp.StartDate.Format(time.DateOnly), bp.EndDate.Format(time.DateOnly), bp.Reason)
	}
	return nil
}

func checkMaxDuration(_ context.Context, _ *Validator, in *validation) error {
	limit := in.c.LeaveType.MaxDurationDays
	if limit > 0 && in.c.TotalDays > limit {
		return validationf(RuleMaxDuration, "%s cannot exceed %d days", in.c.LeaveType.Name, limit)
	}
	return nil
}

func checkTypeSpecific(ctx context.Context, v *Validator, in *validation) error {
	switch strings.ToUpper(in.c.LeaveType.Code) {
	case CodeSick:
		if err := checkSickCertificate(in.c); err != nil {
			return err
		}
		if v.Rules.SickCapDays > 0 {
			windowStart := in.today.AddDate(-v.Rules.SickWindowYears, 0, 0)
			used, err := v.sickDaysSince(ctx, in, windowStart)
			if err != nil {
				return err
			}
			if used+in.c.WorkingDays > v.Rules.SickCapDays {
				return validationf(RuleSickCap, "sick leave is capped at %d days over %d years (%d already used)",
					v.Rules.SickCapDays, v.Rules.SickWindowYears, used)
			}
		}
	case CodeMaternity:
		if in.c.Employee.Gender != "" && in.c.Employee.Gender != org.GenderFemale {
			return validationf(RuleMaternityGender, "maternity leave is only available to female employees")
		}
		for _, req := range in.history {
			if req.LeaveTypeID != in.c.LeaveType.ID {
				continue
			}
			if req.Status.Open() || RangesOverlap(req.StartDate, req.EndDate, in.c.StartDate, in.c.EndDate) {
				return validationf(RuleMaternityDuplicate, "a maternity request is already pending or overlapping")
			}
		}
	case CodeMission:
		if err := checkMissionDetails(in.c); err != nil {
			return err
		}
	}
	return checkAttachment(in.c)
}

// ValidateContent re-checks only the rules that depend on attachments and
// mission details, for edits that leave the dates alone.
func (v *Validator) ValidateContent(c Candidate) error {
	switch strings.ToUpper(c.LeaveType.Code) {
	case CodeSick:
		if err := checkSickCertificate(c); err != nil {
			return err
		}
	case CodeMission:
		if err := checkMissionDetails(c); err != nil {
			return err
		}
	}
	return checkAttachment(c)
}

func checkSickCertificate(c Candidate) error {
	if c.TotalDays > 1 && len(c.Attachments) == 0 {
		return validationf(RuleSickCertificate, "Medical certificate required for sick leave > 1 day")
	}
	return nil
}

func checkMissionDetails(c Candidate) error {
	if len(c.MissionDetails) == 0 {
		return validationf(RuleMissionDetails, "mission details are required")
	}
	return nil
}

func checkAttachment(c Candidate) error {
	if c.LeaveType.RequiresAttachment && len(c.Attachments) == 0 {
		return validationf(RuleAttachmentRequired, "%s requires a supporting attachment", c.LeaveType.Name)
	}
	return nil
}

// sickDaysSince counts approved sick working days on or after windowStart.
// A request straddling the window start only counts its days inside it.
func (v *Validator) sickDaysSince(ctx context.Context, in *validation, windowStart time.Time) (int, error) {
	used := 0
	for _, req := range in.history {
		if req.Status != StatusApproved || req.LeaveTypeID != in.c.LeaveType.ID || req.EndDate.Before(windowStart) {
			continue
		}
		if !req.StartDate.Before(windowStart) {
			used += req.WorkingDays
			continue
		}
		days, err := v.Calendar.TotalWorkingDays(ctx, req.EmployeeID, windowStart, req.EndDate)
		if err != nil {
			return 0, err
		}
		used += days
	}
	return used, nil
}

func checkPostLeave(_ context.Context, v *Validator, in *validation) error {
	if !in.c.IsPostLeave {
		return nil
	}
	if !in.c.LeaveType.AllowPostLeave {
		return validationf(RulePostLeaveAllowed, "%s cannot be submitted after the leave started", in.c.LeaveType.Name)
	}
	deadline := in.c.StartDate.AddDate(0, 0, v.Rules.PostLeaveGraceDays)
	if in.today.After(deadline) {
		return validationf(RulePostLeaveGrace, "post-leave requests must be submitted within %d days of the start date", v.Rules.PostLeaveGraceDays)
	}
	return nil
}

func checkOverlap(_ context.Context, _ *Validator, in *validation) error {
	for _, req := range in.history {
		if RangesOverlap(req.StartDate, req.EndDate, in.c.StartDate, in.c.EndDate) {
			return NewOverlapError(req)
		}
	}
	return nil
}
