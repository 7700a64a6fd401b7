package leave

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("not authorized")
	ErrInvalidState        = errors.New("invalid state")
	ErrConflict            = errors.New("concurrent modification, retry")
	ErrSweepInProgress     = errors.New("escalation sweep already running")
	ErrRequestNotFound     = fmt.Errorf("leave request %w", ErrNotFound)
	ErrTypeNotFound        = fmt.Errorf("leave type %w", ErrNotFound)
	ErrCalendarNotFound    = fmt.Errorf("calendar %w", ErrNotFound)
	ErrConfigNotFound      = fmt.Errorf("approval config %w", ErrNotFound)
	ErrDelegationNotFound  = fmt.Errorf("delegation %w", ErrNotFound)
	ErrEntitlementNotFound = fmt.Errorf("entitlement %w", ErrNotFound)
)

const (
	RuleDateRange          = "date_range"
	RuleEligibility        = "eligibility"
	RuleNoticePeriod       = "notice_period"
	RuleBlockedPeriod      = "blocked_period"
	RuleMaxDuration        = "max_duration"
	RuleSickCertificate    = "sick_certificate"
	RuleSickCap            = "sick_cap"
	RuleMaternityGender    = "maternity_gender"
	RuleMaternityDuplicate = "maternity_duplicate"
	RuleMissionDetails     = "mission_details"
	RuleAttachmentRequired = "attachment_required"
	RulePostLeaveAllowed   = "post_leave_not_allowed"
	RulePostLeaveGrace     = "post_leave_grace"
	RuleOverlap            = "overlap"
	RuleInput              = "input"
)

// ValidationError names the business rule that rejected a request.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationf(rule, format string, args ...any) error {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// RuleOf returns the violated rule of a validation error, or "".
func RuleOf(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Rule
	}
	return ""
}

// NewOverlapError is returned by stores that detect an overlapping request at commit time.
func NewOverlapError(existing LeaveRequest) error {
	return validationf(RuleOverlap, "overlaps existing request %s (%s to %s)",
		existing.ID, dayKey(existing.StartDate), dayKey(existing.EndDate))
}
