package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	StatusPending     RequestStatus = "PENDING"
	StatusUnderReview RequestStatus = "UNDER_REVIEW"
	StatusApproved    RequestStatus = "APPROVED"
	StatusRejected    RequestStatus = "REJECTED"
	StatusCancelled   RequestStatus = "CANCELLED"
)

// Open reports whether the request is still moving through its approval chain.
func (s RequestStatus) Open() bool {
	return s == StatusPending || s == StatusUnderReview
}

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

type StepType string

const (
	StepManager        StepType = "MANAGER"
	StepDepartmentHead StepType = "DEPARTMENT_HEAD"
	StepCustom         StepType = "CUSTOM"
	StepHR             StepType = "HR"
)

func (t StepType) Valid() bool {
	switch t {
	case StepManager, StepDepartmentHead, StepCustom, StepHR:
		return true
	}
	return false
}

type StepStatus string

const (
	StepWaiting   StepStatus = "WAITING"
	StepPending   StepStatus = "PENDING"
	StepApproved  StepStatus = "APPROVED"
	StepRejected  StepStatus = "REJECTED"
	StepEscalated StepStatus = "ESCALATED"
	StepSkipped   StepStatus = "SKIPPED"
)

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

const (
	CodeSick      = "SICK"
	CodeMaternity = "MATERNITY"
	CodeMission   = "MISSION"
)

type LeaveType struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	IsPaid             bool      `json:"isPaid"`
	RequiresAttachment bool      `json:"requiresAttachment"`
	MinTenureMonths    int       `json:"minTenureMonths"`
	MaxDurationDays    int       `json:"maxDurationDays"`
	AllowPostLeave     bool      `json:"allowPostLeave"`
	PausesAccrual      bool      `json:"pausesAccrual"`
	CreatedAt          time.Time `json:"createdAt"`
}

type LeaveEntitlement struct {
	ID                 string           `json:"id"`
	EmployeeID         string           `json:"employeeId,omitempty"`
	LeaveTypeID        string           `json:"leaveTypeId"`
	Days               decimal.Decimal  `json:"days"`
	MonthlyAccrualRate *decimal.Decimal `json:"monthlyAccrualRate,omitempty"`
	CarryOverCap       *decimal.Decimal `json:"carryOverCap,omitempty"`
	ExpiryMonths       int              `json:"expiryMonths,omitempty"`
	LastAccruedAt      *time.Time       `json:"lastAccruedAt,omitempty"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// IsDefault reports whether the entitlement applies to every employee without their own record.
func (e LeaveEntitlement) IsDefault() bool {
	return e.EmployeeID == ""
}

type LeaveAdjustment struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employeeId"`
	LeaveTypeID   string          `json:"leaveTypeId"`
	Change        decimal.Decimal `json:"change"`
	Reason        string          `json:"reason"`
	AppliedBy     string          `json:"appliedBy"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type ApprovalStep struct {
	Level           int        `json:"level"`
	Type            StepType   `json:"type"`
	Status          StepStatus `json:"status"`
	ApproverID      string     `json:"approverId,omitempty"`
	DelegatedFrom   string     `json:"delegatedFrom,omitempty"`
	PositionID      string     `json:"positionId,omitempty"`
	DepartmentID    string     `json:"departmentId,omitempty"`
	Required        bool       `json:"required"`
	EscalationHours int        `json:"escalationHours"`
	ActivatedAt     *time.Time `json:"activatedAt,omitempty"`
	DecidedBy       string     `json:"decidedBy,omitempty"`
	DecidedAt       *time.Time `json:"decidedAt,omitempty"`
	Comment         string     `json:"comment,omitempty"`
}

type BalanceCheck struct {
	Requested         decimal.Decimal `json:"requested"`
	Available         decimal.Decimal `json:"available"`
	ConvertedToUnpaid decimal.Decimal `json:"convertedToUnpaid"`
	HasEntitlement    bool            `json:"hasEntitlement"`
	CheckedAt         time.Time       `json:"checkedAt"`
}

type RequestMeta struct {
	EscalationLevel     int           `json:"escalationLevel"`
	LastEscalationCheck *time.Time    `json:"lastEscalationCheck,omitempty"`
	BalanceCheck        *BalanceCheck `json:"balanceCheck,omitempty"`
}

type LeaveRequest struct {
	ID                    string            `json:"id"`
	EmployeeID            string            `json:"employeeId"`
	DepartmentID          string            `json:"departmentId"`
	LeaveTypeID           string            `json:"leaveTypeId"`
	LeaveTypeCode         string            `json:"leaveTypeCode"`
	StartDate             time.Time         `json:"startDate"`
	EndDate               time.Time         `json:"endDate"`
	TotalDays             int               `json:"totalDays"`
	WorkingDays           int               `json:"workingDays"`
	Justification         string            `json:"justification"`
	Attachments           []string          `json:"attachments,omitempty"`
	MissionDetails        map[string]string `json:"missionDetails,omitempty"`
	Status                RequestStatus     `json:"status"`
	Steps                 []ApprovalStep    `json:"steps"`
	SubmittedBy           string            `json:"submittedBy"`
	DecisionReason        string            `json:"decisionReason,omitempty"`
	IsPostLeave           bool              `json:"isPostLeave"`
	ConvertedToUnpaidDays decimal.Decimal   `json:"convertedToUnpaidDays"`
	ApprovalConfigCode    string            `json:"approvalConfigCode,omitempty"`
	HROverride            bool              `json:"hrOverride"`
	Meta                  RequestMeta       `json:"meta"`
	Version               int               `json:"version"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

// CurrentStep returns the index of the single PENDING step, or -1.
func (r *LeaveRequest) CurrentStep() int {
	for i := range r.Steps {
		if r.Steps[i].Status == StepPending {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy, used for before/after audit snapshots.
func (r LeaveRequest) Clone() LeaveRequest {
	out := r
	out.Attachments = append([]string(nil), r.Attachments...)
	out.Steps = append([]ApprovalStep(nil), r.Steps...)
	if r.MissionDetails != nil {
		out.MissionDetails = make(map[string]string, len(r.MissionDetails))
		for k, v := range r.MissionDetails {
			out.MissionDetails[k] = v
		}
	}
	if r.Meta.LastEscalationCheck != nil {
		t := *r.Meta.LastEscalationCheck
		out.Meta.LastEscalationCheck = &t
	}
	if r.Meta.BalanceCheck != nil {
		bc := *r.Meta.BalanceCheck
		out.Meta.BalanceCheck = &bc
	}
	return out
}

type Holiday struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	Recurring bool      `json:"recurring"`
}

type BlockedPeriod struct {
	ID        string    `json:"id"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Reason    string    `json:"reason"`
}

type Calendar struct {
	ID             string          `json:"id"`
	Year           int             `json:"year"`
	Country        string          `json:"country,omitempty"`
	Holidays       []Holiday       `json:"holidays"`
	BlockedPeriods []BlockedPeriod `json:"blockedPeriods"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type ManagerDelegation struct {
	ID          string     `json:"id"`
	ManagerID   string     `json:"managerId"`
	DelegateID  string     `json:"delegateId"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	IsActive    bool       `json:"isActive"`
	Departments []string   `json:"departments,omitempty"`
	LeaveTypes  []string   `json:"leaveTypes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type ApprovalLevel struct {
	Level           int      `json:"level"`
	Type            StepType `json:"type"`
	PositionID      string   `json:"positionId,omitempty"`
	DepartmentID    string   `json:"departmentId,omitempty"`
	EmployeeID      string   `json:"employeeId,omitempty"`
	Required        *bool    `json:"required,omitempty"`
	EscalationHours int      `json:"escalationHours,omitempty"`
}

func (l ApprovalLevel) IsRequired() bool {
	return l.Required == nil || *l.Required
}

type ApprovalConfig struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Levels       []ApprovalLevel `json:"levels"`
	LeaveTypeID  string          `json:"leaveTypeId,omitempty"`
	DepartmentID string          `json:"departmentId,omitempty"`
	HROverride   bool            `json:"hrOverride"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	EmployeeID string
	IsHR       bool
}
