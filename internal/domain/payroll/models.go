package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventLeaveApproved    EventType = "leave.approved"
	EventLeaveRejected    EventType = "leave.rejected"
	EventUnpaidConversion EventType = "leave.unpaid_conversion"
)

// Event is what payroll consumes about a leave request. UnpaidDays is the
// number of requested working days beyond the available balance.
type Event struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	RequestID     string          `json:"requestId"`
	EmployeeID    string          `json:"employeeId"`
	LeaveTypeCode string          `json:"leaveTypeCode"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	WorkingDays   int             `json:"workingDays"`
	UnpaidDays    decimal.Decimal `json:"unpaidDays"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
