package notifications

const (
	TypeLeaveSubmitted        = "leave_submitted"
	TypeLeaveAwaitingApproval = "leave_awaiting_approval"
	TypeLeaveApproved         = "leave_approved"
	TypeLeaveRejected         = "leave_rejected"
	TypeLeaveCancelled        = "leave_cancelled"
	TypeLeaveEscalated        = "leave_escalated"
	TypeLeaveUnpaid           = "leave_unpaid_conversion"
)
