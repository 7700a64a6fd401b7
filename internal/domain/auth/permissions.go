package auth

import "context"

const (
	RoleEmployee    = "employee"
	RoleManager     = "manager"
	RoleHR          = "hr"
	RoleSystemAdmin = "system_admin"
)

const (
	PermLeaveRead      = "leave.read"
	PermLeaveWrite     = "leave.write"
	PermLeaveApprove   = "leave.approve"
	PermLeaveConfigure = "leave.configure"
	PermLeaveJobs      = "leave.jobs"
	PermAuditRead      = "audit.read"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLeaveRead,
		PermLeaveWrite,
	},
	RoleManager: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
	},
	RoleHR: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveConfigure,
		PermLeaveJobs,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermLeaveJobs,
		PermAuditRead,
	},
}

type UserContext struct {
	UserID     string
	EmployeeID string
	RoleName   string
}

func (u UserContext) IsHR() bool {
	return u.RoleName == RoleHR
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, roleName, permission string) (bool, error) {
	for _, p := range RolePermissions[roleName] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
