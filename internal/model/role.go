package model

// Role is the caller's role code carried in the access token
type Role string

const (
	RoleStaff            Role = "STAFF"
	RoleSupervisorJunior Role = "SUPERVISOR_JUNIOR"
	RoleSupervisorSenior Role = "SUPERVISOR_SENIOR"
)

var knownRoles = map[Role]bool{
	RoleStaff:            true,
	RoleSupervisorJunior: true,
	RoleSupervisorSenior: true,
}

func (r Role) Valid() bool { return knownRoles[r] }

// CanChangeOrderStatus reports whether r may move an order between statuses.
func (r Role) CanChangeOrderStatus() bool {
	return r == RoleSupervisorJunior || r == RoleSupervisorSenior
}

// CanCancelOrders reports whether r may move an order to CANCELED.
func (r Role) CanCancelOrders() bool {
	return r == RoleSupervisorSenior
}

func (r Role) IsSupervisor() bool {
	return r == RoleSupervisorJunior || r == RoleSupervisorSenior
}

// Caller identifies who is performing an operation
type Caller struct {
	UserID string
	Name   string
	Role   Role
}
