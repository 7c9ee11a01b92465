package domain

// Role differentiates the callers allowed to drive a request.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleAgent    Role = "AGENT"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAgent, RoleAdmin:
		return true
	default:
		return false
	}
}
