package auth

import "errors"

// Role is the authorisation tier carried in a token. Roles are ordered:
// each one holds every permission of the roles below it.
type Role string

const (
	// RoleViewer may read health, ports and devices.
	RoleViewer Role = "viewer"

	// RoleOperator may also switch modules on and off.
	RoleOperator Role = "operator"

	// RoleAdmin may also add and remove devices.
	RoleAdmin Role = "admin"
)

// roleRank orders the roles; zero means unknown.
var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r Role) bool {
	return roleRank[r] > 0
}

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
)
