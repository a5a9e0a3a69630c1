package auth

// Permission names an action on the API.
type Permission string

const (
	PermDeviceRead      Permission = "device:read"
	PermDeviceOperate   Permission = "device:operate"
	PermDeviceConfigure Permission = "device:configure"
)

// minimumRole is the lowest role granted each permission.
var minimumRole = map[Permission]Role{
	PermDeviceRead:      RoleViewer,
	PermDeviceOperate:   RoleOperator,
	PermDeviceConfigure: RoleAdmin,
}

// HasPermission reports whether role grants perm. Unknown roles and
// unknown permissions are always refused.
func HasPermission(role Role, perm Permission) bool {
	need, ok := minimumRole[perm]
	if !ok || !IsValidRole(role) {
		return false
	}
	return roleRank[role] >= roleRank[need]
}
