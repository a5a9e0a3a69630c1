// Package auth issues and validates the JWT bearer tokens that protect the
// bridge's HTTP API.
//
// Tokens are HS256-signed with security.jwt.secret and carry a role.
// Roles are ranked viewer < operator < admin; a permission is granted to
// its minimum role and everything above it.
//
//	token, err := auth.GenerateAccessToken("home-assistant", auth.RoleOperator, secret, time.Hour)
//	claims, err := auth.ParseToken(token, secret)
//	ok := auth.HasPermission(claims.Role, auth.PermDeviceOperate)
package auth
