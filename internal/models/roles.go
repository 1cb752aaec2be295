package models

// User roles
const (
	RoleAdmin = "admin" // Can read every user's history
	RoleUser  = "user"
)

// IsValidRole reports whether role is one the API assigns.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}
