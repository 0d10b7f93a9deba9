package models

// Role is the verified role of the caller
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// Actor is the verified identity attached to a request
type Actor struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

// Is reports whether the actor holds role
func (a Actor) Is(role Role) bool {
	return a.UserID != 0 && a.Role == role
}
