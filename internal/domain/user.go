package domain

import "time"

// Role enumerates the kinds of principals known to the system.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAgent Role = "AGENT"
	RoleAdmin Role = "ADMIN"
)

// User is the domain model for anyone who can touch a ticket: end-users who
// submit them, agents who work them, and admins.
type User struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	Department *Department
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsStaff reports whether the user may act on tickets they do not own.
func (u *User) IsStaff() bool {
	return u.Role == RoleAgent || u.Role == RoleAdmin
}
