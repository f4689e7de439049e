package domain

import "time"

// Role is the coarse role attached to an account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is the domain model for registered accounts.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy without the password hash.
func (u User) Sanitized() *User {
	u.PasswordHash = ""
	return &u
}

// Summary returns the embedded form used when a task references the user.
func (u User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the expanded reference to a user inside a task.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}
