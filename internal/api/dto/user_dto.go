package dto

import "github.com/spec-kit/task-service/internal/domain"

// UserResponse is the public view of an account.
type UserResponse struct {
	ID    string      `json:"_id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// UserSummaryResponse is the expanded form of a task reference.
type UserSummaryResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// UserEnvelope wraps a single user.
type UserEnvelope struct {
	User UserResponse `json:"user"`
}

// UsersEnvelope wraps the user directory.
type UsersEnvelope struct {
	Users []UserResponse `json:"users"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// NewUserSummaryResponse maps a summary; nil stays nil.
func NewUserSummaryResponse(s *domain.UserSummary) *UserSummaryResponse {
	if s == nil {
		return nil
	}
	return &UserSummaryResponse{ID: s.ID, Name: s.Name, Email: s.Email}
}

// NewUsersEnvelope maps a list of users.
func NewUsersEnvelope(users []domain.User) UsersEnvelope {
	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, NewUserResponse(&users[i]))
	}
	return UsersEnvelope{Users: items}
}
