package models

import "time"

// RoleAdmin is the role sentinel marking a session as administrative.
const RoleAdmin = "admin"

// User is the authenticated identity as returned by the auth service.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	CreatedAt    *time.Time     `json:"created_at,omitempty"`
}

// Session is the authenticated identity and metadata for the current user.
type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// UserID returns the id of the session's user, or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// Role returns the role stored in the user's metadata bag.
func (s *Session) Role() string {
	if s == nil || s.User.UserMetadata == nil {
		return ""
	}
	role, _ := s.User.UserMetadata["role"].(string)
	return role
}

// IsAdmin is the only authorization signal the views use. It is a
// navigation hint; access rules on the backend decide what data is visible.
func (s *Session) IsAdmin() bool {
	return s.Role() == RoleAdmin
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}
