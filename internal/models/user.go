package models

import (
	"time"
)

// UserStatus is the role recorded on a profile
type UserStatus string

const (
	UserStatusUser  UserStatus = "user"
	UserStatusAdmin UserStatus = "admin"
)

// ValidStatuses defines allowed profile statuses
var ValidStatuses = map[UserStatus]bool{
	UserStatusUser:  true,
	UserStatusAdmin: true,
}

// UserProfile is the document kept in the users collection
type UserProfile struct {
	ID          string     `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	DisplayName string     `json:"display_name" db:"display_name"`
	Username    *string    `json:"username" db:"username"`
	Status      UserStatus `json:"status" db:"status"`
	Banned      bool       `json:"banned" db:"banned"`
	AvatarURL   string     `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the profile carries the admin status
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Status == UserStatusAdmin
}

// ProfileUpdate carries the self-editable profile fields
type ProfileUpdate struct {
	DisplayName string  `json:"display_name"`
	Username    *string `json:"username"`
}

// Credential is the identity record backing email/password sign-in
type Credential struct {
	UserID       string    `db:"user_id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Session is a signed-in period of a principal; revoked on sign-out
type Session struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// Active reports whether the session can still authenticate requests
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Principal is an authenticated identity bound to a session
type Principal struct {
	UserID    string       `json:"user_id"`
	SessionID string       `json:"session_id"`
	Profile   *UserProfile `json:"profile"`
}

// IsAdmin reports whether the principal's profile is an admin
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Profile.IsAdmin()
}

// CanView reports whether the article is visible to p. Private articles are
// visible to their owner and to admins only; p may be nil.
func (p *Principal) CanView(a *Article) bool {
	if a.IsPublic {
		return true
	}
	return p != nil && (p.UserID == a.CreatedBy || p.IsAdmin())
}

// AuthResult is returned by sign-up and sign-in
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Profile   *UserProfile `json:"profile"`
}
