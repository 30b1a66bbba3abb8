package entity

import "time"

// Session is one refresh token lineage entry. TokenHash is the HMAC of the
// opaque token handed to the client; the token itself is never stored.
type Session struct {
	ID         int64
	UserID     int64
	TokenHash  string
	UserAgent  string
	IPAddress  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *int64
	CreatedAt  time.Time
}

func (s Session) Revoked() bool { return s.RevokedAt != nil }

// Rotated reports whether the session was revoked by a refresh rather than
// by logout. Presenting a rotated token again means it leaked.
func (s Session) Rotated() bool { return s.RevokedAt != nil && s.ReplacedBy != nil }

type SessionUser struct {
	Session
	Username string
	Role     Role
}

type RotateSession struct {
	OldID     int64
	UserID    int64
	New       Session
	RevokedAt time.Time
}
