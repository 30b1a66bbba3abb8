package entity

import "time"

// Authenticator is a stored TOTP account. Secret holds the sealed Base32
// secret, never the plaintext.
type Authenticator struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	Tags        []string
	Secret      []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ListFilter struct {
	UserID int64
	Take   int
	Skip   int
	Tag    string
	Search string
}

// Patch carries only the fields being changed.
type Patch struct {
	ID          int64
	UserID      int64
	Name        *string
	Description *string
	Tags        *[]string
	UpdatedAt   time.Time
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Tags == nil
}
