package entity

import (
	"encoding/json"
	"time"
)

type Kind string

const (
	KindUserRegistered        Kind = "user.registered"
	KindPasswordChanged       Kind = "password.changed"
	KindAuthenticatorImported Kind = "authenticator.imported"
	KindAuthenticatorExported Kind = "authenticator.exported"
)

func (k Kind) String() string {
	return string(k)
}

// Event is one row of a user's security activity log. MessageID is the id of
// the domain event it was recorded from; a redelivered message maps to the
// same row.
type Event struct {
	ID        int64
	UserID    int64
	Kind      Kind
	MessageID string
	Detail    json.RawMessage
	CreatedAt time.Time
}
