package event

const (
	UserRegisteredTopic string = "identity.user.registered"
	UserRegisteredAudit string = "identity.user.registered.audit"
)

type UserRegisteredMessage struct {
	UserID       int64  `json:"user_id,string"`
	Username     string `json:"username"`
	RegisteredAt int64  `json:"registered_at"`
}

const (
	PasswordChangedTopic string = "identity.password.changed"
	PasswordChangedAudit string = "identity.password.changed.audit"
)

type PasswordChangedMessage struct {
	UserID          int64 `json:"user_id,string"`
	RevokedSessions int64 `json:"revoked_sessions"`
	ChangedAt       int64 `json:"changed_at"`
}
