package event

const (
	AuthenticatorImportedTopic string = "authenticator.imported"
	AuthenticatorImportedAudit string = "authenticator.imported.audit"
)

type AuthenticatorImportedMessage struct {
	UserID     int64  `json:"user_id,string"`
	Source     string `json:"source"`
	Success    int    `json:"success"`
	Failure    int    `json:"failure"`
	ImportedAt int64  `json:"imported_at"`
}

const (
	AuthenticatorExportedTopic string = "authenticator.exported"
	AuthenticatorExportedAudit string = "authenticator.exported.audit"
)

type AuthenticatorExportedMessage struct {
	UserID     int64  `json:"user_id,string"`
	Count      int    `json:"count"`
	Uploaded   bool   `json:"uploaded"`
	ObjectKey  string `json:"object_key,omitempty"`
	ExportedAt int64  `json:"exported_at"`
}
