package entity

import "strings"

// BackupEntry is one element of a backup file. The same shape is accepted on
// import and produced on export.
type BackupEntry struct {
	Name        string   `json:"name"`
	Secret      string   `json:"secret"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

const (
	BackupContentType = "application/json"
	backupPrefix      = "2fa-backup-"
)

// BackupFilename returns 2fa-backup-YYYY-MM-DD.json for the given date.
func BackupFilename(date string) string {
	return backupPrefix + date + ".json"
}

// BackupObjectPrefix is where a user's uploaded backups live in storage.
func BackupObjectPrefix(userID string) string {
	return "backups/" + userID + "/"
}

// IsBackupObject reports whether key is an uploaded backup of the user.
func IsBackupObject(userID, key string) bool {
	prefix := BackupObjectPrefix(userID)
	return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, ".json") && !strings.Contains(key[len(prefix):], "/")
}
