package secretbox

import (
	"crypto/sha256"
	"strconv"
)

// Purpose separates ciphertexts that must never be interchangeable.
type Purpose string

const (
	PurposeAuthenticatorSecret Purpose = "authenticator_secret"
)

// Scope identifies what a ciphertext belongs to.
type Scope struct {
	OwnerID  int64
	RecordID int64
	Purpose  Purpose
}

func (s Scope) aad() []byte {
	canonical := "owner=" + strconv.FormatInt(s.OwnerID, 10) +
		"\nrecord=" + strconv.FormatInt(s.RecordID, 10) +
		"\npurpose=" + string(s.Purpose) + "\n"
	sum := sha256.Sum256([]byte(canonical))

	return sum[:]
}
