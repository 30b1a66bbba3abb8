package otp

import (
	"encoding/base32"
	"strings"
	"unicode"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// NormalizeSecret returns the canonical form of a user supplied secret:
// whitespace removed, upper case, padding dropped. It fails when a character
// falls outside the RFC 4648 alphabet or when nothing decodes.
func NormalizeSecret(secret string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, secret)
	cleaned = strings.TrimRight(cleaned, "=")

	if cleaned == "" {
		return "", &InvalidSecretError{Reason: "secret is empty"}
	}

	for _, r := range cleaned {
		if (r < 'A' || r > 'Z') && (r < '2' || r > '7') {
			return "", &InvalidSecretError{Reason: "character " + string(r) + " is not base32"}
		}
	}

	// 1, 3 and 6 trailing characters never form a whole byte.
	switch len(cleaned) % 8 {
	case 1, 3, 6:
		return "", &InvalidSecretError{Reason: "secret has an invalid length"}
	}

	raw, err := b32.DecodeString(cleaned)
	if err != nil {
		return "", &InvalidSecretError{Reason: "secret has an invalid length"}
	}
	if len(raw) == 0 {
		return "", &InvalidSecretError{Reason: "secret decodes to zero bytes"}
	}

	return cleaned, nil
}

// DecodeSecret returns the raw key bytes of a Base32 secret.
func DecodeSecret(secret string) ([]byte, error) {
	normalized, err := NormalizeSecret(secret)
	if err != nil {
		return nil, err
	}

	return b32.DecodeString(normalized)
}

// EncodeSecret renders raw key bytes as an unpadded upper case Base32 string.
func EncodeSecret(key []byte) string {
	return b32.EncodeToString(key)
}

// GenerateSecret creates a fresh random 160-bit secret for issuer/account.
func GenerateSecret(issuer, account string) (Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      DefaultPeriod,
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Key{}, err
	}

	return Key{Issuer: issuer, Account: account, Secret: key.Secret()}, nil
}
