package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// Layout: [format:1][key id:1][nonce:12][ciphertext+tag].
const (
	format    byte = 1
	nonceSize      = 12
	headerLen      = 2 + nonceSize
)

var (
	ErrEmptyPlaintext    = errors.New("secretbox: plaintext is empty")
	ErrMalformed         = errors.New("secretbox: ciphertext is malformed")
	ErrUnknownKey        = errors.New("secretbox: ciphertext key is not in the keyring")
	ErrOpenFailed        = errors.New("secretbox: open failed")
	ErrKeyringNotPresent = errors.New("secretbox: keyring not configured")
)

// Box seals and opens scoped secrets.
type Box struct {
	ring *Keyring
}

func New(ring *Keyring) *Box {
	return &Box{ring: ring}
}

// Seal encrypts plaintext for scope with the current key.
func (b *Box) Seal(plaintext []byte, scope Scope) ([]byte, error) {
	if b == nil || b.ring == nil {
		return nil, ErrKeyringNotPresent
	}
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}

	id := b.ring.current
	key, _ := b.ring.key(id)
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerLen, headerLen+len(plaintext)+gcm.Overhead())
	out[0] = format
	out[1] = id
	if _, err := rand.Read(out[2:headerLen]); err != nil {
		return nil, fmt.Errorf("secretbox: nonce: %w", err)
	}

	return gcm.Seal(out, out[2:headerLen], plaintext, scope.aad()), nil
}

// Open decrypts a ciphertext sealed for the same scope. Wrong scope, wrong
// key and tampering all report ErrOpenFailed.
func (b *Box) Open(ciphertext []byte, scope Scope) ([]byte, error) {
	if b == nil || b.ring == nil {
		return nil, ErrKeyringNotPresent
	}
	if len(ciphertext) <= headerLen || ciphertext[0] != format {
		return nil, ErrMalformed
	}

	key, ok := b.ring.key(ciphertext[1])
	if !ok {
		return nil, ErrUnknownKey
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, ciphertext[2:headerLen], ciphertext[headerLen:], scope.aad())
	if err != nil {
		return nil, ErrOpenFailed
	}

	return plain, nil
}

// NeedsReseal reports whether ciphertext was sealed with a retired key.
func (b *Box) NeedsReseal(ciphertext []byte) bool {
	return len(ciphertext) > 1 && ciphertext[1] != b.ring.current
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("secretbox: gcm: %w", err)
	}

	return gcm, nil
}
