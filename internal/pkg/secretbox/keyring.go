package secretbox

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const keyLen = 32

// Keyring holds every key that may still open stored data and the id of the
// key used for new ciphertexts.
type Keyring struct {
	current uint8
	keys    map[uint8][]byte
}

// NewKeyring validates that current exists and every key is 32 bytes.
func NewKeyring(current uint8, keys map[uint8][]byte) (*Keyring, error) {
	if len(keys[current]) == 0 {
		return nil, fmt.Errorf("secretbox: current key %d is not in the keyring", current)
	}

	cp := make(map[uint8][]byte, len(keys))
	for id, k := range keys {
		if len(k) != keyLen {
			return nil, fmt.Errorf("secretbox: key %d has %d bytes, want %d", id, len(k), keyLen)
		}
		cp[id] = append([]byte(nil), k...)
	}

	return &Keyring{current: current, keys: cp}, nil
}

// ParseKeyring reads keys written as "id:base64" entries, e.g. from config.
func ParseKeyring(current uint8, entries map[string]string) (*Keyring, error) {
	keys := make(map[uint8][]byte, len(entries))
	for rawID, rawKey := range entries {
		id, err := strconv.ParseUint(strings.TrimSpace(rawID), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("secretbox: key id %q: %w", rawID, err)
		}
		k, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rawKey))
		if err != nil {
			return nil, fmt.Errorf("secretbox: key %d is not base64: %w", id, err)
		}
		keys[uint8(id)] = k
	}

	return NewKeyring(current, keys)
}

func (k *Keyring) key(id uint8) ([]byte, bool) {
	v, ok := k.keys[id]
	return v, ok
}
