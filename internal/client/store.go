package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoTokens is returned by Load when nothing has been saved yet.
var ErrNoTokens = errors.New("client: no saved session")

const sessionFile = "session.json"

// FileTokenStore keeps tokens in a JSON file readable only by the owner.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenStore stores the session under the user config dir, for
// example ~/.config/twofa/session.json on Linux.
func DefaultTokenStore() (*FileTokenStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("client: locate config dir: %w", err)
	}

	return NewFileTokenStore(filepath.Join(dir, "twofa", sessionFile)), nil
}

func (f *FileTokenStore) Path() string { return f.path }

func (f *FileTokenStore) Load(context.Context) (Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Tokens{}, ErrNoTokens
	}
	if err != nil {
		return Tokens{}, err
	}

	var t Tokens
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tokens{}, fmt.Errorf("client: corrupt session file %s: %w", f.path, err)
	}
	if t.empty() {
		return Tokens{}, ErrNoTokens
	}

	return t, nil
}

func (f *FileTokenStore) Save(_ context.Context, t Tokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, f.path)
}

func (f *FileTokenStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
