package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// tokenKey is the fixed storage key the token is persisted under. The
// token is the only state that survives restarts.
const tokenKey = "github_token"

// ErrNoToken indicates no token has been persisted yet.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the opaque bearer token across process restarts.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// FileTokenStore keeps the token in a JSON file under the user's config
// directory (~/.config/ghswipe/session.json by default).
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a file-backed token store at the default
// location, creating the config directory if needed.
func NewFileTokenStore() (*FileTokenStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(home, ".config", "ghswipe")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return &FileTokenStore{path: filepath.Join(dir, "session.json")}, nil
}

// NewFileTokenStoreAt creates a file-backed token store at an explicit
// path. Used by tests.
func NewFileTokenStoreAt(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load reads the persisted token. Returns ErrNoToken when the file does
// not exist or holds no token.
func (f *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to read session file: %w", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse session file: %w", err)
	}

	token := payload[tokenKey]
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save writes the token. The file is owner-readable only.
func (f *FileTokenStore) Save(token string) error {
	data, err := json.MarshalIndent(map[string]string{tokenKey: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Delete removes the persisted token. Deleting a token that was never
// saved is not an error.
func (f *FileTokenStore) Delete() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
