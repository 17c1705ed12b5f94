// Package auth stores the long-lived Graph API access token at rest. The
// document store holds the working copy; the vault keeps the durable one so
// a wiped database does not mean re-authorizing the app.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Errors
var (
	ErrTokenNotFound  = errors.New("access token not found")
	ErrInvalidToken   = errors.New("invalid access token")
	ErrNoVaultBackend = errors.New("no vault backend available")
)

// Token is the stored long-lived access token with its refresh bookkeeping.
type Token struct {
	AccessToken string    `json:"access_token"`
	SavedAt     time.Time `json:"saved_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// TokenStore is a single backend for the access token.
type TokenStore interface {
	// Store persists the token.
	Store(token *Token) error

	// Retrieve returns the stored token, or ErrTokenNotFound.
	Retrieve() (*Token, error)

	// Delete removes the stored token.
	Delete() error

	// Exists reports whether a token is stored.
	Exists() bool
}

// Vault chains token backends: system keychain when available, an encrypted
// file as fallback, and the environment as a read-only last resort.
type Vault struct {
	stores []TokenStore
}

// NewVault creates a vault with every backend available on this system.
func NewVault() (*Vault, error) {
	var stores []TokenStore

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	configDir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	es, err := NewEncryptedFileStore(filepath.Join(configDir, "token.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, es)

	stores = append(stores, NewEnvironmentStore())

	return &Vault{stores: stores}, nil
}

// NewVaultWithStores creates a vault over an explicit backend chain.
// Intended for tests.
func NewVaultWithStores(stores ...TokenStore) *Vault {
	return &Vault{stores: stores}
}

// Store saves the token to the first backend that accepts it.
func (v *Vault) Store(token *Token) error {
	if token == nil || token.AccessToken == "" {
		return ErrInvalidToken
	}
	token.SavedAt = time.Now().UTC()

	var lastErr error
	for _, s := range v.stores {
		if err := s.Store(token); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store token: %w", lastErr)
	}
	return ErrNoVaultBackend
}

// Retrieve returns the token from the first backend that has one.
func (v *Vault) Retrieve() (*Token, error) {
	for _, s := range v.stores {
		if token, err := s.Retrieve(); err == nil && token != nil {
			return token, nil
		}
	}
	return nil, ErrTokenNotFound
}

// Delete removes the token from every backend that has it.
func (v *Vault) Delete() error {
	var deleted bool
	var lastErr error
	for _, s := range v.stores {
		if err := s.Delete(); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}
	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete token: %w", lastErr)
	}
	return ErrTokenNotFound
}

// Exists reports whether any backend holds a token.
func (v *Vault) Exists() bool {
	for _, s := range v.stores {
		if s.Exists() {
			return true
		}
	}
	return false
}

// MaskToken masks all but the first 4 and last 4 characters of a token for
// display and logging.
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// configDir returns the configuration directory, creating it if needed.
func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "igdash")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "igdash")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			dir = filepath.Join(xdgConfig, "igdash")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "igdash")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
