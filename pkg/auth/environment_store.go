package auth

import (
	"errors"
	"os"
)

// EnvTokenVar is the environment variable the read-only backend consults.
const EnvTokenVar = "IGDASH_ACCESS_TOKEN"

// EnvironmentStore reads the token from the environment. It is read-only:
// writes and deletes are rejected so the vault falls through to a durable
// backend.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed token store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (s *EnvironmentStore) Store(token *Token) error {
	return errors.New("environment store is read-only")
}

func (s *EnvironmentStore) Retrieve() (*Token, error) {
	value := os.Getenv(EnvTokenVar)
	if value == "" {
		return nil, ErrTokenNotFound
	}
	return &Token{AccessToken: value}, nil
}

func (s *EnvironmentStore) Delete() error {
	return errors.New("environment store is read-only")
}

func (s *EnvironmentStore) Exists() bool {
	return os.Getenv(EnvTokenVar) != ""
}
