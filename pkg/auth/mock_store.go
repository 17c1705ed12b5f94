package auth

import "sync"

// MockStore implements TokenStore for testing purposes.
type MockStore struct {
	token *Token
	mu    sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	DeleteError   error
}

// NewMockStore creates a new mock token store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Store(token *Token) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if token == nil || token.AccessToken == "" {
		return ErrInvalidToken
	}
	copied := *token
	m.token = &copied
	return nil
}

func (m *MockStore) Retrieve() (*Token, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == nil {
		return nil, ErrTokenNotFound
	}
	copied := *m.token
	return &copied, nil
}

func (m *MockStore) Delete() error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return ErrTokenNotFound
	}
	m.token = nil
	return nil
}

func (m *MockStore) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != nil
}

// Clear removes the stored token (useful for test cleanup).
func (m *MockStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
}
