package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultStoreAndRetrieve(t *testing.T) {
	mock := NewMockStore()
	vault := NewVaultWithStores(mock)

	require.NoError(t, vault.Store(&Token{AccessToken: "IGQVJtoken1234567890"}))
	assert.True(t, vault.Exists())

	token, err := vault.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "IGQVJtoken1234567890", token.AccessToken)
	assert.False(t, token.SavedAt.IsZero())
}

func TestVaultRejectsEmptyToken(t *testing.T) {
	vault := NewVaultWithStores(NewMockStore())

	assert.True(t, errors.Is(vault.Store(nil), ErrInvalidToken))
	assert.True(t, errors.Is(vault.Store(&Token{}), ErrInvalidToken))
}

func TestVaultFallsThroughBackends(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keyring locked")
	broken.RetrieveError = errors.New("keyring locked")
	working := NewMockStore()
	vault := NewVaultWithStores(broken, working)

	require.NoError(t, vault.Store(&Token{AccessToken: "tok"}))
	assert.False(t, broken.Exists())
	assert.True(t, working.Exists())

	token, err := vault.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)
}

func TestVaultDelete(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	require.NoError(t, first.Store(&Token{AccessToken: "tok"}))
	require.NoError(t, second.Store(&Token{AccessToken: "tok"}))

	vault := NewVaultWithStores(first, second)
	require.NoError(t, vault.Delete())
	assert.False(t, vault.Exists())

	assert.True(t, errors.Is(vault.Delete(), ErrTokenNotFound))
	_, err := vault.Retrieve()
	assert.True(t, errors.Is(err, ErrTokenNotFound))
}

func TestEnvironmentStoreReadOnly(t *testing.T) {
	env := NewEnvironmentStore()

	t.Setenv(EnvTokenVar, "env-token")
	token, err := env.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "env-token", token.AccessToken)
	assert.True(t, env.Exists())

	assert.Error(t, env.Store(&Token{AccessToken: "x"}))
	assert.Error(t, env.Delete())

	t.Setenv(EnvTokenVar, "")
	_, err = env.Retrieve()
	assert.True(t, errors.Is(err, ErrTokenNotFound))
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IGDASH_PASSPHRASE", "test-passphrase")

	es, err := NewEncryptedFileStore(filepath.Join(dir, "token.enc"))
	require.NoError(t, err)

	_, err = es.Retrieve()
	assert.True(t, errors.Is(err, ErrTokenNotFound))

	require.NoError(t, es.Store(&Token{AccessToken: "secret-token"}))

	// A fresh store over the same file decrypts the token.
	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "token.enc"))
	require.NoError(t, err)
	token, err := reopened.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "secret-token", token.AccessToken)

	require.NoError(t, reopened.Delete())
	assert.False(t, reopened.Exists())
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.enc")

	t.Setenv("IGDASH_PASSPHRASE", "right")
	es, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, es.Store(&Token{AccessToken: "secret"}))

	t.Setenv("IGDASH_PASSPHRASE", "wrong")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve()
	assert.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "********", MaskToken("short"))
	assert.Equal(t, "IGQV...7890", MaskToken("IGQVJtoken1234567890"))
}
