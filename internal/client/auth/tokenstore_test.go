package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestTokenStore_SetPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()

	s, err := NewTokenStore(dir)
	require.NoError(t, err)
	require.Empty(t, s.Token())

	tok := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, s.Set(tok))
	require.Equal(t, tok, s.Token())

	// a fresh store picks the token up from disk
	s2, err := NewTokenStore(dir)
	require.NoError(t, err)
	require.Equal(t, tok, s2.Token())
}

func TestTokenStore_ExpiredTokenIsDropped(t *testing.T) {
	dir := t.TempDir()
	s, err := NewTokenStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(signedToken(t, time.Now().Add(-time.Minute))))
	require.Empty(t, s.Token())
}

func TestTokenStore_OpaqueTokenIsKept(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token"), []byte("tok-abc\n"), 0o600))

	s, err := NewTokenStore(dir)
	require.NoError(t, err)
	require.Equal(t, "tok-abc", s.Token())
}

func TestTokenStore_TokenWithoutExpIsKept(t *testing.T) {
	dir := t.TempDir()
	s, err := NewTokenStore(dir)
	require.NoError(t, err)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "kuba"})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	require.NoError(t, s.Set(signed))
	require.Equal(t, signed, s.Token())
}

func TestTokenStore_Clear(t *testing.T) {
	dir := t.TempDir()
	s, err := NewTokenStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(signedToken(t, time.Now().Add(time.Hour))))
	require.NoError(t, s.Clear())
	require.Empty(t, s.Token())

	_, err = os.Stat(filepath.Join(dir, "token"))
	require.True(t, os.IsNotExist(err))

	// clearing twice is fine
	require.NoError(t, s.Clear())
}
