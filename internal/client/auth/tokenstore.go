// Package auth persists the bearer token issued by the TamteKlipy backend
// and decides locally whether it is still usable.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore keeps the access token in memory and mirrors it to a file so a
// login survives client restarts. The token itself is opaque to the backend
// contract; only its exp claim is inspected, without signature verification,
// to avoid sending requests that are guaranteed to bounce.
type TokenStore struct {
	mu   sync.Mutex
	path string
	tok  string
}

// NewTokenStore loads any previously saved token from dir/token.
func NewTokenStore(dir string) (*TokenStore, error) {
	s := &TokenStore{path: filepath.Join(dir, "token")}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	s.tok = strings.TrimSpace(string(data))
	return s, nil
}

// Set stores the token in memory and on disk.
func (s *TokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tok = token
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Token returns the stored token, or an empty string when no token exists
// or the stored one has expired.
func (s *TokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok == "" || expired(s.tok) {
		return ""
	}
	return s.tok
}

// Clear forgets the token in memory and removes the file.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tok = ""
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// expired parses the token without verifying its signature (the server is
// the authority; we only want to skip doomed requests) and reports whether
// the exp claim is in the past. Tokens that do not parse as JWTs are kept
// and sent as-is; the server decides whether an opaque token is valid.
func expired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		// no exp claim: let the server decide
		return false
	}
	return exp.Before(time.Now())
}
