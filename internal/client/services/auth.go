// Package services contains application services for the TamteKlipy CLI.
// This file defines the authentication service: login against the backend
// and housekeeping of the locally persisted bearer token.
package services

import (
	"context"
	"fmt"

	"github.com/tamteklipy/tkcli/internal/client/api"
	"github.com/tamteklipy/tkcli/internal/client/auth"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist the bearer token.
//   - Logout: drop the persisted token.
//   - Authenticated: report whether a usable (non-expired) token exists.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Authenticated() bool
}

// authService is the concrete AuthService backed by the API client and the
// on-disk token store.
type authService struct {
	client api.Client
	tokens *auth.TokenStore
}

// NewAuthService constructs an AuthService bound to the given API client and
// token store.
func NewAuthService(client api.Client, tokens *auth.TokenStore) AuthService {
	return &authService{client: client, tokens: tokens}
}

func (a *authService) Login(ctx context.Context, username, password string) error {
	token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.tokens.Set(token); err != nil {
		return fmt.Errorf("token saving error: %w", err)
	}
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.tokens.Clear(); err != nil {
		return fmt.Errorf("token clearing error: %w", err)
	}
	return nil
}

func (a *authService) Authenticated() bool {
	return a.tokens.Token() != ""
}
