// Package cli implements the interactive TamteKlipy command-line client:
// a small REPL over the upload pipeline and the clip listing.
package cli

import (
	"bufio"
	"log/slog"
	"os"

	"github.com/tamteklipy/tkcli/internal/client/api"
	"github.com/tamteklipy/tkcli/internal/client/auth"
	"github.com/tamteklipy/tkcli/internal/client/config"
	"github.com/tamteklipy/tkcli/internal/client/services"
	"github.com/tamteklipy/tkcli/internal/client/upload"
	"github.com/tamteklipy/tkcli/internal/filex"
	"github.com/tamteklipy/tkcli/internal/logging"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	coordinator *upload.Coordinator
	apiClient   api.Client
	reader      *bufio.Reader
	log         logging.Logger
}

func NewApp(c *config.Config) (*App, error) {
	dir, err := filex.EnsureAppDir("tkcli")
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenStore(dir)
	if err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	apiClient := api.NewHTTPClient(c.APIBaseURL, tokens, logger)
	as := services.NewAuthService(apiClient, tokens)
	coordinator := upload.NewCoordinator(apiClient, upload.NewRegistry(), logger)

	return &App{
		config:      c,
		authService: as,
		coordinator: coordinator,
		apiClient:   apiClient,
		reader:      bufio.NewReader(os.Stdin),
		log:         logger,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.authService.Authenticated()
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return "online"
	}
	return "anonymous"
}
