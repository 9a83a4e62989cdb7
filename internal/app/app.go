// Package app wires configuration, storage, vendor clients, and the token
// manager into a single initialized core shared by cmd/hearth-server and
// the HTTP layer.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomfelder/hearth/internal/clients/smartthings"
	"github.com/tomfelder/hearth/internal/common"
	"github.com/tomfelder/hearth/internal/interfaces"
	"github.com/tomfelder/hearth/internal/storage/credstore"
	"github.com/tomfelder/hearth/internal/tokens"
)

// App holds all initialized components.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.CredentialStore
	Devices     interfaces.SmartThingsClient
	OAuth       interfaces.OAuthClient // nil when OAuth is not configured
	Tokens      interfaces.TokenSource
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, and vendor clients.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	// Load configuration - check provided path, HEARTH_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("HEARTH_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "hearth.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/hearth.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := credstore.NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	devices := smartthings.NewClient(
		smartthings.WithBaseURL(config.SmartThings.BaseURL),
		smartthings.WithLogger(logger),
		smartthings.WithTimeout(config.SmartThings.GetTimeout()),
		smartthings.WithRateLimit(config.SmartThings.RateLimit),
	)

	var oauth interfaces.OAuthClient
	if config.SmartThings.OAuthConfigured() {
		oauth = smartthings.NewOAuth(
			config.SmartThings.TokenURL,
			config.SmartThings.ClientID,
			config.SmartThings.ClientSecret,
			config.SmartThings.RedirectURI,
			smartthings.WithOAuthLogger(logger),
			smartthings.WithOAuthTimeout(config.SmartThings.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("SmartThings OAuth not configured - authorization flow and token refresh unavailable")
	}

	manager := tokens.NewManager(store, oauth, tokens.WithLogger(logger))

	logger.Info().
		Str("environment", config.Environment).
		Str("storage_path", config.Storage.Path).
		Bool("oauth_configured", oauth != nil).
		Bool("pat_configured", config.SmartThings.PAT != "").
		Msg("App initialized")

	return &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		Devices:     devices,
		OAuth:       oauth,
		Tokens:      manager,
		StartupTime: time.Now(),
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close credential store")
		}
	}
}
