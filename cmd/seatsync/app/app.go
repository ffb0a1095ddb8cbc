// Package app provides the application context and dependency management
// for the seatsync CLI. It centralizes configuration, logging, and the
// API client so commands share one wired instance.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/seatsync/seatsync/internal/github"
	"github.com/seatsync/seatsync/pkg/errors"
)

// App represents the seatsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// API client (lazy-initialized, singleton)
	mu     sync.Mutex
	client *github.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Client returns the API client, creating it lazily. The token must be
// configured before the first call.
func (a *App) Client() (*github.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	if a.config.Token == "" {
		return nil, errors.ErrTokenRequired
	}

	a.client = github.NewClient(a.config.APIURL, a.config.Token)
	return a.client, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom API client (useful for testing).
func WithClient(client *github.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}
