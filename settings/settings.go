// Package settings reads process settings from the environment, after
// loading an optional .env file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Session store kinds
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Settings holds everything the commands need to start
type Settings struct {
	Host      string `env:"KALAHA_HOST" envDefault:"localhost"`
	Port      int    `env:"KALAHA_PORT" envDefault:"8080"`
	ConfigDir string `env:"CONFIG_DIR" envDefault:"configs"`
	Debug     bool   `env:"KALAHA_DEBUG"`

	Store       string `env:"KALAHA_STORE" envDefault:"file"`
	SessionsDir string `env:"KALAHA_SESSIONS_DIR" envDefault:"sessions"`
	SQLitePath  string `env:"KALAHA_SQLITE_PATH" envDefault:"sessions.db"`

	SessionTTL      time.Duration `env:"KALAHA_SESSION_TTL" envDefault:"24h"`
	CleanupInterval time.Duration `env:"KALAHA_CLEANUP_INTERVAL" envDefault:"1h"`
	SyncInterval    time.Duration `env:"KALAHA_SYNC_INTERVAL" envDefault:"5s"`

	// External API the stdio MCP server tries before starting its own
	ExternalAPI string `env:"KALAHA_EXTERNAL_API" envDefault:"http://localhost:8080"`

	NgrokEnabled bool   `env:"NGROK_ENABLED"`
	NgrokToken   string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain  string `env:"NGROK_DOMAIN"`
}

// Load reads the given .env files (missing ones are ignored) and then the
// environment.
func Load(envFiles ...string) (*Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	return Parse()
}

// Parse reads settings from the environment only
func Parse() (*Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks values env tags cannot express
func (s *Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	s.Store = strings.ToLower(strings.TrimSpace(s.Store))
	switch s.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown session store %q (want file, sqlite or memory)", s.Store)
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if s.CleanupInterval <= 0 || s.SyncInterval <= 0 {
		return fmt.Errorf("cleanup and sync intervals must be positive")
	}
	return nil
}

// Addr returns host:port
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
