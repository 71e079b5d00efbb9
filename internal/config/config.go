// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig holds everything the server needs to start.
type ServerConfig struct {
	Port            int    `env:"PORT" envDefault:"8080"`
	MongoDBURI      string `env:"MONGODB_URI"`
	MongoDBDatabase string `env:"MONGODB_DATABASE" envDefault:"bedtrack"`

	ClientTokenSecret string `env:"CLIENT_TOKEN_SECRET"`
	TokenIssuer       string `env:"TOKEN_ISSUER" envDefault:"bedtrack"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	PasswordSignupEnabled bool          `env:"PASSWORD_SIGNUP_ENABLED" envDefault:"true"`
	ResetTokenSecret      string        `env:"RESET_TOKEN_SECRET"`
	ResetTokenTTL         time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
	ResetURL              string        `env:"RESET_URL"`

	SupportEmail string `env:"SUPPORT_EMAIL"`
	MailEnabled  bool   `env:"MAIL_ENABLED" envDefault:"false"`
}

// Load parses the server configuration from environment variables.
func Load() (*ServerConfig, error) {
	cfg, err := env.ParseAs[ServerConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks if the server configuration is valid.
func (c *ServerConfig) validate() error {
	if c.MongoDBURI == "" {
		return fmt.Errorf("missing MONGODB_URI environment variable")
	}
	if c.ClientTokenSecret == "" {
		return fmt.Errorf("missing CLIENT_TOKEN_SECRET environment variable")
	}
	if c.ResetTokenSecret == "" {
		return fmt.Errorf("missing RESET_TOKEN_SECRET environment variable")
	}
	if c.GoogleClientID == "" {
		return fmt.Errorf("missing GOOGLE_CLIENT_ID environment variable")
	}
	if c.GoogleClientSecret == "" {
		return fmt.Errorf("missing GOOGLE_CLIENT_SECRET environment variable")
	}
	if c.GoogleRedirectURL == "" {
		return fmt.Errorf("missing GOOGLE_REDIRECT_URL environment variable")
	}

	return nil
}
