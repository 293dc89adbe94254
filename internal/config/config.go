// Package config loads payloadcrypt settings from the environment, falling back
// to a dotenv file for variables the environment does not set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	crypto "github.com/rbaliyan/payload-crypto"
)

// DefaultFile is the dotenv file read when no path is given.
const DefaultFile = "config.env"

// Key backends.
const (
	BackendAzure  = "azure"
	BackendVault  = "vault"
	BackendStatic = "static"
)

type Config struct {
	KeyBackend string `env:"KEY_BACKEND" default:"azure"`

	KeyVaultURL        string `env:"KEYVAULT_URL"`
	KeyVaultSecretName string `env:"KEYVAULT_SECRET_NAME"`

	VaultAddr       string `env:"VAULT_ADDR"`
	VaultSecretPath string `env:"VAULT_SECRET_PATH"`
	VaultMount      string `env:"VAULT_MOUNT" default:"secret"`
	VaultField      string `env:"VAULT_FIELD" default:"value"`

	// StaticKey is a base64 key for the static backend. Local use only.
	StaticKey string `env:"PAYLOAD_ENCRYPTION_KEY"`

	EnvelopeFormat string `env:"ENVELOPE_FORMAT" default:"legacy"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// Load reads the dotenv file at path (DefaultFile if empty) without overriding
// variables already set in the environment, then parses the environment.
// A missing file is not an error.
//
// Endpoint and secret name are not required here: a missing value surfaces as
// crypto.ErrConfiguration on first key use.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		slog.Debug("No config file found, using environment variables", "path", path)
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Format returns the configured envelope format.
func (c *Config) Format() (crypto.Format, error) {
	return crypto.ParseFormat(c.EnvelopeFormat)
}

func validate(cfg *Config) error {
	switch cfg.KeyBackend {
	case BackendAzure, BackendVault, BackendStatic:
	default:
		return fmt.Errorf("KEY_BACKEND must be one of %s, %s, %s, got %q",
			BackendAzure, BackendVault, BackendStatic, cfg.KeyBackend)
	}

	if _, err := cfg.Format(); err != nil {
		return fmt.Errorf("ENVELOPE_FORMAT: %w", err)
	}

	if cfg.KeyBackend == BackendStatic && cfg.StaticKey == "" {
		return errors.New("PAYLOAD_ENCRYPTION_KEY is required for the static backend")
	}

	return nil
}
