package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hdnguyen/chatauth/identity"
)

// Config holds the complete configuration for the auth callout service.
// Values come from an optional JSON file; the environment overrides the
// connection-level settings (NATS_URL, DATABASE_URL, NATS_USER,
// NATS_PASSWORD, CHATAUTH_ISSUER_SEED_FILE).
type Config struct {
	// Server configures the NATS connection.
	Server ServerConfig `json:"server"`

	// Database configures the relational store.
	Database DatabaseConfig `json:"database"`

	// Issuer configures the response/grant signing keypair.
	Issuer IssuerConfig `json:"issuer"`

	// ExternalJWT optionally enables the external-IdP JWT form of the
	// auth token.
	ExternalJWT *identity.ExternalVerifierConfig `json:"externalJwt,omitempty"`
}

// ServerConfig configures the NATS connection of the callout service.
type ServerConfig struct {
	// NatsURL is the NATS server URL.
	NatsURL string `json:"natsUrl"`

	// NatsCredentials is the path to the NATS credentials file.
	NatsCredentials string `json:"natsCredentials,omitempty"`

	// NatsNkey is the path to the nkey seed file for NATS authentication.
	NatsNkey string `json:"natsNkey,omitempty"`

	// NatsUser and NatsPassword authenticate with plain credentials.
	NatsUser     string `json:"natsUser,omitempty"`
	NatsPassword string `json:"natsPassword,omitempty"`

	// XKeySeedFile is the path to a file containing the XKey seed for
	// encrypted callout.
	XKeySeedFile string `json:"xkeySeedFile,omitempty"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	// URL is the Postgres DSN.
	URL string `json:"url"`
}

// IssuerConfig configures the issuer account keypair.
type IssuerConfig struct {
	// SeedFile is the path to a file containing the issuer account nkey seed.
	SeedFile string `json:"seedFile"`
}

// LoadConfig reads the configuration. With an empty path the configuration
// comes entirely from the environment.
func LoadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	config.applyEnv()
	return &config, nil
}

// applyEnv lets the environment override connection-level settings.
func (c *Config) applyEnv() {
	if v := os.Getenv("NATS_URL"); v != "" {
		c.Server.NatsURL = v
	}
	if v := os.Getenv("NATS_USER"); v != "" {
		c.Server.NatsUser = v
	}
	if v := os.Getenv("NATS_PASSWORD"); v != "" {
		c.Server.NatsPassword = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("CHATAUTH_ISSUER_SEED_FILE"); v != "" {
		c.Issuer.SeedFile = v
	}
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if err := validateCalloutAuth(CalloutConfig{
		NatsCredentials: c.Server.NatsCredentials,
		NatsNkey:        c.Server.NatsNkey,
		NatsUser:        c.Server.NatsUser,
	}); err != nil {
		return err
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required (or set DATABASE_URL)")
	}
	if c.Issuer.SeedFile == "" {
		return errors.New("issuer.seedFile is required (or set CHATAUTH_ISSUER_SEED_FILE)")
	}
	if c.ExternalJWT != nil {
		if strings.TrimSpace(c.ExternalJWT.Issuer) == "" {
			return errors.New("externalJwt.issuer is required")
		}
		if strings.TrimSpace(c.ExternalJWT.PublicKey) == "" {
			return errors.New("externalJwt.publicKey is required")
		}
	}
	return nil
}

// GetXKeySeed returns the XKey seed, reading from file.
func (c *ServerConfig) GetXKeySeed() (string, error) {
	if c.XKeySeedFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.XKeySeedFile)
	if err != nil {
		return "", fmt.Errorf("reading xkey seed file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// GetIssuerSeed reads the issuer account nkey seed from file.
func (c *IssuerConfig) GetIssuerSeed() (string, error) {
	data, err := os.ReadFile(c.SeedFile)
	if err != nil {
		return "", fmt.Errorf("reading issuer seed file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ToCalloutConfig converts the server configuration to a CalloutConfig.
func (c *ServerConfig) ToCalloutConfig() (CalloutConfig, error) {
	xkeySeed, err := c.GetXKeySeed()
	if err != nil {
		return CalloutConfig{}, err
	}

	return CalloutConfig{
		NatsURL:         c.NatsURL,
		NatsCredentials: c.NatsCredentials,
		NatsNkey:        c.NatsNkey,
		NatsUser:        c.NatsUser,
		NatsPassword:    c.NatsPassword,
		XKeySeed:        xkeySeed,
	}, nil
}
