// Package config loads and validates the gateway configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// GatewayConfig represents the biometric gateway configuration
type GatewayConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Bridges       BridgesConfig       `yaml:"bridges"`
	Biometric     BiometricConfig     `yaml:"biometric"`
	Session       SessionConfig       `yaml:"session"`
	Auth          AuthConfig          `yaml:"auth"`
	KeyManagement KeyManagementConfig `yaml:"key_management"`
	Logging       LoggingConfig       `yaml:"logging"`
	Shutdown      ShutdownConfig      `yaml:"shutdown"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port int    `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost" validate:"required"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user" default:"postgres"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"biogateway"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// BridgesConfig groups the hardware-bridge endpoints.
//
// Fingerprint and iris run as localhost bridge services with an
// info/uninit/capture lifecycle; face capture is a remote service with a
// single capture endpoint and no device session.
type BridgesConfig struct {
	Fingerprint ScannerBridgeConfig `yaml:"fingerprint"`
	Iris        ScannerBridgeConfig `yaml:"iris"`
	Face        FaceBridgeConfig    `yaml:"face"`
}

// ReleasePolicy controls when the gateway calls uninitdevice on a scanner
// bridge. The source system never made this explicit, so it is configuration
// rather than a hardcoded assumption.
type ReleasePolicy string

const (
	// ReleaseAfterCapture releases the device after every capture call.
	ReleaseAfterCapture ReleasePolicy = "after_capture"
	// ReleaseOnClose releases the device only when the gateway shuts down.
	ReleaseOnClose ReleasePolicy = "on_close"
	// ReleaseNever leaves device teardown entirely to the bridge.
	ReleaseNever ReleasePolicy = "never"
)

// ScannerBridgeConfig contains settings for a local scanner bridge
// (fingerprint or iris).
type ScannerBridgeConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
	ReleasePolicy  ReleasePolicy `yaml:"release_policy" default:"after_capture" validate:"oneof=after_capture on_close never"`
}

// FaceBridgeConfig contains settings for the remote face-capture service.
type FaceBridgeConfig struct {
	CaptureURL     string        `yaml:"capture_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
}

// BiometricConfig contains settings for the central biometric service that
// performs enrollment and 1:N identification.
type BiometricConfig struct {
	EnrollURL      string        `yaml:"enroll_url" validate:"required,url"`
	IdentifyURL    string        `yaml:"identify_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
	// TokenEnv names the environment variable holding the service token sent
	// as "Authorization: Token <...>" on enroll/identify calls.
	TokenEnv string `yaml:"token_env" default:"BIOMETRIC_SERVICE_TOKEN"`
}

// SessionConfig contains settings for the capture-flow session store.
// An empty RedisAddr selects the in-memory store.
type SessionConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl" default:"5m"`
}

// AuthConfig contains operator authentication settings
type AuthConfig struct {
	// TokensEnv names the environment variable holding a comma-separated list
	// of static operator tokens.
	TokensEnv string `yaml:"tokens_env" default:"GATEWAY_OPERATOR_TOKENS"`
	// JWKSURL and Issuer enable JWT validation for SSO deployments.
	JWKSURL string `yaml:"jwks_url"`
	Issuer  string `yaml:"issuer"`
}

// KeyManagementConfig contains settings for template-at-rest encryption
type KeyManagementConfig struct {
	// MasterKeyEnv names the environment variable holding the base64-encoded
	// 32-byte master key used to encrypt stored templates.
	MasterKeyEnv string `yaml:"master_key_env" default:"TEMPLATE_MASTER_KEY"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// ShutdownConfig contains graceful shutdown settings
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

// Load loads gateway configuration from a YAML file, applies defaults, and
// validates the result.
func Load(configPath string) (*GatewayConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GatewayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
