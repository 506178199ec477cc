package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default endpoints target devnet; override for testnet or a local node.
const (
	DefaultNodeURL   = "https://fullnode.devnet.aptoslabs.com/v1"
	DefaultFaucetURL = "https://faucet.devnet.aptoslabs.com"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Credentials. Both are opaque strings here; parsing into SDK types
	// happens at the call site so a bad key fails with chain context.
	DeployerPrivateKey string
	RecipientAddress   string

	// Chain endpoints
	NodeURL   string
	FaucetURL string

	// Deployment ledger (optional; recording is disabled when empty)
	DatabaseURL string

	// Deployment event stream (optional; publishing is disabled when empty)
	NATSURL string

	// Logging
	LogLevel string

	// Coin identity within the published package
	CoinModuleName string
	CoinStructName string

	// Build directory name the Move toolchain writes under build/
	PackageBuildName string

	// Faucet amounts in octas
	DeployerFundAmount  uint64
	RecipientFundAmount uint64
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.DeployerPrivateKey = os.Getenv("DEPLOYER_PRIVATE_KEY")
	if cfg.DeployerPrivateKey == "" {
		errs = append(errs, fmt.Errorf("DEPLOYER_PRIVATE_KEY is required"))
	}

	cfg.RecipientAddress = os.Getenv("RECIPIENT_ADDRESS")
	if cfg.RecipientAddress == "" {
		errs = append(errs, fmt.Errorf("RECIPIENT_ADDRESS is required"))
	}

	cfg.NodeURL = getEnvOrDefault("APTOS_NODE_URL", DefaultNodeURL)
	cfg.FaucetURL = getEnvOrDefault("APTOS_FAUCET_URL", DefaultFaucetURL)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.CoinModuleName = getEnvOrDefault("COIN_MODULE_NAME", "stable_coin1")
	cfg.CoinStructName = getEnvOrDefault("COIN_STRUCT_NAME", "StableCoin1")
	cfg.PackageBuildName = getEnvOrDefault("PACKAGE_BUILD_NAME", "Examples")

	deployerFund, err := parseUint64("DEPLOYER_FUND_AMOUNT", 20_000_000)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DeployerFundAmount = deployerFund
	}

	recipientFund, err := parseUint64("RECIPIENT_FUND_AMOUNT", 20_000_000_000)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RecipientFundAmount = recipientFund
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for command initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DeployerPrivateKey == "" {
		errs = append(errs, fmt.Errorf("DeployerPrivateKey is required"))
	}

	if c.RecipientAddress == "" {
		errs = append(errs, fmt.Errorf("RecipientAddress is required"))
	}

	if c.NodeURL == "" {
		errs = append(errs, fmt.Errorf("NodeURL is required"))
	}

	if c.FaucetURL == "" {
		errs = append(errs, fmt.Errorf("FaucetURL is required"))
	}

	if c.CoinModuleName == "" {
		errs = append(errs, fmt.Errorf("CoinModuleName is required"))
	}

	if c.CoinStructName == "" {
		errs = append(errs, fmt.Errorf("CoinStructName is required"))
	}

	if c.PackageBuildName == "" {
		errs = append(errs, fmt.Errorf("PackageBuildName is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// LedgerEnabled reports whether deployment history recording is configured.
func (c *Config) LedgerEnabled() bool {
	return c.DatabaseURL != ""
}

// EventsEnabled reports whether deployment event publishing is configured.
func (c *Config) EventsEnabled() bool {
	return c.NATSURL != ""
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseUint64 parses an unsigned integer from an environment variable or uses a default.
func parseUint64(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid amount %q: %w", key, value, err)
	}
	return result, nil
}
