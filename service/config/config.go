package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// EndpointConfig is one RPC endpoint with its commitment level.
type EndpointConfig struct {
	URL        string
	Commitment string // "processed", "confirmed", or "finalized"
}

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	LogLevel string

	// Solana configuration
	RPCEndpoints     []EndpointConfig
	StakingProgramID string
	SwapProgramID    string

	// Submission configuration
	MaxRetries      int
	InitialDelay    time.Duration
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration

	// Compensation configuration. Empty path disables refunds.
	ReserveKeypairPath string

	// Keypair used by the auto-harvest worker to sign harvests.
	HarvestKeypairPath string

	// Database configuration. Empty URL disables the audit store.
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Harvest scheduling configuration
	DefaultHarvestInterval time.Duration
	MinHarvestInterval     time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	endpoints, err := parseEndpoints(os.Getenv("SOLANA_RPC_ENDPOINTS"))
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RPCEndpoints = endpoints
	}

	cfg.StakingProgramID = os.Getenv("STAKING_PROGRAM_ID")
	if cfg.StakingProgramID == "" {
		errs = append(errs, fmt.Errorf("STAKING_PROGRAM_ID is required"))
	} else if _, err := solana.PublicKeyFromBase58(cfg.StakingProgramID); err != nil {
		errs = append(errs, fmt.Errorf("STAKING_PROGRAM_ID: invalid address %q: %w", cfg.StakingProgramID, err))
	}

	cfg.SwapProgramID = os.Getenv("SWAP_PROGRAM_ID")
	if cfg.SwapProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.SwapProgramID); err != nil {
			errs = append(errs, fmt.Errorf("SWAP_PROGRAM_ID: invalid address %q: %w", cfg.SwapProgramID, err))
		}
	}

	// Submission configuration
	maxRetries, err := parseInt("SUBMIT_MAX_RETRIES", 5)
	if err != nil {
		errs = append(errs, err)
	} else if maxRetries < 1 {
		errs = append(errs, fmt.Errorf("SUBMIT_MAX_RETRIES must be at least 1"))
	} else {
		cfg.MaxRetries = maxRetries
	}

	initialDelay, err := parseDuration("SUBMIT_INITIAL_DELAY", "250ms")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.InitialDelay = initialDelay
	}

	confirmTimeout, err := parseDuration("CONFIRM_TIMEOUT", "90s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmTimeout = confirmTimeout
	}

	confirmInterval, err := parseDuration("CONFIRM_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmInterval = confirmInterval
	}

	// Compensation configuration
	cfg.ReserveKeypairPath = os.Getenv("RESERVE_KEYPAIR_PATH")

	cfg.HarvestKeypairPath = os.Getenv("HARVEST_KEYPAIR_PATH")

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "hubclient-harvest")

	// Harvest scheduling configuration
	defaultInterval, err := parseDuration("DEFAULT_HARVEST_INTERVAL", "1h")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DefaultHarvestInterval = defaultInterval
	}

	minInterval, err := parseDuration("MIN_HARVEST_INTERVAL", "5m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MinHarvestInterval = minInterval
	}

	// Validate intervals
	if cfg.MinHarvestInterval > cfg.DefaultHarvestInterval {
		errs = append(errs, fmt.Errorf("MIN_HARVEST_INTERVAL (%v) cannot be greater than DEFAULT_HARVEST_INTERVAL (%v)",
			cfg.MinHarvestInterval, cfg.DefaultHarvestInterval))
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for binary initialization where misconfiguration should halt startup.
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

	if len(c.RPCEndpoints) == 0 {
		errs = append(errs, fmt.Errorf("RPCEndpoints is required"))
	}
	for _, ep := range c.RPCEndpoints {
		if ep.URL == "" {
			errs = append(errs, fmt.Errorf("RPC endpoint URL cannot be empty"))
		}
		if !validCommitment(ep.Commitment) {
			errs = append(errs, fmt.Errorf("RPC endpoint %q has invalid commitment %q", ep.URL, ep.Commitment))
		}
	}

	if c.StakingProgramID == "" {
		errs = append(errs, fmt.Errorf("StakingProgramID is required"))
	}

	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("MaxRetries must be at least 1"))
	}

	if c.InitialDelay <= 0 {
		errs = append(errs, fmt.Errorf("InitialDelay must be positive"))
	}

	if c.ConfirmTimeout < time.Second {
		errs = append(errs, fmt.Errorf("ConfirmTimeout must be at least 1 second"))
	}

	if c.MinHarvestInterval > c.DefaultHarvestInterval {
		errs = append(errs, fmt.Errorf("MinHarvestInterval cannot be greater than DefaultHarvestInterval"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// parseEndpoints parses the comma-separated endpoint list. Each entry is a
// URL optionally followed by "|commitment"; the commitment defaults to
// "confirmed".
func parseEndpoints(raw string) ([]EndpointConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("SOLANA_RPC_ENDPOINTS is required")
	}

	var endpoints []EndpointConfig
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		url, commitment := entry, "confirmed"
		if i := strings.IndexByte(entry, '|'); i >= 0 {
			url, commitment = entry[:i], strings.TrimSpace(entry[i+1:])
		}
		if url == "" {
			return nil, fmt.Errorf("SOLANA_RPC_ENDPOINTS: entry %q has an empty URL", entry)
		}
		if !validCommitment(commitment) {
			return nil, fmt.Errorf("SOLANA_RPC_ENDPOINTS: entry %q has invalid commitment %q", entry, commitment)
		}
		endpoints = append(endpoints, EndpointConfig{URL: url, Commitment: commitment})
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("SOLANA_RPC_ENDPOINTS is required")
	}
	return endpoints, nil
}

func validCommitment(c string) bool {
	switch c {
	case "processed", "confirmed", "finalized":
		return true
	default:
		return false
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
