package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProgramID = "SMddVoXz2hF9jjecS5A1gZLG8TJHo34MEZRTrY7h4Nw"

func TestLoad_ValidConfig(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	os.Setenv("STAKING_PROGRAM_ID", testProgramID)
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Len(t, cfg.RPCEndpoints, 1)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCEndpoints[0].URL)
	assert.Equal(t, "confirmed", cfg.RPCEndpoints[0].Commitment) // Default
	assert.Equal(t, testProgramID, cfg.StakingProgramID)
	assert.Equal(t, "info", cfg.LogLevel) // Default
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 90*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, time.Hour, cfg.DefaultHarvestInterval)
	assert.Equal(t, "hubclient-harvest", cfg.TemporalTaskQueue)
}

func TestLoad_MultipleEndpointsWithCommitments(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://a.example.com|finalized, https://b.example.com, https://c.example.com|processed")
	os.Setenv("STAKING_PROGRAM_ID", testProgramID)
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.RPCEndpoints, 3)
	assert.Equal(t, EndpointConfig{URL: "https://a.example.com", Commitment: "finalized"}, cfg.RPCEndpoints[0])
	assert.Equal(t, EndpointConfig{URL: "https://b.example.com", Commitment: "confirmed"}, cfg.RPCEndpoints[1])
	assert.Equal(t, EndpointConfig{URL: "https://c.example.com", Commitment: "processed"}, cfg.RPCEndpoints[2])
}

func TestLoad_MissingEndpoints(t *testing.T) {
	os.Setenv("STAKING_PROGRAM_ID", testProgramID)
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SOLANA_RPC_ENDPOINTS is required")
}

func TestLoad_MissingProgramID(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "STAKING_PROGRAM_ID is required")
}

func TestLoad_InvalidProgramID(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	os.Setenv("STAKING_PROGRAM_ID", "not-a-key")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "STAKING_PROGRAM_ID")
}

func TestLoad_InvalidCommitment(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://a.example.com|recent")
	os.Setenv("STAKING_PROGRAM_ID", testProgramID)
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid commitment")
}

func TestLoad_InvalidHarvestInterval(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	os.Setenv("STAKING_PROGRAM_ID", testProgramID)
	os.Setenv("DEFAULT_HARVEST_INTERVAL", "invalid")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_MinIntervalGreaterThanDefault(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	os.Setenv("STAKING_PROGRAM_ID", testProgramID)
	os.Setenv("DEFAULT_HARVEST_INTERVAL", "10m")
	os.Setenv("MIN_HARVEST_INTERVAL", "30m")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "cannot be greater than")
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	os.Setenv("STAKING_PROGRAM_ID", testProgramID)
	os.Setenv("SWAP_PROGRAM_ID", testProgramID)
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SUBMIT_MAX_RETRIES", "3")
	os.Setenv("SUBMIT_INITIAL_DELAY", "500ms")
	os.Setenv("CONFIRM_TIMEOUT", "2m")
	os.Setenv("RESERVE_KEYPAIR_PATH", "/etc/hubclient/reserve.json")
	os.Setenv("DATABASE_URL", "postgres://localhost/hub")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("TEMPORAL_HOST", "temporal.example.com:7233")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 2*time.Minute, cfg.ConfirmTimeout)
	assert.Equal(t, "/etc/hubclient/reserve.json", cfg.ReserveKeypairPath)
	assert.Equal(t, "postgres://localhost/hub", cfg.DatabaseURL)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "temporal.example.com:7233", cfg.TemporalHost)
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		RPCEndpoints:           []EndpointConfig{{URL: "https://a.example.com", Commitment: "confirmed"}},
		StakingProgramID:       testProgramID,
		MaxRetries:             5,
		InitialDelay:           250 * time.Millisecond,
		ConfirmTimeout:         90 * time.Second,
		DefaultHarvestInterval: time.Hour,
		MinHarvestInterval:     5 * time.Minute,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_MissingEndpoints(t *testing.T) {
	cfg := &Config{
		StakingProgramID: testProgramID,
		MaxRetries:       5,
		InitialDelay:     250 * time.Millisecond,
		ConfirmTimeout:   90 * time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPCEndpoints is required")
}

func TestValidate_InvalidRetries(t *testing.T) {
	cfg := &Config{
		RPCEndpoints:     []EndpointConfig{{URL: "https://a.example.com", Commitment: "confirmed"}},
		StakingProgramID: testProgramID,
		MaxRetries:       0,
		InitialDelay:     250 * time.Millisecond,
		ConfirmTimeout:   90 * time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxRetries must be at least 1")
}

func TestMustLoad_Panics(t *testing.T) {
	// Don't set required env vars
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	os.Setenv("SOLANA_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	os.Setenv("STAKING_PROGRAM_ID", testProgramID)
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	os.Unsetenv("SOLANA_RPC_ENDPOINTS")
	os.Unsetenv("STAKING_PROGRAM_ID")
	os.Unsetenv("SWAP_PROGRAM_ID")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("SUBMIT_MAX_RETRIES")
	os.Unsetenv("SUBMIT_INITIAL_DELAY")
	os.Unsetenv("CONFIRM_TIMEOUT")
	os.Unsetenv("CONFIRM_INTERVAL")
	os.Unsetenv("RESERVE_KEYPAIR_PATH")
	os.Unsetenv("HARVEST_KEYPAIR_PATH")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("NATS_URL")
	os.Unsetenv("TEMPORAL_HOST")
	os.Unsetenv("TEMPORAL_NAMESPACE")
	os.Unsetenv("TEMPORAL_TASK_QUEUE")
	os.Unsetenv("DEFAULT_HARVEST_INTERVAL")
	os.Unsetenv("MIN_HARVEST_INTERVAL")
}
