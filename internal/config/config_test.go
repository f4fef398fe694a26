package config

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "https://testnet-api.algonode.cloud", cfg.AlgodAddress)
	assert.Equal(t, uint64(10), cfg.ConfirmationRounds)
	assert.Equal(t, uint64(100), cfg.MaxWaitRounds)
	assert.False(t, cfg.WaitForConfirmation)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 2*time.Second, cfg.AccountCacheTTL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("ALGO_TRANSFERS_STORE_DRIVER", "bolt")
	t.Setenv("ALGO_TRANSFERS_CONFIRMATION_ROUNDS", "4")
	t.Setenv("ALGO_TRANSFERS_WAIT_FOR_CONFIRMATION", "true")
	t.Setenv("ALGO_TRANSFERS_RECONCILE_INTERVAL", "5s")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, StoreDriverBolt, cfg.StoreDriver)
	assert.Equal(t, uint64(4), cfg.ConfirmationRounds)
	assert.True(t, cfg.WaitForConfirmation)
	assert.Equal(t, 5*time.Second, cfg.ReconcileInterval)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := Load([]string{"--server-port", "0", "--store-driver", "memory"})
	require.NoError(t, err)

	assert.Equal(t, "0", cfg.ServerPort)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("ALGO_TRANSFERS_STORE_DRIVER", "mongo")

	_, err := Load(nil)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestLoad_MaxWaitRoundsBelowConfirmationRounds(t *testing.T) {
	t.Setenv("ALGO_TRANSFERS_CONFIRMATION_ROUNDS", "20")
	t.Setenv("ALGO_TRANSFERS_MAX_WAIT_ROUNDS", "5")

	_, err := Load(nil)
	assert.ErrorContains(t, err, "max wait rounds")
}

func TestLoad_HelpWanted(t *testing.T) {
	_, err := Load([]string{"--help"})
	assert.True(t, errors.Is(err, conf.ErrHelpWanted))

	usage, err := Usage()
	require.NoError(t, err)
	assert.Contains(t, usage, "ALGO_TRANSFERS_ALGOD_ADDRESS")
}

func TestConfig_MasksSecrets(t *testing.T) {
	t.Setenv("ALGO_TRANSFERS_DEFAULT_MNEMONIC", "abandon abandon abandon")
	t.Setenv("ALGO_TRANSFERS_DB_PASSWORD", "s3cret")

	cfg, err := Load(nil)
	require.NoError(t, err)

	out := cfg.String()
	assert.NotContains(t, out, "abandon")
	assert.NotContains(t, out, "s3cret")
}

func TestGetDBConnectionString(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", cfg.GetDBConnectionString())
}
