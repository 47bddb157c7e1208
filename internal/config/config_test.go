package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/banking")
	t.Setenv("TOKEN_SECRET", "s3cret")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "9091", cfg.MetricsPort)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 30*time.Second, cfg.VFDTimeout())
	assert.Equal(t, "*/5 * * * *", cfg.ReconcileSchedule)
	assert.Equal(t, 10, cfg.ReconcileStaleMinutes)
	assert.Equal(t, 100, cfg.ReconcileBatchSize)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/banking")
	t.Setenv("TOKEN_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("TOKEN_TTL_MINUTES", "30")
	t.Setenv("VFD_WALLET_BASE_URL", "https://api-sandbox.vfd.example/wallet2")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.ServerPort)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL())
	assert.Equal(t, "https://api-sandbox.vfd.example/wallet2", cfg.VFDWalletBaseURL)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TOKEN_SECRET", "s3cret")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRequiresTokenSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/banking")
	t.Setenv("TOKEN_SECRET", "")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_SECRET")
}

func TestLoadCoercesBadReconcileValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/banking")
	t.Setenv("TOKEN_SECRET", "s3cret")
	t.Setenv("RECONCILE_STALE_MINUTES", "-5")
	t.Setenv("RECONCILE_BATCH_SIZE", "0")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.ReconcileStaleMinutes)
	assert.Equal(t, 100, cfg.ReconcileBatchSize)
}
