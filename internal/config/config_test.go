package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
	assert.Equal(t, 2*time.Minute, cfg.OfferWindow)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 2*time.Second, cfg.ChatLatencyBudget)
	assert.Equal(t, 3*time.Second, cfg.NotifyLatencyBudget)
	assert.Equal(t, "0.01", cfg.AmountTolerancePct)
	assert.Empty(t, cfg.IntegritySigningKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OFFER_WINDOW", "30s")
	t.Setenv("SWEEP_INTERVAL", "2s")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/bookings?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.OfferWindow)
	assert.Equal(t, 2*time.Second, cfg.SweepInterval)
	assert.Equal(t, "postgres://u:p@db:5432/bookings?sslmode=disable", cfg.DatabaseURL)
}

func TestLoad_SigningKey(t *testing.T) {
	t.Setenv("INTEGRITY_SIGNING_KEY", "00112233445566778899aabbccddeeff")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.IntegritySigningKey, 16)
}

func TestLoad_SigningKeyRejectsBadHex(t *testing.T) {
	t.Setenv("INTEGRITY_SIGNING_KEY", "not-hex")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTEGRITY_SIGNING_KEY")
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("OFFER_WINDOW", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.OfferWindow)
}
