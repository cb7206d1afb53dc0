package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL string
	ServerAddr  string

	// OfferWindow is the business timeout: how long a provider has to
	// respond to an offer.
	OfferWindow time.Duration

	// StoreTimeout bounds individual ledger operations. Deliberately much
	// shorter than OfferWindow; a slow store must not extend an offer.
	StoreTimeout time.Duration

	// SweepInterval is how often the expiry sweep looks for offers whose
	// in-process timer was lost.
	SweepInterval time.Duration

	ChatLatencyBudget       time.Duration
	NotifyLatencyBudget     time.Duration
	CommissionLatencyBudget time.Duration

	// AmountTolerancePct is the allowed commission/price drift in percent,
	// e.g. "0.01" for 0.01%.
	AmountTolerancePct string

	// IntegritySigningKey is the decoded HMAC key; empty disables report
	// signatures.
	IntegritySigningKey []byte

	// IntegrityRules is a JSON array of custom audit rules.
	IntegrityRules string
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "booking_engine")
		pass := getenv("POSTGRES_PASSWORD", "booking_engine_pass")
		db := getenv("POSTGRES_DB", "booking_engine")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	// An operator who configured signing must not run unsigned by typo.
	var signingKey []byte
	if raw := os.Getenv("INTEGRITY_SIGNING_KEY"); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("INTEGRITY_SIGNING_KEY must be hex: %w", err)
		}
		signingKey = key
	}

	return &Config{
		DatabaseURL:             dsn,
		ServerAddr:              getenv("SERVER_ADDR", "0.0.0.0:8080"),
		OfferWindow:             parseDuration(getenv("OFFER_WINDOW", "2m"), 2*time.Minute),
		StoreTimeout:            parseDuration(getenv("STORE_TIMEOUT", "5s"), 5*time.Second),
		SweepInterval:           parseDuration(getenv("SWEEP_INTERVAL", "10s"), 10*time.Second),
		ChatLatencyBudget:       parseDuration(getenv("CHAT_LATENCY_BUDGET", "2s"), 2*time.Second),
		NotifyLatencyBudget:     parseDuration(getenv("NOTIFY_LATENCY_BUDGET", "3s"), 3*time.Second),
		CommissionLatencyBudget: parseDuration(getenv("COMMISSION_LATENCY_BUDGET", "5s"), 5*time.Second),
		AmountTolerancePct:      getenv("AMOUNT_TOLERANCE_PCT", "0.01"),
		IntegritySigningKey:     signingKey,
		IntegrityRules:          os.Getenv("INTEGRITY_RULES"),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
