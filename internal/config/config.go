// Package config provides runtime configuration for the server and the CLI.
//
// Values come from the environment. A .env file in the working directory is
// loaded first; variables already set in the environment win over it.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/roach88/zwiggato/internal/api"
	"github.com/roach88/zwiggato/internal/ledger"
	"github.com/roach88/zwiggato/internal/order"
)

// Environment keys.
const (
	EnvDB              = "ZWIGGATO_DB"
	EnvAddr            = "ZWIGGATO_ADDR"
	EnvShutdownTimeout = "ZWIGGATO_SHUTDOWN_TIMEOUT"
	EnvSessionCookie   = "ZWIGGATO_SESSION_COOKIE"
	EnvDeliveryFee     = "ZWIGGATO_DELIVERY_FEE"
	EnvTotalTolerance  = "ZWIGGATO_TOTAL_TOLERANCE"
	EnvTotalPolicy     = "ZWIGGATO_TOTAL_POLICY"
	EnvAPI             = "ZWIGGATO_API"
	EnvSession         = "ZWIGGATO_SESSION"
	EnvCart            = "ZWIGGATO_CART"
	EnvLogFormat       = "ZWIGGATO_LOG_FORMAT"
	EnvLogLevel        = "ZWIGGATO_LOG_LEVEL"
)

// Config holds server and client settings.
type Config struct {
	// Server
	DBPath          string
	Addr            string
	ShutdownTimeout time.Duration
	SessionCookie   string
	DeliveryFee     decimal.Decimal
	TotalTolerance  decimal.Decimal
	TotalPolicy     ledger.TotalPolicy

	// Client
	APIURL   string
	Session  string
	CartPath string

	// Logging
	LogFormat string
	LogLevel  slog.Level
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		DBPath:        getenv(EnvDB, "zwiggato.db"),
		Addr:          getenv(EnvAddr, ":8080"),
		SessionCookie: api.DefaultSessionCookie,
		APIURL:        getenv(EnvAPI, "http://localhost:8080"),
		Session:       getenv(EnvSession, ""),
		CartPath:      getenv(EnvCart, defaultCartPath()),
		LogFormat:     strings.ToLower(getenv(EnvLogFormat, "text")),
	}

	// Set but empty disables the session guard.
	if v, ok := os.LookupEnv(EnvSessionCookie); ok {
		cfg.SessionCookie = v
	}

	var err error
	if cfg.ShutdownTimeout, err = durationEnv(EnvShutdownTimeout, 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DeliveryFee, err = moneyEnv(EnvDeliveryFee, order.DefaultDeliveryFee, true); err != nil {
		return Config{}, err
	}
	if cfg.TotalTolerance, err = moneyEnv(EnvTotalTolerance, order.DefaultTolerance, false); err != nil {
		return Config{}, err
	}
	if cfg.TotalPolicy, err = ledger.ParseTotalPolicy(getenv(EnvTotalPolicy, "")); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvTotalPolicy, err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getenv(EnvLogLevel, "info"))); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("%s: must be text or json, got %q", EnvLogFormat, cfg.LogFormat)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// durationEnv accepts a Go duration ("30s") or a whole number of seconds.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return time.Duration(sec) * time.Second, nil
}

// moneyEnv parses a non-negative decimal amount. positive additionally
// rejects zero.
func moneyEnv(key string, def decimal.Decimal, positive bool) (decimal.Decimal, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: invalid amount %q", key, v)
	}
	if d.IsNegative() || (positive && d.IsZero()) {
		return decimal.Decimal{}, fmt.Errorf("%s: amount out of range: %s", key, v)
	}
	return d, nil
}

func defaultCartPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".zwiggato-cart.json"
	}
	return filepath.Join(dir, "zwiggato", "cart.json")
}
