package realtime

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config transport dibind sekali saat server dibuat, bukan per-call.
type Config struct {
	MaxPayloadBytes int64
	PingInterval    time.Duration
	RecoveryWindow  time.Duration
}

const (
	defaultMaxPayload     = 64 * 1024
	defaultPingSeconds    = 25
	defaultRecoverySecond = 120
)

func DefaultConfig() Config {
	return Config{
		MaxPayloadBytes: defaultMaxPayload,
		PingInterval:    defaultPingSeconds * time.Second,
		RecoveryWindow:  defaultRecoverySecond * time.Second,
	}
}

// ConfigFromEnv -> baca knob transport dari environment, fallback ke default
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("WS_MAX_PAYLOAD"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxPayloadBytes = n
		}
	}
	if v := os.Getenv("WS_PING_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PingInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("WS_RECOVERY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RecoveryWindow = time.Duration(n) * time.Second
		}
	}
	return cfg
}

func (c Config) validate() error {
	if c.MaxPayloadBytes <= 0 {
		return errors.New("max payload harus > 0")
	}
	if c.PingInterval <= 0 {
		return errors.New("ping interval harus > 0")
	}
	if c.RecoveryWindow < 0 {
		return errors.New("recovery window tidak boleh negatif")
	}
	return nil
}
