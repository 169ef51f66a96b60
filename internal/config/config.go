package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	appDirName         = "moledao-spider"
	DefaultHARDir      = "har"
	DefaultTickerDelay = 1100 * time.Millisecond
	DefaultSchedule    = "@every 6h"
	DefaultNATSPrefix  = "moledao.scrape"
	DefaultRedisPrefix = "moledao:scrape"
	DefaultNATSTimeout = 5 * time.Second
	DefaultLogLevel    = "info"
	settingsFileName   = "settings.yaml"
)

type Config struct {
	HARDir       string
	SettingsPath string
	StateDir     string

	LogLevel string
	LogDev   bool

	TickerDelay time.Duration
	Schedule    string

	NATSURL         string
	NATSPrefix      string
	NATSConnTimeout time.Duration

	RedisURL    string
	RedisPrefix string

	DatabaseURL  string
	OTLPEndpoint string
}

// Load reads an optional .env file from the working directory, then the
// process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	stateDir := getEnvString("MOLEDAO_STATE_DIR", defaultStateDir())

	tickerDelay, err := getEnvDuration("MOLEDAO_TICKER_DELAY", DefaultTickerDelay)
	if err != nil {
		return nil, err
	}
	natsTimeout, err := getEnvDuration("NATS_CONN_TIMEOUT", DefaultNATSTimeout)
	if err != nil {
		return nil, err
	}
	logDev, err := getEnvBool("MOLEDAO_LOG_DEV", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HARDir:          getEnvString("MOLEDAO_HAR_DIR", DefaultHARDir),
		SettingsPath:    getEnvString("MOLEDAO_SETTINGS_PATH", filepath.Join(stateDir, settingsFileName)),
		StateDir:        stateDir,
		LogLevel:        strings.ToLower(getEnvString("MOLEDAO_LOG_LEVEL", DefaultLogLevel)),
		LogDev:          logDev,
		TickerDelay:     tickerDelay,
		Schedule:        getEnvString("MOLEDAO_SCHEDULE", DefaultSchedule),
		NATSURL:         getEnvString("NATS_URL", ""),
		NATSPrefix:      getEnvString("NATS_SUBJECT_PREFIX", DefaultNATSPrefix),
		NATSConnTimeout: natsTimeout,
		RedisURL:        getEnvString("REDIS_URL", ""),
		RedisPrefix:     getEnvString("REDIS_CHANNEL_PREFIX", DefaultRedisPrefix),
		DatabaseURL:     getEnvString("DATABASE_URL", ""),
		OTLPEndpoint:    getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	if cfg.TickerDelay < 0 {
		return nil, fmt.Errorf("MOLEDAO_TICKER_DELAY must be >= 0, got %s", cfg.TickerDelay)
	}
	return cfg, nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(".", "."+appDirName)
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return b, nil
}
