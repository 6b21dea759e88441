// Package config loads indexer configuration from environment variables.
// DATABASE_URL is the only required setting; everything else falls back to
// a documented default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/arcscan/bridge-indexer/pkg/common/constant"
)

var validate = validator.New()

const (
	DefaultPollInterval  = 5000 * time.Millisecond
	DefaultBatchSize     = 10
	DefaultSyncDays      = 7
	DefaultAPIPort       = 8080
	DefaultKVDir         = "data/kv"
	DefaultRedisURL      = "redis://localhost:6379"
	DefaultNATSURL       = "nats://127.0.0.1:4222"
	DefaultSubjectPrefix = "bridge.transfers"
	DefaultStatsCacheTTL = 30 * time.Second
	DefaultRPCRPS        = 10
	DefaultRPCBurst      = 20
	DefaultRPCTimeout    = 15 * time.Second

	minPollInterval = 100 * time.Millisecond
)

type Config struct {
	Environment string `validate:"required,oneof=production development"`
	LogLevel    string

	DatabaseURL string `validate:"required"`
	RedisURL    string `validate:"required"`
	NATSURL     string `validate:"required"`

	NATSSubjectPrefix string

	PollInterval time.Duration `validate:"required,min=100000000"` // >= 100ms
	BatchSize    int           `validate:"required,min=1"`
	SyncDays     int           `validate:"min=0"`

	APIPort       int    `validate:"required,min=1,max=65535"`
	KVDir         string `validate:"required"`
	ChainsConfig  string
	StatsCacheTTL time.Duration

	// RPCURLs maps a chain key (lowercase) to its endpoints, taken from
	// RPC_<CHAIN> with comma-separated failover URLs.
	RPCURLs map[string][]string

	Features Features
	RPC      RPCConfig
}

// Features gates which token registries the indexer tracks.
type Features struct {
	ArcNative bool
	USYC      bool
	StableFX  bool
}

type RPCConfig struct {
	RequestsPerSecond int           `validate:"min=1"`
	Burst             int           `validate:"min=1"`
	Timeout           time.Duration `validate:"required"`
}

// Load reads configuration from the process environment. A .env file in the
// working directory is merged in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv(constant.EnvDatabaseURL))
	if dbURL == "" {
		return nil, fmt.Errorf("%s is required", constant.EnvDatabaseURL)
	}

	cfg := &Config{
		Environment:       envString(constant.EnvEnvironment, constant.EnvDevelopment),
		LogLevel:          envString(constant.EnvLogLevel, "info"),
		DatabaseURL:       dbURL,
		RedisURL:          envString(constant.EnvRedisURL, DefaultRedisURL),
		NATSURL:           envString(constant.EnvNATSURL, DefaultNATSURL),
		NATSSubjectPrefix: envString(constant.EnvNATSSubjectPrefix, DefaultSubjectPrefix),
		PollInterval:      envMillis(constant.EnvPollIntervalMS, DefaultPollInterval, minPollInterval),
		BatchSize:         envInt(constant.EnvBatchSize, DefaultBatchSize, 1),
		SyncDays:          envInt(constant.EnvSyncDays, DefaultSyncDays, 0),
		APIPort:           envPort(constant.EnvAPIPort, DefaultAPIPort),
		KVDir:             envString(constant.EnvKVDir, DefaultKVDir),
		ChainsConfig:      os.Getenv(constant.EnvChainsConfig),
		StatsCacheTTL:     envSeconds(constant.EnvStatsCacheTTLSecs, DefaultStatsCacheTTL),
		RPCURLs:           loadRPCURLs(),
		Features: Features{
			ArcNative: envBool(constant.EnvEnableArcNative, true),
			USYC:      envBool(constant.EnvEnableUSYC, true),
			StableFX:  envBool(constant.EnvEnableStableFX, false),
		},
		RPC: RPCConfig{
			RequestsPerSecond: envInt(constant.EnvRPCRequestsPerSec, DefaultRPCRPS, 1),
			Burst:             envInt(constant.EnvRPCBurst, DefaultRPCBurst, 1),
			Timeout:           envSeconds(constant.EnvRPCTimeoutSecs, DefaultRPCTimeout),
		},
	}

	if cfg.Environment != constant.EnvProduction && cfg.Environment != constant.EnvDevelopment {
		cfg.Environment = constant.EnvDevelopment
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == constant.EnvProduction
}

// loadRPCURLs scans the environment for RPC_<CHAIN> variables. Values may
// hold several comma-separated endpoints used for failover.
func loadRPCURLs() map[string][]string {
	urls := make(map[string][]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, constant.EnvRPCPrefix) {
			continue
		}
		chain := strings.ToLower(strings.TrimPrefix(key, constant.EnvRPCPrefix))
		// RPC tuning knobs share the RPC_ prefix but are not chains
		switch key {
		case constant.EnvRPCRequestsPerSec, constant.EnvRPCBurst, constant.EnvRPCTimeoutSecs:
			continue
		}
		if chain == "" {
			continue
		}

		var endpoints []string
		for _, u := range strings.Split(value, ",") {
			if u = strings.TrimSpace(u); u != "" {
				endpoints = append(endpoints, u)
			}
		}
		if len(endpoints) > 0 {
			urls[chain] = endpoints
		}
	}
	return urls
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envInt falls back on parse errors and on values below floor, so bad env
// input never reaches the struct validator.
func envInt(key string, fallback, floor int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < floor {
		return fallback
	}
	return n
}

func envPort(key string, fallback int) int {
	p := envInt(key, fallback, 1)
	if p > 65535 {
		return fallback
	}
	return p
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envMillis(key string, fallback, floor time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	d := time.Duration(ms) * time.Millisecond
	if d < floor {
		return fallback
	}
	return d
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
