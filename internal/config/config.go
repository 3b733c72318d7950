package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	JWTSecret   string
	GinMode     string
	TLSCertFile string
	TLSKeyFile  string
	TokenExpiry time.Duration
	NonceTTL    time.Duration
	SIWEDomain  string
	LogLevel    string

	// AuthRateLimit is the number of nonce/verify calls a client IP may make per minute.
	AuthRateLimit int

	StateFile string

	ChainID         string
	RPCURL          string
	IndexerURL      string
	UpstreamTimeout time.Duration

	AppVersion  string
	BuildNumber string
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:            3000,
		GinMode:         "release",
		TokenExpiry:     24 * time.Hour,
		NonceTTL:        5 * time.Minute,
		LogLevel:        "info",
		AuthRateLimit:   30,
		ChainID:         "11155111",
		UpstreamTimeout: 10 * time.Second,
		AppVersion:      "dev",
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.JWTSecret = env.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	var err error
	if cfg.TokenExpiry, err = durationSeconds(env, "TOKEN_EXPIRY_SECONDS", cfg.TokenExpiry); err != nil {
		return Config{}, err
	}
	if cfg.NonceTTL, err = durationSeconds(env, "AUTH_NONCE_TTL_SECONDS", cfg.NonceTTL); err != nil {
		return Config{}, err
	}
	if cfg.UpstreamTimeout, err = durationSeconds(env, "UPSTREAM_TIMEOUT_SECONDS", cfg.UpstreamTimeout); err != nil {
		return Config{}, err
	}

	if raw := env.Getenv("AUTH_RATE_LIMIT_PER_MINUTE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid AUTH_RATE_LIMIT_PER_MINUTE")
		}
		cfg.AuthRateLimit = n
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		switch strings.ToLower(raw) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(raw)
		default:
			return Config{}, fmt.Errorf("invalid LOG_LEVEL")
		}
	}

	if raw := env.Getenv("CHAIN_ID"); raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 64); err != nil || n == 0 {
			return Config{}, fmt.Errorf("invalid CHAIN_ID")
		}
		cfg.ChainID = raw
	}

	cfg.SIWEDomain = env.Getenv("SIWE_DOMAIN")
	cfg.StateFile = env.Getenv("STATE_FILE")
	cfg.RPCURL = env.Getenv("RPC_URL")
	cfg.IndexerURL = strings.TrimRight(env.Getenv("INDEXER_URL"), "/")

	if raw := env.Getenv("APP_VERSION"); raw != "" {
		cfg.AppVersion = raw
	}
	cfg.BuildNumber = env.Getenv("BUILD_NUMBER")

	return cfg, nil
}

func durationSeconds(env Env, key string, def time.Duration) (time.Duration, error) {
	raw := env.Getenv(key)
	if raw == "" {
		return def, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return time.Duration(seconds) * time.Second, nil
}
