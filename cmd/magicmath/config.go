package main

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// config reúne tudo o que o processo lê de env/arquivo/flags.
type config struct {
	Port         int
	PortAttempts int

	RedisURL            string
	RedisTimeout        time.Duration
	RedisReconnectEvery time.Duration

	CacheBackend   string
	CacheTTL       time.Duration
	CacheKeyPrefix string

	RateLimitEnabled   bool
	RateLimitWindow    time.Duration
	RateLimitMax       int
	RateLimitKeyPrefix string

	LargeInputThreshold int
	MaxInput            int

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	RateStatsEnabled   bool
	RateStatsPrefix    string
	RateStatsTTL       time.Duration
	RateStatsBucket    string
	RateStatsTrackKeys bool

	LogLevel  string
	LogFormat string
}

const (
	backendRedis  = "redis"
	backendMemory = "memory"
	backendNone   = "none"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 5000)
	v.SetDefault("port_attempts", 10)

	v.SetDefault("redis_url", "redis://localhost:6379")
	v.SetDefault("redis_timeout", "500ms")
	v.SetDefault("redis_reconnect_every", "10s")

	v.SetDefault("cache_backend", backendRedis)
	v.SetDefault("cache_ttl", 3600) // segundos
	v.SetDefault("cache_key_prefix", "magic_math:")

	v.SetDefault("rate_limit_enabled", true)
	v.SetDefault("rate_limit_window", 60000) // ms
	v.SetDefault("rate_limit_max", 100)
	v.SetDefault("rate_limit_key_prefix", "rate_limit:")

	v.SetDefault("large_input_threshold", 1000)
	v.SetDefault("max_input", 100000)

	v.SetDefault("concurrency_max", 100)
	v.SetDefault("concurrency_timeout", "0s")

	v.SetDefault("rate_stats_enabled", false)
	v.SetDefault("rate_stats_prefix", "ratelimit:stats")
	v.SetDefault("rate_stats_ttl", "24h")
	v.SetDefault("rate_stats_bucket", "minute")
	v.SetDefault("rate_stats_track_keys", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// newViper monta a precedência flag > env > arquivo > default. As chaves são os
// nomes das variáveis de ambiente em minúsculo (PORT -> port).
func newViper(configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", configFile)
		}
	}

	if flags != nil {
		// só flags conhecidas; "config" não é chave de configuração.
		for _, name := range []string{"port", "cache-backend", "redis-url", "log-level"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), f); err != nil {
					return nil, errors.Wrapf(err, "binding flag %s", name)
				}
			}
		}
	}
	return v, nil
}

func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		Port:         v.GetInt("port"),
		PortAttempts: v.GetInt("port_attempts"),

		RedisURL:            v.GetString("redis_url"),
		RedisTimeout:        v.GetDuration("redis_timeout"),
		RedisReconnectEvery: v.GetDuration("redis_reconnect_every"),

		CacheBackend:   strings.ToLower(strings.TrimSpace(v.GetString("cache_backend"))),
		CacheTTL:       time.Duration(v.GetInt("cache_ttl")) * time.Second,
		CacheKeyPrefix: v.GetString("cache_key_prefix"),

		RateLimitEnabled:   v.GetBool("rate_limit_enabled"),
		RateLimitWindow:    time.Duration(v.GetInt("rate_limit_window")) * time.Millisecond,
		RateLimitMax:       v.GetInt("rate_limit_max"),
		RateLimitKeyPrefix: v.GetString("rate_limit_key_prefix"),

		LargeInputThreshold: v.GetInt("large_input_threshold"),
		MaxInput:            v.GetInt("max_input"),

		ConcurrencyMax:     v.GetInt("concurrency_max"),
		ConcurrencyTimeout: v.GetDuration("concurrency_timeout"),

		RateStatsEnabled:   v.GetBool("rate_stats_enabled"),
		RateStatsPrefix:    v.GetString("rate_stats_prefix"),
		RateStatsTTL:       v.GetDuration("rate_stats_ttl"),
		RateStatsBucket:    v.GetString("rate_stats_bucket"),
		RateStatsTrackKeys: v.GetBool("rate_stats_track_keys"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: strings.ToLower(v.GetString("log_format")),
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch c.CacheBackend {
	case backendRedis, backendMemory, backendNone:
	default:
		return errors.Errorf("CACHE_BACKEND must be redis, memory or none, got %q", c.CacheBackend)
	}
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return errors.New("PORT must be in 1..65535")
	case c.PortAttempts <= 0:
		return errors.New("PORT_ATTEMPTS must be > 0")
	case c.CacheTTL <= 0:
		return errors.New("CACHE_TTL must be > 0")
	case c.RateLimitWindow <= 0:
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	case c.RateLimitMax <= 0:
		return errors.New("RATE_LIMIT_MAX must be > 0")
	case c.LargeInputThreshold < 0:
		return errors.New("LARGE_INPUT_THRESHOLD must be >= 0")
	case c.MaxInput < 0:
		return errors.New("MAX_INPUT must be >= 0")
	case c.ConcurrencyMax < 0:
		return errors.New("CONCURRENCY_MAX must be >= 0")
	case c.RedisTimeout <= 0:
		return errors.New("REDIS_TIMEOUT must be > 0")
	}
	if c.RateStatsEnabled && c.CacheBackend != backendRedis {
		return errors.New("RATE_STATS_ENABLED requires CACHE_BACKEND=redis")
	}
	return nil
}
