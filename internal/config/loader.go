package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "circularsync.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("CIRCULARSYNC_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	fillRoutes(&cfg)
	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// fillRoutes restores route fields a partial YAML override left empty.
func fillRoutes(cfg *Config) {
	if cfg.Routes == nil {
		cfg.Routes = DefaultRoutes()
		return
	}
	for name, def := range DefaultRoutes() {
		r, ok := cfg.Routes[name]
		if !ok {
			cfg.Routes[name] = def
			continue
		}
		if r.TTL == 0 {
			r.TTL = def.TTL
		}
		if r.UpstreamPath == "" {
			r.UpstreamPath = def.UpstreamPath
		}
		cfg.Routes[name] = r
	}
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CIRCULARSYNC_PORT")
	setString(&cfg.Server.CORSOrigin, "CIRCULARSYNC_CORS_ORIGIN")
	setString(&cfg.Server.AdminToken, "CIRCULARSYNC_ADMIN_TOKEN")
	setDuration(&cfg.Server.RequestTimeout, "CIRCULARSYNC_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "CIRCULARSYNC_SHUTDOWN_TIMEOUT")

	// Upstream
	setString(&cfg.Upstream.BaseURL, "UPSTREAM_BASE_URL")
	setString(&cfg.Upstream.Token, "UPSTREAM_TOKEN")
	setDuration(&cfg.Upstream.Timeout, "UPSTREAM_TIMEOUT")
	setInt(&cfg.Upstream.MaxConcurrent, "UPSTREAM_MAX_CONCURRENT")

	// Cache
	setString(&cfg.Cache.Backend, "CIRCULARSYNC_CACHE_BACKEND")
	setBool(&cfg.Cache.L1Enabled, "CIRCULARSYNC_CACHE_L1_ENABLED")
	setInt64(&cfg.Cache.L1MaxSizeMB, "CIRCULARSYNC_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1TTL, "CIRCULARSYNC_CACHE_L1_TTL")
	setString(&cfg.Cache.L2Bucket, "CIRCULARSYNC_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "CIRCULARSYNC_CACHE_L2_TTL")

	// Redis
	setString(&cfg.Redis.Host, "REDIS_HOST")
	setString(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Enabled, "CIRCULARSYNC_NATS_ENABLED")

	setString(&cfg.Logging.Level, "CIRCULARSYNC_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CIRCULARSYNC_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CIRCULARSYNC_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "CIRCULARSYNC_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CIRCULARSYNC_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "CIRCULARSYNC_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CIRCULARSYNC_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "CIRCULARSYNC_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "CIRCULARSYNC_RATE_MAX_IDLE_TIME")

	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Telemetry.ServiceName, "OTEL_SERVICE_NAME")

	// Per-route TTLs: CIRCULARSYNC_TTL_VERIFICATION_STATS=10m
	for name, r := range cfg.Routes {
		setDuration(&r.TTL, "CIRCULARSYNC_TTL_"+strings.ToUpper(name))
		cfg.Routes[name] = r
	}
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url is required")
	}
	if cfg.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be > 0")
	}
	if cfg.Upstream.MaxConcurrent < 1 {
		return errors.New("upstream.max_concurrent must be >= 1")
	}
	switch cfg.Cache.Backend {
	case "redis":
		if cfg.Redis.Host == "" || cfg.Redis.Port == "" {
			return errors.New("redis.host and redis.port are required")
		}
	case "memory":
	case "nats":
		if cfg.NATS.URL == "" {
			return errors.New("nats.url is required")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of redis, memory, nats", cfg.Cache.Backend)
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	for name, r := range cfg.Routes {
		if r.TTL <= 0 {
			return fmt.Errorf("routes.%s.ttl must be > 0", name)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
