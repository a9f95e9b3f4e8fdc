// Package config provides hierarchical configuration loading for the CircularSync gateway.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the gateway service.
type Config struct {
	Server    Server           `yaml:"server"`
	Upstream  Upstream         `yaml:"upstream"`
	Cache     Cache            `yaml:"cache"`
	Redis     Redis            `yaml:"redis"`
	NATS      NATS             `yaml:"nats"`
	Logging   Logging          `yaml:"logging"`
	Breaker   Breaker          `yaml:"breaker"`
	Rate      Rate             `yaml:"rate"`
	Telemetry Telemetry        `yaml:"telemetry"`
	Routes    map[string]Route `yaml:"routes"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port            string        `yaml:"port"`
	CORSOrigin      string        `yaml:"cors_origin"`
	AdminToken      string        `yaml:"admin_token"`      // Required on DELETE endpoints when set
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // chi Timeout middleware
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Graceful shutdown deadline
}

// Upstream holds the marketplace backend connection configuration.
type Upstream struct {
	BaseURL       string        `yaml:"base_url"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout"`        // Per-call deadline (default: 5s)
	MaxConcurrent int           `yaml:"max_concurrent"` // Bulkhead size for in-flight calls
}

// Cache selects and sizes the cache store.
type Cache struct {
	Backend     string        `yaml:"backend"`        // "redis" | "memory" | "nats"
	L1Enabled   bool          `yaml:"l1_enabled"`     // Wrap the backend with an in-process ristretto L1
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"` // L1 capacity
	L1TTL       time.Duration `yaml:"l1_ttl"`         // Lifetime of entries backfilled from L2
	L2Bucket    string        `yaml:"l2_bucket"`      // NATS KV bucket name
	L2TTL       time.Duration `yaml:"l2_ttl"`         // NATS KV bucket-level TTL
}

// Redis holds Redis connection parameters.
type Redis struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns host:port.
func (r Redis) Addr() string {
	return r.Host + ":" + r.Port
}

// NATS holds NATS configuration for the invalidation bus and the KV backend.
type NATS struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"` // Publish/consume invalidation events
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for upstream calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Telemetry holds OpenTelemetry exporter configuration.
// An empty endpoint leaves the global no-op providers in place.
type Telemetry struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Route is the cache policy of one proxy route.
type Route struct {
	TTL          time.Duration `yaml:"ttl"`
	UpstreamPath string        `yaml:"upstream_path"`
}

// Route names used in the Routes map.
const (
	RouteVerificationStats = "verification_stats"
	RouteSubmissions       = "submissions"
	RouteWarehouseStats    = "warehouse_stats"
	RouteUserProfile       = "user_profile"
	RoutePricing           = "pricing"
)

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:            "8080",
			CORSOrigin:      "http://localhost:3000",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Upstream: Upstream{
			BaseURL:       "http://localhost:5000",
			Timeout:       5 * time.Second,
			MaxConcurrent: 16,
		},
		Cache: Cache{
			Backend:     "redis",
			L1MaxSizeMB: 64,
			L1TTL:       30 * time.Second,
			L2Bucket:    "CIRCULARSYNC_CACHE",
			L2TTL:       10 * time.Minute,
		},
		Redis: Redis{
			Host:         "localhost",
			Port:         "6379",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		Logging: Logging{
			Level:   "info",
			Service: "circularsync-gateway",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Telemetry: Telemetry{
			ServiceName: "circularsync-gateway",
			Insecure:    true,
		},
		Routes: DefaultRoutes(),
	}
}

// DefaultRoutes returns the built-in route table.
func DefaultRoutes() map[string]Route {
	return map[string]Route{
		RouteVerificationStats: {TTL: 300 * time.Second, UpstreamPath: "/api/material-submissions"},
		RouteSubmissions:       {TTL: 120 * time.Second, UpstreamPath: "/api/material-submissions"},
		RouteWarehouseStats:    {TTL: 300 * time.Second, UpstreamPath: "/api/warehouses/{id}/inventory"},
		RouteUserProfile:       {TTL: 300 * time.Second, UpstreamPath: "/api/users/{id}"},
		RoutePricing:           {TTL: 120 * time.Second, UpstreamPath: "/api/pricing/{id}/recommendation"},
	}
}
