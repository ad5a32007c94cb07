package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/prune"
	"github.com/platinummonkey/forum/pkg/rbac"
	"github.com/platinummonkey/forum/pkg/storage"
)

// MinSecretLength is the shortest accepted token signing secret
const MinSecretLength = 32

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Policy        PolicyConfig        `yaml:"policy"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Prune         PruneConfig         `yaml:"prune"`
	Events        EventsConfig        `yaml:"events"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Health/metrics server (separate port for k8s health checks)
	HealthPort string `yaml:"health_port"`
}

// AuthConfig holds session token and password settings
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	TokenIssuer string        `yaml:"token_issuer"`
	BcryptCost  int           `yaml:"bcrypt_cost"`
}

// PolicyConfig holds authorization policy switches
type PolicyConfig struct {
	// StrictModeration stops moderators acting on members of equal or higher rank
	StrictModeration bool `yaml:"strict_moderation"`
}

// RateLimitConfig holds per-IP request budgets
type RateLimitConfig struct {
	APIRequests  int           `yaml:"api_requests"`
	APIWindow    time.Duration `yaml:"api_window"`
	AuthRequests int           `yaml:"auth_requests"`
	AuthWindow   time.Duration `yaml:"auth_window"`
	// MaxClients bounds the in-process limiter's client table
	MaxClients int `yaml:"max_clients"`
}

// PruneConfig holds auto-delete settings
type PruneConfig struct {
	Days     int           `yaml:"days"`
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
	// NotificationDays is how long read notifications are kept
	NotificationDays int `yaml:"notification_days"`
}

// EventsConfig holds domain event publishing settings
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			CORSOrigins:     []string{"*"},
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Auth: AuthConfig{
			TokenTTL:    24 * time.Hour,
			TokenIssuer: "forum",
		},
		Policy: PolicyConfig{StrictModeration: true},
		RateLimit: RateLimitConfig{
			APIRequests:  100,
			APIWindow:    15 * time.Minute,
			AuthRequests: 5,
			AuthWindow:   15 * time.Minute,
			MaxClients:   10000,
		},
		Prune: PruneConfig{
			Days:             90,
			Schedule:         "0 2 * * *",
			Timeout:          5 * time.Minute,
			NotificationDays: 30,
		},
		Audit: AuditConfig{Enabled: true},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "forum",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
	}
}

// LoadConfig loads configuration from ./.env, the YAML file named by
// FORUM_CONFIG_FILE and the environment, in increasing precedence
func LoadConfig() (*Config, error) {
	return Load(".env")
}

// Load is LoadConfig with an explicit dotenv path. A missing dotenv file is ignored.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("FORUM_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the values present in a YAML file
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("FORUM_HOST", s.Host)
	s.Port = getEnv("FORUM_PORT", s.Port)
	s.HealthPort = getEnv("FORUM_HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("FORUM_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("FORUM_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("FORUM_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("FORUM_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("FORUM_MAX_BODY_BYTES", s.MaxBodyBytes)
	if origins := getEnv("FORUM_CORS_ORIGINS", ""); origins != "" {
		s.CORSOrigins = splitList(origins)
	}

	st := &c.Storage
	st.Driver = storage.Driver(getEnv("FORUM_DB_DRIVER", string(st.Driver)))
	st.DSN = getEnv("FORUM_DB_DSN", st.DSN)
	if replicas := getEnv("FORUM_DB_REPLICA_DSNS", ""); replicas != "" {
		st.ReplicaDSNs = storage.ParseReplicaURLs(replicas)
	}
	st.MaxConns = getEnvInt("FORUM_DB_MAX_CONNS", st.MaxConns)
	st.MinConns = getEnvInt("FORUM_DB_MIN_CONNS", st.MinConns)
	st.Timeout = getEnvDuration("FORUM_DB_TIMEOUT", st.Timeout)
	st.RedisURL = getEnv("FORUM_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("FORUM_REDIS_PASSWORD", st.RedisPassword)
	st.RedisDB = getEnvInt("FORUM_REDIS_DB", st.RedisDB)
	st.RedisPoolSize = getEnvInt("FORUM_REDIS_POOL_SIZE", st.RedisPoolSize)

	a := &c.Auth
	a.JWTSecret = getEnv("FORUM_JWT_SECRET", a.JWTSecret)
	a.TokenTTL = getEnvDuration("FORUM_TOKEN_TTL", a.TokenTTL)
	a.TokenIssuer = getEnv("FORUM_TOKEN_ISSUER", a.TokenIssuer)
	a.BcryptCost = getEnvInt("FORUM_BCRYPT_COST", a.BcryptCost)

	c.Policy.StrictModeration = getEnvBool("FORUM_STRICT_MODERATION", c.Policy.StrictModeration)

	r := &c.RateLimit
	r.APIRequests = getEnvInt("FORUM_RATE_API_REQUESTS", r.APIRequests)
	r.APIWindow = getEnvDuration("FORUM_RATE_API_WINDOW", r.APIWindow)
	r.AuthRequests = getEnvInt("FORUM_RATE_AUTH_REQUESTS", r.AuthRequests)
	r.AuthWindow = getEnvDuration("FORUM_RATE_AUTH_WINDOW", r.AuthWindow)
	r.MaxClients = getEnvInt("FORUM_RATE_MAX_CLIENTS", r.MaxClients)

	p := &c.Prune
	p.Days = getEnvInt("FORUM_PRUNE_DAYS", p.Days)
	p.Schedule = getEnv("FORUM_PRUNE_SCHEDULE", p.Schedule)
	p.Timeout = getEnvDuration("FORUM_PRUNE_TIMEOUT", p.Timeout)
	p.NotificationDays = getEnvInt("FORUM_PRUNE_NOTIFICATION_DAYS", p.NotificationDays)

	c.Events.NATSURL = getEnv("FORUM_NATS_URL", c.Events.NATSURL)
	c.Audit.Enabled = getEnvBool("FORUM_AUDIT_ENABLED", c.Audit.Enabled)

	o := &c.Observability
	if level := getEnv("FORUM_LOG_LEVEL", ""); level != "" {
		o.LogLevel = observability.ParseLogLevel(level)
	}
	o.MetricsEnabled = getEnvBool("FORUM_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("FORUM_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("FORUM_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("FORUM_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("FORUM_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("FORUM_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("FORUM_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("FORUM_JWT_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.RateLimit.APIRequests < 1 || c.RateLimit.AuthRequests < 1 {
		return fmt.Errorf("rate limit budgets must be at least 1")
	}
	if c.RateLimit.APIWindow <= 0 || c.RateLimit.AuthWindow <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}

	if c.Prune.Days < 0 || c.Prune.NotificationDays < 0 {
		return fmt.Errorf("prune days must not be negative")
	}
	if _, err := cron.ParseStandard(c.Prune.Schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", c.Prune.Schedule, err)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// OTel returns the tracing settings in the form observability.StartTracing takes
func (c *Config) OTel() observability.OTelConfig {
	o := c.Observability
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// PruneSettings returns the prune section in the form prune.New takes
func (c *Config) PruneSettings() prune.Config {
	return prune.Config{
		Days:             c.Prune.Days,
		Schedule:         c.Prune.Schedule,
		Timeout:          c.Prune.Timeout,
		NotificationDays: c.Prune.NotificationDays,
	}
}

// RBACPolicy returns the moderation policy for rbac.NewEngine
func (c *Config) RBACPolicy() rbac.Policy {
	return rbac.Policy{StrictModeration: c.Policy.StrictModeration}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
