package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/prune"
	"github.com/platinummonkey/forum/pkg/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FORUM_JWT_SECRET", testSecret)
	t.Setenv("FORUM_CONFIG_FILE", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, storage.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Policy.StrictModeration)
	assert.Equal(t, 100, cfg.RateLimit.APIRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.APIWindow)
	assert.Equal(t, 5, cfg.RateLimit.AuthRequests)
	assert.Equal(t, 90, cfg.Prune.Days)
	assert.Equal(t, "0 2 * * *", cfg.Prune.Schedule)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("FORUM_CONFIG_FILE", "")
	t.Setenv("FORUM_JWT_SECRET", testSecret)
	t.Setenv("FORUM_PORT", "3000")
	t.Setenv("FORUM_DB_DRIVER", "postgres")
	t.Setenv("FORUM_DB_DSN", "postgres://forum@localhost/forum?sslmode=disable")
	t.Setenv("FORUM_DB_REPLICA_DSNS", "postgres://r1/forum, postgres://r2/forum")
	t.Setenv("FORUM_TOKEN_TTL", "2h")
	t.Setenv("FORUM_STRICT_MODERATION", "false")
	t.Setenv("FORUM_RATE_AUTH_REQUESTS", "10")
	t.Setenv("FORUM_PRUNE_DAYS", "0")
	t.Setenv("FORUM_PRUNE_NOTIFICATION_DAYS", "7")
	t.Setenv("FORUM_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("FORUM_LOG_LEVEL", "debug")
	t.Setenv("FORUM_NATS_URL", "nats://localhost:4222")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, storage.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, []string{"postgres://r1/forum", "postgres://r2/forum"}, cfg.Storage.ReplicaDSNs)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Policy.StrictModeration)
	assert.Equal(t, 10, cfg.RateLimit.AuthRequests)
	assert.Equal(t, 0, cfg.Prune.Days)
	assert.Equal(t, 7, cfg.Prune.NotificationDays)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "forum.yaml", `
server:
  port: "8000"
  read_timeout: 5s
storage:
  dsn: "file:test.db"
rate_limit:
  api_requests: 250
prune:
  schedule: "30 3 * * *"
observability:
  log_level: warn
`)
	t.Setenv("FORUM_CONFIG_FILE", path)
	t.Setenv("FORUM_JWT_SECRET", testSecret)
	t.Setenv("FORUM_PORT", "8001")

	cfg, err := Load("")
	require.NoError(t, err)

	// Environment wins over the file
	assert.Equal(t, "8001", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "file:test.db", cfg.Storage.DSN)
	assert.Equal(t, 250, cfg.RateLimit.APIRequests)
	assert.Equal(t, "30 3 * * *", cfg.Prune.Schedule)
	assert.Equal(t, observability.WarnLevel, cfg.Observability.LogLevel)
	// Untouched values keep their defaults
	assert.Equal(t, 5, cfg.RateLimit.AuthRequests)
	assert.Equal(t, storage.DriverSQLite, cfg.Storage.Driver)
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("FORUM_JWT_SECRET", testSecret)

	t.Setenv("FORUM_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load("")
	assert.ErrorContains(t, err, "failed to read config file")

	t.Setenv("FORUM_CONFIG_FILE", writeFile(t, t.TempDir(), "bad.yaml", "server: [unclosed"))
	_, err = Load("")
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("FORUM_CONFIG_FILE", "")
	t.Setenv("FORUM_PORT", "")
	os.Unsetenv("FORUM_JWT_SECRET")
	os.Unsetenv("FORUM_HEALTH_PORT")
	t.Cleanup(func() {
		os.Unsetenv("FORUM_JWT_SECRET")
		os.Unsetenv("FORUM_HEALTH_PORT")
	})

	envFile := writeFile(t, t.TempDir(), ".env", "FORUM_JWT_SECRET="+testSecret+"\nFORUM_HEALTH_PORT=9191\n")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "9191", cfg.Server.HealthPort)

	// A missing dotenv file is not an error
	_, err = Load(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"same ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }, "must be different"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "FORUM_JWT_SECRET"},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, "token TTL"},
		{"bad driver", func(c *Config) { c.Storage.Driver = "mysql" }, "unsupported database driver"},
		{"replicas on sqlite", func(c *Config) { c.Storage.ReplicaDSNs = []string{"x"} }, "read replicas"},
		{"zero budget", func(c *Config) { c.RateLimit.AuthRequests = 0 }, "rate limit budgets"},
		{"zero window", func(c *Config) { c.RateLimit.APIWindow = 0 }, "rate limit windows"},
		{"negative prune", func(c *Config) { c.Prune.Days = -1 }, "prune days"},
		{"bad schedule", func(c *Config) { c.Prune.Schedule = "daily" }, "invalid prune schedule"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "endpoint is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOTel(t *testing.T) {
	cfg := Default()
	cfg.Observability.OTelEnabled = true
	otel := cfg.OTel()
	assert.True(t, otel.Enabled)
	assert.Equal(t, "localhost:4317", otel.Endpoint)
	assert.Equal(t, "forum", otel.ServiceName)
}

func TestPruneSettingsAndPolicy(t *testing.T) {
	cfg := Default()
	cfg.Prune.Days = 30
	cfg.Policy.StrictModeration = false

	assert.Equal(t, prune.Config{Days: 30, Schedule: "0 2 * * *", Timeout: 5 * time.Minute, NotificationDays: 30}, cfg.PruneSettings())
	assert.False(t, cfg.RBACPolicy().StrictModeration)
	assert.True(t, Default().RBACPolicy().StrictModeration)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_BOOL", "yes")
	assert.True(t, getEnvBool("CFG_TEST_BOOL", true), "unparseable bools keep the default")
	t.Setenv("CFG_TEST_BOOL", "0")
	assert.False(t, getEnvBool("CFG_TEST_BOOL", true))

	t.Setenv("CFG_TEST_INT", "abc")
	assert.Equal(t, 7, getEnvInt("CFG_TEST_INT", 7))

	t.Setenv("CFG_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvDuration("CFG_TEST_DURATION", time.Second))

	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}

func TestReadLogLevel(t *testing.T) {
	dir := t.TempDir()

	level, ok, err := ReadLogLevel(writeFile(t, dir, "a.yaml", "observability:\n  log_level: error\n"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, observability.ErrorLevel, level)

	_, ok, err = ReadLogLevel(writeFile(t, dir, "b.yaml", "server:\n  port: \"1\"\n"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWatchLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "forum.yaml", "observability:\n  log_level: info\n")
	logger := observability.NewLogger(observability.ErrorLevel, &strings.Builder{})

	var current atomic.Int32
	current.Store(int32(observability.InfoLevel))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchLogLevel(ctx, path, logger, func(l observability.LogLevel) {
			current.Store(int32(l))
		})
	}()

	// Keep rewriting until the watcher has been registered and reacts
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("observability:\n  log_level: debug\n"), 0o600)
		return observability.LogLevel(current.Load()) == observability.DebugLevel
	}, 3*time.Second, 50*time.Millisecond)

	// Unrelated files in the directory are ignored
	writeFile(t, dir, "other.yaml", "observability:\n  log_level: error\n")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, observability.DebugLevel, observability.LogLevel(current.Load()))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
