// Package config loads forum configuration.
//
// Values are resolved in increasing precedence: built-in defaults, the YAML file named
// by FORUM_CONFIG_FILE, then FORUM_* environment variables. A .env file in the working
// directory is read into the environment first without overriding variables that are
// already set.
//
//	FORUM_PORT=8080
//	FORUM_HEALTH_PORT=9090
//	FORUM_DB_DRIVER=postgres            # sqlite3 (default) or postgres
//	FORUM_DB_DSN=postgres://forum@db/forum?sslmode=disable
//	FORUM_DB_REPLICA_DSNS=postgres://replica-1/forum,postgres://replica-2/forum
//	FORUM_REDIS_URL=redis://redis:6379/0 # shares rate limits across instances
//	FORUM_JWT_SECRET=...                 # required, at least 32 bytes
//	FORUM_TOKEN_TTL=24h
//	FORUM_STRICT_MODERATION=true
//	FORUM_RATE_API_REQUESTS=100 FORUM_RATE_API_WINDOW=15m
//	FORUM_RATE_AUTH_REQUESTS=5  FORUM_RATE_AUTH_WINDOW=15m
//	FORUM_PRUNE_DAYS=90                  # 0 disables auto delete
//	FORUM_PRUNE_SCHEDULE="0 2 * * *"
//	FORUM_NATS_URL=nats://nats:4222
//	FORUM_LOG_LEVEL=info
//	FORUM_OTEL_ENABLED=false
//
// The same settings in YAML use the snake_case section and field names of Config:
//
//	server:
//	  port: "8080"
//	rate_limit:
//	  auth_requests: 10
//	observability:
//	  log_level: debug
//
// WatchLogLevel re-reads observability.log_level whenever the file changes so the
// level can be raised on a running server.
package config
