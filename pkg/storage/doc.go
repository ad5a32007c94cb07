// Package storage owns the database plumbing shared by the forum stores.
//
// # Drivers
//
// Two database/sql drivers are supported:
//
//   - sqlite3 (github.com/mattn/go-sqlite3), the default for development and tests.
//     Foreign keys are switched on for every connection so deletes cascade from
//     users and categories to topics and from topics to posts.
//   - postgres (github.com/lib/pq) for production, optionally with read replicas.
//
// Queries are written with ? placeholders and passed through Rebind, which rewrites
// them to $1..$n for PostgreSQL.
//
// # Connections
//
// ConnectionManager opens the primary and any replicas, pings each one, and hands out
// replicas round-robin through Replica (falling back to the primary). Unhealthy
// replicas can be dropped in the background with StartHealthCheckRoutine.
//
//	cm, err := storage.NewConnectionManager(cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer cm.Close()
//
//	if err := storage.RunMigrations(ctx, cm.Primary(), cm.Driver(), logger); err != nil {
//		return err
//	}
//
// # Migrations
//
// GetMigrations lists the versioned schema. Each migration carries one statement per
// driver and is applied in its own transaction; applied versions are recorded in
// schema_migrations so RunMigrations is safe to call on every start.
//
// # Redis
//
// RedisClient wraps the optional redis connection used by the distributed rate limiter
// and the readiness check.
package storage
