// Package sqlstore persists the forum in SQLite or PostgreSQL through
// database/sql.
//
// Queries are written with ? placeholders and rebound for PostgreSQL.
// Timestamps are generated in Go as UTC. Deleting a user, category or topic
// relies on ON DELETE CASCADE foreign keys, which the storage package enables
// for SQLite connections.
package sqlstore
