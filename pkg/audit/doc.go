// Package audit records security-relevant forum activity.
//
// # Overview
//
// Logins (successful and failed), registrations, bans, role changes, account deletions,
// pin and lock toggles, category changes, settings changes and moderator deletions of
// other members' content are written to the audit_logs table. Each event carries the
// actor, the affected resource, the request id and client address, and for updates the
// before/after values.
//
// The service treats audit writes as best effort: a failure is logged and never fails
// the request that triggered it.
//
// # Loggers
//
// DBLogger writes to audit_logs on SQLite or PostgreSQL (metadata and changes are JSONB
// on PostgreSQL). NewNoopLogger discards everything and is used when auditing is disabled.
//
//	logger, err := audit.NewDBLogger(db, storage.DriverPostgres)
//	...
//	logger.LogModeration(ctx, audit.EventTypeUserBan, actor.ID, actor.Username,
//		audit.ResourceTypeUser, "42", audit.Change("status", "active", "banned"), "user banned")
//
// # Searching
//
// DBLogger also implements Searcher. Results are newest first; Limit defaults to 50 and
// is capped at 500.
//
//	events, err := logger.Search(ctx, audit.SearchFilter{
//		EventTypes: []audit.EventType{audit.EventTypeAuthLoginFailed},
//		Limit:      20,
//	})
package audit
