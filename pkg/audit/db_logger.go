package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/platinummonkey/forum/pkg/storage"
)

// DBLogger writes audit events to the audit_logs table created by the storage migrations
type DBLogger struct {
	db     *sql.DB
	driver storage.Driver
}

// NewDBLogger creates a database-backed audit logger
func NewDBLogger(db *sql.DB, driver storage.Driver) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if !driver.Valid() {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return &DBLogger{db: db, driver: driver}, nil
}

// Log inserts event and sets its ID
func (l *DBLogger) Log(ctx context.Context, event *AuditEvent) error {
	metadata, err := jsonColumn(event.Metadata, len(event.Metadata) > 0)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	changes, err := jsonColumn(event.Changes, event.Changes != nil)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}

	query := storage.Rebind(l.driver, `
		INSERT INTO audit_logs (
			event_id, timestamp, event_type, status,
			user_id, username, resource_type, resource_id,
			ip_address, user_agent, request_id,
			message, error_message, metadata, changes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err = l.db.QueryRowContext(ctx, query,
		event.EventID, event.Timestamp, string(event.EventType), string(event.Status),
		event.UserID, event.Username, string(event.ResourceType), event.ResourceID,
		event.IPAddress, event.UserAgent, event.RequestID,
		event.Message, event.ErrorMessage, metadata, changes,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// jsonColumn encodes v for a JSON/JSONB column, or NULL when absent
func jsonColumn(v interface{}, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// LogAuthentication records a login or registration attempt
func (l *DBLogger) LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, eventType, status)
	event.UserID = userID
	event.Username = username
	event.ResourceType = ResourceTypeUser
	if userID != nil {
		event.ResourceID = strconv.FormatInt(*userID, 10)
	}
	event.Message = message

	return l.Log(ctx, event)
}

// LogModeration records an action taken by actorID on a resource
func (l *DBLogger) LogModeration(ctx context.Context, eventType EventType, actorID int64, actorName string, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	if actorID != 0 {
		event.UserID = &actorID
	}
	event.Username = actorName
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Changes = changes
	event.Message = message

	return l.Log(ctx, event)
}

// Search returns events matching filter, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*AuditEvent, error) {
	var where []string
	var args []interface{}

	if filter.StartTime != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, *filter.EndTime)
	}
	if filter.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			types[i] = string(et)
		}
		if l.driver == storage.DriverPostgres {
			where = append(where, "event_type = ANY(?)")
			args = append(args, pq.Array(types))
		} else {
			where = append(where, "event_type IN (?"+strings.Repeat(", ?", len(types)-1)+")")
			for _, t := range types {
				args = append(args, t)
			}
		}
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.ResourceType != "" {
		where = append(where, "resource_type = ?")
		args = append(args, string(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		where = append(where, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}

	query := `
		SELECT
			id, event_id, timestamp, event_type, status,
			user_id, username, resource_type, resource_id,
			ip_address, user_agent, request_id,
			message, error_message, metadata, changes
		FROM audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize(), max(filter.Offset, 0))

	rows, err := l.db.QueryContext(ctx, storage.Rebind(l.driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	events := make([]*AuditEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return events, nil
}

func scanEvent(rows *sql.Rows) (*AuditEvent, error) {
	event := &AuditEvent{}
	var (
		eventType, status                            string
		username, resourceType, resourceID           sql.NullString
		ipAddress, userAgent, requestID              sql.NullString
		message, errorMessage, metadata, changesJSON sql.NullString
	)

	err := rows.Scan(
		&event.ID, &event.EventID, &event.Timestamp, &eventType, &status,
		&event.UserID, &username, &resourceType, &resourceID,
		&ipAddress, &userAgent, &requestID,
		&message, &errorMessage, &metadata, &changesJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit log: %w", err)
	}

	event.EventType = EventType(eventType)
	event.Status = EventStatus(status)
	event.Username = username.String
	event.ResourceType = ResourceType(resourceType.String)
	event.ResourceID = resourceID.String
	event.IPAddress = ipAddress.String
	event.UserAgent = userAgent.String
	event.RequestID = requestID.String
	event.Message = message.String
	event.ErrorMessage = errorMessage.String

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if changesJSON.Valid && changesJSON.String != "" {
		event.Changes = &ChangeDetails{}
		if err := json.Unmarshal([]byte(changesJSON.String), event.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
	}

	return event, nil
}

// Close is a no-op; the database connection is shared
func (l *DBLogger) Close() error {
	return nil
}
