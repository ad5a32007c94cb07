package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/forum/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an event as given
	Log(ctx context.Context, event *AuditEvent) error

	// LogAuthentication records a login or registration attempt
	LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error

	// LogModeration records an action taken by actorID on a resource
	LogModeration(ctx context.Context, eventType EventType, actorID int64, actorName string, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error

	// Close releases the logger's resources
	Close() error
}

// Searcher reads the audit trail back
type Searcher interface {
	Search(ctx context.Context, filter SearchFilter) ([]*AuditEvent, error)
}

// NewNoopLogger returns a logger that discards every event
func NewNoopLogger() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }

func (noOpLogger) LogAuthentication(ctx context.Context, eventType EventType, userID *int64, username string, status EventStatus, message string) error {
	return nil
}

func (noOpLogger) LogModeration(ctx context.Context, eventType EventType, actorID int64, actorName string, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	return nil
}

func (noOpLogger) Close() error { return nil }

// buildBaseEvent creates an event with the request context populated
func buildBaseEvent(ctx context.Context, eventType EventType, status EventStatus) *AuditEvent {
	client := contextkeys.GetClientInfo(ctx)
	return &AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		RequestID: contextkeys.GetRequestID(ctx),
	}
}
