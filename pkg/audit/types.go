package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"
	EventTypeAuthRegister    EventType = "auth.register"

	// Account moderation events
	EventTypeUserBan           EventType = "user.ban"
	EventTypeUserUnban         EventType = "user.unban"
	EventTypeUserRoleChange    EventType = "user.role_change"
	EventTypeUserDelete        EventType = "user.delete"
	EventTypeUserProfileUpdate EventType = "user.profile_update"

	// Content moderation events
	EventTypeTopicPin    EventType = "topic.pin"
	EventTypeTopicUnpin  EventType = "topic.unpin"
	EventTypeTopicLock   EventType = "topic.lock"
	EventTypeTopicUnlock EventType = "topic.unlock"
	EventTypeTopicDelete EventType = "topic.delete"
	EventTypePostDelete  EventType = "post.delete"
	EventTypeTopicPrune  EventType = "topic.prune"

	// Category administration events
	EventTypeCategoryCreate EventType = "category.create"
	EventTypeCategoryUpdate EventType = "category.update"
	EventTypeCategoryDelete EventType = "category.delete"

	// Configuration events
	EventTypeSettingsChange EventType = "settings.change"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource an event applies to
type ResourceType string

const (
	ResourceTypeUser     ResourceType = "user"
	ResourceTypeCategory ResourceType = "category"
	ResourceTypeTopic    ResourceType = "topic"
	ResourceTypePost     ResourceType = "post"
	ResourceTypeSettings ResourceType = "settings"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	ID        int64       `json:"id"`
	EventID   string      `json:"event_id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	// Resource
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Changes      *ChangeDetails         `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// Change is shorthand for a single-field change
func Change(field string, before, after interface{}) *ChangeDetails {
	return &ChangeDetails{
		Before: map[string]interface{}{field: before},
		After:  map[string]interface{}{field: after},
	}
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter narrows a search of the audit trail
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	UserID     *int64
	EventTypes []EventType
	Status     *EventStatus

	ResourceType ResourceType
	ResourceID   string

	Limit  int
	Offset int
}

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

// PageSize is the effective Limit: 50 when unset, at most 500
func (f SearchFilter) PageSize() int {
	switch {
	case f.Limit <= 0:
		return defaultSearchLimit
	case f.Limit > maxSearchLimit:
		return maxSearchLimit
	default:
		return f.Limit
	}
}
