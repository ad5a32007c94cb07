package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Subjects published by the forum service
const (
	SubjectTopicCreated    = "forum.topic.created"
	SubjectTopicDeleted    = "forum.topic.deleted"
	SubjectPostCreated     = "forum.post.created"
	SubjectUserBanned      = "forum.user.banned"
	SubjectUserUnbanned    = "forum.user.unbanned"
	SubjectUserRoleChanged = "forum.user.role_changed"
)

// Event is the JSON envelope for every published message
type Event struct {
	ID         string                 `json:"id"`
	Subject    string                 `json:"subject"`
	OccurredAt time.Time              `json:"occurred_at"`
	ActorID    int64                  `json:"actor_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NewEvent stamps a new event
func NewEvent(subject string, actorID int64, data map[string]interface{}) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Data:       data,
	}
}

// Publisher delivers domain events after the change that caused them has committed
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NewNoopPublisher returns a publisher that drops every event
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, event *Event) error { return nil }

func (noopPublisher) Close() error { return nil }
