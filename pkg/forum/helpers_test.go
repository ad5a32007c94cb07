package forum_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/events"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/storage"
	"github.com/platinummonkey/forum/pkg/storage/sqlstore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// recordingAudit keeps every event in memory
type recordingAudit struct {
	mu     sync.Mutex
	events []*audit.AuditEvent
	fail   bool
}

func (r *recordingAudit) Log(ctx context.Context, event *audit.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("audit store unavailable")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) LogAuthentication(ctx context.Context, eventType audit.EventType, userID *int64, username string, status audit.EventStatus, message string) error {
	return r.Log(ctx, &audit.AuditEvent{EventType: eventType, UserID: userID, Username: username, Status: status, Message: message})
}

func (r *recordingAudit) LogModeration(ctx context.Context, eventType audit.EventType, actorID int64, actorName string, resourceType audit.ResourceType, resourceID string, changes *audit.ChangeDetails, message string) error {
	return r.Log(ctx, &audit.AuditEvent{
		EventType:    eventType,
		Status:       audit.EventStatusSuccess,
		UserID:       &actorID,
		Username:     actorName,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
		Message:      message,
	})
}

func (r *recordingAudit) Close() error { return nil }

func (r *recordingAudit) types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func (r *recordingAudit) last() *audit.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

// recordingPublisher keeps every published event in memory
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []*events.Event
	fail     bool
}

func (p *recordingPublisher) Publish(ctx context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("nats: connection closed")
	}
	p.subjects = append(p.subjects, event.Subject)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type harness struct {
	svc    *forum.Service
	store  *sqlstore.Store
	audit  *recordingAudit
	events *recordingPublisher
	tokens *auth.TokenManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.DSN = ":memory:"
	cm, err := storage.NewConnectionManager(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cm.Close() })
	require.NoError(t, storage.RunMigrations(context.Background(), cm.Primary(), cm.Driver(), nil))

	tokens, err := auth.NewTokenManager([]byte(testSecret), time.Hour, "forum-test")
	require.NoError(t, err)

	h := &harness{
		store:  sqlstore.NewFromManager(cm),
		audit:  &recordingAudit{},
		events: &recordingPublisher{},
		tokens: tokens,
	}
	h.svc, err = forum.NewService(forum.Config{
		Store:  h.store,
		Tokens: tokens,
		Hasher: auth.NewPasswordHasher(4),
		Audit:  h.audit,
		Events: h.events,
	})
	require.NoError(t, err)
	return h
}

// user registers an account with the given role and returns its actor
func (h *harness) user(t *testing.T, username string, role auth.Role) *auth.Actor {
	t.Helper()
	ctx := context.Background()
	u, err := h.svc.Register(ctx, forum.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	if role != auth.RoleUser {
		require.NoError(t, h.store.SetUserRole(ctx, u.ID, role))
		u.Role = role
	}
	return u.Actor()
}

func (h *harness) category(t *testing.T, admin *auth.Actor, name string) int64 {
	t.Helper()
	c, err := h.svc.CreateCategory(context.Background(), admin, forum.CategoryInput{Name: name})
	require.NoError(t, err)
	return c.ID
}

func (h *harness) topic(t *testing.T, author *auth.Actor, categoryID int64, title string) *forum.CreatedTopic {
	t.Helper()
	created, err := h.svc.CreateTopic(context.Background(), author, forum.TopicInput{
		Title:      title,
		Content:    "This is the opening post.",
		CategoryID: categoryID,
	})
	require.NoError(t, err)
	return created
}
