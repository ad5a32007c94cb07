package forum

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/events"
	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/rbac"
	"github.com/platinummonkey/forum/pkg/validation"
)

// Config wires a Service. Store and Tokens are required; every other
// dependency has a working default.
type Config struct {
	Store      Store
	Tokens     *auth.TokenManager
	Hasher     *auth.PasswordHasher
	Authorizer *rbac.Engine
	Validator  *validation.Validator
	Audit      audit.Logger
	Events     events.Publisher
	Metrics    *observability.Metrics
}

// Service implements the forum's operations on top of a Store
type Service struct {
	store     Store
	tokens    *auth.TokenManager
	hasher    *auth.PasswordHasher
	authz     *rbac.Engine
	validator *validation.Validator
	audit     audit.Logger
	events    events.Publisher
	metrics   *observability.Metrics
}

// NewService creates a forum service
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("forum: store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("forum: token manager is required")
	}

	s := &Service{
		store:     cfg.Store,
		tokens:    cfg.Tokens,
		hasher:    cfg.Hasher,
		authz:     cfg.Authorizer,
		validator: cfg.Validator,
		audit:     cfg.Audit,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
	}
	if s.hasher == nil {
		s.hasher = auth.NewPasswordHasher(0)
	}
	if s.authz == nil {
		s.authz = rbac.NewEngine(rbac.DefaultPolicy())
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.audit == nil {
		s.audit = audit.NewNoopLogger()
	}
	if s.events == nil {
		s.events = events.NewNoopPublisher()
	}
	return s, nil
}

// Authorizer returns the engine used for permission checks
func (s *Service) Authorizer() *rbac.Engine {
	return s.authz
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, "forum."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// authorize turns a denied decision into a forbidden error
func (s *Service) authorize(ctx context.Context, d rbac.Decision) error {
	if d.Allowed {
		return nil
	}
	s.metrics.RecordDenial(d.Permission.String(), d.Code)
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"permission": d.Permission.String(),
		"code":       d.Code,
	}).Debug(d.Reason)
	return d.Err()
}

// moderation records an audit event once the change has committed.
// Audit failures are logged and never fail the request.
func (s *Service) moderation(ctx context.Context, eventType audit.EventType, actor *auth.Actor, resType audit.ResourceType, resID int64, changes *audit.ChangeDetails, message string) {
	var actorID int64
	var actorName string
	if actor != nil {
		actorID, actorName = actor.ID, actor.Username
	}
	err := s.audit.LogModeration(ctx, eventType, actorID, actorName, resType, strconv.FormatInt(resID, 10), changes, message)
	if err != nil {
		observability.FromContext(ctx).WithError(err).WithField("event_type", string(eventType)).Warn("failed to write audit event")
	}
}

func (s *Service) authentication(ctx context.Context, eventType audit.EventType, user *auth.User, username string, status audit.EventStatus, message string) {
	var userID *int64
	if user != nil {
		id := user.ID
		userID = &id
		username = user.Username
	}
	if err := s.audit.LogAuthentication(ctx, eventType, userID, username, status, message); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("event_type", string(eventType)).Warn("failed to write audit event")
	}
}

// publish sends a domain event. Delivery failures are logged only.
func (s *Service) publish(ctx context.Context, subject string, actor *auth.Actor, data map[string]interface{}) {
	var actorID int64
	if actor != nil {
		actorID = actor.ID
	}
	if err := s.events.Publish(ctx, events.NewEvent(subject, actorID, data)); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}

func isNotFound(err error) bool {
	return apperr.IsKind(err, apperr.KindNotFound)
}
