package forum

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/rbac"
)

// Subscribe makes the actor follow a topic. Replies by other members then
// land in the actor's inbox.
func (s *Service) Subscribe(ctx context.Context, actor *auth.Actor, topicID int64) (err error) {
	ctx, span := startSpan(ctx, "Subscribe", attribute.Int64("topic.id", topicID))
	defer func() { endSpan(span, err) }()

	if err := s.authorize(ctx, s.authz.CanSubscribeTopic(actor)); err != nil {
		return err
	}
	if _, err := s.store.GetTopic(ctx, topicID); err != nil {
		return err
	}
	return s.store.Subscribe(ctx, actor.ID, topicID)
}

// Unsubscribe stops the actor following a topic
func (s *Service) Unsubscribe(ctx context.Context, actor *auth.Actor, topicID int64) (err error) {
	ctx, span := startSpan(ctx, "Unsubscribe", attribute.Int64("topic.id", topicID))
	defer func() { endSpan(span, err) }()

	if err := s.authorize(ctx, s.authz.CanManageNotification(actor, inboxOf(actor))); err != nil {
		return err
	}
	return s.store.Unsubscribe(ctx, actor.ID, topicID)
}

// Notifications returns the actor's inbox, optionally only its unread entries
func (s *Service) Notifications(ctx context.Context, actor *auth.Actor, unreadOnly bool) (_ *NotificationList, err error) {
	ctx, span := startSpan(ctx, "Notifications", attribute.Bool("unread_only", unreadOnly))
	defer func() { endSpan(span, err) }()

	if err := s.authorize(ctx, s.authz.CanManageNotification(actor, inboxOf(actor))); err != nil {
		return nil, err
	}
	items, err := s.store.ListNotifications(ctx, actor.ID, unreadOnly)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnreadNotifications(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return &NotificationList{Notifications: items, Unread: unread}, nil
}

// MarkNotificationRead flags one of the actor's notifications as read
func (s *Service) MarkNotificationRead(ctx context.Context, actor *auth.Actor, id int64) (err error) {
	ctx, span := startSpan(ctx, "MarkNotificationRead", attribute.Int64("notification.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.ownNotification(ctx, actor, id); err != nil {
		return err
	}
	return s.store.MarkNotificationRead(ctx, id)
}

// MarkAllNotificationsRead clears the actor's unread count and returns how
// many notifications changed
func (s *Service) MarkAllNotificationsRead(ctx context.Context, actor *auth.Actor) (_ int64, err error) {
	ctx, span := startSpan(ctx, "MarkAllNotificationsRead")
	defer func() { endSpan(span, err) }()

	if err := s.authorize(ctx, s.authz.CanManageNotification(actor, inboxOf(actor))); err != nil {
		return 0, err
	}
	return s.store.MarkAllNotificationsRead(ctx, actor.ID)
}

// DeleteNotification removes one of the actor's notifications
func (s *Service) DeleteNotification(ctx context.Context, actor *auth.Actor, id int64) (err error) {
	ctx, span := startSpan(ctx, "DeleteNotification", attribute.Int64("notification.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.ownNotification(ctx, actor, id); err != nil {
		return err
	}
	return s.store.DeleteNotification(ctx, id)
}

// PruneNotifications deletes read notifications created before cutoff. The
// pruner calls it on every scheduled pass.
func (s *Service) PruneNotifications(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	ctx, span := startSpan(ctx, "PruneNotifications", attribute.String("cutoff", cutoff.Format(time.RFC3339)))
	defer func() { endSpan(span, err) }()

	if cutoff.IsZero() {
		return 0, apperr.Validation("prune cutoff is required")
	}
	return s.store.DeleteReadNotificationsOlderThan(ctx, cutoff.UTC())
}

// ownNotification loads a notification and checks it is addressed to actor
func (s *Service) ownNotification(ctx context.Context, actor *auth.Actor, id int64) error {
	if actor == nil {
		return s.authorize(ctx, s.authz.CanManageNotification(nil, rbac.Target{}))
	}
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	return s.authorize(ctx, s.authz.CanManageNotification(actor, rbac.Target{OwnerID: n.UserID}))
}

// notifySubscribers tells the followers of t about a reply by authorID.
// The reply has already committed, so failures are logged only.
func (s *Service) notifySubscribers(ctx context.Context, t *Topic, authorID int64) {
	n, err := s.store.NotifySubscribers(ctx, t.ID, authorID, NotificationNewReply, "New reply in topic: "+t.Title)
	if err != nil {
		observability.FromContext(ctx).WithError(err).WithField("topic_id", t.ID).Warn("failed to notify subscribers")
		return
	}
	s.metrics.RecordNotifications(n)
}

func inboxOf(actor *auth.Actor) rbac.Target {
	if actor == nil {
		return rbac.Target{}
	}
	return rbac.Target{OwnerID: actor.ID}
}
