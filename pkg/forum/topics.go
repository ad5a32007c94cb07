package forum

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/events"
	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/rbac"
	"github.com/platinummonkey/forum/pkg/validation"
)

// ListTopics returns a page of topics across all categories, pinned first and
// then by most recent activity
func (s *Service) ListTopics(ctx context.Context, page, limit int) (_ *TopicList, err error) {
	ctx, span := startSpan(ctx, "ListTopics", attribute.Int("page", page), attribute.Int("limit", limit))
	defer func() { endSpan(span, err) }()

	page, limit = NormalizePage(page, limit)
	if err := s.validator.Var("page", page, "lte="+strconv.Itoa(MaxPage)); err != nil {
		return nil, err
	}
	topics, total, err := s.store.ListTopics(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &TopicList{Topics: topics, Pagination: NewPagination(page, limit, total)}, nil
}

// GetTopic counts a view and returns the topic with all of its posts
func (s *Service) GetTopic(ctx context.Context, id int64) (_ *TopicDetail, err error) {
	ctx, span := startSpan(ctx, "GetTopic", attribute.Int64("topic.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.store.IncrementTopicViews(ctx, id); err != nil {
		return nil, err
	}
	s.metrics.RecordTopicView()

	t, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.store.ListPosts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TopicDetail{Topic: *t, Posts: posts}, nil
}

// CreateTopic opens a topic in a category together with its first post
func (s *Service) CreateTopic(ctx context.Context, actor *auth.Actor, in TopicInput) (_ *CreatedTopic, err error) {
	ctx, span := startSpan(ctx, "CreateTopic", attribute.Int64("category.id", in.CategoryID))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("create_topic", err) }()

	if err := s.authorize(ctx, s.authz.CanCreateTopic(actor)); err != nil {
		return nil, err
	}
	validation.TrimSpace(&in.Title, &in.Content)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	t := &Topic{CategoryID: in.CategoryID, AuthorID: actor.ID, Title: in.Title}
	topicID, postID, err := s.store.CreateTopic(ctx, t, in.Content)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.SubjectTopicCreated, actor, map[string]interface{}{
		"topic_id":    topicID,
		"post_id":     postID,
		"category_id": in.CategoryID,
		"title":       in.Title,
	})
	return &CreatedTopic{TopicID: topicID, PostID: postID}, nil
}

// UpdateTopic renames a topic
func (s *Service) UpdateTopic(ctx context.Context, actor *auth.Actor, id int64, in TopicUpdate) (_ *Topic, err error) {
	ctx, span := startSpan(ctx, "UpdateTopic", attribute.Int64("topic.id", id))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("update_topic", err) }()

	t, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.authz.CanEditTopic(actor, topicTarget(t))); err != nil {
		return nil, err
	}
	validation.TrimSpace(&in.Title)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTopicTitle(ctx, id, in.Title); err != nil {
		return nil, err
	}
	return s.store.GetTopic(ctx, id)
}

// DeleteTopic removes a topic and all of its posts
func (s *Service) DeleteTopic(ctx context.Context, actor *auth.Actor, id int64) (err error) {
	ctx, span := startSpan(ctx, "DeleteTopic", attribute.Int64("topic.id", id))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("delete_topic", err) }()

	t, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, s.authz.CanDeleteTopic(actor, topicTarget(t))); err != nil {
		return err
	}
	if err := s.store.DeleteTopic(ctx, id); err != nil {
		return err
	}

	if actor.ID != t.AuthorID {
		s.metrics.RecordModeration("delete_topic")
		s.moderation(ctx, audit.EventTypeTopicDelete, actor, audit.ResourceTypeTopic, id, nil, "topic "+t.Title+" deleted by staff")
	}
	s.publish(ctx, events.SubjectTopicDeleted, actor, map[string]interface{}{
		"topic_id":    id,
		"category_id": t.CategoryID,
	})
	return nil
}

// SetPinned pins or unpins a topic
func (s *Service) SetPinned(ctx context.Context, actor *auth.Actor, id int64, pinned bool) (_ *Topic, err error) {
	ctx, span := startSpan(ctx, "SetPinned", attribute.Int64("topic.id", id), attribute.Bool("pinned", pinned))
	defer func() { endSpan(span, err) }()

	if err := s.authorize(ctx, s.authz.CanPinTopic(actor)); err != nil {
		return nil, err
	}
	t, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTopicPinned(ctx, id, pinned); err != nil {
		return nil, err
	}

	eventType, action := audit.EventTypeTopicPin, "pin"
	if !pinned {
		eventType, action = audit.EventTypeTopicUnpin, "unpin"
	}
	s.metrics.RecordModeration(action)
	s.moderation(ctx, eventType, actor, audit.ResourceTypeTopic, id, audit.Change("is_pinned", t.IsPinned, pinned), "")

	t.IsPinned = pinned
	return t, nil
}

// SetLocked locks or unlocks a topic. Members cannot reply to locked topics.
func (s *Service) SetLocked(ctx context.Context, actor *auth.Actor, id int64, locked bool) (_ *Topic, err error) {
	ctx, span := startSpan(ctx, "SetLocked", attribute.Int64("topic.id", id), attribute.Bool("locked", locked))
	defer func() { endSpan(span, err) }()

	if err := s.authorize(ctx, s.authz.CanLockTopic(actor)); err != nil {
		return nil, err
	}
	t, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTopicLocked(ctx, id, locked); err != nil {
		return nil, err
	}

	eventType, action := audit.EventTypeTopicLock, "lock"
	if !locked {
		eventType, action = audit.EventTypeTopicUnlock, "unlock"
	}
	s.metrics.RecordModeration(action)
	s.moderation(ctx, eventType, actor, audit.ResourceTypeTopic, id, audit.Change("is_locked", t.IsLocked, locked), "")

	t.IsLocked = locked
	return t, nil
}

// PruneTopics deletes every topic created before cutoff and returns how many
// were removed
func (s *Service) PruneTopics(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	ctx, span := startSpan(ctx, "PruneTopics", attribute.String("cutoff", cutoff.Format(time.RFC3339)))
	defer func() { endSpan(span, err) }()

	if cutoff.IsZero() {
		return 0, apperr.Validation("prune cutoff is required")
	}
	n, err := s.store.DeleteTopicsOlderThan(ctx, cutoff.UTC())
	if err != nil {
		return 0, err
	}

	s.metrics.RecordPruned(n)
	if n > 0 {
		err := s.audit.LogModeration(ctx, audit.EventTypeTopicPrune, 0, "system", audit.ResourceTypeTopic, "", nil,
			"pruned topics created before "+cutoff.UTC().Format(time.RFC3339))
		if err != nil {
			observability.FromContext(ctx).WithError(err).Warn("failed to write audit event")
		}
	}
	return n, nil
}

func topicTarget(t *Topic) rbac.Target {
	return rbac.Target{OwnerID: t.AuthorID, OwnerRole: t.AuthorRole, Locked: t.IsLocked}
}
