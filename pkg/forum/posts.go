package forum

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/events"
	"github.com/platinummonkey/forum/pkg/rbac"
	"github.com/platinummonkey/forum/pkg/validation"
)

// CreatePost replies to a topic
func (s *Service) CreatePost(ctx context.Context, actor *auth.Actor, in PostInput) (_ *Post, err error) {
	ctx, span := startSpan(ctx, "CreatePost", attribute.Int64("topic.id", in.TopicID))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("create_post", err) }()

	validation.TrimSpace(&in.Content)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	t, err := s.store.GetTopic(ctx, in.TopicID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.authz.CanPostReply(actor, topicTarget(t))); err != nil {
		return nil, err
	}

	p := &Post{TopicID: in.TopicID, AuthorID: actor.ID, Content: in.Content}
	p.ID, err = s.store.CreatePost(ctx, p)
	if err != nil {
		return nil, err
	}

	s.notifySubscribers(ctx, t, actor.ID)
	s.publish(ctx, events.SubjectPostCreated, actor, map[string]interface{}{
		"post_id":  p.ID,
		"topic_id": in.TopicID,
	})
	return s.store.GetPost(ctx, p.ID)
}

// UpdatePost edits the content of a post
func (s *Service) UpdatePost(ctx context.Context, actor *auth.Actor, id int64, in PostUpdate) (_ *Post, err error) {
	ctx, span := startSpan(ctx, "UpdatePost", attribute.Int64("post.id", id))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("update_post", err) }()

	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.authz.CanEditPost(actor, postTarget(p))); err != nil {
		return nil, err
	}
	validation.TrimSpace(&in.Content)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePost(ctx, id, in.Content); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, id)
}

// DeletePost removes a reply. The first post of a topic goes only with the topic.
func (s *Service) DeletePost(ctx context.Context, actor *auth.Actor, id int64) (err error) {
	ctx, span := startSpan(ctx, "DeletePost", attribute.Int64("post.id", id))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("delete_post", err) }()

	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, s.authz.CanDeletePost(actor, postTarget(p))); err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}

	if actor.ID != p.AuthorID {
		s.metrics.RecordModeration("delete_post")
		s.moderation(ctx, audit.EventTypePostDelete, actor, audit.ResourceTypePost, id, nil, "post deleted by staff")
	}
	return nil
}

func postTarget(p *Post) rbac.Target {
	return rbac.Target{OwnerID: p.AuthorID, OwnerRole: p.AuthorRole, FirstPost: p.IsFirstPost}
}
