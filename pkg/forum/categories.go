package forum

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/validation"
)

// ListCategories returns every category by display order with its counters
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}

// GetCategory returns a category with its topics
func (s *Service) GetCategory(ctx context.Context, id int64) (_ *CategoryDetail, err error) {
	ctx, span := startSpan(ctx, "GetCategory", attribute.Int64("category.id", id))
	defer func() { endSpan(span, err) }()

	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	topics, err := s.store.ListCategoryTopics(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CategoryDetail{Category: *c, Topics: topics}, nil
}

// CreateCategory adds a category
func (s *Service) CreateCategory(ctx context.Context, actor *auth.Actor, in CategoryInput) (_ *Category, err error) {
	ctx, span := startSpan(ctx, "CreateCategory")
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("create_category", err) }()

	if err := s.authorize(ctx, s.authz.CanManageCategory(actor)); err != nil {
		return nil, err
	}
	validation.TrimSpace(&in.Name, &in.Description)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	c := &Category{Name: in.Name, Description: in.Description, DisplayOrder: in.DisplayOrder}
	c.ID, err = s.store.CreateCategory(ctx, c)
	if err != nil {
		return nil, err
	}

	s.moderation(ctx, audit.EventTypeCategoryCreate, actor, audit.ResourceTypeCategory, c.ID, nil, "category "+c.Name+" created")
	return s.store.GetCategory(ctx, c.ID)
}

// UpdateCategory changes the given fields of a category
func (s *Service) UpdateCategory(ctx context.Context, actor *auth.Actor, id int64, in CategoryUpdate) (_ *Category, err error) {
	ctx, span := startSpan(ctx, "UpdateCategory", attribute.Int64("category.id", id))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("update_category", err) }()

	if err := s.authorize(ctx, s.authz.CanManageCategory(actor)); err != nil {
		return nil, err
	}

	current, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
		if err := s.validator.Var("name", updated.Name, "required,min=1,max=100"); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		updated.Description = strings.TrimSpace(*in.Description)
		if err := s.validator.Var("description", updated.Description, "max=500"); err != nil {
			return nil, err
		}
	}
	if in.DisplayOrder != nil {
		updated.DisplayOrder = *in.DisplayOrder
	}

	if err := s.store.UpdateCategory(ctx, &updated); err != nil {
		return nil, err
	}

	changes := &audit.ChangeDetails{
		Before: map[string]interface{}{"name": current.Name, "description": current.Description, "display_order": current.DisplayOrder},
		After:  map[string]interface{}{"name": updated.Name, "description": updated.Description, "display_order": updated.DisplayOrder},
	}
	s.moderation(ctx, audit.EventTypeCategoryUpdate, actor, audit.ResourceTypeCategory, id, changes, "category updated")
	return s.store.GetCategory(ctx, id)
}

// DeleteCategory removes a category together with its topics and posts
func (s *Service) DeleteCategory(ctx context.Context, actor *auth.Actor, id int64) (err error) {
	ctx, span := startSpan(ctx, "DeleteCategory", attribute.Int64("category.id", id))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("delete_category", err) }()

	if err := s.authorize(ctx, s.authz.CanManageCategory(actor)); err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.moderation(ctx, audit.EventTypeCategoryDelete, actor, audit.ResourceTypeCategory, id, nil, "category deleted")
	return nil
}
