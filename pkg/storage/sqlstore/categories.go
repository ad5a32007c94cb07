package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/forum"
)

const categorySelect = `
	SELECT c.id, c.name, c.description, c.display_order, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM topics t WHERE t.category_id = c.id),
		(SELECT COUNT(*) FROM posts p JOIN topics t ON t.id = p.topic_id WHERE t.category_id = c.id)
	FROM categories c`

func scanCategory(row rowScanner) (*forum.Category, error) {
	c := &forum.Category{}
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt,
		&c.TopicCount, &c.PostCount)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCategories returns every category ordered by display order then id
func (s *Store) ListCategories(ctx context.Context) ([]forum.Category, error) {
	rows, err := s.reader().QueryContext(ctx, categorySelect+` ORDER BY c.display_order, c.id`)
	if err != nil {
		return nil, classify("list categories", err)
	}
	defer rows.Close()

	categories := make([]forum.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, classify("list categories", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list categories", err)
	}
	return categories, nil
}

// GetCategory loads a category with its counters
func (s *Store) GetCategory(ctx context.Context, id int64) (*forum.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, s.rebind(categorySelect+` WHERE c.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("category")
	}
	if err != nil {
		return nil, classify("get category", err)
	}
	return c, nil
}

// ListCategoryTopics returns the topics of a category, pinned first then by activity
func (s *Store) ListCategoryTopics(ctx context.Context, categoryID int64) ([]forum.TopicSummary, error) {
	rows, err := s.reader().QueryContext(ctx,
		s.rebind(topicSummarySelect+` WHERE t.category_id = ?`+topicOrder), categoryID)
	if err != nil {
		return nil, classify("list category topics", err)
	}
	return collectSummaries(rows, "list category topics")
}

// CreateCategory inserts a category
func (s *Store) CreateCategory(ctx context.Context, c *forum.Category) (int64, error) {
	ts := now()
	id, err := insert(ctx, s.db, s.rebind(`
		INSERT INTO categories (name, description, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), c.Name, c.Description, c.DisplayOrder, ts, ts)
	if err != nil {
		if errors.Is(constraint(err), errUniqueViolation) {
			return 0, apperr.Conflict("category name already exists")
		}
		return 0, classify("create category", err)
	}
	return id, nil
}

// UpdateCategory replaces the editable fields of c
func (s *Store) UpdateCategory(ctx context.Context, c *forum.Category) error {
	err := s.exec(ctx, "update category", "category",
		`UPDATE categories SET name = ?, description = ?, display_order = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, c.DisplayOrder, now(), c.ID)
	if errors.Is(constraint(err), errUniqueViolation) {
		return apperr.Conflict("category name already exists")
	}
	return err
}

// DeleteCategory removes a category; its topics and their posts cascade
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.exec(ctx, "delete category", "category", `DELETE FROM categories WHERE id = ?`, id)
}
