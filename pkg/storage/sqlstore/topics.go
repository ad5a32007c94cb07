package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
)

const topicSelect = `
	SELECT t.id, t.category_id, t.user_id, t.title, t.is_pinned, t.is_locked, t.view_count,
		t.created_at, t.updated_at, u.username, u.role, c.name
	FROM topics t
	JOIN users u ON u.id = t.user_id
	JOIN categories c ON c.id = t.category_id`

const topicSummarySelect = `
	SELECT t.id, t.category_id, t.user_id, t.title, t.is_pinned, t.is_locked, t.view_count,
		t.created_at, t.updated_at, u.username, u.role, c.name,
		(SELECT COUNT(*) FROM posts p WHERE p.topic_id = t.id),
		(SELECT MAX(p.created_at) FROM posts p WHERE p.topic_id = t.id)
	FROM topics t
	JOIN users u ON u.id = t.user_id
	JOIN categories c ON c.id = t.category_id`

// A reply bumps its topic's updated_at, so updated_at is the last activity.
const topicOrder = ` ORDER BY t.is_pinned DESC, t.updated_at DESC, t.id DESC`

func topicDest(t *forum.Topic, role *string) []interface{} {
	return []interface{}{
		&t.ID, &t.CategoryID, &t.AuthorID, &t.Title, &t.IsPinned, &t.IsLocked, &t.ViewCount,
		&t.CreatedAt, &t.UpdatedAt, &t.AuthorUsername, role, &t.CategoryName,
	}
}

func scanTopic(row rowScanner) (*forum.Topic, error) {
	t := &forum.Topic{}
	var role string
	if err := row.Scan(topicDest(t, &role)...); err != nil {
		return nil, err
	}
	t.AuthorRole = auth.Role(role)
	return t, nil
}

func scanSummary(row rowScanner) (*forum.TopicSummary, error) {
	ts := &forum.TopicSummary{}
	var role string
	var lastPost nullTime
	dest := append(topicDest(&ts.Topic, &role), &ts.ReplyCount, &lastPost)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	ts.AuthorRole = auth.Role(role)
	ts.LastPostAt = lastPost.ptr()
	return ts, nil
}

func collectSummaries(rows *sql.Rows, op string) ([]forum.TopicSummary, error) {
	defer rows.Close()

	topics := make([]forum.TopicSummary, 0)
	for rows.Next() {
		ts, err := scanSummary(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		topics = append(topics, *ts)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return topics, nil
}

// CreateTopic inserts the topic and its first post in one transaction
func (s *Store) CreateTopic(ctx context.Context, t *forum.Topic, body string) (topicID, postID int64, err error) {
	ts := now()
	err = s.withTx(ctx, "create topic", func(tx *sql.Tx) error {
		var err error
		topicID, err = insert(ctx, tx, s.rebind(`
			INSERT INTO topics (category_id, user_id, title, is_pinned, is_locked, view_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, ?, ?)
			RETURNING id
		`), t.CategoryID, t.AuthorID, t.Title, t.IsPinned, t.IsLocked, ts, ts)
		if err != nil {
			if errors.Is(constraint(err), errForeignKeyViolation) {
				return apperr.NotFound("category")
			}
			return classify("create topic", err)
		}

		postID, err = insert(ctx, tx, s.rebind(`
			INSERT INTO posts (topic_id, user_id, content, is_first_post, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`), topicID, t.AuthorID, body, true, ts, ts)
		if err != nil {
			return classify("create first post", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return topicID, postID, nil
}

// ListTopics returns one page of topics and the total number of topics
func (s *Store) ListTopics(ctx context.Context, limit, offset int) ([]forum.TopicSummary, int64, error) {
	db := s.reader()

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM topics`).Scan(&total); err != nil {
		return nil, 0, classify("count topics", err)
	}

	rows, err := db.QueryContext(ctx, s.rebind(topicSummarySelect+topicOrder+` LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, 0, classify("list topics", err)
	}
	topics, err := collectSummaries(rows, "list topics")
	if err != nil {
		return nil, 0, err
	}
	return topics, total, nil
}

// GetTopic loads a topic with its author
func (s *Store) GetTopic(ctx context.Context, id int64) (*forum.Topic, error) {
	t, err := scanTopic(s.db.QueryRowContext(ctx, s.rebind(topicSelect+` WHERE t.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("topic")
	}
	if err != nil {
		return nil, classify("get topic", err)
	}
	return t, nil
}

// IncrementTopicViews adds one view. It leaves updated_at alone.
func (s *Store) IncrementTopicViews(ctx context.Context, id int64) error {
	return s.exec(ctx, "increment topic views", "topic",
		`UPDATE topics SET view_count = view_count + 1 WHERE id = ?`, id)
}

// ListPosts returns the posts of a topic in creation order
func (s *Store) ListPosts(ctx context.Context, topicID int64) ([]forum.Post, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(postSelect+` WHERE p.topic_id = ? ORDER BY p.created_at, p.id`), topicID)
	if err != nil {
		return nil, classify("list posts", err)
	}
	defer rows.Close()

	posts := make([]forum.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, classify("list posts", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list posts", err)
	}
	return posts, nil
}

// UpdateTopicTitle renames a topic
func (s *Store) UpdateTopicTitle(ctx context.Context, id int64, title string) error {
	return s.exec(ctx, "update topic", "topic",
		`UPDATE topics SET title = ?, updated_at = ? WHERE id = ?`, title, now(), id)
}

// SetTopicPinned sets the pinned flag. Pinning is not activity, so updated_at is kept.
func (s *Store) SetTopicPinned(ctx context.Context, id int64, pinned bool) error {
	return s.exec(ctx, "pin topic", "topic", `UPDATE topics SET is_pinned = ? WHERE id = ?`, pinned, id)
}

// SetTopicLocked sets the locked flag
func (s *Store) SetTopicLocked(ctx context.Context, id int64, locked bool) error {
	return s.exec(ctx, "lock topic", "topic", `UPDATE topics SET is_locked = ? WHERE id = ?`, locked, id)
}

// DeleteTopic removes a topic; its posts cascade
func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	return s.exec(ctx, "delete topic", "topic", `DELETE FROM topics WHERE id = ?`, id)
}

// DeleteTopicsOlderThan removes every topic created before cutoff
func (s *Store) DeleteTopicsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM topics WHERE created_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, classify("prune topics", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("prune topics", err)
	}
	return n, nil
}
