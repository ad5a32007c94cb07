package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
)

const postSelect = `
	SELECT p.id, p.topic_id, p.user_id, p.content, p.is_first_post, p.created_at, p.updated_at,
		u.username, u.role
	FROM posts p
	JOIN users u ON u.id = p.user_id`

func scanPost(row rowScanner) (*forum.Post, error) {
	p := &forum.Post{}
	var role string
	err := row.Scan(&p.ID, &p.TopicID, &p.AuthorID, &p.Content, &p.IsFirstPost, &p.CreatedAt, &p.UpdatedAt,
		&p.AuthorUsername, &role)
	if err != nil {
		return nil, err
	}
	p.AuthorRole = auth.Role(role)
	return p, nil
}

// CreatePost appends a reply and marks the topic as active, atomically
func (s *Store) CreatePost(ctx context.Context, p *forum.Post) (int64, error) {
	ts := now()
	var id int64
	err := s.withTx(ctx, "create post", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(`UPDATE topics SET updated_at = ? WHERE id = ?`), ts, p.TopicID)
		if err != nil {
			return classify("create post", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return classify("create post", err)
		} else if n == 0 {
			return apperr.NotFound("topic")
		}

		id, err = insert(ctx, tx, s.rebind(`
			INSERT INTO posts (topic_id, user_id, content, is_first_post, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`), p.TopicID, p.AuthorID, p.Content, false, ts, ts)
		if err != nil {
			if errors.Is(constraint(err), errForeignKeyViolation) {
				return apperr.NotFound("user")
			}
			return classify("create post", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetPost loads a post with its author
func (s *Store) GetPost(ctx context.Context, id int64) (*forum.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, s.rebind(postSelect+` WHERE p.id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("post")
	}
	if err != nil {
		return nil, classify("get post", err)
	}
	return p, nil
}

// UpdatePost replaces the content of a post
func (s *Store) UpdatePost(ctx context.Context, id int64, content string) error {
	return s.exec(ctx, "update post", "post",
		`UPDATE posts SET content = ?, updated_at = ? WHERE id = ?`, content, now(), id)
}

// DeletePost removes a single post
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return s.exec(ctx, "delete post", "post", `DELETE FROM posts WHERE id = ?`, id)
}
