package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/forum"
)

const notificationColumns = `id, user_id, type, message, topic_id, is_read, created_at`

func scanNotification(row rowScanner) (*forum.Notification, error) {
	n := &forum.Notification{}
	var typ string
	var topicID sql.NullInt64
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Message, &topicID, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = forum.NotificationType(typ)
	if topicID.Valid {
		id := topicID.Int64
		n.TopicID = &id
	}
	return n, nil
}

// Subscribe records that userID follows topicID
func (s *Store) Subscribe(ctx context.Context, userID, topicID int64) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO topic_subscriptions (user_id, topic_id, created_at) VALUES (?, ?, ?)
	`), userID, topicID, now())
	if err != nil {
		switch constraint(err) {
		case errUniqueViolation:
			return apperr.Conflict("already subscribed to this topic")
		case errForeignKeyViolation:
			return apperr.NotFound("topic")
		}
		return classify("subscribe", err)
	}
	return nil
}

// Unsubscribe stops userID following topicID
func (s *Store) Unsubscribe(ctx context.Context, userID, topicID int64) error {
	return s.exec(ctx, "unsubscribe", "subscription",
		`DELETE FROM topic_subscriptions WHERE user_id = ? AND topic_id = ?`, userID, topicID)
}

// NotifySubscribers fans a notification out to the followers of a topic in
// one transaction. The author of the triggering post is skipped.
func (s *Store) NotifySubscribers(ctx context.Context, topicID, authorID int64, typ forum.NotificationType, message string) (int64, error) {
	var written int64
	err := s.withTx(ctx, "notify subscribers", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.rebind(`
			SELECT user_id FROM topic_subscriptions WHERE topic_id = ? AND user_id <> ? ORDER BY user_id
		`), topicID, authorID)
		if err != nil {
			return classify("notify subscribers", err)
		}
		var recipients []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return classify("notify subscribers", err)
			}
			recipients = append(recipients, id)
		}
		if err := rows.Close(); err != nil {
			return classify("notify subscribers", err)
		}
		if err := rows.Err(); err != nil {
			return classify("notify subscribers", err)
		}

		ts := now()
		insertSQL := s.rebind(`
			INSERT INTO notifications (user_id, type, message, topic_id, is_read, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		for _, userID := range recipients {
			if _, err := tx.ExecContext(ctx, insertSQL, userID, string(typ), message, topicID, false, ts); err != nil {
				return classify("notify subscribers", err)
			}
		}
		written = int64(len(recipients))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ListNotifications returns the inbox of userID, newest first. Inboxes are
// read from the primary so a member sees their own read markers at once.
func (s *Store) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]forum.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	args := []interface{}{userID}
	if unreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, classify("list notifications", err)
	}
	defer rows.Close()

	out := make([]forum.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, classify("list notifications", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list notifications", err)
	}
	return out, nil
}

// CountUnreadNotifications counts the unread entries of an inbox
func (s *Store) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?
	`), userID, false).Scan(&n)
	if err != nil {
		return 0, classify("count notifications", err)
	}
	return n, nil
}

// GetNotification loads a single notification
func (s *Store) GetNotification(ctx context.Context, id int64) (*forum.Notification, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`), id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("notification")
	}
	if err != nil {
		return nil, classify("get notification", err)
	}
	return n, nil
}

// MarkNotificationRead flags one notification as read
func (s *Store) MarkNotificationRead(ctx context.Context, id int64) error {
	return s.exec(ctx, "mark notification read", "notification",
		`UPDATE notifications SET is_read = ? WHERE id = ?`, true, id)
}

// MarkAllNotificationsRead flags every unread notification of userID as read
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?
	`), true, userID, false)
	if err != nil {
		return 0, classify("mark notifications read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("mark notifications read", err)
	}
	return n, nil
}

// DeleteNotification removes one notification
func (s *Store) DeleteNotification(ctx context.Context, id int64) error {
	return s.exec(ctx, "delete notification", "notification", `DELETE FROM notifications WHERE id = ?`, id)
}

// DeleteReadNotificationsOlderThan removes read notifications created before
// cutoff. Unread ones are kept whatever their age.
func (s *Store) DeleteReadNotificationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		DELETE FROM notifications WHERE is_read = ? AND created_at < ?
	`), true, cutoff.UTC())
	if err != nil {
		return 0, classify("prune notifications", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("prune notifications", err)
	}
	return n, nil
}
