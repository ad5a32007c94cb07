package forum

import (
	"context"
	"time"

	"github.com/platinummonkey/forum/pkg/auth"
)

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *auth.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*auth.User, error)
	GetUserByUsername(ctx context.Context, username string) (*auth.User, error)
	ListUsers(ctx context.Context) ([]*auth.User, error)
	UpdateUserProfile(ctx context.Context, id int64, username, bio, avatar string) error
	SetUserStatus(ctx context.Context, id int64, status auth.Status) error
	SetUserRole(ctx context.Context, id int64, role auth.Role) error
	// DeleteUser removes the account together with its topics and posts
	DeleteUser(ctx context.Context, id int64) error
}

// CategoryStore persists categories
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListCategoryTopics(ctx context.Context, categoryID int64) ([]TopicSummary, error)
	CreateCategory(ctx context.Context, c *Category) (int64, error)
	UpdateCategory(ctx context.Context, c *Category) error
	// DeleteCategory removes the category with its topics and their posts
	DeleteCategory(ctx context.Context, id int64) error
}

// TopicStore persists topics
type TopicStore interface {
	// CreateTopic inserts the topic and its first post atomically
	CreateTopic(ctx context.Context, t *Topic, body string) (topicID, postID int64, err error)
	ListTopics(ctx context.Context, limit, offset int) ([]TopicSummary, int64, error)
	GetTopic(ctx context.Context, id int64) (*Topic, error)
	IncrementTopicViews(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, topicID int64) ([]Post, error)
	UpdateTopicTitle(ctx context.Context, id int64, title string) error
	SetTopicPinned(ctx context.Context, id int64, pinned bool) error
	SetTopicLocked(ctx context.Context, id int64, locked bool) error
	DeleteTopic(ctx context.Context, id int64) error
	DeleteTopicsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostStore persists posts
type PostStore interface {
	// CreatePost appends the post and bumps the topic's activity time
	CreatePost(ctx context.Context, p *Post) (int64, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	UpdatePost(ctx context.Context, id int64, content string) error
	DeletePost(ctx context.Context, id int64) error
}

// NotificationStore persists topic subscriptions and member inboxes
type NotificationStore interface {
	// Subscribe reports a conflict when the member already follows the topic
	Subscribe(ctx context.Context, userID, topicID int64) error
	Unsubscribe(ctx context.Context, userID, topicID int64) error
	// NotifySubscribers writes one unread notification to every subscriber of
	// topicID except authorID and returns how many were written
	NotifySubscribers(ctx context.Context, topicID, authorID int64, typ NotificationType, message string) (int64, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error)
	CountUnreadNotifications(ctx context.Context, userID int64) (int64, error)
	GetNotification(ctx context.Context, id int64) (*Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
	DeleteNotification(ctx context.Context, id int64) error
	DeleteReadNotificationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the full persistence contract of the forum.
// Missing rows are reported as apperr not_found errors, unique violations as
// conflicts and everything else as storage errors.
type Store interface {
	UserStore
	CategoryStore
	TopicStore
	PostStore
	NotificationStore
}
