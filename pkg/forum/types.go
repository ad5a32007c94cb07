package forum

import (
	"time"

	"github.com/platinummonkey/forum/pkg/auth"
)

// Category groups topics
type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	TopicCount   int64     `json:"topic_count"`
	PostCount    int64     `json:"post_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CategoryDetail is a category with its topics, pinned first then by activity
type CategoryDetail struct {
	Category
	Topics []TopicSummary `json:"topics"`
}

// Topic is a discussion thread. Its body lives in the first post.
type Topic struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	AuthorID   int64     `json:"user_id"`
	Title      string    `json:"title"`
	IsPinned   bool      `json:"is_pinned"`
	IsLocked   bool      `json:"is_locked"`
	ViewCount  int64     `json:"view_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	AuthorUsername string    `json:"author_username"`
	AuthorRole     auth.Role `json:"author_role"`
	CategoryName   string    `json:"category_name,omitempty"`
}

// TopicSummary is a topic row in a listing
type TopicSummary struct {
	Topic
	// ReplyCount counts every post of the topic, the first post included
	ReplyCount int64      `json:"reply_count"`
	LastPostAt *time.Time `json:"last_post_at"`
}

// Post is a single message in a topic
type Post struct {
	ID          int64     `json:"id"`
	TopicID     int64     `json:"topic_id"`
	AuthorID    int64     `json:"user_id"`
	Content     string    `json:"content"`
	IsFirstPost bool      `json:"is_first_post"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	AuthorUsername string    `json:"author_username"`
	AuthorRole     auth.Role `json:"author_role"`
}

// TopicDetail is a topic with all of its posts in creation order
type TopicDetail struct {
	Topic
	Posts []Post `json:"posts"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// TopicList is a page of topics
type TopicList struct {
	Topics     []TopicSummary `json:"topics"`
	Pagination Pagination     `json:"pagination"`
}

// CreatedTopic holds the ids of a new topic and its first post
type CreatedTopic struct {
	TopicID int64 `json:"topicId"`
	PostID  int64 `json:"postId"`
}

// NotificationType classifies an inbox entry
type NotificationType string

// NotificationNewReply tells a subscriber that someone else replied to a topic
const NotificationNewReply NotificationType = "NEW_REPLY"

// Notification is an entry in a member's inbox
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	TopicID   *int64           `json:"topic_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationList is an inbox, newest first, with the unread total
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	Unread        int64          `json:"unread"`
}

// LoginResult is a freshly issued session
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *auth.User `json:"user"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps the row offset far from int overflow at any page size
	MaxPage = 1000000
)

// NormalizePage applies the listing defaults: values below 1 fall back to the
// defaults and the page size is capped at MaxPageSize
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// NewPagination computes page metadata for total rows
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if total > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
