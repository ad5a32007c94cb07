package api

import (
	"time"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
)

// RegisterResponse acknowledges a new account
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

// SessionUser is the identity returned with a fresh token
type SessionUser struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

// LoginResponse carries a session token
type LoginResponse struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
}

// CategoryResponse acknowledges a category mutation
type CategoryResponse struct {
	Message    string          `json:"message"`
	CategoryID int64           `json:"categoryId,omitempty"`
	Category   *forum.Category `json:"category,omitempty"`
}

// TopicCreatedResponse acknowledges a new topic and its first post
type TopicCreatedResponse struct {
	Message string `json:"message"`
	forum.CreatedTopic
}

// TopicResponse acknowledges a topic mutation
type TopicResponse struct {
	Message string       `json:"message"`
	Topic   *forum.Topic `json:"topic,omitempty"`
}

// PostResponse acknowledges a post mutation
type PostResponse struct {
	Message string      `json:"message"`
	PostID  int64       `json:"postId,omitempty"`
	Post    *forum.Post `json:"post,omitempty"`
}

// UserResponse acknowledges an account mutation
type UserResponse struct {
	Message string     `json:"message"`
	User    *auth.User `json:"user,omitempty"`
}

// PinRequest toggles a topic's pinned flag
type PinRequest struct {
	IsPinned *bool `json:"is_pinned"`
}

// LockRequest toggles a topic's locked flag
type LockRequest struct {
	IsLocked *bool `json:"is_locked"`
}

// AuditResponse is a page of audit entries
type AuditResponse struct {
	Events []*audit.AuditEvent `json:"events"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// NotificationsReadResponse acknowledges clearing an inbox
type NotificationsReadResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}
