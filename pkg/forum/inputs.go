package forum

import "github.com/platinummonkey/forum/pkg/auth"

// RegisterInput is a new account request
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	// bcrypt refuses input past 72 bytes, whatever the rune count
	Password string `json:"password" validate:"required,min=6,max=72,maxbytes=72"`
}

// LoginInput is a credential check
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput changes the given profile fields; nil fields are left alone
type ProfileInput struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

// RoleInput requests a role change
type RoleInput struct {
	Role auth.Role `json:"role" validate:"required"`
}

// CategoryInput creates a category
type CategoryInput struct {
	Name         string `json:"name" validate:"required,min=1,max=100"`
	Description  string `json:"description" validate:"max=500"`
	DisplayOrder int    `json:"display_order"`
}

// CategoryUpdate changes the given category fields
type CategoryUpdate struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
}

// TopicInput opens a topic with its first post
type TopicInput struct {
	Title      string `json:"title" validate:"required,min=5,max=200"`
	Content    string `json:"content" validate:"required,min=10"`
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
}

// TopicUpdate renames a topic. The body is edited through its first post.
type TopicUpdate struct {
	Title string `json:"title" validate:"required,min=5,max=200"`
}

// PostInput replies to a topic
type PostInput struct {
	TopicID int64  `json:"topic_id" validate:"required,gt=0"`
	Content string `json:"content" validate:"required,min=1"`
}

// PostUpdate edits a post
type PostUpdate struct {
	Content string `json:"content" validate:"required,min=1"`
}
