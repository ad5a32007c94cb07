package rbac

import (
	"github.com/platinummonkey/forum/pkg/auth"
)

// Resource represents a resource type in the forum
type Resource string

const (
	ResourceCategory Resource = "category"
	ResourceTopic    Resource = "topic"
	ResourcePost     Resource = "post"
	ResourceUser     Resource = "user"
	ResourceSettings Resource = "settings"

	ResourceNotification Resource = "notification"
)

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionManage       Action = "manage"
	ActionCreate       Action = "create"
	ActionCreateLocked Action = "create_locked"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionPin          Action = "pin"
	ActionLock         Action = "lock"
	ActionList         Action = "list"
	ActionBan          Action = "ban"
	ActionUpdateRole   Action = "update_role"
	ActionSubscribe    Action = "subscribe"
)

// Permission represents a specific permission (resource + action)
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// Forum permissions
var (
	PermManageCategory = Permission{ResourceCategory, ActionManage}
	PermCreateTopic    = Permission{ResourceTopic, ActionCreate}
	PermEditTopic      = Permission{ResourceTopic, ActionUpdate}
	PermDeleteTopic    = Permission{ResourceTopic, ActionDelete}
	PermPinTopic       = Permission{ResourceTopic, ActionPin}
	PermLockTopic      = Permission{ResourceTopic, ActionLock}
	PermReply          = Permission{ResourcePost, ActionCreate}
	PermReplyLocked    = Permission{ResourcePost, ActionCreateLocked}
	PermEditPost       = Permission{ResourcePost, ActionUpdate}
	PermDeletePost     = Permission{ResourcePost, ActionDelete}
	PermListUsers      = Permission{ResourceUser, ActionList}
	PermEditProfile    = Permission{ResourceUser, ActionUpdate}
	PermBanUser        = Permission{ResourceUser, ActionBan}
	PermChangeRole     = Permission{ResourceUser, ActionUpdateRole}
	PermDeleteUser     = Permission{ResourceUser, ActionDelete}
	PermManageSettings = Permission{ResourceSettings, ActionManage}

	PermSubscribeTopic     = Permission{ResourceTopic, ActionSubscribe}
	PermManageNotification = Permission{ResourceNotification, ActionManage}
)

// AllPermissions lists every permission the engine knows about
func AllPermissions() []Permission {
	return []Permission{
		PermManageCategory,
		PermCreateTopic,
		PermEditTopic,
		PermDeleteTopic,
		PermPinTopic,
		PermLockTopic,
		PermReply,
		PermReplyLocked,
		PermEditPost,
		PermDeletePost,
		PermListUsers,
		PermEditProfile,
		PermBanUser,
		PermChangeRole,
		PermDeleteUser,
		PermManageSettings,
		PermSubscribeTopic,
		PermManageNotification,
	}
}

// readOnly permissions remain available to banned accounts
var readOnly = map[Permission]bool{
	PermListUsers:          true,
	PermManageNotification: true,
}

// PermissionScope is how far a grant reaches
type PermissionScope int

const (
	ScopeNone PermissionScope = iota // Not granted
	ScopeOwn                         // Only resources the actor owns
	ScopeAny                         // Any resource
)

// String returns the scope name
func (s PermissionScope) String() string {
	switch s {
	case ScopeOwn:
		return "own"
	case ScopeAny:
		return "any"
	default:
		return "none"
	}
}

// RoleGrants binds a role to the scope of each permission it holds
type RoleGrants struct {
	Role        auth.Role
	DisplayName string
	Description string
	Grants      map[Permission]PermissionScope
}

// Target describes the resource an action is applied to
type Target struct {
	// OwnerID is the author of a topic or post, or the subject user
	OwnerID int64
	// OwnerRole is the current role of OwnerID
	OwnerRole auth.Role
	// Locked is set for locked topics
	Locked bool
	// FirstPost is set for the opening post of a topic
	FirstPost bool
	// NewRole is the requested role for role changes
	NewRole auth.Role
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed    bool       `json:"allowed"`
	Permission Permission `json:"permission"`
	Reason     string     `json:"reason,omitempty"`
	Code       string     `json:"code,omitempty"`
}

// BuiltInRoles returns the grant table for every forum role
func BuiltInRoles() []RoleGrants {
	member := map[Permission]PermissionScope{
		PermCreateTopic: ScopeAny,
		PermEditTopic:   ScopeOwn,
		PermDeleteTopic: ScopeOwn,
		PermReply:       ScopeAny,
		PermEditPost:    ScopeOwn,
		PermDeletePost:  ScopeOwn,
		PermEditProfile: ScopeOwn,

		PermSubscribeTopic:     ScopeAny,
		// Inboxes are private for every role
		PermManageNotification: ScopeOwn,
	}

	moderator := extend(member, map[Permission]PermissionScope{
		PermEditTopic:   ScopeAny,
		PermDeleteTopic: ScopeAny,
		PermPinTopic:    ScopeAny,
		PermLockTopic:   ScopeAny,
		PermReplyLocked: ScopeAny,
		PermEditPost:    ScopeAny,
		PermDeletePost:  ScopeAny,
		PermListUsers:   ScopeAny,
		PermBanUser:     ScopeAny,
	})

	admin := extend(moderator, map[Permission]PermissionScope{
		PermManageCategory: ScopeAny,
		PermEditProfile:    ScopeAny,
		PermChangeRole:     ScopeAny,
		PermDeleteUser:     ScopeAny,
		PermManageSettings: ScopeAny,
	})

	return []RoleGrants{
		{
			Role:        auth.RoleUser,
			DisplayName: "Member",
			Description: "Creates topics and replies, manages own content",
			Grants:      member,
		},
		{
			Role:        auth.RoleModerator,
			DisplayName: "Moderator",
			Description: "Moderates all content and bans members",
			Grants:      moderator,
		},
		{
			Role:        auth.RoleAdmin,
			DisplayName: "Administrator",
			Description: "Full access including categories, roles and settings",
			Grants:      admin,
		},
	}
}

func extend(base, extra map[Permission]PermissionScope) map[Permission]PermissionScope {
	out := make(map[Permission]PermissionScope, len(base)+len(extra))
	for p, s := range base {
		out[p] = s
	}
	for p, s := range extra {
		out[p] = s
	}
	return out
}
