package rbac

import (
	"fmt"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/auth"
)

// Checker decides whether an actor may apply a permission to a target
type Checker interface {
	Check(actor *auth.Actor, perm Permission, target Target) Decision
}

// Policy holds deployment-configurable moderation rules
type Policy struct {
	// StrictModeration stops moderators from acting on content or accounts
	// of members with an equal or higher role
	StrictModeration bool
}

// DefaultPolicy returns the strict policy
func DefaultPolicy() Policy {
	return Policy{StrictModeration: true}
}

// Engine evaluates the built-in grant table. It has no side effects.
type Engine struct {
	grants map[auth.Role]map[Permission]PermissionScope
	policy Policy
}

// NewEngine creates an engine over BuiltInRoles
func NewEngine(policy Policy) *Engine {
	grants := make(map[auth.Role]map[Permission]PermissionScope)
	for _, rg := range BuiltInRoles() {
		grants[rg.Role] = rg.Grants
	}
	return &Engine{grants: grants, policy: policy}
}

// Policy returns the engine's policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// Scope returns the grant scope of perm for role
func (e *Engine) Scope(role auth.Role, perm Permission) PermissionScope {
	return e.grants[role][perm]
}

// Check evaluates perm for actor against target
func (e *Engine) Check(actor *auth.Actor, perm Permission, target Target) Decision {
	d := Decision{Permission: perm}

	if actor == nil {
		return d.deny(apperr.CodeNotAllowed, "authentication required")
	}
	if !actor.Role.Valid() {
		return d.deny(apperr.CodeNotAllowed, fmt.Sprintf("unknown role %q", actor.Role))
	}
	if actor.IsBanned() && !readOnly[perm] {
		return d.deny(apperr.CodeAccountBanned, "account is banned")
	}

	// The first post is bound to its topic and is removed only with it.
	if perm == PermDeletePost && target.FirstPost {
		return d.deny(apperr.CodeFirstPost, "the first post cannot be deleted; delete the topic instead")
	}

	scope := e.Scope(actor.Role, perm)
	switch scope {
	case ScopeNone:
		return d.deny(apperr.CodeNotAllowed, fmt.Sprintf("role %s may not %s", actor.Role, perm))
	case ScopeOwn:
		if target.OwnerID != actor.ID {
			return d.deny(apperr.CodeNotAllowed, fmt.Sprintf("role %s may only %s on own resources", actor.Role, perm))
		}
	}

	if reason, code, ok := e.guard(actor, perm, target); !ok {
		return d.deny(code, reason)
	}

	d.Allowed = true
	d.Reason = fmt.Sprintf("granted to %s with scope %s", actor.Role, scope)
	return d
}

// guard applies the rules that depend on the target rather than the grant table
func (e *Engine) guard(actor *auth.Actor, perm Permission, target Target) (string, string, bool) {
	switch perm {
	case PermReply:
		if target.Locked && e.Scope(actor.Role, PermReplyLocked) == ScopeNone {
			return "topic is locked", apperr.CodeTopicLocked, false
		}

	case PermDeleteTopic:
		if e.policy.StrictModeration && actor.Role == auth.RoleModerator &&
			target.OwnerID != actor.ID && target.OwnerRole.Rank() >= actor.Role.Rank() {
			return "moderators may not delete topics of other staff members", apperr.CodeNotAllowed, false
		}

	case PermBanUser:
		if target.OwnerRole == auth.RoleAdmin {
			return "administrators cannot be banned", apperr.CodeNotAllowed, false
		}
		if target.OwnerID == actor.ID {
			return "you cannot ban yourself", apperr.CodeNotAllowed, false
		}
		if e.policy.StrictModeration && actor.Role == auth.RoleModerator && target.OwnerRole.Rank() >= actor.Role.Rank() {
			return "moderators may not ban other moderators", apperr.CodeNotAllowed, false
		}

	case PermChangeRole:
		if target.OwnerRole == auth.RoleAdmin {
			return "an administrator's role cannot be changed", apperr.CodeNotAllowed, false
		}
		if !target.NewRole.Valid() {
			return fmt.Sprintf("unknown role %q", target.NewRole), apperr.CodeNotAllowed, false
		}

	case PermDeleteUser:
		if target.OwnerRole == auth.RoleAdmin {
			return "administrators cannot be deleted", apperr.CodeNotAllowed, false
		}
		if target.OwnerID == actor.ID {
			return "you cannot delete yourself", apperr.CodeNotAllowed, false
		}
	}
	return "", "", true
}

func (d Decision) deny(code, reason string) Decision {
	d.Allowed = false
	d.Code = code
	d.Reason = reason
	return d
}

// Err returns nil for an allowed decision and a forbidden error otherwise
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden(d.Code, d.Reason)
}

// CanManageCategory reports whether actor may create, update or delete categories
func (e *Engine) CanManageCategory(actor *auth.Actor) Decision {
	return e.Check(actor, PermManageCategory, Target{})
}

// CanCreateTopic reports whether actor may open a topic
func (e *Engine) CanCreateTopic(actor *auth.Actor) Decision {
	return e.Check(actor, PermCreateTopic, Target{})
}

// CanEditTopic reports whether actor may change a topic's title
func (e *Engine) CanEditTopic(actor *auth.Actor, topic Target) Decision {
	return e.Check(actor, PermEditTopic, topic)
}

// CanDeleteTopic reports whether actor may delete a topic
func (e *Engine) CanDeleteTopic(actor *auth.Actor, topic Target) Decision {
	return e.Check(actor, PermDeleteTopic, topic)
}

// CanPinTopic reports whether actor may pin or unpin topics
func (e *Engine) CanPinTopic(actor *auth.Actor) Decision {
	return e.Check(actor, PermPinTopic, Target{})
}

// CanLockTopic reports whether actor may lock or unlock topics
func (e *Engine) CanLockTopic(actor *auth.Actor) Decision {
	return e.Check(actor, PermLockTopic, Target{})
}

// CanPostReply reports whether actor may reply to topic
func (e *Engine) CanPostReply(actor *auth.Actor, topic Target) Decision {
	return e.Check(actor, PermReply, topic)
}

// CanEditPost reports whether actor may edit post
func (e *Engine) CanEditPost(actor *auth.Actor, post Target) Decision {
	return e.Check(actor, PermEditPost, post)
}

// CanDeletePost reports whether actor may delete post
func (e *Engine) CanDeletePost(actor *auth.Actor, post Target) Decision {
	return e.Check(actor, PermDeletePost, post)
}

// CanListUsers reports whether actor may list all accounts
func (e *Engine) CanListUsers(actor *auth.Actor) Decision {
	return e.Check(actor, PermListUsers, Target{})
}

// CanEditProfile reports whether actor may edit the profile of target
func (e *Engine) CanEditProfile(actor *auth.Actor, target Target) Decision {
	return e.Check(actor, PermEditProfile, target)
}

// CanBanUser reports whether actor may ban or unban target
func (e *Engine) CanBanUser(actor *auth.Actor, target Target) Decision {
	return e.Check(actor, PermBanUser, target)
}

// CanChangeRole reports whether actor may give target the role newRole
func (e *Engine) CanChangeRole(actor *auth.Actor, target Target, newRole auth.Role) Decision {
	target.NewRole = newRole
	return e.Check(actor, PermChangeRole, target)
}

// CanDeleteUser reports whether actor may remove target's account
func (e *Engine) CanDeleteUser(actor *auth.Actor, target Target) Decision {
	return e.Check(actor, PermDeleteUser, target)
}

// CanManageSettings reports whether actor may read or change site settings
func (e *Engine) CanManageSettings(actor *auth.Actor) Decision {
	return e.Check(actor, PermManageSettings, Target{})
}

// CanSubscribeTopic reports whether actor may follow replies to a topic
func (e *Engine) CanSubscribeTopic(actor *auth.Actor) Decision {
	return e.Check(actor, PermSubscribeTopic, Target{})
}

// CanManageNotification reports whether actor may read or change a
// notification addressed to notification.OwnerID
func (e *Engine) CanManageNotification(actor *auth.Actor, notification Target) Decision {
	return e.Check(actor, PermManageNotification, notification)
}
