// Package rbac is the forum's authorization engine.
//
// Every decision is a pure function of (actor, permission, target). The engine
// looks up the scope a role holds for a permission in a grant table and then
// applies target guards:
//
//	                 user  moderator  admin
//	topic:create     any   any        any
//	topic:update     own   any        any
//	topic:delete     own   any        any
//	topic:pin/lock   -     any        any
//	post:create      any   any        any
//	post:create_locked -   any        any
//	post:update      own   any        any
//	post:delete      own   any        any
//	user:list        -     any        any
//	user:update      own   own        any
//	user:ban         -     any        any
//	user:update_role -     -          any
//	user:delete      -     -          any
//	category:manage  -     -          any
//	settings:manage  -     -          any
//
// Guards on top of the table:
//
//   - A nil actor is denied everything; a banned actor is denied every mutation.
//   - The first post of a topic can never be deleted on its own.
//   - Replies to a locked topic need post:create_locked.
//   - Administrators cannot be banned, deleted or have their role changed.
//   - Nobody can ban or delete themself.
//   - With Policy.StrictModeration, a moderator cannot delete another staff
//     member's topic nor ban or unban another moderator.
//
// Example:
//
//	engine := rbac.NewEngine(rbac.DefaultPolicy())
//	if err := engine.CanPostReply(actor, rbac.Target{Locked: topic.IsLocked}).Err(); err != nil {
//		return err
//	}
package rbac
