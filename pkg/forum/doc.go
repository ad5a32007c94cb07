// Package forum implements the discussion board: accounts, categories, topics
// and posts, with role-based moderation.
//
// The Service validates input, asks the rbac engine for a decision, and then
// applies the change through a Store. Audit entries and domain events are
// written only after the store has committed, and their failures are logged
// without failing the request.
//
// Every topic owns exactly one first post holding its body. The two are
// created in one transaction and the first post is removed only together
// with its topic.
//
// Members may subscribe to topics. A committed reply writes a NEW_REPLY
// notification to every subscriber except its author, and each inbox can
// only be read or changed by its owner.
//
//	svc, err := forum.NewService(forum.Config{
//		Store:  sqlstore.New(db, storage.DriverPostgres),
//		Tokens: tokens,
//		Audit:  auditLogger,
//		Events: publisher,
//	})
package forum
