// Package events publishes forum domain events.
//
// After a change commits, the service publishes a JSON Event on one of the forum.*
// subjects (topic created or deleted, post created, user banned, unbanned or given a
// new role). NATSPublisher sends them over core NATS; NewNoopPublisher is used when no
// NATS URL is configured. Publish failures are logged by the caller and never undo the
// change.
package events
