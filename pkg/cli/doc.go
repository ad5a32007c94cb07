// Package cli implements forumctl, the forum's operator command line.
//
// Every command loads the same configuration as the server (environment, .env
// and FORUM_CONFIG_FILE), connects to the primary database and applies pending
// migrations before doing its work:
//
//	forumctl migrate
//	forumctl create-user --username admin --email admin@example.com --role admin
//	forumctl set-role alice moderator
//	forumctl prune --days 30
//
// create-user goes through the same validation as POST /auth/register. set-role
// writes the role directly and is the way to appoint the first administrator.
package cli
