// Package auth provides forum identities and session issuance.
//
// Accounts carry a Role (user, moderator, admin) and a Status (active, banned).
// Passwords are stored only as bcrypt hashes through PasswordHasher.
//
// Sessions are HS256 signed tokens issued by TokenManager. A token embeds the
// user id, username and role at login time:
//
//	tm, err := auth.NewTokenManager(secret, 24*time.Hour, "forum")
//	raw, claims, err := tm.Issue(user)
//	claims, err = tm.Verify(raw)
//
// Claims are a snapshot. A role change or ban does not invalidate tokens that
// were already issued; request handling re-reads the account per request and
// authorizes against the current Actor instead of the token claims.
package auth
