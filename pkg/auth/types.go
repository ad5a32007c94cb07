package auth

import "time"

// Role is a forum-wide role
type Role string

const (
	RoleUser      Role = "user"      // Regular member
	RoleModerator Role = "moderator" // Content moderation, bans
	RoleAdmin     Role = "admin"     // Categories, roles, user removal
)

// Roles lists every role from lowest to highest rank
func Roles() []Role {
	return []Role{RoleUser, RoleModerator, RoleAdmin}
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// Rank orders roles; unknown roles rank -1
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 0
	case RoleModerator:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}

// IsStaff reports whether r carries moderation rights
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdmin
}

// Status is an account status
type Status string

const (
	StatusActive Status = "active"
	StatusBanned Status = "banned"
)

// User is a forum account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	Bio          string    `json:"bio,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor returns the identity used for authorization decisions
func (u *User) Actor() *Actor {
	if u == nil {
		return nil
	}
	return &Actor{ID: u.ID, Username: u.Username, Role: u.Role, Status: u.Status}
}

// Public returns a copy without private fields
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Email = ""
	cp.PasswordHash = ""
	return &cp
}

// Actor is the authenticated party performing a request
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Status   Status `json:"status"`
}

// IsBanned reports whether the actor's account is banned
func (a *Actor) IsBanned() bool {
	return a != nil && a.Status == StatusBanned
}

// Claims are the identity fields embedded in a session token.
// They are a snapshot taken at login and are not refreshed until the token expires.
type Claims struct {
	UserID    int64     `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthContext holds the verified session and the current actor for a request
type AuthContext struct {
	Claims *Claims
	Actor  *Actor
}

// HasRole checks whether the current actor holds one of roles
func (ac *AuthContext) HasRole(roles ...Role) bool {
	if ac == nil || ac.Actor == nil {
		return false
	}
	for _, r := range roles {
		if ac.Actor.Role == r {
			return true
		}
	}
	return false
}
