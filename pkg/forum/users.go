package forum

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/events"
	"github.com/platinummonkey/forum/pkg/rbac"
	"github.com/platinummonkey/forum/pkg/validation"
)

// Register creates a member account
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *auth.User, err error) {
	ctx, span := startSpan(ctx, "Register")
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("register", err) }()

	validation.TrimSpace(&in.Username, &in.Email)
	in.Email = strings.ToLower(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &auth.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		Status:       auth.StatusActive,
	}
	user.ID, err = s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.authentication(ctx, audit.EventTypeAuthRegister, user, "", audit.EventStatusSuccess, "account registered")
	return s.store.GetUserByID(ctx, user.ID)
}

// Login checks credentials and issues a session token
func (s *Service) Login(ctx context.Context, in LoginInput) (_ *LoginResult, err error) {
	ctx, span := startSpan(ctx, "Login")
	defer func() { endSpan(span, err) }()

	validation.TrimSpace(&in.Username)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		s.metrics.RecordAuthAttempt("invalid_credentials")
		s.authentication(ctx, audit.EventTypeAuthLoginFailed, nil, in.Username, audit.EventStatusFailure, "unknown username")
		return nil, apperr.InvalidCredentials()
	}

	ok, err := s.hasher.Matches(user.PasswordHash, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.RecordAuthAttempt("invalid_credentials")
		s.authentication(ctx, audit.EventTypeAuthLoginFailed, user, "", audit.EventStatusFailure, "wrong password")
		return nil, apperr.InvalidCredentials()
	}

	if user.Status == auth.StatusBanned {
		s.metrics.RecordAuthAttempt("banned")
		s.authentication(ctx, audit.EventTypeAuthLoginFailed, user, "", audit.EventStatusDenied, "account is banned")
		return nil, apperr.Forbidden(apperr.CodeAccountBanned, "account is banned")
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthAttempt("success")
	s.authentication(ctx, audit.EventTypeAuthLogin, user, "", audit.EventStatusSuccess, "login")
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}

// VerifySession validates a bearer token and loads the current state of its
// account. Role and status come from storage, not from the token.
func (s *Service) VerifySession(ctx context.Context, token string) (*auth.AuthContext, error) {
	if token == "" {
		return nil, apperr.MissingToken()
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.InvalidOrExpiredToken(err)
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.InvalidOrExpiredToken(nil)
		}
		return nil, err
	}

	return &auth.AuthContext{Claims: claims, Actor: user.Actor()}, nil
}

// GetUser returns the public profile of a member
func (s *Service) GetUser(ctx context.Context, id int64) (*auth.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// Me returns the full account of the caller
func (s *Service) Me(ctx context.Context, actor *auth.Actor) (*auth.User, error) {
	if actor == nil {
		return nil, apperr.MissingToken()
	}
	return s.store.GetUserByID(ctx, actor.ID)
}

// ListUsers returns every account for staff
func (s *Service) ListUsers(ctx context.Context, actor *auth.Actor) ([]*auth.User, error) {
	if err := s.authorize(ctx, s.authz.CanListUsers(actor)); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// UpdateProfile changes the username, bio or avatar of a member
func (s *Service) UpdateProfile(ctx context.Context, actor *auth.Actor, id int64, in ProfileInput) (_ *auth.User, err error) {
	ctx, span := startSpan(ctx, "UpdateProfile", attribute.Int64("user.id", id))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.RecordContentOperation("update_profile", err) }()

	target, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.authz.CanEditProfile(actor, userTarget(target))); err != nil {
		return nil, err
	}

	username, bio, avatar := target.Username, target.Bio, target.Avatar
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if err := s.validator.Var("username", username, "required,min=3,max=50"); err != nil {
			return nil, err
		}
	}
	if in.Bio != nil {
		bio = strings.TrimSpace(*in.Bio)
		if err := s.validator.Var("bio", bio, "max=500"); err != nil {
			return nil, err
		}
	}
	if in.Avatar != nil {
		avatar = strings.TrimSpace(*in.Avatar)
		if avatar != "" {
			if err := s.validator.Var("avatar", avatar, "url,max=255"); err != nil {
				return nil, err
			}
		}
	}

	if err := s.store.UpdateUserProfile(ctx, id, username, bio, avatar); err != nil {
		return nil, err
	}

	if actor.ID != id {
		changes := &audit.ChangeDetails{
			Before: map[string]interface{}{"username": target.Username, "bio": target.Bio, "avatar": target.Avatar},
			After:  map[string]interface{}{"username": username, "bio": bio, "avatar": avatar},
		}
		s.moderation(ctx, audit.EventTypeUserProfileUpdate, actor, audit.ResourceTypeUser, id, changes, "profile edited by staff")
	}
	return s.store.GetUserByID(ctx, id)
}

// BanUser bans a member. Banned members keep read access only.
func (s *Service) BanUser(ctx context.Context, actor *auth.Actor, id int64) (*auth.User, error) {
	return s.setStatus(ctx, actor, id, auth.StatusBanned)
}

// UnbanUser lifts a ban
func (s *Service) UnbanUser(ctx context.Context, actor *auth.Actor, id int64) (*auth.User, error) {
	return s.setStatus(ctx, actor, id, auth.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, actor *auth.Actor, id int64, status auth.Status) (_ *auth.User, err error) {
	ctx, span := startSpan(ctx, "SetUserStatus", attribute.Int64("user.id", id), attribute.String("status", string(status)))
	defer func() { endSpan(span, err) }()

	target, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.authz.CanBanUser(actor, userTarget(target))); err != nil {
		return nil, err
	}
	if err := s.store.SetUserStatus(ctx, id, status); err != nil {
		return nil, err
	}

	eventType, subject, action := audit.EventTypeUserBan, events.SubjectUserBanned, "ban"
	if status == auth.StatusActive {
		eventType, subject, action = audit.EventTypeUserUnban, events.SubjectUserUnbanned, "unban"
	}
	s.metrics.RecordModeration(action)
	s.moderation(ctx, eventType, actor, audit.ResourceTypeUser, id,
		audit.Change("status", string(target.Status), string(status)), "user "+target.Username+" "+action+"ned")
	s.publish(ctx, subject, actor, map[string]interface{}{"user_id": id, "username": target.Username})

	target.Status = status
	return target, nil
}

// ChangeRole gives a member a new role
func (s *Service) ChangeRole(ctx context.Context, actor *auth.Actor, id int64, role auth.Role) (_ *auth.User, err error) {
	ctx, span := startSpan(ctx, "ChangeRole", attribute.Int64("user.id", id), attribute.String("role", string(role)))
	defer func() { endSpan(span, err) }()

	if !role.Valid() {
		return nil, apperr.Validation("invalid role", apperr.FieldError{
			Field:   "role",
			Rule:    "oneof",
			Message: "role must be one of user, moderator, admin",
		})
	}

	target, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.authz.CanChangeRole(actor, userTarget(target), role)); err != nil {
		return nil, err
	}
	if err := s.store.SetUserRole(ctx, id, role); err != nil {
		return nil, err
	}

	s.metrics.RecordModeration("change_role")
	s.moderation(ctx, audit.EventTypeUserRoleChange, actor, audit.ResourceTypeUser, id,
		audit.Change("role", string(target.Role), string(role)), "role changed")
	s.publish(ctx, events.SubjectUserRoleChanged, actor, map[string]interface{}{
		"user_id":  id,
		"old_role": string(target.Role),
		"new_role": string(role),
	})

	target.Role = role
	return target, nil
}

// DeleteUser removes an account with all of its topics and posts
func (s *Service) DeleteUser(ctx context.Context, actor *auth.Actor, id int64) (err error) {
	ctx, span := startSpan(ctx, "DeleteUser", attribute.Int64("user.id", id))
	defer func() { endSpan(span, err) }()

	target, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, s.authz.CanDeleteUser(actor, userTarget(target))); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.metrics.RecordModeration("delete_user")
	s.moderation(ctx, audit.EventTypeUserDelete, actor, audit.ResourceTypeUser, id, nil, "user "+target.Username+" deleted")
	return nil
}

func userTarget(u *auth.User) rbac.Target {
	return rbac.Target{OwnerID: u.ID, OwnerRole: u.Role}
}
