package middleware

import (
	"context"
	"net/http"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/contextkeys"
	"github.com/platinummonkey/forum/pkg/httputil"
)

// SessionVerifier resolves a bearer token to the caller's identity.
// forum.Service implements it.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*auth.AuthContext, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	verifier SessionVerifier
	optional bool // If true, requests without a usable token continue anonymously
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier SessionVerifier, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := httputil.BearerToken(r)
		if token == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteAppError(w, r, apperr.MissingToken())
			return
		}

		authCtx, err := m.verifier.VerifySession(r.Context(), token)
		if err != nil {
			// Stale tokens must not break public pages
			if m.optional && apperr.IsKind(err, apperr.KindAuth) {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteAppError(w, r, err)
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		ctx = contextkeys.WithUserID(ctx, authCtx.Actor.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	authCtx, ok := r.Context().Value(contextkeys.AuthKey).(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// Actor returns the authenticated actor or nil for anonymous requests
func Actor(r *http.Request) *auth.Actor {
	if authCtx := GetAuthContext(r); authCtx != nil {
		return authCtx.Actor
	}
	return nil
}

// RequireRole creates middleware that checks for one of the given roles
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r)
			if authCtx == nil {
				httputil.WriteAppError(w, r, apperr.MissingToken())
				return
			}

			if !authCtx.HasRole(roles...) {
				httputil.WriteAppError(w, r, apperr.Forbidden(apperr.CodeNotAllowed, "insufficient role permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
