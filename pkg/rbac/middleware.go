package rbac

import (
	"net/http"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/httputil"
	"github.com/platinummonkey/forum/pkg/middleware"
)

// PermissionMiddleware provides middleware for permission checking
type PermissionMiddleware struct {
	checker Checker
}

// NewPermissionMiddleware creates a new permission middleware
func NewPermissionMiddleware(checker Checker) *PermissionMiddleware {
	return &PermissionMiddleware{
		checker: checker,
	}
}

// RequirePermission creates middleware that requires perm on no particular target.
// It suits permissions that are granted with ScopeAny or not at all.
func (pm *PermissionMiddleware) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := middleware.GetAuthContext(r)
			if authCtx == nil || authCtx.Actor == nil {
				httputil.WriteAppError(w, r, apperr.MissingToken())
				return
			}

			if err := pm.checker.Check(authCtx.Actor, perm, Target{}).Err(); err != nil {
				httputil.WriteAppError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
