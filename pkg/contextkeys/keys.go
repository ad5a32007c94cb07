// Package contextkeys provides centralized context key definitions
//
// All request-scoped context keys used across the forum are defined here so
// that producers and consumers agree on names and value types.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/forum/pkg/contextkeys"
//	ctx = contextkeys.WithAuth(ctx, authCtx)
//	authCtx, _ := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: protected API endpoints, rbac.PermissionMiddleware
	// Type: *auth.AuthContext
	AuthKey Key = "auth_context"

	// RequestIDKey contains request ID string (UUID unless supplied by the client)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail, events
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains the authenticated user ID
	// Set by: middleware.AuthMiddleware
	// Used by: Logger, audit trail
	// Type: int64
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability.WithLogger
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// ClientInfoKey contains the caller's IP address and user agent
	// Set by: httputil.RequestIDMiddleware
	// Used by: audit trail
	// Type: ClientInfo
	ClientInfoKey Key = "client_info"
)

// ClientInfo identifies the remote caller of a request
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithClientInfo adds caller information to the context
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ClientInfoKey, info)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) int64 {
	if userID, ok := ctx.Value(UserIDKey).(int64); ok {
		return userID
	}
	return 0
}

// GetClientInfo retrieves caller information from context
func GetClientInfo(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(ClientInfoKey).(ClientInfo)
	return info
}
