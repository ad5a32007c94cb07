// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// # Authentication
//
// AuthMiddleware reads the Bearer token from the Authorization header and resolves it
// through a SessionVerifier (forum.Service in production). The resulting AuthContext is
// stored in the request context; handlers read it back with GetAuthContext or Actor.
//
//	required := middleware.NewAuthMiddleware(svc, false)
//	optional := middleware.NewAuthMiddleware(svc, true)
//	router.Handle("/auth/me", required.Handler(meHandler))
//
// In optional mode a missing, invalid or expired token leaves the request anonymous.
// Storage failures still produce a 500.
//
// # Rate Limiting
//
// Two tiers apply per client IP. The api tier covers every route (100 requests per 15
// minutes by default) and the auth tier additionally covers /auth (5 per 15 minutes).
//
// RateLimiter keeps a token bucket per client in an LRU so memory stays bounded.
// DistributedRateLimiter counts fixed windows in Redis so several instances share one
// budget; when Redis is unreachable the middleware lets requests through.
//
//	limiter, _ := middleware.NewRateLimiter(middleware.AuthRateLimitConfig(), 0)
//	router.Use(middleware.NewRateLimitMiddleware(limiter, middleware.TierAuth, metrics).Handler)
//
// Every limited response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset (seconds); 429 responses add Retry-After.
package middleware
