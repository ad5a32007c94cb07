package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/middleware"
	"github.com/platinummonkey/forum/pkg/observability"
)

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(Options{})
	assert.ErrorContains(t, err, "forum service is required")
}

func TestServer_RouteMatching(t *testing.T) {
	env := newTestEnv(t)
	router := env.server.Router()

	tests := []struct {
		method string
		path   string
	}{
		{"POST", "/auth/register"},
		{"POST", "/auth/login"},
		{"GET", "/auth/me"},
		{"GET", "/categories"},
		{"POST", "/categories"},
		{"GET", "/categories/1"},
		{"PUT", "/categories/1"},
		{"DELETE", "/categories/1"},
		{"GET", "/topics"},
		{"POST", "/topics"},
		{"GET", "/topics/1"},
		{"PUT", "/topics/1"},
		{"DELETE", "/topics/1"},
		{"PATCH", "/topics/1/pin"},
		{"PATCH", "/topics/1/lock"},
		{"POST", "/posts"},
		{"PUT", "/posts/1"},
		{"DELETE", "/posts/1"},
		{"GET", "/users"},
		{"GET", "/users/1"},
		{"PUT", "/users/1"},
		{"DELETE", "/users/1"},
		{"PUT", "/users/1/ban"},
		{"PUT", "/users/1/unban"},
		{"PUT", "/users/1/role"},
		{"GET", "/admin/settings"},
		{"PUT", "/admin/settings/auto-delete-days"},
		{"GET", "/admin/audit"},
		{"GET", "/notifications"},
		{"GET", "/notifications/unread"},
		{"PUT", "/notifications/read-all"},
		{"PUT", "/notifications/1/read"},
		{"DELETE", "/notifications/1"},
		{"POST", "/notifications/subscribe/1"},
		{"DELETE", "/notifications/subscribe/1"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			var match mux.RouteMatch
			assert.True(t, router.Match(req, &match), "route should match")
			assert.NoError(t, match.MatchErr)
		})
	}
}

func TestServer_NotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decode(t, rec)["error"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(http.MethodPatch, "/categories", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_RequestIDHonoured(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServer_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	env := newTestEnv(t, func(o *Options) { o.Metrics = metrics })

	env.do(http.MethodGet, "/categories", "", nil)
	env.do(http.MethodGet, "/topics/999", "", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/categories", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/topics/{id}", "404")))
}

func TestServer_AuthRateLimit(t *testing.T) {
	clientLimiter := func(requests int) middleware.Limiter {
		l, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			Requests: requests,
			Window:   time.Minute,
			Message:  "too many authentication attempts, please try again later",
		}, 100)
		require.NoError(t, err)
		return l
	}
	env := newTestEnv(t, func(o *Options) {
		o.AuthLimiter = clientLimiter(2)
		o.APILimiter = clientLimiter(100)
	})

	body := map[string]string{"username": "nobody", "password": "wrong"}
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/auth/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/auth/login", "", body).Code)

	rec := env.do(http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many authentication attempts, please try again later", decode(t, rec)["error"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	// The auth budget does not apply outside /auth
	rec = env.do(http.MethodGet, "/categories", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
}

func TestServer_CORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.CORSOrigins = []string{"https://forum.example.com"} })

	req := httptest.NewRequest(http.MethodOptions, "/topics", nil)
	req.Header.Set("Origin", "https://forum.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://forum.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.MaxBodyBytes = 32 })

	rec := env.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_StaleTokenOnOptionalRoute(t *testing.T) {
	env := newTestEnv(t)
	id, token := env.user("alice", auth.RoleUser)
	bobID, _ := env.user("bob", auth.RoleUser)

	require.NoError(t, env.svc.DeleteUser(context.Background(), &auth.Actor{ID: 999, Role: auth.RoleAdmin}, id))

	// A token for a deleted account reads public profiles anonymously
	rec := env.do(http.MethodGet, fmt.Sprintf("/users/%d", bobID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "email")

	rec = env.do(http.MethodPost, "/topics", token, forum.TopicInput{Title: "Hello World!", Content: "This is the body.", CategoryID: 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_or_expired_token", decode(t, rec)["code"])
}
