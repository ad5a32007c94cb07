package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/storage"
	"github.com/platinummonkey/forum/pkg/storage/sqlstore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memSettings struct {
	days int
}

func (m *memSettings) AutoDeleteDays() int { return m.days }

func (m *memSettings) SetAutoDeleteDays(days int) error {
	m.days = days
	return nil
}

type testEnv struct {
	t        *testing.T
	server   *Server
	svc      *forum.Service
	store    *sqlstore.Store
	settings *memSettings
}

type envOption func(*Options)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.DSN = ":memory:"
	cm, err := storage.NewConnectionManager(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cm.Close() })
	require.NoError(t, storage.RunMigrations(context.Background(), cm.Primary(), cm.Driver(), nil))

	auditLogger, err := audit.NewDBLogger(cm.Primary(), cm.Driver())
	require.NoError(t, err)

	tokens := mustTokens(t)
	store := sqlstore.NewFromManager(cm)
	svc, err := forum.NewService(forum.Config{
		Store:  store,
		Tokens: tokens,
		Hasher: auth.NewPasswordHasher(4),
		Audit:  auditLogger,
	})
	require.NoError(t, err)

	env := &testEnv{t: t, svc: svc, store: store, settings: &memSettings{days: 90}}

	options := Options{
		Service:  svc,
		Settings: env.settings,
		Logger:   observability.NewLogger(observability.ErrorLevel, io.Discard),
	}
	for _, opt := range opts {
		opt(&options)
	}

	env.server, err = NewServer(options)
	require.NoError(t, err)
	return env
}

// user registers an account with role and returns its id and a session token
func (e *testEnv) user(username string, role auth.Role) (int64, string) {
	e.t.Helper()
	ctx := context.Background()

	u, err := e.svc.Register(ctx, forum.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(e.t, err)
	if role != auth.RoleUser {
		require.NoError(e.t, e.store.SetUserRole(ctx, u.ID, role))
	}

	res, err := e.svc.Login(ctx, forum.LoginInput{Username: username, Password: "secret123"})
	require.NoError(e.t, err)
	return u.ID, res.Token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

// category creates a category as admin and returns its id
func (e *testEnv) category(adminToken, name string) int64 {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/categories", adminToken, map[string]interface{}{"name": name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var res CategoryResponse
	decodeInto(e.t, rec, &res)
	return res.CategoryID
}

// topic opens a topic and returns the created ids
func (e *testEnv) topic(token string, categoryID int64, title string) forum.CreatedTopic {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/topics", token, map[string]interface{}{
		"title":       title,
		"content":     "This is the body.",
		"category_id": categoryID,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var res TopicCreatedResponse
	decodeInto(e.t, rec, &res)
	return res.CreatedTopic
}

func userPath(id int64, action ...string) string {
	return resourcePath("/users", id, action...)
}

func topicPath(id int64, action ...string) string {
	return resourcePath("/topics", id, action...)
}

func resourcePath(prefix string, id int64, action ...string) string {
	p := prefix + "/" + strconv.FormatInt(id, 10)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

func mustTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tokens, err := auth.NewTokenManager([]byte(testSecret), time.Hour, "forum-test")
	require.NoError(t, err)
	return tokens
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
