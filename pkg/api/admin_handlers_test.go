package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
)

func TestAdminSettings(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin", auth.RoleAdmin)
	_, modToken := env.user("mod", auth.RoleModerator)

	rec := env.do(http.MethodGet, "/admin/settings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/admin/settings", modToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/admin/settings", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view forum.SettingsView
	decodeInto(t, rec, &view)
	assert.Equal(t, forum.SettingsView{AutoDeleteDays: 90, AutoDeleteEnabled: true}, view)

	rec = env.do(http.MethodPut, "/admin/settings/auto-delete-days", adminToken, map[string]int{"days": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeInto(t, rec, &view)
	assert.Equal(t, forum.SettingsView{AutoDeleteDays: 0, AutoDeleteEnabled: false}, view)
	assert.Equal(t, 0, env.settings.days)

	tests := []struct {
		name string
		body interface{}
	}{
		{"negative", map[string]int{"days": -1}},
		{"missing", map[string]int{}},
		{"not a number", map[string]string{"days": "ten"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPut, "/admin/settings/auto-delete-days", adminToken, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 0, env.settings.days)
}

func TestAdminSettings_Unconfigured(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Settings = nil })
	_, adminToken := env.user("admin", auth.RoleAdmin)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/admin/settings", adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		env.do(http.MethodPut, "/admin/settings/auto-delete-days", adminToken, map[string]int{"days": 7}).Code)
}

func TestAdminAudit(t *testing.T) {
	env := newTestEnv(t)
	adminID, adminToken := env.user("admin", auth.RoleAdmin)
	aliceID, _ := env.user("alice", auth.RoleUser)
	_, modToken := env.user("mod", auth.RoleModerator)

	env.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	require.Equal(t, http.StatusOK, env.do(http.MethodPut, userPath(aliceID, "ban"), modToken, nil).Code)
	require.Equal(t, http.StatusOK,
		env.do(http.MethodPut, "/admin/settings/auto-delete-days", adminToken, map[string]int{"days": 30}).Code)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/admin/audit", modToken, nil).Code)

	rec := env.do(http.MethodGet, "/admin/audit?event_type=auth.login_failed&event_type=user.ban", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res AuditResponse
	decodeInto(t, rec, &res)
	require.Len(t, res.Events, 2)
	assert.Equal(t, audit.EventTypeUserBan, res.Events[0].EventType)
	assert.Equal(t, audit.EventTypeAuthLoginFailed, res.Events[1].EventType)
	assert.Equal(t, "alice", res.Events[1].Username)
	assert.Equal(t, "192.0.2.10", res.Events[1].IPAddress)
	assert.Equal(t, 50, res.Limit)

	rec = env.do(http.MethodGet, "/admin/audit?user_id="+itoa(adminID)+"&limit=1000", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &res)
	assert.Equal(t, 500, res.Limit)
	for _, e := range res.Events {
		require.NotNil(t, e.UserID)
		assert.Equal(t, adminID, *e.UserID)
	}
	require.NotEmpty(t, res.Events)
	assert.Equal(t, audit.EventTypeSettingsChange, res.Events[0].EventType)

	rec = env.do(http.MethodGet, "/admin/audit?limit=abc", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAudit_Disabled(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin", auth.RoleAdmin)

	svc, err := forum.NewService(forum.Config{Store: env.store, Tokens: mustTokens(t)})
	require.NoError(t, err)
	server, err := NewServer(Options{Service: svc})
	require.NoError(t, err)

	// The token is signed with the same secret, so the second server accepts it
	req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}
