package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/auth"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res RegisterResponse
	decodeInto(t, rec, &res)
	assert.Equal(t, "User registered successfully", res.Message)
	assert.Positive(t, res.UserID)
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.user("alice", auth.RoleUser)

	tests := []struct {
		name      string
		body      interface{}
		wantField string
		wantError string
	}{
		{
			name:      "short username",
			body:      map[string]string{"username": "al", "email": "al@example.com", "password": "secret123"},
			wantField: "username",
		},
		{
			name:      "bad email",
			body:      map[string]string{"username": "bobby", "email": "not-an-email", "password": "secret123"},
			wantField: "email",
		},
		{
			name:      "short password",
			body:      map[string]string{"username": "bobby", "email": "bobby@example.com", "password": "12345"},
			wantField: "password",
		},
		{
			name:      "multibyte password over 72 bytes",
			body:      map[string]string{"username": "bobby", "email": "bobby@example.com", "password": strings.Repeat("密", 30)},
			wantField: "password",
		},
		{
			name:      "duplicate username",
			body:      map[string]string{"username": "alice", "email": "other@example.com", "password": "secret123"},
			wantError: "already exists",
		},
		{
			name:      "unknown field",
			body:      map[string]string{"username": "bobby", "email": "bobby@example.com", "password": "secret123", "role": "admin"},
			wantError: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode(t, rec)
			if tt.wantError != "" {
				assert.Contains(t, body["error"], tt.wantError)
			}
			if tt.wantField != "" {
				fields, ok := body["errors"].([]interface{})
				require.True(t, ok, "expected field errors: %v", body)
				assert.Equal(t, tt.wantField, fields[0].(map[string]interface{})["field"])
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.user("alice", auth.RoleModerator)

	rec := env.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res LoginResponse
	decodeInto(t, rec, &res)
	assert.Equal(t, "Login successful", res.Message)
	assert.NotEmpty(t, res.Token)
	assert.False(t, res.ExpiresAt.IsZero())
	assert.Equal(t, SessionUser{ID: id, Username: "alice", Role: auth.RoleModerator}, res.User)

	me := env.do(http.MethodGet, "/auth/me", res.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	body := decode(t, me)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotContains(t, body, "password_hash")
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.user("alice", auth.RoleUser)
	_, modToken := env.user("mod", auth.RoleModerator)

	rec := env.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode(t, rec)["code"])

	rec = env.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "ghost", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode(t, rec)["code"])

	rec = env.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": strings.Repeat("密", 30)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode(t, rec)["code"])

	rec = env.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusOK, env.do(http.MethodPut, userPath(id, "ban"), modToken, nil).Code)
	rec = env.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "account_banned", decode(t, rec)["code"])
}

func TestMe_TokenErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", decode(t, rec)["code"])

	rec = env.do(http.MethodGet, "/auth/me", "not.a.token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_or_expired_token", decode(t, rec)["code"])
}
