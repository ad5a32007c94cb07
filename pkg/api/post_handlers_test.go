package api

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
)

func postPath(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10)
}

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin", auth.RoleAdmin)
	_, aliceToken := env.user("alice", auth.RoleUser)
	_, bobToken := env.user("bob", auth.RoleUser)
	categoryID := env.category(adminToken, "General")
	created := env.topic(aliceToken, categoryID, "Hello World!")

	rec := env.do(http.MethodPost, "/posts", bobToken, map[string]interface{}{
		"topic_id": created.TopicID,
		"content":  "Welcome aboard",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reply PostResponse
	decodeInto(t, rec, &reply)
	assert.Equal(t, "Post created successfully", reply.Message)
	require.Positive(t, reply.PostID)
	assert.Equal(t, "bob", reply.Post.AuthorUsername)
	assert.False(t, reply.Post.IsFirstPost)

	rec = env.do(http.MethodPut, postPath(reply.PostID), aliceToken, map[string]string{"content": "Rewritten"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPut, postPath(reply.PostID), bobToken, map[string]string{"content": "Welcome aboard, alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated PostResponse
	decodeInto(t, rec, &updated)
	assert.Equal(t, "Post updated", updated.Message)
	assert.Equal(t, "Welcome aboard, alice", updated.Post.Content)

	// The topic body is edited through its first post
	rec = env.do(http.MethodPut, postPath(created.PostID), aliceToken, map[string]string{"content": "A better opening post."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodDelete, postPath(created.PostID), adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "first_post", decode(t, rec)["code"])

	rec = env.do(http.MethodDelete, postPath(reply.PostID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post deleted", decode(t, rec)["message"])

	rec = env.do(http.MethodGet, topicPath(created.TopicID), "", nil)
	var detail forum.TopicDetail
	decodeInto(t, rec, &detail)
	require.Len(t, detail.Posts, 1)
	assert.Equal(t, "A better opening post.", detail.Posts[0].Content)
}

func TestPost_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("admin", auth.RoleAdmin)
	_, aliceToken := env.user("alice", auth.RoleUser)
	bobID, bobToken := env.user("bob", auth.RoleUser)
	_, modToken := env.user("mod", auth.RoleModerator)
	categoryID := env.category(adminToken, "General")
	created := env.topic(aliceToken, categoryID, "Hello World!")

	require.Equal(t, http.StatusOK, env.do(http.MethodPut, userPath(bobID, "ban"), modToken, nil).Code)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"anonymous reply", http.MethodPost, "/posts", "", map[string]interface{}{"topic_id": created.TopicID, "content": "hi"}, http.StatusUnauthorized, "missing_token"},
		{"empty content", http.MethodPost, "/posts", aliceToken, map[string]interface{}{"topic_id": created.TopicID, "content": "   "}, http.StatusBadRequest, ""},
		{"missing topic", http.MethodPost, "/posts", aliceToken, map[string]interface{}{"topic_id": 999, "content": "hi"}, http.StatusNotFound, ""},
		{"banned reply", http.MethodPost, "/posts", bobToken, map[string]interface{}{"topic_id": created.TopicID, "content": "hi"}, http.StatusForbidden, "account_banned"},
		{"update missing", http.MethodPut, "/posts/999", aliceToken, map[string]string{"content": "hi"}, http.StatusNotFound, ""},
		{"delete missing", http.MethodDelete, "/posts/999", adminToken, nil, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode(t, rec)["code"])
			}
		})
	}
}
