package forum_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
)

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "admin", auth.RoleAdmin)
	member := h.user(t, "member", auth.RoleUser)
	created := h.topic(t, admin, h.category(t, admin, "General"), "Followed topic")

	require.NoError(t, h.svc.Subscribe(ctx, member, created.TopicID))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(h.svc.Subscribe(ctx, member, created.TopicID)))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(h.svc.Subscribe(ctx, member, 999)))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(h.svc.Subscribe(ctx, nil, created.TopicID)))

	banned := *member
	banned.Status = auth.StatusBanned
	assert.Equal(t, apperr.CodeAccountBanned, apperr.CodeOf(h.svc.Subscribe(ctx, &banned, created.TopicID)))

	require.NoError(t, h.svc.Unsubscribe(ctx, member, created.TopicID))
	err := h.svc.Unsubscribe(ctx, member, created.TopicID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreatePost_NotifiesSubscribers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "admin", auth.RoleAdmin)
	alice := h.user(t, "alice", auth.RoleUser)
	bob := h.user(t, "bob", auth.RoleUser)
	created := h.topic(t, alice, h.category(t, admin, "General"), "Weekend plans")

	require.NoError(t, h.svc.Subscribe(ctx, alice, created.TopicID))
	require.NoError(t, h.svc.Subscribe(ctx, bob, created.TopicID))

	_, err := h.svc.CreatePost(ctx, bob, forum.PostInput{TopicID: created.TopicID, Content: "Count me in"})
	require.NoError(t, err)

	inbox, err := h.svc.Notifications(ctx, alice, false)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, int64(1), inbox.Unread)
	n := inbox.Notifications[0]
	assert.Equal(t, forum.NotificationNewReply, n.Type)
	assert.Equal(t, "New reply in topic: Weekend plans", n.Message)
	require.NotNil(t, n.TopicID)
	assert.Equal(t, created.TopicID, *n.TopicID)

	// Nobody is told about their own reply
	inbox, err = h.svc.Notifications(ctx, bob, false)
	require.NoError(t, err)
	assert.Empty(t, inbox.Notifications)
	assert.Zero(t, inbox.Unread)
}

func TestNotifications_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "admin", auth.RoleAdmin)
	alice := h.user(t, "alice", auth.RoleUser)
	bob := h.user(t, "bob", auth.RoleUser)
	created := h.topic(t, bob, h.category(t, admin, "General"), "Private replies")
	require.NoError(t, h.svc.Subscribe(ctx, alice, created.TopicID))
	for _, content := range []string{"one", "two"} {
		_, err := h.svc.CreatePost(ctx, bob, forum.PostInput{TopicID: created.TopicID, Content: content})
		require.NoError(t, err)
	}

	inbox, err := h.svc.Notifications(ctx, alice, false)
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 2)
	id := inbox.Notifications[0].ID

	for _, other := range []*auth.Actor{bob, admin} {
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(h.svc.MarkNotificationRead(ctx, other, id)), other.Username)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(h.svc.DeleteNotification(ctx, other, id)), other.Username)
	}
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(h.svc.MarkNotificationRead(ctx, nil, id)))
	_, err = h.svc.Notifications(ctx, nil, false)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	err = h.svc.MarkNotificationRead(ctx, alice, 999)
	require.Error(t, err)
	assert.Equal(t, "notification not found", err.Error())

	require.NoError(t, h.svc.MarkNotificationRead(ctx, alice, id))
	unread, err := h.svc.Notifications(ctx, alice, true)
	require.NoError(t, err)
	require.Len(t, unread.Notifications, 1)
	assert.Equal(t, int64(1), unread.Unread)

	n, err := h.svc.MarkAllNotificationsRead(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, h.svc.DeleteNotification(ctx, alice, id))
	inbox, err = h.svc.Notifications(ctx, alice, false)
	require.NoError(t, err)
	assert.Len(t, inbox.Notifications, 1)
	assert.Zero(t, inbox.Unread)

	// Bans do not close the inbox
	banned := *alice
	banned.Status = auth.StatusBanned
	_, err = h.svc.Notifications(ctx, &banned, false)
	assert.NoError(t, err)
}

func TestPruneNotifications(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "admin", auth.RoleAdmin)
	alice := h.user(t, "alice", auth.RoleUser)
	created := h.topic(t, admin, h.category(t, admin, "General"), "Announcements")
	require.NoError(t, h.svc.Subscribe(ctx, alice, created.TopicID))
	_, err := h.svc.CreatePost(ctx, admin, forum.PostInput{TopicID: created.TopicID, Content: "Read me"})
	require.NoError(t, err)
	_, err = h.svc.MarkAllNotificationsRead(ctx, alice)
	require.NoError(t, err)

	_, err = h.svc.PruneNotifications(ctx, time.Time{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	n, err := h.svc.PruneNotifications(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
