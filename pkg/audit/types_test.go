package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/platinummonkey/forum/pkg/contextkeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditEvent_ToJSON(t *testing.T) {
	userID := int64(12)
	event := &AuditEvent{
		EventID:      "id-1",
		EventType:    EventTypeUserRoleChange,
		Status:       EventStatusSuccess,
		UserID:       &userID,
		ResourceType: ResourceTypeUser,
		ResourceID:   "40",
		Changes:      Change("role", "user", "moderator"),
	}

	data, err := event.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "user.role_change", decoded["event_type"])
	assert.Equal(t, float64(12), decoded["user_id"])
	assert.NotContains(t, decoded, "metadata")

	changes := decoded["changes"].(map[string]interface{})
	assert.Equal(t, "moderator", changes["after"].(map[string]interface{})["role"])
}

func TestSearchFilter_Limit(t *testing.T) {
	assert.Equal(t, defaultSearchLimit, SearchFilter{}.PageSize())
	assert.Equal(t, 10, SearchFilter{Limit: 10}.PageSize())
	assert.Equal(t, maxSearchLimit, SearchFilter{Limit: 10000}.PageSize())
}

func TestBuildBaseEvent(t *testing.T) {
	ctx := contextkeys.WithRequestID(context.Background(), "req-9")
	ctx = contextkeys.WithClientInfo(ctx, contextkeys.ClientInfo{IPAddress: "192.0.2.1", UserAgent: "test"})

	event := buildBaseEvent(ctx, EventTypeCategoryCreate, EventStatusSuccess)
	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "req-9", event.RequestID)
	assert.Equal(t, "192.0.2.1", event.IPAddress)
	assert.Equal(t, "test", event.UserAgent)

	other := buildBaseEvent(context.Background(), EventTypeCategoryCreate, EventStatusSuccess)
	assert.NotEqual(t, event.EventID, other.EventID)
	assert.Empty(t, other.RequestID)
}
