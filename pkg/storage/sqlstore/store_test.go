package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/storage"
)

func newTestStore(t testing.TB) *Store {
	t.Helper()
	cfg := storage.DefaultConfig()
	cfg.DSN = ":memory:"
	cm, err := storage.NewConnectionManager(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cm.Close() })

	require.NoError(t, storage.RunMigrations(context.Background(), cm.Primary(), cm.Driver(), nil))
	return NewFromManager(cm)
}

func seedUser(t testing.TB, s *Store, username string, role auth.Role) *auth.User {
	t.Helper()
	u := &auth.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         role,
	}
	id, err := s.CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.ID = id
	return u
}

func seedCategory(t testing.TB, s *Store, name string, order int) int64 {
	t.Helper()
	id, err := s.CreateCategory(context.Background(), &forum.Category{Name: name, DisplayOrder: order})
	require.NoError(t, err)
	return id
}

func seedTopic(t testing.TB, s *Store, categoryID, authorID int64, title string) (int64, int64) {
	t.Helper()
	topicID, postID, err := s.CreateTopic(context.Background(),
		&forum.Topic{CategoryID: categoryID, AuthorID: authorID, Title: title}, "opening post body")
	require.NoError(t, err)
	return topicID, postID
}

func TestNullTime_Scan(t *testing.T) {
	ref := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value interface{}
		valid bool
		want  time.Time
	}{
		{"nil", nil, false, time.Time{}},
		{"time", ref.In(time.FixedZone("x", 3600)), true, ref},
		{"sqlite text", "2026-03-01 12:30:00+00:00", true, ref},
		{"bytes", []byte("2026-03-01 12:30:00"), true, ref},
		{"zulu", "2026-03-01T12:30:00Z", true, ref},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nt nullTime
			require.NoError(t, nt.Scan(tt.value))
			assert.Equal(t, tt.valid, nt.Valid)
			if tt.valid {
				assert.True(t, tt.want.Equal(nt.Time), "got %s", nt.Time)
				require.NotNil(t, nt.ptr())
			} else {
				assert.Nil(t, nt.ptr())
			}
		})
	}

	var nt nullTime
	assert.Error(t, nt.Scan(42))
	assert.Error(t, nt.Scan("yesterday"))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("x", nil))

	nf := apperr.NotFound("topic")
	assert.Same(t, nf, classify("x", nf))

	err := classify("list topics", assert.AnError)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	assert.ErrorIs(t, err, assert.AnError)
}
