package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/storage"
)

func TestStore_CreateTopic_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db, storage.DriverPostgres)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO topics")).
		WithArgs(int64(1), int64(2), "Atomic topic", false, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err = s.CreateTopic(context.Background(), &forum.Topic{CategoryID: 1, AuthorID: 2, Title: "Atomic topic"}, "body")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreatePost_RollsBackWhenTopicMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db, storage.DriverPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE topics SET updated_at = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = s.CreatePost(context.Background(), &forum.Post{TopicID: 7, AuthorID: 1, Content: "hi"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db, storage.DriverPostgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM topics WHERE created_at < $1")).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.DeleteTopicsOlderThan(context.Background(), time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReaderRouting(t *testing.T) {
	primary, primaryMock, err := sqlmock.New()
	require.NoError(t, err)
	defer primary.Close()
	replica, replicaMock, err := sqlmock.New()
	require.NoError(t, err)
	defer replica.Close()

	s := New(primary, storage.DriverPostgres, WithReader(func() *sql.DB { return replica }))

	replicaMock.ExpectQuery("FROM users ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "password_hash", "role", "status", "bio", "avatar", "created_at", "updated_at",
		}).AddRow(1, "alice", "a@example.com", "h", "user", "active", "", "", time.Now(), time.Now()))

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)

	assert.NoError(t, replicaMock.ExpectationsWereMet())
	assert.NoError(t, primaryMock.ExpectationsWereMet())
}
