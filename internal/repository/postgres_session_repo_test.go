package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSessionRepo_Load_DecodesData(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions`)).
		WithArgs("sid").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "expires_at", "created_at"}).
			AddRow("sid", []byte(`{"user_id":"1","state":"ABC"}`), now.Add(time.Hour), now))

	rec, err := repo.Load(context.Background(), "sid")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "1", rec.Data["user_id"])
	assert.Equal(t, "ABC", rec.Data["state"])
}

func TestPostgresSessionRepo_Load_MissingReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions`)).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "expires_at", "created_at"}))

	rec, err := repo.Load(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPostgresSessionRepo_Save_Upserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (id) DO UPDATE`)).
		WithArgs("sid", []byte(`{"user_id":"1"}`), now.Add(time.Hour), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), &model.SessionRecord{
		ID:        "sid",
		Data:      map[string]string{"user_id": "1"},
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	})
	require.NoError(t, err)
}

func TestPostgresSessionRepo_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = $1`)).
		WithArgs("sid").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "sid"))
}
