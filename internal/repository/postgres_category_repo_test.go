package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresCategoryRepo_List_OrderedByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCategoryRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name FROM categories ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Dog").
			AddRow(int64(2), "Cat"))

	categories, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Dog", categories[0].Name)
	assert.Equal(t, "Cat", categories[1].Name)
}

func TestPostgresCategoryRepo_FindByName_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCategoryRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM categories WHERE name = $1`)).
		WithArgs("Bird").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	c, err := repo.FindByName(context.Background(), "Bird")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestPostgresCategoryRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCategoryRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO categories (name) VALUES ($1) RETURNING id`)).
		WithArgs("Dog").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	c := &model.Category{Name: "Dog"}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(3), c.ID)
}
