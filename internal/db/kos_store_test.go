package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
)

var kosColumns = []string{"id", "post_id", "name", "deleted_at", "deleted_by", "created_at"}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *lifecycle.Engine) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, lifecycle.NewEngine(NewKosStore(mock), zap.NewNop())
}

func TestKosStore_ArchiveInOneTransaction(t *testing.T) {
	mock, engine := newMockStore(t)
	created := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM kos").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(kosColumns).AddRow(int64(7), int64(70), "Kos Melati", nil, nil, created))
	mock.ExpectExec("UPDATE posts SET deleted_at").
		WithArgs(int64(70), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE kos SET deleted_at").
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := engine.Archive(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.ID)
	assert.Equal(t, int64(70), res.PostID)
	require.NotNil(t, res.DeletedBy)
	assert.Equal(t, int64(1), *res.DeletedBy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKosStore_PermanentDeleteActiveRollsBack(t *testing.T) {
	mock, engine := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM kos").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(kosColumns).AddRow(int64(3), int64(30), "Kos Mawar", nil, nil, time.Now()))
	mock.ExpectRollback()

	_, err := engine.PermanentDelete(context.Background(), 3, 1)
	require.Error(t, err)
	assert.Equal(t, lifecycle.KindNotFound, lifecycle.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKosStore_PermanentDeletePostFirst(t *testing.T) {
	mock, engine := newMockStore(t)
	archivedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM kos").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(kosColumns).AddRow(int64(4), int64(40), "Kos Anggrek", archivedAt, int64(1), time.Now()))
	mock.ExpectExec("DELETE FROM posts").
		WithArgs(int64(40)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM kos").
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	_, err := engine.PermanentDelete(context.Background(), 4, 1)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKosStore_SecondStepFailureRollsBack(t *testing.T) {
	mock, engine := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM kos").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(kosColumns).AddRow(int64(4), int64(40), "Kos Anggrek", time.Now(), int64(1), time.Now()))
	mock.ExpectExec("DELETE FROM posts").
		WithArgs(int64(40)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM kos").
		WithArgs(int64(4)).
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	_, err := engine.PermanentDelete(context.Background(), 4, 1)
	require.Error(t, err)
	assert.Equal(t, lifecycle.KindInternal, lifecycle.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKosStore_MissingKos(t *testing.T) {
	mock, engine := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM kos").
		WithArgs(int64(999)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := engine.Restore(context.Background(), 999, 1)
	assert.Equal(t, lifecycle.KindNotFound, lifecycle.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKosStore_NoRowsAffectedIsNoRecord(t *testing.T) {
	mock, engine := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM kos").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(kosColumns).AddRow(int64(7), int64(70), "Kos Melati", nil, nil, time.Now()))
	mock.ExpectExec("UPDATE posts SET is_featured").
		WithArgs(int64(70), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := engine.SetFeatured(context.Background(), 7, true, 1)
	assert.Equal(t, lifecycle.KindNotFound, lifecycle.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKosStore_ArchivedKosIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("WHERE deleted_at IS NOT NULL").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)).AddRow(int64(5)))

	ids, err := NewKosStore(mock).ArchivedKosIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5}, ids)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKosStore_ListKos(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	archivedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("JOIN posts").
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "post_id", "name", "deleted_at", "deleted_by", "created_at",
			"user_id", "title", "is_featured", "view_count",
			"deleted_at", "deleted_by", "created_at",
		}).AddRow(int64(2), int64(20), "Kos Dahlia", archivedAt, int64(1), time.Now(),
			int64(42), "Kamar AC", true, int64(9), archivedAt, int64(1), time.Now()))

	list, err := NewKosStore(mock).ListKos(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Archived())
	require.NotNil(t, list[0].Post)
	assert.Equal(t, int64(9), list[0].Post.ViewCount)
	assert.Equal(t, archivedAt, *list[0].Post.DeletedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKosStore_ListKos_PostMarkReadIndependently(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// пара после частичного сбоя восстановления: kos в архиве, post уже активен
	archivedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	postCreated := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("p.deleted_at, p.deleted_by").
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "post_id", "name", "deleted_at", "deleted_by", "created_at",
			"user_id", "title", "is_featured", "view_count",
			"deleted_at", "deleted_by", "created_at",
		}).AddRow(int64(3), int64(30), "Kos Kenanga", archivedAt, int64(7), time.Now(),
			int64(42), "Kamar mandi dalam", false, int64(0), nil, nil, postCreated))

	list, err := NewKosStore(mock).ListKos(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Archived())
	require.NotNil(t, list[0].Post)
	assert.Nil(t, list[0].Post.DeletedAt)
	assert.Nil(t, list[0].Post.DeletedBy)
	assert.Equal(t, postCreated, list[0].Post.CreatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}
