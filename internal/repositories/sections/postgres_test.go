package sections

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

func newPostgresRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func sectionRows(ownerID, id int64, title, content string, favorite, deleted bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"owner_id", "id", "title", "content", "favorite", "deleted", "created_at", "updated_at",
	}).AddRow(ownerID, id, title, content, favorite, deleted, now, now)
}

func TestPostgresCreate_AllocatesSequentialID(t *testing.T) {
	repo, mock, db := newPostgresRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+section_counters.*ON\s+CONFLICT.*RETURNING\s+next_id\s*-\s*1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(int64(1)))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+sections\s*\(owner_id,\s*id,\s*title,\s*content`).
		WithArgs(int64(1), int64(1), "Notes", "hello", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sec, err := repo.Create(context.Background(), 1, "Notes", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sec.ID)
	assert.Equal(t, int64(1), sec.OwnerID)
	assert.Equal(t, "Notes", sec.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_DBErrorRollsBack(t *testing.T) {
	repo, mock, db := newPostgresRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT\s+INTO\s+section_counters`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), 1, "Notes", "hello")
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList_ExcludesDeletedByDefault(t *testing.T) {
	repo, mock, db := newPostgresRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+owner_id.*FROM\s+sections\s+WHERE\s+owner_id\s*=\s*\$1.*ORDER\s+BY\s+id`).
		WithArgs(int64(1), false).
		WillReturnRows(sectionRows(1, 1, "Notes", "hello", false, false))

	list, err := repo.List(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Notes", list[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet_NotFound(t *testing.T) {
	repo, mock, db := newPostgresRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+owner_id.*FROM\s+sections\s+WHERE\s+owner_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).
		WithArgs(int64(1), int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 1, 99)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_CoalescesNilFields(t *testing.T) {
	repo, mock, db := newPostgresRepoWithMock(t)
	defer db.Close()

	title := "Renamed"
	mock.ExpectQuery(`(?s)UPDATE\s+sections\s+SET\s+title\s*=\s*COALESCE\(\$1,\s*title\).*RETURNING`).
		WithArgs("Renamed", nil, sqlmock.AnyArg(), int64(1), int64(1)).
		WillReturnRows(sectionRows(1, 1, "Renamed", "hello", false, false))

	sec, err := repo.Update(context.Background(), 1, 1, &title, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", sec.Title)
	assert.Equal(t, "hello", sec.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSoftDelete(t *testing.T) {
	repo, mock, db := newPostgresRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+sections\s+SET\s+deleted\s*=\s*TRUE`).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), 1, 1))

	mock.ExpectExec(`UPDATE\s+sections\s+SET\s+deleted\s*=\s*TRUE`).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), 1, 99)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToggleFavorite(t *testing.T) {
	repo, mock, db := newPostgresRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)UPDATE\s+sections\s+SET\s+favorite\s*=\s*NOT\s+favorite.*RETURNING`).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(1)).
		WillReturnRows(sectionRows(1, 1, "Notes", "hello", true, false))

	sec, err := repo.ToggleFavorite(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, sec.Favorite)
	assert.NoError(t, mock.ExpectationsWereMet())
}
