package sections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/migrations"
	"github.com/dmitrijs2005/notekeeper/internal/models"
)

// OpenSQLite opens (or creates) the SQLite database at dsn and applies the
// embedded migrations.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "sqlite"); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// SQLiteRepository implements Repository on a SQLite database. Per-owner id
// allocation goes through the section_counters row, whose row lock
// serializes concurrent creates for the same owner.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, ownerID int64, title, content string) (*models.Section, error) {
	now := time.Now().UTC()
	sec := &models.Section{OwnerID: ownerID, Title: title, Content: content, CreatedAt: now, UpdatedAt: now}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `INSERT INTO section_counters (owner_id, next_id) VALUES (?, 2)
			ON CONFLICT(owner_id) DO UPDATE SET next_id = section_counters.next_id + 1
			RETURNING next_id - 1`
		if err := tx.QueryRowContext(ctx, query, ownerID).Scan(&sec.ID); err != nil {
			return fmt.Errorf("allocate id: %w", err)
		}

		query = `INSERT INTO sections (owner_id, id, title, content, favorite, deleted, created_at, updated_at)
			VALUES (?, ?, ?, ?, 0, 0, ?, ?)`
		if _, err := tx.ExecContext(ctx, query,
			ownerID, sec.ID, title, content, now, now); err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	return sec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, ownerID int64, includeDeleted bool) ([]models.Section, error) {
	query := `SELECT owner_id, id, title, content, favorite, deleted, created_at, updated_at
		FROM sections WHERE owner_id = ? AND (deleted = 0 OR ?) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, ownerID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("%w: select sections: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []models.Section
	for rows.Next() {
		var sec models.Section
		if err := rows.Scan(&sec.OwnerID, &sec.ID, &sec.Title, &sec.Content,
			&sec.Favorite, &sec.Deleted, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan section: %v", common.ErrStorage, err)
		}
		result = append(result, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, ownerID, id int64) (*models.Section, error) {
	query := `SELECT owner_id, id, title, content, favorite, deleted, created_at, updated_at
		FROM sections WHERE owner_id = ? AND id = ?`
	return scanSection(r.db.QueryRowContext(ctx, query, ownerID, id))
}

func (r *SQLiteRepository) Update(ctx context.Context, ownerID, id int64, newTitle, newContent *string) (*models.Section, error) {
	query := `UPDATE sections
		SET title = COALESCE(?, title), content = COALESCE(?, content), updated_at = ?
		WHERE owner_id = ? AND id = ?
		RETURNING owner_id, id, title, content, favorite, deleted, created_at, updated_at`
	return scanSection(r.db.QueryRowContext(ctx, query,
		newTitle, newContent, time.Now().UTC(), ownerID, id))
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, ownerID, id int64) error {
	query := `UPDATE sections SET deleted = 1, updated_at = ? WHERE owner_id = ? AND id = ?`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), ownerID, id)
	if err != nil {
		return fmt.Errorf("%w: soft delete: %v", common.ErrStorage, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrStorage, err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ToggleFavorite(ctx context.Context, ownerID, id int64) (*models.Section, error) {
	query := `UPDATE sections SET favorite = NOT favorite, updated_at = ?
		WHERE owner_id = ? AND id = ?
		RETURNING owner_id, id, title, content, favorite, deleted, created_at, updated_at`
	return scanSection(r.db.QueryRowContext(ctx, query, time.Now().UTC(), ownerID, id))
}

func scanSection(row *sql.Row) (*models.Section, error) {
	sec := &models.Section{}
	err := row.Scan(&sec.OwnerID, &sec.ID, &sec.Title, &sec.Content,
		&sec.Favorite, &sec.Deleted, &sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan section: %v", common.ErrStorage, err)
	}
	return sec, nil
}
