package sections

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/migrations"
	"github.com/dmitrijs2005/notekeeper/internal/models"
)

// OpenPostgres connects to the PostgreSQL database at dsn (pgx driver) and
// applies the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	goose.SetBaseFS(migrations.Postgres)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "postgres"); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// PostgresRepository implements Repository on PostgreSQL. The counter-row
// update inside the create transaction takes a row lock, so id allocation
// for one owner is serialized while different owners proceed in parallel.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, ownerID int64, title, content string) (*models.Section, error) {
	now := time.Now().UTC()
	sec := &models.Section{OwnerID: ownerID, Title: title, Content: content, CreatedAt: now, UpdatedAt: now}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `INSERT INTO section_counters (owner_id, next_id) VALUES ($1, 2)
			ON CONFLICT (owner_id) DO UPDATE SET next_id = section_counters.next_id + 1
			RETURNING next_id - 1`
		if err := tx.QueryRowContext(ctx, query, ownerID).Scan(&sec.ID); err != nil {
			return fmt.Errorf("allocate id: %w", err)
		}

		query = `INSERT INTO sections (owner_id, id, title, content, favorite, deleted, created_at, updated_at)
			VALUES ($1, $2, $3, $4, FALSE, FALSE, $5, $6)`
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

func (r *PostgresRepository) List(ctx context.Context, ownerID int64, includeDeleted bool) ([]models.Section, error) {
	query := `SELECT owner_id, id, title, content, favorite, deleted, created_at, updated_at
		FROM sections WHERE owner_id = $1 AND (deleted = FALSE OR $2) ORDER BY id`
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

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id int64) (*models.Section, error) {
	query := `SELECT owner_id, id, title, content, favorite, deleted, created_at, updated_at
		FROM sections WHERE owner_id = $1 AND id = $2`
	return scanSection(r.db.QueryRowContext(ctx, query, ownerID, id))
}

func (r *PostgresRepository) Update(ctx context.Context, ownerID, id int64, newTitle, newContent *string) (*models.Section, error) {
	query := `UPDATE sections
		SET title = COALESCE($1, title), content = COALESCE($2, content), updated_at = $3
		WHERE owner_id = $4 AND id = $5
		RETURNING owner_id, id, title, content, favorite, deleted, created_at, updated_at`
	return scanSection(r.db.QueryRowContext(ctx, query,
		newTitle, newContent, time.Now().UTC(), ownerID, id))
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, ownerID, id int64) error {
	query := `UPDATE sections SET deleted = TRUE, updated_at = $1 WHERE owner_id = $2 AND id = $3`
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

func (r *PostgresRepository) ToggleFavorite(ctx context.Context, ownerID, id int64) (*models.Section, error) {
	query := `UPDATE sections SET favorite = NOT favorite, updated_at = $1
		WHERE owner_id = $2 AND id = $3
		RETURNING owner_id, id, title, content, favorite, deleted, created_at, updated_at`
	return scanSection(r.db.QueryRowContext(ctx, query, time.Now().UTC(), ownerID, id))
}
