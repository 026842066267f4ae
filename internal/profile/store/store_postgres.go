package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"atatek/internal/profile/models"
	"atatek/pkg/platform/sentinel"
	txcontext "atatek/pkg/platform/tx"
)

// ErrNotFound is returned when a user does not exist or is deleted.
var ErrNotFound = sentinel.ErrNotFound

const profileColumns = `id, first_name, last_name, middle_name, phone, role_id, page_id, is_verified`

// PostgresStore reads and updates rows of the users table. The table itself
// is created by the tree schema migration.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1 AND is_deleted = FALSE`
	p, err := scanProfile(txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateName(ctx context.Context, id int64, name models.NameUpdate, now time.Time) error {
	query := `UPDATE users SET first_name = $2, last_name = $3, middle_name = $4, updated_at = $5
		WHERE id = $1 AND is_deleted = FALSE`
	return s.execOne(ctx, "update user name", id, query, id, name.FirstName, name.LastName, name.MiddleName, now)
}

func (s *PostgresStore) AssignPage(ctx context.Context, id, pageID int64, now time.Time) error {
	query := `UPDATE users SET page_id = $2, updated_at = $3 WHERE id = $1 AND is_deleted = FALSE`
	return s.execOne(ctx, "assign page", id, query, id, pageID, now)
}

func (s *PostgresStore) MarkVerified(ctx context.Context, id int64, now time.Time) error {
	query := `UPDATE users SET is_verified = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`
	return s.execOne(ctx, "mark verified", id, query, id, now)
}

func (s *PostgresStore) execOne(ctx context.Context, op string, id int64, query string, args ...any) error {
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	var (
		p      models.Profile
		middle sql.NullString
		pageID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &middle, &p.Phone, &p.RoleID, &pageID, &p.IsVerified); err != nil {
		return nil, err
	}
	if middle.Valid {
		p.MiddleName = &middle.String
	}
	if pageID.Valid {
		p.PageID = &pageID.Int64
	}
	return &p, nil
}
