package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Record is a whitelisted student entry, uniquely keyed by normalized email.
type Record struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// pgUniqueViolation is the Postgres error code for unique constraint conflicts.
const pgUniqueViolation = "23505"

// Repository persists whitelist records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns all records, most recently created first.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, created_at, updated_at
		FROM allowed_students
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Insert writes a new record. The email must already be normalized.
func (r *Repository) Insert(ctx context.Context, email string) (Record, error) {
	rec := Record{ID: uuid.NewString(), Email: email}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO allowed_students (id, email)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`, rec.ID, rec.Email)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
		}
		return Record{}, err
	}
	return rec, nil
}

// Delete removes a record by email. Deleting an absent email is not an error.
func (r *Repository) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM allowed_students WHERE email = $1`, email)
	return err
}

// UpdateEmail rewrites a record's email. Both emails must already be normalized.
func (r *Repository) UpdateEmail(ctx context.Context, oldEmail, newEmail string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE allowed_students
		SET email = $2, updated_at = NOW()
		WHERE email = $1
		RETURNING id, email, created_at, updated_at
	`, oldEmail, newEmail)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.Email, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, oldEmail)
		}
		if isUniqueViolation(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, newEmail)
		}
		return Record{}, err
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
