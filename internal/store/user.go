package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/identikit/apiserver/types"
)

// userColumns is the canonical select list for users rows.
const userColumns = `id, first_name, last_name, phone, username, email,
	password_hash, password_changed_at, is_active, last_login_at,
	created_at, updated_at, deleted_at`

// UserRepository handles persistence for users. All reads exclude
// soft-deleted rows. Returned rows include the password hash; callers must
// not let it cross the service boundary (the login path is the only one that
// needs it).
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UserUpdate describes a partial update. Nil fields are left untouched.
type UserUpdate struct {
	FirstName         *string
	LastName          *string
	Phone             *string
	Username          *string
	Email             *string
	PasswordHash      *string
	PasswordChangedAt *time.Time
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`, userColumns)
	return r.getOne(ctx, query, id)
}

// GetByIdentifier looks up a user by username or email, case-insensitively.
// At most one row can match; ambiguity is ruled out by the unique indexes on
// LOWER(username) and LOWER(email).
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (types.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE (LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1))
		  AND deleted_at IS NULL`, userColumns)
	return r.getOne(ctx, query, identifier)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO users (
			first_name, last_name, phone, username, email,
			password_hash, password_changed_at, is_active,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`, userColumns)
	row := r.db.QueryRowContext(
		ctx,
		query,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.PasswordChangedAt,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	created, err := scanUser(row)
	if err != nil {
		return types.User{}, translate(err)
	}
	return created, nil
}

// Update applies a partial update and returns the updated row. Soft-deleted
// rows cannot be updated.
func (r *UserRepository) Update(ctx context.Context, id int64, update UserUpdate) (types.User, error) {
	assignments := make([]string, 0, 8)
	args := make([]any, 0, 9)

	addAssignment := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.FirstName != nil {
		addAssignment("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		addAssignment("last_name", *update.LastName)
	}
	if update.Phone != nil {
		addAssignment("phone", *update.Phone)
	}
	if update.Username != nil {
		addAssignment("username", *update.Username)
	}
	if update.Email != nil {
		addAssignment("email", *update.Email)
	}
	if update.PasswordHash != nil {
		addAssignment("password_hash", *update.PasswordHash)
	}
	if update.PasswordChangedAt != nil {
		addAssignment("password_changed_at", *update.PasswordChangedAt)
	}
	addAssignment("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s`, strings.Join(assignments, ", "), len(args), userColumns)

	updated, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return types.User{}, translate(err)
	}
	return updated, nil
}

// RecordLogin stamps the most recent successful login.
func (r *UserRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	const query = `
		UPDATE users
		SET last_login_at = $1
		WHERE id = $2 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return translate(err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.PasswordChangedAt,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}
