package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/koinonia/koinonia/internal/model"
)

const userColumns = "id, email, password_hash, first_name, last_name, phone, pco_person_id, created_at"

// CreateUser inserts a new user.
// A duplicate email yields ErrEmailExists and a duplicate pco_person_id
// yields ErrExternalIDExists.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, pco_person_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.PCOPersonID,
		user.CreatedAt,
	)
	if err != nil {
		return mapUserWriteError(err)
	}

	return nil
}

func mapUserWriteError(err error) error {
	if constraint, ok := constraintViolation(err, pgUniqueViolation); ok {
		switch constraint {
		case constraintUsersEmail:
			return ErrEmailExists
		case constraintUsersPCOPerson:
			return ErrExternalIDExists
		}
	}
	return fmt.Errorf("failed to create user: %w", err)
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by exact email match.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UpdateUserProfile writes the non-nil fields of update and returns the
// resulting row. An empty update returns the current row unchanged.
func (r *Repository) UpdateUserProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	if update.IsEmpty() {
		return r.GetUserByID(ctx, id)
	}

	query, args, err := buildProfileUpdate(r.builder, id, update)
	if err != nil {
		return nil, fmt.Errorf("build profile update: %w", err)
	}

	user, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

func buildProfileUpdate(b sq.StatementBuilderType, id string, update model.ProfileUpdate) (string, []any, error) {
	stmt := b.Update("users")
	if update.FirstName != nil {
		stmt = stmt.Set("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		stmt = stmt.Set("last_name", *update.LastName)
	}
	if update.Phone != nil {
		stmt = stmt.Set("phone", *update.Phone)
	}
	return stmt.
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumns).
		ToSql()
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.PCOPersonID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePasswordHash replaces a user's stored digest.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
