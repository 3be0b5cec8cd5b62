package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"
	"github.com/Bcardoso2/mycar/internal/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = "id, uuid, name, email, password_hash, phone, role, active, created_at"

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.UUID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Phone, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		"INSERT INTO users (uuid, name, email, password_hash, phone, role) VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+userColumns,
		u.UUID, u.Name, u.Email, u.PasswordHash, u.Phone, u.Role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create user %s: %w", u.Email, auctionerrors.ErrEmailTaken)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, auctionerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by id
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, auctionerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the name and phone of an active user; nil keeps the current value
func (db *DB) UpdateProfile(ctx context.Context, id int64, name, phone *string) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		"UPDATE users SET name = COALESCE($1, name), phone = COALESCE($2, phone) "+
			"WHERE id = $3 AND active RETURNING "+userColumns,
		name, phone, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, auctionerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdatePasswordHash replaces a user's password hash
func (db *DB) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := db.Pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2 AND active", hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, auctionerrors.ErrNotFound)
	}
	return nil
}
