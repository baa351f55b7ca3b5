package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"loved-api/internal/database"
	"loved-api/internal/models"
)

// UserRepository handles the local osu! user cache
type UserRepository struct {
	db database.Querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Querier) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `u.id, u.name, u.country, u.avatar_url, u.banned, u.api_fetched_at`

// scanUser scans userColumns, preceded by any extra destinations
func scanUser(s scanner, extra ...any) (*models.User, error) {
	var user models.User
	dest := append(extra, &user.ID, &user.Name, &user.Country, &user.AvatarURL, &user.Banned, &user.APIFetchedAt)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by ID, returning nil when it is not cached
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByName retrieves a user by case-insensitive name, returning nil when it is not cached
func (r *UserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE LOWER(u.name) = LOWER($1)
		ORDER BY u.api_fetched_at DESC
		LIMIT 1
	`, name)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}
	return user, nil
}

// GetByIDs retrieves every cached user in ids
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ANY($1) ORDER BY u.name`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// Upsert inserts or refreshes a cached user
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	if user.APIFetchedAt.IsZero() {
		user.APIFetchedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, country, avatar_url, banned, api_fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			avatar_url = EXCLUDED.avatar_url,
			banned = EXCLUDED.banned,
			api_fetched_at = EXCLUDED.api_fetched_at
	`, user.ID, user.Name, user.Country, user.AvatarURL, user.Banned, user.APIFetchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
