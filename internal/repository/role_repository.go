package repository

import (
	"context"
	"fmt"

	"loved-api/internal/database"
	"loved-api/internal/models"
)

// RoleRepository handles user role database operations
type RoleRepository struct {
	db database.Querier
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db database.Querier) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create grants a role
func (r *RoleRepository) Create(ctx context.Context, role *models.UserRole) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_roles (user_id, role, game_mode, alumni)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, role.UserID, role.Role, role.GameMode, role.Alumni).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", mapError(err))
	}
	return nil
}

// GetUserRoles retrieves all roles of a user, alumni included
func (r *RoleRepository) GetUserRoles(ctx context.Context, userID int64) ([]models.UserRole, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, role, game_mode, alumni
		FROM user_roles
		WHERE user_id = $1
		ORDER BY role, game_mode
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()

	var roles []models.UserRole
	for rows.Next() {
		var role models.UserRole
		if err := rows.Scan(&role.ID, &role.UserID, &role.Role, &role.GameMode, &role.Alumni); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
