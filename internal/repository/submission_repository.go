package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"loved-api/internal/database"
	"loved-api/internal/models"
)

// SubmissionRepository handles submission database operations
type SubmissionRepository struct {
	db database.Querier
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db database.Querier) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *SubmissionRepository) WithTx(tx *sql.Tx) *SubmissionRepository {
	return &SubmissionRepository{db: tx}
}

// DeleteOpen removes every open submission of a user for a beatmapset and
// game mode, returning the removed IDs in ascending order
func (r *SubmissionRepository) DeleteOpen(ctx context.Context, beatmapsetID int64, mode models.GameMode, submitterID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		DELETE FROM submissions
		WHERE beatmapset_id = $1 AND game_mode = $2 AND submitter_id = $3 AND reason IS NULL
		RETURNING id
	`, beatmapsetID, mode, submitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete open submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan submission id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to delete open submissions: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}
