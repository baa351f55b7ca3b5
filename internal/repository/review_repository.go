package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loved-api/internal/database"
	"loved-api/internal/models"
)

// ReviewRepository handles review database operations
type ReviewRepository struct {
	db database.Querier
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db database.Querier) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *ReviewRepository) WithTx(tx *sql.Tx) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

const reviewColumns = `id, beatmapset_id, game_mode, reviewer_id, score, reason, reviewed_at`

func scanReview(s scanner) (*models.Review, error) {
	var review models.Review
	err := s.Scan(
		&review.ID,
		&review.BeatmapsetID,
		&review.GameMode,
		&review.ReviewerID,
		&review.Score,
		&review.Reason,
		&review.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// GetByID retrieves a review by ID, returning nil when it does not exist
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// GetByKeyForUpdate retrieves and locks the review of one reviewer for a beatmapset and game mode
func (r *ReviewRepository) GetByKeyForUpdate(ctx context.Context, beatmapsetID, reviewerID int64, mode models.GameMode) (*models.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE beatmapset_id = $1 AND reviewer_id = $2 AND game_mode = $3
		FOR UPDATE
	`, beatmapsetID, reviewerID, mode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// Create inserts a review
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reviews (beatmapset_id, game_mode, reviewer_id, score, reason, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, review.BeatmapsetID, review.GameMode, review.ReviewerID, review.Score, review.Reason, review.ReviewedAt).Scan(&review.ID)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", mapError(err))
	}
	return nil
}

// Update overwrites score, reason and review time
func (r *ReviewRepository) Update(ctx context.Context, id int64, score int, reason string, reviewedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reviews
		SET score = $2, reason = $3, reviewed_at = $4
		WHERE id = $1
	`, id, score, reason, reviewedAt)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return nil
}

// Delete removes a review
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

// ListByBeatmapset retrieves all reviews of a beatmapset
func (r *ReviewRepository) ListByBeatmapset(ctx context.Context, beatmapsetID int64) ([]models.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE beatmapset_id = $1
		ORDER BY game_mode, reviewed_at DESC
	`, beatmapsetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	return reviews, rows.Err()
}
