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

// BeatmapsetRepository handles the local beatmapset cache
type BeatmapsetRepository struct {
	db database.Querier
}

// NewBeatmapsetRepository creates a new beatmapset repository
func NewBeatmapsetRepository(db database.Querier) *BeatmapsetRepository {
	return &BeatmapsetRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *BeatmapsetRepository) WithTx(tx *sql.Tx) *BeatmapsetRepository {
	return &BeatmapsetRepository{db: tx}
}

const beatmapColumns = `b.id, b.beatmapset_id, b.game_mode, b.version, b.star_rating, b.key_count, b.bpm, b.ranked_status, b.deleted_at`

func scanBeatmap(s scanner, extra ...any) (*models.Beatmap, error) {
	var beatmap models.Beatmap
	dest := append(extra,
		&beatmap.ID,
		&beatmap.BeatmapsetID,
		&beatmap.GameMode,
		&beatmap.Version,
		&beatmap.StarRating,
		&beatmap.KeyCount,
		&beatmap.BPM,
		&beatmap.RankedStatus,
		&beatmap.DeletedAt,
	)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return &beatmap, nil
}

const beatmapsetColumns = `bs.id, bs.artist, bs.title, bs.creator_id, bs.creator_name, bs.ranked_status, bs.submitted_at, bs.api_fetched_at`

func scanBeatmapset(s scanner, extra ...any) (*models.Beatmapset, error) {
	var set models.Beatmapset
	dest := append(extra,
		&set.ID,
		&set.Artist,
		&set.Title,
		&set.CreatorID,
		&set.CreatorName,
		&set.RankedStatus,
		&set.SubmittedAt,
		&set.APIFetchedAt,
	)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return &set, nil
}

// GetByID retrieves a cached beatmapset with its live beatmaps, returning nil when it is not cached
func (r *BeatmapsetRepository) GetByID(ctx context.Context, id int64) (*models.Beatmapset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+beatmapsetColumns+` FROM beatmapsets bs WHERE bs.id = $1`, id)
	set, err := scanBeatmapset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get beatmapset: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+beatmapColumns+`
		FROM beatmaps b
		WHERE b.beatmapset_id = $1 AND b.deleted_at IS NULL
		ORDER BY b.game_mode, b.star_rating
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get beatmaps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		beatmap, err := scanBeatmap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beatmap: %w", err)
		}
		set.Beatmaps = append(set.Beatmaps, *beatmap)
	}

	return set, rows.Err()
}

// Upsert stores a beatmapset and its beatmaps. Cached beatmaps missing from
// set.Beatmaps are marked deleted.
func (r *BeatmapsetRepository) Upsert(ctx context.Context, set *models.Beatmapset) error {
	if set.APIFetchedAt.IsZero() {
		set.APIFetchedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO beatmapsets (id, artist, title, creator_id, creator_name, ranked_status, submitted_at, api_fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			artist = EXCLUDED.artist,
			title = EXCLUDED.title,
			creator_id = EXCLUDED.creator_id,
			creator_name = EXCLUDED.creator_name,
			ranked_status = EXCLUDED.ranked_status,
			submitted_at = EXCLUDED.submitted_at,
			api_fetched_at = EXCLUDED.api_fetched_at
	`, set.ID, set.Artist, set.Title, set.CreatorID, set.CreatorName, set.RankedStatus, set.SubmittedAt, set.APIFetchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert beatmapset: %w", err)
	}

	ids := make([]int64, 0, len(set.Beatmaps))
	for _, beatmap := range set.Beatmaps {
		ids = append(ids, beatmap.ID)
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO beatmaps (id, beatmapset_id, game_mode, version, star_rating, key_count, bpm, ranked_status, deleted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
			ON CONFLICT (id) DO UPDATE SET
				beatmapset_id = EXCLUDED.beatmapset_id,
				game_mode = EXCLUDED.game_mode,
				version = EXCLUDED.version,
				star_rating = EXCLUDED.star_rating,
				key_count = EXCLUDED.key_count,
				bpm = EXCLUDED.bpm,
				ranked_status = EXCLUDED.ranked_status,
				deleted_at = NULL
		`, beatmap.ID, set.ID, beatmap.GameMode, beatmap.Version, beatmap.StarRating, beatmap.KeyCount, beatmap.BPM, beatmap.RankedStatus)
		if err != nil {
			return fmt.Errorf("failed to upsert beatmap %d: %w", beatmap.ID, err)
		}
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE beatmaps
		SET deleted_at = CURRENT_TIMESTAMP
		WHERE beatmapset_id = $1 AND deleted_at IS NULL AND NOT (id = ANY($2))
	`, set.ID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark deleted beatmaps: %w", err)
	}

	return nil
}

// CountBeatmapsInSet counts how many of beatmapIDs belong to the beatmapset
func (r *BeatmapsetRepository) CountBeatmapsInSet(ctx context.Context, beatmapsetID int64, beatmapIDs []int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM beatmaps
		WHERE beatmapset_id = $1 AND id = ANY($2)
	`, beatmapsetID, pq.Array(beatmapIDs)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count beatmaps: %w", err)
	}
	return count, nil
}

// ReplaceCreators replaces the creator credits of a beatmapset in one game mode
func (r *BeatmapsetRepository) ReplaceCreators(ctx context.Context, beatmapsetID int64, mode models.GameMode, creatorIDs []int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM beatmapset_creators
		WHERE beatmapset_id = $1 AND game_mode = $2
	`, beatmapsetID, mode)
	if err != nil {
		return fmt.Errorf("failed to delete creators: %w", err)
	}

	for _, creatorID := range creatorIDs {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO beatmapset_creators (beatmapset_id, creator_id, game_mode)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, beatmapsetID, creatorID, mode)
		if err != nil {
			return fmt.Errorf("failed to insert creator %d: %w", creatorID, err)
		}
	}

	return nil
}

// ListCreators retrieves the creator credits of a beatmapset in one game mode
func (r *BeatmapsetRepository) ListCreators(ctx context.Context, beatmapsetID int64, mode models.GameMode) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM beatmapset_creators c
		JOIN users u ON u.id = c.creator_id
		WHERE c.beatmapset_id = $1 AND c.game_mode = $2
		ORDER BY u.name
	`, beatmapsetID, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to get creators: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan creator: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}
