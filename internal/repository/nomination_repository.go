package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"loved-api/internal/database"
	"loved-api/internal/models"
)

// NominationRepository handles nomination database operations
type NominationRepository struct {
	db database.Querier
}

// NewNominationRepository creates a new nomination repository
func NewNominationRepository(db database.Querier) *NominationRepository {
	return &NominationRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *NominationRepository) WithTx(tx *sql.Tx) *NominationRepository {
	return &NominationRepository{db: tx}
}

const nominationColumns = `n.id, n.round_id, n.game_mode, n.beatmapset_id, n.parent_id, n."order", n.description,
	n.description_author_id, n.description_state, n.metadata_state, n.moderator_state, n.overwrite_artist, n.overwrite_title`

func scanNomination(s scanner) (*models.Nomination, error) {
	var n models.Nomination
	err := s.Scan(
		&n.ID,
		&n.RoundID,
		&n.GameMode,
		&n.BeatmapsetID,
		&n.ParentID,
		&n.Order,
		&n.Description,
		&n.DescriptionAuthorID,
		&n.DescriptionState,
		&n.MetadataState,
		&n.ModeratorState,
		&n.OverwriteArtist,
		&n.OverwriteTitle,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetByID retrieves a nomination by ID, returning nil when it does not exist
func (r *NominationRepository) GetByID(ctx context.Context, id int64) (*models.Nomination, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate retrieves and locks a nomination, returning nil when it does not exist
func (r *NominationRepository) GetForUpdate(ctx context.Context, id int64) (*models.Nomination, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *NominationRepository) get(ctx context.Context, id int64, lock string) (*models.Nomination, error) {
	n, err := scanNomination(r.db.QueryRowContext(ctx, `SELECT `+nominationColumns+` FROM nominations n WHERE n.id = $1 `+lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nomination: %w", err)
	}
	return n, nil
}

// ListForUpdate retrieves and locks every nomination in ids
func (r *NominationRepository) ListForUpdate(ctx context.Context, ids []int64) ([]models.Nomination, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+nominationColumns+`
		FROM nominations n
		WHERE n.id = ANY($1)
		ORDER BY n.id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list nominations: %w", err)
	}
	defer rows.Close()

	var nominations []models.Nomination
	for rows.Next() {
		n, err := scanNomination(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nomination: %w", err)
		}
		nominations = append(nominations, *n)
	}
	return nominations, rows.Err()
}

// ListByRound retrieves the nominations of a round in display order
func (r *NominationRepository) ListByRound(ctx context.Context, roundID int64) ([]models.Nomination, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+nominationColumns+`
		FROM nominations n
		WHERE n.round_id = $1
		ORDER BY n.game_mode, n."order", n.id
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nominations: %w", err)
	}
	defer rows.Close()

	var nominations []models.Nomination
	for rows.Next() {
		n, err := scanNomination(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nomination: %w", err)
		}
		nominations = append(nominations, *n)
	}
	return nominations, rows.Err()
}

// Exists reports whether the beatmapset is already nominated in the round and game mode
func (r *NominationRepository) Exists(ctx context.Context, roundID int64, mode models.GameMode, beatmapsetID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM nominations
			WHERE round_id = $1 AND game_mode = $2 AND beatmapset_id = $3
		)
	`, roundID, mode, beatmapsetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check nomination: %w", err)
	}
	return exists, nil
}

// NextOrder returns one past the highest order in the round and game mode, or 0 when it is empty
func (r *NominationRepository) NextOrder(ctx context.Context, roundID int64, mode models.GameMode) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX("order"), -1) + 1
		FROM nominations
		WHERE round_id = $1 AND game_mode = $2
	`, roundID, mode).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to get next nomination order: %w", err)
	}
	return next, nil
}

// Create inserts a nomination
func (r *NominationRepository) Create(ctx context.Context, n *models.Nomination) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO nominations (round_id, game_mode, beatmapset_id, parent_id, "order",
			description_state, metadata_state, moderator_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, n.RoundID, n.GameMode, n.BeatmapsetID, n.ParentID, n.Order,
		n.DescriptionState, n.MetadataState, n.ModeratorState).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to create nomination: %w", mapError(err))
	}
	return nil
}

// UpdateDescription overwrites the description fields
func (r *NominationRepository) UpdateDescription(ctx context.Context, n *models.Nomination) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE nominations
		SET description = $2, description_author_id = $3, description_state = $4
		WHERE id = $1
	`, n.ID, n.Description, n.DescriptionAuthorID, n.DescriptionState)
	if err != nil {
		return fmt.Errorf("failed to update description: %w", err)
	}
	return nil
}

// UpdateMetadata overwrites the metadata state and overwrites
func (r *NominationRepository) UpdateMetadata(ctx context.Context, n *models.Nomination) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE nominations
		SET metadata_state = $2, overwrite_artist = $3, overwrite_title = $4
		WHERE id = $1
	`, n.ID, n.MetadataState, n.OverwriteArtist, n.OverwriteTitle)
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	return nil
}

// UpdateModeratorState overwrites the moderation state
func (r *NominationRepository) UpdateModeratorState(ctx context.Context, id int64, state models.ModeratorState) error {
	_, err := r.db.ExecContext(ctx, `UPDATE nominations SET moderator_state = $2 WHERE id = $1`, id, state)
	if err != nil {
		return fmt.Errorf("failed to update moderator state: %w", err)
	}
	return nil
}

// UpdateOrder overwrites the display order
func (r *NominationRepository) UpdateOrder(ctx context.Context, id int64, order int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE nominations SET "order" = $2 WHERE id = $1`, id, order)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// ClearChildren detaches nominations that reference id as their parent
func (r *NominationRepository) ClearChildren(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE nominations SET parent_id = NULL WHERE parent_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to clear child nominations: %w", err)
	}
	return nil
}

// DeleteAssignees removes every assignee of a nomination
func (r *NominationRepository) DeleteAssignees(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM nomination_assignees WHERE nomination_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignees: %w", err)
	}
	return nil
}

// DeleteExcludedBeatmaps removes every excluded beatmap of a nomination
func (r *NominationRepository) DeleteExcludedBeatmaps(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM nomination_excluded_beatmaps WHERE nomination_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete excluded beatmaps: %w", err)
	}
	return nil
}

// DeleteNominators removes every nominator of a nomination
func (r *NominationRepository) DeleteNominators(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM nomination_nominators WHERE nomination_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete nominators: %w", err)
	}
	return nil
}

// Delete removes the nomination row. Related rows must be removed first.
func (r *NominationRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM nominations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete nomination: %w", err)
	}
	return nil
}

// ListNominatorIDs retrieves the user IDs nominating a nomination
func (r *NominationRepository) ListNominatorIDs(ctx context.Context, id int64) ([]int64, error) {
	return r.listIDs(ctx, `SELECT nominator_id FROM nomination_nominators WHERE nomination_id = $1 ORDER BY nominator_id`, id)
}

// ListAssigneeIDs retrieves the user IDs assigned to a nomination for one check
func (r *NominationRepository) ListAssigneeIDs(ctx context.Context, id int64, assigneeType models.AssigneeType) ([]int64, error) {
	return r.listIDs(ctx, `
		SELECT assignee_id FROM nomination_assignees
		WHERE nomination_id = $1 AND type = $2
		ORDER BY assignee_id
	`, id, assigneeType)
}

// ListExcludedBeatmapIDs retrieves the beatmap IDs excluded from a nomination
func (r *NominationRepository) ListExcludedBeatmapIDs(ctx context.Context, id int64) ([]int64, error) {
	return r.listIDs(ctx, `SELECT beatmap_id FROM nomination_excluded_beatmaps WHERE nomination_id = $1 ORDER BY beatmap_id`, id)
}

func (r *NominationRepository) listIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddNominator inserts one nominator
func (r *NominationRepository) AddNominator(ctx context.Context, id, nominatorID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO nomination_nominators (nomination_id, nominator_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, id, nominatorID)
	if err != nil {
		return fmt.Errorf("failed to add nominator: %w", err)
	}
	return nil
}

// ReplaceNominators replaces every nominator of a nomination
func (r *NominationRepository) ReplaceNominators(ctx context.Context, id int64, nominatorIDs []int64) error {
	if err := r.DeleteNominators(ctx, id); err != nil {
		return err
	}
	for _, nominatorID := range nominatorIDs {
		if err := r.AddNominator(ctx, id, nominatorID); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAssignees replaces the assignees of a nomination for one check
func (r *NominationRepository) ReplaceAssignees(ctx context.Context, id int64, assigneeType models.AssigneeType, assigneeIDs []int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM nomination_assignees
		WHERE nomination_id = $1 AND type = $2
	`, id, assigneeType)
	if err != nil {
		return fmt.Errorf("failed to delete assignees: %w", err)
	}

	for _, assigneeID := range assigneeIDs {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO nomination_assignees (nomination_id, assignee_id, type)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, id, assigneeID, assigneeType)
		if err != nil {
			return fmt.Errorf("failed to add assignee: %w", err)
		}
	}
	return nil
}

// ReplaceExcludedBeatmaps replaces the excluded beatmaps of a nomination
func (r *NominationRepository) ReplaceExcludedBeatmaps(ctx context.Context, id int64, beatmapIDs []int64) error {
	if err := r.DeleteExcludedBeatmaps(ctx, id); err != nil {
		return err
	}

	for _, beatmapID := range beatmapIDs {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO nomination_excluded_beatmaps (nomination_id, beatmap_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, beatmapID)
		if err != nil {
			return fmt.Errorf("failed to add excluded beatmap: %w", err)
		}
	}
	return nil
}

// ListIncompleteRoundBeatmapsetIDs retrieves the beatmapsets nominated in rounds that are not done
func (r *NominationRepository) ListIncompleteRoundBeatmapsetIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `
		SELECT DISTINCT n.beatmapset_id
		FROM nominations n
		JOIN rounds r ON r.id = n.round_id
		WHERE NOT r.done
		ORDER BY n.beatmapset_id
	`)
}
