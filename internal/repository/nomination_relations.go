package repository

import (
	"context"
	"fmt"

	"loved-api/internal/models"
)

// NominationBeatmap is a live beatmap row joined to the nomination it belongs to
type NominationBeatmap struct {
	NominationID int64
	Beatmap      models.Beatmap
}

// NominationUser is a user row joined to a nomination relation
type NominationUser struct {
	NominationID int64
	Type         models.AssigneeType
	User         models.User
}

// NominationBeatmapset is a beatmapset row joined to the nomination that references it
type NominationBeatmapset struct {
	NominationID int64
	Beatmapset   models.Beatmapset
}

// NominationPoll is a poll matched to a nomination by round, game mode and beatmapset
type NominationPoll struct {
	NominationID int64
	Poll         models.Poll
}

// ListRoundBeatmaps retrieves the live beatmaps of every nomination in a round,
// restricted to each nomination's game mode and flagged when excluded
func (r *NominationRepository) ListRoundBeatmaps(ctx context.Context, roundID int64) ([]NominationBeatmap, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT n.id, `+beatmapColumns+`, (e.beatmap_id IS NOT NULL)
		FROM nominations n
		JOIN beatmaps b ON b.beatmapset_id = n.beatmapset_id AND b.game_mode = n.game_mode
		LEFT JOIN nomination_excluded_beatmaps e ON e.nomination_id = n.id AND e.beatmap_id = b.id
		WHERE n.round_id = $1 AND b.deleted_at IS NULL
		ORDER BY n.id, COALESCE(b.key_count, 0), b.star_rating, b.id
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nomination beatmaps: %w", err)
	}
	defer rows.Close()

	var result []NominationBeatmap
	for rows.Next() {
		var nb NominationBeatmap
		var excluded bool
		beatmap, err := scanBeatmapWithTail(rows, &nb.NominationID, &excluded)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nomination beatmap: %w", err)
		}
		beatmap.Excluded = excluded
		nb.Beatmap = *beatmap
		result = append(result, nb)
	}
	return result, rows.Err()
}

// scanBeatmapWithTail scans a leading nomination id, beatmapColumns, then a trailing excluded flag
func scanBeatmapWithTail(s scanner, nominationID *int64, excluded *bool) (*models.Beatmap, error) {
	var beatmap models.Beatmap
	err := s.Scan(
		nominationID,
		&beatmap.ID,
		&beatmap.BeatmapsetID,
		&beatmap.GameMode,
		&beatmap.Version,
		&beatmap.StarRating,
		&beatmap.KeyCount,
		&beatmap.BPM,
		&beatmap.RankedStatus,
		&beatmap.DeletedAt,
		excluded,
	)
	if err != nil {
		return nil, err
	}
	return &beatmap, nil
}

// ListRoundCreators retrieves the per game mode creator credits of every nomination in a round
func (r *NominationRepository) ListRoundCreators(ctx context.Context, roundID int64) ([]NominationUser, error) {
	return r.listRoundUsers(ctx, `
		SELECT n.id, 0, `+userColumns+`
		FROM nominations n
		JOIN beatmapset_creators c ON c.beatmapset_id = n.beatmapset_id AND c.game_mode = n.game_mode
		JOIN users u ON u.id = c.creator_id
		WHERE n.round_id = $1
		ORDER BY n.id, u.name
	`, roundID)
}

// ListRoundNominators retrieves the nominators of every nomination in a round
func (r *NominationRepository) ListRoundNominators(ctx context.Context, roundID int64) ([]NominationUser, error) {
	return r.listRoundUsers(ctx, `
		SELECT n.id, 0, `+userColumns+`
		FROM nominations n
		JOIN nomination_nominators nn ON nn.nomination_id = n.id
		JOIN users u ON u.id = nn.nominator_id
		WHERE n.round_id = $1
		ORDER BY n.id, u.name
	`, roundID)
}

// ListRoundAssignees retrieves the typed assignees of every nomination in a round
func (r *NominationRepository) ListRoundAssignees(ctx context.Context, roundID int64) ([]NominationUser, error) {
	return r.listRoundUsers(ctx, `
		SELECT n.id, a.type, `+userColumns+`
		FROM nominations n
		JOIN nomination_assignees a ON a.nomination_id = n.id
		JOIN users u ON u.id = a.assignee_id
		WHERE n.round_id = $1
		ORDER BY n.id, a.type, u.name
	`, roundID)
}

// ListRoundDescriptionAuthors retrieves the description author of every nomination in a round that has one
func (r *NominationRepository) ListRoundDescriptionAuthors(ctx context.Context, roundID int64) ([]NominationUser, error) {
	return r.listRoundUsers(ctx, `
		SELECT n.id, 0, `+userColumns+`
		FROM nominations n
		JOIN users u ON u.id = n.description_author_id
		WHERE n.round_id = $1
		ORDER BY n.id
	`, roundID)
}

func (r *NominationRepository) listRoundUsers(ctx context.Context, query string, roundID int64) ([]NominationUser, error) {
	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nomination users: %w", err)
	}
	defer rows.Close()

	var result []NominationUser
	for rows.Next() {
		var nu NominationUser
		user, err := scanUser(rows, &nu.NominationID, &nu.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nomination user: %w", err)
		}
		nu.User = *user
		result = append(result, nu)
	}
	return result, rows.Err()
}

// ListRoundBeatmapsets retrieves the beatmapset of every nomination in a round
func (r *NominationRepository) ListRoundBeatmapsets(ctx context.Context, roundID int64) ([]NominationBeatmapset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT n.id, `+beatmapsetColumns+`
		FROM nominations n
		JOIN beatmapsets bs ON bs.id = n.beatmapset_id
		WHERE n.round_id = $1
		ORDER BY n.id
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nomination beatmapsets: %w", err)
	}
	defer rows.Close()

	var result []NominationBeatmapset
	for rows.Next() {
		var nb NominationBeatmapset
		set, err := scanBeatmapset(rows, &nb.NominationID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nomination beatmapset: %w", err)
		}
		nb.Beatmapset = *set
		result = append(result, nb)
	}
	return result, rows.Err()
}

// ListRoundPolls retrieves the polls matching nominations in a round
func (r *NominationRepository) ListRoundPolls(ctx context.Context, roundID int64) ([]NominationPoll, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT n.id, p.id, p.round_id, p.game_mode, p.beatmapset_id, p.topic_id,
			p.started_at, p.ended_at, p.result_no, p.result_yes
		FROM nominations n
		JOIN polls p ON p.round_id = n.round_id AND p.game_mode = n.game_mode AND p.beatmapset_id = n.beatmapset_id
		WHERE n.round_id = $1
		ORDER BY n.id, p.id DESC
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nomination polls: %w", err)
	}
	defer rows.Close()

	var result []NominationPoll
	for rows.Next() {
		var np NominationPoll
		p := &np.Poll
		err := rows.Scan(&np.NominationID, &p.ID, &p.RoundID, &p.GameMode, &p.BeatmapsetID, &p.TopicID,
			&p.StartedAt, &p.EndedAt, &p.ResultNo, &p.ResultYes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nomination poll: %w", err)
		}
		result = append(result, np)
	}
	return result, rows.Err()
}
