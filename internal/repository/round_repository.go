package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loved-api/internal/database"
	"loved-api/internal/models"
)

// RoundRepository handles round database operations
type RoundRepository struct {
	db database.Querier
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db database.Querier) *RoundRepository {
	return &RoundRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *RoundRepository) WithTx(tx *sql.Tx) *RoundRepository {
	return &RoundRepository{db: tx}
}

const roundColumns = `r.id, r.name, r.news_intro, r.news_intro_preview, r.news_outro, r.news_posted_at, r.done`

func scanRound(s scanner, extra ...any) (*models.Round, error) {
	var round models.Round
	dest := append([]any{
		&round.ID,
		&round.Name,
		&round.NewsIntro,
		&round.NewsIntroPreview,
		&round.NewsOutro,
		&round.NewsPostedAt,
		&round.Done,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return &round, nil
}

// Create inserts a round
func (r *RoundRepository) Create(ctx context.Context, round *models.Round) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO rounds (name, news_intro, news_intro_preview, news_outro, news_posted_at, done)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, round.Name, round.NewsIntro, round.NewsIntroPreview, round.NewsOutro, round.NewsPostedAt, round.Done).Scan(&round.ID)
	if err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

// Update overwrites the name and news texts of a round
func (r *RoundRepository) Update(ctx context.Context, round *models.Round) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE rounds
		SET name = $2, news_intro = $3, news_intro_preview = $4, news_outro = $5
		WHERE id = $1
	`, round.ID, round.Name, round.NewsIntro, round.NewsIntroPreview, round.NewsOutro)
	if err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}
	return nil
}

// GetByID retrieves a round by ID, returning nil when it does not exist
func (r *RoundRepository) GetByID(ctx context.Context, id int64) (*models.Round, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate retrieves and locks a round, returning nil when it does not exist
func (r *RoundRepository) GetForUpdate(ctx context.Context, id int64) (*models.Round, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *RoundRepository) get(ctx context.Context, id int64, lock string) (*models.Round, error) {
	round, err := scanRound(r.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds r WHERE r.id = $1 `+lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// List retrieves all rounds with their live nomination counts
func (r *RoundRepository) List(ctx context.Context) ([]models.Round, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+roundColumns+`, COUNT(n.id)
		FROM rounds r
		LEFT JOIN nominations n ON n.round_id = r.id
		GROUP BY r.id
		ORDER BY r.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []models.Round
	for rows.Next() {
		var count int
		round, err := scanRound(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		round.NominationCount = count
		rounds = append(rounds, *round)
	}
	return rounds, rows.Err()
}

// CreateGameMode inserts the settings of one game mode of a round
func (r *RoundRepository) CreateGameMode(ctx context.Context, gm *models.RoundGameMode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO round_game_modes (round_id, game_mode, voting_threshold, nominations_locked)
		VALUES ($1, $2, $3, $4)
	`, gm.RoundID, gm.GameMode, gm.VotingThreshold, gm.NominationsLocked)
	if err != nil {
		return fmt.Errorf("failed to create round game mode: %w", mapError(err))
	}
	return nil
}

// GetGameModeForUpdate retrieves and locks the settings of one game mode of a round, returning nil when absent
func (r *RoundRepository) GetGameModeForUpdate(ctx context.Context, roundID int64, mode models.GameMode) (*models.RoundGameMode, error) {
	var gm models.RoundGameMode
	err := r.db.QueryRowContext(ctx, `
		SELECT round_id, game_mode, voting_threshold, nominations_locked
		FROM round_game_modes
		WHERE round_id = $1 AND game_mode = $2
		FOR UPDATE
	`, roundID, mode).Scan(&gm.RoundID, &gm.GameMode, &gm.VotingThreshold, &gm.NominationsLocked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round game mode: %w", err)
	}
	return &gm, nil
}

// SetNominationsLocked flips the lock flag of one game mode of a round
func (r *RoundRepository) SetNominationsLocked(ctx context.Context, roundID int64, mode models.GameMode, locked bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE round_game_modes
		SET nominations_locked = $3
		WHERE round_id = $1 AND game_mode = $2
	`, roundID, mode, locked)
	if err != nil {
		return fmt.Errorf("failed to update nominations lock: %w", err)
	}
	return nil
}

// ListGameModes retrieves the per game mode settings of a round
func (r *RoundRepository) ListGameModes(ctx context.Context, roundID int64) ([]models.RoundGameMode, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT round_id, game_mode, voting_threshold, nominations_locked
		FROM round_game_modes
		WHERE round_id = $1
		ORDER BY game_mode
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round game modes: %w", err)
	}
	defer rows.Close()

	var modes []models.RoundGameMode
	for rows.Next() {
		var gm models.RoundGameMode
		if err := rows.Scan(&gm.RoundID, &gm.GameMode, &gm.VotingThreshold, &gm.NominationsLocked); err != nil {
			return nil, fmt.Errorf("failed to scan round game mode: %w", err)
		}
		modes = append(modes, gm)
	}
	return modes, rows.Err()
}
