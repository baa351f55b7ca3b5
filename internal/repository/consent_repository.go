package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loved-api/internal/collection"
	"loved-api/internal/database"
	"loved-api/internal/models"
)

// ConsentRepository handles mapper consent database operations
type ConsentRepository struct {
	db database.Querier
}

// NewConsentRepository creates a new consent repository
func NewConsentRepository(db database.Querier) *ConsentRepository {
	return &ConsentRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *ConsentRepository) WithTx(tx *sql.Tx) *ConsentRepository {
	return &ConsentRepository{db: tx}
}

// GetForUpdate retrieves a mapper's consent and locks the row, returning nil when none exists
func (r *ConsentRepository) GetForUpdate(ctx context.Context, userID int64) (*models.Consent, error) {
	consent := &models.Consent{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, consent, consent_reason, updated_at, updater_id
		FROM mapper_consents
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(
		&consent.UserID,
		&consent.Consent,
		&consent.ConsentReason,
		&consent.UpdatedAt,
		&consent.UpdaterID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consent: %w", err)
	}
	return consent, nil
}

// Create inserts a mapper's consent
func (r *ConsentRepository) Create(ctx context.Context, consent *models.Consent) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO mapper_consents (user_id, consent, consent_reason, updated_at, updater_id)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, $4)
		RETURNING updated_at
	`, consent.UserID, consent.Consent, consent.ConsentReason, consent.UpdaterID).Scan(&consent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create consent: %w", mapError(err))
	}
	return nil
}

// Update overwrites a mapper's consent
func (r *ConsentRepository) Update(ctx context.Context, consent *models.Consent) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE mapper_consents
		SET consent = $2, consent_reason = $3, updated_at = CURRENT_TIMESTAMP, updater_id = $4
		WHERE user_id = $1
		RETURNING updated_at
	`, consent.UserID, consent.Consent, consent.ConsentReason, consent.UpdaterID).Scan(&consent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}
	return nil
}

// ListBeatmapsets retrieves a mapper's per-beatmapset consents
func (r *ConsentRepository) ListBeatmapsets(ctx context.Context, userID int64) ([]models.ConsentBeatmapset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, beatmapset_id, consent, consent_reason
		FROM mapper_consent_beatmapsets
		WHERE user_id = $1
		ORDER BY beatmapset_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get beatmapset consents: %w", err)
	}
	defer rows.Close()

	var consents []models.ConsentBeatmapset
	for rows.Next() {
		var c models.ConsentBeatmapset
		if err := rows.Scan(&c.UserID, &c.BeatmapsetID, &c.Consent, &c.ConsentReason); err != nil {
			return nil, fmt.Errorf("failed to scan beatmapset consent: %w", err)
		}
		consents = append(consents, c)
	}
	return consents, rows.Err()
}

// CreateBeatmapset inserts a per-beatmapset consent
func (r *ConsentRepository) CreateBeatmapset(ctx context.Context, c *models.ConsentBeatmapset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mapper_consent_beatmapsets (user_id, beatmapset_id, consent, consent_reason)
		VALUES ($1, $2, $3, $4)
	`, c.UserID, c.BeatmapsetID, c.Consent, c.ConsentReason)
	if err != nil {
		return fmt.Errorf("failed to create beatmapset consent: %w", mapError(err))
	}
	return nil
}

// UpdateBeatmapset overwrites a per-beatmapset consent
func (r *ConsentRepository) UpdateBeatmapset(ctx context.Context, c *models.ConsentBeatmapset) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE mapper_consent_beatmapsets
		SET consent = $3, consent_reason = $4
		WHERE user_id = $1 AND beatmapset_id = $2
	`, c.UserID, c.BeatmapsetID, c.Consent, c.ConsentReason)
	if err != nil {
		return fmt.Errorf("failed to update beatmapset consent: %w", err)
	}
	return nil
}

// DeleteBeatmapset removes a per-beatmapset consent
func (r *ConsentRepository) DeleteBeatmapset(ctx context.Context, userID, beatmapsetID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM mapper_consent_beatmapsets
		WHERE user_id = $1 AND beatmapset_id = $2
	`, userID, beatmapsetID)
	if err != nil {
		return fmt.Errorf("failed to delete beatmapset consent: %w", err)
	}
	return nil
}

type consentBeatmapsetRow struct {
	consent    models.ConsentBeatmapset
	beatmapset models.Beatmapset
}

// ListAll retrieves every consent with its mapper and per-beatmapset consents
func (r *ConsentRepository) ListAll(ctx context.Context) ([]models.Consent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT mc.user_id, mc.consent, mc.consent_reason, mc.updated_at, mc.updater_id, `+userColumns+`
		FROM mapper_consents mc
		JOIN users u ON u.id = mc.user_id
		ORDER BY mc.updated_at DESC, mc.user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list consents: %w", err)
	}
	defer rows.Close()

	var consents []models.Consent
	for rows.Next() {
		var c models.Consent
		user, err := scanUser(rows, &c.UserID, &c.Consent, &c.ConsentReason, &c.UpdatedAt, &c.UpdaterID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consent: %w", err)
		}
		c.User = user
		consents = append(consents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	beatmapsetRows, err := r.db.QueryContext(ctx, `
		SELECT mcb.user_id, mcb.beatmapset_id, mcb.consent, mcb.consent_reason, `+beatmapsetColumns+`
		FROM mapper_consent_beatmapsets mcb
		JOIN beatmapsets bs ON bs.id = mcb.beatmapset_id
		ORDER BY mcb.user_id, mcb.beatmapset_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list beatmapset consents: %w", err)
	}
	defer beatmapsetRows.Close()

	var joined []consentBeatmapsetRow
	for beatmapsetRows.Next() {
		var row consentBeatmapsetRow
		set, err := scanBeatmapset(beatmapsetRows,
			&row.consent.UserID, &row.consent.BeatmapsetID, &row.consent.Consent, &row.consent.ConsentReason)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beatmapset consent: %w", err)
		}
		row.beatmapset = *set
		joined = append(joined, row)
	}
	if err := beatmapsetRows.Err(); err != nil {
		return nil, err
	}

	byUser := collection.GroupUnique(joined,
		func(row consentBeatmapsetRow) int64 { return row.consent.UserID },
		func(row consentBeatmapsetRow) int64 { return row.consent.BeatmapsetID },
	)
	for i := range consents {
		for _, row := range byUser[consents[i].UserID] {
			c := row.consent
			set := row.beatmapset
			c.Beatmapset = &set
			consents[i].Beatmapsets = append(consents[i].Beatmapsets, c)
		}
	}

	return consents, nil
}
