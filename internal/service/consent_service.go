package service

import (
	"context"
	"database/sql"

	"loved-api/internal/auth"
	"loved-api/internal/cache"
	"loved-api/internal/content"
	"loved-api/internal/database"
	"loved-api/internal/logger"
	"loved-api/internal/models"
	"loved-api/internal/repository"
)

// BeatmapsetConsentInput is one requested per-beatmapset consent
type BeatmapsetConsentInput struct {
	BeatmapsetID  int64               `json:"beatmapset_id" validate:"required,gt=0"`
	Consent       models.ConsentValue `json:"consent"`
	ConsentReason *string             `json:"consent_reason"`
}

// ConsentInput is the full requested consent state of one mapper. Per-beatmapset
// consents absent from Beatmapsets are removed.
type ConsentInput struct {
	UserID        int64                    `json:"user_id"`
	Consent       *models.ConsentValue     `json:"consent"`
	ConsentReason *string                  `json:"consent_reason"`
	Beatmapsets   []BeatmapsetConsentInput `json:"beatmapset_consents" validate:"dive"`
}

// ConsentService maintains mapper consents
type ConsentService struct {
	db              *sql.DB
	consentRepo     *repository.ConsentRepository
	beatmapsetRepo  *repository.BeatmapsetRepository
	auditService    *AuditService
	contentProvider ContentProvider
	invalidator     cache.Invalidator
}

// NewConsentService creates a new consent service
func NewConsentService(
	db *sql.DB,
	consentRepo *repository.ConsentRepository,
	beatmapsetRepo *repository.BeatmapsetRepository,
	auditService *AuditService,
	contentProvider ContentProvider,
	invalidator cache.Invalidator,
) *ConsentService {
	return &ConsentService{
		db:              db,
		consentRepo:     consentRepo,
		beatmapsetRepo:  beatmapsetRepo,
		auditService:    auditService,
		contentProvider: contentProvider,
		invalidator:     invalidator,
	}
}

// ListConsents retrieves every mapper consent with its per-beatmapset consents
func (s *ConsentService) ListConsents(ctx context.Context) ([]models.Consent, error) {
	return s.consentRepo.ListAll(ctx)
}

type consentLogPayload struct {
	Actor         logUser              `json:"actor"`
	User          logUser              `json:"user"`
	Consent       *models.ConsentValue `json:"consent,omitempty"`
	ConsentReason *string              `json:"consent_reason,omitempty"`
	From          *consentState        `json:"from,omitempty"`
	To            *consentState        `json:"to,omitempty"`
}

type consentState struct {
	Consent       *models.ConsentValue `json:"consent"`
	ConsentReason *string              `json:"consent_reason"`
}

type consentBeatmapsetLogPayload struct {
	Actor         logUser                 `json:"actor"`
	User          logUser                 `json:"user"`
	Beatmapset    logBeatmapset           `json:"beatmapset"`
	Consent       *models.ConsentValue    `json:"consent,omitempty"`
	ConsentReason *string                 `json:"consent_reason,omitempty"`
	From          *consentBeatmapsetState `json:"from,omitempty"`
	To            *consentBeatmapsetState `json:"to,omitempty"`
}

type consentBeatmapsetState struct {
	Consent       models.ConsentValue `json:"consent"`
	ConsentReason *string             `json:"consent_reason"`
}

// SetConsent replaces a mapper's consent and per-beatmapset consents. Every
// referenced beatmapset is resolved before anything is written.
func (s *ConsentService) SetConsent(ctx context.Context, caps *auth.Capabilities, input ConsentInput) (*models.Consent, error) {
	if caps.UserID() != input.UserID && !caps.Has(models.RoleCaptain) {
		return nil, forbiddenf("only captains may change another mapper's consent")
	}

	if input.Consent != nil && !input.Consent.Valid() {
		return nil, validationErrorf("invalid consent value %d", *input.Consent)
	}
	setIDs := make([]int64, 0, len(input.Beatmapsets))
	for _, bc := range input.Beatmapsets {
		if !bc.Consent.Valid() {
			return nil, validationErrorf("invalid consent value %d for beatmapset #%d", bc.Consent, bc.BeatmapsetID)
		}
		setIDs = append(setIDs, bc.BeatmapsetID)
	}
	if hasDuplicates(setIDs) {
		return nil, validationErrorf("duplicate beatmapset in consents")
	}

	user, err := resolveUser(ctx, s.contentProvider, content.UserLookup{ID: input.UserID})
	if err != nil {
		return nil, err
	}

	sets := make(map[int64]*models.Beatmapset, len(setIDs))
	for _, id := range setIDs {
		set, err := resolveBeatmapset(ctx, s.contentProvider, id, false)
		if err != nil {
			return nil, err
		}
		sets[id] = set
	}

	var result *models.Consent
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		consentRepo := s.consentRepo.WithTx(tx)

		actor, err := s.auditService.actorSnapshot(ctx, caps.UserID())
		if err != nil {
			return err
		}
		target := userSnapshot(user)

		current, err := consentRepo.GetForUpdate(ctx, input.UserID)
		if err != nil {
			return err
		}

		requested := &models.Consent{
			UserID:        input.UserID,
			Consent:       input.Consent,
			ConsentReason: input.ConsentReason,
			UpdaterID:     caps.UserID(),
		}

		switch {
		case current == nil:
			if err := consentRepo.Create(ctx, requested); err != nil {
				return err
			}
			err := s.auditService.Log(ctx, tx, models.LogTypeMapperConsentCreated, consentLogPayload{
				Actor:         actor,
				User:          target,
				Consent:       requested.Consent,
				ConsentReason: requested.ConsentReason,
			})
			if err != nil {
				return err
			}
			result = requested
		case !equalPtr(current.Consent, requested.Consent) || !equalPtr(current.ConsentReason, requested.ConsentReason):
			if err := consentRepo.Update(ctx, requested); err != nil {
				return err
			}
			err := s.auditService.Log(ctx, tx, models.LogTypeMapperConsentUpdated, consentLogPayload{
				Actor: actor,
				User:  target,
				From:  &consentState{Consent: current.Consent, ConsentReason: current.ConsentReason},
				To:    &consentState{Consent: requested.Consent, ConsentReason: requested.ConsentReason},
			})
			if err != nil {
				return err
			}
			result = requested
		default:
			result = current
		}

		existing, err := consentRepo.ListBeatmapsets(ctx, input.UserID)
		if err != nil {
			return err
		}
		existingByID := make(map[int64]models.ConsentBeatmapset, len(existing))
		for _, c := range existing {
			existingByID[c.BeatmapsetID] = c
		}

		for _, bc := range input.Beatmapsets {
			set := sets[bc.BeatmapsetID]
			row := models.ConsentBeatmapset{
				UserID:        input.UserID,
				BeatmapsetID:  bc.BeatmapsetID,
				Consent:       bc.Consent,
				ConsentReason: bc.ConsentReason,
			}

			old, found := existingByID[bc.BeatmapsetID]
			switch {
			case !found:
				if err := consentRepo.CreateBeatmapset(ctx, &row); err != nil {
					return err
				}
				consent := row.Consent
				err := s.auditService.Log(ctx, tx, models.LogTypeMapperConsentBeatmapsetCreated, consentBeatmapsetLogPayload{
					Actor:         actor,
					User:          target,
					Beatmapset:    beatmapsetSnapshot(set),
					Consent:       &consent,
					ConsentReason: row.ConsentReason,
				})
				if err != nil {
					return err
				}
			case old.Consent != row.Consent || !equalPtr(old.ConsentReason, row.ConsentReason):
				if err := consentRepo.UpdateBeatmapset(ctx, &row); err != nil {
					return err
				}
				err := s.auditService.Log(ctx, tx, models.LogTypeMapperConsentBeatmapsetUpdated, consentBeatmapsetLogPayload{
					Actor:      actor,
					User:       target,
					Beatmapset: beatmapsetSnapshot(set),
					From:       &consentBeatmapsetState{Consent: old.Consent, ConsentReason: old.ConsentReason},
					To:         &consentBeatmapsetState{Consent: row.Consent, ConsentReason: row.ConsentReason},
				})
				if err != nil {
					return err
				}
			}

			row.Beatmapset = set
			result.Beatmapsets = append(result.Beatmapsets, row)
		}

		for _, old := range existing {
			if _, ok := sets[old.BeatmapsetID]; ok {
				continue
			}

			set, err := s.beatmapsetRepo.WithTx(tx).GetByID(ctx, old.BeatmapsetID)
			if err != nil {
				return err
			}
			if err := consentRepo.DeleteBeatmapset(ctx, old.UserID, old.BeatmapsetID); err != nil {
				return err
			}
			consent := old.Consent
			err = s.auditService.Log(ctx, tx, models.LogTypeMapperConsentBeatmapsetDeleted, consentBeatmapsetLogPayload{
				Actor:         actor,
				User:          target,
				Beatmapset:    beatmapsetSnapshot(set),
				Consent:       &consent,
				ConsentReason: old.ConsentReason,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx,
		cache.KeyMapperConsents,
		cache.KeySubmissionsMapperConsentSets,
		cache.KeySubmissionsMapperConsents,
	)

	logger.FromContext(ctx).Info("Mapper consent updated",
		"user_id", input.UserID,
		"actor_id", caps.UserID(),
		"beatmapset_consents", len(result.Beatmapsets))

	result.User = user
	return result, nil
}
