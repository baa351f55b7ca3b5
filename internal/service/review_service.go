package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"loved-api/internal/auth"
	"loved-api/internal/cache"
	"loved-api/internal/database"
	"loved-api/internal/logger"
	"loved-api/internal/models"
	"loved-api/internal/repository"
)

// ReviewInput is a request to score one beatmapset in one game mode
type ReviewInput struct {
	BeatmapsetID int64           `json:"beatmapset_id" validate:"required,gt=0"`
	GameMode     models.GameMode `json:"game_mode" validate:"min=0,max=3"`
	Score        int             `json:"score" validate:"min=-4,max=3"`
	Reason       string          `json:"reason" validate:"required"`
}

// ReviewManyInput is a request to support one beatmapset in several game modes
type ReviewManyInput struct {
	BeatmapsetID int64             `json:"beatmapset_id" validate:"required,gt=0"`
	GameModes    []models.GameMode `json:"game_modes" validate:"required,min=1,dive,min=0,max=3"`
	Score        int               `json:"score" validate:"oneof=1 3"`
	Reason       string            `json:"reason" validate:"required"`
}

// ReviewResult is a stored review with informational context about the reviewer
type ReviewResult struct {
	Review        *models.Review `json:"review"`
	ActiveCaptain bool           `json:"active_captain"`
}

// ReviewService maintains reviews and supersedes open submissions
type ReviewService struct {
	db              *sql.DB
	reviewRepo      *repository.ReviewRepository
	submissionRepo  *repository.SubmissionRepository
	auditService    *AuditService
	contentProvider ContentProvider
	invalidator     cache.Invalidator
	now             func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(
	db *sql.DB,
	reviewRepo *repository.ReviewRepository,
	submissionRepo *repository.SubmissionRepository,
	auditService *AuditService,
	contentProvider ContentProvider,
	invalidator cache.Invalidator,
) *ReviewService {
	return &ReviewService{
		db:              db,
		reviewRepo:      reviewRepo,
		submissionRepo:  submissionRepo,
		auditService:    auditService,
		contentProvider: contentProvider,
		invalidator:     invalidator,
		now:             time.Now,
	}
}

type reviewState struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

type reviewLogPayload struct {
	Actor      logUser              `json:"actor"`
	Beatmapset logBeatmapset        `json:"beatmapset"`
	GameMode   models.GameMode      `json:"game_mode"`
	ReviewID   int64                `json:"review_id"`
	Review     *reviewState         `json:"review,omitempty"`
	Change     *change[reviewState] `json:"change,omitempty"`
}

type submissionLogPayload struct {
	Actor        logUser         `json:"actor"`
	Beatmapset   logBeatmapset   `json:"beatmapset"`
	GameMode     models.GameMode `json:"game_mode"`
	SubmissionID int64           `json:"submission_id"`
	Reason       string          `json:"reason"`
}

// ListReviews retrieves every review of a beatmapset
func (s *ReviewService) ListReviews(ctx context.Context, beatmapsetID int64) ([]models.Review, error) {
	return s.reviewRepo.ListByBeatmapset(ctx, beatmapsetID)
}

// resolveReviewable fetches a fresh copy of the beatmapset and rejects it when
// it cannot be reviewed. Unresolvable sets are a validation failure here.
func (s *ReviewService) resolveReviewable(ctx context.Context, beatmapsetID int64) (*models.Beatmapset, error) {
	set, err := resolveBeatmapset(ctx, s.contentProvider, beatmapsetID, true)
	if errors.Is(err, ErrNotFound) {
		return nil, validationErrorf("beatmapset #%d could not be resolved", beatmapsetID)
	}
	if err != nil {
		return nil, err
	}
	if set.RankedStatus.ExceedsPending() {
		return nil, validationErrorf("beatmapset #%d is already ranked or loved", set.ID)
	}
	return set, nil
}

// SubmitReview creates or updates the actor's review of a beatmapset in one game mode
func (s *ReviewService) SubmitReview(ctx context.Context, caps *auth.Capabilities, input ReviewInput) (*ReviewResult, error) {
	if !input.GameMode.Valid() {
		return nil, validationErrorf("invalid game mode %d", input.GameMode)
	}
	if !validScore(input.Score) {
		return nil, validationErrorf("invalid score %d", input.Score)
	}
	if requiresCaptainScore(input.Score) && !caps.HasForMode(models.RoleCaptain, input.GameMode) {
		return nil, forbiddenf("score %d requires the captain role for %s", input.Score, input.GameMode)
	}

	set, err := s.resolveReviewable(ctx, input.BeatmapsetID)
	if err != nil {
		return nil, err
	}
	if !set.HasGameMode(input.GameMode) {
		return nil, validationErrorf("beatmapset #%d has no %s beatmaps", set.ID, input.GameMode)
	}

	var review *models.Review
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		actor, err := s.auditService.actorSnapshot(ctx, caps.UserID())
		if err != nil {
			return err
		}
		review, err = s.upsertReview(ctx, tx, actor, caps.UserID(), set, input.GameMode, input.Score, input.Reason, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, cache.SubmissionsReviewsKey(input.GameMode))

	logger.FromContext(ctx).Info("Review submitted",
		"review_id", review.ID,
		"beatmapset_id", set.ID,
		"game_mode", input.GameMode,
		"score", review.Score)

	return &ReviewResult{
		Review:        review,
		ActiveCaptain: caps.IsActiveCaptain(input.GameMode),
	}, nil
}

// SubmitReviewMany supports a beatmapset in several game modes at once. Either
// every mode is stored or none is.
func (s *ReviewService) SubmitReviewMany(ctx context.Context, caps *auth.Capabilities, input ReviewManyInput) ([]ReviewResult, error) {
	if input.Score != ScoreSupport && input.Score != ScoreStrongSupport {
		return nil, validationErrorf("score must be %d or %d", ScoreSupport, ScoreStrongSupport)
	}
	if len(input.GameModes) == 0 {
		return nil, validationErrorf("at least one game mode is required")
	}
	for _, mode := range input.GameModes {
		if !mode.Valid() {
			return nil, validationErrorf("invalid game mode %d", mode)
		}
	}
	modes := slices.Clone(input.GameModes)
	slices.Sort(modes)
	modes = slices.Compact(modes)

	set, err := s.resolveReviewable(ctx, input.BeatmapsetID)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, mode := range modes {
		if !set.HasGameMode(mode) {
			missing = append(missing, mode.String())
		}
	}
	if len(missing) > 0 {
		return nil, validationErrorf("beatmapset #%d has no beatmaps in %s", set.ID, strings.Join(missing, ", "))
	}

	results := make([]ReviewResult, 0, len(modes))
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		actor, err := s.auditService.actorSnapshot(ctx, caps.UserID())
		if err != nil {
			return err
		}
		for _, mode := range modes {
			review, err := s.upsertReview(ctx, tx, actor, caps.UserID(), set, mode, input.Score, input.Reason, false)
			if err != nil {
				return err
			}
			results = append(results, ReviewResult{Review: review, ActiveCaptain: caps.IsActiveCaptain(mode)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(modes))
	for _, mode := range modes {
		keys = append(keys, cache.SubmissionsReviewsKey(mode))
	}
	s.invalidator.Invalidate(ctx, keys...)

	return results, nil
}

// upsertReview writes one review inside tx, supersedes the reviewer's open
// submission and returns the stored row
func (s *ReviewService) upsertReview(
	ctx context.Context,
	tx *sql.Tx,
	actor logUser,
	reviewerID int64,
	set *models.Beatmapset,
	mode models.GameMode,
	score int,
	reason string,
	allowDeprecated bool,
) (*models.Review, error) {
	reviewRepo := s.reviewRepo.WithTx(tx)

	existing, err := reviewRepo.GetByKeyForUpdate(ctx, set.ID, reviewerID, mode)
	if err != nil {
		return nil, err
	}
	if isDeprecatedScore(score) && (!allowDeprecated || !allowDeprecatedScore(existing, score)) {
		return nil, validationErrorf("score %d is deprecated", score)
	}

	now := s.now()
	var reviewID int64
	if existing == nil {
		review := &models.Review{
			BeatmapsetID: set.ID,
			GameMode:     mode,
			ReviewerID:   reviewerID,
			Score:        score,
			Reason:       reason,
			ReviewedAt:   now,
		}
		if err := reviewRepo.Create(ctx, review); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, conflictf("review for beatmapset #%d in %s already exists", set.ID, mode)
			}
			return nil, err
		}
		reviewID = review.ID

		err := s.auditService.Log(ctx, tx, models.LogTypeReviewCreated, reviewLogPayload{
			Actor:      actor,
			Beatmapset: beatmapsetSnapshot(set),
			GameMode:   mode,
			ReviewID:   review.ID,
			Review:     &reviewState{Score: score, Reason: reason},
		})
		if err != nil {
			return nil, err
		}
	} else {
		reviewID = existing.ID
		if err := reviewRepo.Update(ctx, existing.ID, score, reason, now); err != nil {
			return nil, err
		}

		if existing.Score != score || existing.Reason != reason {
			err := s.auditService.Log(ctx, tx, models.LogTypeReviewUpdated, reviewLogPayload{
				Actor:      actor,
				Beatmapset: beatmapsetSnapshot(set),
				GameMode:   mode,
				ReviewID:   existing.ID,
				Change: &change[reviewState]{
					From: reviewState{Score: existing.Score, Reason: existing.Reason},
					To:   reviewState{Score: score, Reason: reason},
				},
			})
			if err != nil {
				return nil, err
			}
		}
	}

	submissionIDs, err := s.submissionRepo.WithTx(tx).DeleteOpen(ctx, set.ID, mode, reviewerID)
	if err != nil {
		return nil, err
	}
	for _, submissionID := range submissionIDs {
		err := s.auditService.Log(ctx, tx, models.LogTypeSubmissionDeleted, submissionLogPayload{
			Actor:        actor,
			Beatmapset:   beatmapsetSnapshot(set),
			GameMode:     mode,
			SubmissionID: submissionID,
			Reason:       "superseded by review",
		})
		if err != nil {
			return nil, err
		}
	}

	review, err := reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, invariantf("review #%d missing after write", reviewID)
	}
	return review, nil
}

// DeleteReview removes one of the actor's reviews
func (s *ReviewService) DeleteReview(ctx context.Context, caps *auth.Capabilities, reviewID int64) error {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review == nil {
		return notFoundf("review #%d not found", reviewID)
	}
	if review.ReviewerID != caps.UserID() {
		return forbiddenf("only the reviewer may delete review #%d", reviewID)
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		actor, err := s.auditService.actorSnapshot(ctx, caps.UserID())
		if err != nil {
			return err
		}
		if err := s.reviewRepo.WithTx(tx).Delete(ctx, review.ID); err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeReviewDeleted, reviewLogPayload{
			Actor:      actor,
			Beatmapset: logBeatmapset{ID: review.BeatmapsetID},
			GameMode:   review.GameMode,
			ReviewID:   review.ID,
			Review:     &reviewState{Score: review.Score, Reason: review.Reason},
		})
	})
	if err != nil {
		return err
	}

	s.invalidator.Invalidate(ctx, cache.SubmissionsReviewsKey(review.GameMode))
	return nil
}
