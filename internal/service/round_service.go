package service

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"strings"

	"loved-api/internal/auth"
	"loved-api/internal/database"
	"loved-api/internal/logger"
	"loved-api/internal/models"
	"loved-api/internal/repository"
)

const defaultRoundName = "Unnamed round"

// RoundInput holds the editable fields of a round. Nil fields stay unchanged.
type RoundInput struct {
	Name             *string `json:"name" validate:"omitempty,max=255"`
	NewsIntro        *string `json:"news_intro"`
	NewsIntroPreview *string `json:"news_intro_preview"`
	NewsOutro        *string `json:"news_outro"`
}

// RoundList splits rounds into finished and running ones
type RoundList struct {
	Complete   []models.Round `json:"complete"`
	Incomplete []models.Round `json:"incomplete"`
}

// RoundService manages rounds and their per game mode settings
type RoundService struct {
	db                     *sql.DB
	roundRepo              *repository.RoundRepository
	nominationService      *NominationService
	auditService           *AuditService
	defaultVotingThreshold float64
}

// NewRoundService creates a new round service
func NewRoundService(
	db *sql.DB,
	roundRepo *repository.RoundRepository,
	nominationService *NominationService,
	auditService *AuditService,
	defaultVotingThreshold float64,
) *RoundService {
	return &RoundService{
		db:                     db,
		roundRepo:              roundRepo,
		nominationService:      nominationService,
		auditService:           auditService,
		defaultVotingThreshold: defaultVotingThreshold,
	}
}

type roundLogPayload struct {
	Actor logUser `json:"actor"`
	Round struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"round"`
}

type roundFields struct {
	Name             string  `json:"name"`
	NewsIntro        *string `json:"news_intro"`
	NewsIntroPreview *string `json:"news_intro_preview"`
	NewsOutro        *string `json:"news_outro"`
}

type roundUpdateLogPayload struct {
	roundLogPayload
	Fields change[roundFields] `json:"fields"`
}

func (s *RoundService) roundPayload(ctx context.Context, actorID int64, round *models.Round) (roundLogPayload, error) {
	actor, err := s.auditService.actorSnapshot(ctx, actorID)
	if err != nil {
		return roundLogPayload{}, err
	}
	payload := roundLogPayload{Actor: actor}
	payload.Round.ID = round.ID
	payload.Round.Name = round.Name
	return payload, nil
}

// CreateRound opens an empty round with default settings for every game mode
func (s *RoundService) CreateRound(ctx context.Context, caps *auth.Capabilities) (*models.Round, error) {
	if !caps.Has(models.RoleNews) {
		return nil, forbiddenf("creating rounds requires the news role")
	}

	round := &models.Round{Name: defaultRoundName}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		roundRepo := s.roundRepo.WithTx(tx)

		if err := roundRepo.Create(ctx, round); err != nil {
			return err
		}

		round.GameModes = make([]models.RoundGameMode, 0, len(models.GameModes))
		for _, mode := range models.GameModes {
			gm := models.RoundGameMode{
				RoundID:         round.ID,
				GameMode:        mode,
				VotingThreshold: s.defaultVotingThreshold,
			}
			if err := roundRepo.CreateGameMode(ctx, &gm); err != nil {
				return err
			}
			round.GameModes = append(round.GameModes, gm)
		}

		payload, err := s.roundPayload(ctx, caps.UserID(), round)
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeRoundCreated, payload)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Round created", "round_id", round.ID, "actor_id", caps.UserID())
	return round, nil
}

// ListRounds returns finished rounds newest first and running rounds in creation order
func (s *RoundService) ListRounds(ctx context.Context) (*RoundList, error) {
	rounds, err := s.roundRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	list := &RoundList{
		Complete:   []models.Round{},
		Incomplete: []models.Round{},
	}
	for _, round := range rounds {
		if round.Done {
			list.Complete = append(list.Complete, round)
		} else {
			list.Incomplete = append(list.Incomplete, round)
		}
	}

	slices.SortStableFunc(list.Complete, compareCompleteRounds)
	slices.SortStableFunc(list.Incomplete, func(a, b models.Round) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return list, nil
}

// compareCompleteRounds orders by news post time descending, unposted last, then ID descending
func compareCompleteRounds(a, b models.Round) int {
	switch {
	case a.NewsPostedAt == nil && b.NewsPostedAt != nil:
		return 1
	case a.NewsPostedAt != nil && b.NewsPostedAt == nil:
		return -1
	case a.NewsPostedAt != nil && b.NewsPostedAt != nil && !a.NewsPostedAt.Equal(*b.NewsPostedAt):
		return b.NewsPostedAt.Compare(*a.NewsPostedAt)
	}
	return cmp.Compare(b.ID, a.ID)
}

// GetRound retrieves a round with its game mode settings and nominations
func (s *RoundService) GetRound(ctx context.Context, id int64) (*models.Round, []models.Nomination, error) {
	round, err := s.roundRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if round == nil {
		return nil, nil, notFoundf("round #%d not found", id)
	}

	round.GameModes, err = s.roundRepo.ListGameModes(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	nominations, err := s.nominationService.ListNominations(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	round.NominationCount = len(nominations)
	return round, nominations, nil
}

// UpdateRound edits the name and news texts of a round
func (s *RoundService) UpdateRound(ctx context.Context, caps *auth.Capabilities, id int64, input RoundInput) (*models.Round, error) {
	if !caps.Has(models.RoleNews) {
		return nil, forbiddenf("editing rounds requires the news role")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, validationErrorf("round name must not be empty")
	}

	var round *models.Round
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		roundRepo := s.roundRepo.WithTx(tx)

		var err error
		round, err = roundRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if round == nil {
			return notFoundf("round #%d not found", id)
		}

		from := fieldsOf(round)
		if input.Name != nil {
			round.Name = strings.TrimSpace(*input.Name)
		}
		if input.NewsIntro != nil {
			round.NewsIntro = input.NewsIntro
		}
		if input.NewsIntroPreview != nil {
			round.NewsIntroPreview = input.NewsIntroPreview
		}
		if input.NewsOutro != nil {
			round.NewsOutro = input.NewsOutro
		}
		to := fieldsOf(round)
		if from.equal(to) {
			return nil
		}

		if err := roundRepo.Update(ctx, round); err != nil {
			return err
		}

		payload, err := s.roundPayload(ctx, caps.UserID(), round)
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeRoundUpdated, roundUpdateLogPayload{
			roundLogPayload: payload,
			Fields:          change[roundFields]{From: from, To: to},
		})
	})
	if err != nil {
		return nil, err
	}

	round.GameModes, err = s.roundRepo.ListGameModes(ctx, id)
	if err != nil {
		return nil, err
	}
	return round, nil
}

func fieldsOf(round *models.Round) roundFields {
	return roundFields{
		Name:             round.Name,
		NewsIntro:        round.NewsIntro,
		NewsIntroPreview: round.NewsIntroPreview,
		NewsOutro:        round.NewsOutro,
	}
}

func (f roundFields) equal(o roundFields) bool {
	return f.Name == o.Name &&
		equalPtr(f.NewsIntro, o.NewsIntro) &&
		equalPtr(f.NewsIntroPreview, o.NewsIntroPreview) &&
		equalPtr(f.NewsOutro, o.NewsOutro)
}
