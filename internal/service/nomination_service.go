package service

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"

	"loved-api/internal/auth"
	"loved-api/internal/collection"
	"loved-api/internal/database"
	"loved-api/internal/logger"
	"loved-api/internal/models"
	"loved-api/internal/repository"
)

// NominationInput is a request to nominate a beatmapset in a round
type NominationInput struct {
	RoundID      int64           `json:"round_id" validate:"required,gt=0"`
	GameMode     models.GameMode `json:"game_mode" validate:"min=0,max=3"`
	BeatmapsetID int64           `json:"beatmapset_id" validate:"required,gt=0"`
	ParentID     *int64          `json:"parent_id" validate:"omitempty,gt=0"`
}

// NominationService drives nominations through their checks within a round
type NominationService struct {
	db              *sql.DB
	nominationRepo  *repository.NominationRepository
	roundRepo       *repository.RoundRepository
	beatmapsetRepo  *repository.BeatmapsetRepository
	userRepo        *repository.UserRepository
	auditService    *AuditService
	contentProvider ContentProvider
}

// NewNominationService creates a new nomination service
func NewNominationService(
	db *sql.DB,
	nominationRepo *repository.NominationRepository,
	roundRepo *repository.RoundRepository,
	beatmapsetRepo *repository.BeatmapsetRepository,
	userRepo *repository.UserRepository,
	auditService *AuditService,
	contentProvider ContentProvider,
) *NominationService {
	return &NominationService{
		db:              db,
		nominationRepo:  nominationRepo,
		roundRepo:       roundRepo,
		beatmapsetRepo:  beatmapsetRepo,
		userRepo:        userRepo,
		auditService:    auditService,
		contentProvider: contentProvider,
	}
}

// nominationLogPayload identifies the nomination an audit entry is about
type nominationLogPayload struct {
	Actor        logUser         `json:"actor"`
	NominationID int64           `json:"nomination_id"`
	RoundID      int64           `json:"round_id"`
	GameMode     models.GameMode `json:"game_mode"`
	Beatmapset   logBeatmapset   `json:"beatmapset"`
}

func (s *NominationService) logPayload(ctx context.Context, tx *sql.Tx, actorID int64, n *models.Nomination) (nominationLogPayload, error) {
	actor, err := s.auditService.actorSnapshot(ctx, actorID)
	if err != nil {
		return nominationLogPayload{}, err
	}
	set, err := s.beatmapsetRepo.WithTx(tx).GetByID(ctx, n.BeatmapsetID)
	if err != nil {
		return nominationLogPayload{}, err
	}
	snapshot := beatmapsetSnapshot(set)
	snapshot.ID = n.BeatmapsetID
	return nominationLogPayload{
		Actor:        actor,
		NominationID: n.ID,
		RoundID:      n.RoundID,
		GameMode:     n.GameMode,
		Beatmapset:   snapshot,
	}, nil
}

// lockNomination loads and locks a nomination inside tx
func (s *NominationService) lockNomination(ctx context.Context, tx *sql.Tx, id int64) (*models.Nomination, error) {
	n, err := s.nominationRepo.WithTx(tx).GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, notFoundf("nomination #%d not found", id)
	}
	return n, nil
}

// getNomination loads a nomination without locking it
func (s *NominationService) getNomination(ctx context.Context, id int64) (*models.Nomination, error) {
	n, err := s.nominationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, notFoundf("nomination #%d not found", id)
	}
	return n, nil
}

// GetNomination retrieves one nomination with all its relations
func (s *NominationService) GetNomination(ctx context.Context, id int64) (*models.Nomination, error) {
	n, err := s.getNomination(ctx, id)
	if err != nil {
		return nil, err
	}

	nominations, err := s.ListNominations(ctx, n.RoundID)
	if err != nil {
		return nil, err
	}
	for i := range nominations {
		if nominations[i].ID == id {
			return &nominations[i], nil
		}
	}
	return nil, invariantf("nomination #%d missing from round #%d", id, n.RoundID)
}

// CreateNomination nominates a beatmapset in one game mode of a round. The
// actor becomes its first nominator.
func (s *NominationService) CreateNomination(ctx context.Context, caps *auth.Capabilities, input NominationInput) (*models.Nomination, error) {
	if !input.GameMode.Valid() {
		return nil, validationErrorf("invalid game mode %d", input.GameMode)
	}
	if !caps.HasForMode(models.RoleCaptain, input.GameMode) {
		return nil, forbiddenf("nominating requires the captain role for %s", input.GameMode)
	}

	round, err := s.roundRepo.GetByID(ctx, input.RoundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, notFoundf("round #%d not found", input.RoundID)
	}

	if input.ParentID != nil {
		parent, err := s.nominationRepo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, notFoundf("parent nomination #%d not found", *input.ParentID)
		}
	}

	set, err := resolveBeatmapset(ctx, s.contentProvider, input.BeatmapsetID, true)
	if errors.Is(err, ErrNotFound) {
		return nil, validationErrorf("beatmapset #%d could not be resolved", input.BeatmapsetID)
	}
	if err != nil {
		return nil, err
	}
	if err := checkNominatable(set, input.GameMode); err != nil {
		return nil, err
	}

	nomination := &models.Nomination{
		RoundID:          input.RoundID,
		GameMode:         input.GameMode,
		BeatmapsetID:     set.ID,
		ParentID:         input.ParentID,
		DescriptionState: models.DescriptionStateNotReviewed,
		MetadataState:    models.MetadataStateUnchecked,
		ModeratorState:   models.ModeratorStateUnchecked,
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		roundRepo := s.roundRepo.WithTx(tx)
		nominationRepo := s.nominationRepo.WithTx(tx)

		gm, err := roundRepo.GetGameModeForUpdate(ctx, input.RoundID, input.GameMode)
		if err != nil {
			return err
		}
		if gm == nil {
			return notFoundf("round #%d has no %s settings", input.RoundID, input.GameMode)
		}
		if gm.NominationsLocked {
			return validationErrorf("nominations for %s are locked in round #%d", input.GameMode, input.RoundID)
		}

		exists, err := nominationRepo.Exists(ctx, input.RoundID, input.GameMode, set.ID)
		if err != nil {
			return err
		}
		if exists {
			return conflictf("beatmapset #%d is already nominated for %s in round #%d", set.ID, input.GameMode, input.RoundID)
		}

		nomination.Order, err = nominationRepo.NextOrder(ctx, input.RoundID, input.GameMode)
		if err != nil {
			return err
		}

		if err := nominationRepo.Create(ctx, nomination); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflictf("beatmapset #%d is already nominated for %s in round #%d", set.ID, input.GameMode, input.RoundID)
			}
			return err
		}

		return nominationRepo.AddNominator(ctx, nomination.ID, caps.UserID())
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Nomination created",
		"nomination_id", nomination.ID,
		"round_id", nomination.RoundID,
		"game_mode", nomination.GameMode,
		"beatmapset_id", nomination.BeatmapsetID)

	return s.GetNomination(ctx, nomination.ID)
}

// DeleteNomination removes a nomination with its nominators, assignees and
// excluded beatmaps. Child nominations are detached.
func (s *NominationService) DeleteNomination(ctx context.Context, caps *auth.Capabilities, id int64) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		nominationRepo := s.nominationRepo.WithTx(tx)

		n, err := s.lockNomination(ctx, tx, id)
		if err != nil {
			return err
		}

		nominatorIDs, err := nominationRepo.ListNominatorIDs(ctx, id)
		if err != nil {
			return err
		}
		if !caps.IsGod() && !slices.Contains(nominatorIDs, caps.UserID()) {
			return forbiddenf("only nominators may delete nomination #%d", id)
		}

		payload, err := s.logPayload(ctx, tx, caps.UserID(), n)
		if err != nil {
			return err
		}

		if err := nominationRepo.DeleteAssignees(ctx, id); err != nil {
			return err
		}
		if err := nominationRepo.DeleteExcludedBeatmaps(ctx, id); err != nil {
			return err
		}
		if err := nominationRepo.DeleteNominators(ctx, id); err != nil {
			return err
		}
		if err := nominationRepo.ClearChildren(ctx, id); err != nil {
			return err
		}
		if err := nominationRepo.Delete(ctx, id); err != nil {
			return err
		}

		return s.auditService.Log(ctx, tx, models.LogTypeNominationDeleted, payload)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("Nomination deleted", "nomination_id", id)
	return nil
}

type orderChange struct {
	NominationID int64 `json:"nomination_id"`
	From         int   `json:"from"`
	To           int   `json:"to"`
}

type orderLogPayload struct {
	Actor  logUser       `json:"actor"`
	Orders []orderChange `json:"orders"`
}

// ReorderNominations sets the display order of several nominations at once.
// Orders are not required to be unique.
func (s *NominationService) ReorderNominations(ctx context.Context, caps *auth.Capabilities, orders map[int64]int) error {
	if len(orders) == 0 {
		return validationErrorf("no orders given")
	}

	ids := make([]int64, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		nominationRepo := s.nominationRepo.WithTx(tx)

		nominations, err := nominationRepo.ListForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if len(nominations) != len(ids) {
			found := make(map[int64]bool, len(nominations))
			for _, n := range nominations {
				found[n.ID] = true
			}
			for _, id := range ids {
				if !found[id] {
					return notFoundf("nomination #%d not found", id)
				}
			}
		}

		for _, n := range nominations {
			if !caps.HasForMode(models.RoleCaptain, n.GameMode) {
				return forbiddenf("reordering %s nominations requires the captain role", n.GameMode)
			}
		}

		changes := make([]orderChange, 0, len(nominations))
		for _, n := range nominations {
			order := orders[n.ID]
			if err := nominationRepo.UpdateOrder(ctx, n.ID, order); err != nil {
				return err
			}
			changes = append(changes, orderChange{NominationID: n.ID, From: n.Order, To: order})
		}

		actor, err := s.auditService.actorSnapshot(ctx, caps.UserID())
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeNominationOrdersUpdated, orderLogPayload{
			Actor:  actor,
			Orders: changes,
		})
	})
}

type lockLogPayload struct {
	Actor    logUser         `json:"actor"`
	RoundID  int64           `json:"round_id"`
	GameMode models.GameMode `json:"game_mode"`
	Locked   change[bool]    `json:"locked"`
}

// LockNominations opens or closes one game mode of a round for new nominations
func (s *NominationService) LockNominations(ctx context.Context, caps *auth.Capabilities, roundID int64, mode models.GameMode, locked bool) (*models.RoundGameMode, error) {
	if !mode.Valid() {
		return nil, validationErrorf("invalid game mode %d", mode)
	}
	if !caps.Has(models.RoleNews) && !caps.HasForMode(models.RoleCaptain, mode) {
		return nil, forbiddenf("locking %s nominations requires the news or captain role", mode)
	}

	var result *models.RoundGameMode
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		roundRepo := s.roundRepo.WithTx(tx)

		gm, err := roundRepo.GetGameModeForUpdate(ctx, roundID, mode)
		if err != nil {
			return err
		}
		if gm == nil {
			return notFoundf("round #%d has no %s settings", roundID, mode)
		}

		if err := roundRepo.SetNominationsLocked(ctx, roundID, mode, locked); err != nil {
			return err
		}

		actor, err := s.auditService.actorSnapshot(ctx, caps.UserID())
		if err != nil {
			return err
		}
		err = s.auditService.Log(ctx, tx, models.LogTypeRoundNominationsLocked, lockLogPayload{
			Actor:    actor,
			RoundID:  roundID,
			GameMode: mode,
			Locked:   change[bool]{From: gm.NominationsLocked, To: locked},
		})
		if err != nil {
			return err
		}

		gm.NominationsLocked = locked
		result = gm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListNominations retrieves every nomination of a round with its beatmapset,
// beatmaps, creators, nominators, assignees, poll and description author.
// Each relation is fetched once for the whole round.
func (s *NominationService) ListNominations(ctx context.Context, roundID int64) ([]models.Nomination, error) {
	nominations, err := s.nominationRepo.ListByRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if len(nominations) == 0 {
		return []models.Nomination{}, nil
	}

	var (
		beatmaps    []repository.NominationBeatmap
		creators    []repository.NominationUser
		nominators  []repository.NominationUser
		assignees   []repository.NominationUser
		authors     []repository.NominationUser
		beatmapsets []repository.NominationBeatmapset
		polls       []repository.NominationPoll
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		beatmaps, err = s.nominationRepo.ListRoundBeatmaps(gctx, roundID)
		return err
	})
	g.Go(func() (err error) {
		creators, err = s.nominationRepo.ListRoundCreators(gctx, roundID)
		return err
	})
	g.Go(func() (err error) {
		nominators, err = s.nominationRepo.ListRoundNominators(gctx, roundID)
		return err
	})
	g.Go(func() (err error) {
		assignees, err = s.nominationRepo.ListRoundAssignees(gctx, roundID)
		return err
	})
	g.Go(func() (err error) {
		authors, err = s.nominationRepo.ListRoundDescriptionAuthors(gctx, roundID)
		return err
	})
	g.Go(func() (err error) {
		beatmapsets, err = s.nominationRepo.ListRoundBeatmapsets(gctx, roundID)
		return err
	})
	g.Go(func() (err error) {
		polls, err = s.nominationRepo.ListRoundPolls(gctx, roundID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byNominationUser := func(row repository.NominationUser) int64 { return row.NominationID }
	userIdentity := func(row repository.NominationUser) int64 { return row.User.ID }

	beatmapsBy := collection.GroupUnique(beatmaps,
		func(row repository.NominationBeatmap) int64 { return row.NominationID },
		func(row repository.NominationBeatmap) int64 { return row.Beatmap.ID },
	)
	creatorsBy := collection.GroupUnique(creators, byNominationUser, userIdentity)
	nominatorsBy := collection.GroupUnique(nominators, byNominationUser, userIdentity)
	assigneesBy := collection.GroupUnique(assignees, byNominationUser,
		func(row repository.NominationUser) [2]int64 { return [2]int64{int64(row.Type), row.User.ID} },
	)
	authorsBy := collection.GroupUnique(authors, byNominationUser, userIdentity)
	beatmapsetsBy := collection.GroupUnique(beatmapsets,
		func(row repository.NominationBeatmapset) int64 { return row.NominationID },
		func(row repository.NominationBeatmapset) int64 { return row.Beatmapset.ID },
	)
	pollsBy := collection.GroupUnique(polls,
		func(row repository.NominationPoll) int64 { return row.NominationID },
		func(row repository.NominationPoll) int64 { return row.Poll.ID },
	)

	for i := range nominations {
		n := &nominations[i]

		n.Beatmaps = make([]models.Beatmap, 0, len(beatmapsBy[n.ID]))
		for _, row := range beatmapsBy[n.ID] {
			n.Beatmaps = append(n.Beatmaps, row.Beatmap)
		}
		sortBeatmaps(n.Beatmaps)

		n.BeatmapsetCreators = usersOf(creatorsBy[n.ID])
		n.Nominators = usersOf(nominatorsBy[n.ID])
		n.MetadataAssignees = []models.User{}
		n.ModeratorAssignees = []models.User{}
		for _, row := range assigneesBy[n.ID] {
			switch row.Type {
			case models.AssigneeTypeMetadata:
				n.MetadataAssignees = append(n.MetadataAssignees, row.User)
			case models.AssigneeTypeModerator:
				n.ModeratorAssignees = append(n.ModeratorAssignees, row.User)
			}
		}

		if rows := authorsBy[n.ID]; len(rows) > 0 {
			author := rows[0].User
			n.DescriptionAuthor = &author
		}
		if rows := beatmapsetsBy[n.ID]; len(rows) > 0 {
			set := rows[0].Beatmapset
			n.Beatmapset = &set
		}
		if rows := pollsBy[n.ID]; len(rows) > 0 {
			poll := rows[0].Poll
			n.Poll = &poll
		}
	}

	return nominations, nil
}

func usersOf(rows []repository.NominationUser) []models.User {
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.User)
	}
	return users
}

// sortBeatmaps orders beatmaps by key count, then star rating. Beatmaps
// without a key count sort first.
func sortBeatmaps(beatmaps []models.Beatmap) {
	keyCount := func(b models.Beatmap) int {
		if b.KeyCount == nil {
			return 0
		}
		return *b.KeyCount
	}
	slices.SortStableFunc(beatmaps, func(a, b models.Beatmap) int {
		return cmp.Or(
			cmp.Compare(keyCount(a), keyCount(b)),
			cmp.Compare(a.StarRating, b.StarRating),
		)
	})
}
