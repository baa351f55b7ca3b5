package service

import (
	"context"
	"database/sql"
	"slices"

	"loved-api/internal/auth"
	"loved-api/internal/collection"
	"loved-api/internal/content"
	"loved-api/internal/database"
	"loved-api/internal/models"
)

// MetadataInput is a metadata check result. Creators, when non-empty, are user
// names that replace the beatmapset's creator credits for the nomination's mode.
type MetadataInput struct {
	State    models.MetadataState `json:"state" validate:"min=0,max=2"`
	Artist   *string              `json:"artist" validate:"omitempty,max=255"`
	Title    *string              `json:"title" validate:"omitempty,max=255"`
	Creators []string             `json:"creators" validate:"dive,required"`
}

type descriptionLogPayload struct {
	nominationLogPayload
	Description change[*string]                 `json:"description"`
	State       change[models.DescriptionState] `json:"state"`
}

type metadataState struct {
	State  models.MetadataState `json:"state"`
	Artist *string              `json:"artist"`
	Title  *string              `json:"title"`
}

type metadataLogPayload struct {
	nominationLogPayload
	Metadata change[metadataState] `json:"metadata"`
	Creators []logUser             `json:"creators,omitempty"`
}

type moderationLogPayload struct {
	nominationLogPayload
	State change[models.ModeratorState] `json:"state"`
}

type usersLogPayload struct {
	nominationLogPayload
	Type  *models.AssigneeType `json:"type,omitempty"`
	Users change[[]logUser]    `json:"users"`
}

type excludedLogPayload struct {
	nominationLogPayload
	BeatmapIDs change[[]int64] `json:"beatmap_ids"`
}

// EditDescription writes or clears the news description of a nomination.
// Captains edit until a news editor has reviewed the text; news editors edit
// existing descriptions, which marks them reviewed.
func (s *NominationService) EditDescription(ctx context.Context, caps *auth.Capabilities, id int64, description *string) (*models.Nomination, error) {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		n, err := s.lockNomination(ctx, tx, id)
		if err != nil {
			return err
		}

		isCaptain := caps.HasForMode(models.RoleCaptain, n.GameMode)
		isNews := caps.Has(models.RoleNews)

		captainMayEdit := isCaptain && n.DescriptionState != models.DescriptionStateReviewed
		newsMayEdit := isNews && n.Description != nil
		if !captainMayEdit && !newsMayEdit {
			return forbiddenf("not allowed to edit the description of nomination #%d", id)
		}
		if description == nil && !isCaptain {
			return forbiddenf("clearing a description requires the captain role for %s", n.GameMode)
		}

		from := *n
		n.Description = description
		switch {
		case description == nil:
			n.DescriptionAuthorID = nil
		case n.DescriptionAuthorID == nil:
			authorID := caps.UserID()
			n.DescriptionAuthorID = &authorID
		}
		if isNews && from.Description != nil && description != nil {
			n.DescriptionState = models.DescriptionStateReviewed
		} else {
			n.DescriptionState = models.DescriptionStateNotReviewed
		}

		if err := s.nominationRepo.WithTx(tx).UpdateDescription(ctx, n); err != nil {
			return err
		}

		payload, err := s.logPayload(ctx, tx, caps.UserID(), n)
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeNominationDescriptionEdited, descriptionLogPayload{
			nominationLogPayload: payload,
			Description:          change[*string]{From: from.Description, To: n.Description},
			State:                change[models.DescriptionState]{From: from.DescriptionState, To: n.DescriptionState},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetNomination(ctx, id)
}

// EditMetadata records a metadata check. Moving to good drops the overwrites;
// moving from needs change to good refreshes the beatmapset first.
func (s *NominationService) EditMetadata(ctx context.Context, caps *auth.Capabilities, id int64, input MetadataInput) (*models.Nomination, error) {
	isMetadata := caps.Has(models.RoleMetadata)
	if !isMetadata && !caps.Has(models.RoleNews) {
		return nil, forbiddenf("editing metadata requires the metadata or news role")
	}
	if !input.State.Valid() {
		return nil, validationErrorf("invalid metadata state %d", input.State)
	}

	current, err := s.getNomination(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, changed := metadataTransition(current, input); changed && !isMetadata {
		return nil, forbiddenf("only metadata checkers may change the metadata state")
	}

	if current.MetadataState == models.MetadataStateNeedsChange && input.State == models.MetadataStateGood {
		if _, err := resolveBeatmapset(ctx, s.contentProvider, current.BeatmapsetID, true); err != nil {
			return nil, err
		}
	}

	creators := make([]models.User, 0, len(input.Creators))
	for _, name := range input.Creators {
		user, err := resolveUser(ctx, s.contentProvider, content.UserLookup{
			Name:        name,
			ByName:      true,
			StoreBanned: true,
		})
		if err != nil {
			return nil, err
		}
		creators = append(creators, *user)
	}
	creators = collection.Unique(creators, func(u models.User) int64 { return u.ID })

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		n, err := s.lockNomination(ctx, tx, id)
		if err != nil {
			return err
		}

		from, to, changed := metadataTransition(n, input)
		if changed && !isMetadata {
			return forbiddenf("only metadata checkers may change the metadata state")
		}

		n.MetadataState = to.State
		n.OverwriteArtist = to.Artist
		n.OverwriteTitle = to.Title
		if err := s.nominationRepo.WithTx(tx).UpdateMetadata(ctx, n); err != nil {
			return err
		}

		if len(creators) > 0 {
			creatorIDs := make([]int64, 0, len(creators))
			for _, c := range creators {
				creatorIDs = append(creatorIDs, c.ID)
			}
			if err := s.beatmapsetRepo.WithTx(tx).ReplaceCreators(ctx, n.BeatmapsetID, n.GameMode, creatorIDs); err != nil {
				return err
			}
		}

		payload, err := s.logPayload(ctx, tx, caps.UserID(), n)
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeNominationMetadataEdited, metadataLogPayload{
			nominationLogPayload: payload,
			Metadata:             change[metadataState]{From: from, To: to},
			Creators:             userSnapshots(creators),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetNomination(ctx, id)
}

// metadataTransition computes the metadata a check would move n to. A good
// state carries no overwrites.
func metadataTransition(n *models.Nomination, input MetadataInput) (from, to metadataState, changed bool) {
	from = metadataState{State: n.MetadataState, Artist: n.OverwriteArtist, Title: n.OverwriteTitle}
	to = metadataState{State: input.State, Artist: input.Artist, Title: input.Title}
	if to.State == models.MetadataStateGood {
		to.Artist = nil
		to.Title = nil
	}
	changed = from.State != to.State || !equalPtr(from.Artist, to.Artist) || !equalPtr(from.Title, to.Title)
	return from, to, changed
}

// EditModeration records a content moderation check
func (s *NominationService) EditModeration(ctx context.Context, caps *auth.Capabilities, id int64, state models.ModeratorState) (*models.Nomination, error) {
	if !caps.Has(models.RoleModerator) {
		return nil, forbiddenf("editing moderation requires the moderator role")
	}
	if !state.Valid() {
		return nil, validationErrorf("invalid moderator state %d", state)
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		n, err := s.lockNomination(ctx, tx, id)
		if err != nil {
			return err
		}

		from := n.ModeratorState
		if err := s.nominationRepo.WithTx(tx).UpdateModeratorState(ctx, id, state); err != nil {
			return err
		}

		payload, err := s.logPayload(ctx, tx, caps.UserID(), n)
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeNominationModerationEdited, moderationLogPayload{
			nominationLogPayload: payload,
			State:                change[models.ModeratorState]{From: from, To: state},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetNomination(ctx, id)
}

// resolveUserIDs resolves every ID through the content provider so that the
// users are cached before they are referenced
func (s *NominationService) resolveUserIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := resolveUser(ctx, s.contentProvider, content.UserLookup{ID: id})
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func (s *NominationService) snapshotsByID(ctx context.Context, tx *sql.Tx, ids []int64) ([]logUser, error) {
	if len(ids) == 0 {
		return []logUser{}, nil
	}
	users, err := s.userRepo.WithTx(tx).GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return userSnapshots(users), nil
}

// SetNominators replaces the nominators of a nomination
func (s *NominationService) SetNominators(ctx context.Context, caps *auth.Capabilities, id int64, userIDs []int64) (*models.Nomination, error) {
	current, err := s.getNomination(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caps.HasForMode(models.RoleCaptain, current.GameMode) {
		return nil, forbiddenf("editing nominators requires the captain role for %s", current.GameMode)
	}

	ids := uniqueIDs(userIDs)
	users, err := s.resolveUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		nominationRepo := s.nominationRepo.WithTx(tx)

		n, err := s.lockNomination(ctx, tx, id)
		if err != nil {
			return err
		}

		oldIDs, err := nominationRepo.ListNominatorIDs(ctx, id)
		if err != nil {
			return err
		}
		from, err := s.snapshotsByID(ctx, tx, oldIDs)
		if err != nil {
			return err
		}

		if err := nominationRepo.ReplaceNominators(ctx, id, ids); err != nil {
			return err
		}

		payload, err := s.logPayload(ctx, tx, caps.UserID(), n)
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeNominationNominatorsUpdated, usersLogPayload{
			nominationLogPayload: payload,
			Users:                change[[]logUser]{From: from, To: userSnapshots(users)},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetNomination(ctx, id)
}

// canAssign reports whether the actor may manage assignees of assigneeType
func canAssign(caps *auth.Capabilities, assigneeType models.AssigneeType) bool {
	if caps.Has(models.RoleNews) {
		return true
	}
	switch assigneeType {
	case models.AssigneeTypeMetadata:
		return caps.Has(models.RoleMetadata)
	case models.AssigneeTypeModerator:
		return caps.Has(models.RoleModerator)
	}
	return false
}

// SetAssignees replaces the assignees of a nomination for one check
func (s *NominationService) SetAssignees(ctx context.Context, caps *auth.Capabilities, id int64, assigneeType models.AssigneeType, userIDs []int64) (*models.Nomination, error) {
	if !assigneeType.Valid() {
		return nil, validationErrorf("invalid assignee type %d", assigneeType)
	}
	if !canAssign(caps, assigneeType) {
		return nil, forbiddenf("not allowed to assign this check")
	}

	ids := uniqueIDs(userIDs)
	users, err := s.resolveUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		nominationRepo := s.nominationRepo.WithTx(tx)

		n, err := s.lockNomination(ctx, tx, id)
		if err != nil {
			return err
		}

		oldIDs, err := nominationRepo.ListAssigneeIDs(ctx, id, assigneeType)
		if err != nil {
			return err
		}
		from, err := s.snapshotsByID(ctx, tx, oldIDs)
		if err != nil {
			return err
		}

		if err := nominationRepo.ReplaceAssignees(ctx, id, assigneeType, ids); err != nil {
			return err
		}

		payload, err := s.logPayload(ctx, tx, caps.UserID(), n)
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeNominationAssigneesUpdated, usersLogPayload{
			nominationLogPayload: payload,
			Type:                 &assigneeType,
			Users:                change[[]logUser]{From: from, To: userSnapshots(users)},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetNomination(ctx, id)
}

// SetExcludedBeatmaps replaces the beatmaps excluded from a nomination. Every
// beatmap must belong to the nominated beatmapset.
func (s *NominationService) SetExcludedBeatmaps(ctx context.Context, caps *auth.Capabilities, id int64, beatmapIDs []int64) (*models.Nomination, error) {
	current, err := s.getNomination(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caps.HasForMode(models.RoleCaptain, current.GameMode) {
		return nil, forbiddenf("excluding beatmaps requires the captain role for %s", current.GameMode)
	}

	ids := uniqueIDs(beatmapIDs)

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		nominationRepo := s.nominationRepo.WithTx(tx)

		n, err := s.lockNomination(ctx, tx, id)
		if err != nil {
			return err
		}

		if len(ids) > 0 {
			count, err := s.beatmapsetRepo.WithTx(tx).CountBeatmapsInSet(ctx, n.BeatmapsetID, ids)
			if err != nil {
				return err
			}
			if count != len(ids) {
				return validationErrorf("excluded beatmaps must belong to beatmapset #%d", n.BeatmapsetID)
			}
		}

		oldIDs, err := nominationRepo.ListExcludedBeatmapIDs(ctx, id)
		if err != nil {
			return err
		}
		if oldIDs == nil {
			oldIDs = []int64{}
		}

		if err := nominationRepo.ReplaceExcludedBeatmaps(ctx, id, ids); err != nil {
			return err
		}

		payload, err := s.logPayload(ctx, tx, caps.UserID(), n)
		if err != nil {
			return err
		}
		return s.auditService.Log(ctx, tx, models.LogTypeNominationExcludedUpdated, excludedLogPayload{
			nominationLogPayload: payload,
			BeatmapIDs:           change[[]int64]{From: oldIDs, To: slices.Clip(ids)},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetNomination(ctx, id)
}
