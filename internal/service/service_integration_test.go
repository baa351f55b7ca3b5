package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loved-api/internal/auth"
	"loved-api/internal/cache"
	"loved-api/internal/content"
	"loved-api/internal/models"
	"loved-api/internal/repository"
	"loved-api/internal/testutil"
)

type testEnv struct {
	db          *sql.DB
	api         *testutil.FakeAPI
	resolver    *content.Resolver
	invalidator *testutil.RecordingInvalidator

	consents    *ConsentService
	reviews     *ReviewService
	nominations *NominationService
	rounds      *RoundService
	audit       *AuditService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupPostgres(t)

	api := testutil.NewFakeAPI()
	resolver := content.NewResolver(db, api)
	invalidator := &testutil.RecordingInvalidator{}

	userRepo := repository.NewUserRepository(db)
	beatmapsetRepo := repository.NewBeatmapsetRepository(db)
	roundRepo := repository.NewRoundRepository(db)

	auditService := NewAuditService(repository.NewAuditRepository(db), userRepo)
	nominationService := NewNominationService(db, repository.NewNominationRepository(db), roundRepo, beatmapsetRepo, userRepo, auditService, resolver)

	return &testEnv{
		db:          db,
		api:         api,
		resolver:    resolver,
		invalidator: invalidator,
		consents:    NewConsentService(db, repository.NewConsentRepository(db), beatmapsetRepo, auditService, resolver, invalidator),
		reviews:     NewReviewService(db, repository.NewReviewRepository(db), repository.NewSubmissionRepository(db), auditService, resolver, invalidator),
		nominations: nominationService,
		rounds:      NewRoundService(db, roundRepo, nominationService, auditService, 0.85),
		audit:       auditService,
	}
}

// actor stores a user with the given roles and returns its capabilities
func (e *testEnv) actor(t *testing.T, id int64, name string, roles ...models.UserRole) *auth.Capabilities {
	t.Helper()
	testutil.CreateUser(t, e.db, id, name)
	for i := range roles {
		roles[i] = testutil.GrantRole(t, e.db, id, roles[i].Role, roles[i].GameMode)
	}
	return auth.NewCapabilities(id, roles)
}

func (e *testEnv) beatmapset(t *testing.T, id int64, modes ...models.GameMode) *models.Beatmapset {
	t.Helper()
	e.api.AddBeatmapset(testutil.NewBeatmapset(id, 900, modes...))
	set, err := e.resolver.Beatmapset(context.Background(), id, true)
	require.NoError(t, err)
	return set
}

func captainOf(mode models.GameMode) models.UserRole {
	return models.UserRole{Role: models.RoleCaptain, GameMode: mode}
}

func anyMode(role models.Role) models.UserRole {
	return models.UserRole{Role: role, GameMode: models.GameModeAny}
}

func TestSubmitReviewSupersedesOpenSubmissions(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	reviewer := env.actor(t, 10, "reviewer")
	env.beatmapset(t, 100, models.GameModeOsu)
	testutil.CreateSubmission(t, env.db, 100, models.GameModeOsu, 10)
	testutil.CreateSubmission(t, env.db, 100, models.GameModeOsu, 10)
	testutil.CreateSubmission(t, env.db, 100, models.GameModeTaiko, 10)
	_, err := env.db.Exec(`
		INSERT INTO submissions (beatmapset_id, game_mode, submitter_id, reason, submitted_at)
		VALUES (100, $1, 10, 'closed', CURRENT_TIMESTAMP)
	`, models.GameModeOsu)
	require.NoError(t, err)

	result, err := env.reviews.SubmitReview(ctx, reviewer, ReviewInput{
		BeatmapsetID: 100,
		GameMode:     models.GameModeOsu,
		Score:        ScoreSupport,
		Reason:       "fun map",
	})
	require.NoError(t, err)

	assert.Equal(t, ScoreSupport, result.Review.Score)
	assert.False(t, result.ActiveCaptain)
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "submissions", "beatmapset_id = $1 AND game_mode = $2 AND reason IS NULL", 100, models.GameModeOsu))
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "submissions", "game_mode = $1", models.GameModeTaiko))
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "submissions", "reason IS NOT NULL"))
	assert.Equal(t, 2, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeSubmissionDeleted))
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeReviewCreated))
	assert.Contains(t, env.invalidator.Keys(), cache.SubmissionsReviewsKey(models.GameModeOsu))
}

func TestSubmitReviewUnchangedWritesNoUpdateLog(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	reviewer := env.actor(t, 10, "reviewer")
	env.beatmapset(t, 100, models.GameModeTaiko)

	input := ReviewInput{BeatmapsetID: 100, GameMode: models.GameModeTaiko, Score: ScoreStrongSupport, Reason: "great"}
	first, err := env.reviews.SubmitReview(ctx, reviewer, input)
	require.NoError(t, err)
	second, err := env.reviews.SubmitReview(ctx, reviewer, input)
	require.NoError(t, err)

	assert.Equal(t, first.Review.ID, second.Review.ID)
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "reviews", ""))
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeReviewUpdated))

	input.Reason = "even better on replay"
	_, err = env.reviews.SubmitReview(ctx, reviewer, input)
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeReviewUpdated))
}

func TestSubmitReviewDeprecatedScores(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	veteran := env.actor(t, 10, "veteran")
	newcomer := env.actor(t, 11, "newcomer")
	env.beatmapset(t, 100, models.GameModeOsu)

	_, err := env.db.Exec(`
		INSERT INTO reviews (beatmapset_id, game_mode, reviewer_id, score, reason)
		VALUES ($1, $2, $3, $4, 'old review')
	`, 100, models.GameModeOsu, 10, ScoreDeprecatedSupport)
	require.NoError(t, err)

	result, err := env.reviews.SubmitReview(ctx, veteran, ReviewInput{
		BeatmapsetID: 100, GameMode: models.GameModeOsu, Score: ScoreDeprecatedSupport, Reason: "reworded",
	})
	require.NoError(t, err)
	assert.Equal(t, ScoreDeprecatedSupport, result.Review.Score)
	assert.Equal(t, "reworded", result.Review.Reason)

	_, err = env.reviews.SubmitReview(ctx, veteran, ReviewInput{
		BeatmapsetID: 100, GameMode: models.GameModeOsu, Score: ScoreDeprecatedReject, Reason: "changed mind",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.reviews.SubmitReview(ctx, newcomer, ReviewInput{
		BeatmapsetID: 100, GameMode: models.GameModeOsu, Score: ScoreDeprecatedSupport, Reason: "nice",
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "reviews", "reviewer_id = $1", 11))
}

func TestNeutralReviewRequiresCaptain(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	reviewer := env.actor(t, 10, "reviewer", captainOf(models.GameModeMania))
	env.beatmapset(t, 100, models.GameModeOsu, models.GameModeMania)

	_, err := env.reviews.SubmitReview(ctx, reviewer, ReviewInput{
		BeatmapsetID: 100, GameMode: models.GameModeOsu, Score: ScoreNeutral, Reason: "unsure",
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "reviews", ""))

	result, err := env.reviews.SubmitReview(ctx, reviewer, ReviewInput{
		BeatmapsetID: 100, GameMode: models.GameModeMania, Score: ScoreNeutral, Reason: "unsure",
	})
	require.NoError(t, err)
	assert.True(t, result.ActiveCaptain)
}

func TestSubmitReviewManyIsAtomic(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	reviewer := env.actor(t, 10, "reviewer")
	env.beatmapset(t, 100, models.GameModeOsu, models.GameModeTaiko)

	_, err := env.reviews.SubmitReviewMany(ctx, reviewer, ReviewManyInput{
		BeatmapsetID: 100,
		GameModes:    []models.GameMode{models.GameModeOsu, models.GameModeCatch},
		Score:        ScoreSupport,
		Reason:       "fun",
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "reviews", ""))

	results, err := env.reviews.SubmitReviewMany(ctx, reviewer, ReviewManyInput{
		BeatmapsetID: 100,
		GameModes:    []models.GameMode{models.GameModeTaiko, models.GameModeOsu, models.GameModeTaiko},
		Score:        ScoreSupport,
		Reason:       "fun",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, models.GameModeOsu, results[0].Review.GameMode)
	assert.Equal(t, models.GameModeTaiko, results[1].Review.GameMode)
}

func TestDeleteReviewOnlyByReviewer(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	reviewer := env.actor(t, 10, "reviewer")
	other := env.actor(t, 11, "other", anyMode(models.RoleGod))
	env.beatmapset(t, 100, models.GameModeOsu)

	result, err := env.reviews.SubmitReview(ctx, reviewer, ReviewInput{
		BeatmapsetID: 100, GameMode: models.GameModeOsu, Score: ScoreRejection, Reason: "meh",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, env.reviews.DeleteReview(ctx, other, result.Review.ID), ErrForbidden)
	require.NoError(t, env.reviews.DeleteReview(ctx, reviewer, result.Review.ID))
	assert.ErrorIs(t, env.reviews.DeleteReview(ctx, reviewer, result.Review.ID), ErrNotFound)
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeReviewDeleted))
}

func TestSetConsentUnresolvableBeatmapset(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	mapper := env.actor(t, 20, "mapper")
	yes := models.ConsentYes

	_, err := env.consents.SetConsent(ctx, mapper, ConsentInput{
		UserID:  20,
		Consent: &yes,
		Beatmapsets: []BeatmapsetConsentInput{
			{BeatmapsetID: 999, Consent: models.ConsentNo},
		},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "mapper_consents", ""))
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "audit_logs", ""))
}

func TestSetConsentForOtherMapper(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	stranger := env.actor(t, 10, "stranger")
	captain := env.actor(t, 11, "captain", captainOf(models.GameModeOsu))
	testutil.CreateUser(t, env.db, 20, "mapper")
	env.beatmapset(t, 100, models.GameModeOsu)
	no := models.ConsentNo

	input := ConsentInput{
		UserID:      20,
		Consent:     &no,
		Beatmapsets: []BeatmapsetConsentInput{{BeatmapsetID: 100, Consent: models.ConsentYes}},
	}

	_, err := env.consents.SetConsent(ctx, stranger, input)
	assert.ErrorIs(t, err, ErrForbidden)

	consent, err := env.consents.SetConsent(ctx, captain, input)
	require.NoError(t, err)
	require.NotNil(t, consent.Consent)
	assert.Equal(t, models.ConsentNo, *consent.Consent)
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "mapper_consent_beatmapsets", "user_id = $1", 20))
	assert.Subset(t, env.invalidator.Keys(), []string{
		cache.KeyMapperConsents,
		cache.KeySubmissionsMapperConsentSets,
		cache.KeySubmissionsMapperConsents,
	})

	input.Beatmapsets = nil
	_, err = env.consents.SetConsent(ctx, captain, input)
	require.NoError(t, err)
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "mapper_consent_beatmapsets", "user_id = $1", 20))
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeMapperConsentBeatmapsetDeleted))
}

func TestSetConsentRejectsUnreachable(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	mapper := env.actor(t, 20, "mapper")
	env.beatmapset(t, 100, models.GameModeOsu)
	unreachable := models.ConsentUnreachable
	yes := models.ConsentYes

	tests := []struct {
		name  string
		input ConsentInput
	}{
		{"top level", ConsentInput{UserID: 20, Consent: &unreachable}},
		{"per beatmapset", ConsentInput{
			UserID:      20,
			Consent:     &yes,
			Beatmapsets: []BeatmapsetConsentInput{{BeatmapsetID: 100, Consent: models.ConsentUnreachable}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.consents.SetConsent(ctx, mapper, tt.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.Equal(t, 0, testutil.CountRows(t, env.db, "mapper_consents", ""))
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "mapper_consent_beatmapsets", ""))
	assert.Empty(t, env.invalidator.Keys())
}

func TestRoundsCreateAndList(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	news := env.actor(t, 1, "news", anyMode(models.RoleNews))
	captain := env.actor(t, 2, "captain", captainOf(models.GameModeOsu))

	_, err := env.rounds.CreateRound(ctx, captain)
	assert.ErrorIs(t, err, ErrForbidden)

	first, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)
	second, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)

	assert.Equal(t, "Unnamed round", first.Name)
	require.Len(t, first.GameModes, len(models.GameModes))
	assert.InDelta(t, 0.85, first.GameModes[0].VotingThreshold, 1e-9)

	list, err := env.rounds.ListRounds(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Complete)
	require.Len(t, list.Incomplete, 2)
	assert.Equal(t, first.ID, list.Incomplete[0].ID)
	assert.Equal(t, second.ID, list.Incomplete[1].ID)

	name := "Round #1"
	updated, err := env.rounds.UpdateRound(ctx, news, first.ID, RoundInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	_, err = env.rounds.UpdateRound(ctx, news, first.ID, RoundInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeRoundUpdated))
}

func TestNominationOrderAndCascadeDelete(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	news := env.actor(t, 1, "news", anyMode(models.RoleNews))
	captain := env.actor(t, 2, "captain", captainOf(models.GameModeOsu))
	env.actor(t, 3, "helper", anyMode(models.RoleMetadata))
	for _, id := range []int64{100, 101, 102} {
		env.api.AddBeatmapset(testutil.NewBeatmapset(id, 900, models.GameModeOsu))
	}

	round, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)

	nominate := func(setID int64) *models.Nomination {
		t.Helper()
		n, err := env.nominations.CreateNomination(ctx, captain, NominationInput{
			RoundID: round.ID, GameMode: models.GameModeOsu, BeatmapsetID: setID,
		})
		require.NoError(t, err)
		return n
	}

	a := nominate(100)
	b := nominate(101)
	assert.Greater(t, b.Order, a.Order)
	require.Len(t, b.Nominators, 1)
	assert.Equal(t, int64(2), b.Nominators[0].ID)

	_, err = env.nominations.CreateNomination(ctx, captain, NominationInput{
		RoundID: round.ID, GameMode: models.GameModeOsu, BeatmapsetID: 100,
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.nominations.SetNominators(ctx, captain, a.ID, []int64{2, 3})
	require.NoError(t, err)
	_, err = env.nominations.SetAssignees(ctx, news, a.ID, models.AssigneeTypeMetadata, []int64{3})
	require.NoError(t, err)
	_, err = env.nominations.SetExcludedBeatmaps(ctx, captain, a.ID, []int64{a.Beatmaps[0].ID})
	require.NoError(t, err)

	require.NoError(t, env.nominations.DeleteNomination(ctx, captain, a.ID))
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "nomination_nominators", "nomination_id = $1", a.ID))
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "nomination_assignees", "nomination_id = $1", a.ID))
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "nomination_excluded_beatmaps", "nomination_id = $1", a.ID))

	c := nominate(102)
	assert.Greater(t, c.Order, b.Order)

	_, nominations, err := env.rounds.GetRound(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, nominations, 2)
}

func TestCreateNominationRules(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	news := env.actor(t, 1, "news", anyMode(models.RoleNews))
	captain := env.actor(t, 2, "captain", captainOf(models.GameModeOsu))
	env.api.AddBeatmapset(testutil.NewBeatmapset(100, 900, models.GameModeOsu))
	loved := testutil.NewBeatmapset(101, 900, models.GameModeOsu)
	loved.RankedStatus = models.RankedStatusLoved
	env.api.AddBeatmapset(loved)

	round, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)

	tests := []struct {
		name    string
		caps    *auth.Capabilities
		input   NominationInput
		wantErr error
	}{
		{"wrong mode captain", captain, NominationInput{RoundID: round.ID, GameMode: models.GameModeTaiko, BeatmapsetID: 100}, ErrForbidden},
		{"missing round", captain, NominationInput{RoundID: round.ID + 100, GameMode: models.GameModeOsu, BeatmapsetID: 100}, ErrNotFound},
		{"unknown beatmapset", captain, NominationInput{RoundID: round.ID, GameMode: models.GameModeOsu, BeatmapsetID: 555}, ErrValidation},
		{"already loved", captain, NominationInput{RoundID: round.ID, GameMode: models.GameModeOsu, BeatmapsetID: 101}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.nominations.CreateNomination(ctx, tt.caps, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = env.nominations.LockNominations(ctx, captain, round.ID, models.GameModeOsu, true)
	require.NoError(t, err)
	_, err = env.nominations.CreateNomination(ctx, captain, NominationInput{RoundID: round.ID, GameMode: models.GameModeOsu, BeatmapsetID: 100})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "nominations", ""))
}

func TestDescriptionReviewFlow(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	news := env.actor(t, 1, "news", anyMode(models.RoleNews))
	captain := env.actor(t, 2, "captain", captainOf(models.GameModeOsu))
	env.api.AddBeatmapset(testutil.NewBeatmapset(100, 900, models.GameModeOsu))

	round, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)
	n, err := env.nominations.CreateNomination(ctx, captain, NominationInput{RoundID: round.ID, GameMode: models.GameModeOsu, BeatmapsetID: 100})
	require.NoError(t, err)

	_, err = env.nominations.EditDescription(ctx, news, n.ID, ptr("news first"))
	assert.ErrorIs(t, err, ErrForbidden)

	n, err = env.nominations.EditDescription(ctx, captain, n.ID, ptr("a draft"))
	require.NoError(t, err)
	require.NotNil(t, n.DescriptionAuthorID)
	assert.Equal(t, int64(2), *n.DescriptionAuthorID)
	assert.Equal(t, models.DescriptionStateNotReviewed, n.DescriptionState)

	n, err = env.nominations.EditDescription(ctx, news, n.ID, ptr("a polished draft"))
	require.NoError(t, err)
	assert.Equal(t, models.DescriptionStateReviewed, n.DescriptionState)
	assert.Equal(t, int64(2), *n.DescriptionAuthorID)

	_, err = env.nominations.EditDescription(ctx, captain, n.ID, ptr("captain again"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.nominations.EditDescription(ctx, news, n.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 2, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeNominationDescriptionEdited))
}

func TestMetadataAndModerationChecks(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	news := env.actor(t, 1, "news", anyMode(models.RoleNews))
	captain := env.actor(t, 2, "captain", captainOf(models.GameModeOsu))
	checker := env.actor(t, 3, "checker", anyMode(models.RoleMetadata))
	moderator := env.actor(t, 4, "moderator", anyMode(models.RoleModerator))
	env.api.AddUser(&models.User{ID: 900, Name: "mapper900", Country: "XX"})
	env.api.AddBeatmapset(testutil.NewBeatmapset(100, 900, models.GameModeOsu))

	round, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)
	n, err := env.nominations.CreateNomination(ctx, captain, NominationInput{RoundID: round.ID, GameMode: models.GameModeOsu, BeatmapsetID: 100})
	require.NoError(t, err)

	artist := "Fixed Artist"
	_, err = env.nominations.EditMetadata(ctx, news, n.ID, MetadataInput{State: models.MetadataStateNeedsChange, Artist: &artist})
	assert.ErrorIs(t, err, ErrForbidden)

	n, err = env.nominations.EditMetadata(ctx, checker, n.ID, MetadataInput{
		State:    models.MetadataStateNeedsChange,
		Artist:   &artist,
		Creators: []string{"mapper900"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MetadataStateNeedsChange, n.MetadataState)
	require.NotNil(t, n.OverwriteArtist)
	assert.Equal(t, artist, *n.OverwriteArtist)
	require.Len(t, n.BeatmapsetCreators, 1)
	assert.Equal(t, int64(900), n.BeatmapsetCreators[0].ID)

	calls := env.api.Calls
	_, err = env.nominations.EditMetadata(ctx, news, n.ID, MetadataInput{
		State:    models.MetadataStateGood,
		Creators: []string{"mapper900"},
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, calls, env.api.Calls, "rejected check must not reach the osu! API")

	n, err = env.nominations.EditMetadata(ctx, checker, n.ID, MetadataInput{State: models.MetadataStateGood, Artist: &artist})
	require.NoError(t, err)
	assert.Equal(t, models.MetadataStateGood, n.MetadataState)
	assert.Nil(t, n.OverwriteArtist)

	_, err = env.nominations.EditModeration(ctx, captain, n.ID, models.ModeratorStateGood)
	assert.ErrorIs(t, err, ErrForbidden)
	n, err = env.nominations.EditModeration(ctx, moderator, n.ID, models.ModeratorStateGood)
	require.NoError(t, err)
	assert.Equal(t, models.ModeratorStateGood, n.ModeratorState)

	logs, err := env.audit.List(ctx, models.LogTypeNominationMetadataEdited, 10, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestReorderNominations(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	news := env.actor(t, 1, "news", anyMode(models.RoleNews))
	osuCaptain := env.actor(t, 2, "osu captain", captainOf(models.GameModeOsu))
	taikoCaptain := env.actor(t, 3, "taiko captain", captainOf(models.GameModeTaiko))
	env.api.AddBeatmapset(testutil.NewBeatmapset(100, 900, models.GameModeOsu))
	env.api.AddBeatmapset(testutil.NewBeatmapset(101, 900, models.GameModeOsu))
	env.api.AddBeatmapset(testutil.NewBeatmapset(102, 900, models.GameModeTaiko))

	round, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)

	nominate := func(caps *auth.Capabilities, setID int64, mode models.GameMode) *models.Nomination {
		t.Helper()
		n, err := env.nominations.CreateNomination(ctx, caps, NominationInput{RoundID: round.ID, GameMode: mode, BeatmapsetID: setID})
		require.NoError(t, err)
		return n
	}
	a := nominate(osuCaptain, 100, models.GameModeOsu)
	b := nominate(osuCaptain, 101, models.GameModeOsu)
	c := nominate(taikoCaptain, 102, models.GameModeTaiko)

	orderOf := func(id int64) int {
		t.Helper()
		n, err := env.nominations.GetNomination(ctx, id)
		require.NoError(t, err)
		return n.Order
	}

	require.NoError(t, env.nominations.ReorderNominations(ctx, osuCaptain, map[int64]int{a.ID: 5, b.ID: 5}))
	assert.Equal(t, 5, orderOf(a.ID))
	assert.Equal(t, 5, orderOf(b.ID))

	err = env.nominations.ReorderNominations(ctx, osuCaptain, map[int64]int{a.ID: 1, c.ID: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 5, orderOf(a.ID))
	assert.Equal(t, c.Order, orderOf(c.ID))

	err = env.nominations.ReorderNominations(ctx, osuCaptain, map[int64]int{a.ID: 1, c.ID + 100: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 5, orderOf(a.ID))

	assert.Equal(t, 1, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeNominationOrdersUpdated))
}

func TestListNominationsGraph(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	news := env.actor(t, 1, "news", anyMode(models.RoleNews))
	captain := env.actor(t, 2, "captain", captainOf(models.GameModeMania))
	env.actor(t, 3, "checker", anyMode(models.RoleMetadata))
	env.actor(t, 4, "moderator", anyMode(models.RoleModerator))

	set := testutil.NewBeatmapset(200, 900, models.GameModeMania, models.GameModeMania, models.GameModeMania, models.GameModeOsu)
	seven, four := 7, 4
	set.Beatmaps[0].KeyCount, set.Beatmaps[0].StarRating = &seven, 1
	set.Beatmaps[1].KeyCount, set.Beatmaps[1].StarRating = &four, 5
	set.Beatmaps[2].KeyCount, set.Beatmaps[2].StarRating = &four, 2
	env.api.AddBeatmapset(set)

	round, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)
	n, err := env.nominations.CreateNomination(ctx, captain, NominationInput{RoundID: round.ID, GameMode: models.GameModeMania, BeatmapsetID: 200})
	require.NoError(t, err)

	_, err = env.nominations.SetExcludedBeatmaps(ctx, captain, n.ID, []int64{20001})
	require.NoError(t, err)
	_, err = env.nominations.SetExcludedBeatmaps(ctx, captain, n.ID, []int64{10000})
	assert.ErrorIs(t, err, ErrValidation, "beatmap of another beatmapset")
	_, err = env.nominations.SetAssignees(ctx, news, n.ID, models.AssigneeTypeMetadata, []int64{3})
	require.NoError(t, err)
	_, err = env.nominations.SetAssignees(ctx, news, n.ID, models.AssigneeTypeModerator, []int64{4, 4})
	require.NoError(t, err)

	nominations, err := env.nominations.ListNominations(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, nominations, 1)
	got := nominations[0]

	require.NotNil(t, got.Beatmapset)
	assert.Equal(t, int64(200), got.Beatmapset.ID)

	ids := make([]int64, 0, len(got.Beatmaps))
	excluded := make(map[int64]bool, len(got.Beatmaps))
	for _, b := range got.Beatmaps {
		ids = append(ids, b.ID)
		excluded[b.ID] = b.Excluded
	}
	assert.Equal(t, []int64{20002, 20001, 20000}, ids)
	assert.Equal(t, map[int64]bool{20000: false, 20001: true, 20002: false}, excluded)

	require.Len(t, got.MetadataAssignees, 1)
	assert.Equal(t, int64(3), got.MetadataAssignees[0].ID)
	require.Len(t, got.ModeratorAssignees, 1)
	assert.Equal(t, int64(4), got.ModeratorAssignees[0].ID)
	require.Len(t, got.Nominators, 1)
	assert.Equal(t, int64(2), got.Nominators[0].ID)
}

func TestSetNominatorsEmptyClearsAll(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	news := env.actor(t, 1, "news", anyMode(models.RoleNews))
	captain := env.actor(t, 2, "captain", captainOf(models.GameModeOsu))
	env.actor(t, 3, "helper")
	env.api.AddBeatmapset(testutil.NewBeatmapset(100, 900, models.GameModeOsu))

	round, err := env.rounds.CreateRound(ctx, news)
	require.NoError(t, err)
	n, err := env.nominations.CreateNomination(ctx, captain, NominationInput{RoundID: round.ID, GameMode: models.GameModeOsu, BeatmapsetID: 100})
	require.NoError(t, err)

	n, err = env.nominations.SetNominators(ctx, captain, n.ID, []int64{2, 3})
	require.NoError(t, err)
	assert.Len(t, n.Nominators, 2)

	n, err = env.nominations.SetNominators(ctx, captain, n.ID, []int64{})
	require.NoError(t, err)
	assert.Empty(t, n.Nominators)
	assert.Equal(t, 0, testutil.CountRows(t, env.db, "nomination_nominators", "nomination_id = $1", n.ID))
	assert.Equal(t, 2, testutil.CountRows(t, env.db, "audit_logs", "type = $1", models.LogTypeNominationNominatorsUpdated))
}

func ptr[T any](v T) *T {
	return &v
}
