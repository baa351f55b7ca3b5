package service

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loved-api/internal/auth"
	"loved-api/internal/models"
)

func TestScorePolicy(t *testing.T) {
	tests := []struct {
		score       int
		valid       bool
		deprecated  bool
		needCaptain bool
	}{
		{-5, false, false, false},
		{ScoreStrongRejection, true, false, true},
		{-3, true, false, false},
		{ScoreDeprecatedReject, true, true, false},
		{ScoreRejection, true, false, false},
		{ScoreNeutral, true, false, true},
		{ScoreSupport, true, false, false},
		{ScoreDeprecatedSupport, true, true, false},
		{ScoreStrongSupport, true, false, false},
		{4, false, false, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, validScore(tt.score), "validScore(%d)", tt.score)
		assert.Equal(t, tt.deprecated, isDeprecatedScore(tt.score), "isDeprecatedScore(%d)", tt.score)
		assert.Equal(t, tt.needCaptain, requiresCaptainScore(tt.score), "requiresCaptainScore(%d)", tt.score)
	}
}

func TestAllowDeprecatedScore(t *testing.T) {
	existing := &models.Review{Score: ScoreDeprecatedSupport}

	assert.True(t, allowDeprecatedScore(nil, ScoreSupport))
	assert.True(t, allowDeprecatedScore(existing, ScoreStrongSupport))
	assert.True(t, allowDeprecatedScore(existing, ScoreDeprecatedSupport))
	assert.False(t, allowDeprecatedScore(existing, ScoreDeprecatedReject))
	assert.False(t, allowDeprecatedScore(nil, ScoreDeprecatedSupport))
	assert.False(t, allowDeprecatedScore(&models.Review{Score: ScoreSupport}, ScoreDeprecatedSupport))
}

func TestCheckNominatable(t *testing.T) {
	live := models.Beatmap{GameMode: models.GameModeTaiko}
	deleted := models.Beatmap{GameMode: models.GameModeMania, DeletedAt: new(time.Time)}

	set := &models.Beatmapset{ID: 1, RankedStatus: models.RankedStatusGraveyard, Beatmaps: []models.Beatmap{live, deleted}}
	assert.NoError(t, checkNominatable(set, models.GameModeTaiko))
	assert.ErrorIs(t, checkNominatable(set, models.GameModeMania), ErrValidation)
	assert.ErrorIs(t, checkNominatable(set, models.GameModeOsu), ErrValidation)

	set.RankedStatus = models.RankedStatusLoved
	assert.ErrorIs(t, checkNominatable(set, models.GameModeTaiko), ErrValidation)
}

func TestCanAssign(t *testing.T) {
	metadata := auth.NewCapabilities(1, []models.UserRole{{Role: models.RoleMetadata, GameMode: models.GameModeAny}})
	moderator := auth.NewCapabilities(1, []models.UserRole{{Role: models.RoleModerator, GameMode: models.GameModeAny}})
	news := auth.NewCapabilities(1, []models.UserRole{{Role: models.RoleNews, GameMode: models.GameModeAny}})
	nobody := auth.NewCapabilities(1, nil)

	assert.True(t, canAssign(metadata, models.AssigneeTypeMetadata))
	assert.False(t, canAssign(metadata, models.AssigneeTypeModerator))
	assert.True(t, canAssign(moderator, models.AssigneeTypeModerator))
	assert.False(t, canAssign(moderator, models.AssigneeTypeMetadata))
	assert.True(t, canAssign(news, models.AssigneeTypeMetadata))
	assert.True(t, canAssign(news, models.AssigneeTypeModerator))
	assert.False(t, canAssign(nobody, models.AssigneeTypeMetadata))
}

func TestSortBeatmaps(t *testing.T) {
	four, seven := 4, 7
	beatmaps := []models.Beatmap{
		{ID: 1, KeyCount: &seven, StarRating: 2},
		{ID: 2, KeyCount: &four, StarRating: 5},
		{ID: 3, KeyCount: &four, StarRating: 3},
		{ID: 4, StarRating: 6},
	}

	sortBeatmaps(beatmaps)

	ids := make([]int64, 0, len(beatmaps))
	for _, b := range beatmaps {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []int64{4, 3, 2, 1}, ids)
}

func TestCompareCompleteRounds(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 1, 0)

	rounds := []models.Round{
		{ID: 1, NewsPostedAt: &early},
		{ID: 2},
		{ID: 3, NewsPostedAt: &late},
		{ID: 4, NewsPostedAt: &early},
		{ID: 5},
	}

	slices.SortStableFunc(rounds, compareCompleteRounds)

	ids := make([]int64, 0, len(rounds))
	for _, r := range rounds {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{3, 4, 1, 5, 2}, ids)
}

func TestRoundFieldsEqual(t *testing.T) {
	intro := "Hello"
	sameIntro := "Hello"
	other := "Bye"

	a := roundFields{Name: "Round", NewsIntro: &intro}
	assert.True(t, a.equal(roundFields{Name: "Round", NewsIntro: &sameIntro}))
	assert.False(t, a.equal(roundFields{Name: "Round", NewsIntro: &other}))
	assert.False(t, a.equal(roundFields{Name: "Round"}))
	assert.False(t, a.equal(roundFields{Name: "Other", NewsIntro: &intro}))
}

func TestIDHelpers(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 5}, uniqueIDs([]int64{5, 1, 2, 5, 1}))
	assert.Empty(t, uniqueIDs(nil))
	assert.True(t, hasDuplicates([]int64{3, 1, 3}))
	assert.False(t, hasDuplicates([]string{"a", "b"}))
}

func TestErrorKinds(t *testing.T) {
	err := notFoundf("round #%d not found", 3)
	require.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "not found: round #3 not found", err.Error())

	assert.ErrorIs(t, validationErrorf("x"), ErrValidation)
	assert.ErrorIs(t, forbiddenf("x"), ErrForbidden)
	assert.ErrorIs(t, conflictf("x"), ErrConflict)
	assert.ErrorIs(t, invariantf("x"), ErrInvariant)
}

func TestMetadataTransition(t *testing.T) {
	artist := "Artist"
	n := &models.Nomination{MetadataState: models.MetadataStateNeedsChange, OverwriteArtist: &artist}

	from, to, changed := metadataTransition(n, MetadataInput{State: models.MetadataStateNeedsChange, Artist: ptr("Artist")})
	assert.False(t, changed)
	assert.Equal(t, from, to)

	_, to, changed = metadataTransition(n, MetadataInput{State: models.MetadataStateGood, Artist: &artist})
	assert.True(t, changed)
	assert.Nil(t, to.Artist, "good drops overwrites")

	_, _, changed = metadataTransition(n, MetadataInput{State: models.MetadataStateNeedsChange})
	assert.True(t, changed)
}
