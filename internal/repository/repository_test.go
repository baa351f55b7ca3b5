package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loved-api/internal/models"
	"loved-api/internal/testutil"
)

func TestRoleRepository(t *testing.T) {
	db := testutil.SetupPostgres(t)
	ctx := context.Background()
	repo := NewRoleRepository(db)

	testutil.CreateUser(t, db, 1, "captain")

	require.NoError(t, repo.Create(ctx, &models.UserRole{UserID: 1, Role: models.RoleCaptain, GameMode: models.GameModeTaiko}))
	require.NoError(t, repo.Create(ctx, &models.UserRole{UserID: 1, Role: models.RoleNews, GameMode: models.GameModeAny, Alumni: true}))

	err := repo.Create(ctx, &models.UserRole{UserID: 1, Role: models.RoleCaptain, GameMode: models.GameModeTaiko})
	assert.True(t, errors.Is(err, ErrDuplicate), "expected ErrDuplicate, got %v", err)

	roles, err := repo.GetUserRoles(ctx, 1)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, models.RoleCaptain, roles[0].Role)
	assert.Equal(t, models.GameModeTaiko, roles[0].GameMode)
	assert.True(t, roles[1].Alumni)

	roles, err = repo.GetUserRoles(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestAuditRepositoryListByType(t *testing.T) {
	db := testutil.SetupPostgres(t)
	ctx := context.Background()
	repo := NewAuditRepository(db)

	for _, logType := range []models.LogType{models.LogTypeRoundCreated, models.LogTypeReviewCreated, models.LogTypeRoundCreated} {
		_, err := repo.Create(ctx, logType, map[string]int{"n": 1})
		require.NoError(t, err)
	}

	logs, err := repo.ListByType(ctx, models.LogTypeRoundCreated, 10, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Greater(t, logs[0].ID, logs[1].ID)
	assert.JSONEq(t, `{"n":1}`, string(logs[0].Payload))

	logs, err = repo.ListByType(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	logs, err = repo.ListByType(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRoundRepositoryList(t *testing.T) {
	db := testutil.SetupPostgres(t)
	ctx := context.Background()
	repo := NewRoundRepository(db)

	first := &models.Round{Name: "first"}
	second := &models.Round{Name: "second", Done: true}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.CreateGameMode(ctx, &models.RoundGameMode{RoundID: first.ID, GameMode: models.GameModeOsu, VotingThreshold: 0.85}))

	_, err := db.Exec(`
		INSERT INTO beatmapsets (id, artist, title, creator_id, creator_name, ranked_status, submitted_at)
		VALUES (100, 'a', 't', 1, 'm', 0, CURRENT_TIMESTAMP)
	`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO nominations (round_id, game_mode, beatmapset_id) VALUES ($1, 0, 100)`, first.ID)
	require.NoError(t, err)

	rounds, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 1, rounds[0].NominationCount)
	assert.Equal(t, 0, rounds[1].NominationCount)
	assert.True(t, rounds[1].Done)

	missing, err := repo.GetByID(ctx, second.ID+10)
	require.NoError(t, err)
	assert.Nil(t, missing)

	gms, err := repo.ListGameModes(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, gms, 1)
	assert.InDelta(t, 0.85, gms[0].VotingThreshold, 1e-9)
}
