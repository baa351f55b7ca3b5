package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"loved-api/internal/models"
	"loved-api/internal/osu"
)

// CreateUser stores a cached user
func CreateUser(t *testing.T, db *sql.DB, id int64, name string) *models.User {
	t.Helper()

	user := &models.User{
		ID:           id,
		Name:         name,
		Country:      "XX",
		AvatarURL:    fmt.Sprintf("https://a.ppy.sh/%d", id),
		APIFetchedAt: time.Now(),
	}
	_, err := db.Exec(`
		INSERT INTO users (id, name, country, avatar_url, banned, api_fetched_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, user.ID, user.Name, user.Country, user.AvatarURL, user.APIFetchedAt)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return user
}

// GrantRole gives a user a role, scoped to mode or models.GameModeAny
func GrantRole(t *testing.T, db *sql.DB, userID int64, role models.Role, mode models.GameMode) models.UserRole {
	t.Helper()

	userRole := models.UserRole{UserID: userID, Role: role, GameMode: mode}
	err := db.QueryRow(`
		INSERT INTO user_roles (user_id, role, game_mode, alumni)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id
	`, userID, role, mode).Scan(&userRole.ID)
	if err != nil {
		t.Fatalf("Failed to grant role %s: %v", role, err)
	}
	return userRole
}

// CreateSubmission stores an open submission
func CreateSubmission(t *testing.T, db *sql.DB, beatmapsetID int64, mode models.GameMode, submitterID int64) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(`
		INSERT INTO submissions (beatmapset_id, game_mode, submitter_id, reason, submitted_at)
		VALUES ($1, $2, $3, NULL, CURRENT_TIMESTAMP)
		RETURNING id
	`, beatmapsetID, mode, submitterID).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create submission: %v", err)
	}
	return id
}

// CountRows counts rows of table matching an optional where clause
func CountRows(t *testing.T, db *sql.DB, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var count int
	if err := db.QueryRow(query, args...).Scan(&count); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return count
}

// NewBeatmapset builds a pending beatmapset with one beatmap per mode in modes
func NewBeatmapset(id, creatorID int64, modes ...models.GameMode) *models.Beatmapset {
	set := &models.Beatmapset{
		ID:           id,
		Artist:       "Artist",
		Title:        fmt.Sprintf("Title %d", id),
		CreatorID:    creatorID,
		CreatorName:  fmt.Sprintf("mapper%d", creatorID),
		RankedStatus: models.RankedStatusPending,
		SubmittedAt:  time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, mode := range modes {
		beatmap := models.Beatmap{
			ID:           id*100 + int64(i),
			BeatmapsetID: id,
			GameMode:     mode,
			Version:      fmt.Sprintf("%s diff", mode),
			StarRating:   float64(i + 1),
			BPM:          180,
			RankedStatus: models.RankedStatusPending,
		}
		if mode == models.GameModeMania {
			keys := 4
			beatmap.KeyCount = &keys
		}
		set.Beatmaps = append(set.Beatmaps, beatmap)
	}
	return set
}

// FakeAPI serves beatmapsets and users from memory in place of the osu! API
type FakeAPI struct {
	mu          sync.Mutex
	beatmapsets map[int64]*models.Beatmapset
	users       map[int64]*models.User
	Calls       int
}

// NewFakeAPI creates an empty fake API
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		beatmapsets: make(map[int64]*models.Beatmapset),
		users:       make(map[int64]*models.User),
	}
}

// AddBeatmapset makes set resolvable
func (f *FakeAPI) AddBeatmapset(set *models.Beatmapset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beatmapsets[set.ID] = set
}

// AddUser makes user resolvable
func (f *FakeAPI) AddUser(user *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
}

// Beatmapset returns a copy of a registered beatmapset
func (f *FakeAPI) Beatmapset(_ context.Context, id int64) (*models.Beatmapset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	set, ok := f.beatmapsets[id]
	if !ok {
		return nil, osu.ErrNotFound
	}
	clone := *set
	clone.Beatmaps = append([]models.Beatmap(nil), set.Beatmaps...)
	return &clone, nil
}

// User returns a copy of a registered user, looked up by ID or name
func (f *FakeAPI) User(_ context.Context, key string, byName bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	for _, user := range f.users {
		if (byName && user.Name == key) || (!byName && fmt.Sprint(user.ID) == key) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, osu.ErrNotFound
}

// RecordingInvalidator remembers every invalidated key
type RecordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

// Invalidate records keys
func (r *RecordingInvalidator) Invalidate(_ context.Context, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
}

// Keys returns the recorded keys in invalidation order
func (r *RecordingInvalidator) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}
