// Package content resolves beatmapsets and users through the local cache,
// falling back to the osu! API and storing what it fetched.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"loved-api/internal/database"
	"loved-api/internal/models"
	"loved-api/internal/osu"
	"loved-api/internal/repository"
)

// ErrNotFound is returned when neither the cache nor the API knows the entity
var ErrNotFound = errors.New("content not found")

// API is the subset of the osu! client the resolver needs
type API interface {
	Beatmapset(ctx context.Context, id int64) (*models.Beatmapset, error)
	User(ctx context.Context, key string, byName bool) (*models.User, error)
}

// UserLookup selects a user by ID or, when ByName is set, by name
type UserLookup struct {
	ID          int64
	Name        string
	ByName      bool
	ForceUpdate bool
	// StoreBanned keeps restricted users instead of reporting them as not found
	StoreBanned bool
}

func (l UserLookup) key() string {
	if l.ByName {
		return l.Name
	}
	return strconv.FormatInt(l.ID, 10)
}

// Resolver implements cache-first content resolution
type Resolver struct {
	db          *sql.DB
	api         API
	userRepo    *repository.UserRepository
	beatmapRepo *repository.BeatmapsetRepository
}

// NewResolver creates a new content resolver
func NewResolver(db *sql.DB, api API) *Resolver {
	return &Resolver{
		db:          db,
		api:         api,
		userRepo:    repository.NewUserRepository(db),
		beatmapRepo: repository.NewBeatmapsetRepository(db),
	}
}

// Beatmapset returns the cached beatmapset, fetching it when it is not cached
// or forceRefresh is set
func (r *Resolver) Beatmapset(ctx context.Context, id int64, forceRefresh bool) (*models.Beatmapset, error) {
	if !forceRefresh {
		set, err := r.beatmapRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if set != nil {
			return set, nil
		}
	}

	fetched, err := r.api.Beatmapset(ctx, id)
	if errors.Is(err, osu.ErrNotFound) {
		return nil, fmt.Errorf("%w: beatmapset #%d", ErrNotFound, id)
	}
	if err != nil {
		slog.Warn("Failed to fetch beatmapset", "beatmapset_id", id, "error", err)
		return nil, fmt.Errorf("%w: beatmapset #%d could not be fetched", ErrNotFound, id)
	}

	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.beatmapRepo.WithTx(tx).Upsert(ctx, fetched)
	})
	if err != nil {
		return nil, err
	}

	// Reload so callers see live beatmaps only, in storage order
	set, err := r.beatmapRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("%w: beatmapset #%d", ErrNotFound, id)
	}
	return set, nil
}

// User returns the cached user, fetching it when it is not cached or
// ForceUpdate is set
func (r *Resolver) User(ctx context.Context, lookup UserLookup) (*models.User, error) {
	if !lookup.ForceUpdate {
		var user *models.User
		var err error
		if lookup.ByName {
			user, err = r.userRepo.GetByName(ctx, lookup.Name)
		} else {
			user, err = r.userRepo.GetByID(ctx, lookup.ID)
		}
		if err != nil {
			return nil, err
		}
		if user != nil && (!user.Banned || lookup.StoreBanned) {
			return user, nil
		}
	}

	fetched, err := r.api.User(ctx, lookup.key(), lookup.ByName)
	if errors.Is(err, osu.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, lookup.key())
	}
	if err != nil {
		slog.Warn("Failed to fetch user", "user", lookup.key(), "error", err)
		return nil, fmt.Errorf("%w: user %q could not be fetched", ErrNotFound, lookup.key())
	}
	if fetched.Banned && !lookup.StoreBanned {
		return nil, fmt.Errorf("%w: user %q is restricted", ErrNotFound, lookup.key())
	}

	if err := r.userRepo.Upsert(ctx, fetched); err != nil {
		return nil, err
	}
	return fetched, nil
}
