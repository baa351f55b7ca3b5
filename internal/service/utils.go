package service

import (
	"context"
	"errors"
	"slices"

	"loved-api/internal/content"
	"loved-api/internal/models"
)

// ContentProvider resolves beatmapsets and users, fetching them from the osu!
// API when they are not cached
type ContentProvider interface {
	Beatmapset(ctx context.Context, id int64, forceRefresh bool) (*models.Beatmapset, error)
	User(ctx context.Context, lookup content.UserLookup) (*models.User, error)
}

// resolveBeatmapset maps provider misses to ErrNotFound
func resolveBeatmapset(ctx context.Context, provider ContentProvider, id int64, forceRefresh bool) (*models.Beatmapset, error) {
	set, err := provider.Beatmapset(ctx, id, forceRefresh)
	if errors.Is(err, content.ErrNotFound) {
		return nil, notFoundf("beatmapset #%d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// resolveUser maps provider misses to ErrNotFound
func resolveUser(ctx context.Context, provider ContentProvider, lookup content.UserLookup) (*models.User, error) {
	user, err := provider.User(ctx, lookup)
	if errors.Is(err, content.ErrNotFound) {
		if lookup.ByName {
			return nil, notFoundf("user %q not found", lookup.Name)
		}
		return nil, notFoundf("user #%d not found", lookup.ID)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// checkNominatable rejects beatmapsets that are already ranked or loved, or
// have no beatmaps in mode. The set status decides even when one mode alone
// is still pending.
func checkNominatable(set *models.Beatmapset, mode models.GameMode) error {
	if set.RankedStatus.ExceedsPending() {
		return validationErrorf("beatmapset #%d is already ranked or loved", set.ID)
	}
	if !set.HasGameMode(mode) {
		return validationErrorf("beatmapset #%d has no %s beatmaps", set.ID, mode)
	}
	return nil
}

// equalPtr reports whether a and b are both nil or point to equal values
func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// uniqueIDs returns ids sorted with duplicates removed
func uniqueIDs(ids []int64) []int64 {
	result := slices.Clone(ids)
	slices.Sort(result)
	return slices.Compact(result)
}

// hasDuplicates reports whether ids contains a repeated value
func hasDuplicates[T comparable](ids []T) bool {
	seen := make(map[T]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
