package service

import (
	"context"
	"database/sql"

	"loved-api/internal/models"
	"loved-api/internal/repository"
)

// AuditService writes audit log entries inside the caller's transaction
type AuditService struct {
	auditRepo *repository.AuditRepository
	userRepo  *repository.UserRepository
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo *repository.AuditRepository, userRepo *repository.UserRepository) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		userRepo:  userRepo,
	}
}

// Log appends an entry using tx. A failure must abort the surrounding unit of work.
func (s *AuditService) Log(ctx context.Context, tx *sql.Tx, logType models.LogType, payload any) error {
	_, err := s.auditRepo.WithTx(tx).Create(ctx, logType, payload)
	return err
}

// List retrieves audit entries newest first. An empty logType lists every type.
func (s *AuditService) List(ctx context.Context, logType models.LogType, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.auditRepo.ListByType(ctx, logType, limit, offset)
}

// logUser is the user snapshot embedded in audit payloads
type logUser struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

func userSnapshot(user *models.User) logUser {
	if user == nil {
		return logUser{}
	}
	return logUser{ID: user.ID, Name: user.Name, Country: user.Country}
}

func userSnapshots(users []models.User) []logUser {
	snapshots := make([]logUser, 0, len(users))
	for i := range users {
		snapshots = append(snapshots, userSnapshot(&users[i]))
	}
	return snapshots
}

// actorSnapshot loads the acting user. Actors come from a verified token, so a
// missing cache row only degrades the snapshot to the bare ID.
func (s *AuditService) actorSnapshot(ctx context.Context, userID int64) (logUser, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return logUser{}, err
	}
	if user == nil {
		return logUser{ID: userID}, nil
	}
	return userSnapshot(user), nil
}

// logBeatmapset is the beatmapset snapshot embedded in audit payloads
type logBeatmapset struct {
	ID     int64  `json:"id"`
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

func beatmapsetSnapshot(set *models.Beatmapset) logBeatmapset {
	if set == nil {
		return logBeatmapset{}
	}
	return logBeatmapset{ID: set.ID, Artist: set.Artist, Title: set.Title}
}

// change is a from/to pair in an update payload
type change[T any] struct {
	From T `json:"from"`
	To   T `json:"to"`
}
