package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"loved-api/internal/models"
)

// BeatmapsetSource lists the beatmapsets that should be kept fresh
type BeatmapsetSource interface {
	ListIncompleteRoundBeatmapsetIDs(ctx context.Context) ([]int64, error)
}

// BeatmapsetRefresher re-fetches a beatmapset from the osu! API
type BeatmapsetRefresher interface {
	Beatmapset(ctx context.Context, id int64, forceRefresh bool) (*models.Beatmapset, error)
}

// RefreshWorker force-refreshes queued beatmapsets, at most one per interval.
// An ID already waiting in the queue is not queued twice.
type RefreshWorker struct {
	source    BeatmapsetSource
	refresher BeatmapsetRefresher
	limiter   *rate.Limiter
	queue     chan int64

	mu      sync.Mutex
	pending map[int64]struct{}
}

// NewRefreshWorker creates a worker with room for queueSize pending IDs
func NewRefreshWorker(source BeatmapsetSource, refresher BeatmapsetRefresher, interval time.Duration, queueSize int) *RefreshWorker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &RefreshWorker{
		source:    source,
		refresher: refresher,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		queue:     make(chan int64, queueSize),
		pending:   make(map[int64]struct{}),
	}
}

// Enqueue adds id to the queue. It returns false when id is already pending or
// the queue is full.
func (w *RefreshWorker) Enqueue(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pending[id]; ok {
		return false
	}
	select {
	case w.queue <- id:
		w.pending[id] = struct{}{}
		return true
	default:
		return false
	}
}

// EnqueueIncompleteRounds queues every beatmapset nominated in a round that
// is not done yet. It is meant to run as a scheduled task.
func (w *RefreshWorker) EnqueueIncompleteRounds(ctx context.Context) {
	ids, err := w.source.ListIncompleteRoundBeatmapsetIDs(ctx)
	if err != nil {
		slog.Error("Failed to list beatmapsets to refresh", "error", err)
		return
	}

	queued := 0
	for _, id := range ids {
		if w.Enqueue(id) {
			queued++
		}
	}
	if queued < len(ids) {
		slog.Warn("Some beatmapsets were not queued for refresh",
			"total", len(ids),
			"queued", queued)
	}
	slog.Info("Beatmapset refresh queued", "count", queued)
}

// Run consumes the queue until ctx is done
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("Beatmapset refresh worker started", "interval", time.Duration(float64(time.Second)/float64(w.limiter.Limit())))

	for {
		var id int64
		select {
		case <-ctx.Done():
			return
		case id = <-w.queue:
		}

		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()

		if err := w.limiter.Wait(ctx); err != nil {
			return
		}

		if _, err := w.refresher.Beatmapset(ctx, id, true); err != nil {
			slog.Warn("Failed to refresh beatmapset", "beatmapset_id", id, "error", err)
			continue
		}
		slog.Debug("Beatmapset refreshed", "beatmapset_id", id)
	}
}
