package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

func getContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// healthCheck reports whether a dependency is reachable
type healthCheck func(ctx context.Context) error

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// healthHandler reports unhealthy when the database is down. Redis only
// degrades the status since invalidation is best effort.
func healthHandler(version string, database, redis healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:   "healthy",
			Version:  version,
			Database: "ok",
			Redis:    "disabled",
		}
		code := http.StatusOK

		if err := database(r.Context()); err != nil {
			slog.Error("Database health check failed", "error", err)
			resp.Status = "unhealthy"
			resp.Database = "error"
			code = http.StatusServiceUnavailable
		}

		if redis != nil {
			resp.Redis = "ok"
			if err := redis(r.Context()); err != nil {
				slog.Warn("Redis health check failed", "error", err)
				resp.Redis = "error"
				if code == http.StatusOK {
					resp.Status = "degraded"
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("Failed to write health check response", "error", err)
		}
	}
}
