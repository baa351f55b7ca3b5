package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"loved-api/internal/auth"
	"loved-api/internal/middleware"
	"loved-api/internal/models"
)

// Requests rejected before reaching a service never touch it, so nil
// services are enough here.
func newTestMux() *http.ServeMux {
	roundHandler := NewRoundHandler(nil, nil)
	nominationHandler := NewNominationHandler(nil)
	reviewHandler := NewReviewHandler(nil)
	consentHandler := NewConsentHandler(nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rounds", roundHandler.CreateRound)
	mux.HandleFunc("GET /rounds/{id}", roundHandler.GetRound)
	mux.HandleFunc("PATCH /rounds/{id}", roundHandler.UpdateRound)
	mux.HandleFunc("PUT /rounds/{id}/lock", roundHandler.LockNominations)
	mux.HandleFunc("POST /nominations", nominationHandler.CreateNomination)
	mux.HandleFunc("GET /nominations/{id}", nominationHandler.GetNomination)
	mux.HandleFunc("PUT /nominations/{id}/moderation", nominationHandler.EditModeration)
	mux.HandleFunc("PUT /nominations/{id}/assignees", nominationHandler.SetAssignees)
	mux.HandleFunc("PUT /nominations/order", nominationHandler.ReorderNominations)
	mux.HandleFunc("GET /reviews", reviewHandler.ListReviews)
	mux.HandleFunc("POST /reviews", reviewHandler.SubmitReview)
	mux.HandleFunc("DELETE /reviews/{id}", reviewHandler.DeleteReview)
	mux.HandleFunc("PUT /consents/{userId}", consentHandler.SetConsent)
	return mux
}

func withActor(r *http.Request) *http.Request {
	caps := auth.NewCapabilities(1, []models.UserRole{{Role: models.RoleCaptain, GameMode: models.GameModeOsu}})
	return r.WithContext(middleware.WithCapabilities(r.Context(), caps))
}

func TestHandlersRequireAuthentication(t *testing.T) {
	mux := newTestMux()

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/rounds", ""},
		{http.MethodPatch, "/rounds/1", `{"name":"x"}`},
		{http.MethodPut, "/rounds/1/lock", `{"game_mode":0,"locked":true}`},
		{http.MethodPost, "/nominations", `{}`},
		{http.MethodPut, "/nominations/1/moderation", `{"state":1}`},
		{http.MethodPut, "/nominations/order", `{"orders":{"1":2}}`},
		{http.MethodPost, "/reviews", `{}`},
		{http.MethodDelete, "/reviews/1", ""},
		{http.MethodPut, "/consents/1", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))

			mux.ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), ErrMsgUnauthorized)
		})
	}
}

func TestHandlersRejectBadInput(t *testing.T) {
	mux := newTestMux()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		authed bool
	}{
		{"round id", http.MethodGet, "/rounds/abc", "", false},
		{"nomination id", http.MethodGet, "/nominations/0", "", false},
		{"missing beatmapset", http.MethodGet, "/reviews", "", false},
		{"patch id", http.MethodPatch, "/rounds/x", `{"name":"x"}`, true},
		{"lock game mode", http.MethodPut, "/rounds/1/lock", `{"game_mode":7,"locked":true}`, true},
		{"moderation state", http.MethodPut, "/nominations/1/moderation", `{"state":9}`, true},
		{"assignee type", http.MethodPut, "/nominations/1/assignees", `{"type":5,"user_ids":[1]}`, true},
		{"assignee ids", http.MethodPut, "/nominations/1/assignees", `{"type":0,"user_ids":[-1]}`, true},
		{"empty order", http.MethodPut, "/nominations/order", `{"orders":{}}`, true},
		{"malformed review", http.MethodPost, "/reviews", `{"score":`, true},
		{"consent user", http.MethodPut, "/consents/zero", `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.authed {
				r = withActor(r)
			}

			mux.ServeHTTP(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
