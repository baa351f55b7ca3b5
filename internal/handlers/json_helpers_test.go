package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loved-api/internal/auth"
	"loved-api/internal/middleware"
	"loved-api/internal/models"
	"loved-api/internal/service"
)

type innerPayload struct {
	Tags []string `json:"tags"`
}

type outerPayload struct {
	Names   []string        `json:"names"`
	Inner   *innerPayload   `json:"inner"`
	Items   []innerPayload  `json:"items"`
	Raw     json.RawMessage `json:"raw,omitempty"`
	Created time.Time       `json:"created"`
	hidden  []int
}

func TestJSONResponseNormalizesNilSlices(t *testing.T) {
	w := httptest.NewRecorder()

	created := time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	err := JSONResponse(w, &outerPayload{
		Inner:   &innerPayload{},
		Items:   []innerPayload{{}},
		Created: created,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	assert.Equal(t, []any{}, got["names"])
	assert.Equal(t, map[string]any{"tags": []any{}}, got["inner"])
	assert.Equal(t, []any{map[string]any{"tags": []any{}}}, got["items"])
	assert.NotContains(t, got, "raw")
	assert.Equal(t, "2024-05-15T10:30:00Z", got["created"])
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestNormalizeSlicesKeepsValues(t *testing.T) {
	in := []models.Nomination{{ID: 7, Order: 2}}
	out := normalizeSlices(in).([]models.Nomination)
	require.Len(t, out, 1)
	assert.Equal(t, int64(7), out[0].ID)
	assert.Equal(t, 2, out[0].Order)

	assert.Nil(t, normalizeSlices(nil))
	var nilPtr *innerPayload
	assert.Nil(t, normalizeSlices(nilPtr))
	assert.Equal(t, 5, normalizeSlices(5))
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation", fmt.Errorf("%w: bad score", service.ErrValidation), http.StatusBadRequest, "validation failed: bad score"},
		{"not found", fmt.Errorf("%w: round 3", service.ErrNotFound), http.StatusNotFound, "not found: round 3"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"conflict", service.ErrConflict, http.StatusConflict, "conflict"},
		{"invariant", service.ErrInvariant, http.StatusInternalServerError, ErrMsgInternal},
		{"unknown", errors.New("connection refused"), http.StatusInternalServerError, ErrMsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/rounds", nil)

			respondWithServiceError(w, r, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOK  bool
		wantMsg string
	}{
		{"valid", `{"user_ids":[1,2]}`, true, ""},
		{"malformed", `{"user_ids":`, false, ErrMsgInvalidRequestBody},
		{"unknown field", `{"user_ids":[1],"extra":true}`, false, ErrMsgInvalidRequestBody},
		{"invalid id", `{"user_ids":[0]}`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body))

			var req UserIDsRequest
			ok := decodeJSON(w, r, &req)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, []int64{1, 2}, req.UserIDs)
				return
			}
			assert.Equal(t, http.StatusBadRequest, w.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, w.Body.String(), tt.wantMsg)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value  string
		wantID int64
		wantOK bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetPathValue("id", tt.value)

			id, ok := pathID(w, r, "id")

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&limit=abc", nil)

	assert.Equal(t, 3, queryInt(r, "page", 1))
	assert.Equal(t, 50, queryInt(r, "limit", 50))
	assert.Equal(t, 0, queryInt(r, "type", 0))
}

func TestCapabilities(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := capabilities(w, r)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	caps := auth.NewCapabilities(5, nil)
	r = r.WithContext(middleware.WithCapabilities(r.Context(), caps))

	got, ok := capabilities(w, r)
	assert.True(t, ok)
	assert.Equal(t, int64(5), got.UserID())
}
