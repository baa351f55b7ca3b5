package handlers

import (
	"net/http"

	"loved-api/internal/models"
	"loved-api/internal/service"
)

// LockRequest toggles nomination creation for one game mode of a round
type LockRequest struct {
	GameMode models.GameMode `json:"game_mode" validate:"min=0,max=3"`
	Locked   bool            `json:"locked"`
}

// RoundResponse is a round with its nominations
type RoundResponse struct {
	Round       *models.Round       `json:"round"`
	Nominations []models.Nomination `json:"nominations"`
}

// RoundHandler handles round requests
type RoundHandler struct {
	roundService      *service.RoundService
	nominationService *service.NominationService
}

// NewRoundHandler creates a new round handler
func NewRoundHandler(roundService *service.RoundService, nominationService *service.NominationService) *RoundHandler {
	return &RoundHandler{
		roundService:      roundService,
		nominationService: nominationService,
	}
}

// ListRounds lists complete and incomplete rounds
// @Summary List rounds
// @Description Complete rounds newest first, incomplete rounds in creation order, each with its nomination count
// @Tags Rounds
// @Produce json
// @Success 200 {object} service.RoundList
// @Router /rounds [get]
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	list, err := h.roundService.ListRounds(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// CreateRound opens a new round
// @Summary Create round
// @Description Create an empty round with default settings for every game mode (news only)
// @Tags Rounds
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.Round
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /rounds [post]
func (h *RoundHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}

	round, err := h.roundService.CreateRound(r.Context(), caps)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, round)
}

// GetRound retrieves a round with its nominations
// @Summary Get round
// @Description Get a round with its game mode settings and every nomination
// @Tags Rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} RoundResponse
// @Failure 400 {object} map[string]string "Invalid ID"
// @Failure 404 {object} map[string]string "Round not found"
// @Router /rounds/{id} [get]
func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	round, nominations, err := h.roundService.GetRound(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, RoundResponse{Round: round, Nominations: nominations})
}

// UpdateRound edits the name and news texts of a round
// @Summary Update round
// @Description Edit the name and news texts of a round (news only)
// @Tags Rounds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Round ID"
// @Param round body service.RoundInput true "Changed fields"
// @Success 200 {object} models.Round
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Round not found"
// @Router /rounds/{id} [patch]
func (h *RoundHandler) UpdateRound(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req service.RoundInput
	if !decodeJSON(w, r, &req) {
		return
	}

	round, err := h.roundService.UpdateRound(r.Context(), caps, id, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, round)
}

// LockNominations locks or unlocks nomination creation for a game mode
// @Summary Lock nominations
// @Description Lock or unlock new nominations in one game mode of a round (news or captain for the mode)
// @Tags Rounds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Round ID"
// @Param lock body LockRequest true "Lock state"
// @Success 200 {object} models.RoundGameMode
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Round not found"
// @Router /rounds/{id}/lock [put]
func (h *RoundHandler) LockNominations(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req LockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	gm, err := h.nominationService.LockNominations(r.Context(), caps, id, req.GameMode, req.Locked)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, gm)
}
