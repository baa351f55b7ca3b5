package handlers

import (
	"net/http"

	"loved-api/internal/models"
	"loved-api/internal/service"
)

// DescriptionRequest sets or clears a nomination description
type DescriptionRequest struct {
	Description *string `json:"description"`
}

// ModerationRequest records a content moderation check
type ModerationRequest struct {
	State models.ModeratorState `json:"state" validate:"min=0,max=4"`
}

// UserIDsRequest replaces a list of users on a nomination
type UserIDsRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"dive,gt=0"`
}

// AssigneesRequest replaces the assignees of one check
type AssigneesRequest struct {
	Type    models.AssigneeType `json:"type" validate:"min=0,max=1"`
	UserIDs []int64             `json:"user_ids" validate:"dive,gt=0"`
}

// ExcludedBeatmapsRequest replaces the beatmaps excluded from a nomination
type ExcludedBeatmapsRequest struct {
	BeatmapIDs []int64 `json:"beatmap_ids" validate:"dive,gt=0"`
}

// OrderRequest assigns display orders to nominations by ID
type OrderRequest struct {
	Orders map[int64]int `json:"orders" validate:"required,min=1"`
}

// NominationHandler handles nomination requests
type NominationHandler struct {
	nominationService *service.NominationService
}

// NewNominationHandler creates a new nomination handler
func NewNominationHandler(nominationService *service.NominationService) *NominationHandler {
	return &NominationHandler{
		nominationService: nominationService,
	}
}

// CreateNomination nominates a beatmapset in a round
// @Summary Create nomination
// @Description Nominate a beatmapset in one game mode of a round (captain for the mode)
// @Tags Nominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param nomination body service.NominationInput true "Nomination"
// @Success 201 {object} models.Nomination
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Round or parent not found"
// @Failure 409 {object} map[string]string "Already nominated"
// @Router /nominations [post]
func (h *NominationHandler) CreateNomination(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}

	var req service.NominationInput
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.nominationService.CreateNomination(r.Context(), caps, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, n)
}

// GetNomination retrieves a nomination with its relations
// @Summary Get nomination
// @Tags Nominations
// @Produce json
// @Param id path int true "Nomination ID"
// @Success 200 {object} models.Nomination
// @Failure 404 {object} map[string]string "Nomination not found"
// @Router /nominations/{id} [get]
func (h *NominationHandler) GetNomination(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.nominationService.GetNomination(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, n)
}

// DeleteNomination removes a nomination and everything attached to it
// @Summary Delete nomination
// @Description Delete a nomination (god or one of its nominators)
// @Tags Nominations
// @Security BearerAuth
// @Param id path int true "Nomination ID"
// @Success 204
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nomination not found"
// @Router /nominations/{id} [delete]
func (h *NominationHandler) DeleteNomination(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.nominationService.DeleteNomination(r.Context(), caps, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EditDescription sets or clears the news description
// @Summary Edit description
// @Tags Nominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Nomination ID"
// @Param description body DescriptionRequest true "Description, null to clear"
// @Success 200 {object} models.Nomination
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nomination not found"
// @Router /nominations/{id}/description [put]
func (h *NominationHandler) EditDescription(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req DescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.nominationService.EditDescription(r.Context(), caps, id, req.Description)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, n)
}

// EditMetadata records a metadata check
// @Summary Edit metadata
// @Tags Nominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Nomination ID"
// @Param metadata body service.MetadataInput true "Metadata check"
// @Success 200 {object} models.Nomination
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nomination or creator not found"
// @Router /nominations/{id}/metadata [put]
func (h *NominationHandler) EditMetadata(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req service.MetadataInput
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.nominationService.EditMetadata(r.Context(), caps, id, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, n)
}

// EditModeration records a content moderation check
// @Summary Edit moderation
// @Tags Nominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Nomination ID"
// @Param moderation body ModerationRequest true "Moderator state"
// @Success 200 {object} models.Nomination
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nomination not found"
// @Router /nominations/{id}/moderation [put]
func (h *NominationHandler) EditModeration(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ModerationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.nominationService.EditModeration(r.Context(), caps, id, req.State)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, n)
}

// SetNominators replaces the nominators
// @Summary Set nominators
// @Tags Nominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Nomination ID"
// @Param nominators body UserIDsRequest true "Nominator IDs"
// @Success 200 {object} models.Nomination
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nomination or user not found"
// @Router /nominations/{id}/nominators [put]
func (h *NominationHandler) SetNominators(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UserIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.nominationService.SetNominators(r.Context(), caps, id, req.UserIDs)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, n)
}

// SetAssignees replaces the assignees of one check
// @Summary Set assignees
// @Tags Nominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Nomination ID"
// @Param assignees body AssigneesRequest true "Assignee type and IDs"
// @Success 200 {object} models.Nomination
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nomination or user not found"
// @Router /nominations/{id}/assignees [put]
func (h *NominationHandler) SetAssignees(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req AssigneesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.nominationService.SetAssignees(r.Context(), caps, id, req.Type, req.UserIDs)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, n)
}

// SetExcludedBeatmaps replaces the excluded beatmaps
// @Summary Set excluded beatmaps
// @Tags Nominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Nomination ID"
// @Param excluded body ExcludedBeatmapsRequest true "Beatmap IDs"
// @Success 200 {object} models.Nomination
// @Failure 400 {object} map[string]string "Beatmap outside the beatmapset"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nomination not found"
// @Router /nominations/{id}/excluded-beatmaps [put]
func (h *NominationHandler) SetExcludedBeatmaps(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ExcludedBeatmapsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.nominationService.SetExcludedBeatmaps(r.Context(), caps, id, req.BeatmapIDs)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, n)
}

// ReorderNominations assigns display orders
// @Summary Reorder nominations
// @Description Assign display orders by nomination ID (captain for every touched game mode)
// @Tags Nominations
// @Accept json
// @Security BearerAuth
// @Param orders body OrderRequest true "Order by nomination ID"
// @Success 204
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nomination not found"
// @Router /nominations/order [put]
func (h *NominationHandler) ReorderNominations(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}

	var req OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.nominationService.ReorderNominations(r.Context(), caps, req.Orders); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
