package handlers

import (
	"net/http"
	"strconv"

	"loved-api/internal/service"
)

// ReviewHandler handles review requests
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// ListReviews lists the reviews of a beatmapset
// @Summary List reviews
// @Tags Reviews
// @Produce json
// @Param beatmapset_id query int true "Beatmapset ID"
// @Success 200 {array} models.Review
// @Failure 400 {object} map[string]string "Invalid beatmapset ID"
// @Router /reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	beatmapsetID, err := strconv.ParseInt(r.URL.Query().Get("beatmapset_id"), 10, 64)
	if err != nil || beatmapsetID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid beatmapset_id")
		return
	}

	reviews, err := h.reviewService.ListReviews(r.Context(), beatmapsetID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, reviews)
}

// SubmitReview creates or updates the actor's review
// @Summary Submit review
// @Description Score a beatmapset in one game mode; supersedes the actor's open submission
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param review body service.ReviewInput true "Review"
// @Success 200 {object} service.ReviewResult
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /reviews [post]
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}

	var req service.ReviewInput
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.reviewService.SubmitReview(r.Context(), caps, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// SubmitReviewMany supports a beatmapset in several game modes at once
// @Summary Submit reviews for several game modes
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param review body service.ReviewManyInput true "Reviews"
// @Success 200 {array} service.ReviewResult
// @Failure 400 {object} map[string]string "Invalid input"
// @Router /reviews/many [post]
func (h *ReviewHandler) SubmitReviewMany(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}

	var req service.ReviewManyInput
	if !decodeJSON(w, r, &req) {
		return
	}

	results, err := h.reviewService.SubmitReviewMany(r.Context(), caps, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, results)
}

// DeleteReview removes the actor's own review
// @Summary Delete review
// @Tags Reviews
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 204
// @Failure 403 {object} map[string]string "Not the reviewer"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(r.Context(), caps, id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
