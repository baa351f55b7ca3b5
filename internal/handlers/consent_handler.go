package handlers

import (
	"net/http"

	"loved-api/internal/service"
)

// ConsentHandler handles mapper consent requests
type ConsentHandler struct {
	consentService *service.ConsentService
}

// NewConsentHandler creates a new consent handler
func NewConsentHandler(consentService *service.ConsentService) *ConsentHandler {
	return &ConsentHandler{
		consentService: consentService,
	}
}

// ListConsents lists every mapper consent
// @Summary List mapper consents
// @Tags Consents
// @Produce json
// @Success 200 {array} models.Consent
// @Router /consents [get]
func (h *ConsentHandler) ListConsents(w http.ResponseWriter, r *http.Request) {
	consents, err := h.consentService.ListConsents(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, consents)
}

// SetConsent replaces a mapper's consent state
// @Summary Set mapper consent
// @Description Replace a mapper's consent and per-beatmapset consents (the mapper or a captain)
// @Tags Consents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Mapper user ID"
// @Param consent body service.ConsentInput true "Consent state"
// @Success 200 {object} models.Consent
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "User or beatmapset not found"
// @Router /consents/{userId} [put]
func (h *ConsentHandler) SetConsent(w http.ResponseWriter, r *http.Request) {
	caps, ok := capabilities(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	var req service.ConsentInput
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = userID

	consent, err := h.consentService.SetConsent(r.Context(), caps, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, consent)
}
