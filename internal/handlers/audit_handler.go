package handlers

import (
	"net/http"

	"loved-api/internal/models"
	"loved-api/internal/service"
)

// AuditHandler handles audit log requests
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// AuditLogPage is one page of audit logs
type AuditLogPage struct {
	Logs  []models.AuditLog `json:"logs"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ListAuditLogs lists audit logs with pagination
// @Summary List audit logs
// @Description Get a page of audit logs, newest first, optionally of one type (staff only)
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param type query string false "Log type"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(50)
// @Success 200 {object} AuditLogPage
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /logs [get]
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page := max(queryInt(r, "page", 1), 1)
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	logs, err := h.auditService.List(r.Context(), models.LogType(r.URL.Query().Get("type")), limit, (page-1)*limit)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AuditLogPage{Logs: logs, Page: page, Limit: limit})
}
