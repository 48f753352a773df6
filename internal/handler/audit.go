package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/omada-guest/backend/internal/model"
	"github.com/omada-guest/backend/internal/service"
)

type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// ListEvents godoc
// @Summary List recent guest events
// @Description Requires the Postgres audit trail (DATABASE_URL or PG*).
// @Tags audit
// @Produce json
// @Param limit query int false "Max events (default 50, max 500)"
// @Success 200 {object} model.GuestEventListResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/audit [get]
func (h *AuditHandler) ListEvents(c *gin.Context) {
	if h.svc == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "audit trail is not configured"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}

	events, err := h.svc.ListEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to load audit events"})
		return
	}
	c.JSON(http.StatusOK, model.GuestEventListResponse{Success: true, Events: events})
}
