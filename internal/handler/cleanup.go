package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omada-guest/backend/internal/model"
	"github.com/omada-guest/backend/internal/service"
)

// ScheduleStatusProvider reports the cleanup scheduler state.
type ScheduleStatusProvider interface {
	Status() model.ScheduleStatus
}

type CleanupHandler struct {
	svc       *service.CleanupService
	scheduler ScheduleStatusProvider
}

func NewCleanupHandler(svc *service.CleanupService, scheduler ScheduleStatusProvider) *CleanupHandler {
	return &CleanupHandler{svc: svc, scheduler: scheduler}
}

// RunCleanup godoc
// @Summary Delete expired guest accounts
// @Description Runs one cleanup pass. siteId (body or query) limits the run to one site; otherwise OMADA_SITE_ID or every site is swept. Per-site and per-account failures are reported in errors without failing the request.
// @Tags cleanup
// @Accept json
// @Produce json
// @Param siteId query string false "Site ID"
// @Param request body model.CleanupRequest false "Optional site"
// @Success 200 {object} model.CleanupResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Failure 504 {object} model.ErrorResponse
// @Router /api/v1/cleanup [post]
// @Router /api/v1/cleanup [get]
func (h *CleanupHandler) RunCleanup(c *gin.Context) {
	var req model.CleanupRequest
	if c.Request.Method == http.MethodPost && c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeBadRequest(c, "invalid request body")
			return
		}
	}
	if req.SiteID == "" {
		req.SiteID = c.Query("siteId")
	}

	report, err := h.svc.Run(c.Request.Context(), req.SiteID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CleanupResponse{Success: true, CleanupReport: report})
}

// GetSchedule godoc
// @Summary Get cleanup scheduler state
// @Tags cleanup
// @Produce json
// @Success 200 {object} model.ScheduleStatus
// @Router /api/v1/cleanup/schedule [get]
func (h *CleanupHandler) GetSchedule(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, model.ScheduleStatus{})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}
