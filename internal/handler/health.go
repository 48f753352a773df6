package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omada-guest/backend/internal/model"
)

// 헬스체크 엔드포인트
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "Omada guest backend is running",
	})
}

// HealthHandler reports process readiness without calling the controller.
type HealthHandler struct {
	tokenCached     func() bool
	schedulerActive func() bool
	auditEnabled    bool
}

func NewHealthHandler(tokenCached, schedulerActive func() bool, auditEnabled bool) *HealthHandler {
	return &HealthHandler{
		tokenCached:     tokenCached,
		schedulerActive: schedulerActive,
		auditEnabled:    auditEnabled,
	}
}

// Healthz godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} model.HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Healthz(c *gin.Context) {
	resp := model.HealthResponse{Status: "ok", AuditEnabled: h.auditEnabled}
	if h.tokenCached != nil {
		resp.TokenCached = h.tokenCached()
	}
	if h.schedulerActive != nil {
		resp.SchedulerActive = h.schedulerActive()
	}
	c.JSON(http.StatusOK, resp)
}
