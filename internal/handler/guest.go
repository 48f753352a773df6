package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omada-guest/backend/internal/model"
	"github.com/omada-guest/backend/internal/service"
)

type GuestHandler struct {
	svc *service.GuestService
}

func NewGuestHandler(svc *service.GuestService) *GuestHandler {
	return &GuestHandler{svc: svc}
}

// ListGuests godoc
// @Summary List guest accounts
// @Description Lists accounts of one site (siteId), the default site, or every site. Sites that fail to load are skipped.
// @Tags guests
// @Produce json
// @Param siteId query string false "Site ID"
// @Success 200 {object} model.GuestListResponse
// @Failure 500 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/guests [get]
func (h *GuestHandler) ListGuests(c *gin.Context) {
	guests, sitesChecked, err := h.svc.ListGuests(c.Request.Context(), c.Query("siteId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.GuestListResponse{
		Success:      true,
		Guests:       guests,
		SitesChecked: sitesChecked,
		Timestamp:    time.Now().UnixMilli(),
	})
}

// CreateGuest godoc
// @Summary Create a guest account
// @Description userName is the room number, password the guest's last name. checkoutDate defaults to 30 days from now.
// @Tags guests
// @Accept json
// @Produce json
// @Param request body model.CreateGuestRequest true "Guest"
// @Success 200 {object} model.GuestCreateResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/guests [post]
func (h *GuestHandler) CreateGuest(c *gin.Context) {
	var req model.CreateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body")
		return
	}

	resp, err := h.svc.CreateGuest(c.Request.Context(), req, actor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteGuest godoc
// @Summary Delete a guest account
// @Tags guests
// @Accept json
// @Produce json
// @Param request body model.DeleteGuestRequest true "Account"
// @Success 200 {object} model.GuestDeleteResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/guests [delete]
func (h *GuestHandler) DeleteGuest(c *gin.Context) {
	var req model.DeleteGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body")
		return
	}
	if req.SiteID == "" {
		req.SiteID = c.Query("siteId")
	}
	h.deleteGuest(c, req.UserID, req.SiteID)
}

// DeleteGuestByID godoc
// @Summary Delete a guest account by ID
// @Tags guests
// @Produce json
// @Param id path string true "Account ID"
// @Param siteId query string false "Site ID"
// @Success 200 {object} model.GuestDeleteResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/guests/{id} [delete]
func (h *GuestHandler) DeleteGuestByID(c *gin.Context) {
	h.deleteGuest(c, c.Param("id"), c.Query("siteId"))
}

func (h *GuestHandler) deleteGuest(c *gin.Context, accountID, siteID string) {
	if err := h.svc.DeleteGuest(c.Request.Context(), accountID, siteID, actor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.GuestDeleteResponse{Success: true, ID: accountID})
}

// ListSites godoc
// @Summary List controller sites
// @Tags sites
// @Produce json
// @Success 200 {object} model.SiteListResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/sites [get]
func (h *GuestHandler) ListSites(c *gin.Context) {
	sites, err := h.svc.ListSites(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SiteListResponse{Success: true, Sites: sites})
}

// ListPortals godoc
// @Summary List captive portals of a site
// @Tags sites
// @Produce json
// @Param siteId query string false "Site ID (defaults to OMADA_SITE_ID)"
// @Success 200 {object} model.PortalListResponse
// @Failure 500 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/portals [get]
func (h *GuestHandler) ListPortals(c *gin.Context) {
	siteID, portals, err := h.svc.ListPortals(c.Request.Context(), c.Query("siteId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.PortalListResponse{Success: true, SiteID: siteID, Portals: portals})
}
