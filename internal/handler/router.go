package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
)

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Log                logr.Logger
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler

	Auth    *AuthHandler
	Cleanup *CleanupHandler
	Guest   *GuestHandler
	Audit   *AuditHandler
	Health  *HealthHandler
}

// NewRouter builds the gin engine with every route.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), RequestLogger(deps.Log))
	if len(deps.CORSAllowedOrigins) > 0 {
		r.Use(CORSMiddleware(deps.CORSAllowedOrigins, true))
	}

	r.GET("/", Root)
	r.GET("/ping", Ping)
	r.GET("/openapi.json", OpenAPIDoc)
	if deps.Health != nil {
		r.GET("/healthz", deps.Health.Healthz)
	}
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	v1 := r.Group("/api/v1")
	authRoutes := v1.Group("/auth")
	authRoutes.POST("/login", deps.Auth.Login)
	authRoutes.GET("/config", deps.Auth.Config)

	protected := v1.Group("")
	protected.Use(AuthMiddleware(deps.Auth.svc))
	protected.GET("/auth/me", deps.Auth.Me)

	protected.POST("/cleanup", deps.Cleanup.RunCleanup)
	protected.GET("/cleanup", deps.Cleanup.RunCleanup)
	protected.GET("/cleanup/schedule", deps.Cleanup.GetSchedule)

	protected.GET("/guests", deps.Guest.ListGuests)
	protected.POST("/guests", deps.Guest.CreateGuest)
	protected.DELETE("/guests", deps.Guest.DeleteGuest)
	protected.DELETE("/guests/:id", deps.Guest.DeleteGuestByID)

	protected.GET("/sites", deps.Guest.ListSites)
	protected.GET("/portals", deps.Guest.ListPortals)

	audit := deps.Audit
	if audit == nil {
		audit = NewAuditHandler(nil)
	}
	protected.GET("/audit", audit.ListEvents)

	return r
}
