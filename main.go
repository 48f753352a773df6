package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omada-guest/backend/internal/client"
	"github.com/omada-guest/backend/internal/config"
	"github.com/omada-guest/backend/internal/db"
	"github.com/omada-guest/backend/internal/handler"
	"github.com/omada-guest/backend/internal/jobs"
	"github.com/omada-guest/backend/internal/logging"
	"github.com/omada-guest/backend/internal/metrics"
	"github.com/omada-guest/backend/internal/service"
)

// @title Omada Guest Backend API
// @version 1.0
// @description Guest account provisioning and expired-guest cleanup for Omada SDN controllers.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, flush, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer flush()

	if err := run(cfg, log); err != nil {
		log.Error(err, "server exited with error")
		flush()
		os.Exit(1)
	}
}

func run(cfg config.Config, log logr.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register(prometheus.DefaultRegisterer)

	httpClient, err := client.NewHTTPClient(client.HTTPClientConfig{
		Timeout:            cfg.Omada.RequestTimeout,
		InsecureSkipVerify: cfg.Omada.InsecureSkipVerify,
		EnableHTTP2:        cfg.Omada.EnableHTTP2,
	})
	if err != nil {
		return err
	}

	tokens := client.NewTokenManager(client.TokenManagerConfig{
		BaseURL:      cfg.Omada.BaseURL,
		OmadacID:     cfg.Omada.OmadacID,
		ClientID:     cfg.Omada.ClientID,
		ClientSecret: cfg.Omada.ClientSecret,
		SafetyMargin: cfg.Omada.TokenSafetyMargin,
	}, httpClient, log)

	omada := client.NewOmadaClient(client.OmadaClientConfig{
		BaseURL:          cfg.Omada.BaseURL,
		OmadacID:         cfg.Omada.OmadacID,
		DefaultSiteID:    cfg.Omada.DefaultSiteID,
		SitesPageSize:    cfg.Omada.SitesPageSize,
		AccountsPageSize: cfg.Omada.AccountsPageSize,
	}, tokens, httpClient, log)

	// 감사 기록 (선택): DB 설정이 없으면 비활성화
	var (
		auditRecorder service.AuditRecorder
		auditSvc      *service.AuditService
	)
	if cfg.Postgres.Configured() {
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := db.NewPostgres(pool)
		if err := pg.EnsureAuditSchema(ctx); err != nil {
			return err
		}
		auditSvc = service.NewAuditService(pg)
		auditRecorder = auditSvc
		log.Info("audit trail enabled")
	}

	var authSvc *service.AuthService
	if cfg.Auth.Enabled() {
		authSvc, err = service.NewAuthService(cfg.Auth)
		if err != nil {
			return err
		}
		log.Info("operator auth enabled", "username", cfg.Auth.AdminUsername)
	}

	cleanupSvc := service.NewCleanupService(omada, auditRecorder, cfg.Cleanup.Concurrency, log)
	if cfg.Notify.Configured() {
		notifyHTTP, err := client.NewHTTPClient(client.HTTPClientConfig{
			Timeout:     cfg.Notify.Timeout,
			EnableHTTP2: true,
		})
		if err != nil {
			return err
		}
		slack := client.NewSlackClient(client.SlackConfig{
			BotToken:    cfg.Notify.SlackBotToken,
			ChannelID:   cfg.Notify.SlackChannelID,
			APIURL:      cfg.Notify.SlackAPIURL,
			FrontendURL: cfg.Notify.FrontendURL,
		}, notifyHTTP)
		cleanupSvc.WithNotifier(service.NewCleanupNotifier(cfg.Notify, slack, notifyHTTP, log))
		log.Info("cleanup notifications enabled", "on", cfg.Notify.On,
			"slack", slack.IsConfigured(), "webhook", cfg.Notify.WebhookURL != "")
	}
	guestSvc := service.NewGuestService(omada, auditRecorder, log)

	scheduler := jobs.NewCleanupScheduler(cleanupSvc, cfg.Cleanup.Schedule, cfg.Cleanup.RunTimeout, log)
	if cfg.Cleanup.Enabled {
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()
	} else {
		log.Info("scheduled cleanup disabled")
	}

	router := handler.NewRouter(handler.RouterDeps{
		Log:                log,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MetricsHandler:     promhttp.Handler(),
		Auth:               handler.NewAuthHandler(authSvc),
		Cleanup:            handler.NewCleanupHandler(cleanupSvc, scheduler),
		Guest:              handler.NewGuestHandler(guestSvc),
		Audit:              handler.NewAuditHandler(auditSvc),
		Health:             handler.NewHealthHandler(tokens.Cached, scheduler.Started, auditSvc != nil),
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "http shutdown error")
	}
	return nil
}
