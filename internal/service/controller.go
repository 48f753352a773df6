package service

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/omada-guest/backend/internal/model"
)

// Trigger labels for cleanup runs and audit actors.
const (
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
)

// ControllerClient is the subset of the Omada client the services call.
type ControllerClient interface {
	DefaultSiteID() string
	ListSites(ctx context.Context) ([]model.Site, error)
	ListPortals(ctx context.Context, siteID string) ([]model.Portal, error)
	ListAccounts(ctx context.Context, siteID string) ([]model.Account, error)
	CreateAccount(ctx context.Context, siteID string, spec model.AccountSpec) (string, error)
	DeleteAccount(ctx context.Context, accountID, siteID string) error
}

// AuditRecorder stores guest lifecycle events. May be nil.
type AuditRecorder interface {
	RecordGuestEvent(ctx context.Context, event model.GuestEvent) error
}

// resolveSiteIDs returns the sites to operate on:
// explicit id -> configured default -> every site the controller lists.
func resolveSiteIDs(ctx context.Context, controller ControllerClient, siteID string) ([]string, error) {
	if siteID != "" {
		return []string{siteID}, nil
	}
	if def := controller.DefaultSiteID(); def != "" {
		return []string{def}, nil
	}

	sites, err := controller.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(sites))
	for _, site := range sites {
		ids = append(ids, site.SiteID)
	}
	return ids, nil
}

// recordAudit writes an audit event; failures are logged and never returned.
func recordAudit(ctx context.Context, audit AuditRecorder, log logr.Logger, event model.GuestEvent) {
	if audit == nil {
		return
	}
	if err := audit.RecordGuestEvent(ctx, event); err != nil {
		log.Error(err, "failed to record guest event",
			"eventType", event.EventType, "siteId", event.SiteID, "accountId", event.AccountID)
	}
}
