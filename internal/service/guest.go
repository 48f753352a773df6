package service

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"github.com/omada-guest/backend/internal/errs"
	"github.com/omada-guest/backend/internal/model"
)

const (
	maxUserNameLength    = 32
	minGuestPasswordLen  = 3
	defaultGuestValidity = 30 * 24 * time.Hour
)

var userNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// checkoutLayouts are the accepted checkoutDate formats. Layouts without a
// zone are read in local time (HTML datetime-local input).
var checkoutLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type GuestService struct {
	controller ControllerClient
	audit      AuditRecorder
	log        logr.Logger
	now        func() time.Time
}

func NewGuestService(controller ControllerClient, audit AuditRecorder, log logr.Logger) *GuestService {
	return &GuestService{
		controller: controller,
		audit:      audit,
		log:        log.WithName("guest"),
		now:        time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *GuestService) WithClock(now func() time.Time) *GuestService {
	s.now = now
	return s
}

// ListGuests returns the accounts of the resolved sites with their status.
// A site whose listing fails is logged and skipped.
func (s *GuestService) ListGuests(ctx context.Context, siteID string) ([]model.Guest, int, error) {
	siteIDs, err := resolveSiteIDs(ctx, s.controller, siteID)
	if err != nil {
		return nil, 0, err
	}

	guests := []model.Guest{}
	for _, id := range siteIDs {
		accounts, err := s.controller.ListAccounts(ctx, id)
		if err != nil {
			s.log.Error(err, "failed to list guests for site", "siteId", id)
			continue
		}
		nowMs := s.now().UnixMilli()
		for _, account := range accounts {
			guests = append(guests, model.NewGuest(account, nowMs))
		}
	}
	return guests, len(siteIDs), nil
}

// CreateGuest validates the request and provisions a guest account.
func (s *GuestService) CreateGuest(ctx context.Context, req model.CreateGuestRequest, actor string) (*model.GuestCreateResponse, error) {
	spec, err := s.buildAccountSpec(req)
	if err != nil {
		return nil, err
	}

	id, err := s.controller.CreateAccount(ctx, req.SiteID, spec)
	if err != nil {
		return nil, err
	}

	siteID := req.SiteID
	if siteID == "" {
		siteID = s.controller.DefaultSiteID()
	}
	s.log.Info("created guest account", "siteId", siteID, "userId", id, "userName", spec.UserName,
		"expiresAt", time.UnixMilli(spec.ExpirationTimeMs).Format(time.RFC3339))
	recordAudit(ctx, s.audit, s.log, model.GuestEvent{
		EventType:        model.GuestEventCreated,
		SiteID:           siteID,
		AccountID:        id,
		UserName:         spec.UserName,
		ExpirationTimeMs: spec.ExpirationTimeMs,
		Actor:            actor,
	})

	return &model.GuestCreateResponse{
		Success:        true,
		ID:             id,
		SiteID:         siteID,
		ExpirationTime: spec.ExpirationTimeMs,
	}, nil
}

// DeleteGuest removes one guest account.
func (s *GuestService) DeleteGuest(ctx context.Context, accountID, siteID, actor string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return errs.NewValidationError("userId", "account ID is required")
	}

	if err := s.controller.DeleteAccount(ctx, accountID, siteID); err != nil {
		return err
	}

	if siteID == "" {
		siteID = s.controller.DefaultSiteID()
	}
	s.log.Info("deleted guest account", "siteId", siteID, "userId", accountID)
	recordAudit(ctx, s.audit, s.log, model.GuestEvent{
		EventType: model.GuestEventDeleted,
		SiteID:    siteID,
		AccountID: accountID,
		Actor:     actor,
	})
	return nil
}

// ListSites returns the controller's sites.
func (s *GuestService) ListSites(ctx context.Context) ([]model.Site, error) {
	return s.controller.ListSites(ctx)
}

// ListPortals returns the portals of siteID (or the default site) and the site used.
func (s *GuestService) ListPortals(ctx context.Context, siteID string) (string, []model.Portal, error) {
	portals, err := s.controller.ListPortals(ctx, siteID)
	if err != nil {
		return "", nil, err
	}
	if siteID == "" {
		siteID = s.controller.DefaultSiteID()
	}
	return siteID, portals, nil
}

func (s *GuestService) buildAccountSpec(req model.CreateGuestRequest) (model.AccountSpec, error) {
	userName := req.UserName
	if userName == "" {
		return model.AccountSpec{}, errs.NewValidationError("userName", "room number is required")
	}
	if utf8.RuneCountInString(userName) > maxUserNameLength {
		return model.AccountSpec{}, errs.NewValidationError("userName", "room number must be at most 32 characters")
	}
	if !userNamePattern.MatchString(userName) {
		return model.AccountSpec{}, errs.NewValidationError("userName", "room number may only contain letters, digits, '_' and '-'")
	}

	if utf8.RuneCountInString(req.Password) < minGuestPasswordLen {
		return model.AccountSpec{}, errs.NewValidationError("password", "last name must be at least 3 characters")
	}

	portals := make([]string, 0, len(req.Portals))
	for _, p := range req.Portals {
		if p = strings.TrimSpace(p); p != "" {
			portals = append(portals, p)
		}
	}
	if len(portals) == 0 {
		return model.AccountSpec{}, errs.NewValidationError("portals", "at least one portal is required")
	}

	now := s.now()
	expiresAt := now.Add(defaultGuestValidity)
	if checkout := strings.TrimSpace(req.CheckoutDate); checkout != "" {
		parsed, err := parseCheckout(checkout)
		if err != nil {
			return model.AccountSpec{}, errs.NewValidationError("checkoutDate", "invalid checkout date format")
		}
		if !parsed.After(now) {
			return model.AccountSpec{}, errs.NewValidationError("checkoutDate", "checkout date must be in the future")
		}
		expiresAt = parsed
	}

	return model.AccountSpec{
		UserName:         userName,
		Password:         req.Password,
		ExpirationTimeMs: expiresAt.UnixMilli(),
		Portals:          portals,
	}, nil
}

func parseCheckout(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range checkoutLayouts {
		parsed, err := time.ParseInLocation(layout, value, time.Local)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
