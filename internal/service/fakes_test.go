package service

import (
	"context"
	"errors"
	"sync"

	"github.com/omada-guest/backend/internal/model"
)

type fakeController struct {
	mu sync.Mutex

	defaultSite string
	sites       []model.Site
	sitesErr    error
	accounts    map[string][]model.Account
	accountErrs map[string]error
	deleteErrs  map[string]error
	portals     []model.Portal
	createdID   string
	createErr   error

	deleted []string
	created []model.AccountSpec
}

func (f *fakeController) DefaultSiteID() string { return f.defaultSite }

func (f *fakeController) ListSites(ctx context.Context) ([]model.Site, error) {
	if f.sitesErr != nil {
		return nil, f.sitesErr
	}
	return f.sites, nil
}

func (f *fakeController) ListPortals(ctx context.Context, siteID string) ([]model.Portal, error) {
	return f.portals, nil
}

func (f *fakeController) ListAccounts(ctx context.Context, siteID string) ([]model.Account, error) {
	if err := f.accountErrs[siteID]; err != nil {
		return nil, err
	}
	accounts := f.accounts[siteID]
	out := make([]model.Account, len(accounts))
	for i, a := range accounts {
		a.SiteID = siteID
		out[i] = a
	}
	return out, nil
}

func (f *fakeController) CreateAccount(ctx context.Context, siteID string, spec model.AccountSpec) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	f.created = append(f.created, spec)
	f.mu.Unlock()
	return f.createdID, nil
}

func (f *fakeController) DeleteAccount(ctx context.Context, accountID, siteID string) error {
	if err := f.deleteErrs[accountID]; err != nil {
		return err
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, siteID+"/"+accountID)
	f.mu.Unlock()
	return nil
}

type fakeAuditRecorder struct {
	mu     sync.Mutex
	events []model.GuestEvent
	err    error
}

func (f *fakeAuditRecorder) RecordGuestEvent(ctx context.Context, event model.GuestEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	return nil
}

type fakeAuditRepo struct {
	inserted []model.GuestEvent
	limit    int
}

func (f *fakeAuditRepo) InsertGuestEvent(ctx context.Context, event model.GuestEvent) (int64, error) {
	f.inserted = append(f.inserted, event)
	return int64(len(f.inserted)), nil
}

func (f *fakeAuditRepo) ListGuestEvents(ctx context.Context, limit int) ([]model.GuestEvent, error) {
	f.limit = limit
	return nil, nil
}

var errBoom = errors.New("boom")
