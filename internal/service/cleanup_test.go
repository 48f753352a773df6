package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omada-guest/backend/internal/errs"
	"github.com/omada-guest/backend/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCleanupService(controller ControllerClient, audit AuditRecorder, concurrency int) *CleanupService {
	return NewCleanupService(controller, audit, concurrency, logr.Discard()).
		WithClock(func() time.Time { return fixedNow })
}

func TestCleanup_NeverExpiringAccountsAreKept(t *testing.T) {
	nowMs := fixedNow.UnixMilli()
	controller := &fakeController{
		defaultSite: "s1",
		accounts: map[string][]model.Account{
			"s1": {
				{ID: "never", UserName: "100", ExpirationTimeMs: 0},
				{ID: "past", UserName: "101", ExpirationTimeMs: nowMs - 1000},
				{ID: "exact", UserName: "102", ExpirationTimeMs: nowMs},
				{ID: "future", UserName: "103", ExpirationTimeMs: nowMs + 1000},
			},
		},
	}

	report, err := newTestCleanupService(controller, nil, 1).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.SitesChecked)
	assert.Equal(t, 2, report.ExpiredFound)
	assert.Equal(t, 2, report.Deleted)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []string{"s1/past", "s1/exact"}, controller.deleted)
}

func TestCleanup_SiteFailureDoesNotAbortOthers(t *testing.T) {
	nowMs := fixedNow.UnixMilli()
	controller := &fakeController{
		sites: []model.Site{{SiteID: "s1"}, {SiteID: "s2"}, {SiteID: "s3"}},
		accounts: map[string][]model.Account{
			"s1": {{ID: "a1", UserName: "101", ExpirationTimeMs: nowMs - 1}},
			"s3": {{ID: "a3", UserName: "301", ExpirationTimeMs: nowMs - 1}},
		},
		accountErrs: map[string]error{
			"s2": errs.NewHTTPStatusError("list accounts", 503, "Service Unavailable"),
		},
	}

	report, err := newTestCleanupService(controller, nil, 1).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, report.SitesChecked)
	assert.Equal(t, 2, report.ExpiredFound)
	assert.Equal(t, 2, report.Deleted)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "Failed to process site s2:")
	require.Len(t, report.Failures, 1)
	assert.Equal(t, model.FailureKindSite, report.Failures[0].Kind)
	assert.Equal(t, "transport", report.Failures[0].ErrorKind)
}

func TestCleanup_DeleteFailureIsRecorded(t *testing.T) {
	nowMs := fixedNow.UnixMilli()
	controller := &fakeController{
		defaultSite: "s1",
		accounts: map[string][]model.Account{
			"s1": {
				{ID: "idA", UserName: "A", ExpirationTimeMs: nowMs - 10},
				{ID: "idB", UserName: "B", ExpirationTimeMs: nowMs - 10},
			},
		},
		deleteErrs: map[string]error{
			"idA": errs.NewUpstreamError("delete account", -33004, "The hotspot user does not exist."),
		},
	}
	audit := &fakeAuditRecorder{}

	report, err := newTestCleanupService(controller, audit, 1).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.ExpiredFound)
	assert.Equal(t, 1, report.Deleted)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "Failed to delete user A (idA):")
	assert.Equal(t, "upstream", report.Failures[0].ErrorKind)

	require.Len(t, audit.events, 1)
	assert.Equal(t, model.GuestEventExpiredDeleted, audit.events[0].EventType)
	assert.Equal(t, "idB", audit.events[0].AccountID)
	assert.Equal(t, report.RunID, audit.events[0].RunID)
	assert.Equal(t, TriggerAPI, audit.events[0].Actor)
}

func TestCleanup_TwoSitesEndToEnd(t *testing.T) {
	nowMs := fixedNow.UnixMilli()
	controller := &fakeController{
		sites: []model.Site{{SiteID: "A"}, {SiteID: "B"}},
		accounts: map[string][]model.Account{
			"A": {
				{ID: "a1", UserName: "101", ExpirationTimeMs: nowMs - 60_000},
				{ID: "a2", UserName: "102", ExpirationTimeMs: 0},
				{ID: "a3", UserName: "103", ExpirationTimeMs: nowMs + 3_600_000},
			},
		},
		accountErrs: map[string]error{
			"B": errs.NewTransportError("list accounts", context.DeadlineExceeded),
		},
	}

	report, err := newTestCleanupService(controller, nil, 1).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.SitesChecked)
	assert.Equal(t, 1, report.ExpiredFound)
	assert.Equal(t, 1, report.Deleted)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "B")
	assert.Equal(t, []string{"A/a1"}, controller.deleted)
}

func TestCleanup_ConcurrentKeepsSiteOrder(t *testing.T) {
	controller := &fakeController{
		sites: []model.Site{{SiteID: "s1"}, {SiteID: "s2"}, {SiteID: "s3"}, {SiteID: "s4"}},
		accountErrs: map[string]error{
			"s1": errBoom,
			"s2": errBoom,
			"s3": errBoom,
			"s4": errBoom,
		},
	}

	report, err := newTestCleanupService(controller, nil, 4).Run(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, report.Errors, 4)
	for i, id := range []string{"s1", "s2", "s3", "s4"} {
		assert.Equal(t, "Failed to process site "+id+": boom", report.Errors[i])
	}
}

func TestCleanup_SiteResolution(t *testing.T) {
	controller := &fakeController{
		defaultSite: "default",
		sitesErr:    errBoom,
	}
	svc := newTestCleanupService(controller, nil, 1)

	report, err := svc.Run(context.Background(), "explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", report.SiteID)
	assert.Equal(t, 1, report.SitesChecked)

	report, err = svc.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SitesChecked)
}

func TestCleanup_ListSitesFailureIsReturned(t *testing.T) {
	controller := &fakeController{sitesErr: errs.NewAuthenticationError(-44106, "invalid client", nil)}

	report, err := newTestCleanupService(controller, nil, 1).Run(context.Background(), "")
	assert.Nil(t, report)
	require.Error(t, err)
	assert.True(t, errs.IsAuthenticationError(err))
}

func TestCleanup_AuditFailureDoesNotFailRun(t *testing.T) {
	controller := &fakeController{
		defaultSite: "s1",
		accounts: map[string][]model.Account{
			"s1": {{ID: "a1", UserName: "101", ExpirationTimeMs: 1}},
		},
	}
	audit := &fakeAuditRecorder{err: errors.New("db down")}

	report, err := newTestCleanupService(controller, audit, 1).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Empty(t, report.Errors)
}

func TestCleanup_EmptyFleet(t *testing.T) {
	report, err := newTestCleanupService(&fakeController{}, nil, 1).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, report.SitesChecked)
	assert.NotNil(t, report.Errors)
	assert.NotEmpty(t, report.RunID)
}
