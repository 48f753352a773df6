// 만료된 게스트 계정 정리
//
// 처리 흐름:
//  1. 대상 site 결정 (명시된 siteId -> OMADA_SITE_ID -> 컨트롤러의 전체 site 목록)
//  2. site별로 계정 목록 조회 (실패 시 "Failed to process site ..." 기록 후 다음 site)
//  3. site마다 현재 시각을 한 번 읽고 expirationTime > 0 && expirationTime <= now 인 계정 선별
//  4. 선별된 계정을 목록 순서대로 삭제 (실패 시 "Failed to delete user ..." 기록 후 계속)
//  5. site별 결과를 site 순서대로 합쳐 CleanupReport 생성
//
// site 목록 조회 실패만 호출자에게 error로 반환된다. 나머지 실패는 report.errors에 남는다.

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/omada-guest/backend/internal/errs"
	"github.com/omada-guest/backend/internal/metrics"
	"github.com/omada-guest/backend/internal/model"
)

type CleanupService struct {
	controller  ControllerClient
	audit       AuditRecorder
	notifier    ReportNotifier
	concurrency int
	log         logr.Logger
	now         func() time.Time
}

type siteResult struct {
	expiredFound int
	deleted      int
	failures     []model.CleanupFailure
}

// NewCleanupService creates a CleanupService. concurrency <= 1 processes sites sequentially.
func NewCleanupService(controller ControllerClient, audit AuditRecorder, concurrency int, log logr.Logger) *CleanupService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CleanupService{
		controller:  controller,
		audit:       audit,
		concurrency: concurrency,
		log:         log.WithName("cleanup"),
		now:         time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *CleanupService) WithClock(now func() time.Time) *CleanupService {
	s.now = now
	return s
}

// WithNotifier sets where run results are reported. nil disables notifications.
func (s *CleanupService) WithNotifier(notifier ReportNotifier) *CleanupService {
	s.notifier = notifier
	return s
}

// Run performs one cleanup pass requested through the API.
func (s *CleanupService) Run(ctx context.Context, siteID string) (*model.CleanupReport, error) {
	return s.run(ctx, siteID, TriggerAPI)
}

// RunScheduled performs one cleanup pass over the default or all sites.
func (s *CleanupService) RunScheduled(ctx context.Context) (*model.CleanupReport, error) {
	return s.run(ctx, "", TriggerSchedule)
}

func (s *CleanupService) run(ctx context.Context, siteID, trigger string) (*model.CleanupReport, error) {
	report := &model.CleanupReport{
		RunID:     uuid.NewString(),
		SiteID:    siteID,
		Errors:    []string{},
		Failures:  []model.CleanupFailure{},
		StartedAt: s.now(),
	}
	log := s.log.WithValues("runId", report.RunID, "trigger", trigger)
	log.Info("cleanup run started", "siteId", siteID)

	siteIDs, err := resolveSiteIDs(ctx, s.controller, siteID)
	if err != nil {
		report.FinishedAt = s.now()
		s.observe(report, trigger, err)
		log.Error(err, "failed to resolve sites for cleanup")
		report.Errors = append(report.Errors, err.Error())
		s.notify(ctx, report, trigger)
		return nil, err
	}

	results := make([]siteResult, len(siteIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range siteIDs {
		g.Go(func() error {
			results[i] = s.cleanupSite(gctx, log, report.RunID, trigger, id)
			return nil
		})
	}
	_ = g.Wait()

	// site 순서대로 병합
	for _, res := range results {
		report.SitesChecked++
		report.ExpiredFound += res.expiredFound
		report.Deleted += res.deleted
		for _, failure := range res.failures {
			report.Failures = append(report.Failures, failure)
			report.Errors = append(report.Errors, failure.Message)
		}
	}
	report.FinishedAt = s.now()
	s.observe(report, trigger, nil)

	log.Info("cleanup run completed",
		"sitesChecked", report.SitesChecked,
		"expiredFound", report.ExpiredFound,
		"deleted", report.Deleted,
		"errors", len(report.Errors),
		"duration", report.Duration().String())
	s.notify(ctx, report, trigger)
	return report, nil
}

func (s *CleanupService) notify(ctx context.Context, report *model.CleanupReport, trigger string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, report, trigger)
}

func (s *CleanupService) cleanupSite(ctx context.Context, log logr.Logger, runID, trigger, siteID string) siteResult {
	log = log.WithValues("siteId", siteID)
	var res siteResult

	accounts, err := s.controller.ListAccounts(ctx, siteID)
	if err != nil {
		log.Error(err, "failed to list accounts")
		res.failures = append(res.failures, model.CleanupFailure{
			Kind:      model.FailureKindSite,
			SiteID:    siteID,
			ErrorKind: errs.Kind(err),
			Message:   fmt.Sprintf("Failed to process site %s: %s", siteID, err.Error()),
		})
		return res
	}

	nowMs := s.now().UnixMilli()
	var expired []model.Account
	for _, account := range accounts {
		if account.ExpiredAt(nowMs) {
			expired = append(expired, account)
		}
	}
	res.expiredFound = len(expired)
	if len(expired) == 0 {
		log.V(1).Info("no expired accounts", "accounts", len(accounts))
		return res
	}

	for _, account := range expired {
		if err := s.controller.DeleteAccount(ctx, account.ID, siteID); err != nil {
			log.Error(err, "failed to delete expired account", "userId", account.ID, "userName", account.UserName)
			res.failures = append(res.failures, model.CleanupFailure{
				Kind:      model.FailureKindAccount,
				SiteID:    siteID,
				AccountID: account.ID,
				UserName:  account.UserName,
				ErrorKind: errs.Kind(err),
				Message:   fmt.Sprintf("Failed to delete user %s (%s): %s", account.UserName, account.ID, err.Error()),
			})
			continue
		}

		res.deleted++
		log.Info("deleted expired account", "userId", account.ID, "userName", account.UserName,
			"expiredAt", account.ExpirationTime().Format(time.RFC3339))
		recordAudit(ctx, s.audit, log, model.GuestEvent{
			EventType:        model.GuestEventExpiredDeleted,
			SiteID:           siteID,
			AccountID:        account.ID,
			UserName:         account.UserName,
			ExpirationTimeMs: account.ExpirationTimeMs,
			RunID:            runID,
			Actor:            trigger,
		})
	}
	return res
}

func (s *CleanupService) observe(report *model.CleanupReport, trigger string, runErr error) {
	result := metrics.ResultSuccess
	switch {
	case runErr != nil:
		result = metrics.ResultFailure
	case len(report.Errors) > 0:
		result = metrics.ResultPartial
	}

	metrics.CleanupRunsTotal.WithLabelValues(trigger, result).Inc()
	metrics.CleanupRunDuration.Observe(report.Duration().Seconds())
	if runErr != nil {
		return
	}

	metrics.CleanupDeletedTotal.Add(float64(report.Deleted))
	for _, failure := range report.Failures {
		metrics.CleanupErrorsTotal.WithLabelValues(failure.Kind).Inc()
	}
	if result == metrics.ResultSuccess {
		metrics.CleanupLastSuccessTimestamp.Set(float64(report.FinishedAt.Unix()))
	}
}
