// 만료 게스트 정리 스케줄러
//
// 처리 흐름:
//  1. Start(ctx): CLEANUP_SCHEDULE (cron 표현식 또는 @every/@hourly) 파싱 후 cron 등록
//  2. 이미 시작된 경우 로그만 남기고 무시
//  3. tick마다 CLEANUP_RUN_TIMEOUT 으로 제한된 ctx에서 RunScheduled 실행
//  4. 이전 실행이 아직 진행 중이면 해당 tick은 건너뜀
//  5. Stop(): 새 tick 중단, 진행 중인 실행 종료까지 대기

package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"

	"github.com/omada-guest/backend/internal/errs"
	"github.com/omada-guest/backend/internal/metrics"
	"github.com/omada-guest/backend/internal/model"
	"github.com/omada-guest/backend/internal/service"
)

const (
	DefaultSchedule   = "0 * * * *"
	defaultRunTimeout = 10 * time.Minute
)

type CleanupRunner interface {
	RunScheduled(ctx context.Context) (*model.CleanupReport, error)
}

type CleanupScheduler struct {
	runner  CleanupRunner
	spec    string
	timeout time.Duration
	log     logr.Logger

	running atomic.Bool

	mu         sync.Mutex
	started    bool
	cron       *cron.Cron
	entryID    cron.EntryID
	baseCtx    context.Context
	lastRunAt  time.Time
	lastReport *model.CleanupReport
	lastError  string
}

func NewCleanupScheduler(runner CleanupRunner, spec string, timeout time.Duration, log logr.Logger) *CleanupScheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	return &CleanupScheduler{
		runner:  runner,
		spec:    spec,
		timeout: timeout,
		log:     log.WithName("scheduler"),
	}
}

// Start registers the cleanup job. Calling Start again while started is a no-op.
func (s *CleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Info("cleanup scheduler already started", "schedule", s.spec)
		return nil
	}

	schedule, err := cron.ParseStandard(s.spec)
	if err != nil {
		return errs.NewConfigurationError("CLEANUP_SCHEDULE", err.Error())
	}

	c := cron.New(cron.WithChain(cron.Recover(s.log)), cron.WithLogger(s.log.V(1)))
	s.entryID = c.Schedule(schedule, cron.FuncJob(s.tick))
	s.cron = c
	s.baseCtx = ctx
	s.started = true
	c.Start()

	s.log.Info("cleanup scheduler started", "schedule", s.spec, "runTimeout", s.timeout.String())
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	done := s.cron.Stop()
	s.started = false
	s.mu.Unlock()

	<-done.Done()
	s.log.Info("cleanup scheduler stopped")
}

// Started reports whether the scheduler is active.
func (s *CleanupScheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Status returns the scheduler state and the last run outcome.
func (s *CleanupScheduler) Status() model.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := model.ScheduleStatus{
		Schedule:   s.spec,
		Started:    s.started,
		Running:    s.running.Load(),
		LastError:  s.lastError,
		LastReport: s.lastReport,
	}
	if !s.lastRunAt.IsZero() {
		last := s.lastRunAt
		status.LastRunAt = &last
	}
	if s.started {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRunAt = &next
		}
	}
	return status
}

func (s *CleanupScheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info("previous cleanup run still in progress, skipping tick")
		metrics.CleanupRunsTotal.WithLabelValues(service.TriggerSchedule, metrics.ResultSkipped).Inc()
		return
	}
	defer s.running.Store(false)

	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	if base.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	startedAt := time.Now()
	report, err := s.runner.RunScheduled(ctx)

	s.mu.Lock()
	s.lastRunAt = startedAt
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
		s.lastReport = report
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Error(err, "scheduled cleanup timed out", "timeout", s.timeout.String())
			return
		}
		s.log.Error(err, "scheduled cleanup failed")
	}
}
