package model

import "time"

const (
	FailureKindSite    = "site"
	FailureKindAccount = "account"
)

// CleanupFailure - cleanup 실행 중 개별 실패 (Errors 문자열과 같은 순서)
type CleanupFailure struct {
	Kind      string `json:"kind"`
	SiteID    string `json:"siteId"`
	AccountID string `json:"accountId,omitempty"`
	UserName  string `json:"userName,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message"`
}

// CleanupReport - cleanup 1회 실행 결과. 실행마다 새로 생성, 저장하지 않음
type CleanupReport struct {
	RunID        string           `json:"runId"`
	SiteID       string           `json:"siteId,omitempty"`
	SitesChecked int              `json:"sitesChecked"`
	ExpiredFound int              `json:"expiredFound"`
	Deleted      int              `json:"deleted"`
	Errors       []string         `json:"errors"`
	Failures     []CleanupFailure `json:"failures"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
}

// Duration returns how long the run took.
func (r *CleanupReport) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CleanupRequest - POST /api/v1/cleanup 요청 (siteId 생략 시 기본 site 또는 전체 site)
type CleanupRequest struct {
	SiteID string `json:"siteId"`
}

// CleanupResponse - cleanup 응답
type CleanupResponse struct {
	Success bool `json:"success"`
	*CleanupReport
}

// ScheduleStatus - GET /api/v1/cleanup/schedule 응답
type ScheduleStatus struct {
	Schedule   string         `json:"schedule"`
	Started    bool           `json:"started"`
	Running    bool           `json:"running"`
	LastRunAt  *time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt  *time.Time     `json:"nextRunAt,omitempty"`
	LastError  string         `json:"lastError,omitempty"`
	LastReport *CleanupReport `json:"lastReport,omitempty"`
}
