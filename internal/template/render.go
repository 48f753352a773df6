// Package template provides webhook body template rendering.
//
// 지원하는 변수 형식:
//
//	{{report.run_id}}, {{report.trigger}}, {{report.status}},
//	{{report.site_id}}, {{report.sites_checked}}, {{report.expired_found}},
//	{{report.deleted}}, {{report.error_count}}, {{report.errors}},
//	{{report.started_at}}, {{report.finished_at}}, {{report.duration_seconds}}
//
// 치환 값은 JSON 문자열 안에 그대로 넣을 수 있도록 escape 된다.
package template

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/omada-guest/backend/internal/model"
)

// Report outcome labels exposed as {{report.status}}.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailure = "failure"
)

// DefaultWebhookBody is used when CLEANUP_WEBHOOK_BODY is empty.
const DefaultWebhookBody = `{"event":"guest_cleanup","runId":"{{report.run_id}}","trigger":"{{report.trigger}}","status":"{{report.status}}","sitesChecked":{{report.sites_checked}},"expiredFound":{{report.expired_found}},"deleted":{{report.deleted}},"errorCount":{{report.error_count}},"errors":"{{report.errors}}","finishedAt":"{{report.finished_at}}"}`

// ReportData - 템플릿 렌더링에 사용할 cleanup 결과
type ReportData struct {
	RunID        string
	Trigger      string
	Status       string
	SiteID       string
	SitesChecked int
	ExpiredFound int
	Deleted      int
	Errors       []string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// ReportDataFromModel - CleanupReport에서 ReportData 생성
func ReportDataFromModel(report *model.CleanupReport, trigger string) ReportData {
	status := StatusSuccess
	switch {
	case len(report.Errors) > 0 && report.SitesChecked == 0:
		status = StatusFailure
	case len(report.Errors) > 0:
		status = StatusPartial
	}
	return ReportData{
		RunID:        report.RunID,
		Trigger:      trigger,
		Status:       status,
		SiteID:       report.SiteID,
		SitesChecked: report.SitesChecked,
		ExpiredFound: report.ExpiredFound,
		Deleted:      report.Deleted,
		Errors:       report.Errors,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
	}
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
//
// report가 nil이면 모든 변수는 빈 문자열로 치환됩니다.
func RenderBody(body string, report *ReportData) string {
	keys := []string{
		"{{report.run_id}}",
		"{{report.trigger}}",
		"{{report.status}}",
		"{{report.site_id}}",
		"{{report.sites_checked}}",
		"{{report.expired_found}}",
		"{{report.deleted}}",
		"{{report.error_count}}",
		"{{report.errors}}",
		"{{report.started_at}}",
		"{{report.finished_at}}",
		"{{report.duration_seconds}}",
	}

	values := make([]string, len(keys))
	if report != nil {
		duration := 0.0
		if !report.FinishedAt.IsZero() {
			duration = report.FinishedAt.Sub(report.StartedAt).Seconds()
		}
		values = []string{
			report.RunID,
			report.Trigger,
			report.Status,
			report.SiteID,
			strconv.Itoa(report.SitesChecked),
			strconv.Itoa(report.ExpiredFound),
			strconv.Itoa(report.Deleted),
			strconv.Itoa(len(report.Errors)),
			strings.Join(report.Errors, "; "),
			formatTime(report.StartedAt),
			formatTime(report.FinishedAt),
			strconv.FormatFloat(duration, 'f', 3, 64),
		}
	}

	pairs := make([]string, 0, len(keys)*2)
	for i, key := range keys {
		pairs = append(pairs, key, escapeJSON(values[i]))
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// escapeJSON returns s escaped for use inside a JSON string literal.
func escapeJSON(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(encoded[1 : len(encoded)-1])
}
