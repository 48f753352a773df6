package template

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/omada-guest/backend/internal/model"
)

func TestRenderBody(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := &model.CleanupReport{
		RunID:        "run-1",
		SitesChecked: 2,
		ExpiredFound: 1,
		Deleted:      1,
		Errors:       []string{`Failed to process site B: list accounts: controller returned HTTP 500: "oops"`},
		StartedAt:    started,
		FinishedAt:   started.Add(1500 * time.Millisecond),
	}
	data := ReportDataFromModel(report, "schedule")

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "counts",
			body: "{{report.trigger}} {{report.status}} {{report.sites_checked}}/{{report.expired_found}}/{{report.deleted}}/{{report.error_count}}",
			want: "schedule partial 2/1/1/1",
		},
		{
			name: "times",
			body: "{{report.started_at}} {{report.duration_seconds}}",
			want: "2026-03-01T12:00:00Z 1.500",
		},
		{
			name: "unknown-variable-kept",
			body: "{{report.nope}}",
			want: "{{report.nope}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderBody(tt.body, &data); got != tt.want {
				t.Fatalf("RenderBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderDefaultBodyIsValidJSON(t *testing.T) {
	report := &model.CleanupReport{
		RunID:        "run-1",
		SitesChecked: 1,
		Errors: []string{`quote " and backslash \ and newline` + "\n"},
	}
	data := ReportDataFromModel(report, "api")

	var decoded map[string]any
	if err := json.Unmarshal([]byte(RenderBody(DefaultWebhookBody, &data)), &decoded); err != nil {
		t.Fatalf("rendered body is not JSON: %v", err)
	}
	if decoded["errorCount"] != float64(1) {
		t.Fatalf("errorCount = %v, want 1", decoded["errorCount"])
	}
	if decoded["status"] != StatusPartial {
		t.Fatalf("status = %v, want %s", decoded["status"], StatusPartial)
	}
}

func TestRenderBodyNilReport(t *testing.T) {
	if got := RenderBody("[{{report.run_id}}]", nil); got != "[]" {
		t.Fatalf("RenderBody(nil) = %q", got)
	}
}

func TestReportStatus(t *testing.T) {
	tests := []struct {
		name   string
		report model.CleanupReport
		want   string
	}{
		{name: "clean", report: model.CleanupReport{SitesChecked: 1}, want: StatusSuccess},
		{name: "some-errors", report: model.CleanupReport{SitesChecked: 2, Errors: []string{"x"}}, want: StatusPartial},
		{name: "no-sites", report: model.CleanupReport{Errors: []string{"x"}}, want: StatusFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReportDataFromModel(&tt.report, "api").Status; got != tt.want {
				t.Fatalf("status = %q, want %q", got, tt.want)
			}
		})
	}
}
