package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omada-guest/backend/internal/model"
)

func TestSlackClient_SendCleanupReport(t *testing.T) {
	var got SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"ts":"1.2"}`))
	}))
	defer srv.Close()

	c := NewSlackClient(SlackConfig{BotToken: "xoxb-test", ChannelID: "C1", APIURL: srv.URL}, nil)
	report := &model.CleanupReport{
		RunID:        "run-1",
		SitesChecked: 2,
		ExpiredFound: 1,
		Deleted:      1,
		Errors:       []string{"Failed to process site B: boom"},
		Failures:     []model.CleanupFailure{{Kind: model.FailureKindSite, SiteID: "B"}},
	}

	require.NoError(t, c.SendCleanupReport(context.Background(), report, "schedule"))
	assert.Equal(t, "C1", got.Channel)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "#ffc107", got.Attachments[0].Color)
	assert.Contains(t, got.Attachments[0].Text, "Failed to process site B")
	assert.Contains(t, got.Attachments[0].Title, "1 deleted")
}

func TestSlackClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	c := NewSlackClient(SlackConfig{BotToken: "xoxb-test", ChannelID: "C1", APIURL: srv.URL}, nil)
	err := c.SendCleanupReport(context.Background(), &model.CleanupReport{}, "api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestSlackClient_NotConfigured(t *testing.T) {
	c := NewSlackClient(SlackConfig{}, nil)
	assert.False(t, c.IsConfigured())
	assert.Error(t, c.SendCleanupReport(context.Background(), &model.CleanupReport{}, "api"))
}

func TestErrorSummaryTruncates(t *testing.T) {
	errors := make([]string, 12)
	for i := range errors {
		errors[i] = fmt.Sprintf("err-%d", i)
	}
	summary := errorSummary(errors)
	assert.Equal(t, maxSlackErrorLines, strings.Count(summary, "• "))
	assert.Contains(t, summary, "and 2 more")
}

func TestReportColor(t *testing.T) {
	tests := []struct {
		name   string
		report model.CleanupReport
		want   string
	}{
		{name: "clean", report: model.CleanupReport{SitesChecked: 1}, want: "#36a64f"},
		{name: "all-sites-failed", report: model.CleanupReport{
			SitesChecked: 1,
			Errors:       []string{"x"},
			Failures:     []model.CleanupFailure{{Kind: model.FailureKindSite}},
		}, want: "#dc3545"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reportColor(&tt.report); got != tt.want {
				t.Fatalf("reportColor() = %q, want %q", got, tt.want)
			}
		})
	}
}
