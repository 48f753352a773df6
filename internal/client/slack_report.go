// Slack cleanup 결과 메시지 관련 메서드 정의

package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/omada-guest/backend/internal/model"
)

// 메시지에 포함할 최대 오류 줄 수
const maxSlackErrorLines = 10

// cleanup 실행 결과를 Slack으로 전송
func (c *SlackClient) SendCleanupReport(ctx context.Context, report *model.CleanupReport, trigger string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}

	title := fmt.Sprintf("%s Guest cleanup (%s): %d deleted",
		reportEmoji(report), trigger, report.Deleted)

	fields := []SlackField{
		{Title: "Sites checked", Value: strconv.Itoa(report.SitesChecked), Short: true},
		{Title: "Expired found", Value: strconv.Itoa(report.ExpiredFound), Short: true},
		{Title: "Deleted", Value: strconv.Itoa(report.Deleted), Short: true},
		{Title: "Errors", Value: strconv.Itoa(len(report.Errors)), Short: true},
	}
	if report.SiteID != "" {
		fields = append(fields, SlackField{Title: "Site", Value: report.SiteID, Short: true})
	}
	if c.frontendURL != "" {
		fields = append(fields, SlackField{Title: "Guests", Value: fmt.Sprintf("<%s|게스트 관리 화면 열기>", c.frontendURL)})
	}

	msg := SlackMessage{
		Channel: c.channelID,
		Text:    title,
		Attachments: []SlackAttachment{
			{
				Color:  reportColor(report),
				Title:  title,
				Text:   errorSummary(report.Errors),
				Fields: fields,
				Footer: "run " + report.RunID,
				Ts:     time.Now().Unix(),
			},
		},
	}

	_, err := c.send(ctx, msg)
	return err
}

// 결과에 따른 메시지 색상 반환
func reportColor(report *model.CleanupReport) string {
	switch {
	case len(report.Errors) == 0:
		return "#36a64f" // green
	case report.Deleted > 0 || report.SitesChecked > len(report.Failures):
		return "#ffc107" // yellow
	default:
		return "#dc3545" // red
	}
}

func reportEmoji(report *model.CleanupReport) string {
	if len(report.Errors) == 0 {
		return "✅"
	}
	return "⚠️"
}

func errorSummary(errors []string) string {
	if len(errors) == 0 {
		return ""
	}
	lines := errors
	if len(lines) > maxSlackErrorLines {
		lines = lines[:maxSlackErrorLines]
	}
	summary := "• " + strings.Join(lines, "\n• ")
	if rest := len(errors) - len(lines); rest > 0 {
		summary += fmt.Sprintf("\n…and %d more", rest)
	}
	return summary
}
