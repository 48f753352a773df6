// cleanup 실행 결과 알림
//
// 처리 흐름:
//  1. NotifyConfig.On 기준으로 알림 여부 결정 (errors / changes / always / never)
//  2. Slack이 설정되어 있으면 결과 요약 메시지 전송
//  3. webhook URL이 설정되어 있으면 body 템플릿을 렌더링해 HTTP 전송
//
// 채널별 실패는 로그와 메트릭에만 남고 cleanup 결과에는 영향을 주지 않는다.

package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/omada-guest/backend/internal/config"
	"github.com/omada-guest/backend/internal/metrics"
	"github.com/omada-guest/backend/internal/model"
	tmpl "github.com/omada-guest/backend/internal/template"
)

const (
	channelSlack   = "slack"
	channelWebhook = "webhook"
)

// ReportNotifier is invoked once per cleanup run.
type ReportNotifier interface {
	Notify(ctx context.Context, report *model.CleanupReport, trigger string)
}

// SlackReporter sends a cleanup report to Slack.
type SlackReporter interface {
	IsConfigured() bool
	SendCleanupReport(ctx context.Context, report *model.CleanupReport, trigger string) error
}

type CleanupNotifier struct {
	slack      SlackReporter
	on         string
	timeout    time.Duration
	webhookURL string
	method     string
	body       string
	httpClient *http.Client
	log        logr.Logger
}

// NewCleanupNotifier creates a notifier. slack may be nil.
func NewCleanupNotifier(cfg config.NotifyConfig, slack SlackReporter, httpClient *http.Client, log logr.Logger) *CleanupNotifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	method := cfg.WebhookMethod
	if method == "" {
		method = http.MethodPost
	}
	body := cfg.WebhookBody
	if body == "" {
		body = tmpl.DefaultWebhookBody
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	on := cfg.On
	if on == "" {
		on = config.NotifyOnErrors
	}
	return &CleanupNotifier{
		slack:      slack,
		on:         on,
		timeout:    timeout,
		webhookURL: cfg.WebhookURL,
		method:     method,
		body:       body,
		httpClient: httpClient,
		log:        log.WithName("notify"),
	}
}

// Notify delivers the report to every configured channel.
// The caller's cancellation is ignored so a finished run is still reported.
func (n *CleanupNotifier) Notify(ctx context.Context, report *model.CleanupReport, trigger string) {
	if report == nil || !n.shouldNotify(report) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	log := n.log.WithValues("runId", report.RunID, "trigger", trigger)

	if n.slack != nil && n.slack.IsConfigured() {
		err := n.slack.SendCleanupReport(ctx, report, trigger)
		n.record(log, channelSlack, err)
	}

	if n.webhookURL != "" {
		data := tmpl.ReportDataFromModel(report, trigger)
		err := n.sendWebhook(ctx, tmpl.RenderBody(n.body, &data))
		n.record(log, channelWebhook, err)
	}
}

func (n *CleanupNotifier) shouldNotify(report *model.CleanupReport) bool {
	switch n.on {
	case config.NotifyOnAlways:
		return true
	case config.NotifyOnChanges:
		return report.Deleted > 0 || len(report.Errors) > 0
	case config.NotifyOnErrors:
		return len(report.Errors) > 0
	default:
		return false
	}
}

func (n *CleanupNotifier) record(log logr.Logger, channel string, err error) {
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(channel, metrics.ResultFailure).Inc()
		log.Error(err, "failed to deliver cleanup notification", "channel", channel)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(channel, metrics.ResultSuccess).Inc()
	log.V(1).Info("cleanup notification delivered", "channel", channel)
}

// sendWebhook - 렌더링된 body를 webhook URL로 전송
func (n *CleanupNotifier) sendWebhook(ctx context.Context, body string) error {
	req, err := http.NewRequestWithContext(ctx, n.method, n.webhookURL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
