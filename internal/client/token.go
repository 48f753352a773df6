// 컨트롤러 access token 캐시 및 갱신
//
// 처리 흐름:
//  1. 캐시된 token이 있고 now < expiry 이면 그대로 반환
//  2. 아니면 진행 중인 갱신에 합류하거나 새 갱신 시작 (ctx 취소 시 대기만 중단)
//  3. 갱신 안에서 캐시를 다시 확인 (직전에 다른 갱신이 끝났을 수 있음)
//  4. POST /openapi/authorize/token 으로 client credential 인증
//  5. expiry = 발급 시각 + expiresIn - safetyMargin 으로 캐시 교체
//
// 동시에 만료된 token을 요청한 호출자들은 하나의 인증 요청으로 합쳐지고
// 성공이든 실패든 같은 결과를 받는다.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/omada-guest/backend/internal/errs"
	"github.com/omada-guest/backend/internal/metrics"
)

const (
	// DefaultTokenSafetyMargin keeps a token from being used right before it expires mid-request.
	DefaultTokenSafetyMargin = 60 * time.Second

	// errCodeInvalidClient is returned when client_id/client_secret do not match.
	errCodeInvalidClient = -44106

	maxResponseBytes = 4 << 20
)

// TokenManagerConfig holds the client credentials for the controller.
type TokenManagerConfig struct {
	BaseURL      string
	OmadacID     string
	ClientID     string
	ClientSecret string
	SafetyMargin time.Duration
}

// TokenManager holds the single cached controller credential.
type TokenManager struct {
	cfg        TokenManagerConfig
	httpClient *http.Client
	log        logr.Logger
	now        func() time.Time

	mu    sync.RWMutex
	token *oauth2.Token

	refresh singleflight.Group
}

const refreshKey = "access-token"

type tokenRequest struct {
	OmadacID     string `json:"omadacId"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	ErrorCode int    `json:"errorCode"`
	Msg       string `json:"msg"`
	Result    struct {
		AccessToken  string `json:"accessToken"`
		TokenType    string `json:"tokenType"`
		ExpiresIn    int64  `json:"expiresIn"`
		RefreshToken string `json:"refreshToken"`
	} `json:"result"`
}

// NewTokenManager creates a TokenManager. A zero SafetyMargin uses the default.
func NewTokenManager(cfg TokenManagerConfig, httpClient *http.Client, log logr.Logger) *TokenManager {
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = DefaultTokenSafetyMargin
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPClientConfig().Timeout}
	}
	return &TokenManager{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log.WithName("token"),
		now:        time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// Token returns a valid credential, authenticating against the controller
// when the cached one is missing or stale.
func (m *TokenManager) Token(ctx context.Context) (*oauth2.Token, error) {
	if tok := m.cached(); tok != nil {
		return tok, nil
	}

	// 갱신 요청은 첫 호출자의 취소와 무관하게 끝까지 진행 (httpClient timeout으로 제한)
	refreshCtx := context.WithoutCancel(ctx)
	ch := m.refresh.DoChan(refreshKey, func() (any, error) {
		if tok := m.cached(); tok != nil {
			return tok, nil
		}
		return m.refreshToken(refreshCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	case <-ctx.Done():
		return nil, errs.NewTransportError("authenticate", ctx.Err())
	}
}

func (m *TokenManager) refreshToken(ctx context.Context) (*oauth2.Token, error) {
	tok, err := m.authenticate(ctx)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues(metrics.ResultFailure).Inc()
		m.log.Error(err, "failed to refresh controller access token")
		return nil, err
	}
	metrics.TokenRefreshTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()

	m.log.V(1).Info("refreshed controller access token", "expiry", tok.Expiry.Format(time.RFC3339))
	return tok, nil
}

// TokenSource adapts the manager to oauth2.TokenSource, bound to ctx.
func (m *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, m: m}
}

type tokenSource struct {
	ctx context.Context
	m   *TokenManager
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	return s.m.Token(s.ctx)
}

// Invalidate drops the cached credential so the next call re-authenticates.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
}

// InvalidateIf drops the cached credential only when it is still accessToken.
// A rejection of an older token leaves a newer cached one in place.
func (m *TokenManager) InvalidateIf(accessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != nil && m.token.AccessToken == accessToken {
		m.token = nil
	}
}

// Cached reports whether a still-valid credential is held.
func (m *TokenManager) Cached() bool {
	return m.cached() != nil
}

func (m *TokenManager) cached() *oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token != nil && m.token.AccessToken != "" && m.now().Before(m.token.Expiry) {
		return m.token
	}
	return nil
}

func (m *TokenManager) authenticate(ctx context.Context) (*oauth2.Token, error) {
	endpoint := m.cfg.BaseURL + "/openapi/authorize/token?" + url.Values{"grant_type": {"client_credentials"}}.Encode()

	payload, err := json.Marshal(tokenRequest{
		OmadacID:     m.cfg.OmadacID,
		ClientID:     m.cfg.ClientID,
		ClientSecret: m.cfg.ClientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.NewConfigurationError("OMADA_API_BASE_URL", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, errs.NewTransportError("authenticate", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errs.NewTransportError("authenticate", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.NewAuthenticationError(resp.StatusCode, http.StatusText(resp.StatusCode), nil)
	}

	var data tokenResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, errs.NewTransportError("authenticate", fmt.Errorf("failed to parse response: %w", err))
	}

	if data.ErrorCode != 0 {
		msg := data.Msg
		if data.ErrorCode == errCodeInvalidClient {
			msg += ". Verify OMADA_CLIENT_ID and OMADA_CLIENT_SECRET"
		}
		return nil, errs.NewAuthenticationError(data.ErrorCode, msg, nil)
	}
	if data.Result.AccessToken == "" {
		return nil, errs.NewAuthenticationError(0, "controller returned an empty access token", nil)
	}

	issuedAt := m.now()
	return &oauth2.Token{
		AccessToken:  data.Result.AccessToken,
		TokenType:    data.Result.TokenType,
		RefreshToken: data.Result.RefreshToken,
		Expiry:       issuedAt.Add(time.Duration(data.Result.ExpiresIn)*time.Second - m.cfg.SafetyMargin),
	}, nil
}
