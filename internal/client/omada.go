// Omada 컨트롤러 Open API 클라이언트
//
// 환경변수:
//   - OMADA_API_BASE_URL: 컨트롤러 URL (예: https://omada.example.com)
//   - OMADA_ID: omadacId (모든 API 경로에 포함)
//   - OMADA_SITE_ID: 기본 site (선택)
//
// 모든 호출은 TokenManager에서 token을 받아 "Authorization: AccessToken=<token>" 헤더로 전송한다.
// 응답 분류:
//   - 네트워크 오류, 타임아웃, non-2xx -> TransportError
//   - 2xx + errorCode != 0           -> UpstreamError
//   - 그 외                           -> result 디코딩

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"github.com/omada-guest/backend/internal/errs"
	"github.com/omada-guest/backend/internal/metrics"
	"github.com/omada-guest/backend/internal/model"
)

const (
	opListSites     = "list sites"
	opListPortals   = "list portals"
	opListAccounts  = "list accounts"
	opCreateAccount = "create account"
	opDeleteAccount = "delete account"

	// 컨트롤러가 token 만료/무효로 거부한 경우의 errorCode
	errCodeTokenExpired = -44112
	errCodeTokenInvalid = -44113

	defaultSitesPageSize    = 100
	defaultAccountsPageSize = 1000
)

// TokenProvider supplies controller credentials.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	InvalidateIf(accessToken string)
}

// OmadaClientConfig holds the controller addressing settings.
type OmadaClientConfig struct {
	BaseURL          string
	OmadacID         string
	DefaultSiteID    string
	SitesPageSize    int
	AccountsPageSize int
}

// OmadaClient performs typed, authenticated controller calls.
type OmadaClient struct {
	cfg        OmadaClientConfig
	httpClient *http.Client
	tokens     TokenProvider
	log        logr.Logger
}

type envelope struct {
	ErrorCode int             `json:"errorCode"`
	Msg       string          `json:"msg"`
	Result    json.RawMessage `json:"result"`
}

type pagedResult[T any] struct {
	TotalRows   int `json:"totalRows"`
	CurrentPage int `json:"currentPage"`
	CurrentSize int `json:"currentSize"`
	Data        []T `json:"data"`
}

type rateLimit struct {
	Mode               int              `json:"mode"`
	RateLimitProfileID string           `json:"rateLimitProfileId,omitempty"`
	CustomRateLimit    *customRateLimit `json:"customRateLimit,omitempty"`
}

type customRateLimit struct {
	DownLimitEnable bool `json:"downLimitEnable"`
	DownLimit       int  `json:"downLimit"`
	UpLimitEnable   bool `json:"upLimitEnable"`
	UpLimit         int  `json:"upLimit"`
}

type dailyLimit struct {
	AuthTimeout       int `json:"authTimeout"`
	CustomTimeout     int `json:"customTimeout"`
	CustomTimeoutUnit int `json:"customTimeoutUnit"`
}

type createLocalUserRequest struct {
	UserName              string     `json:"userName"`
	Password              string     `json:"password"`
	Enable                bool       `json:"enable"`
	ExpirationTime        int64      `json:"expirationTime"`
	BindingType           int        `json:"bindingType"`
	MaxUsers              int        `json:"maxUsers"`
	RateLimit             rateLimit  `json:"rateLimit"`
	TrafficLimitEnable    bool       `json:"trafficLimitEnable"`
	TrafficLimit          int        `json:"trafficLimit"`
	TrafficLimitFrequency int        `json:"trafficLimitFrequency"`
	Portals               []string   `json:"portals"`
	ApplyToAllPortals     bool       `json:"applyToAllPortals"`
	DailyLimitEnable      bool       `json:"dailyLimitEnable"`
	DailyLimit            dailyLimit `json:"dailyLimit"`
}

type createLocalUserResult struct {
	ID string `json:"id"`
}

// NewOmadaClient creates an OmadaClient.
func NewOmadaClient(cfg OmadaClientConfig, tokens TokenProvider, httpClient *http.Client, log logr.Logger) *OmadaClient {
	if cfg.SitesPageSize <= 0 {
		cfg.SitesPageSize = defaultSitesPageSize
	}
	if cfg.AccountsPageSize <= 0 {
		cfg.AccountsPageSize = defaultAccountsPageSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPClientConfig().Timeout}
	}
	return &OmadaClient{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     tokens,
		log:        log.WithName("omada"),
	}
}

// DefaultSiteID returns the configured default site, or "".
func (c *OmadaClient) DefaultSiteID() string {
	return c.cfg.DefaultSiteID
}

// ListSites returns the first page of sites. The page size is bounded
// (OmadaClientConfig.SitesPageSize); larger fleets are not paginated.
func (c *OmadaClient) ListSites(ctx context.Context) ([]model.Site, error) {
	query := url.Values{
		"page":     {"1"},
		"pageSize": {strconv.Itoa(c.cfg.SitesPageSize)},
	}
	var page pagedResult[model.Site]
	if err := c.do(ctx, opListSites, http.MethodGet, "/sites", query, nil, &page); err != nil {
		return nil, err
	}
	if page.TotalRows > len(page.Data) {
		c.log.Info("controller has more sites than one page holds, raise OMADA_SITES_PAGE_SIZE",
			"totalRows", page.TotalRows, "pageSize", c.cfg.SitesPageSize)
	}
	if page.Data == nil {
		return []model.Site{}, nil
	}
	return page.Data, nil
}

// ListPortals returns the portals of siteID, or of the default site when empty.
func (c *OmadaClient) ListPortals(ctx context.Context, siteID string) ([]model.Portal, error) {
	siteID, err := c.resolveSite(siteID)
	if err != nil {
		return nil, err
	}
	var portals []model.Portal
	if err := c.do(ctx, opListPortals, http.MethodGet, "/sites/"+url.PathEscape(siteID)+"/portals", nil, nil, &portals); err != nil {
		return nil, err
	}
	if portals == nil {
		portals = []model.Portal{}
	}
	return portals, nil
}

// ListAccounts returns every hotspot local user of siteID, unfiltered.
func (c *OmadaClient) ListAccounts(ctx context.Context, siteID string) ([]model.Account, error) {
	siteID, err := c.resolveSite(siteID)
	if err != nil {
		return nil, err
	}
	query := url.Values{
		"page":     {"1"},
		"pageSize": {strconv.Itoa(c.cfg.AccountsPageSize)},
	}
	var raw json.RawMessage
	if err := c.do(ctx, opListAccounts, http.MethodGet, localUsersPath(siteID), query, nil, &raw); err != nil {
		return nil, err
	}

	accounts, totalRows, err := decodeAccounts(raw)
	if err != nil {
		return nil, errs.NewTransportError(opListAccounts, err)
	}
	if totalRows > len(accounts) {
		c.log.Info("site has more local users than one page holds, raise OMADA_ACCOUNTS_PAGE_SIZE",
			"siteId", siteID, "totalRows", totalRows, "pageSize", c.cfg.AccountsPageSize)
	}
	for i := range accounts {
		accounts[i].SiteID = siteID
	}
	return accounts, nil
}

// CreateAccount provisions a guest account and returns the controller id,
// or "" when the controller omits it.
func (c *OmadaClient) CreateAccount(ctx context.Context, siteID string, spec model.AccountSpec) (string, error) {
	siteID, err := c.resolveSite(siteID)
	if err != nil {
		return "", err
	}

	portals := spec.Portals
	if portals == nil {
		portals = []string{}
	}
	payload := createLocalUserRequest{
		UserName:       spec.UserName,
		Password:       spec.Password,
		Enable:         true,
		ExpirationTime: spec.ExpirationTimeMs,
		BindingType:    0,
		MaxUsers:       10,
		RateLimit: rateLimit{
			Mode:            0,
			CustomRateLimit: &customRateLimit{},
		},
		Portals:           portals,
		ApplyToAllPortals: false,
		DailyLimitEnable:  false,
		// dailyLimitEnable=false 이므로 적용되지 않는 기본값 (30분 preset)
		DailyLimit: dailyLimit{
			AuthTimeout:       1,
			CustomTimeout:     30,
			CustomTimeoutUnit: 1,
		},
	}

	var result createLocalUserResult
	if err := c.do(ctx, opCreateAccount, http.MethodPost, localUsersPath(siteID), nil, payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// DeleteAccount removes a guest account. An account that is already gone is
// reported by the controller as an UpstreamError.
func (c *OmadaClient) DeleteAccount(ctx context.Context, accountID, siteID string) error {
	if accountID == "" {
		return errs.NewValidationError("accountId", "account ID is required")
	}
	siteID, err := c.resolveSite(siteID)
	if err != nil {
		return err
	}
	return c.do(ctx, opDeleteAccount, http.MethodDelete, localUsersPath(siteID)+"/"+url.PathEscape(accountID), nil, nil, nil)
}

func (c *OmadaClient) resolveSite(siteID string) (string, error) {
	if siteID != "" {
		return siteID, nil
	}
	if c.cfg.DefaultSiteID != "" {
		return c.cfg.DefaultSiteID, nil
	}
	return "", errs.NewConfigurationError("OMADA_SITE_ID", "site ID is required: pass siteId or configure OMADA_SITE_ID")
}

func localUsersPath(siteID string) string {
	return "/sites/" + url.PathEscape(siteID) + "/hotspot/localusers"
}

// do performs one authenticated call and decodes envelope.result into out.
func (c *OmadaClient) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) (err error) {
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultFailure
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, result).Inc()
	}()

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := c.cfg.BaseURL + "/openapi/v1/" + url.PathEscape(c.cfg.OmadacID) + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errs.NewConfigurationError("OMADA_API_BASE_URL", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "AccessToken="+tok.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.NewTransportError(operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errs.NewTransportError(operation, fmt.Errorf("failed to read response: %w", err))
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.InvalidateIf(tok.AccessToken)
		}
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && env.Msg != "" {
			msg = env.Msg
		}
		return errs.NewHTTPStatusError(operation, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return errs.NewTransportError(operation, fmt.Errorf("failed to parse response: %w", decodeErr))
	}

	if env.ErrorCode != 0 {
		if env.ErrorCode == errCodeTokenExpired || env.ErrorCode == errCodeTokenInvalid {
			c.tokens.InvalidateIf(tok.AccessToken)
		}
		return errs.NewUpstreamError(operation, env.ErrorCode, env.Msg)
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return errs.NewTransportError(operation, fmt.Errorf("failed to parse result: %w", err))
	}
	return nil
}

// decodeAccounts accepts either a bare array or a paged {data:[...]} result.
// totalRows is the controller's total for the paged form, len(accounts) otherwise.
func decodeAccounts(raw json.RawMessage) ([]model.Account, int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return []model.Account{}, 0, nil
	}
	if trimmed[0] == '[' {
		var accounts []model.Account
		if err := json.Unmarshal(trimmed, &accounts); err != nil {
			return nil, 0, fmt.Errorf("failed to parse accounts: %w", err)
		}
		return accounts, len(accounts), nil
	}
	var page pagedResult[model.Account]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, 0, fmt.Errorf("failed to parse accounts page: %w", err)
	}
	if page.Data == nil {
		page.Data = []model.Account{}
	}
	return page.Data, page.TotalRows, nil
}
