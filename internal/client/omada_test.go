package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/omada-guest/backend/internal/errs"
	"github.com/omada-guest/backend/internal/model"
)

type fakeTokenProvider struct {
	mu          sync.Mutex
	token       string
	err         error
	invalidated int32
	revoked     []string
}

func (f *fakeTokenProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: f.token, Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeTokenProvider) InvalidateIf(accessToken string) {
	atomic.AddInt32(&f.invalidated, 1)
	f.mu.Lock()
	f.revoked = append(f.revoked, accessToken)
	f.mu.Unlock()
}

func newTestOmadaClient(serverURL, defaultSite string, tokens TokenProvider) *OmadaClient {
	return NewOmadaClient(OmadaClientConfig{
		BaseURL:       serverURL,
		OmadacID:      "omadac-1",
		DefaultSiteID: defaultSite,
	}, tokens, nil, logr.Discard())
}

func writeEnvelope(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errorCode": 0,
		"msg":       "Success.",
		"result":    result,
	})
}

func TestOmadaClient_ListSites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/openapi/v1/omadac-1/sites", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "AccessToken=tok-abc", r.Header.Get("Authorization"))
		writeEnvelope(w, map[string]any{
			"totalRows": 2,
			"data": []map[string]any{
				{"siteId": "s1", "name": "Lobby"},
				{"siteId": "s2", "name": "Annex", "region": "KR"},
			},
		})
	}))
	defer srv.Close()

	sites, err := newTestOmadaClient(srv.URL, "", &fakeTokenProvider{token: "tok-abc"}).ListSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "s1", sites[0].SiteID)
	assert.Equal(t, "Annex", sites[1].Name)
	assert.Equal(t, "KR", sites[1].Region)
}

func TestOmadaClient_ListAccountsShapes(t *testing.T) {
	tests := []struct {
		name   string
		result any
	}{
		{
			name: "bare-array",
			result: []map[string]any{
				{"id": "a1", "userName": "101", "enable": true, "expirationTime": 1700000000000},
				{"id": "a2", "userName": "102", "enable": true, "expirationTime": 0},
			},
		},
		{
			name: "paged",
			result: map[string]any{
				"totalRows": 2,
				"data": []map[string]any{
					{"id": "a1", "userName": "101", "enable": true, "expirationTime": 1700000000000},
					{"id": "a2", "userName": "102", "enable": true, "expirationTime": 0},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/openapi/v1/omadac-1/sites/site-9/hotspot/localusers", r.URL.Path)
				writeEnvelope(w, tt.result)
			}))
			defer srv.Close()

			accounts, err := newTestOmadaClient(srv.URL, "", &fakeTokenProvider{token: "t"}).ListAccounts(context.Background(), "site-9")
			require.NoError(t, err)
			require.Len(t, accounts, 2)
			assert.Equal(t, "a1", accounts[0].ID)
			assert.Equal(t, int64(1700000000000), accounts[0].ExpirationTimeMs)
			assert.Equal(t, int64(0), accounts[1].ExpirationTimeMs)
			for _, a := range accounts {
				assert.Equal(t, "site-9", a.SiteID)
			}
		})
	}
}

func TestOmadaClient_DefaultSiteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openapi/v1/omadac-1/sites/default-site/portals", r.URL.Path)
		writeEnvelope(w, []map[string]any{{"id": "p1", "name": "Guest", "enable": true}})
	}))
	defer srv.Close()

	portals, err := newTestOmadaClient(srv.URL, "default-site", &fakeTokenProvider{token: "t"}).ListPortals(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, portals, 1)
	assert.True(t, portals[0].Enabled)
}

func TestOmadaClient_MissingSiteIsConfigurationError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newTestOmadaClient(srv.URL, "", &fakeTokenProvider{token: "t"})

	_, err := c.ListPortals(context.Background(), "")
	assert.True(t, errs.IsConfigurationError(err))
	_, err = c.ListAccounts(context.Background(), "")
	assert.True(t, errs.IsConfigurationError(err))
	_, err = c.CreateAccount(context.Background(), "", model.AccountSpec{UserName: "101"})
	assert.True(t, errs.IsConfigurationError(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestOmadaClient_CreateAccountPayload(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openapi/v1/omadac-1/sites/s1/hotspot/localusers", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		writeEnvelope(w, map[string]any{"id": "new-id"})
	}))
	defer srv.Close()

	id, err := newTestOmadaClient(srv.URL, "", &fakeTokenProvider{token: "t"}).CreateAccount(context.Background(), "s1", model.AccountSpec{
		UserName:         "101",
		Password:         "Smith",
		ExpirationTimeMs: 1800000000000,
		Portals:          []string{"p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)

	assert.Equal(t, "101", body["userName"])
	assert.Equal(t, "Smith", body["password"])
	assert.Equal(t, true, body["enable"])
	assert.Equal(t, float64(1800000000000), body["expirationTime"])
	assert.Equal(t, float64(0), body["bindingType"])
	assert.Equal(t, float64(10), body["maxUsers"])
	assert.Equal(t, false, body["applyToAllPortals"])
	assert.Equal(t, false, body["trafficLimitEnable"])
	assert.Equal(t, false, body["dailyLimitEnable"])
	assert.Equal(t, []any{"p1"}, body["portals"])

	rate := body["rateLimit"].(map[string]any)
	assert.Equal(t, float64(0), rate["mode"])
	custom := rate["customRateLimit"].(map[string]any)
	assert.Equal(t, false, custom["downLimitEnable"])
	assert.Equal(t, false, custom["upLimitEnable"])

	daily := body["dailyLimit"].(map[string]any)
	assert.Equal(t, float64(1), daily["authTimeout"])
	assert.Equal(t, float64(30), daily["customTimeout"])
	assert.Equal(t, float64(1), daily["customTimeoutUnit"])
}

func TestOmadaClient_CreateAccountWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errorCode":0,"msg":"Success."}`))
	}))
	defer srv.Close()

	id, err := newTestOmadaClient(srv.URL, "", &fakeTokenProvider{token: "t"}).CreateAccount(context.Background(), "s1", model.AccountSpec{UserName: "101"})
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestOmadaClient_DeleteAccount(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		writeEnvelope(w, nil)
	}))
	defer srv.Close()

	c := newTestOmadaClient(srv.URL, "", &fakeTokenProvider{token: "t"})
	require.NoError(t, c.DeleteAccount(context.Background(), "acc-1", "s1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/openapi/v1/omadac-1/sites/s1/hotspot/localusers/acc-1", path)

	err := c.DeleteAccount(context.Background(), "", "s1")
	assert.True(t, errs.IsValidationError(err))
}

func TestOmadaClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantTransport  bool
		wantUpstream   bool
		wantCode       int
		wantInvalidate int32
	}{
		{
			name:          "server-error",
			status:        http.StatusInternalServerError,
			body:          `{"errorCode":-1,"msg":"General error."}`,
			wantTransport: true,
		},
		{
			name:           "unauthorized",
			status:         http.StatusUnauthorized,
			body:           ``,
			wantTransport:  true,
			wantInvalidate: 1,
		},
		{
			name:         "upstream-error-code",
			status:       http.StatusOK,
			body:         `{"errorCode":-33004,"msg":"The hotspot user does not exist."}`,
			wantUpstream: true,
			wantCode:     -33004,
		},
		{
			name:           "token-expired-code",
			status:         http.StatusOK,
			body:           `{"errorCode":-44112,"msg":"The access token has expired."}`,
			wantUpstream:   true,
			wantCode:       -44112,
			wantInvalidate: 1,
		},
		{
			name:          "malformed",
			status:        http.StatusOK,
			body:          `<html>`,
			wantTransport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			tokens := &fakeTokenProvider{token: "t"}
			err := newTestOmadaClient(srv.URL, "", tokens).DeleteAccount(context.Background(), "acc-1", "s1")
			require.Error(t, err)
			assert.Equal(t, tt.wantTransport, errs.IsTransportError(err))
			assert.Equal(t, tt.wantUpstream, errs.IsUpstreamError(err))
			if tt.wantUpstream {
				var upErr *errs.UpstreamError
				require.ErrorAs(t, err, &upErr)
				assert.Equal(t, tt.wantCode, upErr.Code)
				assert.Equal(t, opDeleteAccount, upErr.Operation)
			}
			assert.Equal(t, tt.wantInvalidate, atomic.LoadInt32(&tokens.invalidated))
			if tt.wantInvalidate > 0 {
				assert.Equal(t, []string{"t"}, tokens.revoked)
			}
		})
	}
}

func TestOmadaClient_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewOmadaClient(OmadaClientConfig{BaseURL: srv.URL, OmadacID: "omadac-1"},
		&fakeTokenProvider{token: "t"}, &http.Client{Timeout: 50 * time.Millisecond}, logr.Discard())

	_, err := c.ListSites(context.Background())
	require.Error(t, err)
	var tErr *errs.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.True(t, tErr.Timeout())
}

func TestOmadaClient_TokenFailurePropagates(t *testing.T) {
	tokens := &fakeTokenProvider{err: errs.NewAuthenticationError(-44106, "invalid client", nil)}
	_, err := newTestOmadaClient("http://127.0.0.1:1", "", tokens).ListSites(context.Background())
	assert.True(t, errs.IsAuthenticationError(err))
}

func TestOmadaClient_ListPortals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openapi/v1/omadac-1/sites/site-1/portals", r.URL.Path)
		writeEnvelope(w, []map[string]any{
			{"id": "p1", "name": "Guest", "enable": true, "ssidList": []string{"ssid-1"}},
		})
	}))
	defer srv.Close()

	portals, err := newTestOmadaClient(srv.URL, "site-1", &fakeTokenProvider{token: "tok"}).ListPortals(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, portals, 1)
	assert.Equal(t, "p1", portals[0].ID)
	assert.True(t, portals[0].Enabled)
	assert.Equal(t, []string{"ssid-1"}, portals[0].SSIDList)
}

func TestOmadaClient_ListPortalsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, nil)
	}))
	defer srv.Close()

	portals, err := newTestOmadaClient(srv.URL, "site-1", &fakeTokenProvider{token: "tok"}).ListPortals(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, portals)
	assert.Empty(t, portals)
}

func TestOmadaClient_ListAccountsWarnsOnTruncatedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))
		writeEnvelope(w, map[string]any{
			"totalRows": 3,
			"data": []map[string]any{
				{"id": "a1", "name": "101"},
				{"id": "a2", "name": "102"},
			},
		})
	}))
	defer srv.Close()

	var mu sync.Mutex
	var lines []string
	log := funcr.New(func(prefix, args string) {
		mu.Lock()
		lines = append(lines, args)
		mu.Unlock()
	}, funcr.Options{})

	c := NewOmadaClient(OmadaClientConfig{
		BaseURL:          srv.URL,
		OmadacID:         "omadac-1",
		AccountsPageSize: 2,
	}, &fakeTokenProvider{token: "t"}, nil, log)

	accounts, err := c.ListAccounts(context.Background(), "site-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "OMADA_ACCOUNTS_PAGE_SIZE")
	assert.Contains(t, lines[0], `"totalRows"=3`)
	assert.Contains(t, lines[0], `"siteId"="site-1"`)
}

func TestDecodeAccountsTotalRows(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLen   int
		wantTotal int
	}{
		{name: "array", raw: `[{"id":"a1"},{"id":"a2"}]`, wantLen: 2, wantTotal: 2},
		{name: "paged", raw: `{"totalRows":5,"data":[{"id":"a1"}]}`, wantLen: 1, wantTotal: 5},
		{name: "null", raw: `null`, wantLen: 0, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, total, err := decodeAccounts(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Len(t, accounts, tt.wantLen)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
