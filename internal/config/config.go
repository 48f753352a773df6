// 환경변수 기반 설정 로드
//
// 로드 순서:
//  1. .env.local, .env 파일이 있으면 godotenv로 로드 (이미 설정된 환경변수는 덮어쓰지 않음)
//  2. os 환경변수에서 각 값을 읽고 기본값 적용
//  3. Validate()로 필수 값 확인 (누락 시 ConfigurationError)

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/omada-guest/backend/internal/errs"
)

// SitesPageSize bounds the single sites page requested from the controller.
// Fleets larger than this need OMADA_SITES_PAGE_SIZE raised.
const SitesPageSize = 100

type Config struct {
	Server   ServerConfig
	Omada    OmadaConfig
	Cleanup  CleanupConfig
	Auth     AuthConfig
	Log      LogConfig
	Postgres PostgresConfig
	Notify   NotifyConfig
}

type ServerConfig struct {
	Addr               string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

type OmadaConfig struct {
	BaseURL            string
	ClientID           string
	ClientSecret       string
	OmadacID           string
	DefaultSiteID      string
	RequestTimeout     time.Duration
	TokenSafetyMargin  time.Duration
	SitesPageSize      int
	AccountsPageSize   int
	InsecureSkipVerify bool
	EnableHTTP2        bool
}

type CleanupConfig struct {
	Enabled     bool
	Schedule    string
	RunTimeout  time.Duration
	Concurrency int
}

type AuthConfig struct {
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	JWTSecret         string
	JWTAccessTTL      time.Duration
}

// Enabled reports whether operator login is configured.
func (c AuthConfig) Enabled() bool {
	return c.AdminUsername != "" && (c.AdminPassword != "" || c.AdminPasswordHash != "")
}

// Notification triggers for NotifyConfig.On.
const (
	NotifyOnErrors  = "errors"
	NotifyOnChanges = "changes"
	NotifyOnAlways  = "always"
	NotifyOnNever   = "never"
)

type NotifyConfig struct {
	On             string
	Timeout        time.Duration
	SlackBotToken  string
	SlackChannelID string
	SlackAPIURL    string
	FrontendURL    string
	WebhookURL     string
	WebhookMethod  string
	WebhookBody    string
}

// Configured reports whether any notification channel is set up.
func (c NotifyConfig) Configured() bool {
	return (c.SlackBotToken != "" && c.SlackChannelID != "") || c.WebhookURL != ""
}

type LogConfig struct {
	Level  string
	Format string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

// Configured reports whether an audit database was requested.
func (c PostgresConfig) Configured() bool {
	return c.DatabaseURL != "" || (c.User != "" && c.Database != "")
}

// Load reads .env files (if present) and the process environment.
func Load() (Config, error) {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			if err := godotenv.Load(file); err != nil {
				return Config{}, errs.NewConfigurationError(file, err.Error())
			}
		}
	}
	return FromEnv(), nil
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:               getenv("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			ShutdownTimeout:    getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Omada: OmadaConfig{
			BaseURL:            strings.TrimRight(strings.TrimSpace(os.Getenv("OMADA_API_BASE_URL")), "/"),
			ClientID:           os.Getenv("OMADA_CLIENT_ID"),
			ClientSecret:       os.Getenv("OMADA_CLIENT_SECRET"),
			OmadacID:           os.Getenv("OMADA_ID"),
			DefaultSiteID:      strings.TrimSpace(os.Getenv("OMADA_SITE_ID")),
			RequestTimeout:     getenvDuration("OMADA_REQUEST_TIMEOUT", 15*time.Second),
			TokenSafetyMargin:  getenvDuration("OMADA_TOKEN_SAFETY_MARGIN", 60*time.Second),
			SitesPageSize:      getenvInt("OMADA_SITES_PAGE_SIZE", SitesPageSize),
			AccountsPageSize:   getenvInt("OMADA_ACCOUNTS_PAGE_SIZE", 1000),
			InsecureSkipVerify: getenvBool("OMADA_INSECURE_SKIP_VERIFY", false),
			EnableHTTP2:        getenvBool("OMADA_ENABLE_HTTP2", true),
		},
		Cleanup: CleanupConfig{
			Enabled:     getenvBool("CLEANUP_ENABLED", true),
			Schedule:    getenv("CLEANUP_SCHEDULE", "0 * * * *"),
			RunTimeout:  getenvDuration("CLEANUP_RUN_TIMEOUT", 10*time.Minute),
			Concurrency: getenvInt("CLEANUP_CONCURRENCY", 1),
		},
		Auth: AuthConfig{
			AdminUsername:     os.Getenv("ADMIN_USERNAME"),
			AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			JWTSecret:         os.Getenv("JWT_SECRET"),
			JWTAccessTTL:      getenvDuration("JWT_ACCESS_TTL", 12*time.Hour),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Notify: NotifyConfig{
			On:             strings.ToLower(getenv("CLEANUP_NOTIFY_ON", NotifyOnErrors)),
			Timeout:        getenvDuration("CLEANUP_NOTIFY_TIMEOUT", 10*time.Second),
			SlackBotToken:  os.Getenv("SLACK_BOT_TOKEN"),
			SlackChannelID: os.Getenv("SLACK_CHANNEL_ID"),
			SlackAPIURL:    getenv("SLACK_API_URL", "https://slack.com/api/chat.postMessage"),
			FrontendURL:    strings.TrimRight(os.Getenv("FRONTEND_URL"), "/"),
			WebhookURL:     os.Getenv("CLEANUP_WEBHOOK_URL"),
			WebhookMethod:  strings.ToUpper(getenv("CLEANUP_WEBHOOK_METHOD", "POST")),
			WebhookBody:    os.Getenv("CLEANUP_WEBHOOK_BODY"),
		},
	}
}

// Validate checks the controller credentials required at startup.
func (c Config) Validate() error {
	var missing []string
	if c.Omada.BaseURL == "" {
		missing = append(missing, "OMADA_API_BASE_URL")
	}
	if c.Omada.ClientID == "" {
		missing = append(missing, "OMADA_CLIENT_ID")
	}
	if c.Omada.ClientSecret == "" {
		missing = append(missing, "OMADA_CLIENT_SECRET")
	}
	if c.Omada.OmadacID == "" {
		missing = append(missing, "OMADA_ID")
	}
	if len(missing) > 0 {
		return errs.NewConfigurationError(strings.Join(missing, ", "), "required Omada API configuration is missing")
	}
	if c.Omada.SitesPageSize <= 0 {
		return errs.NewConfigurationError("OMADA_SITES_PAGE_SIZE", "must be positive")
	}
	switch c.Notify.On {
	case NotifyOnErrors, NotifyOnChanges, NotifyOnAlways, NotifyOnNever:
	default:
		return errs.NewConfigurationError("CLEANUP_NOTIFY_ON", "must be one of errors, changes, always, never")
	}
	if c.Auth.Enabled() && c.Auth.JWTSecret == "" {
		return errs.NewConfigurationError("JWT_SECRET", "required when ADMIN_USERNAME is set")
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
