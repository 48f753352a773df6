package model

import "time"

const (
	GuestEventCreated        = "created"
	GuestEventDeleted        = "deleted"
	GuestEventExpiredDeleted = "expired_deleted"
)

// GuestEvent - guest_events 테이블 row (게스트 생성/삭제 감사 기록)
type GuestEvent struct {
	ID               int64     `json:"id"`
	EventType        string    `json:"eventType"`
	SiteID           string    `json:"siteId"`
	AccountID        string    `json:"accountId"`
	UserName         string    `json:"userName,omitempty"`
	ExpirationTimeMs int64     `json:"expirationTime,omitempty"`
	RunID            string    `json:"runId,omitempty"`
	Actor            string    `json:"actor,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// GuestEventListResponse - GET /api/v1/audit 응답
type GuestEventListResponse struct {
	Success bool         `json:"success"`
	Events  []GuestEvent `json:"events"`
}
