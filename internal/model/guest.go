package model

import "time"

const (
	GuestStatusActive  = "active"
	GuestStatusExpired = "expired"
)

// Account - 컨트롤러의 hotspot local user (게스트 계정)
//
// ExpirationTimeMs 가 0 이면 만료 없음. 0은 절대 만료로 취급하지 않는다.
type Account struct {
	ID               string   `json:"id"`
	UserName         string   `json:"userName"`
	Enabled          bool     `json:"enable"`
	ExpirationTimeMs int64    `json:"expirationTime"`
	Portals          []string `json:"portals"`
	SiteID           string   `json:"siteId,omitempty"`
}

// ExpiredAt reports whether the account's access window has elapsed at nowMs.
func (a Account) ExpiredAt(nowMs int64) bool {
	return a.ExpirationTimeMs > 0 && a.ExpirationTimeMs <= nowMs
}

// ExpirationTime returns the expiry as a time, or the zero time for "never".
func (a Account) ExpirationTime() time.Time {
	if a.ExpirationTimeMs <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(a.ExpirationTimeMs)
}

// AccountSpec - 게스트 계정 생성 입력 (rate/traffic limit 등은 client에서 고정값 사용)
type AccountSpec struct {
	UserName         string
	Password         string
	ExpirationTimeMs int64
	Portals          []string
}

// Guest - 상태가 계산된 계정 (UI 목록용)
type Guest struct {
	Account
	Status    string `json:"status"`
	IsExpired bool   `json:"isExpired"`
}

// NewGuest derives the display status of an account at nowMs.
func NewGuest(account Account, nowMs int64) Guest {
	expired := account.ExpiredAt(nowMs)
	status := GuestStatusActive
	if expired {
		status = GuestStatusExpired
	}
	return Guest{Account: account, Status: status, IsExpired: expired}
}

// CreateGuestRequest - POST /api/v1/guests 요청
type CreateGuestRequest struct {
	UserName     string   `json:"userName"`
	Password     string   `json:"password"`
	Portals      []string `json:"portals"`
	SiteID       string   `json:"siteId,omitempty"`
	CheckoutDate string   `json:"checkoutDate,omitempty"`
}

// DeleteGuestRequest - DELETE /api/v1/guests 요청
type DeleteGuestRequest struct {
	UserID string `json:"userId"`
	SiteID string `json:"siteId,omitempty"`
}

// GuestListResponse - GET /api/v1/guests 응답
type GuestListResponse struct {
	Success      bool    `json:"success"`
	Guests       []Guest `json:"guests"`
	SitesChecked int     `json:"sitesChecked"`
	Timestamp    int64   `json:"timestamp"`
}

// GuestCreateResponse - 게스트 생성 응답
type GuestCreateResponse struct {
	Success        bool   `json:"success"`
	ID             string `json:"id"`
	SiteID         string `json:"siteId"`
	ExpirationTime int64  `json:"expirationTime"`
}

// GuestDeleteResponse - 게스트 삭제 응답
type GuestDeleteResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}
