package model

// Site - 컨트롤러가 관리하는 네트워크 배포 단위 (cleanup 실행마다 새로 조회, 캐시하지 않음)
type Site struct {
	SiteID   string `json:"siteId"`
	Name     string `json:"name"`
	Region   string `json:"region,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
	Scenario string `json:"scenario,omitempty"`
	Type     int    `json:"type,omitempty"`
}

// Portal - 게스트가 인증하는 captive portal 설정
type Portal struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Enabled      bool     `json:"enable"`
	SSIDList     []string `json:"ssidList"`
	NetworkList  []string `json:"networkList"`
	AuthType     int      `json:"authType"`
	HotspotTypes []int    `json:"hotspotTypes"`
}

// SiteListResponse - GET /api/v1/sites 응답
type SiteListResponse struct {
	Success bool   `json:"success"`
	Sites   []Site `json:"sites"`
}

// PortalListResponse - GET /api/v1/portals 응답
type PortalListResponse struct {
	Success bool     `json:"success"`
	SiteID  string   `json:"siteId"`
	Portals []Portal `json:"portals"`
}
