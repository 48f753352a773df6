package model

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	TokenCached     bool   `json:"tokenCached"`
	SchedulerActive bool   `json:"schedulerActive"`
	AuditEnabled    bool   `json:"auditEnabled"`
}
