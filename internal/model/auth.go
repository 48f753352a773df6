package model

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type AuthConfigResponse struct {
	AuthEnabled bool `json:"authEnabled"`
}

type AuthUser struct {
	Username string
}

type AuthMeResponse struct {
	Username string `json:"username"`
}
