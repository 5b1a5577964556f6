package dto

// ── 认证模块 DTO ──

// TokenResponse 签发的 Access Token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // 固定为 Bearer
	ExpiresIn   int    `json:"expires_in"` // 有效期（秒）
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
}
