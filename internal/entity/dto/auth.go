package dto

import "time"

// AuthStatusResponse 告诉前端是否已有账户以及是否还能注册。
type AuthStatusResponse struct {
	HasUser          bool `json:"has_user"`
	RegistrationOpen bool `json:"registration_open"`
}

type AuthLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthRegisterRequest 注册请求。密码长度由 auth.NormalizePassword 校验。
type AuthRegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// AuthResponse 登录或注册成功后返回，Credits 为当前可用积分（注册时已包含赠送积分）。
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
	Credits   int64       `json:"credits"`
}
