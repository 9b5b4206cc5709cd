package dto

import (
	"aistudio/internal/entity/common"
	"time"
)

// UserSummary 是返回给客户端的用户资料。
type UserSummary struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// Credits 仅在个人资料和管理端列表中返回。
	Credits *int64 `json:"credits,omitempty"`
}

type UserQuery struct {
	common.BaseParams
	Role    string `json:"role" form:"role" query:"role"`
	Keyword string `json:"keyword" form:"keyword" query:"keyword"`
}

// UserCreateRequest 管理员建号，可同时发放一笔 gift 积分。
type UserCreateRequest struct {
	Email              string `json:"email" binding:"required,email"`
	Password           string `json:"password" binding:"required"`
	DisplayName        string `json:"display_name"`
	Role               string `json:"role" binding:"required"`
	IsActive           *bool  `json:"is_active"`
	InitialCredits     int64  `json:"initial_credits" binding:"gte=0"`
	InitialCreditsDays int    `json:"initial_credits_days" binding:"gte=0"`
}

type UserUpdateRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Role        *string `json:"role,omitempty"`
	Password    *string `json:"password,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type UserListResponse struct {
	Users []UserSummary `json:"users"`
	Meta  *common.Meta  `json:"meta"`
}
