package dto

import (
	"aistudio/internal/entity/common"
	"time"
)

// GrantCreditsRequest 发放一笔积分。
type GrantCreditsRequest struct {
	UserID         string         `json:"user_id" binding:"required"`
	UserEmail      string         `json:"user_email"`
	Credits        int64          `json:"credits" binding:"required,gt=0"`
	Scene          string         `json:"scene"`
	Description    string         `json:"description"`
	OrderNo        string         `json:"order_no"`
	SubscriptionNo string         `json:"subscription_no"`
	ExpiresAt      *time.Time     `json:"expires_at"`
	ValidDays      int            `json:"valid_days"`
	Metadata       common.JSONMap `json:"metadata"`
}

// ConsumeCreditsRequest 描述一次扣费。
type ConsumeCreditsRequest struct {
	UserID      string
	UserEmail   string
	Credits     int64
	Scene       string
	Description string
	Metadata    common.JSONMap
}

// CreditQuery 用于分页查询积分流水。
type CreditQuery struct {
	common.BaseParams
	UserID          string `json:"-" form:"-" query:"-"`
	TransactionType string `json:"transaction_type" form:"transaction_type" query:"transaction_type"`
	Status          string `json:"status" form:"status" query:"status"`
}

// CreditItem 是返回给客户端的积分流水。
type CreditItem struct {
	ID               string       `json:"id"`
	TransactionNo    string       `json:"transaction_no"`
	TransactionType  string       `json:"transaction_type"`
	TransactionScene string       `json:"transaction_scene"`
	Credits          int64        `json:"credits"`
	RemainingCredits int64        `json:"remaining_credits"`
	Description      string       `json:"description"`
	Status           string       `json:"status"`
	ExpiresAt        *time.Time   `json:"expires_at,omitempty"`
	ConsumedFrom     []CreditDraw `json:"consumed_from,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// CreditDraw 表示一次扣费从某个积分包扣除的数量。
type CreditDraw struct {
	CreditID string `json:"credit_id"`
	Credits  int64  `json:"credits"`
}

// CreditListResponse 是积分流水列表。
type CreditListResponse struct {
	Credits []CreditItem `json:"credits"`
	Meta    *common.Meta `json:"meta"`
}

// BalanceResponse 返回用户当前可用积分。
type BalanceResponse struct {
	UserID           string `json:"user_id,omitempty"`
	RemainingCredits int64  `json:"remaining_credits"`
	Authenticated    bool   `json:"authenticated"`
}

// RefundResponse 返回退款结果。
type RefundResponse struct {
	CreditID string `json:"credit_id"`
	Refunded bool   `json:"refunded"`
}
