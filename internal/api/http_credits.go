package api

import (
	"aistudio/internal/entity/converter"
	"aistudio/internal/entity/dto"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GetBalance 返回当前用户的可用积分。未登录或会话查询超时时返回 0，不报错。
func (h *HTTPHandler) GetBalance(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		c.JSON(http.StatusOK, dto.BalanceResponse{})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	balance, err := h.credits.Balance(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", requestUser.ID).Error("failed to load balance")
		InternalError(c, "failed to load balance")
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{
		UserID:           requestUser.ID,
		RemainingCredits: balance,
		Authenticated:    true,
	})
}

// ListCredits 返回当前用户的积分流水，管理员可通过 user_id 查看其他用户。
func (h *HTTPHandler) ListCredits(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "需要登录")
		return
	}

	var query dto.CreditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	query.UserID = requestUser.ID
	if target := strings.TrimSpace(c.Query("user_id")); target != "" && requestUser.IsAdmin() {
		query.UserID = target
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response, err := h.credits.List(ctx, query)
	if err != nil {
		ServiceError(c, err, "failed to load credits")
		return
	}
	c.JSON(http.StatusOK, response)
}

// GrantCredits 管理员为用户发放积分。
func (h *HTTPHandler) GrantCredits(c *gin.Context) {
	requestUser := CurrentUser(c)

	var req dto.GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, strings.TrimSpace(req.UserID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "用户不存在")
			return
		}
		ServiceError(c, err, "failed to load user")
		return
	}
	if strings.TrimSpace(req.UserEmail) == "" {
		req.UserEmail = user.Email
	}
	if req.Metadata == nil {
		req.Metadata = map[string]interface{}{}
	}
	if requestUser != nil {
		req.Metadata["grantedBy"] = requestUser.ID
	}

	credit, err := h.credits.Grant(ctx, req)
	if err != nil {
		ServiceError(c, err, "failed to grant credits")
		return
	}
	c.JSON(http.StatusCreated, converter.CreditToItem(credit))
}

// RefundCredit 管理员手动退还一笔扣费，重复退款返回 refunded=false。
func (h *HTTPHandler) RefundCredit(c *gin.Context) {
	creditID := strings.TrimSpace(c.Param("id"))
	if creditID == "" {
		MissingField(c, "id")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	refunded, err := h.credits.Refund(ctx, creditID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeCreditNotFound, "积分记录不存在")
			return
		}
		ServiceError(c, err, "failed to refund credit")
		return
	}
	c.JSON(http.StatusOK, dto.RefundResponse{CreditID: creditID, Refunded: refunded})
}
