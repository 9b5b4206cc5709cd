package api

import (
	"aistudio/internal/auth"
	"aistudio/internal/entity"
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

const authTimeout = 5 * time.Second

// Register 注册账户。第一个账户成为超级管理员，之后的账户仅在开放注册时允许创建。
// 配置了注册赠送积分时，新用户会获得一笔 signup 积分。
func (h *HTTPHandler) Register(c *gin.Context) {
	var req dto.AuthRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			BadRequest(c, ErrCodeWeakPassword, err.Error())
			return
		}
		ServiceError(c, err, "failed to register user")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), authTimeout)
	defer cancel()

	count, err := h.repo.CountUsers(ctx)
	if err != nil {
		ServiceError(c, err, "failed to process registration")
		return
	}
	role := entity.UserRoleUser
	if count == 0 {
		role = entity.UserRoleSuperAdmin
	} else if !h.cfg.RegistrationOpen {
		ErrorResponse(c, http.StatusForbidden, ErrCodeRegistrationClosed, "registration disabled")
		return
	}

	user := &entity.DbUser{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Role:         role,
		IsActive:     true,
	}
	if err := h.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, ErrCodeEmailExists, "email already registered")
			return
		}
		ServiceError(c, err, "failed to register user")
		return
	}

	// 赠送积分失败不影响注册结果
	if err := h.credits.GrantSignupBonus(ctx, user, h.cfg.DefaultSignupCredits, h.cfg.SignupCreditsDays); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("signup_bonus_failed")
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("user_registered")

	h.respondSession(c, ctx, http.StatusCreated, user)
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req dto.AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request.Context(), authTimeout)
	defer cancel()

	user, err := h.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ServiceError(c, err, "failed to login")
			return
		}
		logrus.WithField("email", email).Warn("login_unknown_email")
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("login_password_mismatch")
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
		return
	}
	if !user.IsActive {
		ErrorResponse(c, http.StatusForbidden, ErrCodeUserDisabled, "user is disabled")
		return
	}

	h.respondSession(c, ctx, http.StatusOK, user)
}

// respondSession 签发 token 并附带当前余额，余额读取失败时返回 0。
func (h *HTTPHandler) respondSession(c *gin.Context, ctx context.Context, status int, user *entity.DbUser) {
	token, expiresAt, err := h.authManager.GenerateToken(user)
	if err != nil {
		ServiceError(c, err, "failed to create session")
		return
	}
	balance, err := h.credits.Balance(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("session_balance_failed")
	}
	c.JSON(status, dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      converter.UserToSummary(user, &balance),
		Credits:   balance,
	})
}

func (h *HTTPHandler) AuthStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), authTimeout)
	defer cancel()
	count, err := h.repo.CountUsers(ctx)
	if err != nil {
		ServiceError(c, err, "failed to check auth status")
		return
	}
	c.JSON(http.StatusOK, dto.AuthStatusResponse{
		HasUser:          count > 0,
		RegistrationOpen: count == 0 || h.cfg.RegistrationOpen,
	})
}

// Me 返回当前用户资料及可用积分。
func (h *HTTPHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), authTimeout)
	defer cancel()

	dbUser, err := h.repo.GetUserByID(ctx, user.ID)
	if err != nil {
		ServiceError(c, err, "failed to load profile")
		return
	}

	var credits *int64
	if balance, err := h.credits.Balance(ctx, dbUser.ID); err != nil {
		logrus.WithError(err).WithField("user_id", dbUser.ID).Warn("failed to load balance for profile")
	} else {
		credits = &balance
	}
	c.JSON(http.StatusOK, converter.UserToSummary(dbUser, credits))
}
