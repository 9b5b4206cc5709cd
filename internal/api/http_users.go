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

const (
	userTimeout     = 5 * time.Second
	maxUserPageSize = 100
)

// ListUsers 返回用户列表，并附带每个用户当前的可用积分。
func (h *HTTPHandler) ListUsers(c *gin.Context) {
	var query dto.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	if query.PageSize > maxUserPageSize {
		query.PageSize = maxUserPageSize
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), userTimeout)
	defer cancel()

	users, meta, err := h.repo.ListUsers(ctx, &query)
	if err != nil {
		ServiceError(c, err, "failed to load users")
		return
	}
	c.JSON(http.StatusOK, dto.UserListResponse{
		Users: h.credits.AttachBalances(ctx, converter.UsersToSummaries(users)),
		Meta:  meta,
	})
}

// CreateUser 管理员建号。只有超级管理员能创建管理员；initial_credits 大于 0 时发放一笔 gift 积分。
func (h *HTTPHandler) CreateUser(c *gin.Context) {
	operator := CurrentUser(c)

	var req dto.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	role := sanitizeRole(req.Role)
	if role == "" {
		BadRequest(c, ErrCodeInvalidRequest, "invalid role")
		return
	}
	if role == entity.UserRoleAdmin && !operator.IsSuperAdmin() {
		Forbidden(c, "only super admin can create admin users")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			BadRequest(c, ErrCodeWeakPassword, err.Error())
			return
		}
		ServiceError(c, err, "failed to create user")
		return
	}

	user := &entity.DbUser{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), userTimeout)
	defer cancel()

	if err := h.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, ErrCodeEmailExists, "email already registered")
			return
		}
		ServiceError(c, err, "failed to create user")
		return
	}

	if req.InitialCredits > 0 {
		_, err := h.credits.Grant(ctx, dto.GrantCreditsRequest{
			UserID:      user.ID,
			UserEmail:   user.Email,
			Credits:     req.InitialCredits,
			Scene:       entity.CreditSceneGift,
			Description: "initial credits",
			ValidDays:   req.InitialCreditsDays,
			Metadata:    entity.JSONMap{"grantedBy": operator.ID},
		})
		if err != nil {
			// 账户已创建，积分可以之后再补发
			logrus.WithError(err).WithField("user_id", user.ID).Error("initial_credits_failed")
		}
	}
	var credits *int64
	if balance, err := h.credits.Balance(ctx, user.ID); err == nil {
		credits = &balance
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"role":        role,
		"operator_id": operator.ID,
	}).Info("user_created")
	c.JSON(http.StatusCreated, converter.UserToSummary(user, credits))
}

// UpdateUser 修改资料、密码、角色或启用状态。超级管理员只能由本人修改且不能停用。
func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	operator := CurrentUser(c)

	var req dto.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), userTimeout)
	defer cancel()

	target, ok := h.loadTargetUser(c, ctx)
	if !ok {
		return
	}
	if target.Role == entity.UserRoleSuperAdmin && operator.ID != target.ID {
		Forbidden(c, "super admin cannot be modified")
		return
	}

	var updates entity.UserUpdates
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		updates.DisplayName = &name
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrWeakPassword) {
				BadRequest(c, ErrCodeWeakPassword, err.Error())
				return
			}
			ServiceError(c, err, "failed to update user")
			return
		}
		updates.PasswordHash = &hash
	}
	if req.Role != nil {
		if !operator.IsSuperAdmin() {
			Forbidden(c, "only super admin can change roles")
			return
		}
		role := sanitizeRole(*req.Role)
		if role == "" || target.Role == entity.UserRoleSuperAdmin {
			BadRequest(c, ErrCodeInvalidRequest, "invalid role")
			return
		}
		updates.Role = &role
	}
	if req.IsActive != nil {
		if target.Role == entity.UserRoleSuperAdmin {
			BadRequest(c, ErrCodeInvalidRequest, "super admin must remain active")
			return
		}
		if target.Role == entity.UserRoleAdmin && !operator.IsSuperAdmin() {
			Forbidden(c, "only super admin can change admin status")
			return
		}
		updates.IsActive = req.IsActive
	}

	if !updates.IsEmpty() {
		if err := h.repo.UpdateUser(ctx, target.ID, updates); err != nil {
			ServiceError(c, err, "failed to update user")
			return
		}
		reloaded, err := h.repo.GetUserByID(ctx, target.ID)
		if err != nil {
			ServiceError(c, err, "failed to load updated user")
			return
		}
		target = reloaded
		logrus.WithFields(logrus.Fields{"user_id": target.ID, "operator_id": operator.ID}).Info("user_updated")
	}
	c.JSON(http.StatusOK, converter.UserToSummary(target, nil))
}

// DeleteUser 删除账户。积分流水保留，不随账户删除。
func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	operator := CurrentUser(c)
	if operator.ID == strings.TrimSpace(c.Param("id")) {
		BadRequest(c, ErrCodeCannotDeleteSelf, "cannot delete current user")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), userTimeout)
	defer cancel()

	target, ok := h.loadTargetUser(c, ctx)
	if !ok {
		return
	}
	switch {
	case target.Role == entity.UserRoleSuperAdmin:
		Forbidden(c, "super admin cannot be deleted")
		return
	case target.Role == entity.UserRoleAdmin && !operator.IsSuperAdmin():
		Forbidden(c, "only super admin can delete admin user")
		return
	}

	if err := h.repo.DeleteUser(ctx, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "user not found")
			return
		}
		ServiceError(c, err, "failed to delete user")
		return
	}
	logrus.WithFields(logrus.Fields{"user_id": target.ID, "operator_id": operator.ID}).Info("user_deleted")
	c.Status(http.StatusNoContent)
}

// loadTargetUser 读取路径参数 :id 对应的用户，失败时已写出响应。
func (h *HTTPHandler) loadTargetUser(c *gin.Context, ctx context.Context) (*entity.DbUser, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		MissingField(c, "id")
		return nil, false
	}
	user, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "user not found")
			return nil, false
		}
		ServiceError(c, err, "failed to load user")
		return nil, false
	}
	return user, true
}

// sanitizeRole 只接受可分配的角色，super_admin 只能通过首个注册产生。
func sanitizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case entity.UserRoleAdmin:
		return entity.UserRoleAdmin
	case entity.UserRoleUser:
		return entity.UserRoleUser
	default:
		return ""
	}
}
