package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"aistudio/internal/auth"
	"aistudio/internal/entity"
	"aistudio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	currentUserContextKey = "current-user"
)

// RequestUser 存储请求上下文中的认证用户信息
type RequestUser struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
}

// IsAdmin 判断用户是否具有管理员权限
func (u *RequestUser) IsAdmin() bool {
	return u != nil && entity.IsAdminRole(u.Role)
}

// IsSuperAdmin 判断用户是否为超级管理员
func (u *RequestUser) IsSuperAdmin() bool {
	if u == nil {
		return false
	}
	return u.Role == entity.UserRoleSuperAdmin
}

// Viewer 转换为服务层的查看者。
func (u *RequestUser) Viewer() service.Viewer {
	if u == nil {
		return service.Viewer{}
	}
	return service.Viewer{UserID: u.ID, Admin: u.IsAdmin()}
}

func newRequestUser(user *entity.DbUser) *RequestUser {
	return &RequestUser{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}
}

// AuthMiddleware JWT 认证中间件
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			message := "无效的授权头格式"
			if errors.Is(err, auth.ErrMissingBearer) {
				message = "缺少授权头"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: message,
			})
			return
		}

		claims, err := h.authManager.ParseToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
					Code:    ErrCodeSessionExpired,
					Message: "登录已过期",
				})
				return
			}
			logrus.WithError(err).Warn("invalid_session_token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: "Token 无效",
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := h.repo.GetUserByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
					Code:    ErrCodeUserNotFound,
					Message: "用户不存在",
				})
				return
			}
			logrus.WithError(err).WithField("user_id", claims.UserID).Error("failed to load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
				Code:    ErrCodeInternalError,
				Message: "验证用户失败",
			})
			return
		}

		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, APIError{
				Code:    ErrCodeUserDisabled,
				Message: "账户已被禁用",
			})
			return
		}

		c.Set(currentUserContextKey, newRequestUser(user))
		c.Next()
	}
}

// OptionalAuth 尝试解析会话但从不拒绝请求。
// 用户查询在 SessionLookupTimeout 内没有结果时按匿名处理。
func (h *HTTPHandler) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := h.lookupSession(c); user != nil {
			c.Set(currentUserContextKey, user)
		}
		c.Next()
	}
}

func (h *HTTPHandler) lookupSession(c *gin.Context) *RequestUser {
	tokenString, err := auth.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return nil
	}
	claims, err := h.authManager.ParseToken(tokenString)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.SessionLookupTimeout())
	defer cancel()

	type lookup struct {
		user *entity.DbUser
		err  error
	}
	done := make(chan lookup, 1)
	go func() {
		user, err := h.repo.GetUserByID(ctx, claims.UserID)
		done <- lookup{user: user, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if !errors.Is(res.err, gorm.ErrRecordNotFound) {
				logrus.WithError(res.err).WithField("user_id", claims.UserID).Warn("session_lookup_failed")
			}
			return nil
		}
		if !res.user.IsActive {
			return nil
		}
		return newRequestUser(res.user)
	case <-ctx.Done():
		logrus.WithField("user_id", claims.UserID).Warn("session_lookup_timeout")
		return nil
	}
}

// RequireAdmin 管理员权限守卫中间件
func (h *HTTPHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, APIError{
				Code:    ErrCodeForbidden,
				Message: "需要管理员权限",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}
