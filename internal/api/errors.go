package api

import (
	"aistudio/internal/ledger"
	"aistudio/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 错误码定义
const (
	// 通用错误码 (1xxx)
	ErrCodeInvalidRequest     = "ERR_INVALID_REQUEST"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeInternalError      = "ERR_INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"

	// 认证错误码 (2xxx)
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeEmailExists        = "ERR_EMAIL_EXISTS"
	ErrCodeRegistrationClosed = "ERR_REGISTRATION_CLOSED"
	ErrCodeUserDisabled       = "ERR_USER_DISABLED"
	ErrCodeSessionExpired     = "ERR_SESSION_EXPIRED"
	ErrCodeWeakPassword       = "ERR_WEAK_PASSWORD"

	// 资源错误码 (3xxx)
	ErrCodeModelNotFound  = "ERR_MODEL_NOT_FOUND"
	ErrCodeModelExists    = "ERR_MODEL_EXISTS"
	ErrCodeCreditNotFound = "ERR_CREDIT_NOT_FOUND"
	ErrCodeTaskNotFound   = "ERR_TASK_NOT_FOUND"
	ErrCodeUserNotFound   = "ERR_USER_NOT_FOUND"

	// 业务逻辑错误码 (4xxx)
	ErrCodeMissingField        = "ERR_MISSING_FIELD"
	ErrCodeCannotDeleteSelf    = "ERR_CANNOT_DELETE_SELF"
	ErrCodeInsufficientCredits = "ERR_INSUFFICIENT_CREDITS"
	ErrCodeTaskTerminal        = "ERR_TASK_TERMINAL"
	ErrCodeInvalidTransition   = "ERR_INVALID_TRANSITION"
	ErrCodeInvalidStatus       = "ERR_INVALID_STATUS"
	ErrCodeInvalidMediaType    = "ERR_INVALID_MEDIA_TYPE"
	ErrCodeNotConsumption      = "ERR_NOT_CONSUMPTION"
	ErrCodeRefundFailed        = "ERR_REFUND_FAILED"
)

// APIError 统一的 API 错误响应结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse 返回统一格式的错误响应
func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
	})
}

// ErrorResponseWithDetails 返回带详情的错误响应
func ErrorResponseWithDetails(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// 常用错误响应快捷函数

// BadRequest 400 错误请求
func BadRequest(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401 未授权
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden 403 禁止访问
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound 404 资源不存在
func NotFound(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusNotFound, code, message)
}

// InternalError 500 服务器内部错误
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable 503 服务不可用
func ServiceUnavailable(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// MissingField 缺少必填字段
func MissingField(c *gin.Context, field string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeMissingField, field+" is required", gin.H{"field": field})
}

// InvalidPayload 无效的请求体
func InvalidPayload(c *gin.Context) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request payload")
}

// ServiceError 将服务层与账本错误映射为 HTTP 响应，未识别的错误记录日志后返回 500。
func ServiceError(c *gin.Context, err error, message string) {
	var insufficient *ledger.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		ErrorResponseWithDetails(c, http.StatusPaymentRequired, ErrCodeInsufficientCredits, "积分不足", gin.H{
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
	case errors.Is(err, ledger.ErrInsufficientCredits):
		ErrorResponse(c, http.StatusPaymentRequired, ErrCodeInsufficientCredits, "积分不足")
	case errors.Is(err, service.ErrUnauthenticated):
		Unauthorized(c, "需要登录")
	case errors.Is(err, service.ErrTaskNotFound):
		NotFound(c, ErrCodeTaskNotFound, "任务不存在")
	case errors.Is(err, service.ErrPromptRequired):
		MissingField(c, "prompt")
	case errors.Is(err, service.ErrInvalidMediaType):
		BadRequest(c, ErrCodeInvalidMediaType, err.Error())
	case errors.Is(err, ledger.ErrTaskTerminal):
		ErrorResponse(c, http.StatusConflict, ErrCodeTaskTerminal, "任务已结束")
	case errors.Is(err, ledger.ErrInvalidTransition):
		ErrorResponse(c, http.StatusConflict, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, ledger.ErrInvalidTaskStatus):
		BadRequest(c, ErrCodeInvalidStatus, err.Error())
	case errors.Is(err, ledger.ErrInvalidCreditAmount), errors.Is(err, ledger.ErrMissingUser):
		BadRequest(c, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, ledger.ErrNotConsumption):
		BadRequest(c, ErrCodeNotConsumption, err.Error())
	case errors.Is(err, ledger.ErrRefundTargetMissing):
		ErrorResponse(c, http.StatusConflict, ErrCodeRefundFailed, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, ErrCodeNotFound, "资源不存在")
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error(message)
		InternalError(c, message)
	}
}
