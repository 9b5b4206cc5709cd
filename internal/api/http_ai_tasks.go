package api

import (
	"aistudio/internal/entity/converter"
	"aistudio/internal/entity/dto"
	"aistudio/internal/service"
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

const (
	callbackTokenHeader = "X-Callback-Token"
	// 状态更新可能需要下载并转存媒体文件
	taskUpdateTimeout = 3 * time.Minute
	maxHistoryPage    = 100
)

// Generate 创建生成任务并按模型价格扣费，余额不足返回 402。
func (h *HTTPHandler) Generate(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "需要登录")
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	task, remaining, err := h.tasks.CreateTask(ctx, requestUser.ID, req)
	if err != nil {
		ServiceError(c, err, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, dto.GenerateResponse{
		Task:             converter.AITaskToItem(task, nil),
		RemainingCredits: remaining,
	})
}

// UpdateTaskStatus 接收服务商回调或轮询结果，推进任务状态。失败时自动退款。
func (h *HTTPHandler) UpdateTaskStatus(c *gin.Context) {
	if !h.verifyCallback(c) {
		return
	}

	var req dto.TaskStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), taskUpdateTimeout)
	defer cancel()

	result, err := h.tasks.ApplyProviderUpdate(ctx, c.Param("id"), service.ProviderUpdate{
		Status:     req.Status,
		TaskID:     req.TaskID,
		TaskInfo:   req.TaskInfo,
		TaskResult: req.TaskResult,
		Error:      req.Error,
	})
	if err != nil {
		ServiceError(c, err, "failed to update task")
		return
	}

	if result.StatusChanged() {
		h.notifyTaskUpdated(result.Task, result.URLs)
	}
	c.JSON(http.StatusOK, converter.AITaskToItem(result.Task, result.URLs))
}

// ProviderCallback 处理服务商直接推送的回调，任务通过载荷中的服务商任务 ID 定位。
func (h *HTTPHandler) ProviderCallback(c *gin.Context) {
	if !h.verifyCallback(c) {
		return
	}

	payload, err := c.GetRawData()
	if err != nil || len(payload) == 0 {
		InvalidPayload(c)
		return
	}

	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	ctx, cancel := context.WithTimeout(c.Request.Context(), taskUpdateTimeout)
	defer cancel()

	result, err := h.tasks.HandleCallback(ctx, provider, payload)
	if err != nil {
		logrus.WithError(err).WithField("provider", provider).Warn("provider_callback_rejected")
		ServiceError(c, err, "failed to handle callback")
		return
	}

	if result.StatusChanged() {
		h.notifyTaskUpdated(result.Task, result.URLs)
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"task": converter.AITaskToItem(result.Task, result.URLs),
	})
}

// verifyCallback 在配置了回调密钥时校验请求头或 token 参数。
func (h *HTTPHandler) verifyCallback(c *gin.Context) bool {
	secret := strings.TrimSpace(h.cfg.CallbackSecret)
	if secret == "" {
		return true
	}
	token := strings.TrimSpace(c.GetHeader(callbackTokenHeader))
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		Unauthorized(c, "invalid callback token")
		return false
	}
	return true
}

// GetTask 返回任务详情与媒体地址。
func (h *HTTPHandler) GetTask(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "需要登录")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	item, err := h.tasks.GetTask(ctx, requestUser.Viewer(), c.Param("id"))
	if err != nil {
		ServiceError(c, err, "failed to load task")
		return
	}
	c.JSON(http.StatusOK, item)
}

// History 返回当前用户的任务历史。管理员传 all=true 可查看全部用户。
func (h *HTTPHandler) History(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "需要登录")
		return
	}

	var query dto.AITaskQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	if query.PageSize <= 0 {
		query.PageSize = cast.ToInt64(c.Query("limit"))
	}
	if query.PageSize > maxHistoryPage {
		query.PageSize = maxHistoryPage
	}
	query.IncludeAll = cast.ToBool(c.Query("all"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response, err := h.tasks.History(ctx, requestUser.Viewer(), query)
	if err != nil {
		ServiceError(c, err, "failed to load history")
		return
	}
	c.JSON(http.StatusOK, response)
}

// ListModels 返回当前生效的模型价格，media_type 可过滤 image 或 video。
func (h *HTTPHandler) ListModels(c *gin.Context) {
	items := converter.ModelPricesToItems(h.pricing.Catalog(c.Request.Context()))
	if mediaType := strings.ToLower(strings.TrimSpace(c.Query("media_type"))); mediaType != "" {
		filtered := items[:0]
		for _, item := range items {
			if item.MediaType == mediaType {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	c.JSON(http.StatusOK, dto.ModelPriceListResponse{Models: items})
}
