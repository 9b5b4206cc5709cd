package api

import (
	"aistudio/internal/entity"
	"aistudio/internal/entity/converter"
	"aistudio/internal/entity/dto"
	"aistudio/internal/model"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// AdminOverview 返回最近 days 天的运营概览。
func (h *HTTPHandler) AdminOverview(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	overview, err := h.overview.Overview(ctx, cast.ToInt(c.Query("days")))
	if err != nil {
		ServiceError(c, err, "failed to load overview")
		return
	}
	c.JSON(http.StatusOK, overview)
}

// AdminListModels 返回包含停用项在内的完整价格表。
func (h *HTTPHandler) AdminListModels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	prices, err := h.repo.ListModelPrices(ctx, true)
	if err != nil {
		ServiceError(c, err, "failed to load model prices")
		return
	}
	c.JSON(http.StatusOK, dto.ModelPriceListResponse{Models: converter.ModelPricesToItems(prices)})
}

// CreateModel 新增模型价格。
func (h *HTTPHandler) CreateModel(c *gin.Context) {
	var req dto.ModelPriceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	mediaType := entity.MediaType(strings.ToLower(strings.TrimSpace(req.MediaType)))
	if mediaType == "" {
		mediaType = entity.MediaImage
	}
	if !mediaType.Valid() {
		BadRequest(c, ErrCodeInvalidMediaType, "invalid media type")
		return
	}

	price := &entity.DbModelPrice{
		ModelID:      priceKey(mediaType, req.ModelID),
		Name:         strings.TrimSpace(req.Name),
		TextCredits:  req.TextCredits,
		ImageCredits: req.ImageCredits,
		IsActive:     true,
	}
	if req.IsActive != nil {
		price.IsActive = *req.IsActive
	}
	if price.Name == "" {
		price.Name = strings.TrimSpace(req.ModelID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.repo.GetModelPrice(ctx, price.ModelID); err == nil {
		BadRequest(c, ErrCodeModelExists, "model price already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		ServiceError(c, err, "failed to create model price")
		return
	}

	if err := h.repo.CreateModelPrice(ctx, price); err != nil {
		ServiceError(c, err, "failed to create model price")
		return
	}
	h.pricing.Invalidate()

	logrus.WithFields(logrus.Fields{
		"model_id": price.ModelID,
		"text":     price.TextCredits,
		"image":    price.ImageCredits,
	}).Info("model_price_created")
	c.JSON(http.StatusCreated, converter.ModelPriceToItem(price))
}

// UpdateModel 修改模型价格。视频价格通过 media_type=video 查询参数定位。
func (h *HTTPHandler) UpdateModel(c *gin.Context) {
	var req dto.ModelPriceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	modelID := priceKey(entity.MediaType(strings.ToLower(c.Query("media_type"))), c.Param("id"))
	updates := entity.ModelPriceUpdates{
		TextCredits:  req.TextCredits,
		ImageCredits: req.ImageCredits,
		IsActive:     req.IsActive,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		updates.Name = &name
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.UpdateModelPrice(ctx, modelID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeModelNotFound, "模型价格不存在")
			return
		}
		ServiceError(c, err, "failed to update model price")
		return
	}
	h.pricing.Invalidate()

	price, err := h.repo.GetModelPrice(ctx, modelID)
	if err != nil {
		ServiceError(c, err, "failed to load model price")
		return
	}
	logrus.WithField("model_id", modelID).Info("model_price_updated")
	c.JSON(http.StatusOK, converter.ModelPriceToItem(price))
}

func priceKey(mediaType entity.MediaType, modelID string) string {
	if mediaType == entity.MediaVideo {
		return model.VideoPriceKey(modelID)
	}
	return model.NormalizeModelID(modelID)
}
