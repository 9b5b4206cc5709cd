package model

import (
	"aistudio/internal/entity"
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// DefaultModelID 是未配置价格的模型所使用的兜底价格键。
const DefaultModelID = "default"

// VideoPriceKey 返回视频模型的价格键。视频与图片模型可能同名但价格不同。
func VideoPriceKey(modelID string) string {
	return "video:" + NormalizeModelID(modelID)
}

// DefaultModelPrices 返回内置的模型积分价格表。
func DefaultModelPrices() []entity.DbModelPrice {
	return []entity.DbModelPrice{
		{ModelID: "google/nano-banana", Name: "Nano Banana (Google)", TextCredits: 5, ImageCredits: 10, IsActive: true},
		{ModelID: "nano-banana", Name: "Nano Banana", TextCredits: 1, ImageCredits: 2, IsActive: true},
		{ModelID: "z-image", Name: "Z-Image", TextCredits: 1, ImageCredits: 2, IsActive: true},
		{ModelID: "z-image-turbo", Name: "Z-Image Turbo", TextCredits: 1, ImageCredits: 2, IsActive: true},
		{ModelID: "nano-banana-pro", Name: "Nano Banana Pro", TextCredits: 3, ImageCredits: 6, IsActive: true},
		{ModelID: "qwen/text-to-image", Name: "Qwen Text to Image", TextCredits: 3, ImageCredits: 6, IsActive: true},
		{ModelID: "qwen-image", Name: "Qwen Image", TextCredits: 3, ImageCredits: 6, IsActive: true},
		{ModelID: "flux-2/pro-text-to-image", Name: "FLUX.2 Pro Text to Image", TextCredits: 3, ImageCredits: 6, IsActive: true},
		{ModelID: "flux-2-pro", Name: "FLUX.2 Pro", TextCredits: 3, ImageCredits: 6, IsActive: true},
		{ModelID: "seedream/4.5-text-to-image", Name: "Seedream 4.5", TextCredits: 3, ImageCredits: 6, IsActive: true},
		{ModelID: "seedream", Name: "Seedream", TextCredits: 3, ImageCredits: 6, IsActive: true},
		{ModelID: "grok-imagine/text-to-image", Name: "Grok Imagine Text to Image", TextCredits: 3, ImageCredits: 3, IsActive: true},
		{ModelID: "grok-imagine", Name: "Grok Imagine", TextCredits: 3, ImageCredits: 3, IsActive: true},
		{ModelID: "gpt4o-image", Name: "GPT-4o Image", TextCredits: 8, ImageCredits: 12, IsActive: true},
		{ModelID: DefaultModelID, Name: "Default", TextCredits: 2, ImageCredits: 4, IsActive: true},

		// 视频模型：text 为文生视频价格，image 为图生视频价格
		{ModelID: VideoPriceKey("veo3"), Name: "Veo 3 Quality", TextCredits: 15, ImageCredits: 15, IsActive: true},
		{ModelID: VideoPriceKey("veo-3-1-quality"), Name: "Veo 3.1 Quality", TextCredits: 15, ImageCredits: 15, IsActive: true},
		{ModelID: VideoPriceKey("veo3_fast"), Name: "Veo 3 Fast", TextCredits: 10, ImageCredits: 10, IsActive: true},
		{ModelID: VideoPriceKey("veo-3-1-fast"), Name: "Veo 3.1 Fast", TextCredits: 10, ImageCredits: 10, IsActive: true},
		{ModelID: VideoPriceKey("sora-2-pro"), Name: "Sora 2 Pro", TextCredits: 20, ImageCredits: 20, IsActive: true},
		{ModelID: VideoPriceKey("sora-2-pro-text-to-video"), Name: "Sora 2 Pro Text to Video", TextCredits: 20, ImageCredits: 20, IsActive: true},
		{ModelID: VideoPriceKey("sora-2-pro-image-to-video"), Name: "Sora 2 Pro Image to Video", TextCredits: 20, ImageCredits: 20, IsActive: true},
		{ModelID: VideoPriceKey("bytedance/v1-pro-text-to-video"), Name: "Seedance V1 Pro Text to Video", TextCredits: 15, ImageCredits: 15, IsActive: true},
		{ModelID: VideoPriceKey("bytedance/v1-pro-image-to-video"), Name: "Seedance V1 Pro Image to Video", TextCredits: 15, ImageCredits: 15, IsActive: true},
		{ModelID: VideoPriceKey("seedance-v1"), Name: "Seedance V1", TextCredits: 15, ImageCredits: 15, IsActive: true},
		{ModelID: VideoPriceKey("kling-2.6"), Name: "Kling 2.6", TextCredits: 12, ImageCredits: 12, IsActive: true},
		{ModelID: VideoPriceKey("kling-2.6/text-to-video"), Name: "Kling 2.6 Text to Video", TextCredits: 12, ImageCredits: 12, IsActive: true},
		{ModelID: VideoPriceKey("kling-2.6/image-to-video"), Name: "Kling 2.6 Image to Video", TextCredits: 12, ImageCredits: 12, IsActive: true},
		{ModelID: VideoPriceKey("wan-2.6"), Name: "Wan 2.6", TextCredits: 12, ImageCredits: 12, IsActive: true},
		{ModelID: VideoPriceKey("wan/2-6-text-to-video"), Name: "Wan 2.6 Text to Video", TextCredits: 12, ImageCredits: 12, IsActive: true},
		{ModelID: VideoPriceKey("wan/2-6-image-to-video"), Name: "Wan 2.6 Image to Video", TextCredits: 12, ImageCredits: 12, IsActive: true},
		{ModelID: VideoPriceKey("hailuo-2.3"), Name: "Hailuo 2.3", TextCredits: 15, ImageCredits: 15, IsActive: true},
		{ModelID: VideoPriceKey("hailuo/2-3-image-to-video-pro"), Name: "Hailuo 2.3 Image to Video Pro", TextCredits: 15, ImageCredits: 15, IsActive: true},
		{ModelID: VideoPriceKey("grok-imagine"), Name: "Grok Imagine Video", TextCredits: 12, ImageCredits: 12, IsActive: true},
		{ModelID: VideoPriceKey(DefaultModelID), Name: "Default Video", TextCredits: 15, ImageCredits: 15, IsActive: true},
	}
}

// SeedDefaultModelPrices ensures the built-in price table exists in the database.
// Rows already present are left untouched so admin edits survive restarts.
func SeedDefaultModelPrices(ctx context.Context, repo Repository) error {
	if repo == nil {
		return nil
	}

	for _, seed := range DefaultModelPrices() {
		price := seed
		_, err := repo.GetModelPrice(ctx, price.ModelID)
		switch {
		case err == nil:
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := repo.CreateModelPrice(ctx, &price); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

// NormalizeModelID 统一模型标识的大小写与空白。
func NormalizeModelID(modelID string) string {
	return strings.ToLower(strings.TrimSpace(modelID))
}
