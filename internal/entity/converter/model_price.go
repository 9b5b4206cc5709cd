package converter

import (
	"aistudio/internal/entity/common"
	"aistudio/internal/entity/db"
	"aistudio/internal/entity/dto"
	"strings"
)

const videoPricePrefix = "video:"

// ModelPriceToItem 拆出视频价格键的前缀，返回模型标识与媒体类型。
func ModelPriceToItem(p *db.ModelPrice) dto.ModelPriceItem {
	if p == nil {
		return dto.ModelPriceItem{}
	}
	item := dto.ModelPriceItem{
		ModelID:      p.ModelID,
		MediaType:    string(common.MediaImage),
		Name:         p.Name,
		TextCredits:  p.TextCredits,
		ImageCredits: p.ImageCredits,
		IsActive:     p.IsActive,
	}
	if rest, ok := strings.CutPrefix(p.ModelID, videoPricePrefix); ok {
		item.ModelID = rest
		item.MediaType = string(common.MediaVideo)
	}
	return item
}

func ModelPricesToItems(prices []db.ModelPrice) []dto.ModelPriceItem {
	items := make([]dto.ModelPriceItem, 0, len(prices))
	for i := range prices {
		items = append(items, ModelPriceToItem(&prices[i]))
	}
	return items
}
