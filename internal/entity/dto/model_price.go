package dto

// ModelPriceItem 是模型价格的客户端视图。
type ModelPriceItem struct {
	ModelID      string `json:"model_id"`
	MediaType    string `json:"media_type"`
	Name         string `json:"name"`
	TextCredits  int64  `json:"text_credits"`
	ImageCredits int64  `json:"image_credits"`
	IsActive     bool   `json:"is_active"`
}

// ModelPriceCreateRequest 新增一个模型价格。media_type 为 video 时写入视频价格。
type ModelPriceCreateRequest struct {
	ModelID      string `json:"model_id" binding:"required"`
	MediaType    string `json:"media_type"`
	Name         string `json:"name"`
	TextCredits  int64  `json:"text_credits" binding:"gte=0"`
	ImageCredits int64  `json:"image_credits" binding:"gte=0"`
	IsActive     *bool  `json:"is_active"`
}

// ModelPriceUpdateRequest 修改模型价格，未提供的字段保持不变。
type ModelPriceUpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	TextCredits  *int64  `json:"text_credits,omitempty" binding:"omitempty,gte=0"`
	ImageCredits *int64  `json:"image_credits,omitempty" binding:"omitempty,gte=0"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// ModelPriceListResponse 是价格表。
type ModelPriceListResponse struct {
	Models []ModelPriceItem `json:"models"`
}
