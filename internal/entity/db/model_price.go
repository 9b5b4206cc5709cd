package db

import "time"

// ModelPrice 存储模型每次生成的积分价格。
// 文生图/文生视频按 TextCredits 计费，图生图按 ImageCredits 计费。
type ModelPrice struct {
	ModelID      string    `gorm:"primaryKey;column:model_id;type:varchar(255)" json:"model_id"`
	Name         string    `gorm:"column:name;type:varchar(255)" json:"name"`
	TextCredits  int64     `gorm:"column:text_credits;not null" json:"text_credits"`
	ImageCredits int64     `gorm:"column:image_credits;not null" json:"image_credits"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名。
func (ModelPrice) TableName() string {
	return "model_prices"
}
