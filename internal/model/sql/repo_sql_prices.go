package sql

import (
	"aistudio/internal/entity"
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ListModelPrices returns model prices optionally filtering inactive ones.
func (r *GormRepository) ListModelPrices(ctx context.Context, includeInactive bool) ([]entity.DbModelPrice, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	query := r.db.WithContext(ctx).Model(&entity.DbModelPrice{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var prices []entity.DbModelPrice
	if err := query.Order("model_id ASC").Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

// GetModelPrice returns the price row for a model.
func (r *GormRepository) GetModelPrice(ctx context.Context, modelID string) (*entity.DbModelPrice, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	var price entity.DbModelPrice
	if err := r.db.WithContext(ctx).First(&price, "model_id = ?", modelID).Error; err != nil {
		return nil, err
	}
	return &price, nil
}

// CreateModelPrice inserts a new price row.
func (r *GormRepository) CreateModelPrice(ctx context.Context, price *entity.DbModelPrice) error {
	if r == nil || r.db == nil {
		return errNotInitialised
	}
	if price == nil {
		return fmt.Errorf("price is nil")
	}
	price.ModelID = strings.TrimSpace(price.ModelID)
	if price.ModelID == "" {
		return fmt.Errorf("model id is required")
	}
	if price.TextCredits < 0 || price.ImageCredits < 0 {
		return fmt.Errorf("model price must not be negative")
	}
	return r.db.WithContext(ctx).Create(price).Error
}

// UpdateModelPrice updates price fields of a model.
func (r *GormRepository) UpdateModelPrice(ctx context.Context, modelID string, updates entity.ModelPriceUpdates) error {
	if r == nil || r.db == nil {
		return errNotInitialised
	}
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return fmt.Errorf("model id is required")
	}
	if updates.IsEmpty() {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&entity.DbModelPrice{}).
		Where("model_id = ?", modelID).
		Updates(updates.ToMap())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
