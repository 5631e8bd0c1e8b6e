package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"gorm.io/gorm"
)

type Category struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// getOrCreateCategoryTx resolves a category by case-insensitive name,
// creating it on first use. Empty names resolve to no category (0).
func getOrCreateCategoryTx(tx *gorm.DB, ctx context.Context, name string) (int, error) {
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		return 0, nil
	}

	var category Category
	err := tx.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", normalized).
		First(&category).Error
	if err == nil {
		return category.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	category = Category{Name: normalized}
	if err := tx.WithContext(ctx).Create(&category).Error; err != nil {
		return 0, err
	}
	return category.ID, nil
}

func GetOrCreateCategory(ctx context.Context, name string) (int, error) {
	return getOrCreateCategoryTx(config.GetDB(), ctx, name)
}
