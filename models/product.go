package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID         int             `gorm:"primary_key" json:"id"`
	Sku        string          `gorm:"size:50;uniqueIndex;not null" json:"sku" binding:"required"`
	Name       string          `gorm:"size:150;not null" json:"name" binding:"required"`
	CategoryId int             `gorm:"index" json:"category_id"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_cost"`
	IsActive   *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryId" json:"category,omitempty"`
}

type NewProduct struct {
	Sku          string          `json:"sku" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	CategoryName string          `json:"category_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
}

func (input *NewProduct) validate(ctx context.Context, id int) error {
	input.Sku = strings.TrimSpace(input.Sku)
	if input.Sku == "" {
		return utils.ValidationErrorf("sku must not be blank")
	}
	if input.UnitPrice.IsNegative() || input.UnitCost.IsNegative() {
		return utils.ValidationErrorf("prices must not be negative")
	}
	return utils.ValidateUnique[Product](ctx, "sku", input.Sku, id)
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var product Product
	err := db.Transaction(func(tx *gorm.DB) error {
		categoryId, err := getOrCreateCategoryTx(tx, ctx, input.CategoryName)
		if err != nil {
			return err
		}
		product = Product{
			Sku:        input.Sku,
			Name:       input.Name,
			CategoryId: categoryId,
			UnitPrice:  input.UnitPrice,
			UnitCost:   input.UnitCost,
			IsActive:   utils.NewTrue(),
		}
		return tx.WithContext(ctx).Create(&product).Error
	})
	if err != nil {
		// unique index race, same outcome as the pre-check
		if utils.IsDuplicateEntry(err) {
			return nil, utils.ValidationErrorf("sku already exists")
		}
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		categoryId, err := getOrCreateCategoryTx(tx, ctx, input.CategoryName)
		if err != nil {
			return err
		}
		if categoryId == 0 {
			categoryId = product.CategoryId
		}
		return tx.WithContext(ctx).Model(product).Updates(map[string]interface{}{
			"Sku":        input.Sku,
			"Name":       input.Name,
			"CategoryId": categoryId,
			"UnitPrice":  input.UnitPrice,
			"UnitCost":   input.UnitCost,
		}).Error
	})
	if err != nil {
		if utils.IsDuplicateEntry(err) {
			return nil, utils.ValidationErrorf("sku already exists")
		}
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return utils.FetchModel[Product](ctx, id, "Category")
}

func GetProductBySku(ctx context.Context, sku string) (*Product, error) {
	db := config.GetDB()
	var product Product
	err := db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &product, nil
}
