package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"gorm.io/gorm"
)

// StockAlert flags a product/store pair whose quantity sits at or below its
// reorder threshold. At most one row exists per pair; crossings toggle
// IsActive instead of inserting duplicates.
type StockAlert struct {
	ID         int        `gorm:"primary_key" json:"id"`
	ProductId  int        `gorm:"not null;uniqueIndex:uq_alert_product_store" json:"product_id"`
	StoreId    int        `gorm:"not null;uniqueIndex:uq_alert_product_store" json:"store_id"`
	AlertType  string     `gorm:"size:30;not null" json:"alert_type"`
	Message    string     `gorm:"size:255" json:"message"`
	IsActive   *bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	Store   *Store   `gorm:"foreignKey:StoreId" json:"store,omitempty"`
}

func lowStockMessage(tx *gorm.DB, ctx context.Context, inv *InventoryRecord) string {
	var product Product
	var store Store
	tx.WithContext(ctx).First(&product, inv.ProductId)
	tx.WithContext(ctx).First(&store, inv.StoreId)
	return fmt.Sprintf("Low stock for %s at %s: %d on hand (threshold %d)",
		product.Name, store.Name, inv.Quantity, inv.MinStock)
}

// refreshStockAlert reconciles the alert row with the balance just written,
// inside the same transaction. Below-or-at threshold activates (or creates)
// the alert; above threshold resolves it. Re-running against an unchanged
// state is a no-op.
func refreshStockAlert(tx *gorm.DB, ctx context.Context, inv *InventoryRecord) error {

	low := inv.Quantity <= inv.MinStock

	var alert StockAlert
	err := tx.WithContext(ctx).
		Where("product_id = ? AND store_id = ?", inv.ProductId, inv.StoreId).
		First(&alert).Error
	if err == gorm.ErrRecordNotFound {
		if !low {
			return nil
		}
		active := true
		alert = StockAlert{
			ProductId: inv.ProductId,
			StoreId:   inv.StoreId,
			AlertType: StockAlertTypeLowStock,
			Message:   lowStockMessage(tx, ctx, inv),
			IsActive:  &active,
		}
		return tx.WithContext(ctx).Create(&alert).Error
	}
	if err != nil {
		return err
	}

	active := alert.IsActive != nil && *alert.IsActive
	if low && !active {
		return tx.WithContext(ctx).Model(&alert).Updates(map[string]interface{}{
			"IsActive":   true,
			"Message":    lowStockMessage(tx, ctx, inv),
			"ResolvedAt": nil,
		}).Error
	}
	if !low && active {
		now := time.Now().UTC()
		return tx.WithContext(ctx).Model(&alert).Updates(map[string]interface{}{
			"IsActive":   false,
			"ResolvedAt": &now,
		}).Error
	}
	if low && active {
		// keep the message current while the alert stays raised
		return tx.WithContext(ctx).Model(&alert).
			Update("message", lowStockMessage(tx, ctx, inv)).Error
	}
	return nil
}

// ListActiveAlerts returns raised alerts within the actor's store scope.
func ListActiveAlerts(ctx context.Context, storeId int) ([]*StockAlert, error) {

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&StockAlert{}).
		Preload("Product").Preload("Store").
		Where("is_active = ?", true)

	query, err := ScopedStoreCondition(ctx, query, "store_id")
	if err != nil {
		return nil, err
	}
	if storeId != 0 {
		if err := EnsureStorePermission(ctx, storeId); err != nil {
			return nil, err
		}
		query = query.Where("store_id = ?", storeId)
	}

	var alerts []*StockAlert
	err = query.Order("created_at DESC").Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}
