package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMinStock is the reorder threshold for inventory records created
// lazily by the first movement against a product/store pair.
const DefaultMinStock = 10

// InventoryRecord is the current on-hand quantity of one product at one
// store. Quantity is never written directly; every change goes through
// AdjustStockTx so the movement log stays the sum of the balance.
type InventoryRecord struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ProductId int       `gorm:"not null;uniqueIndex:uq_product_store" json:"product_id"`
	StoreId   int       `gorm:"not null;uniqueIndex:uq_product_store" json:"store_id"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	MinStock  int       `gorm:"not null;default:10" json:"min_stock"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	Store   *Store   `gorm:"foreignKey:StoreId" json:"store,omitempty"`
}

// InventoryMovement is one append-only ledger line. Quantity carries the
// sign of the change: positive for entry/transfer_in, negative for
// exit/transfer_out. Rows are never updated or deleted.
type InventoryMovement struct {
	ID          int          `gorm:"primary_key" json:"id"`
	ProductId   int          `gorm:"index;not null" json:"product_id"`
	StoreId     int          `gorm:"index;not null" json:"store_id"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	Kind        MovementKind `gorm:"size:20;not null" json:"kind"`
	PerformedBy int          `gorm:"index" json:"performed_by"`
	Notes       string       `gorm:"size:255" json:"notes"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	Store   *Store   `gorm:"foreignKey:StoreId" json:"store,omitempty"`
}

// StockAdjustment is one signed delta against a product/store pair.
type StockAdjustment struct {
	ProductId       int
	StoreId         int
	Delta           int
	Kind            MovementKind
	UserId          int
	Notes           string
	DefaultMinStock *int
}

// lockForUpdate takes a pessimistic row lock. sqlite (tests) has no
// FOR UPDATE; its single-writer model gives the same guarantee.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// getOrCreateInventoryTx fetches the inventory row under lock, creating a
// zero-quantity row on first movement against the pair.
func getOrCreateInventoryTx(tx *gorm.DB, ctx context.Context, productId, storeId int, minStock *int) (*InventoryRecord, error) {

	var inv InventoryRecord
	err := lockForUpdate(tx.WithContext(ctx)).
		Where("product_id = ? AND store_id = ?", productId, storeId).
		First(&inv).Error
	if err == nil {
		return &inv, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	threshold := DefaultMinStock
	if minStock != nil {
		threshold = *minStock
	}
	inv = InventoryRecord{
		ProductId: productId,
		StoreId:   storeId,
		Quantity:  0,
		MinStock:  threshold,
	}
	if err := tx.WithContext(ctx).Create(&inv).Error; err != nil {
		if utils.IsDuplicateEntry(err) {
			// lost the insert race; re-read under lock
			err = lockForUpdate(tx.WithContext(ctx)).
				Where("product_id = ? AND store_id = ?", productId, storeId).
				First(&inv).Error
			if err != nil {
				return nil, err
			}
			return &inv, nil
		}
		return nil, err
	}
	return &inv, nil
}

// AdjustStockTx applies one signed stock delta inside the caller's
// transaction: lock the row, reject any result below zero, persist the new
// balance, append the movement, refresh the low-stock alert. This is the
// only function that writes InventoryRecord.Quantity.
func AdjustStockTx(tx *gorm.DB, ctx context.Context, input StockAdjustment) (*InventoryRecord, error) {

	if input.Delta == 0 {
		return nil, utils.ValidationErrorf("quantity must not be zero")
	}
	if !input.Kind.IsValid() {
		return nil, utils.ValidationErrorf("unknown movement kind %q", input.Kind)
	}

	inv, err := getOrCreateInventoryTx(tx, ctx, input.ProductId, input.StoreId, input.DefaultMinStock)
	if err != nil {
		return nil, err
	}

	newQuantity := inv.Quantity + input.Delta
	if newQuantity < 0 {
		return nil, utils.ErrInsufficientStock
	}

	err = tx.WithContext(ctx).Model(inv).Update("quantity", newQuantity).Error
	if err != nil {
		return nil, err
	}
	inv.Quantity = newQuantity

	movement := InventoryMovement{
		ProductId:   input.ProductId,
		StoreId:     input.StoreId,
		Quantity:    input.Delta,
		Kind:        input.Kind,
		PerformedBy: input.UserId,
		Notes:       input.Notes,
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		return nil, err
	}

	if err := refreshStockAlert(tx, ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// NewMovement is the request body for a manual stock entry or exit.
// Quantity is always positive; Kind decides the sign.
type NewMovement struct {
	ProductId int          `json:"product_id"`
	Sku       string       `json:"sku"`
	StoreId   int          `json:"store_id" binding:"required"`
	Quantity  int          `json:"quantity" binding:"required,gt=0"`
	Kind      MovementKind `json:"kind" binding:"required"`
	Notes     string       `json:"notes"`
	MinStock  *int         `json:"min_stock"`

	// Optional inline product creation on first entry.
	NewProduct *NewProduct `json:"new_product"`
}

// RecordMovement registers one manual entry/exit, resolving the product by
// id, sku, or inline creation.
func RecordMovement(ctx context.Context, input *NewMovement) (*InventoryRecord, error) {

	if input.Kind != MovementKindEntry && input.Kind != MovementKindExit {
		return nil, utils.ValidationErrorf("kind must be entry or exit")
	}
	if err := utils.ValidateResourceId[Store](ctx, input.StoreId); err != nil {
		return nil, utils.ValidationErrorf("store %d not found", input.StoreId)
	}
	if err := EnsureStorePermission(ctx, input.StoreId); err != nil {
		return nil, err
	}

	productId := input.ProductId
	if productId == 0 && input.Sku != "" {
		product, err := GetProductBySku(ctx, input.Sku)
		if err == nil {
			productId = product.ID
		} else if input.NewProduct == nil {
			return nil, utils.ValidationErrorf("product with sku %q not found", input.Sku)
		}
	}
	if productId == 0 && input.NewProduct != nil {
		if input.Kind != MovementKindEntry {
			return nil, utils.ValidationErrorf("new products start with an entry")
		}
		product, err := CreateProduct(ctx, input.NewProduct)
		if err != nil {
			return nil, err
		}
		productId = product.ID
	}
	if productId == 0 {
		return nil, utils.ValidationErrorf("product is required")
	}
	if err := utils.ValidateResourceId[Product](ctx, productId); err != nil {
		return nil, utils.ValidationErrorf("product %d not found", productId)
	}

	delta := input.Quantity
	if input.Kind == MovementKindExit {
		delta = -delta
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	var inv *InventoryRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		inv, txErr = AdjustStockTx(tx, ctx, StockAdjustment{
			ProductId:       productId,
			StoreId:         input.StoreId,
			Delta:           delta,
			Kind:            input.Kind,
			UserId:          userId,
			Notes:           input.Notes,
			DefaultMinStock: input.MinStock,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// MovementFilter narrows ListMovements. Zero values mean "any".
type MovementFilter struct {
	ProductId int
	StoreId   int
	Kind      MovementKind
	Since     *time.Time
	Until     *time.Time
	Limit     int
}

// ListMovements returns ledger lines newest first, restricted to the acting
// user's store scope.
func ListMovements(ctx context.Context, filter MovementFilter) ([]*InventoryMovement, error) {

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&InventoryMovement{}).
		Preload("Product").Preload("Store")

	query, err := ScopedStoreCondition(ctx, query, "store_id")
	if err != nil {
		return nil, err
	}
	if filter.ProductId != 0 {
		query = query.Where("product_id = ?", filter.ProductId)
	}
	if filter.StoreId != 0 {
		if err := EnsureStorePermission(ctx, filter.StoreId); err != nil {
			return nil, err
		}
		query = query.Where("store_id = ?", filter.StoreId)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("created_at <= ?", filter.Until)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var movements []*InventoryMovement
	err = query.Order("created_at DESC, id DESC").Limit(limit).Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// GetInventoryOverview returns current balances within the actor's scope,
// optionally for one store.
func GetInventoryOverview(ctx context.Context, storeId int) ([]*InventoryRecord, error) {

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&InventoryRecord{}).
		Preload("Product").Preload("Store")

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

	var records []*InventoryRecord
	err = query.Order("store_id, product_id").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SetMinStock changes the reorder threshold and re-evaluates the alert
// against the unchanged quantity.
func SetMinStock(ctx context.Context, productId, storeId, minStock int) (*InventoryRecord, error) {

	if minStock < 0 {
		return nil, utils.ValidationErrorf("min_stock must not be negative")
	}
	if err := EnsureStorePermission(ctx, storeId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var inv *InventoryRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		rec, txErr := getOrCreateInventoryTx(tx, ctx, productId, storeId, &minStock)
		if txErr != nil {
			return txErr
		}
		if rec.MinStock != minStock {
			if txErr = tx.WithContext(ctx).Model(rec).Update("min_stock", minStock).Error; txErr != nil {
				return txErr
			}
			rec.MinStock = minStock
		}
		inv = rec
		return refreshStockAlert(tx, ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}
