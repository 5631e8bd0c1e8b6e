package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB swaps the global DB for a per-test in-memory sqlite database.
// One open connection keeps the shared-cache memory db alive and serializes
// access.
func setupTestDB(t *testing.T) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	config.SetDB(db)
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB.Close()
		config.SetDB(nil)
	})
}

func configDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := config.GetDB()
	if db == nil {
		t.Fatal("test db not initialized")
	}
	return db
}

func ctxWithUser(userId int, role models.UserRole) context.Context {
	ctx := utils.SetUserIdInContext(context.Background(), userId)
	ctx = utils.SetUsernameInContext(ctx, fmt.Sprintf("user%d", userId))
	return utils.SetUserRoleInContext(ctx, string(role))
}

func adminCtx() context.Context {
	return ctxWithUser(1, models.UserRoleAdmin)
}

func mustCreateStore(t *testing.T, ctx context.Context, name string) *models.Store {
	t.Helper()
	store, err := models.CreateStore(ctx, &models.NewStore{Name: name})
	if err != nil {
		t.Fatalf("failed to create store %q: %v", name, err)
	}
	return store
}

func mustCreateProduct(t *testing.T, ctx context.Context, sku string, price float64) *models.Product {
	t.Helper()
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Sku:       sku,
		Name:      "Product " + sku,
		UnitPrice: decimal.NewFromFloat(price),
	})
	if err != nil {
		t.Fatalf("failed to create product %q: %v", sku, err)
	}
	return product
}

// mustStock gives a store an opening balance through the ledger, with an
// explicit reorder threshold.
func mustStock(t *testing.T, ctx context.Context, productId, storeId, quantity, minStock int) {
	t.Helper()
	_, err := models.RecordMovement(ctx, &models.NewMovement{
		ProductId: productId,
		StoreId:   storeId,
		Quantity:  quantity,
		Kind:      models.MovementKindEntry,
		MinStock:  &minStock,
	})
	if err != nil {
		t.Fatalf("failed to stock product %d at store %d: %v", productId, storeId, err)
	}
}

// mustOpenSession opens a register session for the acting user; checkouts
// refuse to run without one.
func mustOpenSession(t *testing.T, ctx context.Context, storeId int) *models.PosSession {
	t.Helper()
	session, err := models.OpenPosSession(ctx, &models.NewPosSession{
		StoreId:      storeId,
		OpeningFloat: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("failed to open pos session at store %d: %v", storeId, err)
	}
	return session
}

func currentQuantity(t *testing.T, ctx context.Context, productId, storeId int) int {
	t.Helper()
	db := config.GetDB()
	var inv models.InventoryRecord
	err := db.WithContext(ctx).
		Where("product_id = ? AND store_id = ?", productId, storeId).
		First(&inv).Error
	if err != nil {
		t.Fatalf("failed to read inventory for product %d store %d: %v", productId, storeId, err)
	}
	return inv.Quantity
}

func movementSum(t *testing.T, ctx context.Context, productId, storeId int) int {
	t.Helper()
	db := config.GetDB()
	var sum struct{ Total int }
	err := db.WithContext(ctx).Model(&models.InventoryMovement{}).
		Select("COALESCE(SUM(quantity),0) AS total").
		Where("product_id = ? AND store_id = ?", productId, storeId).
		Scan(&sum).Error
	if err != nil {
		t.Fatalf("failed to sum movements: %v", err)
	}
	return sum.Total
}

func activeAlertCount(t *testing.T, ctx context.Context, productId, storeId int) int {
	t.Helper()
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&models.StockAlert{}).
		Where("product_id = ? AND store_id = ? AND is_active = ?", productId, storeId, true).
		Count(&count).Error
	if err != nil {
		t.Fatalf("failed to count alerts: %v", err)
	}
	return int(count)
}

func alertRowCount(t *testing.T, ctx context.Context, productId, storeId int) int {
	t.Helper()
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&models.StockAlert{}).
		Where("product_id = ? AND store_id = ?", productId, storeId).
		Count(&count).Error
	if err != nil {
		t.Fatalf("failed to count alert rows: %v", err)
	}
	return int(count)
}
