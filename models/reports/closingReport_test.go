package reports_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"bitbucket.org/mmdatafocus/retailstock_backend/models/reports"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:reports_%s?mode=memory&cache=shared", name)
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

func adminCtx() context.Context {
	ctx := utils.SetUserIdInContext(context.Background(), 1)
	return utils.SetUserRoleInContext(ctx, string(models.UserRoleAdmin))
}

func TestClosingReportExcludesVoidInvoices(t *testing.T) {
	setupTestDB(t)
	t.Setenv("SALES_TAX_RATE", "0.10")
	ctx := adminCtx()

	store, err := models.CreateStore(ctx, &models.NewStore{Name: "Main"})
	if err != nil {
		t.Fatalf("create store failed: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Sku: "SKU-001", Name: "Coffee", UnitPrice: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	minStock := 1
	if _, err := models.RecordMovement(ctx, &models.NewMovement{
		ProductId: product.ID, StoreId: store.ID, Quantity: 50,
		Kind: models.MovementKindEntry, MinStock: &minStock,
	}); err != nil {
		t.Fatalf("stock failed: %v", err)
	}
	if _, err := models.OpenPosSession(ctx, &models.NewPosSession{StoreId: store.ID}); err != nil {
		t.Fatalf("open session failed: %v", err)
	}

	checkout := func(quantity int, discount int64, method string) *models.Invoice {
		invoice, err := models.PosCheckout(ctx, &models.NewPosCheckout{
			PaymentMethod: method,
			Lines: []models.PosCheckoutLine{{
				ProductId: product.ID,
				Quantity:  quantity,
				Discount:  decimal.NewFromInt(discount),
			}},
		})
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}
		return invoice
	}

	checkout(3, 0, "cash") // 30
	checkout(2, 1, "card") // (10 - 1) x 2 = 18
	voided := checkout(4, 2, "cash")
	if _, err := models.VoidInvoice(ctx, voided.ID, "mistake"); err != nil {
		t.Fatalf("void failed: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	report, err := reports.GenerateClosingReport(ctx, store.ID, today)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	if report.TransactionCount != 2 {
		t.Fatalf("expected 2 transactions, got %d", report.TransactionCount)
	}
	if !report.TotalSales.Equal(decimal.NewFromInt(48)) {
		t.Fatalf("expected total sales 48, got %s", report.TotalSales)
	}
	// tax is derived from the day's sales, never stored on invoices
	if !report.TaxesCollected.Equal(decimal.NewFromFloat(4.80)) {
		t.Fatalf("expected taxes collected 4.80, got %s", report.TaxesCollected)
	}
	// 1.00 off each of 2 units; the voided sale's discount does not count
	if !report.DiscountsApplied.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected discounts applied 2, got %s", report.DiscountsApplied)
	}
	if !report.PaymentBreakdown["cash"].Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected cash 30, got %s", report.PaymentBreakdown["cash"])
	}
	if !report.PaymentBreakdown["card"].Equal(decimal.NewFromInt(18)) {
		t.Fatalf("expected card 18, got %s", report.PaymentBreakdown["card"])
	}
	if len(report.ProductsSold) != 1 {
		t.Fatalf("expected one product row, got %d", len(report.ProductsSold))
	}
	if report.ProductsSold[0].Quantity != 5 {
		t.Fatalf("expected 5 units sold, got %d", report.ProductsSold[0].Quantity)
	}
}

func TestClosingReportXlsxExport(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()

	store, err := models.CreateStore(ctx, &models.NewStore{Name: "Main"})
	if err != nil {
		t.Fatalf("create store failed: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	report, err := reports.GenerateClosingReport(ctx, store.ID, today)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	buf, err := reports.ExportClosingReportXlsx(report)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty xlsx output")
	}
}

func TestClosingReportRejectsBadDate(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()

	store, err := models.CreateStore(ctx, &models.NewStore{Name: "Main"})
	if err != nil {
		t.Fatalf("create store failed: %v", err)
	}
	if _, err := reports.GenerateClosingReport(ctx, store.ID, "30-08-2026"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
