package reports

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ClosingReport summarizes one store's sales for one calendar day. Voided
// invoices are excluded from every figure. TaxesCollected is derived here as
// TotalSales * TaxRate; invoices themselves carry no tax.
type ClosingReport struct {
	StoreId          int                        `json:"store_id"`
	StoreName        string                     `json:"store_name"`
	Date             string                     `json:"date"`
	TotalSales       decimal.Decimal            `json:"total_sales"`
	TransactionCount int64                      `json:"transaction_count"`
	PaymentBreakdown map[string]decimal.Decimal `json:"payment_breakdown"`
	ProductsSold     []ProductSales             `json:"products_sold"`
	TaxRate          decimal.Decimal            `json:"tax_rate"`
	TaxesCollected   decimal.Decimal            `json:"taxes_collected"`
	DiscountsApplied decimal.Decimal            `json:"discounts_applied"`
	GeneratedAt      time.Time                  `json:"generated_at"`
}

type ProductSales struct {
	ProductId   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

func closingCacheKey(storeId int, date string) string {
	return fmt.Sprintf("report:closing:%d:%s", storeId, date)
}

// salesTaxRate reads SALES_TAX_RATE, defaulting to 0.19. Tax is a reporting
// figure only; invoice totals never include it.
func salesTaxRate() decimal.Decimal {
	raw := os.Getenv("SALES_TAX_RATE")
	if raw == "" {
		return decimal.NewFromFloat(0.19)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() {
		return decimal.NewFromFloat(0.19)
	}
	return rate
}

// GenerateClosingReport builds the report for storeId on date (yyyy-mm-dd,
// store-local day taken as UTC). Cached in redis until end of day; the cache
// is a read-through, the database stays the source of truth.
func GenerateClosingReport(ctx context.Context, storeId int, date string) (*ClosingReport, error) {

	if err := models.EnsureStorePermission(ctx, storeId); err != nil {
		return nil, err
	}

	dayStart, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, utils.ValidationErrorf("date must be yyyy-mm-dd")
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	cacheKey := closingCacheKey(storeId, date)
	var cached ClosingReport
	if hit, _ := config.GetRedisObject(cacheKey, &cached); hit {
		return &cached, nil
	}

	store, err := models.GetStore(ctx, storeId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	report := ClosingReport{
		StoreId:          storeId,
		StoreName:        store.Name,
		Date:             date,
		TaxRate:          salesTaxRate(),
		PaymentBreakdown: map[string]decimal.Decimal{},
		ProductsSold:     []ProductSales{},
		GeneratedAt:      time.Now().UTC(),
	}

	base := db.WithContext(ctx).Model(&models.Invoice{}).
		Where("store_id = ? AND status != ? AND created_at >= ? AND created_at < ?",
			storeId, models.InvoiceStatusVoid, dayStart, dayEnd)

	var totals struct {
		TotalSales       decimal.Decimal
		TransactionCount int64
	}
	err = base.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total),0) AS total_sales, COUNT(*) AS transaction_count").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	report.TotalSales = totals.TotalSales
	report.TransactionCount = totals.TransactionCount
	report.TaxesCollected = totals.TotalSales.Mul(report.TaxRate).Round(2)

	var discounts struct {
		DiscountsApplied decimal.Decimal
	}
	err = db.WithContext(ctx).Model(&models.InvoiceItem{}).
		Select("COALESCE(SUM(invoice_items.discount * invoice_items.quantity),0) AS discounts_applied").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.store_id = ? AND invoices.status != ? AND invoices.created_at >= ? AND invoices.created_at < ?",
			storeId, models.InvoiceStatusVoid, dayStart, dayEnd).
		Scan(&discounts).Error
	if err != nil {
		return nil, err
	}
	report.DiscountsApplied = discounts.DiscountsApplied

	var byMethod []struct {
		PaymentMethod string
		Total         decimal.Decimal
	}
	err = base.Session(&gorm.Session{}).
		Select("payment_method, COALESCE(SUM(total),0) AS total").
		Group("payment_method").
		Scan(&byMethod).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byMethod {
		report.PaymentBreakdown[row.PaymentMethod] = row.Total
	}

	err = db.WithContext(ctx).Model(&models.InvoiceItem{}).
		Select("invoice_items.product_id, products.name AS product_name, "+
			"COALESCE(SUM(invoice_items.quantity),0) AS quantity, "+
			"COALESCE(SUM(invoice_items.line_total),0) AS total").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Joins("JOIN products ON products.id = invoice_items.product_id").
		Where("invoices.store_id = ? AND invoices.status != ? AND invoices.created_at >= ? AND invoices.created_at < ?",
			storeId, models.InvoiceStatusVoid, dayStart, dayEnd).
		Group("invoice_items.product_id, products.name").
		Order("quantity DESC").
		Scan(&report.ProductsSold).Error
	if err != nil {
		return nil, err
	}

	config.SetRedisObject(cacheKey, &report, 10*time.Minute)
	return &report, nil
}

// ExportClosingReportXlsx renders the report as a spreadsheet.
func ExportClosingReportXlsx(report *ClosingReport) (*bytes.Buffer, error) {

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Closing Report"
	f.SetSheetName("Sheet1", sheet)

	rows := [][]interface{}{
		{"Store", report.StoreName},
		{"Date", report.Date},
		{"Total Sales", report.TotalSales.StringFixed(2)},
		{"Transactions", report.TransactionCount},
		{"Taxes Collected", report.TaxesCollected.StringFixed(2)},
		{"Discounts Applied", report.DiscountsApplied.StringFixed(2)},
		{"Tax Rate", report.TaxRate.String()},
		{},
		{"Payment Method", "Total"},
	}
	for method, total := range report.PaymentBreakdown {
		rows = append(rows, []interface{}{method, total.StringFixed(2)})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Product", "Quantity", "Total"})
	for _, product := range report.ProductsSold {
		rows = append(rows, []interface{}{product.ProductName, product.Quantity, product.Total.StringFixed(2)})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}
