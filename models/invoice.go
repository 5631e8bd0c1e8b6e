package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is one finalized sale. Total is always the sum of its items'
// line totals; tax is a reporting concern and never part of the total.
// Status is paid on creation and void after cancellation; voided invoices
// keep their lines for audit.
type Invoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	InvoiceNumber string          `gorm:"size:40;uniqueIndex" json:"invoice_number"`
	StoreId       int             `gorm:"index;not null" json:"store_id"`
	CustomerId    int             `gorm:"index" json:"customer_id"`
	CashierId     int             `gorm:"index;not null" json:"cashier_id"`
	PosSessionId  int             `gorm:"index" json:"pos_session_id"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentMethod string          `gorm:"size:20;not null" json:"payment_method"`
	Status        InvoiceStatus   `gorm:"size:10;not null;default:paid" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceId" json:"items,omitempty"`
	Store    *Store        `gorm:"foreignKey:StoreId" json:"store,omitempty"`
	Customer *Customer     `gorm:"foreignKey:CustomerId" json:"customer,omitempty"`
}

// InvoiceItem is one sale line. Discount is per unit and bounded by
// UnitPrice; LineTotal = (UnitPrice - Discount) * Quantity.
type InvoiceItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	InvoiceId int             `gorm:"index;not null" json:"invoice_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2)" json:"discount"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
}

// InvoiceAuditLog records every lifecycle action against an invoice.
type InvoiceAuditLog struct {
	ID        int                `gorm:"primary_key" json:"id"`
	InvoiceId int                `gorm:"index;not null" json:"invoice_id"`
	Action    InvoiceAuditAction `gorm:"size:20;not null" json:"action"`
	UserId    int                `gorm:"index" json:"user_id"`
	Detail    string             `gorm:"size:500" json:"detail"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func appendInvoiceAudit(tx *gorm.DB, ctx context.Context, invoiceId int, action InvoiceAuditAction, detail string) error {
	userId, _ := utils.GetUserIdFromContext(ctx)
	log := InvoiceAuditLog{
		InvoiceId: invoiceId,
		Action:    action,
		UserId:    userId,
		Detail:    detail,
	}
	return tx.WithContext(ctx).Create(&log).Error
}

func invoiceNumber(id int, at time.Time) string {
	return fmt.Sprintf("INV-%s-%d", at.UTC().Format("20060102150405"), id)
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, id, "Items", "Items.Product", "Store", "Customer")
	if err != nil {
		return nil, err
	}
	if err := EnsureStorePermission(ctx, invoice.StoreId); err != nil {
		return nil, err
	}
	return invoice, nil
}

// InvoiceFilter narrows ListInvoices. Zero values mean "any".
type InvoiceFilter struct {
	StoreId int
	Status  InvoiceStatus
	Since   *time.Time
	Until   *time.Time
	Limit   int
}

func ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error) {

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&Invoice{}).
		Preload("Items").Preload("Store").Preload("Customer")

	query, err := ScopedStoreCondition(ctx, query, "store_id")
	if err != nil {
		return nil, err
	}
	if filter.StoreId != 0 {
		if err := EnsureStorePermission(ctx, filter.StoreId); err != nil {
			return nil, err
		}
		query = query.Where("store_id = ?", filter.StoreId)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var invoices []*Invoice
	err = query.Order("created_at DESC, id DESC").Limit(limit).Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListInvoiceAuditLogs returns the lifecycle trail of one invoice.
func ListInvoiceAuditLogs(ctx context.Context, invoiceId int) ([]*InvoiceAuditLog, error) {
	if _, err := GetInvoice(ctx, invoiceId); err != nil {
		return nil, err
	}
	db := config.GetDB()
	var logs []*InvoiceAuditLog
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		Order("created_at, id").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
