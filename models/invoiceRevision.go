package models

import (
	"context"
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RevisedInvoiceLine struct {
	ProductId int              `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal  `json:"discount"`
}

// NewInvoiceRevision replaces an invoice's line set wholesale. Stock moves
// only by the net per-product difference between old and new lines.
type NewInvoiceRevision struct {
	Lines  []RevisedInvoiceLine `json:"lines" binding:"required,min=1,dive"`
	Reason string               `json:"reason"`
}

func (input *NewInvoiceRevision) validate(ctx context.Context) error {
	if len(input.Lines) == 0 {
		return utils.ValidationErrorf("at least one line is required")
	}
	seen := make(map[int]bool, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return utils.ValidationErrorf("line quantity must be positive")
		}
		if line.Discount.IsNegative() {
			return utils.ValidationErrorf("line discount must not be negative")
		}
		if seen[line.ProductId] {
			return utils.ValidationErrorf("product %d appears twice", line.ProductId)
		}
		seen[line.ProductId] = true
		if err := utils.ValidateResourceId[Product](ctx, line.ProductId); err != nil {
			return utils.ValidationErrorf("product %d not found", line.ProductId)
		}
	}
	return nil
}

func fetchInvoiceForUpdate(tx *gorm.DB, ctx context.Context, id int) (*Invoice, error) {
	var invoice Invoice
	err := lockForUpdate(tx.WithContext(ctx)).First(&invoice, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &invoice, nil
}

// UpdateInvoiceItems revises a paid invoice. Quantity increases debit stock
// and fail on shortage, rolling everything back; decreases credit the
// difference back; unchanged quantities leave the ledger untouched.
func UpdateInvoiceItems(ctx context.Context, id int, input *NewInvoiceRevision) (*Invoice, error) {

	if err := EnsureAdminAccess(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	var invoice *Invoice
	err := db.Transaction(func(tx *gorm.DB) error {

		var txErr error
		invoice, txErr = fetchInvoiceForUpdate(tx, ctx, id)
		if txErr != nil {
			return txErr
		}
		if invoice.Status != InvoiceStatusPaid {
			return fmt.Errorf("%w: cannot revise a %s invoice", utils.ErrInvalidTransition, invoice.Status)
		}

		var oldItems []InvoiceItem
		if txErr = tx.WithContext(ctx).Where("invoice_id = ?", id).Find(&oldItems).Error; txErr != nil {
			return txErr
		}

		// net per-product change: positive means more sold now
		deltas := make(map[int]int)
		for _, item := range oldItems {
			deltas[item.ProductId] -= item.Quantity
		}
		for _, line := range input.Lines {
			deltas[line.ProductId] += line.Quantity
		}

		productIds := make([]int, 0, len(deltas))
		for productId := range deltas {
			productIds = append(productIds, productId)
		}
		sort.Ints(productIds)

		for _, productId := range productIds {
			delta := deltas[productId]
			if delta == 0 {
				continue
			}
			adjustment := StockAdjustment{
				ProductId: productId,
				StoreId:   invoice.StoreId,
				UserId:    userId,
				Notes:     fmt.Sprintf("revision of invoice %s", invoice.InvoiceNumber),
			}
			if delta > 0 {
				adjustment.Delta = -delta
				adjustment.Kind = MovementKindExit
			} else {
				adjustment.Delta = -delta // positive
				adjustment.Kind = MovementKindEntry
			}
			if _, txErr = AdjustStockTx(tx, ctx, adjustment); txErr != nil {
				return txErr
			}
		}

		if txErr = tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&InvoiceItem{}).Error; txErr != nil {
			return txErr
		}

		total := decimal.Zero
		items := make([]InvoiceItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			var product Product
			if txErr = tx.WithContext(ctx).First(&product, line.ProductId).Error; txErr != nil {
				return utils.ErrorRecordNotFound
			}
			unitPrice := product.UnitPrice
			if line.UnitPrice != nil {
				unitPrice = *line.UnitPrice
			}
			lineTotal, txErr := checkoutLineTotal(line.ProductId, unitPrice, line.Discount, line.Quantity)
			if txErr != nil {
				return txErr
			}
			items = append(items, InvoiceItem{
				InvoiceId: id,
				ProductId: line.ProductId,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
				Discount:  line.Discount,
				LineTotal: lineTotal,
			})
			total = total.Add(lineTotal)
		}
		if txErr = tx.WithContext(ctx).Create(&items).Error; txErr != nil {
			return txErr
		}

		txErr = tx.WithContext(ctx).Model(invoice).Update("total", total).Error
		if txErr != nil {
			return txErr
		}
		invoice.Total = total
		invoice.Items = items

		detail := fmt.Sprintf("revised to %d line(s), total %s", len(items), total.StringFixed(2))
		if input.Reason != "" {
			detail += ": " + input.Reason
		}
		return appendInvoiceAudit(tx, ctx, id, InvoiceAuditActionUpdate, detail)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// VoidInvoice cancels a paid invoice and returns every line's quantity to
// stock. Voiding twice fails.
func VoidInvoice(ctx context.Context, id int, reason string) (*Invoice, error) {

	if err := EnsureAdminAccess(ctx); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	var invoice *Invoice
	err := db.Transaction(func(tx *gorm.DB) error {

		var txErr error
		invoice, txErr = fetchInvoiceForUpdate(tx, ctx, id)
		if txErr != nil {
			return txErr
		}
		if invoice.Status != InvoiceStatusPaid {
			return fmt.Errorf("%w: cannot void a %s invoice", utils.ErrInvalidTransition, invoice.Status)
		}

		var items []InvoiceItem
		if txErr = tx.WithContext(ctx).Where("invoice_id = ?", id).
			Order("product_id").Find(&items).Error; txErr != nil {
			return txErr
		}

		for _, item := range items {
			_, txErr = AdjustStockTx(tx, ctx, StockAdjustment{
				ProductId: item.ProductId,
				StoreId:   invoice.StoreId,
				Delta:     item.Quantity,
				Kind:      MovementKindEntry,
				UserId:    userId,
				Notes:     fmt.Sprintf("void of invoice %s", invoice.InvoiceNumber),
			})
			if txErr != nil {
				return txErr
			}
		}

		txErr = tx.WithContext(ctx).Model(invoice).
			Update("status", InvoiceStatusVoid).Error
		if txErr != nil {
			return txErr
		}
		invoice.Status = InvoiceStatusVoid

		detail := "voided"
		if reason != "" {
			detail += ": " + reason
		}
		return appendInvoiceAudit(tx, ctx, id, InvoiceAuditActionVoid, detail)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}
