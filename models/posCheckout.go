package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PosCheckoutLine struct {
	ProductId int              `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal  `json:"discount"`
}

// NewPosCheckout is a multi-line sale request. The sale runs against the
// cashier's open session; StoreId, when given, must match the session's
// store. The whole cart commits or nothing does.
type NewPosCheckout struct {
	StoreId       int               `json:"store_id"`
	CustomerId    int               `json:"customer_id"`
	PaymentMethod string            `json:"payment_method" binding:"required"`
	Lines         []PosCheckoutLine `json:"lines" binding:"required,min=1,dive"`
}

var paymentMethods = map[string]bool{
	"cash":   true,
	"card":   true,
	"mobile": true,
}

func (input *NewPosCheckout) validate(ctx context.Context) error {
	if len(input.Lines) == 0 {
		return utils.ValidationErrorf("at least one line is required")
	}
	if !paymentMethods[input.PaymentMethod] {
		return utils.ValidationErrorf("unknown payment method %q", input.PaymentMethod)
	}
	if input.CustomerId != 0 {
		if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
			return utils.ValidationErrorf("customer %d not found", input.CustomerId)
		}
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
			return utils.ValidationErrorf("product %d appears twice in the cart", line.ProductId)
		}
		seen[line.ProductId] = true
		if err := utils.ValidateResourceId[Product](ctx, line.ProductId); err != nil {
			return utils.ValidationErrorf("product %d not found", line.ProductId)
		}
	}
	return nil
}

// checkoutLineTotal applies a per-unit discount: (unit_price - discount) x
// quantity. The discount may not exceed the unit price.
func checkoutLineTotal(productId int, unitPrice, discount decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if discount.GreaterThan(unitPrice) {
		return decimal.Zero, utils.ValidationErrorf("discount exceeds unit price for product %d", productId)
	}
	effective := unitPrice.Sub(discount)
	return effective.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// acquireCheckoutLock takes a short redis lock per store so concurrent
// checkouts against the same store usually serialize before hitting row
// locks. Best effort only; a nil or busy locker falls through.
func acquireCheckoutLock(ctx context.Context, storeId int) *redislock.Lock {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}
	key := fmt.Sprintf("pos:checkout:store:%d", storeId)
	lock, err := locker.Obtain(ctx, key, 10*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
	})
	if err != nil {
		return nil
	}
	return lock
}

// PosCheckout finalizes a sale against the acting user's open session:
// debit every line through the ledger, then write the invoice, its lines,
// and the audit entry, all in one transaction. Any shortage rolls the whole
// cart back.
func PosCheckout(ctx context.Context, input *NewPosCheckout) (*Invoice, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	session, err := CurrentPosSession(ctx)
	if err != nil {
		return nil, utils.ValidationErrorf("no open register session")
	}
	storeId := session.StoreId
	if input.StoreId != 0 && input.StoreId != storeId {
		return nil, utils.ValidationErrorf("store %d does not match the open session", input.StoreId)
	}
	if err := EnsureStorePermission(ctx, storeId); err != nil {
		return nil, err
	}

	// deterministic lock order across concurrent carts
	lines := make([]PosCheckoutLine, len(input.Lines))
	copy(lines, input.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductId < lines[j].ProductId })

	if lock := acquireCheckoutLock(ctx, storeId); lock != nil {
		defer lock.Release(context.Background())
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	var invoice Invoice
	err = db.Transaction(func(tx *gorm.DB) error {

		items := make([]InvoiceItem, 0, len(lines))
		total := decimal.Zero
		for _, line := range lines {
			var product Product
			if txErr := tx.WithContext(ctx).First(&product, line.ProductId).Error; txErr != nil {
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

			_, txErr = AdjustStockTx(tx, ctx, StockAdjustment{
				ProductId: line.ProductId,
				StoreId:   storeId,
				Delta:     -line.Quantity,
				Kind:      MovementKindExit,
				UserId:    userId,
				Notes:     "pos sale",
			})
			if txErr != nil {
				return txErr
			}

			items = append(items, InvoiceItem{
				ProductId: line.ProductId,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
				Discount:  line.Discount,
				LineTotal: lineTotal,
			})
			total = total.Add(lineTotal)
		}

		invoice = Invoice{
			StoreId:       storeId,
			CustomerId:    input.CustomerId,
			CashierId:     userId,
			PosSessionId:  session.ID,
			Total:         total,
			PaymentMethod: input.PaymentMethod,
			Status:        InvoiceStatusPaid,
			Items:         items,
		}
		if txErr := tx.WithContext(ctx).Create(&invoice).Error; txErr != nil {
			return txErr
		}

		invoice.InvoiceNumber = invoiceNumber(invoice.ID, time.Now())
		txErr := tx.WithContext(ctx).Model(&invoice).
			Update("invoice_number", invoice.InvoiceNumber).Error
		if txErr != nil {
			return txErr
		}

		return appendInvoiceAudit(tx, ctx, invoice.ID, InvoiceAuditActionCreate,
			fmt.Sprintf("checkout of %d line(s), total %s", len(items), total.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
