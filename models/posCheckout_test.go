package models_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/shopspring/decimal"
)

func TestCheckoutComputesLineTotals(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	coffee := mustCreateProduct(t, ctx, "SKU-COFFEE", 10)
	tea := mustCreateProduct(t, ctx, "SKU-TEA", 5)

	mustStock(t, ctx, coffee.ID, store.ID, 50, 5)
	mustStock(t, ctx, tea.ID, store.ID, 50, 5)
	mustOpenSession(t, ctx, store.ID)

	invoice, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "cash",
		Lines: []models.PosCheckoutLine{
			{ProductId: coffee.ID, Quantity: 2, Discount: decimal.NewFromInt(1)},
			{ProductId: tea.ID, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if len(invoice.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(invoice.Items))
	}
	byProduct := map[int]decimal.Decimal{}
	for _, item := range invoice.Items {
		byProduct[item.ProductId] = item.LineTotal
	}
	// (10.00 - 1.00) x 2 = 18.00, the discount applies per unit
	if !byProduct[coffee.ID].Equal(decimal.NewFromInt(18)) {
		t.Fatalf("expected coffee line total 18, got %s", byProduct[coffee.ID])
	}
	// 5.00 x 3 = 15.00
	if !byProduct[tea.ID].Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected tea line total 15, got %s", byProduct[tea.ID])
	}
	if !invoice.Total.Equal(decimal.NewFromInt(33)) {
		t.Fatalf("expected total 33, got %s", invoice.Total)
	}
	if invoice.Status != models.InvoiceStatusPaid {
		t.Fatalf("expected paid invoice, got %s", invoice.Status)
	}
	if invoice.InvoiceNumber == "" {
		t.Fatal("invoice number not assigned")
	}

	if qty := currentQuantity(t, ctx, coffee.ID, store.ID); qty != 48 {
		t.Fatalf("expected coffee stock 48, got %d", qty)
	}
	if qty := currentQuantity(t, ctx, tea.ID, store.ID); qty != 47 {
		t.Fatalf("expected tea stock 47, got %d", qty)
	}
}

func TestCheckoutDiscountAboveUnitPriceRejected(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	product := mustCreateProduct(t, ctx, "SKU-001", 10)
	mustStock(t, ctx, product.ID, store.ID, 10, 2)
	mustOpenSession(t, ctx, store.ID)

	_, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "cash",
		Lines: []models.PosCheckoutLine{
			{ProductId: product.ID, Quantity: 2, Discount: decimal.NewFromInt(11)},
		},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if qty := currentQuantity(t, ctx, product.ID, store.ID); qty != 10 {
		t.Fatalf("expected stock untouched at 10, got %d", qty)
	}
}

func TestCheckoutRequiresOpenSession(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	product := mustCreateProduct(t, ctx, "SKU-001", 10)
	mustStock(t, ctx, product.ID, store.ID, 10, 2)

	_, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		StoreId:       store.ID,
		PaymentMethod: "cash",
		Lines:         []models.PosCheckoutLine{{ProductId: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error without a session, got %v", err)
	}
	if qty := currentQuantity(t, ctx, product.ID, store.ID); qty != 10 {
		t.Fatalf("expected stock untouched at 10, got %d", qty)
	}
}

func TestCheckoutStoreMustMatchSession(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	main := mustCreateStore(t, ctx, "Main")
	branch := mustCreateStore(t, ctx, "Branch")
	product := mustCreateProduct(t, ctx, "SKU-001", 10)
	mustStock(t, ctx, product.ID, main.ID, 10, 2)
	mustStock(t, ctx, product.ID, branch.ID, 10, 2)
	mustOpenSession(t, ctx, main.ID)

	_, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		StoreId:       branch.ID,
		PaymentMethod: "cash",
		Lines:         []models.PosCheckoutLine{{ProductId: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error for mismatched store, got %v", err)
	}

	// omitting store_id sells at the session's store
	invoice, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "cash",
		Lines:         []models.PosCheckoutLine{{ProductId: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if invoice.StoreId != main.ID {
		t.Fatalf("expected sale at store %d, got %d", main.ID, invoice.StoreId)
	}
	if qty := currentQuantity(t, ctx, product.ID, branch.ID); qty != 10 {
		t.Fatalf("expected branch stock untouched at 10, got %d", qty)
	}
}

func TestCheckoutShortageRollsBackWholeCart(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	plenty := mustCreateProduct(t, ctx, "SKU-PLENTY", 10)
	scarce := mustCreateProduct(t, ctx, "SKU-SCARCE", 10)

	mustStock(t, ctx, plenty.ID, store.ID, 50, 5)
	mustStock(t, ctx, scarce.ID, store.ID, 1, 0)
	mustOpenSession(t, ctx, store.ID)

	_, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "cash",
		Lines: []models.PosCheckoutLine{
			{ProductId: plenty.ID, Quantity: 2},
			{ProductId: scarce.ID, Quantity: 3},
		},
	})
	if !errors.Is(err, utils.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// the in-stock line must not have been debited either
	if qty := currentQuantity(t, ctx, plenty.ID, store.ID); qty != 50 {
		t.Fatalf("expected plenty stock 50 after rollback, got %d", qty)
	}
	if qty := currentQuantity(t, ctx, scarce.ID, store.ID); qty != 1 {
		t.Fatalf("expected scarce stock 1 after rollback, got %d", qty)
	}

	db := configDB(t)
	var invoiceCount int64
	if err := db.Model(&models.Invoice{}).Count(&invoiceCount).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if invoiceCount != 0 {
		t.Fatalf("expected no invoice after failed checkout, got %d", invoiceCount)
	}
}

func TestSequentialOversellSecondCheckoutFails(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	product := mustCreateProduct(t, ctx, "SKU-001", 10)

	mustStock(t, ctx, product.ID, store.ID, 10, 2)
	mustOpenSession(t, ctx, store.ID)

	_, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "cash",
		Lines:         []models.PosCheckoutLine{{ProductId: product.ID, Quantity: 7}},
	})
	if err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}

	_, err = models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "cash",
		Lines:         []models.PosCheckoutLine{{ProductId: product.ID, Quantity: 7}},
	})
	if !errors.Is(err, utils.ErrInsufficientStock) {
		t.Fatalf("expected second checkout to fail, got %v", err)
	}

	if qty := currentQuantity(t, ctx, product.ID, store.ID); qty != 3 {
		t.Fatalf("expected 3 left, got %d", qty)
	}
}

func TestConcurrentCheckoutsCannotOversell(t *testing.T) {
	setupTestDB(t)
	adminA := ctxWithUser(1, models.UserRoleAdmin)
	adminB := ctxWithUser(2, models.UserRoleAdmin)
	store := mustCreateStore(t, adminA, "Main")
	product := mustCreateProduct(t, adminA, "SKU-001", 10)

	mustStock(t, adminA, product.ID, store.ID, 10, 2)
	mustOpenSession(t, adminA, store.ID)
	mustOpenSession(t, adminB, store.ID)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, cashier := range []context.Context{adminA, adminB} {
		wg.Add(1)
		go func(ctx context.Context) {
			defer wg.Done()
			_, err := models.PosCheckout(ctx, &models.NewPosCheckout{
				PaymentMethod: "cash",
				Lines:         []models.PosCheckoutLine{{ProductId: product.ID, Quantity: 7}},
			})
			errs <- err
		}(cashier)
	}
	wg.Wait()
	close(errs)

	var failures, successes int
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		if !errors.Is(err, utils.ErrInsufficientStock) {
			t.Fatalf("unexpected checkout error: %v", err)
		}
		failures++
	}
	if successes != 1 || failures != 1 {
		t.Fatalf("expected exactly one success and one shortage, got %d/%d", successes, failures)
	}
	if qty := currentQuantity(t, adminA, product.ID, store.ID); qty != 3 {
		t.Fatalf("expected 3 left, got %d", qty)
	}
	if sum := movementSum(t, adminA, product.ID, store.ID); sum != 3 {
		t.Fatalf("ledger out of step with balance: movements sum to %d", sum)
	}
}

func TestCheckoutRejectsDuplicateProductLines(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	product := mustCreateProduct(t, ctx, "SKU-001", 10)
	mustStock(t, ctx, product.ID, store.ID, 10, 2)
	mustOpenSession(t, ctx, store.ID)

	_, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "cash",
		Lines: []models.PosCheckoutLine{
			{ProductId: product.ID, Quantity: 1},
			{ProductId: product.ID, Quantity: 2},
		},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutUnknownPaymentMethodRejected(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	product := mustCreateProduct(t, ctx, "SKU-001", 10)
	mustStock(t, ctx, product.ID, store.ID, 10, 2)
	mustOpenSession(t, ctx, store.ID)

	_, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "barter",
		Lines:         []models.PosCheckoutLine{{ProductId: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutWritesAuditLog(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	product := mustCreateProduct(t, ctx, "SKU-001", 10)
	mustStock(t, ctx, product.ID, store.ID, 10, 2)
	mustOpenSession(t, ctx, store.ID)

	invoice, err := models.PosCheckout(ctx, &models.NewPosCheckout{
		PaymentMethod: "card",
		Lines:         []models.PosCheckoutLine{{ProductId: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	logs, err := models.ListInvoiceAuditLogs(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("list logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != models.InvoiceAuditActionCreate {
		t.Fatalf("expected a single create audit entry, got %+v", logs)
	}
}
