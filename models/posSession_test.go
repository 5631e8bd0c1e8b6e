package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/shopspring/decimal"
)

func TestOnlyOneOpenSessionPerUser(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")

	first, err := models.OpenPosSession(ctx, &models.NewPosSession{StoreId: store.ID})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	_, err = models.OpenPosSession(ctx, &models.NewPosSession{StoreId: store.ID})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error on second open, got %v", err)
	}

	current, err := models.CurrentPosSession(ctx)
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if current.ID != first.ID {
		t.Fatalf("expected session %d, got %d", first.ID, current.ID)
	}
}

func TestCloseSessionTotalsNonVoidInvoices(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()
	store := mustCreateStore(t, ctx, "Main")
	product := mustCreateProduct(t, ctx, "SKU-001", 10)
	mustStock(t, ctx, product.ID, store.ID, 50, 2)

	if _, err := models.OpenPosSession(ctx, &models.NewPosSession{StoreId: store.ID}); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	keep := checkoutOne(t, ctx, store.ID, product.ID, 3)  // 30
	void := checkoutOne(t, ctx, store.ID, product.ID, 2)  // 20, voided below
	other := checkoutOne(t, ctx, store.ID, product.ID, 1) // 10

	if _, err := models.VoidInvoice(ctx, void.ID, "mistake"); err != nil {
		t.Fatalf("void failed: %v", err)
	}

	session, err := models.ClosePosSession(ctx)
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if session.Status != models.PosSessionStatusClosed {
		t.Fatalf("expected closed, got %s", session.Status)
	}
	expected := keep.Total.Add(other.Total)
	if !session.ClosingTotal.Equal(expected) {
		t.Fatalf("expected closing total %s, got %s", expected, session.ClosingTotal)
	}
	if !session.ClosingTotal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected 40, got %s", session.ClosingTotal)
	}

	// a fresh session can open afterwards
	if _, err := models.OpenPosSession(ctx, &models.NewPosSession{StoreId: store.ID}); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
}

func TestCloseWithoutOpenSessionFails(t *testing.T) {
	setupTestDB(t)
	ctx := adminCtx()

	_, err := models.ClosePosSession(ctx)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}
