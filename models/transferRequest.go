package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"gorm.io/gorm"
)

// TransferRequest moves stock between stores through a two-step approval:
// pending -> approved (stock leaves the source) -> completed (stock arrives
// at the destination). A pending request may instead be rejected. Stock is
// conserved: transfer_out at approval, transfer_in at confirmation, equal
// magnitudes.
type TransferRequest struct {
	ID          int            `gorm:"primary_key" json:"id"`
	ProductId   int            `gorm:"index;not null" json:"product_id"`
	FromStoreId int            `gorm:"index;not null" json:"from_store_id"`
	ToStoreId   int            `gorm:"index;not null" json:"to_store_id"`
	Quantity    int            `gorm:"not null" json:"quantity"`
	Status      TransferStatus `gorm:"size:20;not null;default:pending" json:"status"`
	RequestedBy int            `gorm:"index" json:"requested_by"`
	ApprovedBy  int            `json:"approved_by"`
	CompletedBy int            `json:"completed_by"`
	Notes       string         `gorm:"size:255" json:"notes"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Product   *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	FromStore *Store   `gorm:"foreignKey:FromStoreId" json:"from_store,omitempty"`
	ToStore   *Store   `gorm:"foreignKey:ToStoreId" json:"to_store,omitempty"`
}

type NewTransferRequest struct {
	ProductId   int    `json:"product_id" binding:"required"`
	FromStoreId int    `json:"from_store_id" binding:"required"`
	ToStoreId   int    `json:"to_store_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	Notes       string `json:"notes"`
}

func (input *NewTransferRequest) validate(ctx context.Context) error {
	if input.Quantity <= 0 {
		return utils.ValidationErrorf("quantity must be positive")
	}
	if input.FromStoreId == input.ToStoreId {
		return utils.ValidationErrorf("source and destination stores must differ")
	}
	if err := utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		return utils.ValidationErrorf("product %d not found", input.ProductId)
	}
	if err := utils.ValidateResourceId[Store](ctx, input.FromStoreId); err != nil {
		return utils.ValidationErrorf("store %d not found", input.FromStoreId)
	}
	if err := utils.ValidateResourceId[Store](ctx, input.ToStoreId); err != nil {
		return utils.ValidationErrorf("store %d not found", input.ToStoreId)
	}
	return nil
}

// CreateTransferRequest opens a pending request. No stock moves yet; the
// source balance is not reserved, availability is checked at approval.
func CreateTransferRequest(ctx context.Context, input *NewTransferRequest) (*TransferRequest, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	if err := EnsureStorePermission(ctx, input.FromStoreId); err != nil {
		return nil, err
	}
	if err := EnsureStorePermission(ctx, input.ToStoreId); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	transfer := TransferRequest{
		ProductId:   input.ProductId,
		FromStoreId: input.FromStoreId,
		ToStoreId:   input.ToStoreId,
		Quantity:    input.Quantity,
		Status:      TransferStatusPending,
		RequestedBy: userId,
		Notes:       input.Notes,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&transfer).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

// fetchTransferForUpdate locks the request row so concurrent transitions
// serialize on it.
func fetchTransferForUpdate(tx *gorm.DB, ctx context.Context, id int) (*TransferRequest, error) {
	var transfer TransferRequest
	err := lockForUpdate(tx.WithContext(ctx)).First(&transfer, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &transfer, nil
}

func transitionError(from TransferStatus, action string) error {
	return fmt.Errorf("%w: cannot %s a %s transfer", utils.ErrInvalidTransition, action, from)
}

// ApproveTransfer moves pending -> approved and debits the source store.
// On insufficient stock the whole transaction rolls back and the request
// stays pending.
func ApproveTransfer(ctx context.Context, id int) (*TransferRequest, error) {

	if err := EnsureManagementAccess(ctx); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	var transfer *TransferRequest
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		transfer, txErr = fetchTransferForUpdate(tx, ctx, id)
		if txErr != nil {
			return txErr
		}
		if txErr = EnsureStorePermission(ctx, transfer.FromStoreId); txErr != nil {
			return txErr
		}
		if transfer.Status != TransferStatusPending {
			return transitionError(transfer.Status, "approve")
		}

		_, txErr = AdjustStockTx(tx, ctx, StockAdjustment{
			ProductId: transfer.ProductId,
			StoreId:   transfer.FromStoreId,
			Delta:     -transfer.Quantity,
			Kind:      MovementKindTransferOut,
			UserId:    userId,
			Notes:     fmt.Sprintf("transfer #%d to store %d", transfer.ID, transfer.ToStoreId),
		})
		if txErr != nil {
			return txErr
		}

		return tx.WithContext(ctx).Model(transfer).Updates(map[string]interface{}{
			"Status":     TransferStatusApproved,
			"ApprovedBy": userId,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	transfer.Status = TransferStatusApproved
	transfer.ApprovedBy = userId
	return transfer, nil
}

// ConfirmTransfer moves approved -> completed and credits the destination.
func ConfirmTransfer(ctx context.Context, id int) (*TransferRequest, error) {

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	var transfer *TransferRequest
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		transfer, txErr = fetchTransferForUpdate(tx, ctx, id)
		if txErr != nil {
			return txErr
		}
		if txErr = EnsureStorePermission(ctx, transfer.ToStoreId); txErr != nil {
			return txErr
		}
		if transfer.Status != TransferStatusApproved {
			return transitionError(transfer.Status, "confirm")
		}

		_, txErr = AdjustStockTx(tx, ctx, StockAdjustment{
			ProductId: transfer.ProductId,
			StoreId:   transfer.ToStoreId,
			Delta:     transfer.Quantity,
			Kind:      MovementKindTransferIn,
			UserId:    userId,
			Notes:     fmt.Sprintf("transfer #%d from store %d", transfer.ID, transfer.FromStoreId),
		})
		if txErr != nil {
			return txErr
		}

		return tx.WithContext(ctx).Model(transfer).Updates(map[string]interface{}{
			"Status":      TransferStatusCompleted,
			"CompletedBy": userId,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	transfer.Status = TransferStatusCompleted
	transfer.CompletedBy = userId
	return transfer, nil
}

// RejectTransfer closes a pending request without moving stock.
func RejectTransfer(ctx context.Context, id int, reason string) (*TransferRequest, error) {

	if err := EnsureManagementAccess(ctx); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	var transfer *TransferRequest
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		transfer, txErr = fetchTransferForUpdate(tx, ctx, id)
		if txErr != nil {
			return txErr
		}
		if txErr = EnsureStorePermission(ctx, transfer.FromStoreId); txErr != nil {
			return txErr
		}
		if transfer.Status != TransferStatusPending {
			return transitionError(transfer.Status, "reject")
		}

		updates := map[string]interface{}{
			"Status":     TransferStatusRejected,
			"ApprovedBy": userId,
		}
		if reason != "" {
			updates["Notes"] = reason
		}
		return tx.WithContext(ctx).Model(transfer).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	transfer.Status = TransferStatusRejected
	return transfer, nil
}

// ListTransfers returns requests touching the actor's stores, newest first.
func ListTransfers(ctx context.Context, status TransferStatus) ([]*TransferRequest, error) {

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&TransferRequest{}).
		Preload("Product").Preload("FromStore").Preload("ToStore")

	ids, unrestricted, err := AccessibleStoreIds(ctx)
	if err != nil {
		return nil, err
	}
	if !unrestricted {
		if len(ids) == 0 {
			ids = []int{-1}
		}
		query = query.Where("from_store_id IN ? OR to_store_id IN ?", ids, ids)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var transfers []*TransferRequest
	err = query.Order("created_at DESC, id DESC").Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func GetTransfer(ctx context.Context, id int) (*TransferRequest, error) {
	return utils.FetchModel[TransferRequest](ctx, id, "Product", "FromStore", "ToStore")
}
