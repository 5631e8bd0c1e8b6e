package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PosSession is one cashier's till period at a store. A user holds at most
// one open session at a time; checkouts run against it and refuse to run
// without one.
type PosSession struct {
	ID           int              `gorm:"primary_key" json:"id"`
	UserId       int              `gorm:"index;not null" json:"user_id"`
	StoreId      int              `gorm:"index;not null" json:"store_id"`
	Status       PosSessionStatus `gorm:"size:20;not null;default:open" json:"status"`
	OpeningFloat decimal.Decimal  `gorm:"type:decimal(12,2)" json:"opening_float"`
	ClosingTotal decimal.Decimal  `gorm:"type:decimal(12,2)" json:"closing_total"`
	OpenedAt     time.Time        `gorm:"autoCreateTime" json:"opened_at"`
	ClosedAt     *time.Time       `json:"closed_at"`

	Store *Store `gorm:"foreignKey:StoreId" json:"store,omitempty"`
}

type NewPosSession struct {
	StoreId      int             `json:"store_id" binding:"required"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

// OpenPosSession opens a till for the acting user. A second open attempt
// while one exists is rejected.
func OpenPosSession(ctx context.Context, input *NewPosSession) (*PosSession, error) {

	if err := utils.ValidateResourceId[Store](ctx, input.StoreId); err != nil {
		return nil, utils.ValidationErrorf("store %d not found", input.StoreId)
	}
	if err := EnsureStorePermission(ctx, input.StoreId); err != nil {
		return nil, err
	}
	if input.OpeningFloat.IsNegative() {
		return nil, utils.ValidationErrorf("opening float must not be negative")
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	var session PosSession
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		txErr := tx.WithContext(ctx).Model(&PosSession{}).
			Where("user_id = ? AND status = ?", userId, PosSessionStatusOpen).
			Count(&count).Error
		if txErr != nil {
			return txErr
		}
		if count > 0 {
			return utils.ValidationErrorf("an open session already exists")
		}
		session = PosSession{
			UserId:       userId,
			StoreId:      input.StoreId,
			Status:       PosSessionStatusOpen,
			OpeningFloat: input.OpeningFloat,
		}
		return tx.WithContext(ctx).Create(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CurrentPosSession returns the acting user's open session, if any.
func CurrentPosSession(ctx context.Context) (*PosSession, error) {
	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	var session PosSession
	err := db.WithContext(ctx).Preload("Store").
		Where("user_id = ? AND status = ?", userId, PosSessionStatusOpen).
		First(&session).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &session, nil
}

// ClosePosSession closes the user's open session, recording the sales total
// of invoices raised during it.
func ClosePosSession(ctx context.Context) (*PosSession, error) {

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	var session PosSession
	err := db.Transaction(func(tx *gorm.DB) error {
		txErr := lockForUpdate(tx.WithContext(ctx)).
			Where("user_id = ? AND status = ?", userId, PosSessionStatusOpen).
			First(&session).Error
		if txErr != nil {
			return utils.ErrorRecordNotFound
		}

		var total decimal.NullDecimal
		txErr = tx.WithContext(ctx).Model(&Invoice{}).
			Select("SUM(total)").
			Where("pos_session_id = ? AND status != ?", session.ID, InvoiceStatusVoid).
			Scan(&total).Error
		if txErr != nil {
			return txErr
		}

		now := time.Now().UTC()
		closingTotal := decimal.Zero
		if total.Valid {
			closingTotal = total.Decimal
		}
		txErr = tx.WithContext(ctx).Model(&session).Updates(map[string]interface{}{
			"Status":       PosSessionStatusClosed,
			"ClosingTotal": closingTotal,
			"ClosedAt":     &now,
		}).Error
		if txErr != nil {
			return txErr
		}
		session.Status = PosSessionStatusClosed
		session.ClosingTotal = closingTotal
		session.ClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}
