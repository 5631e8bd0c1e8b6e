package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;uniqueIndex;not null" json:"username" binding:"required"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;not null" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	StoreAccess []UserStoreAccess `gorm:"foreignKey:UserId" json:"store_access,omitempty"`
}

// UserStoreAccess grants a non-admin user scope over one store.
type UserStoreAccess struct {
	ID      int `gorm:"primary_key" json:"id"`
	UserId  int `gorm:"index;not null;uniqueIndex:uq_user_store" json:"user_id"`
	StoreId int `gorm:"index;not null;uniqueIndex:uq_user_store" json:"store_id"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     UserRole `json:"role" binding:"required"`
	StoreIds []int    `json:"store_ids"`
}

func (input *NewUser) validate(ctx context.Context, id int) error {
	if !input.Role.IsValid() {
		return utils.ValidationErrorf("unknown role %q", input.Role)
	}
	if err := utils.ValidateUnique[User](ctx, "username", input.Username, id); err != nil {
		return err
	}
	if len(input.StoreIds) > 0 {
		for _, storeId := range input.StoreIds {
			if err := utils.ValidateResourceId[Store](ctx, storeId); err != nil {
				return utils.ValidationErrorf("store %d not found", storeId)
			}
		}
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Username: input.Username,
		Password: string(hashed),
		Role:     input.Role,
		IsActive: utils.NewTrue(),
	}
	for _, storeId := range input.StoreIds {
		user.StoreAccess = append(user.StoreAccess, UserStoreAccess{StoreId: storeId})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if utils.IsDuplicateEntry(err) {
			return nil, utils.ValidationErrorf("username already exists")
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate checks username/password and returns the user on success.
func Authenticate(ctx context.Context, username, password string) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, utils.ErrorRecordNotFound
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

/* Store scope */

// AccessibleStoreIds resolves the acting user's store scope.
// Admins are unrestricted and get (nil, true).
func AccessibleStoreIds(ctx context.Context) ([]int, bool, error) {
	role, _ := utils.GetUserRoleFromContext(ctx)
	if UserRole(role) == UserRoleAdmin {
		return nil, true, nil
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return []int{}, false, nil
	}

	db := config.GetDB()
	var ids []int
	err := db.WithContext(ctx).Model(&UserStoreAccess{}).
		Where("user_id = ?", userId).
		Pluck("store_id", &ids).Error
	if err != nil {
		return nil, false, err
	}
	return ids, false, nil
}

// EnsureStorePermission fails with ErrPermissionDenied unless the acting
// user's scope covers storeId.
func EnsureStorePermission(ctx context.Context, storeId int) error {
	ids, unrestricted, err := AccessibleStoreIds(ctx)
	if err != nil {
		return err
	}
	if unrestricted {
		return nil
	}
	for _, id := range ids {
		if id == storeId {
			return nil
		}
	}
	return utils.ErrPermissionDenied
}

// EnsureManagementAccess: admin or manager.
func EnsureManagementAccess(ctx context.Context) error {
	role, _ := utils.GetUserRoleFromContext(ctx)
	switch UserRole(role) {
	case UserRoleAdmin, UserRoleManager:
		return nil
	}
	return utils.ErrPermissionDenied
}

// EnsureAdminAccess: invoice revision/void is restricted to admins.
func EnsureAdminAccess(ctx context.Context) error {
	role, _ := utils.GetUserRoleFromContext(ctx)
	if UserRole(role) == UserRoleAdmin {
		return nil
	}
	return utils.ErrPermissionDenied
}

// ScopedStoreCondition applies store-scope filtering to a query on column.
// Unrestricted actors bypass filtering; an empty scope matches nothing.
func ScopedStoreCondition(ctx context.Context, query *gorm.DB, column string) (*gorm.DB, error) {
	ids, unrestricted, err := AccessibleStoreIds(ctx)
	if err != nil {
		return nil, err
	}
	if unrestricted {
		return query, nil
	}
	if len(ids) == 0 {
		return query.Where(column+" IN ?", []int{-1}), nil
	}
	return query.Where(column+" IN ?", ids), nil
}
