package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/utils"
)

type Store struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Location  string    `gorm:"size:200" json:"location"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewStore) validate(ctx context.Context, id int) error {
	return utils.ValidateUnique[Store](ctx, "name", input.Name, id)
}

func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	store := Store{
		Name:     input.Name,
		Location: input.Location,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func UpdateStore(ctx context.Context, id int, input *NewStore) (*Store, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	store, err := utils.FetchModel[Store](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(store).Updates(map[string]interface{}{
		"Name":     input.Name,
		"Location": input.Location,
	}).Error
	if err != nil {
		return nil, err
	}
	return store, nil
}

func GetStore(ctx context.Context, id int) (*Store, error) {
	return utils.FetchModel[Store](ctx, id)
}
