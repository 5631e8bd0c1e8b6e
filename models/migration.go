package models

import "bitbucket.org/mmdatafocus/retailstock_backend/config"

func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&User{},
		&UserStoreAccess{},
		&Store{},
		&Category{},
		&Product{},
		&Customer{},
		&InventoryRecord{},
		&InventoryMovement{},
		&StockAlert{},
		&TransferRequest{},
		&PosSession{},
		&Invoice{},
		&InvoiceItem{},
		&InvoiceAuditLog{},
	)
}
