package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/models"
	"gorm.io/gorm"
)

// Recomputes every inventory balance from the movement log and reports (or
// repairs, with -fix) any row that drifted. The movement log is the source
// of truth.
func main() {
	storeID := flag.Int("store-id", 0, "Optional: rebuild only one store")
	fix := flag.Bool("fix", false, "Write corrected quantities instead of only reporting drift")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	query := db.WithContext(ctx).Model(&models.InventoryRecord{})
	if *storeID != 0 {
		query = query.Where("store_id = ?", *storeID)
	}
	var records []models.InventoryRecord
	if err := query.Find(&records).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list inventory records: %v\n", err)
		os.Exit(1)
	}

	var drifted int
	for _, rec := range records {
		var sum struct{ Total int }
		err := db.WithContext(ctx).Model(&models.InventoryMovement{}).
			Select("COALESCE(SUM(quantity),0) AS total").
			Where("product_id = ? AND store_id = ?", rec.ProductId, rec.StoreId).
			Scan(&sum).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to sum movements for product=%d store=%d: %v\n", rec.ProductId, rec.StoreId, err)
			os.Exit(1)
		}
		if sum.Total == rec.Quantity {
			continue
		}

		drifted++
		fmt.Printf("drift: product=%d store=%d stored=%d ledger=%d\n", rec.ProductId, rec.StoreId, rec.Quantity, sum.Total)
		if !*fix {
			continue
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			return tx.WithContext(ctx).Model(&models.InventoryRecord{}).
				Where("id = ?", rec.ID).
				Update("quantity", sum.Total).Error
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to fix product=%d store=%d: %v\n", rec.ProductId, rec.StoreId, err)
			os.Exit(1)
		}
		fmt.Printf("fixed: product=%d store=%d -> %d\n", rec.ProductId, rec.StoreId, sum.Total)
	}

	if drifted == 0 {
		fmt.Printf("checked %d record(s); no drift\n", len(records))
	} else if *fix {
		fmt.Printf("checked %d record(s); repaired %d\n", len(records), drifted)
	} else {
		fmt.Printf("checked %d record(s); %d drifted (re-run with -fix to repair)\n", len(records), drifted)
	}
}
