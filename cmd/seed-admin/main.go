package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/retailstock_backend/config"
	"bitbucket.org/mmdatafocus/retailstock_backend/models"
)

// Seeds the first admin account and, optionally, a default store. Safe to
// re-run; an existing username is reported, not overwritten.
func main() {
	username := flag.String("username", "admin", "Admin username")
	password := flag.String("password", "", "Admin password (required)")
	storeName := flag.String("store", "", "Optional: also create a store with this name")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: seed-admin -username admin -password <secret>")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	user, err := models.CreateUser(ctx, &models.NewUser{
		Username: *username,
		Password: *password,
		Role:     models.UserRoleAdmin,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("admin user %q created (id=%d)\n", user.Username, user.ID)

	if *storeName != "" {
		store, err := models.CreateStore(ctx, &models.NewStore{Name: *storeName})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create store: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("store %q created (id=%d)\n", store.Name, store.ID)
	}
}
