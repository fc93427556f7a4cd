// check_db loads the API environment, connects to its database and reports the
// migration version and how many restaurants are seeded.
//
//	go run ./scripts/check_db.go
package main

import (
	"context"
	"fmt"
	"os"

	"foodkart/internal/config"

	"github.com/jackc/pgx/v5"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	var dbName string
	if err := conn.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	var version int64
	var dirty bool
	err = conn.QueryRow(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		fmt.Printf("No migrations applied yet (%v). Start the API once to migrate.\n", err)
		return
	}
	fmt.Printf("Migration version: %d (dirty: %t)\n", version, dirty)

	var restaurants, items int
	if err := conn.QueryRow(ctx,
		"SELECT (SELECT COUNT(*) FROM restaurants), (SELECT COUNT(*) FROM menu_items)",
	).Scan(&restaurants, &items); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Restaurants: %d, menu items: %d\n", restaurants, items)
}
