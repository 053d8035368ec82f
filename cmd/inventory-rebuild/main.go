// inventory-rebuild recomputes the produced-quantity snapshots from the
// production records. Run it after data surgery or imports, or to verify the
// snapshots still match the records.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/inventory-rebuild
//   go run ./cmd/inventory-rebuild --work-order-id 3 --product-id 7   (single pair)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/factory_backend/config"
	"github.com/mmdatafocus/factory_backend/models"
	"github.com/mmdatafocus/factory_backend/utils"
)

func main() {
	workOrderID := flag.Int("work-order-id", 0, "Optional: limit to one work order (requires --product-id)")
	productID := flag.Int("product-id", 0, "Optional: limit to one product (requires --work-order-id)")
	flag.Parse()

	if (*workOrderID > 0) != (*productID > 0) {
		fmt.Fprintln(os.Stderr, "--work-order-id and --product-id must be given together")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "System")

	if *workOrderID > 0 {
		if err := models.SyncInventory(ctx, *workOrderID, *productID); err != nil {
			fmt.Fprintf(os.Stderr, "rebuild failed for work_order_id=%d product_id=%d: %v\n", *workOrderID, *productID, err)
			os.Exit(1)
		}
		fmt.Printf("Rebuilt 1 snapshot (work_order_id=%d product_id=%d)\n", *workOrderID, *productID)
		return
	}

	n, err := models.RebuildAllInventory(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rebuilt %d snapshots\n", n)
}
