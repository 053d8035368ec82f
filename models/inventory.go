package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/factory_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Inventory is the derived per-(work order, product) produced total. It is
// never incremented in place: every mutation to any production line triggers a
// full recompute over all of the pair's records, which makes the snapshot
// self-healing against missed or out-of-order updates.
type Inventory struct {
	WorkOrderId      int             `gorm:"primaryKey" json:"work_order_id"`
	ProductId        int             `gorm:"primaryKey" json:"product_id"`
	ProducedQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"produced_quantity"`
	UpdatedBy        int             `json:"updated_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func acquireInventorySyncLock(tx *gorm.DB, workOrderId int, productId int) error {
	lockName := fmt.Sprintf("inv_sync:%d:%d", workOrderId, productId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire inventory sync lock for work_order_id=%d product_id=%d", workOrderId, productId)
	}
	return nil
}

func releaseInventorySyncLock(tx *gorm.DB, workOrderId int, productId int) {
	lockName := fmt.Sprintf("inv_sync:%d:%d", workOrderId, productId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// syncInventoryTx recomputes the snapshot inside the caller's transaction.
// An advisory lock serializes concurrent recomputes of the same pair; it is
// released with the connection when the transaction ends either way.
func syncInventoryTx(tx *gorm.DB, workOrderId int, productId int, updatedBy int) error {
	if err := acquireInventorySyncLock(tx, workOrderId, productId); err != nil {
		return err
	}
	defer releaseInventorySyncLock(tx, workOrderId, productId)

	var total decimal.Decimal
	if err := tx.Raw(`
	SELECT COALESCE(SUM(pd.achieved_quantity), 0)
	FROM production_details pd
		JOIN daily_productions dp ON pd.daily_production_id = dp.id
	WHERE dp.work_order_id = ? AND pd.product_id = ?
`, workOrderId, productId).Scan(&total).Error; err != nil {
		return err
	}

	var snapshot Inventory
	err := tx.Where("work_order_id = ? AND product_id = ?", workOrderId, productId).First(&snapshot).Error
	if err == gorm.ErrRecordNotFound {
		snapshot = Inventory{
			WorkOrderId:      workOrderId,
			ProductId:        productId,
			ProducedQuantity: total,
			UpdatedBy:        updatedBy,
		}
		return tx.Create(&snapshot).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&Inventory{}).
		Where("work_order_id = ? AND product_id = ?", workOrderId, productId).
		Updates(map[string]interface{}{
			"produced_quantity": total,
			"updated_by":        updatedBy,
		}).Error
}

// SyncInventory is the standalone entry point (ops tooling, tests).
func SyncInventory(ctx context.Context, workOrderId int, productId int) error {
	actorId, _ := actorFromContext(ctx)
	db := config.GetDB()
	tx := db.Begin()
	defer tx.Rollback()
	if err := syncInventoryTx(tx.WithContext(ctx), workOrderId, productId, actorId); err != nil {
		return err
	}
	return tx.Commit().Error
}

// RebuildAllInventory recomputes every snapshot from scratch. Used by
// cmd/inventory-rebuild after data surgery or imports.
func RebuildAllInventory(ctx context.Context) (int, error) {
	db := config.GetDB()

	type pair struct {
		WorkOrderId int
		ProductId   int
	}
	var pairs []pair
	if err := db.WithContext(ctx).Raw(`
	SELECT DISTINCT dp.work_order_id, pd.product_id
	FROM production_details pd
		JOIN daily_productions dp ON pd.daily_production_id = dp.id
`).Scan(&pairs).Error; err != nil {
		return 0, err
	}

	for _, p := range pairs {
		if err := SyncInventory(ctx, p.WorkOrderId, p.ProductId); err != nil {
			return 0, err
		}
	}
	return len(pairs), nil
}

// InventoryRow is the read model for the inventory screen: produced against
// the work order's total plan.
type InventoryRow struct {
	WorkOrderId      int             `json:"work_order_id"`
	ProductId        int             `json:"product_id"`
	ProductName      string          `json:"product_name"`
	ProducedQuantity decimal.Decimal `json:"produced_quantity"`
	PoQuantity       decimal.Decimal `json:"po_quantity"`
	BalanceQuantity  decimal.Decimal `json:"balance_quantity"`
}

// GetInventoryView lists, per product of a work order, produced vs planned.
// poQuantity is the plan total across the work order's job orders; balance is
// what is still owed.
func GetInventoryView(ctx context.Context, workOrderId int) ([]*InventoryRow, error) {
	db := config.GetDB()

	var rows []*InventoryRow
	if err := db.WithContext(ctx).Raw(`
	SELECT
		jo.work_order_id AS work_order_id,
		jod.product_id AS product_id,
		COALESCE(p.name, '') AS product_name,
		COALESCE(inv.produced_quantity, 0) AS produced_quantity,
		COALESCE(SUM(jod.planned_quantity), 0) AS po_quantity
	FROM job_order_details jod
		JOIN job_orders jo ON jod.job_order_id = jo.id
		LEFT JOIN products p ON p.id = jod.product_id
		LEFT JOIN inventories inv ON inv.work_order_id = jo.work_order_id AND inv.product_id = jod.product_id
	WHERE jo.work_order_id = ?
	GROUP BY jo.work_order_id, jod.product_id, p.name, inv.produced_quantity
`, workOrderId).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		r.BalanceQuantity = r.PoQuantity.Sub(r.ProducedQuantity)
	}
	return rows, nil
}
