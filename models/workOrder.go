package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/factory_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WorkOrder is the commercial order the plant committed to. Job orders are the
// scheduled slices of it, one per production date, with planned quantities per
// product. Both are written by the planning screens (external to this engine)
// and read-only here.
type WorkOrder struct {
	ID        int       `gorm:"primary_key" json:"id"`
	OrderNo   string    `gorm:"size:100;not null;index" json:"order_no" binding:"required"`
	ClientRef string    `gorm:"size:100" json:"client_ref"`
	PlantRef  string    `gorm:"size:100" json:"plant_ref"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type JobOrder struct {
	ID            int               `gorm:"primary_key" json:"id"`
	WorkOrderId   int               `gorm:"index;not null" json:"work_order_id" binding:"required"`
	JobNo         string            `gorm:"size:100;not null" json:"job_no"`
	ScheduledDate time.Time         `gorm:"not null;index" json:"scheduled_date"`
	Details       []*JobOrderDetail `gorm:"foreignKey:JobOrderId" json:"details"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type JobOrderDetail struct {
	ID              int             `gorm:"primary_key" json:"id"`
	JobOrderId      int             `gorm:"index;not null" json:"job_order_id"`
	ProductId       int             `gorm:"index;not null" json:"product_id"`
	PlannedQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"planned_quantity"`
}

// JobOrderPlan is what the production engine needs to know about a
// (job order, product) pair before it lets an operator start.
type JobOrderPlan struct {
	JobOrderId      int
	WorkOrderId     int
	ProductId       int
	PlannedQuantity decimal.Decimal
	ScheduledDate   time.Time
}

// GetJobOrderPlan resolves the planned quantity and schedule metadata for one
// product of a job order. ErrJobOrderNotFound when the job order is absent;
// ErrProductNotInRecord when the job order exists but has no plan line for the
// product.
func GetJobOrderPlan(ctx context.Context, jobOrderId int, productId int) (*JobOrderPlan, error) {
	db := config.GetDB()
	return getJobOrderPlan(db.WithContext(ctx), jobOrderId, productId)
}

func getJobOrderPlan(tx *gorm.DB, jobOrderId int, productId int) (*JobOrderPlan, error) {
	var jobOrder JobOrder
	if err := tx.Where("id = ?", jobOrderId).First(&jobOrder).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrJobOrderNotFound
		}
		return nil, err
	}
	var detail JobOrderDetail
	if err := tx.Where("job_order_id = ? AND product_id = ?", jobOrderId, productId).First(&detail).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotInRecord
		}
		return nil, err
	}
	return &JobOrderPlan{
		JobOrderId:      jobOrder.ID,
		WorkOrderId:     jobOrder.WorkOrderId,
		ProductId:       productId,
		PlannedQuantity: detail.PlannedQuantity,
		ScheduledDate:   jobOrder.ScheduledDate,
	}, nil
}

// ListJobOrders feeds the production screens: job orders with their plan lines,
// optionally filtered by work order.
func ListJobOrders(ctx context.Context, workOrderId int) ([]*JobOrder, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&JobOrder{}).Preload("Details")
	if workOrderId > 0 {
		dbCtx = dbCtx.Where("work_order_id = ?", workOrderId)
	}
	var jobOrders []*JobOrder
	if err := dbCtx.Order("scheduled_date").Find(&jobOrders).Error; err != nil {
		return nil, err
	}
	return jobOrders, nil
}
