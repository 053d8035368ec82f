package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/factory_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QCCheck is the immutable-ish audit row for one correction. Its quantities are
// deltas against the production line, so an edit must roll the old deltas back
// before applying the new ones.
type QCCheck struct {
	ID                int             `gorm:"primary_key" json:"id"`
	DailyProductionId int             `gorm:"index;not null" json:"daily_production_id"`
	ProductId         int             `gorm:"index;not null" json:"product_id"`
	RejectedQuantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rejected_quantity"`
	RecycledQuantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"recycled_quantity"`
	Remarks           string          `gorm:"type:text" json:"remarks"`
	CreatedBy         int             `json:"created_by"`
	UpdatedBy         int             `json:"updated_by"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewQCCheck struct {
	ProductionId     int             `json:"production_id" binding:"required"`
	JobOrderId       int             `json:"job_order_id"`
	ProductId        int             `json:"product_id" binding:"required"`
	RejectedQuantity decimal.Decimal `json:"rejected_quantity"`
	RecycledQuantity decimal.Decimal `json:"recycled_quantity"`
	Remarks          string          `json:"remarks"`
}

type QCCheckUpdate struct {
	QCCheckId        int             `json:"qc_check_id" binding:"required"`
	RejectedQuantity decimal.Decimal `json:"rejected_quantity"`
	RecycledQuantity decimal.Decimal `json:"recycled_quantity"`
	Remarks          string          `json:"remarks"`
}

func validateQCQuantities(rejected, recycled decimal.Decimal) error {
	if rejected.IsNegative() || recycled.IsNegative() {
		return &ProductionError{CodeInvariantViolation, "rejected and recycled quantities must not be negative"}
	}
	if recycled.GreaterThan(rejected) {
		return &ProductionError{CodeInvariantViolation, "recycled quantity must not exceed rejected quantity"}
	}
	return nil
}

// applyQCDeltas moves a correction onto the line:
// rejected += rd, recycled += rc, achieved -= (rd + rc).
// Fails without mutating when the result would break
// rejected + recycled <= achieved.
func applyQCDeltas(detail *ProductionDetail, rejectedDelta, recycledDelta decimal.Decimal) error {
	newRejected := detail.RejectedQuantity.Add(rejectedDelta)
	newRecycled := detail.RecycledQuantity.Add(recycledDelta)
	newAchieved := detail.AchievedQuantity.Sub(rejectedDelta.Add(recycledDelta))
	if newAchieved.IsNegative() {
		newAchieved = decimal.Zero
	}
	if newRejected.Add(newRecycled).GreaterThan(newAchieved) {
		return ErrQCInvariantViolation
	}
	detail.RejectedQuantity = newRejected
	detail.RecycledQuantity = newRecycled
	detail.AchievedQuantity = newAchieved
	return nil
}

// rollbackQCDeltas undoes a previously applied correction.
func rollbackQCDeltas(detail *ProductionDetail, rejectedDelta, recycledDelta decimal.Decimal) {
	detail.RejectedQuantity = detail.RejectedQuantity.Sub(rejectedDelta)
	detail.RecycledQuantity = detail.RecycledQuantity.Sub(recycledDelta)
	detail.AchievedQuantity = detail.AchievedQuantity.Add(rejectedDelta.Add(recycledDelta))
}

func persistQCLine(tx *gorm.DB, detail *ProductionDetail) error {
	return tx.Model(&ProductionDetail{}).Where("id = ?", detail.ID).
		Updates(map[string]interface{}{
			"achieved_quantity": detail.AchievedQuantity,
			"rejected_quantity": detail.RejectedQuantity,
			"recycled_quantity": detail.RecycledQuantity,
		}).Error
}

// reopenForQC puts a closed record back to Pending: a correction means the run
// needs re-inspection, not re-production.
func reopenForQC(tx *gorm.DB, dp *DailyProduction, actorId int) error {
	if dp.Status != ProductionStatusPendingQC {
		return nil
	}
	if err := tx.Model(&DailyProduction{}).Where("id = ?", dp.ID).
		Updates(map[string]interface{}{
			"status":     ProductionStatusPending,
			"started_at": nil,
			"stopped_at": nil,
			"updated_by": actorId,
		}).Error; err != nil {
		return err
	}
	dp.Status = ProductionStatusPending
	dp.StartedAt = nil
	dp.StoppedAt = nil
	return nil
}

// CreateQCCheck applies a correction to one production line and records the
// audit row.
func CreateQCCheck(ctx context.Context, input *NewQCCheck) (*QCCheck, error) {
	if err := validateQCQuantities(input.RejectedQuantity, input.RecycledQuantity); err != nil {
		return nil, err
	}
	actorId, _ := actorFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()
	defer tx.Rollback()
	txCtx := tx.WithContext(ctx)

	dp, err := loadDailyProduction(txCtx, input.ProductionId)
	if err != nil {
		return nil, err
	}
	detail := dp.detailFor(input.ProductId)
	if detail == nil {
		return nil, ErrProductNotInRecord
	}

	if err := reopenForQC(txCtx, dp, actorId); err != nil {
		return nil, err
	}
	if err := applyQCDeltas(detail, input.RejectedQuantity, input.RecycledQuantity); err != nil {
		return nil, err
	}
	if err := persistQCLine(txCtx, detail); err != nil {
		return nil, err
	}

	check := QCCheck{
		DailyProductionId: input.ProductionId,
		ProductId:         input.ProductId,
		RejectedQuantity:  input.RejectedQuantity,
		RecycledQuantity:  input.RecycledQuantity,
		Remarks:           input.Remarks,
		CreatedBy:         actorId,
		UpdatedBy:         actorId,
	}
	if err := txCtx.Create(&check).Error; err != nil {
		return nil, err
	}
	if err := syncInventoryTx(txCtx, dp.WorkOrderId, input.ProductId, actorId); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &check, nil
}

// UpdateQCCheck edits an existing correction with rollback-then-apply
// semantics: the stored deltas come off the line first, then the new ones go
// on, and the invariant is re-validated before anything is committed.
func UpdateQCCheck(ctx context.Context, input *QCCheckUpdate) (*QCCheck, error) {
	if err := validateQCQuantities(input.RejectedQuantity, input.RecycledQuantity); err != nil {
		return nil, err
	}
	actorId, _ := actorFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()
	defer tx.Rollback()
	txCtx := tx.WithContext(ctx)

	var check QCCheck
	if err := txCtx.Where("id = ?", input.QCCheckId).First(&check).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrQCCheckNotFound
		}
		return nil, err
	}

	dp, err := loadDailyProduction(txCtx, check.DailyProductionId)
	if err != nil {
		return nil, err
	}
	detail := dp.detailFor(check.ProductId)
	if detail == nil {
		return nil, ErrProductNotInRecord
	}

	if err := reopenForQC(txCtx, dp, actorId); err != nil {
		return nil, err
	}
	rollbackQCDeltas(detail, check.RejectedQuantity, check.RecycledQuantity)
	if err := applyQCDeltas(detail, input.RejectedQuantity, input.RecycledQuantity); err != nil {
		return nil, err
	}
	if err := persistQCLine(txCtx, detail); err != nil {
		return nil, err
	}

	if err := txCtx.Model(&QCCheck{}).Where("id = ?", check.ID).
		Updates(map[string]interface{}{
			"rejected_quantity": input.RejectedQuantity,
			"recycled_quantity": input.RecycledQuantity,
			"remarks":           input.Remarks,
			"updated_by":        actorId,
		}).Error; err != nil {
		return nil, err
	}
	if err := syncInventoryTx(txCtx, dp.WorkOrderId, check.ProductId, actorId); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	check.RejectedQuantity = input.RejectedQuantity
	check.RecycledQuantity = input.RecycledQuantity
	check.Remarks = input.Remarks
	check.UpdatedBy = actorId
	return &check, nil
}
