package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/factory_backend/config"
	"github.com/mmdatafocus/factory_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailyProduction is one production run of a job order. Lines are seeded from
// the job order's plan on the first start; counters on a line only move through
// the accrual tick (up) and QC corrections (down).
type DailyProduction struct {
	ID          int                   `gorm:"primary_key" json:"id"`
	JobOrderId  int                   `gorm:"index;not null" json:"job_order_id"`
	WorkOrderId int                   `gorm:"index;not null" json:"work_order_id"`
	Status      ProductionStatus      `gorm:"type:enum('Pending','InProgress','Paused','PendingQC');default:Pending" json:"status"`
	StartedAt   *time.Time            `json:"started_at"`
	StoppedAt   *time.Time            `json:"stopped_at"`
	Details     []*ProductionDetail   `gorm:"foreignKey:DailyProductionId" json:"details"`
	Downtimes   []*DowntimeEntry      `gorm:"foreignKey:DailyProductionId" json:"downtimes"`
	Events      []*ProductionLogEvent `gorm:"foreignKey:DailyProductionId" json:"events"`
	CreatedBy   int                   `json:"created_by"`
	UpdatedBy   int                   `json:"updated_by"`
	CreatedAt   time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProductionDetail struct {
	ID                int             `gorm:"primary_key" json:"id"`
	DailyProductionId int             `gorm:"index;not null" json:"daily_production_id"`
	ProductId         int             `gorm:"index;not null" json:"product_id"`
	AchievedQuantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"achieved_quantity"`
	RejectedQuantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rejected_quantity"`
	RecycledQuantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"recycled_quantity"`
}

// AcceptedQuantity = achieved - rejected - recycled. Never negative while the
// QC invariant holds.
func (d *ProductionDetail) AcceptedQuantity() decimal.Decimal {
	return d.AchievedQuantity.Sub(d.RejectedQuantity).Sub(d.RecycledQuantity)
}

// DowntimeEntry is append-only; edits go through UpdateDowntime by id.
type DowntimeEntry struct {
	ID                int       `gorm:"primary_key" json:"id"`
	DailyProductionId int       `gorm:"index;not null" json:"daily_production_id"`
	StartTime         time.Time `json:"start_time"`
	Minutes           int       `gorm:"not null;default:0" json:"minutes"`
	Description       string    `gorm:"type:text" json:"description"`
	Remarks           string    `gorm:"type:text" json:"remarks"`
	CreatedBy         int       `json:"created_by"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductionLogEvent is the append-only audit trail. The latest start/stop
// instants are derived from it by timestamp (last-write-wins by timestamp, not
// by insertion order).
type ProductionLogEvent struct {
	ID                int                 `gorm:"primary_key" json:"id"`
	DailyProductionId int                 `gorm:"index;not null" json:"daily_production_id"`
	Action            ProductionLogAction `gorm:"type:enum('Start','Pause','Resume','Stop');not null" json:"action"`
	Timestamp         time.Time           `gorm:"not null" json:"timestamp"`
	ActorId           int                 `json:"actor_id"`
	ActorName         string              `gorm:"size:100" json:"actor_name"`
	Description       string              `gorm:"type:text" json:"description"`
}

// LatestEventTime returns the newest timestamp among events with the given
// action, or nil when none exists.
func LatestEventTime(events []*ProductionLogEvent, action ProductionLogAction) *time.Time {
	var latest *time.Time
	for _, e := range events {
		if e == nil || e.Action != action {
			continue
		}
		if latest == nil || e.Timestamp.After(*latest) {
			t := e.Timestamp
			latest = &t
		}
	}
	return latest
}

type ProductionAction struct {
	JobOrderId   int    `json:"job_order_id" binding:"required"`
	ProductId    int    `json:"product_id" binding:"required"`
	ProductionId int    `json:"production_id"`
	Description  string `json:"description"`
}

// Transition guards. Pure so the precondition matrix is testable without a DB;
// every mutating operation re-runs them on freshly loaded state inside its
// transaction.

func (dp *DailyProduction) canStart(planned, achieved decimal.Decimal) error {
	if dp.StartedAt != nil {
		return ErrAlreadyStarted
	}
	if achieved.GreaterThanOrEqual(planned) {
		return ErrPlannedQuantityReached
	}
	return nil
}

func (dp *DailyProduction) canPause() error {
	if dp.StartedAt == nil {
		return ErrNotStarted
	}
	if dp.StoppedAt != nil {
		return ErrAlreadyStopped
	}
	if dp.Status == ProductionStatusPaused {
		return ErrAlreadyPaused
	}
	return nil
}

func (dp *DailyProduction) canResume() error {
	if dp.Status != ProductionStatusPaused {
		return ErrNotPaused
	}
	return nil
}

func (dp *DailyProduction) canStop() error {
	if dp.StartedAt == nil {
		return ErrNotStarted
	}
	if dp.StoppedAt != nil {
		return ErrAlreadyStopped
	}
	return nil
}

func (dp *DailyProduction) detailFor(productId int) *ProductionDetail {
	for _, d := range dp.Details {
		if d.ProductId == productId {
			return d
		}
	}
	return nil
}

func actorFromContext(ctx context.Context) (int, string) {
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok || userName == "" {
		userName = "System"
	}
	return userId, userName
}

func appendProductionEvent(tx *gorm.DB, productionId int, action ProductionLogAction, actorId int, actorName string, description string, at time.Time) error {
	event := ProductionLogEvent{
		DailyProductionId: productionId,
		Action:            action,
		Timestamp:         at,
		ActorId:           actorId,
		ActorName:         actorName,
		Description:       description,
	}
	return tx.Create(&event).Error
}

func loadDailyProduction(tx *gorm.DB, productionId int) (*DailyProduction, error) {
	var dp DailyProduction
	if err := tx.Preload("Details").Preload("Downtimes").Preload("Events").
		Where("id = ?", productionId).First(&dp).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductionNotFound
		}
		return nil, err
	}
	return &dp, nil
}

func GetDailyProduction(ctx context.Context, productionId int) (*DailyProduction, error) {
	db := config.GetDB()
	return loadDailyProduction(db.WithContext(ctx), productionId)
}

// StartProduction starts (and lazily creates) a production run.
// Without a production id, the latest run of the job order is reused when one
// exists; otherwise a new record is created with a zero line for every product
// in the job order's plan. The returned bool reports whether a record was
// created.
func StartProduction(ctx context.Context, input *ProductionAction) (*DailyProduction, bool, error) {
	actorId, actorName := actorFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()
	defer tx.Rollback()
	txCtx := tx.WithContext(ctx)

	plan, err := getJobOrderPlan(txCtx, input.JobOrderId, input.ProductId)
	if err != nil {
		return nil, false, err
	}

	var dp *DailyProduction
	if input.ProductionId > 0 {
		dp, err = loadDailyProduction(txCtx, input.ProductionId)
		if err != nil {
			return nil, false, err
		}
		// A record id from another job order would run the cap guard against
		// the wrong plan.
		if dp.JobOrderId != input.JobOrderId {
			return nil, false, ErrProductionNotFound
		}
	} else {
		var existing DailyProduction
		err := txCtx.Preload("Details").Preload("Events").
			Where("job_order_id = ?", input.JobOrderId).
			Order("id DESC").First(&existing).Error
		if err == nil {
			dp = &existing
		} else if err != gorm.ErrRecordNotFound {
			return nil, false, err
		}
	}

	now := time.Now().UTC()

	if dp == nil {
		// Lazy creation: seed a zero line per planned product.
		var planLines []*JobOrderDetail
		if err := txCtx.Where("job_order_id = ?", input.JobOrderId).Find(&planLines).Error; err != nil {
			return nil, false, err
		}
		details := make([]*ProductionDetail, 0, len(planLines))
		for _, line := range planLines {
			details = append(details, &ProductionDetail{ProductId: line.ProductId})
		}
		record := DailyProduction{
			JobOrderId:  input.JobOrderId,
			WorkOrderId: plan.WorkOrderId,
			Status:      ProductionStatusInProgress,
			StartedAt:   &now,
			Details:     details,
			CreatedBy:   actorId,
			UpdatedBy:   actorId,
		}
		if err := txCtx.Create(&record).Error; err != nil {
			return nil, false, err
		}
		if err := appendProductionEvent(txCtx, record.ID, ProductionLogActionStart, actorId, actorName, input.Description, now); err != nil {
			return nil, false, err
		}
		if err := tx.Commit().Error; err != nil {
			return nil, false, err
		}
		return &record, true, nil
	}

	detail := dp.detailFor(input.ProductId)
	if detail == nil {
		return nil, false, ErrProductNotInRecord
	}
	if err := dp.canStart(plan.PlannedQuantity, detail.AchievedQuantity); err != nil {
		return nil, false, err
	}

	if err := txCtx.Model(&DailyProduction{}).Where("id = ?", dp.ID).
		Updates(map[string]interface{}{
			"status":     ProductionStatusInProgress,
			"started_at": &now,
			"updated_by": actorId,
		}).Error; err != nil {
		return nil, false, err
	}
	if err := appendProductionEvent(txCtx, dp.ID, ProductionLogActionStart, actorId, actorName, input.Description, now); err != nil {
		return nil, false, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, false, err
	}

	dp.Status = ProductionStatusInProgress
	dp.StartedAt = &now
	return dp, false, nil
}

// PauseProduction suspends accrual without closing the run.
func PauseProduction(ctx context.Context, input *ProductionAction) (*DailyProduction, error) {
	return applyTransition(ctx, input, ProductionLogActionPause)
}

// ResumeProduction reverses a pause.
func ResumeProduction(ctx context.Context, input *ProductionAction) (*DailyProduction, error) {
	return applyTransition(ctx, input, ProductionLogActionResume)
}

// StopProduction closes the run for QC and refreshes the product's inventory
// snapshot in the same transaction.
func StopProduction(ctx context.Context, input *ProductionAction) (*DailyProduction, error) {
	return applyTransition(ctx, input, ProductionLogActionStop)
}

func applyTransition(ctx context.Context, input *ProductionAction, action ProductionLogAction) (*DailyProduction, error) {
	if input.ProductionId <= 0 {
		return nil, ErrProductionNotFound
	}
	actorId, actorName := actorFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()
	defer tx.Rollback()
	txCtx := tx.WithContext(ctx)

	dp, err := loadDailyProduction(txCtx, input.ProductionId)
	if err != nil {
		return nil, err
	}
	if dp.JobOrderId != input.JobOrderId {
		return nil, ErrProductionNotFound
	}
	if dp.detailFor(input.ProductId) == nil {
		return nil, ErrProductNotInRecord
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"updated_by": actorId}

	switch action {
	case ProductionLogActionPause:
		if err := dp.canPause(); err != nil {
			return nil, err
		}
		updates["status"] = ProductionStatusPaused
	case ProductionLogActionResume:
		if err := dp.canResume(); err != nil {
			return nil, err
		}
		updates["status"] = ProductionStatusInProgress
	case ProductionLogActionStop:
		if err := dp.canStop(); err != nil {
			return nil, err
		}
		updates["status"] = ProductionStatusPendingQC
		updates["stopped_at"] = &now
	default:
		return nil, ErrProductionNotFound
	}

	if err := txCtx.Model(&DailyProduction{}).Where("id = ?", dp.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := appendProductionEvent(txCtx, dp.ID, action, actorId, actorName, input.Description, now); err != nil {
		return nil, err
	}
	if action == ProductionLogActionStop {
		if err := syncInventoryTx(txCtx, dp.WorkOrderId, input.ProductId, actorId); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	dp.Status = updates["status"].(ProductionStatus)
	if action == ProductionLogActionStop {
		dp.StoppedAt = &now
	}
	return dp, nil
}

// AccrueProductionTick is the simulator's write path: one unit per tick until
// the plan caps the line. The cap check runs before the write, so achieved
// never exceeds planned. Returns true when the record was stopped (by cap or
// because it is no longer accruing) and the caller should drop its timer.
func AccrueProductionTick(ctx context.Context, jobOrderId int, productId int, productionId int) (bool, error) {
	db := config.GetDB()
	tx := db.Begin()
	defer tx.Rollback()
	txCtx := tx.WithContext(ctx)

	dp, err := loadDailyProduction(txCtx, productionId)
	if err != nil {
		if err == ErrProductionNotFound {
			return true, err
		}
		return false, err
	}
	if dp.JobOrderId != jobOrderId {
		return true, ErrProductionNotFound
	}
	// Paused or already closed: the tick is inert. Pause and stop drop the
	// timer at the handler, but a tick already in flight (or a stale timer)
	// must still re-check status here before writing.
	if dp.Status == ProductionStatusPaused {
		return false, nil
	}
	if dp.Status == ProductionStatusPendingQC {
		return true, nil
	}

	detail := dp.detailFor(productId)
	if detail == nil {
		return true, ErrProductNotInRecord
	}
	plan, err := getJobOrderPlan(txCtx, jobOrderId, productId)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	next := detail.AchievedQuantity.Add(decimal.NewFromInt(1))

	if next.GreaterThan(plan.PlannedQuantity) {
		// Do not apply the increment; close the run instead.
		if err := txCtx.Model(&DailyProduction{}).Where("id = ?", dp.ID).
			Updates(map[string]interface{}{
				"status":     ProductionStatusPendingQC,
				"stopped_at": &now,
			}).Error; err != nil {
			return false, err
		}
		if err := appendProductionEvent(txCtx, dp.ID, ProductionLogActionStop, 0, "System", "planned quantity reached", now); err != nil {
			return false, err
		}
		if err := syncInventoryTx(txCtx, dp.WorkOrderId, productId, 0); err != nil {
			return false, err
		}
		if err := tx.Commit().Error; err != nil {
			return false, err
		}
		return true, nil
	}

	if err := txCtx.Model(&ProductionDetail{}).Where("id = ?", detail.ID).
		Update("achieved_quantity", next).Error; err != nil {
		return false, err
	}
	if err := syncInventoryTx(txCtx, dp.WorkOrderId, productId, 0); err != nil {
		return false, err
	}
	if err := tx.Commit().Error; err != nil {
		return false, err
	}
	return false, nil
}

type NewDowntime struct {
	ProductionId int    `json:"production_id" binding:"required"`
	JobOrderId   int    `json:"job_order_id"`
	ProductId    int    `json:"product_id"`
	Description  string `json:"description" binding:"required"`
	Minutes      int    `json:"minutes"`
	Remarks      string `json:"remarks"`
	StartTime    string `json:"start_time"`
}

type DowntimePatch struct {
	ProductionId int     `json:"production_id" binding:"required"`
	DowntimeId   int     `json:"downtime_id" binding:"required"`
	Description  *string `json:"description"`
	Minutes      *int    `json:"minutes"`
	Remarks      *string `json:"remarks"`
	StartTime    *string `json:"start_time"`
}

// AddDowntime appends a stoppage entry to the record's ledger. The start time
// is an operator-entered string: strict layout first, short fallback second,
// empty means now.
func AddDowntime(ctx context.Context, input *NewDowntime) (*DowntimeEntry, error) {
	if input.Minutes < 0 {
		return nil, &ProductionError{CodeInvariantViolation, "downtime minutes must not be negative"}
	}
	startTime := time.Now().UTC()
	if input.StartTime != "" {
		parsed, err := utils.ParseStartTime(input.StartTime)
		if err != nil {
			return nil, err
		}
		startTime = parsed
	}
	actorId, _ := actorFromContext(ctx)

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if _, err := loadDailyProduction(dbCtx, input.ProductionId); err != nil {
		return nil, err
	}
	entry := DowntimeEntry{
		DailyProductionId: input.ProductionId,
		StartTime:         startTime,
		Minutes:           input.Minutes,
		Description:       input.Description,
		Remarks:           input.Remarks,
		CreatedBy:         actorId,
	}
	if err := dbCtx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateDowntime patches only the provided fields of one ledger entry.
func UpdateDowntime(ctx context.Context, input *DowntimePatch) (*DowntimeEntry, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)

	var entry DowntimeEntry
	if err := dbCtx.Where("id = ? AND daily_production_id = ?", input.DowntimeId, input.ProductionId).
		First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrDowntimeNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Remarks != nil {
		updates["remarks"] = *input.Remarks
	}
	if input.Minutes != nil {
		if *input.Minutes < 0 {
			return nil, &ProductionError{CodeInvariantViolation, "downtime minutes must not be negative"}
		}
		updates["minutes"] = *input.Minutes
	}
	if input.StartTime != nil {
		parsed, err := utils.ParseStartTime(*input.StartTime)
		if err != nil {
			return nil, err
		}
		updates["start_time"] = parsed
	}
	if len(updates) == 0 {
		return &entry, nil
	}
	if err := dbCtx.Model(&entry).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
