package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/factory_backend/config"
	"github.com/mmdatafocus/factory_backend/utils"
	"github.com/shopspring/decimal"
)

// DPRRow is one line of the daily production report: plan metadata joined with
// the production counters for a (job order, product) pair, one row per
// production record (or one planless row when no run exists yet).
type DPRRow struct {
	JobOrderId      int              `json:"job_order_id"`
	JobNo           string           `json:"job_no"`
	WorkOrderId     int              `json:"work_order_id"`
	OrderNo         string           `json:"order_no"`
	ProductId       int              `json:"product_id"`
	ProductName     string           `json:"product_name"`
	ScheduledDate   time.Time        `json:"scheduled_date"`
	PlannedQuantity decimal.Decimal  `json:"planned_quantity"`
	ProductionId    int              `json:"production_id"`
	Status          ProductionStatus `json:"status"`
	StartedAt       *time.Time       `json:"started_at"`
	StoppedAt       *time.Time       `json:"stopped_at"`
	AchievedQty     decimal.Decimal  `json:"achieved_quantity"`
	RejectedQty     decimal.Decimal  `json:"rejected_quantity"`
	RecycledQty     decimal.Decimal  `json:"recycled_quantity"`
	DowntimeMinutes int              `json:"downtime_minutes"`
}

type DPRReport struct {
	PastDPR   []*DPRRow `json:"past_dpr"`
	TodayDPR  []*DPRRow `json:"today_dpr"`
	FutureDPR []*DPRRow `json:"future_dpr"`
}

// CategorizeDate buckets a record date against a reference day. Both sides are
// truncated to UTC midnight first; local-time instants are never compared.
// Returns -1 (past), 0 (today), 1 (future).
func CategorizeDate(recordDate time.Time, today time.Time) int {
	d := utils.ConvertToUTCDate(recordDate)
	t := utils.ConvertToUTCDate(today)
	switch {
	case d.Before(t):
		return -1
	case d.After(t):
		return 1
	default:
		return 0
	}
}

// dprKey dedups report rows: a job order scheduling the same product on
// several dates must keep one row per (job order, product, record), not
// collapse into one.
func dprKey(jobOrderId, productId, productionId int) string {
	return fmt.Sprintf("%d:%d:%d", jobOrderId, productId, productionId)
}

type dprSource struct {
	JobOrderId      int
	JobNo           string
	WorkOrderId     int
	OrderNo         string
	ProductId       int
	ProductName     string
	ScheduledDate   time.Time
	PlannedQuantity decimal.Decimal
	ProductionId    int
	Status          *ProductionStatus
	StartedAt       *time.Time
	StoppedAt       *time.Time
	AchievedQty     decimal.Decimal
	RejectedQty     decimal.Decimal
	RecycledQty     decimal.Decimal
	DowntimeMinutes int
}

// GetDailyProductionReport assembles the past/today/future report. With a date
// filter only that day's rows are returned, still in their bucket relative to
// UTC-today.
func GetDailyProductionReport(ctx context.Context, dateFilter *time.Time) (*DPRReport, error) {
	db := config.GetDB()

	var sources []*dprSource
	if err := db.WithContext(ctx).Raw(`
	SELECT
		jo.id AS job_order_id,
		jo.job_no AS job_no,
		jo.work_order_id AS work_order_id,
		COALESCE(wo.order_no, '') AS order_no,
		jod.product_id AS product_id,
		COALESCE(p.name, '') AS product_name,
		jo.scheduled_date AS scheduled_date,
		jod.planned_quantity AS planned_quantity,
		COALESCE(dp.id, 0) AS production_id,
		dp.status AS status,
		dp.started_at AS started_at,
		dp.stopped_at AS stopped_at,
		COALESCE(pd.achieved_quantity, 0) AS achieved_qty,
		COALESCE(pd.rejected_quantity, 0) AS rejected_qty,
		COALESCE(pd.recycled_quantity, 0) AS recycled_qty,
		COALESCE(dt.total_minutes, 0) AS downtime_minutes
	FROM job_order_details jod
		JOIN job_orders jo ON jod.job_order_id = jo.id
		LEFT JOIN work_orders wo ON wo.id = jo.work_order_id
		LEFT JOIN products p ON p.id = jod.product_id
		LEFT JOIN daily_productions dp ON dp.job_order_id = jo.id
		LEFT JOIN production_details pd ON pd.daily_production_id = dp.id AND pd.product_id = jod.product_id
		LEFT JOIN (
			SELECT daily_production_id, SUM(minutes) AS total_minutes
			FROM downtime_entries GROUP BY daily_production_id
		) dt ON dt.daily_production_id = dp.id
	ORDER BY jo.scheduled_date, jo.id, jod.product_id
`).Scan(&sources).Error; err != nil {
		return nil, err
	}

	report := &DPRReport{
		PastDPR:   make([]*DPRRow, 0),
		TodayDPR:  make([]*DPRRow, 0),
		FutureDPR: make([]*DPRRow, 0),
	}
	now := time.Now()
	seen := make(map[string]bool)

	for _, src := range sources {
		if dateFilter != nil &&
			!utils.ConvertToUTCDate(src.ScheduledDate).Equal(utils.ConvertToUTCDate(*dateFilter)) {
			continue
		}
		key := dprKey(src.JobOrderId, src.ProductId, src.ProductionId)
		if seen[key] {
			continue
		}
		seen[key] = true

		row := &DPRRow{
			JobOrderId:      src.JobOrderId,
			JobNo:           src.JobNo,
			WorkOrderId:     src.WorkOrderId,
			OrderNo:         src.OrderNo,
			ProductId:       src.ProductId,
			ProductName:     src.ProductName,
			ScheduledDate:   utils.ConvertToUTCDate(src.ScheduledDate),
			PlannedQuantity: src.PlannedQuantity,
			ProductionId:    src.ProductionId,
			Status:          ProductionStatusPending,
			StartedAt:       src.StartedAt,
			StoppedAt:       src.StoppedAt,
			AchievedQty:     src.AchievedQty,
			RejectedQty:     src.RejectedQty,
			RecycledQty:     src.RecycledQty,
			DowntimeMinutes: src.DowntimeMinutes,
		}
		if src.Status != nil {
			row.Status = *src.Status
		}

		switch CategorizeDate(src.ScheduledDate, now) {
		case -1:
			report.PastDPR = append(report.PastDPR, row)
		case 1:
			report.FutureDPR = append(report.FutureDPR, row)
		default:
			report.TodayDPR = append(report.TodayDPR, row)
		}
	}
	return report, nil
}
