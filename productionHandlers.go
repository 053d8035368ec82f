package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/factory_backend/config"
	"github.com/mmdatafocus/factory_backend/models"
	"github.com/mmdatafocus/factory_backend/utils"
	"github.com/mmdatafocus/factory_backend/workflow"
)

type productionActionRequest struct {
	Action       models.ProductionLogAction `json:"action" binding:"required"`
	JobOrderId   int                        `json:"job_order_id" binding:"required"`
	ProductId    int                        `json:"product_id" binding:"required"`
	ProductionId int                        `json:"production_id"`
	Description  string                     `json:"description"`
}

// timerRegistry is the slice of the simulator the handlers drive.
type timerRegistry interface {
	Register(jobOrderId int, productId int, productionId int)
	Deregister(jobOrderId int, productId int, productionId int)
}

// applyTimerTransition keeps the timer registry in step with a successful
// state transition: start and resume run a timer, pause and stop drop it.
// Pause must deregister (not just rely on the tick's paused check) so a
// never-resumed record doesn't hold a ticker for the process lifetime, and
// resume must register so accrual restarts after a process restart dropped
// the timers.
func applyTimerTransition(sim timerRegistry, action models.ProductionLogAction, jobOrderId int, productId int, productionId int) {
	switch action {
	case models.ProductionLogActionStart, models.ProductionLogActionResume:
		sim.Register(jobOrderId, productId, productionId)
	case models.ProductionLogActionPause, models.ProductionLogActionStop:
		sim.Deregister(jobOrderId, productId, productionId)
	}
}

// respondProductionError maps domain errors to HTTP. Missing resources are
// 404; everything else a client can cause is 400 with a machine-readable code.
func respondProductionError(c *gin.Context, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
		return
	}
	var perr *models.ProductionError
	if errors.As(err, &perr) {
		status := http.StatusBadRequest
		if perr.Code == models.CodeNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": perr.Message, "code": perr.Code})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func productionActionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx, span := tracer.Start(c.Request.Context(), "productionAction")
		defer span.End()

		var req productionActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondProductionError(c, err)
			return
		}

		// Serialize operators racing on the same record. Best-effort: the
		// state guards re-check inside the transaction either way.
		if req.ProductionId != 0 {
			release, err := utils.RecordLock(ctx, req.ProductionId, "productionHandlers.go", "productionActionHandler")
			if err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			defer release()
		}

		input := &models.ProductionAction{
			JobOrderId:   req.JobOrderId,
			ProductId:    req.ProductId,
			ProductionId: req.ProductionId,
			Description:  req.Description,
		}

		switch req.Action {
		case models.ProductionLogActionStart:
			dp, created, err := models.StartProduction(ctx, input)
			if err != nil {
				config.LogError(logger, "productionHandlers.go", "productionActionHandler", "StartProduction", req, err)
				respondProductionError(c, err)
				return
			}
			if sim := workflow.GetSimulator(); sim != nil {
				applyTimerTransition(sim, req.Action, dp.JobOrderId, req.ProductId, dp.ID)
			}
			status := http.StatusOK
			if created {
				status = http.StatusCreated
			}
			c.JSON(status, dp)

		case models.ProductionLogActionPause:
			dp, err := models.PauseProduction(ctx, input)
			if err != nil {
				config.LogError(logger, "productionHandlers.go", "productionActionHandler", "PauseProduction", req, err)
				respondProductionError(c, err)
				return
			}
			if sim := workflow.GetSimulator(); sim != nil {
				applyTimerTransition(sim, req.Action, dp.JobOrderId, req.ProductId, dp.ID)
			}
			c.JSON(http.StatusOK, dp)

		case models.ProductionLogActionResume:
			dp, err := models.ResumeProduction(ctx, input)
			if err != nil {
				config.LogError(logger, "productionHandlers.go", "productionActionHandler", "ResumeProduction", req, err)
				respondProductionError(c, err)
				return
			}
			if sim := workflow.GetSimulator(); sim != nil {
				applyTimerTransition(sim, req.Action, dp.JobOrderId, req.ProductId, dp.ID)
			}
			c.JSON(http.StatusOK, dp)

		case models.ProductionLogActionStop:
			dp, err := models.StopProduction(ctx, input)
			if err != nil {
				config.LogError(logger, "productionHandlers.go", "productionActionHandler", "StopProduction", req, err)
				respondProductionError(c, err)
				return
			}
			if sim := workflow.GetSimulator(); sim != nil {
				applyTimerTransition(sim, req.Action, dp.JobOrderId, req.ProductId, dp.ID)
			}
			c.JSON(http.StatusOK, dp)

		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		}
	}
}

func addDowntimeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDowntime
		if err := c.ShouldBindJSON(&input); err != nil {
			respondProductionError(c, err)
			return
		}
		entry, err := models.AddDowntime(c.Request.Context(), &input)
		if err != nil {
			config.LogError(config.GetLogger(), "productionHandlers.go", "addDowntimeHandler", "AddDowntime", input, err)
			respondProductionError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

func updateDowntimeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.DowntimePatch
		if err := c.ShouldBindJSON(&input); err != nil {
			respondProductionError(c, err)
			return
		}
		entry, err := models.UpdateDowntime(c.Request.Context(), &input)
		if err != nil {
			config.LogError(config.GetLogger(), "productionHandlers.go", "updateDowntimeHandler", "UpdateDowntime", input, err)
			respondProductionError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func createQCCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewQCCheck
		if err := c.ShouldBindJSON(&input); err != nil {
			respondProductionError(c, err)
			return
		}

		release, err := utils.RecordLock(c.Request.Context(), input.ProductionId, "productionHandlers.go", "createQCCheckHandler")
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		defer release()

		check, err := models.CreateQCCheck(c.Request.Context(), &input)
		if err != nil {
			config.LogError(config.GetLogger(), "productionHandlers.go", "createQCCheckHandler", "CreateQCCheck", input, err)
			respondProductionError(c, err)
			return
		}
		c.JSON(http.StatusCreated, check)
	}
}

func updateQCCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.QCCheckUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			respondProductionError(c, err)
			return
		}
		check, err := models.UpdateQCCheck(c.Request.Context(), &input)
		if err != nil {
			config.LogError(config.GetLogger(), "productionHandlers.go", "updateQCCheckHandler", "UpdateQCCheck", input, err)
			respondProductionError(c, err)
			return
		}
		c.JSON(http.StatusOK, check)
	}
}

func dailyProductionReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var dateFilter *time.Time
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			dateFilter = &parsed
		}
		report, err := models.GetDailyProductionReport(c.Request.Context(), dateFilter)
		if err != nil {
			config.LogError(config.GetLogger(), "productionHandlers.go", "dailyProductionReportHandler", "GetDailyProductionReport", c.Query("date"), err)
			respondProductionError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func inventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workOrderId, err := queryInt(c, "work_order_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := models.GetInventoryView(c.Request.Context(), workOrderId)
		if err != nil {
			config.LogError(config.GetLogger(), "productionHandlers.go", "inventoryHandler", "GetInventoryView", workOrderId, err)
			respondProductionError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func jobOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workOrderId, err := queryInt(c, "work_order_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		orders, err := models.ListJobOrders(c.Request.Context(), workOrderId)
		if err != nil {
			config.LogError(config.GetLogger(), "productionHandlers.go", "jobOrdersHandler", "ListJobOrders", workOrderId, err)
			respondProductionError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": ok})
	}
}
