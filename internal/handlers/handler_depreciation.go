package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/dto"
	"github.com/SscSPs/fleet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// depreciationHandler handles HTTP requests related to vehicle depreciation.
type depreciationHandler struct {
	depreciationService portssvc.DepreciationSvcFacade
}

func newDepreciationHandler(depreciationService portssvc.DepreciationSvcFacade) *depreciationHandler {
	return &depreciationHandler{depreciationService: depreciationService}
}

// RegisterDepreciationRoutes registers schedule and accrual routes.
func RegisterDepreciationRoutes(rg *gin.RouterGroup, depreciationService portssvc.DepreciationSvcFacade) {
	h := newDepreciationHandler(depreciationService)

	dep := rg.Group("/depreciation")
	{
		dep.POST("/schedules", h.generateSchedule)
		dep.GET("/schedules/:vehicleID", h.getSchedule)
		dep.POST("/process", h.processMonth)
	}
}

// generateSchedule godoc
// @Summary Generate a depreciation schedule
// @Description Plans monthly depreciation for a vehicle. Months already planned are kept.
// @Tags depreciation
// @Accept json
// @Produce json
// @Param request body dto.GenerateScheduleRequest true "Vehicle and months"
// @Success 201 {object} dto.ScheduleResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Vehicle not found"
// @Failure 409 {object} map[string]string "Vehicle inactive"
// @Security BearerAuth
// @Router /depreciation/schedules [post]
func (h *depreciationHandler) generateSchedule(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	from, err := dto.ParseMonth(req.FromMonth)
	if err != nil {
		respondError(c, err, "Failed to generate schedule")
		return
	}

	ctx := c.Request.Context()
	items, err := h.depreciationService.GenerateSchedule(ctx, tenantID, req.VehicleID, from, req.Months, userID)
	if err != nil {
		respondError(c, err, "Failed to generate schedule")
		return
	}
	bookValue, err := h.depreciationService.BookValue(ctx, tenantID, req.VehicleID, time.Now().UTC())
	if err != nil {
		respondError(c, err, "Failed to generate schedule")
		return
	}
	middleware.GetLoggerFromCtx(ctx).Info("Depreciation schedule generated",
		slog.String("vehicle_id", req.VehicleID), slog.Int("items", len(items)))
	c.JSON(http.StatusCreated, dto.ToScheduleResponse(req.VehicleID, bookValue, items))
}

// getSchedule godoc
// @Summary Get a vehicle's depreciation schedule
// @Tags depreciation
// @Produce json
// @Param vehicleID path string true "Vehicle ID"
// @Param asOf query string false "Book value date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Vehicle not found"
// @Security BearerAuth
// @Router /depreciation/schedules/{vehicleID} [get]
func (h *depreciationHandler) getSchedule(c *gin.Context) {
	tenantID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	vehicleID := c.Param("vehicleID")
	asOf := time.Now().UTC()
	if raw := c.Query("asOf"); raw != "" {
		t, err := dto.ParseDate(raw)
		if err != nil {
			respondError(c, err, "Failed to retrieve schedule")
			return
		}
		asOf = t
	}

	ctx := c.Request.Context()
	items, err := h.depreciationService.ListSchedule(ctx, tenantID, vehicleID)
	if err != nil {
		respondError(c, err, "Failed to retrieve schedule")
		return
	}
	bookValue, err := h.depreciationService.BookValue(ctx, tenantID, vehicleID, asOf)
	if err != nil {
		respondError(c, err, "Failed to retrieve schedule")
		return
	}
	c.JSON(http.StatusOK, dto.ToScheduleResponse(vehicleID, bookValue, items))
}

// processMonth godoc
// @Summary Accrue a month of depreciation
// @Description Posts one depreciation entry per unprocessed schedule item of the month. Safe to re-run. Returns 207 when some items failed.
// @Tags depreciation
// @Accept json
// @Produce json
// @Param request body dto.ProcessMonthRequest true "Target month"
// @Success 200 {object} domain.ProcessMonthResult
// @Success 207 {object} domain.ProcessMonthResult "Some items failed"
// @Failure 400 {object} map[string]string "Invalid month"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security BearerAuth
// @Router /depreciation/process [post]
func (h *depreciationHandler) processMonth(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.ProcessMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	month, err := dto.ParseMonth(req.Month)
	if err != nil {
		respondError(c, err, "Failed to process depreciation")
		return
	}

	result, err := h.depreciationService.ProcessMonth(c.Request.Context(), tenantID, month, userID)
	if err != nil && len(result.Failures) == 0 {
		respondError(c, err, "Failed to process depreciation")
		return
	}
	status := http.StatusOK
	if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}
