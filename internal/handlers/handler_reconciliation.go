package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/dto"
	"github.com/SscSPs/fleet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reconciliationHandler handles detector runs and the correction workflow.
type reconciliationHandler struct {
	reconciliationService portssvc.ReconciliationSvcFacade
}

func newReconciliationHandler(reconciliationService portssvc.ReconciliationSvcFacade) *reconciliationHandler {
	return &reconciliationHandler{reconciliationService: reconciliationService}
}

// RegisterReconciliationRoutes registers reconciliation and correction routes.
func RegisterReconciliationRoutes(rg *gin.RouterGroup, reconciliationService portssvc.ReconciliationSvcFacade) {
	h := newReconciliationHandler(reconciliationService)

	rg.POST("/reconciliation/run", h.runDetectors)
	corrections := rg.Group("/corrections")
	{
		corrections.GET("", h.listCorrections)
		corrections.GET("/:correctionID", h.getCorrection)
		corrections.POST("/:correctionID/status", h.transitionCorrection)
		corrections.POST("/:correctionID/autofix", h.applyAutoFix)
	}
}

// runDetectors godoc
// @Summary Run the ledger consistency checks
// @Description Detects duplicate and unbalanced entries and opens a correction per new issue
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param request body dto.RunDetectorsRequest false "Entry date bounds"
// @Success 200 {object} services.DetectionReport
// @Failure 400 {object} map[string]string "Invalid bounds"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /reconciliation/run [post]
func (h *reconciliationHandler) runDetectors(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.RunDetectorsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format", err)
			return
		}
	}
	opts, err := req.ToOptions()
	if err != nil {
		respondError(c, err, "Failed to run detectors")
		return
	}
	report, err := h.reconciliationService.RunDetectors(c.Request.Context(), tenantID, opts, userID)
	if err != nil {
		respondError(c, err, "Failed to run detectors")
		return
	}
	if report.Created == nil {
		report.Created = []domain.CorrectionLog{}
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Detectors run",
		slog.Int("created", len(report.Created)), slog.Int("already_open", report.AlreadyOpen))
	c.JSON(http.StatusOK, report)
}

// listCorrections godoc
// @Summary List correction logs
// @Tags reconciliation
// @Produce json
// @Param status query string false "detected, reviewing, fixed or ignored"
// @Param errorType query string false "duplicate_entries or unbalanced_entries"
// @Param toolID query string false "Detector that raised the correction"
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} domain.CorrectionLog
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /corrections [get]
func (h *reconciliationHandler) listCorrections(c *gin.Context) {
	tenantID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	var params dto.ListCorrectionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}
	logs, err := h.reconciliationService.ListCorrections(c.Request.Context(), tenantID, params.ToFilter())
	if err != nil {
		respondError(c, err, "Failed to list corrections")
		return
	}
	if logs == nil {
		logs = []domain.CorrectionLog{}
	}
	c.JSON(http.StatusOK, logs)
}

// getCorrection godoc
// @Summary Get a correction log
// @Tags reconciliation
// @Produce json
// @Param correctionID path string true "Correction ID"
// @Success 200 {object} domain.CorrectionLog
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Correction not found"
// @Security BearerAuth
// @Router /corrections/{correctionID} [get]
func (h *reconciliationHandler) getCorrection(c *gin.Context) {
	tenantID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	log, err := h.reconciliationService.GetCorrection(c.Request.Context(), tenantID, c.Param("correctionID"))
	if err != nil {
		respondError(c, err, "Failed to retrieve correction")
		return
	}
	c.JSON(http.StatusOK, log)
}

// transitionCorrection godoc
// @Summary Change a correction's status
// @Description Closing as fixed or ignored requires notes
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param correctionID path string true "Correction ID"
// @Param request body dto.TransitionCorrectionRequest true "Target status"
// @Success 200 {object} domain.CorrectionLog
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Correction not found"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /corrections/{correctionID}/status [post]
func (h *reconciliationHandler) transitionCorrection(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.TransitionCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	log, err := h.reconciliationService.TransitionStatus(c.Request.Context(), tenantID, c.Param("correctionID"),
		domain.CorrectionStatus(req.Status), req.Notes, userID)
	if err != nil {
		respondError(c, err, "Failed to update correction")
		return
	}
	c.JSON(http.StatusOK, log)
}

// applyAutoFix godoc
// @Summary Apply the automatic fix of a correction
// @Description Reverses every duplicate except the earliest entry. Only duplicate_entries corrections support it.
// @Tags reconciliation
// @Produce json
// @Param correctionID path string true "Correction ID"
// @Success 200 {object} domain.CorrectionLog
// @Failure 400 {object} map[string]string "Correction has no automatic fix"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Correction not found"
// @Failure 409 {object} map[string]string "Correction is closed"
// @Security BearerAuth
// @Router /corrections/{correctionID}/autofix [post]
func (h *reconciliationHandler) applyAutoFix(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	correctionID := c.Param("correctionID")
	log, err := h.reconciliationService.ApplyAutoFix(c.Request.Context(), tenantID, correctionID, userID)
	if err != nil {
		respondError(c, err, "Failed to apply automatic fix")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Automatic fix applied", slog.String("correction_id", correctionID))
	c.JSON(http.StatusOK, log)
}
