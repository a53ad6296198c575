package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/dto"
	"github.com/SscSPs/fleet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// eventHandler accepts business events from the rental platform.
type eventHandler struct {
	ledgerService     portssvc.LedgerWriterSvc
	automationService portssvc.RuleEngineSvc
}

func newEventHandler(ledgerService portssvc.LedgerWriterSvc, automationService portssvc.RuleEngineSvc) *eventHandler {
	return &eventHandler{
		ledgerService:     ledgerService,
		automationService: automationService,
	}
}

// RegisterEventRoutes registers the event intake routes.
func RegisterEventRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerWriterSvc, automationService portssvc.RuleEngineSvc) {
	h := newEventHandler(ledgerService, automationService)

	events := rg.Group("/events")
	{
		events.POST("", h.processEvent)
		events.POST("/journal", h.journalEvent)
	}
}

// processEvent godoc
// @Summary Run automation rules for an event
// @Description Executes every active rule matching the event. Returns 207 when some rules failed.
// @Tags events
// @Accept json
// @Produce json
// @Param event body dto.BusinessEventRequest true "Business event"
// @Success 200 {object} dto.ProcessEventResponse
// @Success 207 {object} dto.ProcessEventResponse "Some rules failed"
// @Failure 400 {object} map[string]string "Invalid event"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security BearerAuth
// @Router /events [post]
func (h *eventHandler) processEvent(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.BusinessEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	event, err := req.ToDomain()
	if err != nil {
		respondError(c, err, "Failed to process event")
		return
	}

	executions, err := h.automationService.ProcessEvent(c.Request.Context(), tenantID, event, userID)
	if err != nil && len(executions) == 0 {
		respondError(c, err, "Failed to process event")
		return
	}

	resp := dto.ProcessEventResponse{Executions: executions, Errors: errorMessages(err)}
	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
		middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Some rules failed for event",
			slog.String("source_type", string(event.SourceType)),
			slog.String("source_id", event.SourceID),
			slog.String("error", err.Error()))
	}
	c.JSON(status, resp)
}

// journalEvent godoc
// @Summary Journal an event directly
// @Description Resolves the account template, builds and saves the entries. Redelivery of the same event returns the existing entries.
// @Tags events
// @Accept json
// @Produce json
// @Param request body dto.JournalEventRequest true "Event and posting flag"
// @Success 201 {object} dto.SaveEntriesResponse "Entries created"
// @Success 200 {object} dto.SaveEntriesResponse "Entries already existed"
// @Failure 400 {object} map[string]string "Invalid or unbalanced event"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Reference taken by another source"
// @Failure 422 {object} map[string]string "No account template for the source type"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security BearerAuth
// @Router /events/journal [post]
func (h *eventHandler) journalEvent(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.JournalEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	event, err := req.Event.ToDomain()
	if err != nil {
		respondError(c, err, "Failed to journal event")
		return
	}

	result, err := h.ledgerService.JournalEvent(c.Request.Context(), tenantID, event, userID, req.AutoPost)
	if err != nil {
		respondError(c, err, "Failed to journal event")
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.ToSaveEntriesResponse(result))
}

// errorMessages flattens a joined error into its messages.
func errorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		errs := joined.Unwrap()
		out := make([]string, 0, len(errs))
		for _, e := range errs {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
