package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/dto"
	"github.com/SscSPs/fleet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// entryHandler handles HTTP requests related to journal entries.
type entryHandler struct {
	ledgerService  portssvc.LedgerSvcFacade
	postingService portssvc.PostingSvc
}

func newEntryHandler(ledgerService portssvc.LedgerSvcFacade, postingService portssvc.PostingSvc) *entryHandler {
	return &entryHandler{
		ledgerService:  ledgerService,
		postingService: postingService,
	}
}

// RegisterEntryRoutes registers journal entry and balance routes.
func RegisterEntryRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, postingService portssvc.PostingSvc) {
	h := newEntryHandler(ledgerService, postingService)

	entries := rg.Group("/entries")
	{
		entries.GET("", h.listEntries)
		entries.GET("/:entryID", h.getEntry)
		entries.POST("/:entryID/post", h.postEntry)
		entries.POST("/:entryID/reverse", h.reverseEntry)
		entries.DELETE("/:entryID", h.discardEntry)
	}
	rg.GET("/balances/:accountCode", h.getBalance)
}

// listEntries godoc
// @Summary List journal entries
// @Description Lists the tenant's entries newest first, with token based pagination
// @Tags entries
// @Produce json
// @Param sourceType query string false "Source type"
// @Param sourceID query string false "Source ID"
// @Param status query string false "pending, posted or reversed"
// @Param account query string false "Account code on either leg"
// @Param vehicleID query string false "Vehicle ID"
// @Param contractID query string false "Contract ID"
// @Param customerID query string false "Customer ID"
// @Param period query string false "Depreciation period (YYYY-MM)"
// @Param from query string false "Entry date from (YYYY-MM-DD)"
// @Param to query string false "Entry date to (YYYY-MM-DD)"
// @Param limit query int false "Page size"
// @Param nextToken query string false "Token of the next page"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} map[string]string "Invalid query"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list entries"
// @Security BearerAuth
// @Router /entries [get]
func (h *entryHandler) listEntries(c *gin.Context) {
	tenantID, _, ok := requireIdentity(c)
	if !ok {
		return
	}

	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}
	filter, err := params.ToFilter()
	if err != nil {
		respondError(c, err, "Failed to list entries")
		return
	}

	entries, next, err := h.ledgerService.ListEntries(c.Request.Context(), tenantID, filter)
	if err != nil {
		respondError(c, err, "Failed to list entries")
		return
	}
	c.JSON(http.StatusOK, dto.ListEntriesResponse{Entries: dto.ToEntryResponses(entries), NextToken: next})
}

// getEntry godoc
// @Summary Get a journal entry
// @Tags entries
// @Produce json
// @Param entryID path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 500 {object} map[string]string "Failed to retrieve entry"
// @Security BearerAuth
// @Router /entries/{entryID} [get]
func (h *entryHandler) getEntry(c *gin.Context) {
	tenantID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	entry, err := h.ledgerService.GetEntry(c.Request.Context(), tenantID, c.Param("entryID"))
	if err != nil {
		respondError(c, err, "Failed to retrieve entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// postEntry godoc
// @Summary Post a pending entry
// @Description Posting an already posted entry is a no-op
// @Tags entries
// @Produce json
// @Param entryID path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry is reversed"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Security BearerAuth
// @Router /entries/{entryID}/post [post]
func (h *entryHandler) postEntry(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	entryID := c.Param("entryID")
	entry, err := h.postingService.Post(c.Request.Context(), tenantID, entryID, userID)
	if err != nil {
		respondError(c, err, "Failed to post entry")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Entry posted", slog.String("entry_id", entryID))
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// reverseEntry godoc
// @Summary Reverse a posted entry
// @Tags entries
// @Accept json
// @Produce json
// @Param entryID path string true "Entry ID"
// @Param request body dto.ReverseEntryRequest true "Reversal reason"
// @Success 200 {object} dto.EntryResponse
// @Failure 400 {object} map[string]string "Missing reason"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry is not posted"
// @Security BearerAuth
// @Router /entries/{entryID}/reverse [post]
func (h *entryHandler) reverseEntry(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.ReverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	entryID := c.Param("entryID")
	entry, err := h.postingService.Reverse(c.Request.Context(), tenantID, entryID, req.Reason, userID)
	if err != nil {
		respondError(c, err, "Failed to reverse entry")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Entry reversed", slog.String("entry_id", entryID))
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// discardEntry godoc
// @Summary Discard a pending entry
// @Tags entries
// @Param entryID path string true "Entry ID"
// @Success 204 "Entry deleted"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry is not pending"
// @Security BearerAuth
// @Router /entries/{entryID} [delete]
func (h *entryHandler) discardEntry(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	if err := h.postingService.Discard(c.Request.Context(), tenantID, c.Param("entryID"), userID); err != nil {
		respondError(c, err, "Failed to discard entry")
		return
	}
	c.Status(http.StatusNoContent)
}

// getBalance godoc
// @Summary Get an account balance
// @Description Posted debits minus posted credits of the account
// @Tags entries
// @Produce json
// @Param accountCode path string true "7 digit account code"
// @Param asOf query string false "Include entries up to this date (YYYY-MM-DD)"
// @Success 200 {object} dto.BalanceResponse
// @Failure 400 {object} map[string]string "Invalid account code or date"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /balances/{accountCode} [get]
func (h *entryHandler) getBalance(c *gin.Context) {
	tenantID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	accountCode := c.Param("accountCode")
	asOf, err := dto.ParseOptionalDate(c.Query("asOf"))
	if err != nil {
		respondError(c, err, "Failed to compute balance")
		return
	}
	balance, err := h.ledgerService.GetBalance(c.Request.Context(), tenantID, accountCode, asOf)
	if err != nil {
		respondError(c, err, "Failed to compute balance")
		return
	}
	resp := dto.BalanceResponse{AccountCode: accountCode, Balance: balance}
	if asOf != nil {
		s := asOf.Format(dto.DateLayout)
		resp.AsOf = &s
	}
	c.JSON(http.StatusOK, resp)
}
