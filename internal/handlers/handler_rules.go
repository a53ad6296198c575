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

// ruleHandler handles HTTP requests related to automation rules.
type ruleHandler struct {
	automationService portssvc.AutomationSvcFacade
}

func newRuleHandler(automationService portssvc.AutomationSvcFacade) *ruleHandler {
	return &ruleHandler{automationService: automationService}
}

// RegisterRuleRoutes registers automation rule routes.
func RegisterRuleRoutes(rg *gin.RouterGroup, automationService portssvc.AutomationSvcFacade) {
	h := newRuleHandler(automationService)

	rules := rg.Group("/rules")
	{
		rules.POST("", h.createRule)
		rules.GET("", h.listRules)
		rules.GET("/:ruleID", h.getRule)
		rules.PUT("/:ruleID", h.updateRule)
		rules.POST("/:ruleID/active", h.setRuleActive)
		rules.POST("/:ruleID/test", h.testRule)
	}
}

// createRule godoc
// @Summary Create an automation rule
// @Tags rules
// @Accept json
// @Produce json
// @Param rule body dto.RuleRequest true "Rule definition"
// @Success 201 {object} domain.AutomationRule
// @Failure 400 {object} map[string]string "Invalid rule"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /rules [post]
func (h *ruleHandler) createRule(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	rule, err := h.automationService.CreateRule(c.Request.Context(), tenantID, req.ToDomain(), userID)
	if err != nil {
		respondError(c, err, "Failed to create rule")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Rule created", slog.String("rule_id", rule.RuleID))
	c.JSON(http.StatusCreated, rule)
}

// listRules godoc
// @Summary List automation rules
// @Tags rules
// @Produce json
// @Param triggerEvent query string false "Trigger event type"
// @Param activeOnly query bool false "Only active rules"
// @Success 200 {array} domain.AutomationRule
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /rules [get]
func (h *ruleHandler) listRules(c *gin.Context) {
	tenantID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	var params dto.ListRulesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}
	rules, err := h.automationService.ListRules(c.Request.Context(), tenantID, domain.RuleFilter{
		TriggerEvent: domain.SourceType(params.TriggerEvent),
		ActiveOnly:   params.ActiveOnly,
	})
	if err != nil {
		respondError(c, err, "Failed to list rules")
		return
	}
	if rules == nil {
		rules = []domain.AutomationRule{}
	}
	c.JSON(http.StatusOK, rules)
}

// getRule godoc
// @Summary Get an automation rule
// @Tags rules
// @Produce json
// @Param ruleID path string true "Rule ID"
// @Success 200 {object} domain.AutomationRule
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Security BearerAuth
// @Router /rules/{ruleID} [get]
func (h *ruleHandler) getRule(c *gin.Context) {
	tenantID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	rule, err := h.automationService.GetRule(c.Request.Context(), tenantID, c.Param("ruleID"))
	if err != nil {
		respondError(c, err, "Failed to retrieve rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

// updateRule godoc
// @Summary Replace an automation rule
// @Description Trigger statistics are kept
// @Tags rules
// @Accept json
// @Produce json
// @Param ruleID path string true "Rule ID"
// @Param rule body dto.RuleRequest true "Rule definition"
// @Success 200 {object} domain.AutomationRule
// @Failure 400 {object} map[string]string "Invalid rule"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Security BearerAuth
// @Router /rules/{ruleID} [put]
func (h *ruleHandler) updateRule(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	rule := req.ToDomain()
	rule.RuleID = c.Param("ruleID")
	updated, err := h.automationService.UpdateRule(c.Request.Context(), tenantID, rule, userID)
	if err != nil {
		respondError(c, err, "Failed to update rule")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// setRuleActive godoc
// @Summary Activate or deactivate a rule
// @Tags rules
// @Accept json
// @Produce json
// @Param ruleID path string true "Rule ID"
// @Param request body dto.SetRuleActiveRequest true "Active flag"
// @Success 200 {object} domain.AutomationRule
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Security BearerAuth
// @Router /rules/{ruleID}/active [post]
func (h *ruleHandler) setRuleActive(c *gin.Context) {
	tenantID, userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req dto.SetRuleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	rule, err := h.automationService.SetRuleActive(c.Request.Context(), tenantID, c.Param("ruleID"), *req.Active, userID)
	if err != nil {
		respondError(c, err, "Failed to update rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

// testRule godoc
// @Summary Dry-run a rule against an event
// @Description Builds and validates the entries the rule would produce without saving them
// @Tags rules
// @Accept json
// @Produce json
// @Param ruleID path string true "Rule ID"
// @Param event body dto.BusinessEventRequest true "Sample event"
// @Success 200 {object} domain.RuleExecution
// @Failure 400 {object} map[string]string "Invalid event"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 422 {object} map[string]string "No account template for the source type"
// @Security BearerAuth
// @Router /rules/{ruleID}/test [post]
func (h *ruleHandler) testRule(c *gin.Context) {
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
		respondError(c, err, "Failed to test rule")
		return
	}
	exec, err := h.automationService.Test(c.Request.Context(), tenantID, c.Param("ruleID"), event, userID)
	if err != nil {
		respondError(c, err, "Failed to test rule")
		return
	}
	c.JSON(http.StatusOK, exec)
}
