package dto

import (
	"strings"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

// RuleRequest creates or replaces an automation rule.
type RuleRequest struct {
	Name           string                `json:"name" binding:"required"`
	TriggerEvent   string                `json:"triggerEvent" binding:"required"`
	Conditions     []domain.Condition    `json:"conditions"`
	AccountMapping domain.AccountMapping `json:"accountMapping"`
	ScheduleType   string                `json:"scheduleType" binding:"omitempty,oneof=daily monthly"`
	IsActive       *bool                 `json:"isActive"`
	AutoPost       bool                  `json:"autoPost"`
	Priority       int                   `json:"priority"`
}

// ToDomain converts the request into a rule. Rules are active unless the
// request says otherwise.
func (r RuleRequest) ToDomain() domain.AutomationRule {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return domain.AutomationRule{
		Name:           strings.TrimSpace(r.Name),
		TriggerEvent:   domain.SourceType(strings.TrimSpace(r.TriggerEvent)),
		Conditions:     r.Conditions,
		AccountMapping: r.AccountMapping,
		ScheduleType:   domain.ScheduleType(r.ScheduleType),
		IsActive:       active,
		AutoPost:       r.AutoPost,
		Priority:       r.Priority,
	}
}

// SetRuleActiveRequest toggles a rule.
type SetRuleActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ListRulesParams defines the query parameters for listing rules.
type ListRulesParams struct {
	TriggerEvent string `form:"triggerEvent"`
	ActiveOnly   bool   `form:"activeOnly"`
}
