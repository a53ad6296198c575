package services

import (
	"context"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

// ExecuteOptions controls a rule execution.
type ExecuteOptions struct {
	// DryRun exercises the full pipeline, store constraints included, without persisting.
	DryRun bool
}

// RuleEngineSvc evaluates and executes rules against events.
type RuleEngineSvc interface {
	// Evaluate returns the active rules matching the event, by priority.
	Evaluate(ctx context.Context, tenantID string, event domain.BusinessEvent) ([]domain.AutomationRule, error)

	Execute(ctx context.Context, tenantID string, rule domain.AutomationRule, event domain.BusinessEvent, opts ExecuteOptions, userID string) (domain.RuleExecution, error)

	// Test is a dry-run Execute of a stored rule.
	Test(ctx context.Context, tenantID, ruleID string, event domain.BusinessEvent, userID string) (domain.RuleExecution, error)

	// ProcessEvent evaluates the event and executes every matching rule.
	ProcessEvent(ctx context.Context, tenantID string, event domain.BusinessEvent, userID string) ([]domain.RuleExecution, error)
}

// RuleManagementSvc defines rule CRUD operations.
type RuleManagementSvc interface {
	CreateRule(ctx context.Context, tenantID string, rule domain.AutomationRule, userID string) (*domain.AutomationRule, error)
	UpdateRule(ctx context.Context, tenantID string, rule domain.AutomationRule, userID string) (*domain.AutomationRule, error)
	SetRuleActive(ctx context.Context, tenantID, ruleID string, active bool, userID string) (*domain.AutomationRule, error)
	GetRule(ctx context.Context, tenantID, ruleID string) (*domain.AutomationRule, error)
	ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]domain.AutomationRule, error)
}

// AutomationSvcFacade combines all automation service interfaces.
type AutomationSvcFacade interface {
	RuleEngineSvc
	RuleManagementSvc
}
