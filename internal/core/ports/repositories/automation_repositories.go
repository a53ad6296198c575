package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

// AutomationRuleReader defines read operations for automation rules.
type AutomationRuleReader interface {
	FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.AutomationRule, error)

	// ListRules returns rules ordered by priority, then creation time.
	ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]domain.AutomationRule, error)
}

// AutomationRuleWriter defines write operations for automation rules.
type AutomationRuleWriter interface {
	SaveRule(ctx context.Context, rule domain.AutomationRule) error
	UpdateRule(ctx context.Context, rule domain.AutomationRule) error
	SetRuleActive(ctx context.Context, tenantID, ruleID string, active bool, userID string, at time.Time) error

	// RecordTrigger increments the trigger counter of a rule.
	RecordTrigger(ctx context.Context, tenantID, ruleID string, at time.Time) error
}

// AutomationRuleRepositoryFacade combines all rule repository interfaces
type AutomationRuleRepositoryFacade interface {
	AutomationRuleReader
	AutomationRuleWriter
}
