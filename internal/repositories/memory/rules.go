package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

func cloneRule(r domain.AutomationRule) domain.AutomationRule {
	r.Conditions = append([]domain.Condition(nil), r.Conditions...)
	return r
}

// FindRuleByID retrieves a rule of the tenant.
func (s *Store) FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.AutomationRule, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, ok := s.rules[ruleID]
	if !ok || r.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	r = cloneRule(r)
	return &r, nil
}

// ListRules returns rules ordered by priority, then creation time.
func (s *Store) ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]domain.AutomationRule, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]domain.AutomationRule, 0)
	for _, r := range s.rules {
		if r.TenantID != tenantID {
			continue
		}
		if filter.TriggerEvent != "" && r.TriggerEvent != filter.TriggerEvent {
			continue
		}
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		out = append(out, cloneRule(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out, nil
}

// SaveRule inserts a new rule.
func (s *Store) SaveRule(ctx context.Context, rule domain.AutomationRule) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, exists := s.rules[rule.RuleID]; exists {
		return apperrors.NewAppError(409, "automation rule "+rule.RuleID+" already exists", apperrors.ErrDuplicate)
	}
	s.rules[rule.RuleID] = cloneRule(rule)
	return nil
}

// UpdateRule replaces the configurable fields of a rule, keeping its counters.
func (s *Store) UpdateRule(ctx context.Context, rule domain.AutomationRule) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := s.rules[rule.RuleID]
	if !ok || existing.TenantID != rule.TenantID {
		return apperrors.ErrNotFound
	}
	rule.TriggerCount = existing.TriggerCount
	rule.LastTriggeredAt = existing.LastTriggeredAt
	rule.CreatedAt = existing.CreatedAt
	rule.CreatedBy = existing.CreatedBy
	s.rules[rule.RuleID] = cloneRule(rule)
	return nil
}

// SetRuleActive enables or disables a rule.
func (s *Store) SetRuleActive(ctx context.Context, tenantID, ruleID string, active bool, userID string, at time.Time) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r, ok := s.rules[ruleID]
	if !ok || r.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	r.IsActive = active
	r.LastUpdatedAt = at
	r.LastUpdatedBy = userID
	s.rules[ruleID] = r
	return nil
}

// RecordTrigger increments the rule's trigger counter.
func (s *Store) RecordTrigger(ctx context.Context, tenantID, ruleID string, at time.Time) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	r, ok := s.rules[ruleID]
	if !ok || r.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	r.TriggerCount++
	r.LastTriggeredAt = &at
	s.rules[ruleID] = r
	return nil
}
