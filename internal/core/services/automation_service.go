package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ruleReferencePattern is used when a rule maps accounts for a source type
// that has no template of its own.
const ruleReferencePattern = "RULE-{source_id}"

type automationService struct {
	BaseService
	ruleRepo  portsrepo.AutomationRuleRepositoryFacade
	txManager portsrepo.TransactionManager
	resolver  portssvc.TemplateResolverSvc
	builder   portssvc.JournalBuilderSvc
	ledger    portssvc.LedgerWriterSvc
	posting   portssvc.PostingSvc
}

// NewAutomationService creates a new AutomationService.
func NewAutomationService(
	ruleRepo portsrepo.AutomationRuleRepositoryFacade,
	txManager portsrepo.TransactionManager,
	resolver portssvc.TemplateResolverSvc,
	builder portssvc.JournalBuilderSvc,
	ledger portssvc.LedgerWriterSvc,
	posting portssvc.PostingSvc,
	storeTimeout time.Duration,
) portssvc.AutomationSvcFacade {
	return &automationService{
		BaseService: newBaseService(storeTimeout),
		ruleRepo:    ruleRepo,
		txManager:   txManager,
		resolver:    resolver,
		builder:     builder,
		ledger:      ledger,
		posting:     posting,
	}
}

var _ portssvc.AutomationSvcFacade = (*automationService)(nil)

// Evaluate implements portssvc.RuleEngineSvc
func (s *automationService) Evaluate(ctx context.Context, tenantID string, event domain.BusinessEvent) ([]domain.AutomationRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	rules, err := s.ruleRepo.ListRules(ctx, tenantID, domain.RuleFilter{TriggerEvent: event.SourceType, ActiveOnly: true})
	if err != nil {
		s.LogError(ctx, err, "Failed to list automation rules", slog.String("trigger", string(event.SourceType)))
		return nil, err
	}
	matched := make([]domain.AutomationRule, 0, len(rules))
	for _, r := range rules {
		if r.Matches(event) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Execute implements portssvc.RuleEngineSvc
func (s *automationService) Execute(ctx context.Context, tenantID string, rule domain.AutomationRule, event domain.BusinessEvent, opts portssvc.ExecuteOptions, userID string) (exec domain.RuleExecution, err error) {
	ctx, span := s.startSpan(ctx, "AutomationService.Execute", tenantID,
		attribute.String("rule_id", rule.RuleID), attribute.Bool("dry_run", opts.DryRun))
	defer func() { endSpan(span, err) }()

	exec = domain.RuleExecution{RuleID: rule.RuleID, RuleName: rule.Name, DryRun: opts.DryRun, Matched: true}
	if err := requireTenant(tenantID); err != nil {
		return exec, err
	}
	if rule.TenantID != tenantID {
		return exec, fmt.Errorf("%w: rule %s belongs to another tenant", apperrors.ErrForbidden, rule.RuleID)
	}
	if rule.TriggerEvent != event.SourceType {
		return exec, fmt.Errorf("%w: rule %s triggers on %s, not %s", apperrors.ErrValidation, rule.RuleID, rule.TriggerEvent, event.SourceType)
	}

	resolved, err := s.resolveForRule(rule, event)
	if err != nil {
		return exec, err
	}
	entries, err := s.builder.Build(tenantID, event, resolved, portssvc.BuildOptions{
		UserID:              userID,
		RuleID:              rule.RuleID,
		DescriptionTemplate: rule.AccountMapping.DescriptionTemplate,
		Now:                 s.now(),
	})
	if err != nil {
		return exec, err
	}

	if opts.DryRun {
		saved, err := s.ledger.SaveEntries(ctx, tenantID, entries, portsrepo.SaveOptions{DryRun: true})
		if err != nil {
			return exec, err
		}
		if rule.AutoPost {
			if err := previewPostAll(&saved, userID, s.now()); err != nil {
				return exec, err
			}
		}
		exec.Entries = saved.Entries
		exec.EntryIDs = saved.EntryIDs
		exec.Posted = saved.Posted
		return exec, nil
	}

	txCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	err = s.txManager.WithinTx(txCtx, func(ctx context.Context) error {
		saved, err := s.ledger.SaveEntries(ctx, tenantID, entries, portsrepo.SaveOptions{})
		if err != nil {
			return err
		}
		if rule.AutoPost {
			if err := postAll(ctx, s.posting, tenantID, &saved, userID); err != nil {
				return err
			}
		}
		if saved.Created {
			if err := s.ruleRepo.RecordTrigger(ctx, tenantID, rule.RuleID, s.now()); err != nil {
				return err
			}
		}
		exec.Entries = saved.Entries
		exec.EntryIDs = saved.EntryIDs
		exec.Created = saved.Created
		exec.Posted = saved.Posted
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Automation rule execution failed",
			slog.String("rule_id", rule.RuleID),
			slog.String("source_id", event.SourceID))
		return exec, err
	}
	s.LogInfo(ctx, "Automation rule executed",
		slog.String("rule_id", rule.RuleID),
		slog.String("source_id", event.SourceID),
		slog.Bool("created", exec.Created),
		slog.Bool("posted", exec.Posted))
	return exec, nil
}

// resolveForRule resolves the template accounts and applies the rule's
// explicit mapping on top of them.
func (s *automationService) resolveForRule(rule domain.AutomationRule, event domain.BusinessEvent) (domain.ResolvedAccounts, error) {
	mapping := rule.AccountMapping
	resolved, err := s.resolver.Resolve(event.SourceType, event.Category)
	if err != nil {
		if !mapping.Overrides() || !errors.Is(err, apperrors.ErrUnknownTemplate) {
			return domain.ResolvedAccounts{}, err
		}
		resolved = domain.ResolvedAccounts{
			SourceType:       event.SourceType,
			Category:         event.Category,
			ReferencePattern: ruleReferencePattern,
		}
	}
	if mapping.Overrides() {
		resolved.DebitAccount = mapping.DebitAccount
		resolved.CreditAccount = mapping.CreditAccount
	}
	return resolved, nil
}

// Test implements portssvc.RuleEngineSvc
func (s *automationService) Test(ctx context.Context, tenantID, ruleID string, event domain.BusinessEvent, userID string) (domain.RuleExecution, error) {
	rule, err := s.GetRule(ctx, tenantID, ruleID)
	if err != nil {
		return domain.RuleExecution{}, err
	}
	if !rule.ConditionsMatch(event) {
		return domain.RuleExecution{RuleID: rule.RuleID, RuleName: rule.Name, DryRun: true}, nil
	}
	return s.Execute(ctx, tenantID, *rule, event, portssvc.ExecuteOptions{DryRun: true}, userID)
}

// ProcessEvent implements portssvc.RuleEngineSvc
func (s *automationService) ProcessEvent(ctx context.Context, tenantID string, event domain.BusinessEvent, userID string) (executions []domain.RuleExecution, err error) {
	ctx, span := s.startSpan(ctx, "AutomationService.ProcessEvent", tenantID,
		attribute.String("source_type", string(event.SourceType)), attribute.String("source_id", event.SourceID))
	defer func() { endSpan(span, err) }()

	rules, err := s.Evaluate(ctx, tenantID, event)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("matched_rules", len(rules)))
	executions = make([]domain.RuleExecution, 0, len(rules))
	var errs []error
	for _, rule := range rules {
		exec, execErr := s.Execute(ctx, tenantID, rule, event, portssvc.ExecuteOptions{}, userID)
		if execErr != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", rule.RuleID, execErr))
			continue
		}
		executions = append(executions, exec)
	}
	return executions, errors.Join(errs...)
}

// CreateRule implements portssvc.RuleManagementSvc
func (s *automationService) CreateRule(ctx context.Context, tenantID string, rule domain.AutomationRule, userID string) (*domain.AutomationRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	rule.Name = strings.TrimSpace(rule.Name)
	if err := s.validateRule(ctx, rule); err != nil {
		return nil, err
	}

	now := s.now()
	rule.RuleID = uuid.NewString()
	rule.TenantID = tenantID
	rule.TriggerCount = 0
	rule.LastTriggeredAt = nil
	rule.AuditFields = domain.NewAuditFields(userID, now)
	if rule.Conditions == nil {
		rule.Conditions = []domain.Condition{}
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	if err := s.ruleRepo.SaveRule(ctx, rule); err != nil {
		s.LogError(ctx, err, "Failed to save automation rule", slog.String("name", rule.Name))
		return nil, err
	}
	s.LogInfo(ctx, "Automation rule created", slog.String("rule_id", rule.RuleID), slog.String("trigger", string(rule.TriggerEvent)))
	return &rule, nil
}

// UpdateRule implements portssvc.RuleManagementSvc
func (s *automationService) UpdateRule(ctx context.Context, tenantID string, rule domain.AutomationRule, userID string) (*domain.AutomationRule, error) {
	existing, err := s.GetRule(ctx, tenantID, rule.RuleID)
	if err != nil {
		return nil, err
	}
	rule.Name = strings.TrimSpace(rule.Name)
	if err := s.validateRule(ctx, rule); err != nil {
		return nil, err
	}

	rule.TenantID = tenantID
	rule.TriggerCount = existing.TriggerCount
	rule.LastTriggeredAt = existing.LastTriggeredAt
	rule.CreatedAt = existing.CreatedAt
	rule.CreatedBy = existing.CreatedBy
	rule.LastUpdatedAt = s.now()
	rule.LastUpdatedBy = userID
	if rule.Conditions == nil {
		rule.Conditions = []domain.Condition{}
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	if err := s.ruleRepo.UpdateRule(ctx, rule); err != nil {
		s.LogError(ctx, err, "Failed to update automation rule", slog.String("rule_id", rule.RuleID))
		return nil, err
	}
	return &rule, nil
}

// SetRuleActive implements portssvc.RuleManagementSvc
func (s *automationService) SetRuleActive(ctx context.Context, tenantID, ruleID string, active bool, userID string) (*domain.AutomationRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	tctx, cancel := s.withStoreTimeout(ctx)
	err := s.ruleRepo.SetRuleActive(tctx, tenantID, ruleID, active, userID, s.now())
	cancel()
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("automation rule " + ruleID)
		}
		return nil, err
	}
	return s.GetRule(ctx, tenantID, ruleID)
}

// GetRule implements portssvc.RuleManagementSvc
func (s *automationService) GetRule(ctx context.Context, tenantID, ruleID string) (*domain.AutomationRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	rule, err := s.ruleRepo.FindRuleByID(ctx, tenantID, ruleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("automation rule " + ruleID)
		}
		return nil, err
	}
	return rule, nil
}

// ListRules implements portssvc.RuleManagementSvc
func (s *automationService) ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]domain.AutomationRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	return s.ruleRepo.ListRules(ctx, tenantID, filter)
}

func (s *automationService) validateRule(ctx context.Context, rule domain.AutomationRule) error {
	unknown, err := rule.Validate()
	if err != nil {
		return err
	}
	if len(unknown) > 0 {
		s.LogWarn(ctx, "Rule conditions reference fields the trigger event does not carry",
			slog.String("name", rule.Name),
			slog.String("trigger", string(rule.TriggerEvent)),
			slog.Any("fields", unknown))
	}
	return nil
}
