package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_ledger/internal/models"
	"github.com/SscSPs/fleet_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ruleColumns = `
	rule_id, tenant_id, name, trigger_event, conditions, debit_account, credit_account,
	description_template, schedule_type, is_active, auto_post, priority, trigger_count,
	last_triggered_at, created_at, created_by, last_updated_at, last_updated_by`

type PgxAutomationRuleRepository struct {
	BaseRepository
}

func newPgxAutomationRuleRepository(pool *pgxpool.Pool) portsrepo.AutomationRuleRepositoryFacade {
	return &PgxAutomationRuleRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AutomationRuleRepositoryFacade = (*PgxAutomationRuleRepository)(nil)

func scanRule(row pgx.Row) (models.AutomationRule, error) {
	var m models.AutomationRule
	err := row.Scan(
		&m.RuleID,
		&m.TenantID,
		&m.Name,
		&m.TriggerEvent,
		&m.Conditions, // JSONB decoded by pgx
		&m.DebitAccount,
		&m.CreditAccount,
		&m.DescriptionTemplate,
		&m.ScheduleType,
		&m.IsActive,
		&m.AutoPost,
		&m.Priority,
		&m.TriggerCount,
		&m.LastTriggeredAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// FindRuleByID retrieves a rule by its ID.
func (r *PgxAutomationRuleRepository) FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.AutomationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE tenant_id = $1 AND rule_id = $2;`
	m, err := scanRule(r.conn(ctx).QueryRow(ctx, query, tenantID, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateError(err, "failed to find automation rule "+ruleID)
	}
	rule := mapping.ToDomainAutomationRule(m)
	return &rule, nil
}

// ListRules returns rules ordered by priority, then creation time.
func (r *PgxAutomationRuleRepository) ListRules(ctx context.Context, tenantID string, filter domain.RuleFilter) ([]domain.AutomationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE tenant_id = $1
		  AND ($2 = '' OR trigger_event = $2)
		  AND (NOT $3 OR is_active)
		ORDER BY priority, created_at, rule_id;
	`
	rows, err := r.conn(ctx).Query(ctx, query, tenantID, string(filter.TriggerEvent), filter.ActiveOnly)
	if err != nil {
		return nil, translateError(err, "failed to query automation rules")
	}
	defer rows.Close()

	rules := []domain.AutomationRule{}
	for rows.Next() {
		m, err := scanRule(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan automation rule row")
		}
		rules = append(rules, mapping.ToDomainAutomationRule(m))
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "error iterating automation rule rows")
	}
	return rules, nil
}

// SaveRule inserts a new rule.
func (r *PgxAutomationRuleRepository) SaveRule(ctx context.Context, rule domain.AutomationRule) error {
	m := mapping.ToModelAutomationRule(rule)
	query := `
		INSERT INTO automation_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err := r.conn(ctx).Exec(ctx, query,
		m.RuleID,
		m.TenantID,
		m.Name,
		m.TriggerEvent,
		m.Conditions,
		m.DebitAccount,
		m.CreditAccount,
		m.DescriptionTemplate,
		m.ScheduleType,
		m.IsActive,
		m.AutoPost,
		m.Priority,
		m.TriggerCount,
		m.LastTriggeredAt,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return translateError(err, "failed to insert automation rule "+m.RuleID)
	}
	return nil
}

// UpdateRule replaces the configurable fields of a rule.
func (r *PgxAutomationRuleRepository) UpdateRule(ctx context.Context, rule domain.AutomationRule) error {
	m := mapping.ToModelAutomationRule(rule)
	query := `
		UPDATE automation_rules
		SET name = $3, trigger_event = $4, conditions = $5, debit_account = $6, credit_account = $7,
		    description_template = $8, schedule_type = $9, is_active = $10, auto_post = $11,
		    priority = $12, last_updated_at = $13, last_updated_by = $14
		WHERE tenant_id = $1 AND rule_id = $2;
	`
	cmdTag, err := r.conn(ctx).Exec(ctx, query,
		m.TenantID,
		m.RuleID,
		m.Name,
		m.TriggerEvent,
		m.Conditions,
		m.DebitAccount,
		m.CreditAccount,
		m.DescriptionTemplate,
		m.ScheduleType,
		m.IsActive,
		m.AutoPost,
		m.Priority,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return translateError(err, "failed to update automation rule "+m.RuleID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetRuleActive enables or disables a rule.
func (r *PgxAutomationRuleRepository) SetRuleActive(ctx context.Context, tenantID, ruleID string, active bool, userID string, at time.Time) error {
	query := `
		UPDATE automation_rules
		SET is_active = $3, last_updated_at = $4, last_updated_by = $5
		WHERE tenant_id = $1 AND rule_id = $2;
	`
	cmdTag, err := r.conn(ctx).Exec(ctx, query, tenantID, ruleID, active, at, userID)
	if err != nil {
		return translateError(err, "failed to toggle automation rule "+ruleID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RecordTrigger increments the rule's trigger counter.
func (r *PgxAutomationRuleRepository) RecordTrigger(ctx context.Context, tenantID, ruleID string, at time.Time) error {
	query := `
		UPDATE automation_rules
		SET trigger_count = trigger_count + 1, last_triggered_at = $3
		WHERE tenant_id = $1 AND rule_id = $2;
	`
	cmdTag, err := r.conn(ctx).Exec(ctx, query, tenantID, ruleID, at)
	if err != nil {
		return translateError(err, "failed to record trigger of automation rule "+ruleID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
