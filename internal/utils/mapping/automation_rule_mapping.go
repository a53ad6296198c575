package mapping

import (
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/SscSPs/fleet_ledger/internal/models"
)

// ToModelAutomationRule converts a domain rule to its row model
func ToModelAutomationRule(d domain.AutomationRule) models.AutomationRule {
	conditions := make([]models.RuleCondition, len(d.Conditions))
	for i, c := range d.Conditions {
		conditions[i] = models.RuleCondition{Field: c.Field, Operator: string(c.Operator), Value: c.Value}
	}
	return models.AutomationRule{
		RuleID:              d.RuleID,
		TenantID:            d.TenantID,
		Name:                d.Name,
		TriggerEvent:        string(d.TriggerEvent),
		Conditions:          conditions,
		DebitAccount:        domain.StringPtr(d.AccountMapping.DebitAccount),
		CreditAccount:       domain.StringPtr(d.AccountMapping.CreditAccount),
		DescriptionTemplate: domain.StringPtr(d.AccountMapping.DescriptionTemplate),
		ScheduleType:        domain.StringPtr(string(d.ScheduleType)),
		IsActive:            d.IsActive,
		AutoPost:            d.AutoPost,
		Priority:            d.Priority,
		TriggerCount:        d.TriggerCount,
		LastTriggeredAt:     d.LastTriggeredAt,
		AuditFields:         models.AuditFields(d.AuditFields),
	}
}

// ToDomainAutomationRule converts a row model to a domain rule
func ToDomainAutomationRule(m models.AutomationRule) domain.AutomationRule {
	conditions := make([]domain.Condition, len(m.Conditions))
	for i, c := range m.Conditions {
		conditions[i] = domain.Condition{Field: c.Field, Operator: domain.Operator(c.Operator), Value: c.Value}
	}
	return domain.AutomationRule{
		RuleID:       m.RuleID,
		TenantID:     m.TenantID,
		Name:         m.Name,
		TriggerEvent: domain.SourceType(m.TriggerEvent),
		Conditions:   conditions,
		AccountMapping: domain.AccountMapping{
			DebitAccount:        domain.StringValue(m.DebitAccount),
			CreditAccount:       domain.StringValue(m.CreditAccount),
			DescriptionTemplate: domain.StringValue(m.DescriptionTemplate),
		},
		ScheduleType:    domain.ScheduleType(domain.StringValue(m.ScheduleType)),
		IsActive:        m.IsActive,
		AutoPost:        m.AutoPost,
		Priority:        m.Priority,
		TriggerCount:    m.TriggerCount,
		LastTriggeredAt: m.LastTriggeredAt,
		AuditFields:     domain.AuditFields(m.AuditFields),
	}
}
