package models

import "time"

// RuleCondition is the JSONB shape of one stored condition.
type RuleCondition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// AutomationRule is a row of the automation_rules table.
type AutomationRule struct {
	RuleID              string          `db:"rule_id"`
	TenantID            string          `db:"tenant_id"`
	Name                string          `db:"name"`
	TriggerEvent        string          `db:"trigger_event"`
	Conditions          []RuleCondition `db:"conditions"` // JSONB
	DebitAccount        *string         `db:"debit_account"`
	CreditAccount       *string         `db:"credit_account"`
	DescriptionTemplate *string         `db:"description_template"`
	ScheduleType        *string         `db:"schedule_type"`
	IsActive            bool            `db:"is_active"`
	AutoPost            bool            `db:"auto_post"`
	Priority            int             `db:"priority"`
	TriggerCount        int64           `db:"trigger_count"`
	LastTriggeredAt     *time.Time      `db:"last_triggered_at"`
	AuditFields
}
