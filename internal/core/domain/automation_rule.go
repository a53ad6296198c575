package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
)

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

// ScheduleType marks rules meant for time-based triggers.
type ScheduleType string

const (
	ScheduleNone    ScheduleType = ""
	ScheduleDaily   ScheduleType = "daily"
	ScheduleMonthly ScheduleType = "monthly"
)

// Condition is a single {field, operator, value} test against an event.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Matches applies the condition to an event. A field the event does not
// carry never matches.
func (c Condition) Matches(event BusinessEvent) bool {
	actual, ok := event.Field(c.Field)
	if !ok {
		return false
	}
	switch c.Operator {
	case OpEquals:
		return valuesEqual(actual, c.Value)
	case OpNotEquals:
		return !valuesEqual(actual, c.Value)
	case OpGreaterThan, OpLessThan:
		a, errA := decimal.NewFromString(actual)
		b, errB := decimal.NewFromString(c.Value)
		if errA != nil || errB != nil {
			return false
		}
		if c.Operator == OpGreaterThan {
			return a.GreaterThan(b)
		}
		return a.LessThan(b)
	case OpContains:
		return strings.Contains(actual, c.Value)
	case OpStartsWith:
		return strings.HasPrefix(actual, c.Value)
	case OpEndsWith:
		return strings.HasSuffix(actual, c.Value)
	}
	return false
}

// valuesEqual compares numerically when both sides parse as numbers, so
// "1500" equals "1500.000".
func valuesEqual(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA == nil && errB == nil {
		return da.Equal(db)
	}
	return a == b
}

// AccountMapping lets a rule book to explicit accounts instead of the template.
type AccountMapping struct {
	DebitAccount        string `json:"debitAccount,omitempty"`
	CreditAccount       string `json:"creditAccount,omitempty"`
	DescriptionTemplate string `json:"descriptionTemplate,omitempty"`
}

// Overrides reports whether the mapping replaces template resolution.
func (m AccountMapping) Overrides() bool {
	return m.DebitAccount != "" && m.CreditAccount != ""
}

// AutomationRule turns matching business events into journal entries.
type AutomationRule struct {
	RuleID          string         `json:"ruleID"`
	TenantID        string         `json:"tenantID"`
	Name            string         `json:"name"`
	TriggerEvent    SourceType     `json:"triggerEvent"`
	Conditions      []Condition    `json:"conditions"`
	AccountMapping  AccountMapping `json:"accountMapping"`
	ScheduleType    ScheduleType   `json:"scheduleType,omitempty"`
	IsActive        bool           `json:"isActive"`
	AutoPost        bool           `json:"autoPost"`
	Priority        int            `json:"priority"`
	TriggerCount    int64          `json:"triggerCount"`
	LastTriggeredAt *time.Time     `json:"lastTriggeredAt,omitempty"`
	AuditFields
}

// Matches reports whether an active rule fires for the event.
func (r AutomationRule) Matches(event BusinessEvent) bool {
	return r.IsActive && r.ConditionsMatch(event)
}

// ConditionsMatch reports whether the event has the rule's trigger type and
// satisfies every condition, regardless of whether the rule is active.
func (r AutomationRule) ConditionsMatch(event BusinessEvent) bool {
	if r.TriggerEvent != event.SourceType {
		return false
	}
	for _, c := range r.Conditions {
		if !c.Matches(event) {
			return false
		}
	}
	return true
}

// Validate checks the rule configuration. It returns the names of condition
// fields the trigger event does not carry; those are warnings, not errors.
func (r AutomationRule) Validate() (unknownFields []string, err error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("%w: rule name is required", apperrors.ErrValidation)
	}
	if !r.TriggerEvent.Valid() {
		return nil, fmt.Errorf("%w: unsupported trigger event %q", apperrors.ErrValidation, r.TriggerEvent)
	}
	switch r.ScheduleType {
	case ScheduleNone, ScheduleDaily, ScheduleMonthly:
	default:
		return nil, fmt.Errorf("%w: unsupported schedule type %q", apperrors.ErrValidation, r.ScheduleType)
	}
	for i, c := range r.Conditions {
		if c.Field == "" {
			return nil, fmt.Errorf("%w: condition %d has no field", apperrors.ErrValidation, i)
		}
		if !c.Operator.Valid() {
			return nil, fmt.Errorf("%w: condition %d has unsupported operator %q", apperrors.ErrValidation, i, c.Operator)
		}
		if c.Operator == OpGreaterThan || c.Operator == OpLessThan {
			if _, perr := decimal.NewFromString(c.Value); perr != nil {
				return nil, fmt.Errorf("%w: condition %d value %q is not numeric", apperrors.ErrValidation, i, c.Value)
			}
		}
		if !KnownField(r.TriggerEvent, c.Field) {
			unknownFields = append(unknownFields, c.Field)
		}
	}
	m := r.AccountMapping
	if (m.DebitAccount == "") != (m.CreditAccount == "") {
		return nil, fmt.Errorf("%w: account mapping needs both debit and credit accounts or neither", apperrors.ErrValidation)
	}
	if m.Overrides() {
		if err := ValidateAccountCode(m.DebitAccount); err != nil {
			return nil, err
		}
		if err := ValidateAccountCode(m.CreditAccount); err != nil {
			return nil, err
		}
		if m.DebitAccount == m.CreditAccount {
			return nil, fmt.Errorf("%w: rule maps debit and credit to the same account %s", apperrors.ErrUnbalancedConstruction, m.DebitAccount)
		}
	}
	return unknownFields, nil
}

// RuleExecution is the outcome of running one rule against one event.
type RuleExecution struct {
	RuleID   string         `json:"ruleID"`
	RuleName string         `json:"ruleName"`
	DryRun   bool           `json:"dryRun"`
	Matched  bool           `json:"matched"`
	Entries  []JournalEntry `json:"entries"`
	EntryIDs []string       `json:"entryIDs"`
	Created  bool           `json:"created"`
	Posted   bool           `json:"posted"`
}
