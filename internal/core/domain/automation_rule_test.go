package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() domain.BusinessEvent {
	contract := "contract-9"
	return domain.BusinessEvent{
		SourceType: domain.SourcePayment,
		SourceID:   "pay-1",
		Amount:     decimal.RequireFromString("1500.000"),
		ContractID: &contract,
		Category:   "company",
		Date:       time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
		Fields: map[string]string{
			domain.FieldPaymentMethod: "bank_transfer",
			domain.FieldReceiptNumber: "RC-2024-0099",
			domain.FieldPlateNumber:   "ignored for payments",
		},
	}
}

func TestCondition_Matches(t *testing.T) {
	event := sampleEvent()
	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"equals numeric", domain.Condition{Field: "amount", Operator: domain.OpEquals, Value: "1500"}, true},
		{"equals text", domain.Condition{Field: "payment_method", Operator: domain.OpEquals, Value: "bank_transfer"}, true},
		{"equals is case sensitive", domain.Condition{Field: "payment_method", Operator: domain.OpEquals, Value: "BANK_TRANSFER"}, false},
		{"not equals", domain.Condition{Field: "category", Operator: domain.OpNotEquals, Value: "individual"}, true},
		{"greater than", domain.Condition{Field: "amount", Operator: domain.OpGreaterThan, Value: "1000"}, true},
		{"greater than equal value", domain.Condition{Field: "amount", Operator: domain.OpGreaterThan, Value: "1500"}, false},
		{"less than", domain.Condition{Field: "amount", Operator: domain.OpLessThan, Value: "1000"}, false},
		{"numeric operator on text", domain.Condition{Field: "payment_method", Operator: domain.OpGreaterThan, Value: "1"}, false},
		{"contains", domain.Condition{Field: "receipt_number", Operator: domain.OpContains, Value: "2024"}, true},
		{"starts with", domain.Condition{Field: "receipt_number", Operator: domain.OpStartsWith, Value: "RC-"}, true},
		{"ends with", domain.Condition{Field: "receipt_number", Operator: domain.OpEndsWith, Value: "0098"}, false},
		{"common field", domain.Condition{Field: "contract_id", Operator: domain.OpEquals, Value: "contract-9"}, true},
		{"absent optional field", domain.Condition{Field: "vehicle_id", Operator: domain.OpNotEquals, Value: "x"}, false},
		{"field of another source type", domain.Condition{Field: "plate_number", Operator: domain.OpContains, Value: "ignored"}, false},
		{"unknown field", domain.Condition{Field: "colour", Operator: domain.OpEquals, Value: "red"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Matches(event))
		})
	}
}

func TestAutomationRule_Matches(t *testing.T) {
	rule := domain.AutomationRule{
		Name:         "big transfers",
		TriggerEvent: domain.SourcePayment,
		IsActive:     true,
		Conditions: []domain.Condition{
			{Field: "amount", Operator: domain.OpGreaterThan, Value: "1000"},
			{Field: "payment_method", Operator: domain.OpEquals, Value: "bank_transfer"},
		},
	}
	event := sampleEvent()
	assert.True(t, rule.Matches(event))

	rule.IsActive = false
	assert.False(t, rule.Matches(event))
	assert.True(t, rule.ConditionsMatch(event))

	rule.IsActive = true
	event.Amount = decimal.NewFromInt(999)
	assert.False(t, rule.Matches(event))

	event = sampleEvent()
	event.SourceType = domain.SourceInvoice
	assert.False(t, rule.Matches(event))

	rule.Conditions = nil
	assert.True(t, rule.Matches(sampleEvent()))
}

func TestAutomationRule_ValidateWarnsOnUnknownFields(t *testing.T) {
	rule := domain.AutomationRule{
		Name:         "odd",
		TriggerEvent: domain.SourceDepreciation,
		Conditions: []domain.Condition{
			{Field: "plate_number", Operator: domain.OpStartsWith, Value: "KA"},
			{Field: "customer_name", Operator: domain.OpEquals, Value: "x"},
		},
	}
	unknown, err := rule.Validate()
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_name"}, unknown)

	rule.ScheduleType = "hourly"
	_, err = rule.Validate()
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
