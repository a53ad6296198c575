package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func largeInvoiceRule() domain.AutomationRule {
	return domain.AutomationRule{
		Name:         "Large invoices",
		TriggerEvent: domain.SourceInvoice,
		Conditions: []domain.Condition{
			{Field: domain.FieldAmount, Operator: domain.OpGreaterThan, Value: "1000"},
		},
		IsActive: true,
	}
}

func (e *env) createRule(t *testing.T, rule domain.AutomationRule) *domain.AutomationRule {
	t.Helper()
	created, err := e.svc.Automation.CreateRule(context.Background(), testTenant, rule, testUser)
	require.NoError(t, err)
	return created
}

func TestCreateRule(t *testing.T) {
	e := newEnv(t)
	rule := largeInvoiceRule()
	rule.Name = "  Large invoices  "
	rule.TriggerCount = 40

	created := e.createRule(t, rule)
	assert.NotEmpty(t, created.RuleID)
	assert.Equal(t, testTenant, created.TenantID)
	assert.Equal(t, "Large invoices", created.Name)
	assert.Zero(t, created.TriggerCount)
	assert.Equal(t, testUser, created.CreatedBy)

	stored, err := e.svc.Automation.GetRule(context.Background(), testTenant, created.RuleID)
	require.NoError(t, err)
	assert.Equal(t, created.Conditions, stored.Conditions)
}

func TestCreateRule_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *domain.AutomationRule)
		want   error
	}{
		{"missing name", func(r *domain.AutomationRule) { r.Name = " " }, apperrors.ErrValidation},
		{"unknown trigger", func(r *domain.AutomationRule) { r.TriggerEvent = "fuel_card" }, apperrors.ErrValidation},
		{"bad operator", func(r *domain.AutomationRule) { r.Conditions[0].Operator = "matches" }, apperrors.ErrValidation},
		{"non numeric comparison", func(r *domain.AutomationRule) { r.Conditions[0].Value = "lots" }, apperrors.ErrValidation},
		{"half mapping", func(r *domain.AutomationRule) { r.AccountMapping.DebitAccount = "1130000" }, apperrors.ErrValidation},
		{"bad mapped code", func(r *domain.AutomationRule) {
			r.AccountMapping = domain.AccountMapping{DebitAccount: "113", CreditAccount: "4110000"}
		}, apperrors.ErrInvalidAccountCode},
		{"same mapped accounts", func(r *domain.AutomationRule) {
			r.AccountMapping = domain.AccountMapping{DebitAccount: "1130000", CreditAccount: "1130000"}
		}, apperrors.ErrUnbalancedConstruction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			rule := largeInvoiceRule()
			tt.mutate(&rule)
			_, err := e.svc.Automation.CreateRule(context.Background(), testTenant, rule, testUser)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvaluate_GreaterThan(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rule := e.createRule(t, largeInvoiceRule())

	matched, err := e.svc.Automation.Evaluate(ctx, testTenant, invoiceEvent("inv-20", "1500"))
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, rule.RuleID, matched[0].RuleID)

	matched, err = e.svc.Automation.Evaluate(ctx, testTenant, invoiceEvent("inv-21", "900"))
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestEvaluate_InactiveAndOtherTriggers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rule := e.createRule(t, largeInvoiceRule())
	penalty := largeInvoiceRule()
	penalty.TriggerEvent = domain.SourcePenalty
	e.createRule(t, penalty)

	_, err := e.svc.Automation.SetRuleActive(ctx, testTenant, rule.RuleID, false, testUser)
	require.NoError(t, err)

	matched, err := e.svc.Automation.Evaluate(ctx, testTenant, invoiceEvent("inv-22", "5000"))
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestProcessEvent_BooksAndCountsOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rule := largeInvoiceRule()
	rule.AutoPost = true
	created := e.createRule(t, rule)
	event := invoiceEvent("inv-23", "1500")

	execs, err := e.svc.Automation.ProcessEvent(ctx, testTenant, event, testUser)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.True(t, execs[0].Created)
	assert.True(t, execs[0].Posted)
	require.Len(t, execs[0].Entries, 1)
	entry := execs[0].Entries[0]
	assert.Equal(t, domain.EntryPosted, entry.Status)
	assert.Equal(t, created.RuleID, domain.StringValue(entry.RuleID))
	assert.True(t, strings.HasPrefix(entry.Reference, "INV-C-100-inv-23-R"))

	// Redelivery of the same event books nothing new.
	execs, err = e.svc.Automation.ProcessEvent(ctx, testTenant, event, testUser)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.False(t, execs[0].Created)

	stored, err := e.svc.Automation.GetRule(ctx, testTenant, created.RuleID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.TriggerCount)
	assert.NotNil(t, stored.LastTriggeredAt)
}

func TestExecute_AccountMappingOverride(t *testing.T) {
	e := newEnv(t)
	rule := largeInvoiceRule()
	rule.AccountMapping = domain.AccountMapping{
		DebitAccount:        "1130009",
		CreditAccount:       "4110009",
		DescriptionTemplate: "Fleet invoice {invoice_number}",
	}
	created := e.createRule(t, rule)

	exec, err := e.svc.Automation.Execute(context.Background(), testTenant, *created, invoiceEvent("inv-24", "2000"), portssvc.ExecuteOptions{}, testUser)
	require.NoError(t, err)
	require.Len(t, exec.Entries, 1)
	assert.Equal(t, "1130009", exec.Entries[0].DebitAccount)
	assert.Equal(t, "4110009", exec.Entries[0].CreditAccount)
	assert.Equal(t, "Fleet invoice I-9", exec.Entries[0].Description)
	assert.Equal(t, domain.EntryPending, exec.Entries[0].Status)
}

func TestExecute_RuleOfAnotherTenant(t *testing.T) {
	e := newEnv(t)
	created := e.createRule(t, largeInvoiceRule())

	_, err := e.svc.Automation.Execute(context.Background(), "tenant-b", *created, invoiceEvent("inv-25", "2000"), portssvc.ExecuteOptions{}, testUser)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestTestRule_DryRunDoesNotPersist(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := e.createRule(t, largeInvoiceRule())

	exec, err := e.svc.Automation.Test(ctx, testTenant, created.RuleID, invoiceEvent("inv-26", "1500"), testUser)
	require.NoError(t, err)
	assert.True(t, exec.DryRun)
	assert.True(t, exec.Matched)
	assert.False(t, exec.Created)
	require.Len(t, exec.Entries, 1)
	assert.Equal(t, "1500.000", exec.Entries[0].DebitAmount.StringFixed(3))

	entries, _, err := e.svc.Ledger.ListEntries(ctx, testTenant, domain.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	stored, err := e.svc.Automation.GetRule(ctx, testTenant, created.RuleID)
	require.NoError(t, err)
	assert.Zero(t, stored.TriggerCount)
}

func TestTestRule_ReportsPostingLikeLiveRun(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rule := largeInvoiceRule()
	rule.AutoPost = true
	created := e.createRule(t, rule)
	event := invoiceEvent("inv-29", "1500")

	preview, err := e.svc.Automation.Test(ctx, testTenant, created.RuleID, event, testUser)
	require.NoError(t, err)
	assert.True(t, preview.Posted)
	assert.False(t, preview.Created)
	require.Len(t, preview.Entries, 1)
	assert.Equal(t, domain.EntryPosted, preview.Entries[0].Status)
	assert.NotNil(t, preview.Entries[0].PostedAt)

	entries, _, err := e.svc.Ledger.ListEntries(ctx, testTenant, domain.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	live, err := e.svc.Automation.ProcessEvent(ctx, testTenant, event, testUser)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, preview.Posted, live[0].Posted)
	assert.Equal(t, preview.Entries[0].Reference, live[0].Entries[0].Reference)
	assert.Equal(t, preview.Entries[0].Status, live[0].Entries[0].Status)

	manual := largeInvoiceRule()
	manual.Name = "Large invoices, manual posting"
	manualRule := e.createRule(t, manual)
	pending, err := e.svc.Automation.Test(ctx, testTenant, manualRule.RuleID, invoiceEvent("inv-30", "1500"), testUser)
	require.NoError(t, err)
	assert.False(t, pending.Posted)
	assert.Equal(t, domain.EntryPending, pending.Entries[0].Status)
}

func TestTestRule_NoMatch(t *testing.T) {
	e := newEnv(t)
	created := e.createRule(t, largeInvoiceRule())

	exec, err := e.svc.Automation.Test(context.Background(), testTenant, created.RuleID, invoiceEvent("inv-27", "900"), testUser)
	require.NoError(t, err)
	assert.False(t, exec.Matched)
	assert.Empty(t, exec.Entries)
}

func TestUpdateRule_KeepsCounters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := e.createRule(t, largeInvoiceRule())
	_, err := e.svc.Automation.ProcessEvent(ctx, testTenant, invoiceEvent("inv-28", "1500"), testUser)
	require.NoError(t, err)

	update := *created
	update.Name = "Very large invoices"
	update.Conditions[0].Value = "5000"
	update.TriggerCount = 0

	updated, err := e.svc.Automation.UpdateRule(ctx, testTenant, update, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "Very large invoices", updated.Name)
	assert.EqualValues(t, 1, updated.TriggerCount)
	assert.Equal(t, testUser, updated.CreatedBy)
	assert.Equal(t, "user-2", updated.LastUpdatedBy)

	_, err = e.svc.Automation.UpdateRule(ctx, testTenant, domain.AutomationRule{RuleID: "missing", Name: "x", TriggerEvent: domain.SourceInvoice}, testUser)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
