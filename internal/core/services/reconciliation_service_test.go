package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookDuplicatePair posts the same invoice twice under different source ids.
func (e *env) bookDuplicatePair(t *testing.T) (domain.JournalEntry, domain.JournalEntry) {
	t.Helper()
	first := e.journal(t, invoiceEvent("inv-d1", "300"), true)
	second := e.journal(t, invoiceEvent("inv-d2", "300"), true)
	return first, second
}

func (e *env) detect(t *testing.T) portssvc.DetectionReport {
	t.Helper()
	report, err := e.svc.Reconciliation.RunDetectors(context.Background(), testTenant, portssvc.DetectOptions{}, testUser)
	require.NoError(t, err)
	return report
}

func legacyEntry(sourceID string, debitAccount, debit, creditAccount, credit string) domain.JournalEntry {
	return domain.JournalEntry{
		EntryID:       uuid.NewString(),
		EntryDate:     time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC),
		Reference:     "LEG-" + sourceID + "-" + uuid.NewString()[:8],
		SourceType:    domain.SourcePayment,
		SourceID:      sourceID,
		DebitAccount:  debitAccount,
		CreditAccount: creditAccount,
		DebitAmount:   decimal.RequireFromString(debit),
		CreditAmount:  decimal.RequireFromString(credit),
		Status:        domain.EntryPosted,
	}
}

func TestRunDetectors_CleanLedger(t *testing.T) {
	e := newEnv(t)
	e.journal(t, invoiceEvent("inv-c1", "300"), true)
	e.journal(t, invoiceEvent("inv-c2", "301"), true)
	e.journal(t, invoiceEvent("inv-c3", "300"), false)

	report := e.detect(t)
	assert.Empty(t, report.Created)
	assert.Zero(t, report.AlreadyOpen)
}

func TestRunDetectors_FlagsDuplicatePair(t *testing.T) {
	e := newEnv(t)
	first, second := e.bookDuplicatePair(t)

	report := e.detect(t)
	require.Len(t, report.Created, 1)
	log := report.Created[0]
	assert.Equal(t, domain.ToolDuplicateDetector, log.ToolID)
	assert.Equal(t, domain.ErrorDuplicateEntries, log.ErrorType)
	assert.Equal(t, domain.SeverityMedium, log.SeverityLevel)
	assert.Equal(t, domain.CorrectionDetected, log.Status)
	assert.False(t, log.ManualFixRequired)
	assert.ElementsMatch(t, []string{first.EntryID, second.EntryID}, log.AffectedEntries)
	assert.Equal(t, domain.Fingerprint(domain.ErrorDuplicateEntries, []string{second.EntryID, first.EntryID}), log.Fingerprint)
}

func TestRunDetectors_DuplicateKeyIgnoresVehicleAndCategory(t *testing.T) {
	cases := map[string]func(ev *domain.BusinessEvent){
		"other vehicle":  func(ev *domain.BusinessEvent) { ev.VehicleID = strPtr("vehicle-9") },
		"other category": func(ev *domain.BusinessEvent) { ev.Category = "company" },
	}
	for name, change := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			first := e.journal(t, invoiceEvent("inv-k1", "300"), true)
			ev := invoiceEvent("inv-k2", "300")
			change(&ev)
			second := e.journal(t, ev, true)

			report := e.detect(t)
			require.Len(t, report.Created, 1)
			assert.Equal(t, domain.SeverityMedium, report.Created[0].SeverityLevel)
			assert.ElementsMatch(t, []string{first.EntryID, second.EntryID}, report.Created[0].AffectedEntries)
		})
	}
}

func TestRunDetectors_OtherContractIsNotDuplicate(t *testing.T) {
	e := newEnv(t)
	e.journal(t, invoiceEvent("inv-o1", "300"), true)
	ev := invoiceEvent("inv-o2", "300")
	ev.ContractID = strPtr("contract-200")
	e.journal(t, ev, true)

	assert.Empty(t, e.detect(t).Created)
}

func TestRunDetectors_RerunDoesNotDuplicateLogs(t *testing.T) {
	e := newEnv(t)
	e.bookDuplicatePair(t)

	first := e.detect(t)
	require.Len(t, first.Created, 1)

	second := e.detect(t)
	assert.Empty(t, second.Created)
	assert.Equal(t, 1, second.AlreadyOpen)

	logs, err := e.svc.Reconciliation.ListCorrections(context.Background(), testTenant, domain.CorrectionFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRunDetectors_Unbalanced(t *testing.T) {
	e := newEnv(t)
	// Both legs present but the amounts disagree.
	e.putLegacy(t, legacyEntry("pay-1", "1110001", "100", "1130000", "90"))
	// Credit leg missing entirely.
	e.putLegacy(t, legacyEntry("pay-2", "1110001", "50", "", "0"))
	// Within tolerance.
	e.putLegacy(t, legacyEntry("pay-3", "1110001", "20.0005", "1130000", "20"))

	report := e.detect(t)
	require.Len(t, report.Created, 2)

	bySource := map[string]domain.CorrectionLog{}
	for _, log := range report.Created {
		assert.Equal(t, domain.ToolBalanceChecker, log.ToolID)
		assert.Equal(t, domain.ErrorUnbalancedEntries, log.ErrorType)
		assert.True(t, log.ManualFixRequired)
		require.Len(t, log.AffectedEntries, 1)
		entry, err := e.svc.Ledger.GetEntry(context.Background(), testTenant, log.AffectedEntries[0])
		require.NoError(t, err)
		bySource[entry.SourceID] = log
	}
	assert.Equal(t, domain.SeverityHigh, bySource["pay-1"].SeverityLevel)
	assert.Equal(t, domain.SeverityCritical, bySource["pay-2"].SeverityLevel)
	assert.Contains(t, bySource["pay-1"].ErrorDescription, "pay-1")
}

func TestRunDetectors_DateRange(t *testing.T) {
	e := newEnv(t)
	e.bookDuplicatePair(t)

	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	report, err := e.svc.Reconciliation.RunDetectors(context.Background(), testTenant, portssvc.DetectOptions{From: &from}, testUser)
	require.NoError(t, err)
	assert.Empty(t, report.Created)

	to := from.AddDate(0, -1, 0)
	_, err = e.svc.Reconciliation.RunDetectors(context.Background(), testTenant, portssvc.DetectOptions{From: &from, To: &to}, testUser)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTransitionStatus_Lifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.bookDuplicatePair(t)
	log := e.detect(t).Created[0]

	_, err := e.svc.Reconciliation.TransitionStatus(ctx, testTenant, log.CorrectionID, domain.CorrectionFixed, "done", testUser)
	assert.ErrorIs(t, err, apperrors.ErrStateTransition)

	reviewing, err := e.svc.Reconciliation.TransitionStatus(ctx, testTenant, log.CorrectionID, domain.CorrectionReviewing, "", testUser)
	require.NoError(t, err)
	assert.Equal(t, domain.CorrectionReviewing, reviewing.Status)
	assert.Nil(t, reviewing.ResolvedAt)

	_, err = e.svc.Reconciliation.TransitionStatus(ctx, testTenant, log.CorrectionID, domain.CorrectionFixed, "  ", testUser)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	fixed, err := e.svc.Reconciliation.TransitionStatus(ctx, testTenant, log.CorrectionID, domain.CorrectionFixed, "customer refunded", "user-2")
	require.NoError(t, err)
	assert.Equal(t, domain.CorrectionFixed, fixed.Status)
	assert.Equal(t, "customer refunded", fixed.ResolutionNotes)
	require.NotNil(t, fixed.ResolvedAt)
	assert.Equal(t, "user-2", domain.StringValue(fixed.ResolvedBy))

	_, err = e.svc.Reconciliation.TransitionStatus(ctx, testTenant, log.CorrectionID, domain.CorrectionReviewing, "", testUser)
	assert.ErrorIs(t, err, apperrors.ErrStateTransition)
}

func TestTransitionStatus_Ignore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.bookDuplicatePair(t)
	log := e.detect(t).Created[0]

	ignored, err := e.svc.Reconciliation.TransitionStatus(ctx, testTenant, log.CorrectionID, domain.CorrectionIgnored, "two real rentals", testUser)
	require.NoError(t, err)
	assert.Equal(t, domain.CorrectionIgnored, ignored.Status)
	assert.NotNil(t, ignored.ResolvedAt)

	_, err = e.svc.Reconciliation.GetCorrection(ctx, "tenant-b", log.CorrectionID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApplyAutoFix_ReversesLaterDuplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first, second := e.bookDuplicatePair(t)
	log := e.detect(t).Created[0]

	fixedLog, err := e.svc.Reconciliation.ApplyAutoFix(ctx, testTenant, log.CorrectionID, testUser)
	require.NoError(t, err)
	assert.True(t, fixedLog.AutoFixApplied)
	assert.Equal(t, domain.CorrectionDetected, fixedLog.Status)
	assert.NotEmpty(t, fixedLog.ResolutionNotes)

	statuses := map[domain.EntryStatus]int{}
	for _, id := range []string{first.EntryID, second.EntryID} {
		entry, err := e.svc.Ledger.GetEntry(ctx, testTenant, id)
		require.NoError(t, err)
		statuses[entry.Status]++
	}
	assert.Equal(t, map[domain.EntryStatus]int{domain.EntryPosted: 1, domain.EntryReversed: 1}, statuses)

	receivable, err := e.svc.Ledger.GetBalance(ctx, testTenant, "1130001", nil)
	require.NoError(t, err)
	assert.Equal(t, "300.000", receivable.StringFixed(3))

	// Applying again changes nothing.
	again, err := e.svc.Reconciliation.ApplyAutoFix(ctx, testTenant, log.CorrectionID, testUser)
	require.NoError(t, err)
	assert.Equal(t, fixedLog.ResolutionNotes, again.ResolutionNotes)

	// With the fix applied the correction can be closed without notes.
	_, err = e.svc.Reconciliation.TransitionStatus(ctx, testTenant, log.CorrectionID, domain.CorrectionReviewing, "", testUser)
	require.NoError(t, err)
	closed, err := e.svc.Reconciliation.TransitionStatus(ctx, testTenant, log.CorrectionID, domain.CorrectionFixed, "", testUser)
	require.NoError(t, err)
	assert.Equal(t, domain.CorrectionFixed, closed.Status)

	assert.Empty(t, e.detect(t).Created)
}

func TestApplyAutoFix_OnlyForDuplicates(t *testing.T) {
	e := newEnv(t)
	e.putLegacy(t, legacyEntry("pay-9", "1110001", "100", "1130000", "90"))
	log := e.detect(t).Created[0]

	_, err := e.svc.Reconciliation.ApplyAutoFix(context.Background(), testTenant, log.CorrectionID, testUser)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
