package domain_test

import (
	"testing"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry() domain.JournalEntry {
	return domain.JournalEntry{
		EntryID:       "e-1",
		Reference:     "INV-C-1-s-1",
		SourceType:    domain.SourceInvoice,
		SourceID:      "s-1",
		DebitAccount:  "1130001",
		CreditAccount: "4110001",
		DebitAmount:   decimal.RequireFromString("250.000"),
		CreditAmount:  decimal.RequireFromString("250"),
		Status:        domain.EntryPending,
	}
}

func TestValidateAccountCode(t *testing.T) {
	for _, code := range []string{"1130001", "0000000"} {
		assert.NoError(t, domain.ValidateAccountCode(code), code)
	}
	for _, code := range []string{"", "113000", "11300011", "11300a1", " 113000"} {
		assert.ErrorIs(t, domain.ValidateAccountCode(code), apperrors.ErrInvalidAccountCode, code)
	}
}

func TestJournalEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *domain.JournalEntry)
		wantErr error
	}{
		{name: "valid", mutate: func(e *domain.JournalEntry) {}},
		{name: "unknown source type", mutate: func(e *domain.JournalEntry) { e.SourceType = "fuel" }, wantErr: apperrors.ErrValidation},
		{name: "missing source id", mutate: func(e *domain.JournalEntry) { e.SourceID = "" }, wantErr: apperrors.ErrValidation},
		{name: "missing reference", mutate: func(e *domain.JournalEntry) { e.Reference = "" }, wantErr: apperrors.ErrValidation},
		{name: "short debit code", mutate: func(e *domain.JournalEntry) { e.DebitAccount = "11300" }, wantErr: apperrors.ErrInvalidAccountCode},
		{name: "empty credit code", mutate: func(e *domain.JournalEntry) { e.CreditAccount = "" }, wantErr: apperrors.ErrInvalidAccountCode},
		{name: "same account", mutate: func(e *domain.JournalEntry) { e.CreditAccount = e.DebitAccount }, wantErr: apperrors.ErrUnbalancedConstruction},
		{name: "legs differ", mutate: func(e *domain.JournalEntry) { e.CreditAmount = decimal.RequireFromString("249.999") }, wantErr: apperrors.ErrUnbalancedConstruction},
		{name: "zero amount", mutate: func(e *domain.JournalEntry) {
			e.DebitAmount = decimal.Zero
			e.CreditAmount = decimal.Zero
		}, wantErr: apperrors.ErrUnbalancedConstruction},
		{name: "negative amount", mutate: func(e *domain.JournalEntry) {
			e.DebitAmount = decimal.NewFromInt(-5)
			e.CreditAmount = decimal.NewFromInt(-5)
		}, wantErr: apperrors.ErrUnbalancedConstruction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var entryErr *apperrors.EntryError
			require.ErrorAs(t, err, &entryErr)
			assert.Equal(t, e.SourceID, entryErr.SourceID)
		})
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		current     domain.EntryStatus
		action      domain.EntryAction
		wantNext    domain.EntryStatus
		wantChanged bool
		wantErr     bool
	}{
		{domain.EntryPending, domain.ActionPost, domain.EntryPosted, true, false},
		{domain.EntryPosted, domain.ActionPost, domain.EntryPosted, false, false},
		{domain.EntryReversed, domain.ActionPost, domain.EntryReversed, false, true},
		{domain.EntryPosted, domain.ActionReverse, domain.EntryReversed, true, false},
		{domain.EntryPending, domain.ActionReverse, domain.EntryPending, false, true},
		{domain.EntryReversed, domain.ActionReverse, domain.EntryReversed, false, true},
		{domain.EntryPending, domain.ActionDiscard, "", true, false},
		{domain.EntryPosted, domain.ActionDiscard, domain.EntryPosted, false, true},
		{domain.EntryReversed, domain.ActionDiscard, domain.EntryReversed, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.current)+"/"+string(tt.action), func(t *testing.T) {
			next, changed, err := domain.NextStatus(tt.current, tt.action)
			assert.Equal(t, tt.wantNext, next)
			assert.Equal(t, tt.wantChanged, changed)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrStateTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPeriodHelpers(t *testing.T) {
	start, err := domain.ParsePeriod("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", domain.PeriodKey(start))
	assert.Equal(t, start, domain.MonthStart(start.AddDate(0, 0, 27)))

	_, err = domain.ParsePeriod("2024/02")
	assert.Error(t, err)
}
