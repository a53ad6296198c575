package accounting

import (
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Round rounds an amount to the currency scale, half away from zero.
func Round(amount decimal.Decimal, scale int32) decimal.Decimal {
	return amount.Round(scale)
}

// EntryBalanceDelta is the effect of a posted entry on an account balance:
// its debit leg adds, its credit leg subtracts.
func EntryBalanceDelta(e domain.JournalEntry, accountCode string) decimal.Decimal {
	delta := decimal.Zero
	if e.DebitAccount == accountCode {
		delta = delta.Add(e.DebitAmount)
	}
	if e.CreditAccount == accountCode {
		delta = delta.Sub(e.CreditAmount)
	}
	return delta
}

// LegTotals sums the debit legs and the credit legs of entries.
func LegTotals(entries []domain.JournalEntry) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range entries {
		debit = debit.Add(e.DebitAmount)
		credit = credit.Add(e.CreditAmount)
	}
	return debit, credit
}

// HasMissingLeg reports whether one side of the entry is absent: no account
// or a zero amount while the other side carries value.
func HasMissingLeg(e domain.JournalEntry) bool {
	debitMissing := e.DebitAccount == "" || e.DebitAmount.IsZero()
	creditMissing := e.CreditAccount == "" || e.CreditAmount.IsZero()
	return debitMissing != creditMissing
}

// UnmatchedLegTotal is the signed value of legs that have no counterpart:
// a debit-only entry adds its debit, a credit-only entry subtracts its credit.
func UnmatchedLegTotal(entries []domain.JournalEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if !HasMissingLeg(e) {
			continue
		}
		if e.CreditAccount == "" || e.CreditAmount.IsZero() {
			total = total.Add(e.DebitAmount)
		} else {
			total = total.Sub(e.CreditAmount)
		}
	}
	return total
}

// TotalAmount sums the amounts of entries.
func TotalAmount(entries []domain.JournalEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount())
	}
	return total
}
