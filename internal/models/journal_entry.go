package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntryStatus is the stored lifecycle state of an entry.
type JournalEntryStatus string

const (
	EntryPending  JournalEntryStatus = "pending"
	EntryPosted   JournalEntryStatus = "posted"
	EntryReversed JournalEntryStatus = "reversed"
)

// JournalEntry is a row of the journal_entries table.
type JournalEntry struct {
	EntryID       string             `db:"entry_id"`
	TenantID      string             `db:"tenant_id"`
	EntryDate     time.Time          `db:"entry_date"`
	Reference     string             `db:"reference"`
	Description   string             `db:"description"`
	DebitAccount  string             `db:"debit_account"`
	CreditAccount string             `db:"credit_account"`
	DebitAmount   decimal.Decimal    `db:"debit_amount"`
	CreditAmount  decimal.Decimal    `db:"credit_amount"`
	SourceType    string             `db:"source_type"`
	SourceID      string             `db:"source_id"`
	Period        *string            `db:"period"` // nullable, depreciation only
	ContractID    *string            `db:"contract_id"`
	CustomerID    *string            `db:"customer_id"`
	VehicleID     *string            `db:"vehicle_id"`
	RuleID        *string            `db:"rule_id"`
	Status        JournalEntryStatus `db:"status"`
	Notes         *string            `db:"notes"`
	PostedAt      *time.Time         `db:"posted_at"`
	ReversedAt    *time.Time         `db:"reversed_at"`
	AuditFields
}
