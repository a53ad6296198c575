package mapping

import (
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/SscSPs/fleet_ledger/internal/models"
)

// ToModelJournalEntry converts a domain JournalEntry to a model JournalEntry
func ToModelJournalEntry(d domain.JournalEntry) models.JournalEntry {
	return models.JournalEntry{
		EntryID:       d.EntryID,
		TenantID:      d.TenantID,
		EntryDate:     d.EntryDate,
		Reference:     d.Reference,
		Description:   d.Description,
		DebitAccount:  d.DebitAccount,
		CreditAccount: d.CreditAccount,
		DebitAmount:   d.DebitAmount,
		CreditAmount:  d.CreditAmount,
		SourceType:    string(d.SourceType),
		SourceID:      d.SourceID,
		Period:        domain.StringPtr(d.Period),
		ContractID:    d.ContractID,
		CustomerID:    d.CustomerID,
		VehicleID:     d.VehicleID,
		RuleID:        d.RuleID,
		Status:        models.JournalEntryStatus(d.Status),
		Notes:         domain.StringPtr(d.Notes),
		PostedAt:      d.PostedAt,
		ReversedAt:    d.ReversedAt,
		AuditFields:   models.AuditFields(d.AuditFields),
	}
}

// ToDomainJournalEntry converts a model JournalEntry to a domain JournalEntry
func ToDomainJournalEntry(m models.JournalEntry) domain.JournalEntry {
	return domain.JournalEntry{
		EntryID:       m.EntryID,
		TenantID:      m.TenantID,
		EntryDate:     m.EntryDate,
		Reference:     m.Reference,
		Description:   m.Description,
		DebitAccount:  m.DebitAccount,
		CreditAccount: m.CreditAccount,
		DebitAmount:   m.DebitAmount,
		CreditAmount:  m.CreditAmount,
		SourceType:    domain.SourceType(m.SourceType),
		SourceID:      m.SourceID,
		Period:        domain.StringValue(m.Period),
		ContractID:    m.ContractID,
		CustomerID:    m.CustomerID,
		VehicleID:     m.VehicleID,
		RuleID:        m.RuleID,
		Status:        domain.EntryStatus(m.Status),
		Notes:         domain.StringValue(m.Notes),
		PostedAt:      m.PostedAt,
		ReversedAt:    m.ReversedAt,
		AuditFields:   domain.AuditFields(m.AuditFields),
	}
}

// ToDomainJournalEntrySlice converts a slice of model entries to domain entries
func ToDomainJournalEntrySlice(ms []models.JournalEntry) []domain.JournalEntry {
	ds := make([]domain.JournalEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainJournalEntry(m)
	}
	return ds
}
