package services

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// BuildOptions carries the caller context of a build.
type BuildOptions struct {
	UserID string
	// RuleID tags the entries and their references as rule-driven.
	RuleID string
	// DescriptionTemplate replaces the template description pattern when set.
	DescriptionTemplate string
	// Now stamps audit fields; zero means time.Now.
	Now time.Time
}

// JournalBuilderSvc turns an event and resolved accounts into balanced entries.
type JournalBuilderSvc interface {
	Build(tenantID string, event domain.BusinessEvent, resolved domain.ResolvedAccounts, opts BuildOptions) ([]domain.JournalEntry, error)
}

// SaveResult is the outcome of persisting a group of entries.
type SaveResult struct {
	EntryIDs []string              `json:"entryIDs"`
	Entries  []domain.JournalEntry `json:"entries"`
	// Created is false when the entries already existed from an earlier
	// delivery of the same event, or for a dry run.
	Created bool `json:"created"`
	Posted  bool `json:"posted"`
}

// LedgerReaderSvc defines read operations for journal entries.
type LedgerReaderSvc interface {
	GetEntry(ctx context.Context, tenantID, entryID string) (*domain.JournalEntry, error)

	// ListEntries returns one page of entries, newest first, and the token of the next page.
	ListEntries(ctx context.Context, tenantID string, filter domain.EntryFilter) ([]domain.JournalEntry, *string, error)

	// GetBalance sums posted debits minus posted credits of an account.
	GetBalance(ctx context.Context, tenantID, accountCode string, asOf *time.Time) (decimal.Decimal, error)
}

// LedgerWriterSvc defines write operations for journal entries.
type LedgerWriterSvc interface {
	// SaveEntries validates and atomically persists entries for a tenant.
	SaveEntries(ctx context.Context, tenantID string, entries []domain.JournalEntry, opts portsrepo.SaveOptions) (SaveResult, error)

	// JournalEvent resolves, builds and saves the entries of an event, posting them when autoPost is set.
	JournalEvent(ctx context.Context, tenantID string, event domain.BusinessEvent, userID string, autoPost bool) (SaveResult, error)
}

// LedgerSvcFacade combines all ledger service interfaces.
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
}

// PostingSvc moves entries through pending -> posted -> reversed.
type PostingSvc interface {
	// Post is idempotent: posting a posted entry returns it unchanged.
	Post(ctx context.Context, tenantID, entryID, userID string) (*domain.JournalEntry, error)

	// Reverse marks a posted entry reversed, recording the reason.
	Reverse(ctx context.Context, tenantID, entryID, reason, userID string) (*domain.JournalEntry, error)

	// Discard deletes a pending entry.
	Discard(ctx context.Context, tenantID, entryID, userID string) error
}
