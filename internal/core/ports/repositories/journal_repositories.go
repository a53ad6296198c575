package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SaveOptions controls how a set of entries is persisted.
type SaveOptions struct {
	// DryRun exercises every write and constraint check, then discards the result.
	DryRun bool
}

// JournalEntryReader defines read operations for journal entries.
// Every method is scoped to a single tenant.
type JournalEntryReader interface {
	// FindEntryByID retrieves a specific entry by its identifier.
	FindEntryByID(ctx context.Context, tenantID, entryID string) (*domain.JournalEntry, error)

	// FindEntriesByReference retrieves the entries carrying any of the given references.
	FindEntriesByReference(ctx context.Context, tenantID string, references []string) ([]domain.JournalEntry, error)

	// FindEntries retrieves a page of entries matching the filter, newest first.
	// It returns the entries, a token for the next page, and an error.
	FindEntries(ctx context.Context, tenantID string, filter domain.EntryFilter) ([]domain.JournalEntry, *string, error)

	// FindDepreciationEntry retrieves the live (non-reversed) depreciation entry
	// for a vehicle and period, or ErrNotFound.
	FindDepreciationEntry(ctx context.Context, tenantID, vehicleID, period string) (*domain.JournalEntry, error)

	// ListPostedEntries retrieves every posted entry dated within the optional range.
	ListPostedEntries(ctx context.Context, tenantID string, from, to *time.Time) ([]domain.JournalEntry, error)

	// GetBalance sums posted debit legs minus posted credit legs for an account.
	GetBalance(ctx context.Context, tenantID, accountCode string, asOf *time.Time) (decimal.Decimal, error)
}

// JournalEntryWriter defines write operations for journal entries.
type JournalEntryWriter interface {
	// SaveEntries persists the entries atomically: all of them or none.
	SaveEntries(ctx context.Context, tenantID string, entries []domain.JournalEntry, opts SaveOptions) ([]string, error)

	// UpdateEntryStatus moves an entry from one status to another. It fails with
	// ErrStateTransition when the stored status is no longer `from`.
	UpdateEntryStatus(ctx context.Context, tenantID, entryID string, from, to domain.EntryStatus, notes *string, userID string, at time.Time) error

	// DeleteEntry removes a pending entry.
	DeleteEntry(ctx context.Context, tenantID, entryID string) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces
type JournalRepositoryFacade interface {
	JournalEntryReader
	JournalEntryWriter
}

// JournalRepositoryWithTx extends JournalRepositoryFacade with transaction capabilities
type JournalRepositoryWithTx interface {
	JournalRepositoryFacade
	TransactionManager
}
