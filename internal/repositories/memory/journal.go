package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_ledger/internal/utils/accounting"
	"github.com/SscSPs/fleet_ledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

// SaveEntries stores the entries if none of them collides with a stored
// reference or a live depreciation entry for the same vehicle and period.
func (s *Store) SaveEntries(ctx context.Context, tenantID string, entries []domain.JournalEntry, opts portsrepo.SaveOptions) ([]string, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	refs := make(map[string]bool, len(entries))
	periods := make(map[string]bool)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, exists := s.entries[e.EntryID]; exists {
			return nil, apperrors.NewAppError(409, "journal entry "+e.EntryID+" already exists", apperrors.ErrDuplicate)
		}
		if refs[e.Reference] || s.referenceTaken(tenantID, e.Reference) {
			return nil, apperrors.NewAppError(409, "journal entry reference "+e.Reference+" already exists", apperrors.ErrDuplicate)
		}
		refs[e.Reference] = true
		if e.SourceType == domain.SourceDepreciation && e.Status != domain.EntryReversed {
			key := e.SourceID + "|" + e.Period
			if periods[key] || s.liveDepreciation(tenantID, e.SourceID, e.Period) != nil {
				return nil, apperrors.NewAppError(409,
					fmt.Sprintf("depreciation entry for %s in %s already exists", e.SourceID, e.Period), apperrors.ErrDuplicate)
			}
			periods[key] = true
		}
		ids = append(ids, e.EntryID)
	}
	if opts.DryRun {
		return ids, nil
	}
	for _, e := range entries {
		e.TenantID = tenantID
		s.entries[e.EntryID] = e
	}
	return ids, nil
}

func (s *Store) referenceTaken(tenantID, reference string) bool {
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.Reference == reference {
			return true
		}
	}
	return false
}

func (s *Store) liveDepreciation(tenantID, vehicleID, period string) *domain.JournalEntry {
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.SourceType == domain.SourceDepreciation &&
			e.SourceID == vehicleID && e.Period == period && e.Status != domain.EntryReversed {
			found := e
			return &found
		}
	}
	return nil
}

// FindEntryByID retrieves an entry of the tenant.
func (s *Store) FindEntryByID(ctx context.Context, tenantID, entryID string) (*domain.JournalEntry, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	e, ok := s.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	return &e, nil
}

// FindEntriesByReference returns entries in the order of the requested references.
func (s *Store) FindEntriesByReference(ctx context.Context, tenantID string, references []string) ([]domain.JournalEntry, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	byRef := make(map[string]domain.JournalEntry)
	for _, e := range s.entries {
		if e.TenantID == tenantID {
			byRef[e.Reference] = e
		}
	}
	out := make([]domain.JournalEntry, 0, len(references))
	for _, ref := range references {
		if e, ok := byRef[ref]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// FindEntries lists entries newest first using cursor pagination.
func (s *Store) FindEntries(ctx context.Context, tenantID string, filter domain.EntryFilter) ([]domain.JournalEntry, *string, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	var cursor *pagination.Cursor
	if filter.NextToken != nil && *filter.NextToken != "" {
		c, decodeErr := pagination.DecodeToken(*filter.NextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", fmt.Errorf("%w: %w", apperrors.ErrValidation, decodeErr))
		}
		cursor = &c
	}

	matched := make([]domain.JournalEntry, 0)
	for _, e := range s.entries {
		if e.TenantID != tenantID || !matchesFilter(e, filter) {
			continue
		}
		if cursor != nil && !cursor.After(e.EntryDate, e.CreatedAt, e.EntryID) {
			continue
		}
		matched = append(matched, e)
	}
	sortNewestFirst(matched)

	limit := pagination.NormalizeLimit(filter.Limit)
	if len(matched) <= limit {
		return matched, nil, nil
	}
	page := matched[:limit]
	last := page[limit-1]
	token := pagination.EncodeToken(last.EntryDate, last.CreatedAt, last.EntryID)
	return page, &token, nil
}

// FindDepreciationEntry returns the live depreciation entry for a vehicle and period.
func (s *Store) FindDepreciationEntry(ctx context.Context, tenantID, vehicleID, period string) (*domain.JournalEntry, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if e := s.liveDepreciation(tenantID, vehicleID, period); e != nil {
		return e, nil
	}
	return nil, apperrors.ErrNotFound
}

// ListPostedEntries returns posted entries dated within [from, to], oldest first.
func (s *Store) ListPostedEntries(ctx context.Context, tenantID string, from, to *time.Time) ([]domain.JournalEntry, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]domain.JournalEntry, 0)
	for _, e := range s.entries {
		if e.TenantID != tenantID || e.Status != domain.EntryPosted {
			continue
		}
		if from != nil && e.EntryDate.Before(*from) {
			continue
		}
		if to != nil && e.EntryDate.After(*to) {
			continue
		}
		out = append(out, e)
	}
	sortNewestFirst(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetBalance sums posted debit legs minus posted credit legs of the account.
func (s *Store) GetBalance(ctx context.Context, tenantID, accountCode string, asOf *time.Time) (decimal.Decimal, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer unlock()

	balance := decimal.Zero
	for _, e := range s.entries {
		if e.TenantID != tenantID || e.Status != domain.EntryPosted {
			continue
		}
		if asOf != nil && e.EntryDate.After(*asOf) {
			continue
		}
		balance = balance.Add(accounting.EntryBalanceDelta(e, accountCode))
	}
	return balance, nil
}

// UpdateEntryStatus applies a compare-and-set status change.
func (s *Store) UpdateEntryStatus(ctx context.Context, tenantID, entryID string, from, to domain.EntryStatus, notes *string, userID string, at time.Time) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	e, ok := s.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	if e.Status != from {
		return fmt.Errorf("%w: entry %s is %s, expected %s", apperrors.ErrStateTransition, entryID, e.Status, from)
	}
	e.Status = to
	if notes != nil {
		e.Notes = *notes
	}
	switch to {
	case domain.EntryPosted:
		e.PostedAt = &at
	case domain.EntryReversed:
		e.ReversedAt = &at
	}
	e.LastUpdatedAt = at
	e.LastUpdatedBy = userID
	s.entries[entryID] = e
	return nil
}

// DeleteEntry removes a pending entry.
func (s *Store) DeleteEntry(ctx context.Context, tenantID, entryID string) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	e, ok := s.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	if e.Status != domain.EntryPending {
		return fmt.Errorf("%w: entry %s is %s and cannot be deleted", apperrors.ErrStateTransition, entryID, e.Status)
	}
	delete(s.entries, entryID)
	return nil
}

func matchesFilter(e domain.JournalEntry, f domain.EntryFilter) bool {
	switch {
	case f.SourceType != "" && e.SourceType != f.SourceType:
		return false
	case f.SourceID != "" && e.SourceID != f.SourceID:
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.Account != "" && e.DebitAccount != f.Account && e.CreditAccount != f.Account:
		return false
	case f.VehicleID != "" && domain.StringValue(e.VehicleID) != f.VehicleID:
		return false
	case f.ContractID != "" && domain.StringValue(e.ContractID) != f.ContractID:
		return false
	case f.CustomerID != "" && domain.StringValue(e.CustomerID) != f.CustomerID:
		return false
	case f.Period != "" && e.Period != f.Period:
		return false
	case f.DateFrom != nil && e.EntryDate.Before(*f.DateFrom):
		return false
	case f.DateTo != nil && e.EntryDate.After(*f.DateTo):
		return false
	}
	return true
}

func sortNewestFirst(entries []domain.JournalEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.EntryDate.Equal(b.EntryDate) {
			return a.EntryDate.After(b.EntryDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.EntryID > b.EntryID
	})
}
