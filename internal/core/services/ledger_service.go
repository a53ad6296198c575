package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ledgerService is the application layer over the journal store.
type ledgerService struct {
	BaseService
	journalRepo portsrepo.JournalRepositoryWithTx
	txManager   portsrepo.TransactionManager
	resolver    portssvc.TemplateResolverSvc
	builder     portssvc.JournalBuilderSvc
	posting     portssvc.PostingSvc
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	journalRepo portsrepo.JournalRepositoryWithTx,
	txManager portsrepo.TransactionManager,
	resolver portssvc.TemplateResolverSvc,
	builder portssvc.JournalBuilderSvc,
	posting portssvc.PostingSvc,
	storeTimeout time.Duration,
) portssvc.LedgerSvcFacade {
	return &ledgerService{
		BaseService: newBaseService(storeTimeout),
		journalRepo: journalRepo,
		txManager:   txManager,
		resolver:    resolver,
		builder:     builder,
		posting:     posting,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// SaveEntries implements portssvc.LedgerWriterSvc
func (s *ledgerService) SaveEntries(ctx context.Context, tenantID string, entries []domain.JournalEntry, opts portsrepo.SaveOptions) (result portssvc.SaveResult, err error) {
	ctx, span := s.startSpan(ctx, "LedgerService.SaveEntries", tenantID,
		attribute.Int("entry_count", len(entries)), attribute.Bool("dry_run", opts.DryRun))
	defer func() { endSpan(span, err) }()

	if err := requireTenant(tenantID); err != nil {
		return portssvc.SaveResult{}, err
	}
	if len(entries) == 0 {
		return portssvc.SaveResult{}, fmt.Errorf("%w: no entries to save", apperrors.ErrValidation)
	}

	prepared := make([]domain.JournalEntry, len(entries))
	references := make([]string, len(entries))
	for i, e := range entries {
		if e.TenantID != "" && e.TenantID != tenantID {
			return portssvc.SaveResult{}, fmt.Errorf("%w: entry %s belongs to another tenant", apperrors.ErrForbidden, e.EntryID)
		}
		e.TenantID = tenantID
		if e.Status == "" {
			e.Status = domain.EntryPending
		}
		if e.Status != domain.EntryPending {
			return portssvc.SaveResult{}, fmt.Errorf("%w: new entries must be pending, got %s", apperrors.ErrValidation, e.Status)
		}
		if err := e.Validate(); err != nil {
			return portssvc.SaveResult{}, err
		}
		prepared[i] = e
		references[i] = e.Reference
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	ids, err := s.journalRepo.SaveEntries(ctx, tenantID, prepared, opts)
	if err == nil {
		return portssvc.SaveResult{EntryIDs: ids, Entries: prepared, Created: !opts.DryRun}, nil
	}
	if !errors.Is(err, apperrors.ErrDuplicate) {
		s.LogError(ctx, err, "Failed to save journal entries",
			slog.String("tenant_id", tenantID),
			slog.String("source_type", string(prepared[0].SourceType)),
			slog.String("source_id", prepared[0].SourceID))
		return portssvc.SaveResult{}, err
	}

	// A redelivered event maps to references that are already stored.
	existing, findErr := s.journalRepo.FindEntriesByReference(ctx, tenantID, references)
	if findErr != nil {
		return portssvc.SaveResult{}, errors.Join(err, findErr)
	}
	if !sameSource(prepared, existing) {
		return portssvc.SaveResult{}, &apperrors.EntryError{
			Kind:       apperrors.ErrDuplicate,
			SourceType: string(prepared[0].SourceType),
			SourceID:   prepared[0].SourceID,
			Reference:  prepared[0].Reference,
			Detail:     "conflicts with entries of another source or a partial earlier save",
			Err:        err,
		}
	}
	s.LogInfo(ctx, "Journal entries already recorded, returning stored entries",
		slog.String("tenant_id", tenantID),
		slog.String("source_id", prepared[0].SourceID))

	ids = make([]string, len(existing))
	for i, e := range existing {
		ids[i] = e.EntryID
	}
	return portssvc.SaveResult{EntryIDs: ids, Entries: existing, Created: false}, nil
}

// sameSource reports whether the stored entries are exactly the ones the
// prepared set would have created.
func sameSource(prepared, existing []domain.JournalEntry) bool {
	if len(prepared) != len(existing) {
		return false
	}
	for i := range prepared {
		p, e := prepared[i], existing[i]
		if p.Reference != e.Reference || p.SourceType != e.SourceType || p.SourceID != e.SourceID {
			return false
		}
	}
	return true
}

// JournalEvent implements portssvc.LedgerWriterSvc
func (s *ledgerService) JournalEvent(ctx context.Context, tenantID string, event domain.BusinessEvent, userID string, autoPost bool) (result portssvc.SaveResult, err error) {
	ctx, span := s.startSpan(ctx, "LedgerService.JournalEvent", tenantID,
		attribute.String("source_type", string(event.SourceType)), attribute.String("source_id", event.SourceID))
	defer func() { endSpan(span, err) }()

	resolved, err := s.resolver.Resolve(event.SourceType, event.Category)
	if err != nil {
		s.LogError(ctx, err, "Failed to resolve account template",
			slog.String("source_type", string(event.SourceType)),
			slog.String("source_id", event.SourceID),
			slog.String("category", event.Category))
		return portssvc.SaveResult{}, err
	}
	entries, err := s.builder.Build(tenantID, event, resolved, portssvc.BuildOptions{UserID: userID, Now: s.now()})
	if err != nil {
		return portssvc.SaveResult{}, err
	}

	txCtx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	err = s.txManager.WithinTx(txCtx, func(ctx context.Context) error {
		saved, err := s.SaveEntries(ctx, tenantID, entries, portsrepo.SaveOptions{})
		if err != nil {
			return err
		}
		if autoPost {
			if err := postAll(ctx, s.posting, tenantID, &saved, userID); err != nil {
				return err
			}
		}
		result = saved
		return nil
	})
	if err != nil {
		return portssvc.SaveResult{}, err
	}

	s.LogInfo(ctx, "Event journaled",
		slog.String("source_type", string(event.SourceType)),
		slog.String("source_id", event.SourceID),
		slog.Int("entry_count", len(result.EntryIDs)),
		slog.Bool("created", result.Created),
		slog.Bool("posted", result.Posted))
	return result, nil
}

// postAll posts every saved entry and refreshes the result with the stored state.
func postAll(ctx context.Context, posting portssvc.PostingSvc, tenantID string, result *portssvc.SaveResult, userID string) error {
	for i, id := range result.EntryIDs {
		posted, err := posting.Post(ctx, tenantID, id, userID)
		if err != nil {
			return err
		}
		if i < len(result.Entries) {
			result.Entries[i] = *posted
		}
	}
	result.Posted = true
	return nil
}

// previewPostAll applies the post transition to unsaved entries without
// touching the store, so a dry run reports what a live run would post.
func previewPostAll(result *portssvc.SaveResult, userID string, now time.Time) error {
	for i := range result.Entries {
		entry := &result.Entries[i]
		if err := entry.Validate(); err != nil {
			return err
		}
		next, changed, err := domain.NextStatus(entry.Status, domain.ActionPost)
		if err != nil {
			return transitionError(entry, err)
		}
		if changed {
			entry.Status = next
			entry.PostedAt = &now
			entry.LastUpdatedAt = now
			entry.LastUpdatedBy = userID
		}
	}
	result.Posted = true
	return nil
}

// GetEntry implements portssvc.LedgerReaderSvc
func (s *ledgerService) GetEntry(ctx context.Context, tenantID, entryID string) (*domain.JournalEntry, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	entry, err := s.journalRepo.FindEntryByID(ctx, tenantID, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("journal entry " + entryID)
		}
		s.LogError(ctx, err, "Failed to get journal entry", slog.String("entry_id", entryID))
		return nil, err
	}
	return entry, nil
}

// ListEntries implements portssvc.LedgerReaderSvc
func (s *ledgerService) ListEntries(ctx context.Context, tenantID string, filter domain.EntryFilter) ([]domain.JournalEntry, *string, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	if filter.Account != "" {
		if err := domain.ValidateAccountCode(filter.Account); err != nil {
			return nil, nil, err
		}
	}
	if filter.NextToken != nil {
		if _, err := pagination.DecodeToken(*filter.NextToken); err != nil {
			return nil, nil, fmt.Errorf("%w: invalid next token", apperrors.ErrValidation)
		}
	}
	filter.Limit = pagination.NormalizeLimit(filter.Limit)

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	entries, next, err := s.journalRepo.FindEntries(ctx, tenantID, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list journal entries", slog.String("tenant_id", tenantID))
		return nil, nil, err
	}
	return entries, next, nil
}

// GetBalance implements portssvc.LedgerReaderSvc
func (s *ledgerService) GetBalance(ctx context.Context, tenantID, accountCode string, asOf *time.Time) (decimal.Decimal, error) {
	if err := requireTenant(tenantID); err != nil {
		return decimal.Zero, err
	}
	if err := domain.ValidateAccountCode(accountCode); err != nil {
		return decimal.Zero, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	balance, err := s.journalRepo.GetBalance(ctx, tenantID, accountCode, asOf)
	if err != nil {
		s.LogError(ctx, err, "Failed to compute account balance", slog.String("account", accountCode))
		return decimal.Zero, err
	}
	return balance, nil
}
