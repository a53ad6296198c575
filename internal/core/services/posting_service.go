package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"go.opentelemetry.io/otel/attribute"
)

// postingService applies lifecycle transitions. Every transition is a
// compare-and-set on the stored status, so concurrent callers cannot both win.
type postingService struct {
	BaseService
	journalRepo portsrepo.JournalRepositoryWithTx
	txManager   portsrepo.TransactionManager
}

// NewPostingService creates a new PostingService.
func NewPostingService(journalRepo portsrepo.JournalRepositoryWithTx, txManager portsrepo.TransactionManager, storeTimeout time.Duration) portssvc.PostingSvc {
	return &postingService{
		BaseService: newBaseService(storeTimeout),
		journalRepo: journalRepo,
		txManager:   txManager,
	}
}

var _ portssvc.PostingSvc = (*postingService)(nil)

// Post implements portssvc.PostingSvc
func (s *postingService) Post(ctx context.Context, tenantID, entryID, userID string) (out *domain.JournalEntry, err error) {
	ctx, span := s.startSpan(ctx, "PostingService.Post", tenantID, attribute.String("entry_id", entryID))
	defer func() { endSpan(span, err) }()

	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.find(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		next, changed, err := domain.NextStatus(entry.Status, domain.ActionPost)
		if err != nil {
			return transitionError(entry, err)
		}
		if !changed {
			out = entry
			return nil
		}
		// Never promote an entry that breaks the construction invariants.
		if err := entry.Validate(); err != nil {
			return err
		}

		now := s.now()
		err = s.journalRepo.UpdateEntryStatus(ctx, tenantID, entryID, entry.Status, next, nil, userID, now)
		if errors.Is(err, apperrors.ErrStateTransition) {
			// Lost a race. Another caller posting first is fine.
			current, findErr := s.find(ctx, tenantID, entryID)
			if findErr != nil {
				return findErr
			}
			if current.Status == domain.EntryPosted {
				out = current
				return nil
			}
			return transitionError(current, err)
		}
		if err != nil {
			return err
		}
		entry.Status = next
		entry.PostedAt = &now
		entry.LastUpdatedAt = now
		entry.LastUpdatedBy = userID
		out = entry
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to post journal entry", slog.String("entry_id", entryID))
		return nil, err
	}
	return out, nil
}

// Reverse implements portssvc.PostingSvc
func (s *postingService) Reverse(ctx context.Context, tenantID, entryID, reason, userID string) (out *domain.JournalEntry, err error) {
	ctx, span := s.startSpan(ctx, "PostingService.Reverse", tenantID, attribute.String("entry_id", entryID))
	defer func() { endSpan(span, err) }()

	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a reversal reason is required", apperrors.ErrValidation)
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.find(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		next, _, err := domain.NextStatus(entry.Status, domain.ActionReverse)
		if err != nil {
			return transitionError(entry, err)
		}

		now := s.now()
		if err := s.journalRepo.UpdateEntryStatus(ctx, tenantID, entryID, entry.Status, next, &reason, userID, now); err != nil {
			return err
		}
		entry.Status = next
		entry.Notes = reason
		entry.ReversedAt = &now
		entry.LastUpdatedAt = now
		entry.LastUpdatedBy = userID
		out = entry
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to reverse journal entry", slog.String("entry_id", entryID))
		return nil, err
	}
	s.LogInfo(ctx, "Journal entry reversed", slog.String("entry_id", entryID), slog.String("reason", reason))
	return out, nil
}

// Discard implements portssvc.PostingSvc
func (s *postingService) Discard(ctx context.Context, tenantID, entryID, userID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.find(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if _, _, err := domain.NextStatus(entry.Status, domain.ActionDiscard); err != nil {
			return transitionError(entry, err)
		}
		return s.journalRepo.DeleteEntry(ctx, tenantID, entryID)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to discard journal entry", slog.String("entry_id", entryID))
		return err
	}
	s.LogInfo(ctx, "Pending journal entry discarded", slog.String("entry_id", entryID), slog.String("user_id", userID))
	return nil
}

func (s *postingService) find(ctx context.Context, tenantID, entryID string) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, tenantID, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("journal entry " + entryID)
		}
		return nil, err
	}
	return entry, nil
}

func transitionError(entry *domain.JournalEntry, err error) error {
	return &apperrors.EntryError{
		Kind:       apperrors.ErrStateTransition,
		SourceType: string(entry.SourceType),
		SourceID:   entry.SourceID,
		Reference:  entry.Reference,
		Detail:     "entry " + entry.EntryID,
		Err:        err,
	}
}
