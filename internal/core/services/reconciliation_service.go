package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultReconciliationEpsilon is the imbalance tolerated by the balance checker.
var DefaultReconciliationEpsilon = decimal.RequireFromString("0.001")

type reconciliationService struct {
	BaseService
	journalRepo    portsrepo.JournalRepositoryWithTx
	correctionRepo portsrepo.CorrectionRepositoryFacade
	txManager      portsrepo.TransactionManager
	posting        portssvc.PostingSvc
	epsilon        decimal.Decimal
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(
	repos portsrepo.RepositoryProvider,
	posting portssvc.PostingSvc,
	epsilon decimal.Decimal,
	storeTimeout time.Duration,
) portssvc.ReconciliationSvcFacade {
	if epsilon.IsNegative() || epsilon.IsZero() {
		epsilon = DefaultReconciliationEpsilon
	}
	return &reconciliationService{
		BaseService:    newBaseService(storeTimeout),
		journalRepo:    repos.JournalRepo,
		correctionRepo: repos.CorrectionRepo,
		txManager:      repos.TxManager,
		posting:        posting,
		epsilon:        epsilon,
	}
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

// finding is a detected issue before it becomes a correction log.
type finding struct {
	toolID            string
	errorType         domain.ErrorType
	description       string
	entryIDs          []string
	severity          domain.Severity
	manualFixRequired bool
}

// RunDetectors implements portssvc.DetectorSvc
func (s *reconciliationService) RunDetectors(ctx context.Context, tenantID string, opts portssvc.DetectOptions, userID string) (report portssvc.DetectionReport, err error) {
	ctx, span := s.startSpan(ctx, "ReconciliationService.RunDetectors", tenantID)
	defer func() { endSpan(span, err) }()

	report = portssvc.DetectionReport{Created: []domain.CorrectionLog{}}
	if err := requireTenant(tenantID); err != nil {
		return report, err
	}
	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return report, fmt.Errorf("%w: detection range ends before it starts", apperrors.ErrValidation)
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	entries, err := s.journalRepo.ListPostedEntries(ctx, tenantID, opts.From, opts.To)
	if err != nil {
		s.LogError(ctx, err, "Failed to load posted entries for reconciliation")
		return report, err
	}

	findings := append(detectDuplicates(entries), s.detectUnbalanced(entries)...)
	span.SetAttributes(attribute.Int("entries_scanned", len(entries)), attribute.Int("findings", len(findings)))

	now := s.now()
	for _, f := range findings {
		fingerprint := domain.Fingerprint(f.errorType, f.entryIDs)
		if _, err := s.correctionRepo.FindOpenCorrection(ctx, tenantID, fingerprint); err == nil {
			report.AlreadyOpen++
			continue
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return report, err
		}

		log := domain.CorrectionLog{
			CorrectionID:      uuid.NewString(),
			TenantID:          tenantID,
			ToolID:            f.toolID,
			DetectionDate:     now,
			ErrorType:         f.errorType,
			ErrorDescription:  f.description,
			AffectedEntries:   f.entryIDs,
			Fingerprint:       fingerprint,
			SeverityLevel:     f.severity,
			Status:            domain.CorrectionDetected,
			ManualFixRequired: f.manualFixRequired,
			AuditFields:       domain.NewAuditFields(userID, now),
		}
		if err := s.correctionRepo.SaveCorrection(ctx, log); err != nil {
			if errors.Is(err, apperrors.ErrDuplicate) {
				// A concurrent run opened it first.
				report.AlreadyOpen++
				continue
			}
			s.LogError(ctx, err, "Failed to save correction log", slog.String("error_type", string(f.errorType)))
			return report, err
		}
		report.Created = append(report.Created, log)
	}

	s.LogInfo(ctx, "Reconciliation detectors finished",
		slog.Int("entries_scanned", len(entries)),
		slog.Int("created", len(report.Created)),
		slog.Int("already_open", report.AlreadyOpen))
	return report, nil
}

// detectDuplicates groups posted entries that look like the same business
// event booked twice.
func detectDuplicates(entries []domain.JournalEntry) []finding {
	groups := make(map[string][]string)
	for _, e := range entries {
		key := strings.Join([]string{
			string(e.SourceType),
			domain.StringValue(e.ContractID),
			domain.StringValue(e.CustomerID),
			e.EntryDate.UTC().Format("2006-01-02"),
			e.Amount().String(),
		}, "|")
		groups[key] = append(groups[key], e.EntryID)
	}

	keys := sortedKeys(groups)
	out := make([]finding, 0)
	for _, key := range keys {
		ids := groups[key]
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		parts := strings.Split(key, "|")
		out = append(out, finding{
			toolID:    domain.ToolDuplicateDetector,
			errorType: domain.ErrorDuplicateEntries,
			description: fmt.Sprintf("%d posted %s entries on %s for amount %s share contract %q and customer %q",
				len(ids), parts[0], parts[3], parts[4], parts[1], parts[2]),
			entryIDs: ids,
			severity: domain.SeverityMedium,
		})
	}
	return out
}

// detectUnbalanced groups entries by source and reports groups whose debit
// and credit totals differ by more than epsilon.
func (s *reconciliationService) detectUnbalanced(entries []domain.JournalEntry) []finding {
	groups := make(map[string][]domain.JournalEntry)
	for _, e := range entries {
		key := string(e.SourceType) + "|" + e.SourceID
		groups[key] = append(groups[key], e)
	}

	out := make([]finding, 0)
	for _, key := range sortedKeys(groups) {
		group := groups[key]
		debit, credit := accounting.LegTotals(group)
		net := debit.Sub(credit)
		if net.Abs().LessThanOrEqual(s.epsilon) {
			continue
		}

		severity := domain.SeverityHigh
		unmatched := accounting.UnmatchedLegTotal(group)
		if !unmatched.IsZero() && net.Sub(unmatched).Abs().LessThanOrEqual(s.epsilon) {
			// The whole difference comes from entries missing a leg.
			severity = domain.SeverityCritical
		}

		ids := make([]string, len(group))
		for i, e := range group {
			ids[i] = e.EntryID
		}
		sort.Strings(ids)
		out = append(out, finding{
			toolID:    domain.ToolBalanceChecker,
			errorType: domain.ErrorUnbalancedEntries,
			description: fmt.Sprintf("entries for %s %s are out of balance: debits %s, credits %s, difference %s",
				group[0].SourceType, group[0].SourceID, debit, credit, net),
			entryIDs:          ids,
			severity:          severity,
			manualFixRequired: true,
		})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetCorrection implements portssvc.CorrectionSvc
func (s *reconciliationService) GetCorrection(ctx context.Context, tenantID, correctionID string) (*domain.CorrectionLog, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	log, err := s.correctionRepo.FindCorrectionByID(ctx, tenantID, correctionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("correction " + correctionID)
		}
		return nil, err
	}
	return log, nil
}

// ListCorrections implements portssvc.CorrectionSvc
func (s *reconciliationService) ListCorrections(ctx context.Context, tenantID string, filter domain.CorrectionFilter) ([]domain.CorrectionLog, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	return s.correctionRepo.ListCorrections(ctx, tenantID, filter)
}

// TransitionStatus implements portssvc.CorrectionSvc
func (s *reconciliationService) TransitionStatus(ctx context.Context, tenantID, correctionID string, to domain.CorrectionStatus, notes, userID string) (*domain.CorrectionLog, error) {
	log, err := s.GetCorrection(ctx, tenantID, correctionID)
	if err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if err := log.CanTransition(to, notes); err != nil {
		return nil, err
	}

	now := s.now()
	from := log.Status
	log.Status = to
	if notes != "" {
		log.ResolutionNotes = notes
	}
	if to == domain.CorrectionFixed || to == domain.CorrectionIgnored {
		by := userID
		log.ResolvedAt = &now
		log.ResolvedBy = &by
	}
	log.LastUpdatedAt = now
	log.LastUpdatedBy = userID

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()
	if err := s.correctionRepo.UpdateCorrection(ctx, *log, from); err != nil {
		s.LogError(ctx, err, "Failed to update correction status",
			slog.String("correction_id", correctionID), slog.String("to", string(to)))
		return nil, err
	}
	s.LogInfo(ctx, "Correction status changed",
		slog.String("correction_id", correctionID),
		slog.String("from", string(from)),
		slog.String("to", string(to)))
	return log, nil
}

// ApplyAutoFix implements portssvc.CorrectionSvc
func (s *reconciliationService) ApplyAutoFix(ctx context.Context, tenantID, correctionID, userID string) (out *domain.CorrectionLog, err error) {
	ctx, span := s.startSpan(ctx, "ReconciliationService.ApplyAutoFix", tenantID, attribute.String("correction_id", correctionID))
	defer func() { endSpan(span, err) }()

	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		log, err := s.correctionRepo.FindCorrectionByID(ctx, tenantID, correctionID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFoundError("correction " + correctionID)
			}
			return err
		}
		if log.ErrorType != domain.ErrorDuplicateEntries {
			return fmt.Errorf("%w: no automatic fix for %s", apperrors.ErrValidation, log.ErrorType)
		}
		if log.AutoFixApplied {
			out = log
			return nil
		}
		if !log.Status.Open() {
			return fmt.Errorf("%w: correction is already %s", apperrors.ErrStateTransition, log.Status)
		}

		entries := make([]domain.JournalEntry, 0, len(log.AffectedEntries))
		for _, id := range log.AffectedEntries {
			entry, err := s.journalRepo.FindEntryByID(ctx, tenantID, id)
			if err != nil {
				return fmt.Errorf("loading affected entry %s: %w", id, err)
			}
			entries = append(entries, *entry)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if !a.EntryDate.Equal(b.EntryDate) {
				return a.EntryDate.Before(b.EntryDate)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.EntryID < b.EntryID
		})

		keep := entries[0]
		reason := fmt.Sprintf("duplicate of %s (correction %s)", keep.EntryID, log.CorrectionID)
		reversed := make([]string, 0, len(entries)-1)
		for _, e := range entries[1:] {
			if e.Status != domain.EntryPosted {
				continue
			}
			if _, err := s.posting.Reverse(ctx, tenantID, e.EntryID, reason, userID); err != nil {
				return err
			}
			reversed = append(reversed, e.EntryID)
		}

		now := s.now()
		from := log.Status
		log.AutoFixApplied = true
		log.ResolutionNotes = fmt.Sprintf("auto fix kept %s and reversed %s", keep.EntryID, strings.Join(reversed, ", "))
		log.LastUpdatedAt = now
		log.LastUpdatedBy = userID
		if err := s.correctionRepo.UpdateCorrection(ctx, *log, from); err != nil {
			return err
		}
		out = log
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to apply automatic fix", slog.String("correction_id", correctionID))
		return nil, err
	}
	s.LogInfo(ctx, "Automatic fix applied", slog.String("correction_id", correctionID))
	return out, nil
}
