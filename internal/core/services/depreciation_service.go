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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// MaxScheduleMonths bounds a single schedule generation request.
const MaxScheduleMonths = 600

// depreciationService plans and accrues monthly vehicle depreciation.
type depreciationService struct {
	BaseService
	depreciationRepo portsrepo.DepreciationRepositoryWithTx
	journalRepo      portsrepo.JournalRepositoryWithTx
	txManager        portsrepo.TransactionManager
	resolver         portssvc.TemplateResolverSvc
	builder          portssvc.JournalBuilderSvc
	posting          portssvc.PostingSvc
	policy           domain.DepreciationPolicy
}

// NewDepreciationService creates a new DepreciationService.
func NewDepreciationService(
	repos portsrepo.RepositoryProvider,
	resolver portssvc.TemplateResolverSvc,
	builder portssvc.JournalBuilderSvc,
	posting portssvc.PostingSvc,
	policy domain.DepreciationPolicy,
	storeTimeout time.Duration,
) portssvc.DepreciationSvcFacade {
	return &depreciationService{
		BaseService:      newBaseService(storeTimeout),
		depreciationRepo: repos.DepreciationRepo,
		journalRepo:      repos.JournalRepo,
		txManager:        repos.TxManager,
		resolver:         resolver,
		builder:          builder,
		posting:          posting,
		policy:           policy,
	}
}

var _ portssvc.DepreciationSvcFacade = (*depreciationService)(nil)

// GenerateSchedule implements portssvc.DepreciationScheduleSvc
func (s *depreciationService) GenerateSchedule(ctx context.Context, tenantID, vehicleID string, fromMonth time.Time, months int, userID string) ([]domain.DepreciationScheduleItem, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if months <= 0 || months > MaxScheduleMonths {
		return nil, fmt.Errorf("%w: months must be between 1 and %d", apperrors.ErrValidation, MaxScheduleMonths)
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	vehicle, err := s.findVehicle(ctx, tenantID, vehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsActive {
		return nil, fmt.Errorf("%w: vehicle %s is not active", apperrors.ErrConflict, vehicleID)
	}

	existing, err := s.depreciationRepo.ListScheduleByVehicle(ctx, tenantID, vehicleID)
	if err != nil {
		return nil, err
	}

	start := domain.MonthStart(fromMonth)
	if purchase := domain.MonthStart(vehicle.PurchaseDate); start.Before(purchase) {
		start = purchase
	}

	if err := checkScheduleStart(existing, start); err != nil {
		return nil, err
	}

	byMonth := make(map[string]domain.DepreciationScheduleItem, len(existing))
	accumulated := decimal.Zero
	for _, item := range existing {
		byMonth[item.Period()] = item
		if item.DepreciationDate.Before(start) {
			accumulated = item.AccumulatedDepreciation
		}
	}

	now := s.now()
	items := make([]domain.DepreciationScheduleItem, 0, months)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0)
		if item, ok := byMonth[domain.PeriodKey(month)]; ok {
			accumulated = item.AccumulatedDepreciation
			continue
		}
		next, increment := s.policy.NextAccumulated(*vehicle, accumulated)
		if !increment.IsPositive() {
			break
		}
		items = append(items, domain.DepreciationScheduleItem{
			ItemID:                  uuid.NewString(),
			TenantID:                tenantID,
			VehicleID:               vehicleID,
			DepreciationDate:        month,
			MonthlyDepreciation:     increment,
			AccumulatedDepreciation: next,
			BookValue:               domain.BookValue(*vehicle, next),
			AuditFields:             domain.NewAuditFields(userID, now),
		})
		accumulated = next
	}

	if len(items) > 0 {
		inserted, err := s.depreciationRepo.InsertScheduleItems(ctx, tenantID, items)
		if err != nil {
			s.LogError(ctx, err, "Failed to store depreciation schedule", slog.String("vehicle_id", vehicleID))
			return nil, err
		}
		s.LogInfo(ctx, "Depreciation schedule generated",
			slog.String("vehicle_id", vehicleID),
			slog.Int("planned", len(items)),
			slog.Int("inserted", inserted))
	}
	return s.depreciationRepo.ListScheduleByVehicle(ctx, tenantID, vehicleID)
}

// checkScheduleStart keeps a vehicle's schedule one contiguous run of months.
// Accumulated totals of stored rows assume every earlier month, so new rows
// may only continue the run: starting inside it or right after its end.
func checkScheduleStart(existing []domain.DepreciationScheduleItem, start time.Time) error {
	if len(existing) == 0 {
		return nil
	}
	first, last := existing[0].DepreciationDate, existing[0].DepreciationDate
	for _, item := range existing[1:] {
		if item.DepreciationDate.Before(first) {
			first = item.DepreciationDate
		}
		if item.DepreciationDate.After(last) {
			last = item.DepreciationDate
		}
	}
	if start.Before(first) {
		return fmt.Errorf("%w: schedule already starts at %s, cannot plan %s before it",
			apperrors.ErrConflict, domain.PeriodKey(first), domain.PeriodKey(start))
	}
	if next := domain.MonthStart(last).AddDate(0, 1, 0); start.After(next) {
		return fmt.Errorf("%w: schedule ends at %s, next plannable month is %s",
			apperrors.ErrConflict, domain.PeriodKey(last), domain.PeriodKey(next))
	}
	return nil
}

// ListSchedule implements portssvc.DepreciationScheduleSvc
func (s *depreciationService) ListSchedule(ctx context.Context, tenantID, vehicleID string) ([]domain.DepreciationScheduleItem, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	if _, err := s.findVehicle(ctx, tenantID, vehicleID); err != nil {
		return nil, err
	}
	return s.depreciationRepo.ListScheduleByVehicle(ctx, tenantID, vehicleID)
}

// BookValue implements portssvc.DepreciationScheduleSvc
func (s *depreciationService) BookValue(ctx context.Context, tenantID, vehicleID string, asOf time.Time) (decimal.Decimal, error) {
	if err := requireTenant(tenantID); err != nil {
		return decimal.Zero, err
	}
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	vehicle, err := s.findVehicle(ctx, tenantID, vehicleID)
	if err != nil {
		return decimal.Zero, err
	}
	items, err := s.depreciationRepo.ListScheduleByVehicle(ctx, tenantID, vehicleID)
	if err != nil {
		return decimal.Zero, err
	}
	accumulated := decimal.Zero
	for _, item := range items {
		if item.IsProcessed && !item.DepreciationDate.After(asOf) {
			accumulated = item.AccumulatedDepreciation
		}
	}
	return domain.BookValue(*vehicle, accumulated), nil
}

// itemOutcome is what happened to one schedule item.
type itemOutcome struct {
	entryID   string
	amount    decimal.Decimal
	processed bool
}

// ProcessMonth implements portssvc.DepreciationProcessorSvc
func (s *depreciationService) ProcessMonth(ctx context.Context, tenantID string, targetMonth time.Time, userID string) (result domain.ProcessMonthResult, err error) {
	month := domain.MonthStart(targetMonth)
	ctx, span := s.startSpan(ctx, "DepreciationService.ProcessMonth", tenantID, attribute.String("period", domain.PeriodKey(month)))
	defer func() { endSpan(span, err) }()

	result = domain.ProcessMonthResult{
		TargetMonth: domain.PeriodKey(month),
		TotalAmount: decimal.Zero,
		EntryIDs:    []string{},
	}
	if err := requireTenant(tenantID); err != nil {
		return result, err
	}

	listCtx, cancel := s.withStoreTimeout(ctx)
	items, err := s.depreciationRepo.ListUnprocessedItems(listCtx, tenantID, month)
	cancel()
	if err != nil {
		s.LogError(ctx, err, "Failed to list unprocessed depreciation items", slog.String("period", result.TargetMonth))
		return result, err
	}

	var failures []error
	for _, item := range items {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Items already committed stand; a re-run picks up the rest.
			failures = append(failures, apperrors.NewPersistenceError("depreciation run cancelled", ctxErr))
			break
		}

		outcome, itemErr := s.processItem(ctx, tenantID, item, userID)
		switch {
		case itemErr == nil && outcome.processed:
			result.ProcessedCount++
			result.TotalAmount = result.TotalAmount.Add(outcome.amount)
			result.EntryIDs = append(result.EntryIDs, outcome.entryID)
		case itemErr == nil:
			result.SkippedCount++
		case errors.Is(itemErr, apperrors.ErrDuplicate):
			// A concurrent run booked this vehicle and month first.
			result.SkippedCount++
		default:
			s.LogError(ctx, itemErr, "Failed to process depreciation item",
				slog.String("item_id", item.ItemID),
				slog.String("vehicle_id", item.VehicleID),
				slog.String("period", result.TargetMonth))
			result.Failures = append(result.Failures, domain.ItemFailure{
				ItemID:    item.ItemID,
				VehicleID: item.VehicleID,
				Error:     itemErr.Error(),
			})
			failures = append(failures, fmt.Errorf("item %s (vehicle %s): %w", item.ItemID, item.VehicleID, itemErr))
		}
	}

	s.LogInfo(ctx, "Depreciation month processed",
		slog.String("period", result.TargetMonth),
		slog.Int("processed", result.ProcessedCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Int("failed", len(result.Failures)),
		slog.String("total_amount", result.TotalAmount.String()))
	return result, errors.Join(failures...)
}

// processItem books one schedule item inside a single transaction: the item
// lock, the existing-entry check, the insert, the post and the processed flag
// commit together or not at all.
func (s *depreciationService) processItem(ctx context.Context, tenantID string, item domain.DepreciationScheduleItem, userID string) (itemOutcome, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	var outcome itemOutcome
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		outcome = itemOutcome{}
		locked, err := s.depreciationRepo.LockScheduleItem(ctx, tenantID, item.ItemID)
		if err != nil {
			return err
		}
		if locked.IsProcessed {
			return nil
		}
		period := locked.Period()
		now := s.now()

		existing, err := s.journalRepo.FindDepreciationEntry(ctx, tenantID, locked.VehicleID, period)
		switch {
		case err == nil && existing.Status == domain.EntryPosted:
			return s.depreciationRepo.MarkItemProcessed(ctx, tenantID, locked.ItemID, existing.EntryID, userID, now)
		case err == nil:
			// A pending entry left by an interrupted run.
			posted, err := s.posting.Post(ctx, tenantID, existing.EntryID, userID)
			if err != nil {
				return err
			}
			outcome = itemOutcome{entryID: posted.EntryID, amount: posted.Amount(), processed: true}
			return s.depreciationRepo.MarkItemProcessed(ctx, tenantID, locked.ItemID, posted.EntryID, userID, now)
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		if !locked.MonthlyDepreciation.IsPositive() {
			return s.depreciationRepo.MarkItemProcessed(ctx, tenantID, locked.ItemID, "", userID, now)
		}

		vehicle, err := s.findVehicle(ctx, tenantID, locked.VehicleID)
		if err != nil {
			return err
		}
		resolved, err := s.resolver.Resolve(domain.SourceDepreciation, vehicle.Category)
		if err != nil {
			return err
		}
		event := depreciationEvent(*vehicle, *locked)
		entries, err := s.builder.Build(tenantID, event, resolved, portssvc.BuildOptions{UserID: userID, Now: now})
		if err != nil {
			return err
		}
		ids, err := s.journalRepo.SaveEntries(ctx, tenantID, entries, portsrepo.SaveOptions{})
		if err != nil {
			return err
		}
		posted, err := s.posting.Post(ctx, tenantID, ids[0], userID)
		if err != nil {
			return err
		}
		outcome = itemOutcome{entryID: posted.EntryID, amount: posted.Amount(), processed: true}
		return s.depreciationRepo.MarkItemProcessed(ctx, tenantID, locked.ItemID, posted.EntryID, userID, now)
	})
	if err != nil {
		return itemOutcome{}, err
	}
	return outcome, nil
}

// depreciationEvent describes a schedule item as a business event so it can
// go through the same resolve and build path as every other source.
func depreciationEvent(v domain.Vehicle, item domain.DepreciationScheduleItem) domain.BusinessEvent {
	vehicleID := v.VehicleID
	return domain.BusinessEvent{
		SourceType: domain.SourceDepreciation,
		SourceID:   v.VehicleID,
		Amount:     item.MonthlyDepreciation,
		VehicleID:  &vehicleID,
		Category:   v.Category,
		Date:       item.DepreciationDate,
		Fields: map[string]string{
			domain.FieldPlateNumber:   v.PlateNumber,
			domain.FieldAssetCategory: v.Category,
			domain.FieldPeriod:        item.Period(),
		},
	}
}

func (s *depreciationService) findVehicle(ctx context.Context, tenantID, vehicleID string) (*domain.Vehicle, error) {
	vehicle, err := s.depreciationRepo.FindVehicleByID(ctx, tenantID, vehicleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("vehicle " + vehicleID)
		}
		return nil, err
	}
	return vehicle, nil
}
