package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_ledger/internal/models"
	"github.com/SscSPs/fleet_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scheduleColumns = `
	item_id, tenant_id, vehicle_id, depreciation_date, monthly_depreciation,
	accumulated_depreciation, book_value, is_processed, journal_entry_id, processed_at,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxDepreciationRepository struct {
	BaseRepository
}

func newPgxDepreciationRepository(pool *pgxpool.Pool) portsrepo.DepreciationRepositoryWithTx {
	return &PgxDepreciationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.DepreciationRepositoryWithTx = (*PgxDepreciationRepository)(nil)

func scanVehicle(row pgx.Row) (models.Vehicle, error) {
	var m models.Vehicle
	err := row.Scan(
		&m.VehicleID,
		&m.TenantID,
		&m.PlateNumber,
		&m.Category,
		&m.PurchaseCost,
		&m.PurchaseDate,
		&m.AnnualRate,
		&m.ResidualValue,
		&m.IsActive,
	)
	return m, err
}

func scanScheduleItem(row pgx.Row) (models.DepreciationScheduleItem, error) {
	var m models.DepreciationScheduleItem
	err := row.Scan(
		&m.ItemID,
		&m.TenantID,
		&m.VehicleID,
		&m.DepreciationDate,
		&m.MonthlyDepreciation,
		&m.AccumulatedDepreciation,
		&m.BookValue,
		&m.IsProcessed,
		&m.JournalEntryID,
		&m.ProcessedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// FindVehicleByID retrieves a vehicle from the fleet registry.
func (r *PgxDepreciationRepository) FindVehicleByID(ctx context.Context, tenantID, vehicleID string) (*domain.Vehicle, error) {
	query := `
		SELECT vehicle_id, tenant_id, plate_number, category, purchase_cost, purchase_date,
		       annual_rate, residual_value, is_active
		FROM vehicles
		WHERE tenant_id = $1 AND vehicle_id = $2;
	`
	m, err := scanVehicle(r.conn(ctx).QueryRow(ctx, query, tenantID, vehicleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateError(err, "failed to find vehicle "+vehicleID)
	}
	v := mapping.ToDomainVehicle(m)
	return &v, nil
}

// ListActiveVehicles retrieves the tenant's active vehicles.
func (r *PgxDepreciationRepository) ListActiveVehicles(ctx context.Context, tenantID string) ([]domain.Vehicle, error) {
	query := `
		SELECT vehicle_id, tenant_id, plate_number, category, purchase_cost, purchase_date,
		       annual_rate, residual_value, is_active
		FROM vehicles
		WHERE tenant_id = $1 AND is_active
		ORDER BY vehicle_id;
	`
	rows, err := r.conn(ctx).Query(ctx, query, tenantID)
	if err != nil {
		return nil, translateError(err, "failed to query vehicles")
	}
	defer rows.Close()

	vehicles := []domain.Vehicle{}
	for rows.Next() {
		m, err := scanVehicle(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan vehicle row")
		}
		vehicles = append(vehicles, mapping.ToDomainVehicle(m))
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "error iterating vehicle rows")
	}
	return vehicles, nil
}

func (r *PgxDepreciationRepository) querySchedule(ctx context.Context, what, query string, args ...any) ([]domain.DepreciationScheduleItem, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "failed to query depreciation schedule for "+what)
	}
	defer rows.Close()

	items := []domain.DepreciationScheduleItem{}
	for rows.Next() {
		m, err := scanScheduleItem(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan depreciation schedule row for "+what)
		}
		items = append(items, mapping.ToDomainScheduleItem(m))
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "error iterating depreciation schedule rows for "+what)
	}
	return items, nil
}

// ListScheduleByVehicle returns the vehicle's schedule ordered by month.
func (r *PgxDepreciationRepository) ListScheduleByVehicle(ctx context.Context, tenantID, vehicleID string) ([]domain.DepreciationScheduleItem, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM depreciation_schedule
		WHERE tenant_id = $1 AND vehicle_id = $2
		ORDER BY depreciation_date;`
	return r.querySchedule(ctx, "vehicle "+vehicleID, query, tenantID, vehicleID)
}

// ListUnprocessedItems returns the unprocessed items dated in the month.
func (r *PgxDepreciationRepository) ListUnprocessedItems(ctx context.Context, tenantID string, month time.Time) ([]domain.DepreciationScheduleItem, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM depreciation_schedule
		WHERE tenant_id = $1 AND depreciation_date = $2 AND NOT is_processed
		ORDER BY vehicle_id;`
	return r.querySchedule(ctx, "month "+domain.PeriodKey(month), query, tenantID, domain.MonthStart(month))
}

// LockScheduleItem re-reads the item with a row lock held until the transaction ends.
func (r *PgxDepreciationRepository) LockScheduleItem(ctx context.Context, tenantID, itemID string) (*domain.DepreciationScheduleItem, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM depreciation_schedule
		WHERE tenant_id = $1 AND item_id = $2
		FOR UPDATE;`
	m, err := scanScheduleItem(r.conn(ctx).QueryRow(ctx, query, tenantID, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, translateError(err, "failed to lock depreciation schedule item "+itemID)
	}
	item := mapping.ToDomainScheduleItem(m)
	return &item, nil
}

// InsertScheduleItems stores the items, skipping months already scheduled.
func (r *PgxDepreciationRepository) InsertScheduleItems(ctx context.Context, tenantID string, items []domain.DepreciationScheduleItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	query := `
		INSERT INTO depreciation_schedule (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tenant_id, vehicle_id, depreciation_date) DO NOTHING;
	`
	inserted := 0
	err := r.WithinTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, item := range items {
			m := mapping.ToModelScheduleItem(item)
			m.TenantID = tenantID
			batch.Queue(query,
				m.ItemID,
				m.TenantID,
				m.VehicleID,
				m.DepreciationDate,
				m.MonthlyDepreciation,
				m.AccumulatedDepreciation,
				m.BookValue,
				m.IsProcessed,
				m.JournalEntryID,
				m.ProcessedAt,
				m.CreatedAt,
				m.CreatedBy,
				m.LastUpdatedAt,
				m.LastUpdatedBy,
			)
		}
		br := r.conn(ctx).SendBatch(ctx, batch)
		defer br.Close()
		for range items {
			tag, err := br.Exec()
			if err != nil {
				return translateError(err, "failed to insert depreciation schedule item")
			}
			inserted += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return translateError(err, "failed to insert depreciation schedule items")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// MarkItemProcessed flags the item processed and links the posted entry.
func (r *PgxDepreciationRepository) MarkItemProcessed(ctx context.Context, tenantID, itemID, entryID, userID string, at time.Time) error {
	query := `
		UPDATE depreciation_schedule
		SET is_processed = TRUE, journal_entry_id = $3, processed_at = $4,
		    last_updated_at = $4, last_updated_by = $5
		WHERE tenant_id = $1 AND item_id = $2;
	`
	cmdTag, err := r.conn(ctx).Exec(ctx, query, tenantID, itemID, domain.StringPtr(entryID), at, userID)
	if err != nil {
		return translateError(err, "failed to mark depreciation schedule item "+itemID+" processed")
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
