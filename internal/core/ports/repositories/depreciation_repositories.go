package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

// VehicleReader reads the externally owned vehicle registry.
type VehicleReader interface {
	FindVehicleByID(ctx context.Context, tenantID, vehicleID string) (*domain.Vehicle, error)
	ListActiveVehicles(ctx context.Context, tenantID string) ([]domain.Vehicle, error)
}

// DepreciationScheduleReader defines read operations for schedule items.
type DepreciationScheduleReader interface {
	// ListScheduleByVehicle returns a vehicle's schedule ordered by month.
	ListScheduleByVehicle(ctx context.Context, tenantID, vehicleID string) ([]domain.DepreciationScheduleItem, error)

	// ListUnprocessedItems returns the unprocessed items dated in the given month.
	ListUnprocessedItems(ctx context.Context, tenantID string, month time.Time) ([]domain.DepreciationScheduleItem, error)

	// LockScheduleItem re-reads an item and holds a row lock until the
	// surrounding transaction ends.
	LockScheduleItem(ctx context.Context, tenantID, itemID string) (*domain.DepreciationScheduleItem, error)
}

// DepreciationScheduleWriter defines write operations for schedule items.
type DepreciationScheduleWriter interface {
	// InsertScheduleItems stores new items, skipping months the vehicle already
	// has. It returns the number of rows inserted.
	InsertScheduleItems(ctx context.Context, tenantID string, items []domain.DepreciationScheduleItem) (int, error)

	// MarkItemProcessed flags an item processed and links the posted entry.
	MarkItemProcessed(ctx context.Context, tenantID, itemID, entryID, userID string, at time.Time) error
}

// DepreciationRepositoryFacade combines schedule and vehicle access.
type DepreciationRepositoryFacade interface {
	VehicleReader
	DepreciationScheduleReader
	DepreciationScheduleWriter
}

// DepreciationRepositoryWithTx extends DepreciationRepositoryFacade with transaction capabilities
type DepreciationRepositoryWithTx interface {
	DepreciationRepositoryFacade
	TransactionManager
}
