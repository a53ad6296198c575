package services

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DepreciationScheduleSvc manages per-vehicle depreciation plans.
type DepreciationScheduleSvc interface {
	// GenerateSchedule plans up to months rows starting at fromMonth and
	// returns the vehicle's full schedule.
	GenerateSchedule(ctx context.Context, tenantID, vehicleID string, fromMonth time.Time, months int, userID string) ([]domain.DepreciationScheduleItem, error)

	ListSchedule(ctx context.Context, tenantID, vehicleID string) ([]domain.DepreciationScheduleItem, error)

	// BookValue returns the book value after the last processed month on or before asOf.
	BookValue(ctx context.Context, tenantID, vehicleID string, asOf time.Time) (decimal.Decimal, error)
}

// DepreciationProcessorSvc accrues a month of depreciation for a tenant.
type DepreciationProcessorSvc interface {
	ProcessMonth(ctx context.Context, tenantID string, targetMonth time.Time, userID string) (domain.ProcessMonthResult, error)
}

// DepreciationSvcFacade combines all depreciation service interfaces.
type DepreciationSvcFacade interface {
	DepreciationScheduleSvc
	DepreciationProcessorSvc
}
