package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan2024 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar2024 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func (e *env) addVehicle(id, category string, cost int64) domain.Vehicle {
	v := domain.Vehicle{
		VehicleID:    id,
		TenantID:     testTenant,
		PlateNumber:  "PL-" + id,
		Category:     category,
		PurchaseCost: decimal.NewFromInt(cost),
		PurchaseDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		IsActive:     true,
	}
	e.store.PutVehicle(v)
	return v
}

func (e *env) schedule(t *testing.T, vehicleID string, months int) []domain.DepreciationScheduleItem {
	t.Helper()
	items, err := e.svc.Depreciation.GenerateSchedule(context.Background(), testTenant, vehicleID, jan2024, months, testUser)
	require.NoError(t, err)
	return items
}

func TestGenerateSchedule_CapsAccumulation(t *testing.T) {
	e := newEnv(t)
	e.addVehicle("veh-1", "car", 10000)

	items := e.schedule(t, "veh-1", 60)

	require.Len(t, items, 48)
	assert.Equal(t, "166.667", items[0].MonthlyDepreciation.StringFixed(3))
	assert.Equal(t, jan2024, items[0].DepreciationDate)
	assert.Equal(t, "2024-01", items[0].Period())

	total := decimal.Zero
	for i, item := range items {
		total = total.Add(item.MonthlyDepreciation)
		assert.True(t, item.AccumulatedDepreciation.Equal(total), "item %d accumulated", i)
		assert.True(t, item.AccumulatedDepreciation.LessThanOrEqual(decimal.NewFromInt(8000)))
		assert.False(t, item.IsProcessed)
	}
	last := items[len(items)-1]
	assert.Equal(t, "8000.000", last.AccumulatedDepreciation.StringFixed(3))
	assert.Equal(t, "166.651", last.MonthlyDepreciation.StringFixed(3))
	assert.Equal(t, "2000.000", last.BookValue.StringFixed(3))
}

func TestGenerateSchedule_ExtendsWithoutDuplicates(t *testing.T) {
	e := newEnv(t)
	e.addVehicle("veh-2", "bus", 120000)

	first := e.schedule(t, "veh-2", 3)
	require.Len(t, first, 3)

	all := e.schedule(t, "veh-2", 6)
	require.Len(t, all, 6)
	assert.Equal(t, first[0].ItemID, all[0].ItemID)
	assert.Equal(t, "9000.000", all[5].AccumulatedDepreciation.StringFixed(3))
}

func TestGenerateSchedule_RejectsBackfillAndGaps(t *testing.T) {
	e := newEnv(t)
	e.addVehicle("veh-7", "car", 10000)
	ctx := context.Background()

	planned, err := e.svc.Depreciation.GenerateSchedule(ctx, testTenant, "veh-7", mar2024, 48, testUser)
	require.NoError(t, err)
	require.Len(t, planned, 48)

	_, err = e.svc.Depreciation.GenerateSchedule(ctx, testTenant, "veh-7", jan2024, 3, testUser)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = e.svc.Depreciation.GenerateSchedule(ctx, testTenant, "veh-7", mar2024.AddDate(0, 49, 0), 3, testUser)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	items, err := e.svc.Depreciation.ListSchedule(ctx, testTenant, "veh-7")
	require.NoError(t, err)
	require.Len(t, items, 48)
	assert.Equal(t, mar2024, items[0].DepreciationDate)

	total := decimal.Zero
	prev := decimal.Zero
	for _, item := range items {
		total = total.Add(item.MonthlyDepreciation)
		assert.True(t, item.AccumulatedDepreciation.GreaterThanOrEqual(prev))
		prev = item.AccumulatedDepreciation
	}
	assert.True(t, total.LessThanOrEqual(decimal.NewFromInt(8000)), "total %s", total)
}

func TestGenerateSchedule_ContinuesRightAfterLastMonth(t *testing.T) {
	e := newEnv(t)
	e.addVehicle("veh-8", "car", 12000)
	ctx := context.Background()

	first := e.schedule(t, "veh-8", 2)
	require.Len(t, first, 2)

	all, err := e.svc.Depreciation.GenerateSchedule(ctx, testTenant, "veh-8", mar2024, 2, testUser)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "800.000", all[3].AccumulatedDepreciation.StringFixed(3))
}

func TestGenerateSchedule_StartsAtPurchaseMonth(t *testing.T) {
	e := newEnv(t)
	e.addVehicle("veh-3", "truck", 24000)

	items, err := e.svc.Depreciation.GenerateSchedule(context.Background(), testTenant, "veh-3",
		time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 2, testUser)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, jan2024, items[0].DepreciationDate)
}

func TestGenerateSchedule_Rejections(t *testing.T) {
	e := newEnv(t)
	v := e.addVehicle("veh-4", "car", 10000)
	v.IsActive = false
	e.store.PutVehicle(v)
	ctx := context.Background()

	_, err := e.svc.Depreciation.GenerateSchedule(ctx, testTenant, "veh-4", jan2024, 12, testUser)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = e.svc.Depreciation.GenerateSchedule(ctx, testTenant, "missing", jan2024, 12, testUser)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = e.svc.Depreciation.GenerateSchedule(ctx, testTenant, "veh-4", jan2024, 0, testUser)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProcessMonth_PostsEntries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addVehicle("veh-5", "car", 10000)
	e.addVehicle("veh-6", "equipment", 4800)
	e.schedule(t, "veh-5", 12)
	e.schedule(t, "veh-6", 12)

	result, err := e.svc.Depreciation.ProcessMonth(ctx, testTenant, mar2024.AddDate(0, 0, 10), testUser)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", result.TargetMonth)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Empty(t, result.Failures)
	assert.Len(t, result.EntryIDs, 2)
	// 166.667 + 100.000
	assert.Equal(t, "266.667", result.TotalAmount.StringFixed(3))

	for _, id := range result.EntryIDs {
		entry, err := e.svc.Ledger.GetEntry(ctx, testTenant, id)
		require.NoError(t, err)
		assert.Equal(t, domain.EntryPosted, entry.Status)
		assert.Equal(t, domain.SourceDepreciation, entry.SourceType)
		assert.Equal(t, "2024-03", entry.Period)
	}

	expense, err := e.svc.Ledger.GetBalance(ctx, testTenant, "5310001", nil)
	require.NoError(t, err)
	assert.Equal(t, "166.667", expense.StringFixed(3))

	items, err := e.svc.Depreciation.ListSchedule(ctx, testTenant, "veh-5")
	require.NoError(t, err)
	assert.True(t, items[2].IsProcessed)
	assert.NotNil(t, items[2].JournalEntryID)
	assert.False(t, items[1].IsProcessed)
}

func TestProcessMonth_SecondRunIsNoop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addVehicle("veh-7", "car", 10000)
	e.schedule(t, "veh-7", 6)

	first, err := e.svc.Depreciation.ProcessMonth(ctx, testTenant, mar2024, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, first.ProcessedCount)

	second, err := e.svc.Depreciation.ProcessMonth(ctx, testTenant, mar2024, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ProcessedCount)
	assert.Empty(t, second.EntryIDs)
	assert.True(t, second.TotalAmount.IsZero())

	entries, _, err := e.svc.Ledger.ListEntries(ctx, testTenant, domain.EntryFilter{SourceType: domain.SourceDepreciation})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProcessMonth_ConcurrentRunsBookOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, id := range []string{"veh-8", "veh-9", "veh-10"} {
		e.addVehicle(id, "car", 10000)
		e.schedule(t, id, 6)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		booked  int
		runErrs []error
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.svc.Depreciation.ProcessMonth(ctx, testTenant, mar2024, testUser)
			mu.Lock()
			defer mu.Unlock()
			booked += res.ProcessedCount
			if err != nil {
				runErrs = append(runErrs, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, runErrs)
	assert.Equal(t, 3, booked)
	entries, _, err := e.svc.Ledger.ListEntries(ctx, testTenant, domain.EntryFilter{SourceType: domain.SourceDepreciation, Period: "2024-03"})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestProcessMonth_PostsLeftoverPendingEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v := e.addVehicle("veh-11", "car", 10000)
	e.schedule(t, "veh-11", 6)

	// An interrupted run left a pending entry behind.
	vehicleID := v.VehicleID
	pending := e.journal(t, domain.BusinessEvent{
		SourceType: domain.SourceDepreciation,
		SourceID:   vehicleID,
		Amount:     decimal.RequireFromString("166.667"),
		VehicleID:  &vehicleID,
		Category:   v.Category,
		Date:       mar2024,
		Fields: map[string]string{
			domain.FieldPlateNumber: v.PlateNumber,
			domain.FieldPeriod:      "2024-03",
		},
	}, false)

	result, err := e.svc.Depreciation.ProcessMonth(ctx, testTenant, mar2024, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, []string{pending.EntryID}, result.EntryIDs)

	stored, err := e.svc.Ledger.GetEntry(ctx, testTenant, pending.EntryID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryPosted, stored.Status)
}

func TestProcessMonth_ReportsItemFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addVehicle("veh-12", "car", 10000)
	e.addVehicle("veh-13", "car", 10000)
	e.schedule(t, "veh-12", 6)
	e.schedule(t, "veh-13", 6)

	// The registry moved veh-13 to another tenant after it was scheduled.
	moved := e.addVehicle("veh-13", "car", 10000)
	moved.TenantID = "tenant-b"
	e.store.PutVehicle(moved)

	result, err := e.svc.Depreciation.ProcessMonth(ctx, testTenant, mar2024, testUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 1, result.ProcessedCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "veh-13", result.Failures[0].VehicleID)
}

func TestBookValue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addVehicle("veh-14", "car", 10000)
	e.schedule(t, "veh-14", 6)

	before, err := e.svc.Depreciation.BookValue(ctx, testTenant, "veh-14", mar2024)
	require.NoError(t, err)
	assert.Equal(t, "10000.000", before.StringFixed(3))

	for _, month := range []time.Time{jan2024, jan2024.AddDate(0, 1, 0)} {
		_, err := e.svc.Depreciation.ProcessMonth(ctx, testTenant, month, testUser)
		require.NoError(t, err)
	}

	after, err := e.svc.Depreciation.BookValue(ctx, testTenant, "veh-14", mar2024)
	require.NoError(t, err)
	assert.Equal(t, "9666.666", after.StringFixed(3))
}
