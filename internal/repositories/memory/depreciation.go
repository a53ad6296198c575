package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

// PutVehicle registers or replaces a vehicle record.
func (s *Store) PutVehicle(v domain.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.VehicleID] = v
}

// FindVehicleByID retrieves a vehicle of the tenant.
func (s *Store) FindVehicleByID(ctx context.Context, tenantID, vehicleID string) (*domain.Vehicle, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok || v.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	return &v, nil
}

// ListActiveVehicles returns the tenant's active vehicles ordered by id.
func (s *Store) ListActiveVehicles(ctx context.Context, tenantID string) ([]domain.Vehicle, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]domain.Vehicle, 0)
	for _, v := range s.vehicles {
		if v.TenantID == tenantID && v.IsActive {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

// ListScheduleByVehicle returns the vehicle's schedule ordered by month.
func (s *Store) ListScheduleByVehicle(ctx context.Context, tenantID, vehicleID string) ([]domain.DepreciationScheduleItem, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]domain.DepreciationScheduleItem, 0)
	for _, item := range s.schedule {
		if item.TenantID == tenantID && item.VehicleID == vehicleID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepreciationDate.Before(out[j].DepreciationDate) })
	return out, nil
}

// ListUnprocessedItems returns the month's unprocessed items ordered by vehicle.
func (s *Store) ListUnprocessedItems(ctx context.Context, tenantID string, month time.Time) ([]domain.DepreciationScheduleItem, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	month = domain.MonthStart(month)
	out := make([]domain.DepreciationScheduleItem, 0)
	for _, item := range s.schedule {
		if item.TenantID == tenantID && !item.IsProcessed && item.DepreciationDate.Equal(month) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

// LockScheduleItem re-reads the item. Transactions already serialise on the
// store mutex, so no extra lock is taken.
func (s *Store) LockScheduleItem(ctx context.Context, tenantID, itemID string) (*domain.DepreciationScheduleItem, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	item, ok := s.schedule[itemID]
	if !ok || item.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	return &item, nil
}

// InsertScheduleItems stores items whose (vehicle, month) is not yet scheduled.
func (s *Store) InsertScheduleItems(ctx context.Context, tenantID string, items []domain.DepreciationScheduleItem) (int, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	taken := make(map[string]bool)
	for _, item := range s.schedule {
		if item.TenantID == tenantID {
			taken[item.VehicleID+"|"+item.Period()] = true
		}
	}
	inserted := 0
	for _, item := range items {
		key := item.VehicleID + "|" + item.Period()
		if taken[key] {
			continue
		}
		item.TenantID = tenantID
		s.schedule[item.ItemID] = item
		taken[key] = true
		inserted++
	}
	return inserted, nil
}

// MarkItemProcessed flags the item processed and links the entry.
func (s *Store) MarkItemProcessed(ctx context.Context, tenantID, itemID, entryID, userID string, at time.Time) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	item, ok := s.schedule[itemID]
	if !ok || item.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	item.IsProcessed = true
	item.JournalEntryID = domain.StringPtr(entryID)
	item.ProcessedAt = &at
	item.LastUpdatedAt = at
	item.LastUpdatedBy = userID
	s.schedule[itemID] = item
	return nil
}
