package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

func cloneCorrection(c domain.CorrectionLog) domain.CorrectionLog {
	c.AffectedEntries = append([]string(nil), c.AffectedEntries...)
	return c
}

// FindCorrectionByID retrieves a correction log of the tenant.
func (s *Store) FindCorrectionByID(ctx context.Context, tenantID, correctionID string) (*domain.CorrectionLog, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, ok := s.corrections[correctionID]
	if !ok || c.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	c = cloneCorrection(c)
	return &c, nil
}

// FindOpenCorrection returns the open log carrying the fingerprint.
func (s *Store) FindOpenCorrection(ctx context.Context, tenantID, fingerprint string) (*domain.CorrectionLog, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if c := s.openCorrection(tenantID, fingerprint); c != nil {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) openCorrection(tenantID, fingerprint string) *domain.CorrectionLog {
	for _, c := range s.corrections {
		if c.TenantID == tenantID && c.Fingerprint == fingerprint && c.Status.Open() {
			found := cloneCorrection(c)
			return &found
		}
	}
	return nil
}

// ListCorrections returns logs newest first.
func (s *Store) ListCorrections(ctx context.Context, tenantID string, filter domain.CorrectionFilter) ([]domain.CorrectionLog, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]domain.CorrectionLog, 0)
	for _, c := range s.corrections {
		if c.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.ErrorType != "" && c.ErrorType != filter.ErrorType {
			continue
		}
		if filter.ToolID != "" && c.ToolID != filter.ToolID {
			continue
		}
		out = append(out, cloneCorrection(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DetectionDate.Equal(out[j].DetectionDate) {
			return out[i].DetectionDate.After(out[j].DetectionDate)
		}
		return out[i].CorrectionID < out[j].CorrectionID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// SaveCorrection inserts a log unless an open log has the same fingerprint.
func (s *Store) SaveCorrection(ctx context.Context, log domain.CorrectionLog) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, exists := s.corrections[log.CorrectionID]; exists {
		return apperrors.NewAppError(409, "correction "+log.CorrectionID+" already exists", apperrors.ErrDuplicate)
	}
	if log.Status.Open() && s.openCorrection(log.TenantID, log.Fingerprint) != nil {
		return apperrors.NewAppError(409, "an open correction for this issue already exists", apperrors.ErrDuplicate)
	}
	s.corrections[log.CorrectionID] = cloneCorrection(log)
	return nil
}

// UpdateCorrection stores the log if its status is still expectedStatus.
func (s *Store) UpdateCorrection(ctx context.Context, log domain.CorrectionLog, expectedStatus domain.CorrectionStatus) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := s.corrections[log.CorrectionID]
	if !ok || existing.TenantID != log.TenantID {
		return apperrors.ErrNotFound
	}
	if existing.Status != expectedStatus {
		return fmt.Errorf("%w: correction %s is %s, expected %s", apperrors.ErrStateTransition, log.CorrectionID, existing.Status, expectedStatus)
	}
	s.corrections[log.CorrectionID] = cloneCorrection(log)
	return nil
}
