package repositories

import (
	"context"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

// CorrectionReader defines read operations for correction logs.
type CorrectionReader interface {
	FindCorrectionByID(ctx context.Context, tenantID, correctionID string) (*domain.CorrectionLog, error)

	// FindOpenCorrection returns the detected or reviewing log with the given
	// fingerprint, or ErrNotFound.
	FindOpenCorrection(ctx context.Context, tenantID, fingerprint string) (*domain.CorrectionLog, error)

	ListCorrections(ctx context.Context, tenantID string, filter domain.CorrectionFilter) ([]domain.CorrectionLog, error)
}

// CorrectionWriter defines write operations for correction logs.
type CorrectionWriter interface {
	// SaveCorrection inserts a new log. A second open log with the same
	// fingerprint fails with ErrDuplicate.
	SaveCorrection(ctx context.Context, log domain.CorrectionLog) error

	// UpdateCorrection stores the mutable fields of a log if its stored status
	// still equals expectedStatus, otherwise ErrStateTransition.
	UpdateCorrection(ctx context.Context, log domain.CorrectionLog, expectedStatus domain.CorrectionStatus) error
}

// CorrectionRepositoryFacade combines all correction repository interfaces
type CorrectionRepositoryFacade interface {
	CorrectionReader
	CorrectionWriter
}
