package services

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

// DetectOptions bounds a detector run by entry date. Nil means unbounded.
type DetectOptions struct {
	From *time.Time
	To   *time.Time
}

// DetectionReport lists what a detector run found.
type DetectionReport struct {
	Created []domain.CorrectionLog `json:"created"`
	// AlreadyOpen counts issues that already had an open correction.
	AlreadyOpen int `json:"alreadyOpen"`
}

// DetectorSvc runs the ledger consistency checks.
type DetectorSvc interface {
	RunDetectors(ctx context.Context, tenantID string, opts DetectOptions, userID string) (DetectionReport, error)
}

// CorrectionSvc drives the operator workflow of correction logs.
type CorrectionSvc interface {
	GetCorrection(ctx context.Context, tenantID, correctionID string) (*domain.CorrectionLog, error)
	ListCorrections(ctx context.Context, tenantID string, filter domain.CorrectionFilter) ([]domain.CorrectionLog, error)
	TransitionStatus(ctx context.Context, tenantID, correctionID string, to domain.CorrectionStatus, notes, userID string) (*domain.CorrectionLog, error)

	// ApplyAutoFix reverses every duplicate except the earliest. Only
	// duplicate_entries corrections support it.
	ApplyAutoFix(ctx context.Context, tenantID, correctionID, userID string) (*domain.CorrectionLog, error)
}

// ReconciliationSvcFacade combines detection and correction handling.
type ReconciliationSvcFacade interface {
	DetectorSvc
	CorrectionSvc
}
