package domain

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"golang.org/x/crypto/blake2b"
)

// Detector tool identifiers.
const (
	ToolDuplicateDetector = "duplicate_detector"
	ToolBalanceChecker    = "balance_checker"
)

// ErrorType classifies a detected ledger problem.
type ErrorType string

const (
	ErrorDuplicateEntries  ErrorType = "duplicate_entries"
	ErrorUnbalancedEntries ErrorType = "unbalanced_entries"
)

// Severity ranks how urgently a correction needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// CorrectionStatus is the operator workflow state of a correction log.
type CorrectionStatus string

const (
	CorrectionDetected  CorrectionStatus = "detected"
	CorrectionReviewing CorrectionStatus = "reviewing"
	CorrectionFixed     CorrectionStatus = "fixed"
	CorrectionIgnored   CorrectionStatus = "ignored"
)

// Open reports whether the correction still awaits a decision.
func (s CorrectionStatus) Open() bool {
	return s == CorrectionDetected || s == CorrectionReviewing
}

var correctionTransitions = map[CorrectionStatus][]CorrectionStatus{
	CorrectionDetected:  {CorrectionReviewing, CorrectionIgnored},
	CorrectionReviewing: {CorrectionFixed},
}

// CorrectionLog records one detected ledger problem and its resolution.
type CorrectionLog struct {
	CorrectionID      string           `json:"correctionID"`
	TenantID          string           `json:"tenantID"`
	ToolID            string           `json:"toolID"`
	DetectionDate     time.Time        `json:"detectionDate"`
	ErrorType         ErrorType        `json:"errorType"`
	ErrorDescription  string           `json:"errorDescription"`
	AffectedEntries   []string         `json:"affectedEntries"`
	Fingerprint       string           `json:"fingerprint"`
	SeverityLevel     Severity         `json:"severityLevel"`
	Status            CorrectionStatus `json:"status"`
	AutoFixApplied    bool             `json:"autoFixApplied"`
	ManualFixRequired bool             `json:"manualFixRequired"`
	ResolutionNotes   string           `json:"resolutionNotes,omitempty"`
	ResolvedAt        *time.Time       `json:"resolvedAt,omitempty"`
	ResolvedBy        *string          `json:"resolvedBy,omitempty"`
	AuditFields
}

// CanTransition validates a status change. Moving to fixed needs either an
// applied automatic fix or resolution notes.
func (c CorrectionLog) CanTransition(to CorrectionStatus, notes string) error {
	allowed := false
	for _, s := range correctionTransitions[c.Status] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: correction cannot move from %s to %s", apperrors.ErrStateTransition, c.Status, to)
	}
	if to == CorrectionFixed && !c.AutoFixApplied && strings.TrimSpace(notes) == "" && strings.TrimSpace(c.ResolutionNotes) == "" {
		return fmt.Errorf("%w: fixing a correction requires an applied auto fix or resolution notes", apperrors.ErrValidation)
	}
	return nil
}

// Fingerprint identifies an issue by its type and affected entry set,
// independent of entry order.
func Fingerprint(errorType ErrorType, entryIDs []string) string {
	ids := append([]string(nil), entryIDs...)
	sort.Strings(ids)
	sum := blake2b.Sum256([]byte(string(errorType) + "|" + strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:])
}
