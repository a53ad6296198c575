package models

import "time"

// CorrectionLog is a row of the correction_logs table.
type CorrectionLog struct {
	CorrectionID      string     `db:"correction_id"`
	TenantID          string     `db:"tenant_id"`
	ToolID            string     `db:"tool_id"`
	DetectionDate     time.Time  `db:"detection_date"`
	ErrorType         string     `db:"error_type"`
	ErrorDescription  string     `db:"error_description"`
	AffectedEntries   []string   `db:"affected_entries"` // text[]
	Fingerprint       string     `db:"fingerprint"`
	SeverityLevel     string     `db:"severity_level"`
	Status            string     `db:"status"`
	AutoFixApplied    bool       `db:"auto_fix_applied"`
	ManualFixRequired bool       `db:"manual_fix_required"`
	ResolutionNotes   *string    `db:"resolution_notes"`
	ResolvedAt        *time.Time `db:"resolved_at"`
	ResolvedBy        *string    `db:"resolved_by"`
	AuditFields
}
