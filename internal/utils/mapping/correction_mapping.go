package mapping

import (
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/SscSPs/fleet_ledger/internal/models"
)

// ToModelCorrectionLog converts a domain correction log to its row model
func ToModelCorrectionLog(d domain.CorrectionLog) models.CorrectionLog {
	return models.CorrectionLog{
		CorrectionID:      d.CorrectionID,
		TenantID:          d.TenantID,
		ToolID:            d.ToolID,
		DetectionDate:     d.DetectionDate,
		ErrorType:         string(d.ErrorType),
		ErrorDescription:  d.ErrorDescription,
		AffectedEntries:   d.AffectedEntries,
		Fingerprint:       d.Fingerprint,
		SeverityLevel:     string(d.SeverityLevel),
		Status:            string(d.Status),
		AutoFixApplied:    d.AutoFixApplied,
		ManualFixRequired: d.ManualFixRequired,
		ResolutionNotes:   domain.StringPtr(d.ResolutionNotes),
		ResolvedAt:        d.ResolvedAt,
		ResolvedBy:        d.ResolvedBy,
		AuditFields:       models.AuditFields(d.AuditFields),
	}
}

// ToDomainCorrectionLog converts a row model to a domain correction log
func ToDomainCorrectionLog(m models.CorrectionLog) domain.CorrectionLog {
	return domain.CorrectionLog{
		CorrectionID:      m.CorrectionID,
		TenantID:          m.TenantID,
		ToolID:            m.ToolID,
		DetectionDate:     m.DetectionDate,
		ErrorType:         domain.ErrorType(m.ErrorType),
		ErrorDescription:  m.ErrorDescription,
		AffectedEntries:   m.AffectedEntries,
		Fingerprint:       m.Fingerprint,
		SeverityLevel:     domain.Severity(m.SeverityLevel),
		Status:            domain.CorrectionStatus(m.Status),
		AutoFixApplied:    m.AutoFixApplied,
		ManualFixRequired: m.ManualFixRequired,
		ResolutionNotes:   domain.StringValue(m.ResolutionNotes),
		ResolvedAt:        m.ResolvedAt,
		ResolvedBy:        m.ResolvedBy,
		AuditFields:       domain.AuditFields(m.AuditFields),
	}
}
