package mapping

import (
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/SscSPs/fleet_ledger/internal/models"
)

// ToDomainVehicle converts a model Vehicle to a domain Vehicle
func ToDomainVehicle(m models.Vehicle) domain.Vehicle {
	return domain.Vehicle{
		VehicleID:     m.VehicleID,
		TenantID:      m.TenantID,
		PlateNumber:   m.PlateNumber,
		Category:      m.Category,
		PurchaseCost:  m.PurchaseCost,
		PurchaseDate:  m.PurchaseDate,
		AnnualRate:    m.AnnualRate,
		ResidualValue: m.ResidualValue,
		IsActive:      m.IsActive,
	}
}

// ToModelScheduleItem converts a domain schedule item to its row model
func ToModelScheduleItem(d domain.DepreciationScheduleItem) models.DepreciationScheduleItem {
	return models.DepreciationScheduleItem{
		ItemID:                  d.ItemID,
		TenantID:                d.TenantID,
		VehicleID:               d.VehicleID,
		DepreciationDate:        d.DepreciationDate,
		MonthlyDepreciation:     d.MonthlyDepreciation,
		AccumulatedDepreciation: d.AccumulatedDepreciation,
		BookValue:               d.BookValue,
		IsProcessed:             d.IsProcessed,
		JournalEntryID:          d.JournalEntryID,
		ProcessedAt:             d.ProcessedAt,
		AuditFields:             models.AuditFields(d.AuditFields),
	}
}

// ToDomainScheduleItem converts a row model to a domain schedule item
func ToDomainScheduleItem(m models.DepreciationScheduleItem) domain.DepreciationScheduleItem {
	return domain.DepreciationScheduleItem{
		ItemID:                  m.ItemID,
		TenantID:                m.TenantID,
		VehicleID:               m.VehicleID,
		DepreciationDate:        m.DepreciationDate,
		MonthlyDepreciation:     m.MonthlyDepreciation,
		AccumulatedDepreciation: m.AccumulatedDepreciation,
		BookValue:               m.BookValue,
		IsProcessed:             m.IsProcessed,
		JournalEntryID:          m.JournalEntryID,
		ProcessedAt:             m.ProcessedAt,
		AuditFields:             domain.AuditFields(m.AuditFields),
	}
}
