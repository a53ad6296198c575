package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle is a row of the vehicles table maintained by the fleet registry.
type Vehicle struct {
	VehicleID     string           `db:"vehicle_id"`
	TenantID      string           `db:"tenant_id"`
	PlateNumber   string           `db:"plate_number"`
	Category      string           `db:"category"`
	PurchaseCost  decimal.Decimal  `db:"purchase_cost"`
	PurchaseDate  time.Time        `db:"purchase_date"`
	AnnualRate    *decimal.Decimal `db:"annual_rate"`
	ResidualValue decimal.Decimal  `db:"residual_value"`
	IsActive      bool             `db:"is_active"`
}

// DepreciationScheduleItem is a row of the depreciation_schedule table.
type DepreciationScheduleItem struct {
	ItemID                  string          `db:"item_id"`
	TenantID                string          `db:"tenant_id"`
	VehicleID               string          `db:"vehicle_id"`
	DepreciationDate        time.Time       `db:"depreciation_date"`
	MonthlyDepreciation     decimal.Decimal `db:"monthly_depreciation"`
	AccumulatedDepreciation decimal.Decimal `db:"accumulated_depreciation"`
	BookValue               decimal.Decimal `db:"book_value"`
	IsProcessed             bool            `db:"is_processed"`
	JournalEntryID          *string         `db:"journal_entry_id"`
	ProcessedAt             *time.Time      `db:"processed_at"`
	AuditFields
}
