package dto

import (
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// GenerateScheduleRequest plans depreciation months for a vehicle.
type GenerateScheduleRequest struct {
	VehicleID string `json:"vehicleID" binding:"required"`
	FromMonth string `json:"fromMonth" binding:"required" example:"2024-01"`
	Months    int    `json:"months" binding:"required,min=1,max=600"`
}

// ProcessMonthRequest selects the month to accrue.
type ProcessMonthRequest struct {
	Month string `json:"month" binding:"required" example:"2024-03"`
}

// ScheduleItemResponse defines the data returned for a schedule row.
type ScheduleItemResponse struct {
	ItemID                  string          `json:"itemID"`
	Month                   string          `json:"month" example:"2024-03"`
	MonthlyDepreciation     decimal.Decimal `json:"monthlyDepreciation" swaggertype:"string"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulatedDepreciation" swaggertype:"string"`
	BookValue               decimal.Decimal `json:"bookValue" swaggertype:"string"`
	IsProcessed             bool            `json:"isProcessed"`
	JournalEntryID          *string         `json:"journalEntryID,omitempty"`
	ProcessedAt             *time.Time      `json:"processedAt,omitempty"`
}

// ScheduleResponse is a vehicle's schedule with its current book value.
type ScheduleResponse struct {
	VehicleID string                 `json:"vehicleID"`
	BookValue decimal.Decimal        `json:"bookValue" swaggertype:"string"`
	Items     []ScheduleItemResponse `json:"items"`
}

// ToScheduleResponse converts a vehicle's schedule rows.
func ToScheduleResponse(vehicleID string, bookValue decimal.Decimal, items []domain.DepreciationScheduleItem) ScheduleResponse {
	out := ScheduleResponse{
		VehicleID: vehicleID,
		BookValue: bookValue,
		Items:     make([]ScheduleItemResponse, len(items)),
	}
	for i, it := range items {
		out.Items[i] = ScheduleItemResponse{
			ItemID:                  it.ItemID,
			Month:                   it.Period(),
			MonthlyDepreciation:     it.MonthlyDepreciation,
			AccumulatedDepreciation: it.AccumulatedDepreciation,
			BookValue:               it.BookValue,
			IsProcessed:             it.IsProcessed,
			JournalEntryID:          it.JournalEntryID,
			ProcessedAt:             it.ProcessedAt,
		}
	}
	return out
}
