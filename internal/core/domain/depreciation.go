package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle is the fleet asset record depreciation is computed for. It is owned
// by the fleet registry and is read-only here.
type Vehicle struct {
	VehicleID     string           `json:"vehicleID"`
	TenantID      string           `json:"tenantID"`
	PlateNumber   string           `json:"plateNumber"`
	Category      string           `json:"category"` // car, bus, truck, equipment
	PurchaseCost  decimal.Decimal  `json:"purchaseCost"`
	PurchaseDate  time.Time        `json:"purchaseDate"`
	AnnualRate    *decimal.Decimal `json:"annualRate,omitempty"` // nil means category default
	ResidualValue decimal.Decimal  `json:"residualValue"`
	IsActive      bool             `json:"isActive"`
}

// DepreciationScheduleItem is one month of a vehicle's depreciation plan.
type DepreciationScheduleItem struct {
	ItemID                  string          `json:"itemID"`
	TenantID                string          `json:"tenantID"`
	VehicleID               string          `json:"vehicleID"`
	DepreciationDate        time.Time       `json:"depreciationDate"` // first day of month
	MonthlyDepreciation     decimal.Decimal `json:"monthlyDepreciation"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulatedDepreciation"`
	BookValue               decimal.Decimal `json:"bookValue"`
	IsProcessed             bool            `json:"isProcessed"`
	JournalEntryID          *string         `json:"journalEntryID,omitempty"`
	ProcessedAt             *time.Time      `json:"processedAt,omitempty"`
	AuditFields
}

// Period returns the YYYY-MM key of the item.
func (i DepreciationScheduleItem) Period() string {
	return PeriodKey(i.DepreciationDate)
}

// DepreciationPolicy holds the tenant-independent accrual parameters.
type DepreciationPolicy struct {
	DefaultRate   decimal.Decimal
	CategoryRates map[string]decimal.Decimal
	MaxFraction   decimal.Decimal
	Scale         int32
}

// DefaultDepreciationPolicy returns the built-in rates with an 80% cap and 3 decimal places.
func DefaultDepreciationPolicy() DepreciationPolicy {
	return DepreciationPolicy{
		DefaultRate: decimal.RequireFromString("0.20"),
		CategoryRates: map[string]decimal.Decimal{
			"car":       decimal.RequireFromString("0.20"),
			"bus":       decimal.RequireFromString("0.15"),
			"truck":     decimal.RequireFromString("0.15"),
			"equipment": decimal.RequireFromString("0.25"),
		},
		MaxFraction: decimal.RequireFromString("0.80"),
		Scale:       3,
	}
}

// AnnualRate returns the vehicle's own rate, or the category or default rate.
func (p DepreciationPolicy) AnnualRate(v Vehicle) decimal.Decimal {
	if v.AnnualRate != nil {
		return *v.AnnualRate
	}
	if r, ok := p.CategoryRates[v.Category]; ok {
		return r
	}
	return p.DefaultRate
}

// MonthlyDepreciation is cost × annual rate / 12, rounded to the policy scale.
func (p DepreciationPolicy) MonthlyDepreciation(v Vehicle) decimal.Decimal {
	return v.PurchaseCost.Mul(p.AnnualRate(v)).Div(decimal.NewFromInt(12)).Round(p.Scale)
}

// AccumulatedCap is the most that may ever be accumulated for v: the lower of
// cost × max fraction and cost − residual value.
func (p DepreciationPolicy) AccumulatedCap(v Vehicle) decimal.Decimal {
	byFraction := v.PurchaseCost.Mul(p.MaxFraction).Round(p.Scale)
	byResidual := v.PurchaseCost.Sub(v.ResidualValue)
	if byResidual.IsNegative() {
		byResidual = decimal.Zero
	}
	return decimal.Min(byFraction, byResidual)
}

// NextAccumulated advances accumulated depreciation by one month, honouring the cap.
// It returns the new accumulated total and the increment actually applied.
func (p DepreciationPolicy) NextAccumulated(v Vehicle, previous decimal.Decimal) (accumulated, increment decimal.Decimal) {
	limit := p.AccumulatedCap(v)
	accumulated = decimal.Min(previous.Add(p.MonthlyDepreciation(v)), limit)
	if accumulated.LessThan(previous) {
		accumulated = previous
	}
	return accumulated, accumulated.Sub(previous)
}

// BookValue is cost − accumulated, floored at the residual value.
func BookValue(v Vehicle, accumulated decimal.Decimal) decimal.Decimal {
	return decimal.Max(v.PurchaseCost.Sub(accumulated), v.ResidualValue)
}

// ProcessMonthResult summarises one monthly depreciation run.
type ProcessMonthResult struct {
	TargetMonth    string          `json:"targetMonth"`
	ProcessedCount int             `json:"processedCount"`
	SkippedCount   int             `json:"skippedCount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	EntryIDs       []string        `json:"entryIDs"`
	Failures       []ItemFailure   `json:"failures,omitempty"`
}

// ItemFailure records a schedule item that could not be processed.
type ItemFailure struct {
	ItemID    string `json:"itemID"`
	VehicleID string `json:"vehicleID"`
	Error     string `json:"error"`
}
