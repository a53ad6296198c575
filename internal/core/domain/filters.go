package domain

import "time"

// EntryFilter narrows journal entry listings. Zero values mean "any".
type EntryFilter struct {
	SourceType SourceType
	SourceID   string
	Status     EntryStatus
	Account    string // matches either leg
	VehicleID  string
	ContractID string
	CustomerID string
	Period     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	NextToken  *string
}

// CorrectionFilter narrows correction log listings.
type CorrectionFilter struct {
	Status    CorrectionStatus
	ErrorType ErrorType
	ToolID    string
	Limit     int
}

// RuleFilter narrows automation rule listings.
type RuleFilter struct {
	TriggerEvent SourceType
	ActiveOnly   bool
}
