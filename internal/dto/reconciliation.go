package dto

import (
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
)

// RunDetectorsRequest bounds a detector run by entry date. Both ends are optional.
type RunDetectorsRequest struct {
	From string `json:"from" example:"2024-01-01"`
	To   string `json:"to" example:"2024-12-31"`
}

// ToOptions converts the request into detector options.
func (r RunDetectorsRequest) ToOptions() (portssvc.DetectOptions, error) {
	from, err := ParseOptionalDate(r.From)
	if err != nil {
		return portssvc.DetectOptions{}, err
	}
	to, err := ParseOptionalDate(r.To)
	if err != nil {
		return portssvc.DetectOptions{}, err
	}
	return portssvc.DetectOptions{From: from, To: to}, nil
}

// ListCorrectionsParams defines the query parameters for listing corrections.
type ListCorrectionsParams struct {
	Status    string `form:"status" binding:"omitempty,oneof=detected reviewing fixed ignored"`
	ErrorType string `form:"errorType" binding:"omitempty,oneof=duplicate_entries unbalanced_entries"`
	ToolID    string `form:"toolID"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// ToFilter converts the query parameters into a domain filter.
func (p ListCorrectionsParams) ToFilter() domain.CorrectionFilter {
	return domain.CorrectionFilter{
		Status:    domain.CorrectionStatus(p.Status),
		ErrorType: domain.ErrorType(p.ErrorType),
		ToolID:    p.ToolID,
		Limit:     p.Limit,
	}
}

// TransitionCorrectionRequest moves a correction through its workflow.
type TransitionCorrectionRequest struct {
	Status string `json:"status" binding:"required,oneof=detected reviewing fixed ignored"`
	Notes  string `json:"notes"`
}
