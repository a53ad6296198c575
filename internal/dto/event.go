package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// BusinessEventRequest is the wire form of a business event.
type BusinessEventRequest struct {
	SourceType string            `json:"sourceType" binding:"required"`
	SourceID   string            `json:"sourceID" binding:"required"`
	Amount     decimal.Decimal   `json:"amount" swaggertype:"string" example:"250.000"`
	ContractID *string           `json:"contractID,omitempty"`
	CustomerID *string           `json:"customerID,omitempty"`
	VehicleID  *string           `json:"vehicleID,omitempty"`
	Category   string            `json:"category"`
	Date       string            `json:"date" binding:"required" example:"2024-03-15"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// ToDomain converts the request into a domain event.
func (r BusinessEventRequest) ToDomain() (domain.BusinessEvent, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return domain.BusinessEvent{}, err
	}
	return domain.BusinessEvent{
		SourceType: domain.SourceType(strings.TrimSpace(r.SourceType)),
		SourceID:   strings.TrimSpace(r.SourceID),
		Amount:     r.Amount,
		ContractID: r.ContractID,
		CustomerID: r.CustomerID,
		VehicleID:  r.VehicleID,
		Category:   strings.TrimSpace(r.Category),
		Date:       date,
		Fields:     r.Fields,
	}, nil
}

// JournalEventRequest journals one event directly, without rules.
type JournalEventRequest struct {
	Event    BusinessEventRequest `json:"event" binding:"required"`
	AutoPost bool                 `json:"autoPost"`
}

// ProcessEventResponse lists the executions of every rule matching an event.
type ProcessEventResponse struct {
	Executions []domain.RuleExecution `json:"executions"`
	Errors     []string               `json:"errors,omitempty"`
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", apperrors.ErrValidation, raw)
	}
	return t, nil
}

// ParseOptionalDate parses raw when set.
func ParseOptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseMonth parses a YYYY-MM period into the first day of the month.
func ParseMonth(raw string) (time.Time, error) {
	t, err := domain.ParsePeriod(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid month %q, expected YYYY-MM", apperrors.ErrValidation, raw)
	}
	return t, nil
}
