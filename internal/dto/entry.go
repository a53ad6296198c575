package dto

import (
	"time"

	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// EntryResponse defines the data returned for a journal entry.
type EntryResponse struct {
	EntryID       string          `json:"entryID"`
	EntryDate     string          `json:"entryDate" example:"2024-03-15"`
	Reference     string          `json:"reference"`
	Description   string          `json:"description"`
	DebitAccount  string          `json:"debitAccount"`
	CreditAccount string          `json:"creditAccount"`
	DebitAmount   decimal.Decimal `json:"debitAmount" swaggertype:"string"`
	CreditAmount  decimal.Decimal `json:"creditAmount" swaggertype:"string"`
	SourceType    string          `json:"sourceType"`
	SourceID      string          `json:"sourceID"`
	Period        string          `json:"period,omitempty"`
	ContractID    *string         `json:"contractID,omitempty"`
	CustomerID    *string         `json:"customerID,omitempty"`
	VehicleID     *string         `json:"vehicleID,omitempty"`
	RuleID        *string         `json:"ruleID,omitempty"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	PostedAt      *time.Time      `json:"postedAt,omitempty"`
	ReversedAt    *time.Time      `json:"reversedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CreatedBy     string          `json:"createdBy"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
	LastUpdatedBy string          `json:"lastUpdatedBy"`
}

// ToEntryResponse converts a domain.JournalEntry to EntryResponse DTO.
func ToEntryResponse(e *domain.JournalEntry) EntryResponse {
	return EntryResponse{
		EntryID:       e.EntryID,
		EntryDate:     e.EntryDate.Format(DateLayout),
		Reference:     e.Reference,
		Description:   e.Description,
		DebitAccount:  e.DebitAccount,
		CreditAccount: e.CreditAccount,
		DebitAmount:   e.DebitAmount,
		CreditAmount:  e.CreditAmount,
		SourceType:    string(e.SourceType),
		SourceID:      e.SourceID,
		Period:        e.Period,
		ContractID:    e.ContractID,
		CustomerID:    e.CustomerID,
		VehicleID:     e.VehicleID,
		RuleID:        e.RuleID,
		Status:        string(e.Status),
		Notes:         e.Notes,
		PostedAt:      e.PostedAt,
		ReversedAt:    e.ReversedAt,
		CreatedAt:     e.CreatedAt,
		CreatedBy:     e.CreatedBy,
		LastUpdatedAt: e.LastUpdatedAt,
		LastUpdatedBy: e.LastUpdatedBy,
	}
}

// ToEntryResponses converts a slice of domain.JournalEntry to []EntryResponse.
func ToEntryResponses(entries []domain.JournalEntry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToEntryResponse(&entries[i])
	}
	return responses
}

// ListEntriesParams defines the query parameters for listing entries.
type ListEntriesParams struct {
	SourceType string `form:"sourceType"`
	SourceID   string `form:"sourceID"`
	Status     string `form:"status" binding:"omitempty,oneof=pending posted reversed"`
	Account    string `form:"account" binding:"omitempty,len=7,numeric"`
	VehicleID  string `form:"vehicleID"`
	ContractID string `form:"contractID"`
	CustomerID string `form:"customerID"`
	Period     string `form:"period"`
	From       string `form:"from"`
	To         string `form:"to"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken  string `form:"nextToken"`
}

// ToFilter converts the query parameters into a domain filter.
func (p ListEntriesParams) ToFilter() (domain.EntryFilter, error) {
	from, err := ParseOptionalDate(p.From)
	if err != nil {
		return domain.EntryFilter{}, err
	}
	to, err := ParseOptionalDate(p.To)
	if err != nil {
		return domain.EntryFilter{}, err
	}
	return domain.EntryFilter{
		SourceType: domain.SourceType(p.SourceType),
		SourceID:   p.SourceID,
		Status:     domain.EntryStatus(p.Status),
		Account:    p.Account,
		VehicleID:  p.VehicleID,
		ContractID: p.ContractID,
		CustomerID: p.CustomerID,
		Period:     p.Period,
		DateFrom:   from,
		DateTo:     to,
		Limit:      p.Limit,
		NextToken:  domain.StringPtr(p.NextToken),
	}, nil
}

// ListEntriesResponse wraps a page of entries.
type ListEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// SaveEntriesResponse is returned whenever entries are journaled.
type SaveEntriesResponse struct {
	EntryIDs []string        `json:"entryIDs"`
	Entries  []EntryResponse `json:"entries"`
	Created  bool            `json:"created"`
	Posted   bool            `json:"posted"`
}

// ToSaveEntriesResponse converts a service SaveResult.
func ToSaveEntriesResponse(r portssvc.SaveResult) SaveEntriesResponse {
	ids := r.EntryIDs
	if ids == nil {
		ids = []string{}
	}
	return SaveEntriesResponse{
		EntryIDs: ids,
		Entries:  ToEntryResponses(r.Entries),
		Created:  r.Created,
		Posted:   r.Posted,
	}
}

// ReverseEntryRequest carries the mandatory reversal reason.
type ReverseEntryRequest struct {
	Reason string `json:"reason"`
}

// BalanceResponse is the posted balance of one account.
type BalanceResponse struct {
	AccountCode string          `json:"accountCode"`
	Balance     decimal.Decimal `json:"balance" swaggertype:"string"`
	AsOf        *string         `json:"asOf,omitempty"`
}
