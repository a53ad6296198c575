package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// SourceType identifies the business event a journal entry originates from.
type SourceType string

const (
	SourceInvoice            SourceType = "invoice"
	SourcePayment            SourceType = "payment"
	SourcePenalty            SourceType = "penalty"
	SourceDepreciation       SourceType = "depreciation"
	SourceContractCompletion SourceType = "contract_completion"
)

// SourceTypes lists every supported source type in a stable order.
var SourceTypes = []SourceType{
	SourceInvoice,
	SourcePayment,
	SourcePenalty,
	SourceDepreciation,
	SourceContractCompletion,
}

// Valid reports whether s is one of the supported source types.
func (s SourceType) Valid() bool {
	for _, st := range SourceTypes {
		if s == st {
			return true
		}
	}
	return false
}

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryPosted   EntryStatus = "posted"
	EntryReversed EntryStatus = "reversed"
)

// accountCodePattern is the fixed-width numeric account code format.
var accountCodePattern = regexp.MustCompile(`^[0-9]{7}$`)

// ValidateAccountCode checks the 7 digit account code format.
func ValidateAccountCode(code string) error {
	if !accountCodePattern.MatchString(code) {
		return fmt.Errorf("%w: %q is not a 7 digit code", apperrors.ErrInvalidAccountCode, code)
	}
	return nil
}

// JournalEntry is a balanced double-entry record with one debit leg and one
// credit leg of equal amounts.
type JournalEntry struct {
	EntryID       string          `json:"entryID"`
	TenantID      string          `json:"tenantID"`
	EntryDate     time.Time       `json:"entryDate"`
	Reference     string          `json:"reference"` // unique within tenant
	Description   string          `json:"description"`
	DebitAccount  string          `json:"debitAccount"`
	CreditAccount string          `json:"creditAccount"`
	DebitAmount   decimal.Decimal `json:"debitAmount"`
	CreditAmount  decimal.Decimal `json:"creditAmount"`
	SourceType    SourceType      `json:"sourceType"`
	SourceID      string          `json:"sourceID"`
	Period        string          `json:"period,omitempty"` // YYYY-MM, depreciation only
	ContractID    *string         `json:"contractID,omitempty"`
	CustomerID    *string         `json:"customerID,omitempty"`
	VehicleID     *string         `json:"vehicleID,omitempty"`
	RuleID        *string         `json:"ruleID,omitempty"`
	Status        EntryStatus     `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	PostedAt      *time.Time      `json:"postedAt,omitempty"`
	ReversedAt    *time.Time      `json:"reversedAt,omitempty"`
	AuditFields
}

// Amount returns the entry value. For a valid entry both legs are equal.
func (e JournalEntry) Amount() decimal.Decimal {
	return e.DebitAmount
}

// Validate enforces the construction invariants of a live entry.
func (e JournalEntry) Validate() error {
	fail := func(kind error, account, detail string) error {
		return &apperrors.EntryError{
			Kind:       kind,
			SourceType: string(e.SourceType),
			SourceID:   e.SourceID,
			Reference:  e.Reference,
			Account:    account,
			Detail:     detail,
		}
	}

	if !e.SourceType.Valid() {
		return fail(apperrors.ErrValidation, "", fmt.Sprintf("unsupported source type %q", e.SourceType))
	}
	if e.SourceID == "" {
		return fail(apperrors.ErrValidation, "", "source id is required")
	}
	if e.Reference == "" {
		return fail(apperrors.ErrValidation, "", "reference is required")
	}
	if err := ValidateAccountCode(e.DebitAccount); err != nil {
		return fail(apperrors.ErrInvalidAccountCode, e.DebitAccount, "debit account")
	}
	if err := ValidateAccountCode(e.CreditAccount); err != nil {
		return fail(apperrors.ErrInvalidAccountCode, e.CreditAccount, "credit account")
	}
	if e.DebitAccount == e.CreditAccount {
		return fail(apperrors.ErrUnbalancedConstruction, e.DebitAccount, "debit and credit accounts are the same")
	}
	if !e.DebitAmount.Equal(e.CreditAmount) {
		return fail(apperrors.ErrUnbalancedConstruction, "",
			fmt.Sprintf("debit %s does not equal credit %s", e.DebitAmount, e.CreditAmount))
	}
	if !e.DebitAmount.IsPositive() {
		return fail(apperrors.ErrUnbalancedConstruction, "", fmt.Sprintf("amount %s must be positive", e.DebitAmount))
	}
	return nil
}

// EntryAction is an operation requested against the posting lifecycle.
type EntryAction string

const (
	ActionPost    EntryAction = "post"
	ActionReverse EntryAction = "reverse"
	ActionDiscard EntryAction = "discard"
)

// NextStatus returns the status an entry moves to when action is applied.
// A post on an already posted entry is a no-op and returns (EntryPosted, false, nil).
// Discard returns an empty status: the entry is removed.
func NextStatus(current EntryStatus, action EntryAction) (next EntryStatus, changed bool, err error) {
	switch action {
	case ActionPost:
		switch current {
		case EntryPending:
			return EntryPosted, true, nil
		case EntryPosted:
			return EntryPosted, false, nil
		}
	case ActionReverse:
		if current == EntryPosted {
			return EntryReversed, true, nil
		}
	case ActionDiscard:
		if current == EntryPending {
			return "", true, nil
		}
	}
	return current, false, fmt.Errorf("%w: cannot %s an entry in status %s", apperrors.ErrStateTransition, action, current)
}
