package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
)

// AccountPair is a debit/credit account code pair.
type AccountPair struct {
	Debit  string `json:"debit" mapstructure:"debit" validate:"required,len=7,numeric"`
	Credit string `json:"credit" mapstructure:"credit" validate:"required,len=7,numeric"`
}

// AccountOverride replaces one or both legs of a base pair for a category.
type AccountOverride struct {
	Debit  string `json:"debit,omitempty" mapstructure:"debit" validate:"omitempty,len=7,numeric"`
	Credit string `json:"credit,omitempty" mapstructure:"credit" validate:"omitempty,len=7,numeric"`
}

// LegTemplate describes how one entry of an event is booked.
type LegTemplate struct {
	Base               AccountPair                `json:"base" mapstructure:"base" validate:"required"`
	Categories         map[string]AccountOverride `json:"categories,omitempty" mapstructure:"categories" validate:"dive"`
	ReferencePattern   string                     `json:"referencePattern" mapstructure:"reference_pattern" validate:"required"`
	DescriptionPattern string                     `json:"descriptionPattern" mapstructure:"description_pattern"`
}

// Accounts returns the pair for category, falling back to the base codes for
// any leg the category does not override.
func (l LegTemplate) Accounts(category string) AccountPair {
	pair := l.Base
	if o, ok := l.Categories[category]; ok {
		if o.Debit != "" {
			pair.Debit = o.Debit
		}
		if o.Credit != "" {
			pair.Credit = o.Credit
		}
	}
	return pair
}

func (l LegTemplate) validate(sourceType SourceType, leg string) error {
	check := func(code, where string) error {
		if err := ValidateAccountCode(code); err != nil {
			return &apperrors.EntryError{
				Kind:       apperrors.ErrInvalidAccountCode,
				SourceType: string(sourceType),
				Account:    code,
				Detail:     fmt.Sprintf("%s %s", leg, where),
			}
		}
		return nil
	}
	if err := check(l.Base.Debit, "base debit"); err != nil {
		return err
	}
	if err := check(l.Base.Credit, "base credit"); err != nil {
		return err
	}
	for cat, o := range l.Categories {
		if o.Debit != "" {
			if err := check(o.Debit, "debit for category "+cat); err != nil {
				return err
			}
		}
		if o.Credit != "" {
			if err := check(o.Credit, "credit for category "+cat); err != nil {
				return err
			}
		}
	}
	return nil
}

// AccountTemplate maps one source type to its account codes. Contract
// completion templates carry a second Clearance leg.
type AccountTemplate struct {
	SourceType  SourceType   `json:"sourceType" mapstructure:"source_type" validate:"required"`
	LegTemplate `mapstructure:",squash"`
	Clearance   *LegTemplate `json:"clearance,omitempty" mapstructure:"clearance" validate:"omitempty"`
}

// Validate checks every account code the template can resolve to.
func (t AccountTemplate) Validate() error {
	if !t.SourceType.Valid() {
		return fmt.Errorf("%w: unsupported source type %q", apperrors.ErrValidation, t.SourceType)
	}
	if err := t.LegTemplate.validate(t.SourceType, "primary"); err != nil {
		return err
	}
	if t.Clearance != nil {
		if err := t.Clearance.validate(t.SourceType, "clearance"); err != nil {
			return err
		}
	}
	return nil
}

// TemplateSet is an immutable, versioned snapshot of all account templates.
type TemplateSet struct {
	Version   string                         `json:"version"`
	LoadedAt  time.Time                      `json:"loadedAt"`
	Templates map[SourceType]AccountTemplate `json:"templates"`
}

// Validate checks every template in the set.
func (s TemplateSet) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("%w: template set version is required", apperrors.ErrValidation)
	}
	for st, t := range s.Templates {
		if st != t.SourceType {
			return fmt.Errorf("%w: template keyed %q declares source type %q", apperrors.ErrValidation, st, t.SourceType)
		}
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ResolvedAccounts is the resolver output consumed by the journal builder.
type ResolvedAccounts struct {
	SourceType         SourceType        `json:"sourceType"`
	Category           string            `json:"category"`
	DebitAccount       string            `json:"debitAccount"`
	CreditAccount      string            `json:"creditAccount"`
	ReferencePattern   string            `json:"referencePattern"`
	DescriptionPattern string            `json:"descriptionPattern"`
	Clearance          *ResolvedAccounts `json:"clearance,omitempty"`
	TemplateVersion    string            `json:"templateVersion"`
}

// DefaultTemplateSet is the built-in chart used when no template file is configured.
func DefaultTemplateSet() TemplateSet {
	return TemplateSet{
		Version: "builtin-1",
		Templates: map[SourceType]AccountTemplate{
			SourceInvoice: {
				SourceType: SourceInvoice,
				LegTemplate: LegTemplate{
					Base: AccountPair{Debit: "1130000", Credit: "4110000"},
					Categories: map[string]AccountOverride{
						"individual": {Debit: "1130001", Credit: "4110001"},
						"company":    {Debit: "1130002", Credit: "4110002"},
						"government": {Debit: "1130003", Credit: "4110003"},
					},
					ReferencePattern:   "INV-{contract_number}-{source_id}",
					DescriptionPattern: "Rental invoice {invoice_number} for contract {contract_number}",
				},
			},
			SourcePayment: {
				SourceType: SourcePayment,
				LegTemplate: LegTemplate{
					Base: AccountPair{Debit: "1110001", Credit: "1130000"},
					Categories: map[string]AccountOverride{
						"individual": {Credit: "1130001"},
						"company":    {Credit: "1130002"},
						"government": {Debit: "1120001", Credit: "1130003"},
					},
					ReferencePattern:   "PAY-{contract_number}-{source_id}",
					DescriptionPattern: "Payment {receipt_number} received for contract {contract_number}",
				},
			},
			SourcePenalty: {
				SourceType: SourcePenalty,
				LegTemplate: LegTemplate{
					Base: AccountPair{Debit: "1130000", Credit: "4210000"},
					Categories: map[string]AccountOverride{
						"individual": {Debit: "1130001"},
						"company":    {Debit: "1130002"},
						"government": {Debit: "1130003"},
					},
					ReferencePattern:   "PEN-{contract_number}-{source_id}",
					DescriptionPattern: "Penalty {penalty_type} on contract {contract_number}",
				},
			},
			SourceDepreciation: {
				SourceType: SourceDepreciation,
				LegTemplate: LegTemplate{
					Base: AccountPair{Debit: "5310000", Credit: "1290000"},
					Categories: map[string]AccountOverride{
						"car":       {Debit: "5310001", Credit: "1290001"},
						"bus":       {Debit: "5310002", Credit: "1290002"},
						"truck":     {Debit: "5310003", Credit: "1290003"},
						"equipment": {Debit: "5310004", Credit: "1290004"},
					},
					ReferencePattern:   "DEP-{period}-{plate_number}-{source_id}",
					DescriptionPattern: "Monthly depreciation {period} for vehicle {plate_number}",
				},
			},
			SourceContractCompletion: {
				SourceType: SourceContractCompletion,
				LegTemplate: LegTemplate{
					Base: AccountPair{Debit: "2150000", Credit: "1110001"},
					Categories: map[string]AccountOverride{
						"individual": {Debit: "2150001"},
						"company":    {Debit: "2150002"},
						"government": {Debit: "2150003"},
					},
					ReferencePattern:   "CC-{contract_number}-{source_id}-DEP",
					DescriptionPattern: "Deposit return for contract {contract_number}",
				},
				Clearance: &LegTemplate{
					Base: AccountPair{Debit: "2150000", Credit: "1130000"},
					Categories: map[string]AccountOverride{
						"individual": {Debit: "2150001", Credit: "1130001"},
						"company":    {Debit: "2150002", Credit: "1130002"},
						"government": {Debit: "2150003", Credit: "1130003"},
					},
					ReferencePattern:   "CC-{contract_number}-{source_id}-CLR",
					DescriptionPattern: "Customer clearance for contract {contract_number}",
				},
			},
		},
	}
}
