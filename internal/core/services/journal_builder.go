package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)
	repeatedDashes     = regexp.MustCompile(`-{2,}`)
	repeatedSpaces     = regexp.MustCompile(`\s{2,}`)
)

// journalBuilder constructs balanced entries. It never touches the store.
type journalBuilder struct {
	scale int32
	newID func() string
}

// NewJournalBuilder creates a builder rounding amounts to scale decimal places.
func NewJournalBuilder(scale int32) portssvc.JournalBuilderSvc {
	return &journalBuilder{scale: scale, newID: uuid.NewString}
}

var _ portssvc.JournalBuilderSvc = (*journalBuilder)(nil)

// Build implements portssvc.JournalBuilderSvc
func (b *journalBuilder) Build(tenantID string, event domain.BusinessEvent, resolved domain.ResolvedAccounts, opts portssvc.BuildOptions) ([]domain.JournalEntry, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if resolved.SourceType != event.SourceType {
		return nil, fmt.Errorf("%w: accounts resolved for %s cannot journal a %s event",
			apperrors.ErrValidation, resolved.SourceType, event.SourceType)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	if event.SourceType != domain.SourceContractCompletion {
		entry, err := b.buildEntry(tenantID, event, resolved, event.Amount, opts, now)
		if err != nil {
			return nil, err
		}
		return []domain.JournalEntry{entry}, nil
	}
	return b.buildContractCompletion(tenantID, event, resolved, opts, now)
}

// buildContractCompletion yields the deposit return and, when the customer
// owes a balance, the clearance entry. Zero legs are left out.
func (b *journalBuilder) buildContractCompletion(tenantID string, event domain.BusinessEvent, resolved domain.ResolvedAccounts, opts portssvc.BuildOptions, now time.Time) ([]domain.JournalEntry, error) {
	clearanceAmount := decimal.Zero
	if raw, ok := event.Fields[domain.FieldClearanceAmount]; ok && strings.TrimSpace(raw) != "" {
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, &apperrors.EntryError{
				Kind:       apperrors.ErrValidation,
				SourceType: string(event.SourceType),
				SourceID:   event.SourceID,
				Detail:     fmt.Sprintf("clearance amount %q is not a number", raw),
			}
		}
		clearanceAmount = amount
	}

	deposit := accounting.Round(event.Amount, b.scale)
	clearance := accounting.Round(clearanceAmount, b.scale)
	if deposit.IsNegative() || clearance.IsNegative() || (deposit.IsZero() && clearance.IsZero()) {
		return nil, &apperrors.EntryError{
			Kind:       apperrors.ErrUnbalancedConstruction,
			SourceType: string(event.SourceType),
			SourceID:   event.SourceID,
			Detail:     fmt.Sprintf("deposit %s and clearance %s give nothing to journal", deposit, clearance),
		}
	}

	entries := make([]domain.JournalEntry, 0, 2)
	if deposit.IsPositive() {
		entry, err := b.buildEntry(tenantID, event, resolved, deposit, opts, now)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if clearance.IsPositive() {
		if resolved.Clearance == nil {
			return nil, &apperrors.EntryError{
				Kind:       apperrors.ErrUnknownTemplate,
				SourceType: string(event.SourceType),
				SourceID:   event.SourceID,
				Detail:     "no clearance leg configured",
			}
		}
		entry, err := b.buildEntry(tenantID, event, *resolved.Clearance, clearance, opts, now)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 && entry.Reference == entries[0].Reference {
			entry.Reference += "-2"
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (b *journalBuilder) buildEntry(tenantID string, event domain.BusinessEvent, resolved domain.ResolvedAccounts, amount decimal.Decimal, opts portssvc.BuildOptions, now time.Time) (domain.JournalEntry, error) {
	amount = accounting.Round(amount, b.scale)
	entryDate := event.Date
	if entryDate.IsZero() {
		entryDate = now
	}
	entryDate = time.Date(entryDate.Year(), entryDate.Month(), entryDate.Day(), 0, 0, 0, 0, time.UTC)

	vars := newPlaceholders(event, entryDate)
	reference := vars.reference(resolved.ReferencePattern)
	if opts.RuleID != "" {
		reference += "-R" + shortID(opts.RuleID)
	}
	descPattern := resolved.DescriptionPattern
	if opts.DescriptionTemplate != "" {
		descPattern = opts.DescriptionTemplate
	}

	entry := domain.JournalEntry{
		EntryID:       b.newID(),
		TenantID:      tenantID,
		EntryDate:     entryDate,
		Reference:     reference,
		Description:   vars.description(descPattern),
		DebitAccount:  resolved.DebitAccount,
		CreditAccount: resolved.CreditAccount,
		DebitAmount:   amount,
		CreditAmount:  amount,
		SourceType:    event.SourceType,
		SourceID:      event.SourceID,
		ContractID:    event.ContractID,
		CustomerID:    event.CustomerID,
		VehicleID:     event.VehicleID,
		RuleID:        domain.StringPtr(opts.RuleID),
		Status:        domain.EntryPending,
		AuditFields:   domain.NewAuditFields(opts.UserID, now),
	}
	if event.SourceType == domain.SourceDepreciation {
		entry.Period = vars.lookup(domain.FieldPeriod)
	}
	if err := entry.Validate(); err != nil {
		return domain.JournalEntry{}, err
	}
	return entry, nil
}

func validateEvent(event domain.BusinessEvent) error {
	if !event.SourceType.Valid() {
		return &apperrors.EntryError{
			Kind:       apperrors.ErrUnknownTemplate,
			SourceType: string(event.SourceType),
			SourceID:   event.SourceID,
			Detail:     "unsupported source type",
		}
	}
	if strings.TrimSpace(event.SourceID) == "" {
		return &apperrors.EntryError{
			Kind:       apperrors.ErrValidation,
			SourceType: string(event.SourceType),
			Detail:     "source id is required",
		}
	}
	return nil
}

// placeholders resolves pattern variables: the computed values first, then
// any field the event recognises.
type placeholders struct {
	computed map[string]string
	event    domain.BusinessEvent
}

func newPlaceholders(event domain.BusinessEvent, entryDate time.Time) placeholders {
	computed := map[string]string{
		domain.FieldSourceID: event.SourceID,
		domain.FieldDate:     entryDate.Format("20060102"),
		domain.FieldPeriod:   domain.PeriodKey(entryDate),
		domain.FieldCategory: event.Category,
	}
	if p, ok := event.Fields[domain.FieldPeriod]; ok && p != "" {
		computed[domain.FieldPeriod] = p
	}
	return placeholders{computed: computed, event: event}
}

func (p placeholders) lookup(name string) string {
	if v, ok := p.computed[name]; ok {
		return v
	}
	v, _ := p.event.Field(name)
	return v
}

// render replaces every {name}. Unknown or missing names become empty.
func (p placeholders) render(pattern string) string {
	return placeholderPattern.ReplaceAllStringFunc(pattern, func(m string) string {
		return p.lookup(m[1 : len(m)-1])
	})
}

// reference substitutes the pattern and guarantees the source id is part of
// the result, so references stay unique per tenant and source.
func (p placeholders) reference(pattern string) string {
	sourceID := p.event.SourceID
	ref := strings.TrimSpace(p.render(pattern))
	ref = repeatedDashes.ReplaceAllString(ref, "-")
	ref = strings.Trim(ref, "-")
	if ref == "" {
		return sourceID
	}
	if !strings.Contains(ref, sourceID) {
		ref += "-" + sourceID
	}
	return ref
}

func (p placeholders) description(pattern string) string {
	desc := p.render(pattern)
	return strings.TrimSpace(repeatedSpaces.ReplaceAllString(desc, " "))
}

// shortID keeps rule tags readable in references.
func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
