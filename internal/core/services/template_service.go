package services

import (
	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
)

// TemplateStore is the published template set and its reload hook.
type TemplateStore interface {
	portssvc.TemplateProvider
	portssvc.TemplateReloader
}

// templateService resolves account codes from the current template snapshot.
// It holds no state of its own, so concurrent callers always see one whole set.
type templateService struct {
	store TemplateStore
}

// NewTemplateService creates a resolver over the given store.
func NewTemplateService(store TemplateStore) portssvc.TemplateSvcFacade {
	return &templateService{store: store}
}

var _ portssvc.TemplateSvcFacade = (*templateService)(nil)

func (s *templateService) Current() *domain.TemplateSet {
	return s.store.Current()
}

func (s *templateService) Reload() error {
	return s.store.Reload()
}

// Resolve implements portssvc.TemplateResolverSvc
func (s *templateService) Resolve(sourceType domain.SourceType, category string) (domain.ResolvedAccounts, error) {
	set, tmpl, err := s.lookup(sourceType)
	if err != nil {
		return domain.ResolvedAccounts{}, err
	}

	resolved, err := resolveLeg(sourceType, category, tmpl.LegTemplate, set.Version)
	if err != nil {
		return domain.ResolvedAccounts{}, err
	}
	if tmpl.Clearance != nil {
		clearance, err := resolveLeg(sourceType, category, *tmpl.Clearance, set.Version)
		if err != nil {
			return domain.ResolvedAccounts{}, err
		}
		resolved.Clearance = &clearance
	}
	return resolved, nil
}

// ResolveClearance implements portssvc.TemplateResolverSvc
func (s *templateService) ResolveClearance(category string) (domain.ResolvedAccounts, error) {
	set, tmpl, err := s.lookup(domain.SourceContractCompletion)
	if err != nil {
		return domain.ResolvedAccounts{}, err
	}
	if tmpl.Clearance == nil {
		return domain.ResolvedAccounts{}, &apperrors.EntryError{
			Kind:       apperrors.ErrUnknownTemplate,
			SourceType: string(domain.SourceContractCompletion),
			Detail:     "no clearance leg configured",
		}
	}
	return resolveLeg(domain.SourceContractCompletion, category, *tmpl.Clearance, set.Version)
}

func (s *templateService) lookup(sourceType domain.SourceType) (*domain.TemplateSet, domain.AccountTemplate, error) {
	set := s.store.Current()
	if set == nil {
		return nil, domain.AccountTemplate{}, &apperrors.EntryError{
			Kind:       apperrors.ErrUnknownTemplate,
			SourceType: string(sourceType),
			Detail:     "no template set loaded",
		}
	}
	tmpl, ok := set.Templates[sourceType]
	if !ok {
		return nil, domain.AccountTemplate{}, &apperrors.EntryError{
			Kind:       apperrors.ErrUnknownTemplate,
			SourceType: string(sourceType),
			Detail:     "no account template registered for template set " + set.Version,
		}
	}
	return set, tmpl, nil
}

func resolveLeg(sourceType domain.SourceType, category string, leg domain.LegTemplate, version string) (domain.ResolvedAccounts, error) {
	pair := leg.Accounts(category)
	for _, code := range []string{pair.Debit, pair.Credit} {
		if err := domain.ValidateAccountCode(code); err != nil {
			return domain.ResolvedAccounts{}, &apperrors.EntryError{
				Kind:       apperrors.ErrInvalidAccountCode,
				SourceType: string(sourceType),
				Account:    code,
				Detail:     "category " + category,
			}
		}
	}
	return domain.ResolvedAccounts{
		SourceType:         sourceType,
		Category:           category,
		DebitAccount:       pair.Debit,
		CreditAccount:      pair.Credit,
		ReferencePattern:   leg.ReferencePattern,
		DescriptionPattern: leg.DescriptionPattern,
		TemplateVersion:    version,
	}, nil
}
