package services

import (
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
)

// TemplateProvider exposes the currently published template set.
type TemplateProvider interface {
	Current() *domain.TemplateSet
}

// TemplateReloader replaces the published template set.
type TemplateReloader interface {
	Reload() error
}

// TemplateResolverSvc maps (source type, category) to account codes.
type TemplateResolverSvc interface {
	// Resolve returns the accounts for an event. Contract completion results
	// carry the clearance leg in Clearance.
	Resolve(sourceType domain.SourceType, category string) (domain.ResolvedAccounts, error)

	// ResolveClearance returns the second leg of a contract completion.
	ResolveClearance(category string) (domain.ResolvedAccounts, error)
}

// TemplateSvcFacade combines template resolution and administration.
type TemplateSvcFacade interface {
	TemplateProvider
	TemplateReloader
	TemplateResolverSvc
}
