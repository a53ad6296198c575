package services

import (
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, templates TemplateStore) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Resolution and construction are pure; everything else builds on them.
	container.Templates = NewTemplateService(templates)
	container.Builder = NewJournalBuilder(cfg.CurrencyScale)

	container.Posting = NewPostingService(repos.JournalRepo, repos.TxManager, cfg.StoreTimeout)
	container.Ledger = NewLedgerService(
		repos.JournalRepo,
		repos.TxManager,
		container.Templates,
		container.Builder,
		container.Posting,
		cfg.StoreTimeout,
	)
	container.Depreciation = NewDepreciationService(
		repos,
		container.Templates,
		container.Builder,
		container.Posting,
		cfg.DepreciationPolicy(),
		cfg.StoreTimeout,
	)
	container.Automation = NewAutomationService(
		repos.RuleRepo,
		repos.TxManager,
		container.Templates,
		container.Builder,
		container.Ledger,
		container.Posting,
		cfg.StoreTimeout,
	)
	container.Reconciliation = NewReconciliationService(
		repos,
		container.Posting,
		cfg.ReconciliationEpsilon,
		cfg.StoreTimeout,
	)

	return container
}
