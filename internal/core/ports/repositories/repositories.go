package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	JournalRepo      JournalRepositoryWithTx
	DepreciationRepo DepreciationRepositoryWithTx
	RuleRepo         AutomationRuleRepositoryFacade
	CorrectionRepo   CorrectionRepositoryFacade
	// TxManager spans every repository above; any of them may join its transactions.
	TxManager TransactionManager
}
