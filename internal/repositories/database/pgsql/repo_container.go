package pgsql

import (
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	journalRepo := newPgxJournalRepository(dbPool)
	depreciationRepo := newPgxDepreciationRepository(dbPool)
	ruleRepo := newPgxAutomationRuleRepository(dbPool)
	correctionRepo := newPgxCorrectionRepository(dbPool)

	return portsrepo.RepositoryProvider{
		JournalRepo:      journalRepo,
		DepreciationRepo: depreciationRepo,
		RuleRepo:         ruleRepo,
		CorrectionRepo:   correctionRepo,
		// Every repository shares the pool, so one transaction spans all of them
		TxManager: &BaseRepository{Pool: dbPool},
	}
}
