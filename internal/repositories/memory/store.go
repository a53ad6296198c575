// Package memory provides an in-process implementation of every repository
// port. It enforces the same uniqueness rules as the PostgreSQL schema and is
// used for tests and for running the service without a database.
package memory

import (
	"context"
	"sync"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
)

type txKey struct{}

// Store keeps all tenants' data in maps guarded by one mutex. A transaction
// holds the mutex for its whole duration, so transactions are serialisable.
type Store struct {
	mu          sync.Mutex
	entries     map[string]domain.JournalEntry
	vehicles    map[string]domain.Vehicle
	schedule    map[string]domain.DepreciationScheduleItem
	rules       map[string]domain.AutomationRule
	corrections map[string]domain.CorrectionLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries:     make(map[string]domain.JournalEntry),
		vehicles:    make(map[string]domain.Vehicle),
		schedule:    make(map[string]domain.DepreciationScheduleItem),
		rules:       make(map[string]domain.AutomationRule),
		corrections: make(map[string]domain.CorrectionLog),
	}
}

// NewRepositoryProvider wires a fresh store into every repository slot.
func NewRepositoryProvider() (portsrepo.RepositoryProvider, *Store) {
	s := NewStore()
	return portsrepo.RepositoryProvider{
		JournalRepo:      s,
		DepreciationRepo: s,
		RuleRepo:         s,
		CorrectionRepo:   s,
		TxManager:        s,
	}, s
}

var (
	_ portsrepo.JournalRepositoryWithTx        = (*Store)(nil)
	_ portsrepo.DepreciationRepositoryWithTx   = (*Store)(nil)
	_ portsrepo.AutomationRuleRepositoryFacade = (*Store)(nil)
	_ portsrepo.CorrectionRepositoryFacade     = (*Store)(nil)
)

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// acquire locks the store unless ctx already belongs to one of its transactions.
func (s *Store) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("memory store call cancelled", err)
	}
	if s.inTx(ctx) {
		return func() {}, nil
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

// WithinTx runs fn under the store lock and restores the previous state if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewPersistenceError("failed to begin transaction", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	entries     map[string]domain.JournalEntry
	vehicles    map[string]domain.Vehicle
	schedule    map[string]domain.DepreciationScheduleItem
	rules       map[string]domain.AutomationRule
	corrections map[string]domain.CorrectionLog
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		entries:     copyMap(s.entries),
		vehicles:    copyMap(s.vehicles),
		schedule:    copyMap(s.schedule),
		rules:       copyMap(s.rules),
		corrections: copyMap(s.corrections),
	}
}

func (s *Store) restore(snap snapshot) {
	s.entries = snap.entries
	s.vehicles = snap.vehicles
	s.schedule = snap.schedule
	s.rules = snap.rules
	s.corrections = snap.corrections
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
