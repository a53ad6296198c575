package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/configstore"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/core/services"
	"github.com/SscSPs/fleet_ledger/internal/platform/config"
	"github.com/SscSPs/fleet_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testTenant = "tenant-a"
	testUser   = "user-1"
)

type env struct {
	store *memory.Store
	repos portsrepo.RepositoryProvider
	svc   *portssvc.ServiceContainer
}

func testConfig() *config.Config {
	policy := domain.DefaultDepreciationPolicy()
	return &config.Config{
		StoreTimeout:            2 * time.Second,
		CurrencyScale:           policy.Scale,
		DepreciationMaxFraction: policy.MaxFraction,
		DepreciationDefaultRate: policy.DefaultRate,
		DepreciationRates:       policy.CategoryRates,
		ReconciliationEpsilon:   decimal.RequireFromString("0.001"),
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	templates, err := configstore.NewTemplateStore("", nil)
	require.NoError(t, err)
	repos, store := memory.NewRepositoryProvider()
	return &env{
		store: store,
		repos: repos,
		svc:   services.NewServiceContainer(testConfig(), repos, templates),
	}
}

func strPtr(s string) *string { return &s }

func invoiceEvent(sourceID string, amount string) domain.BusinessEvent {
	return domain.BusinessEvent{
		SourceType: domain.SourceInvoice,
		SourceID:   sourceID,
		Amount:     decimal.RequireFromString(amount),
		ContractID: strPtr("contract-100"),
		CustomerID: strPtr("customer-7"),
		VehicleID:  strPtr("vehicle-3"),
		Category:   "individual",
		Date:       time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		Fields: map[string]string{
			domain.FieldContractNumber: "C-100",
			domain.FieldInvoiceNumber:  "I-9",
		},
	}
}

// journal books an event and returns the first stored entry.
func (e *env) journal(t *testing.T, event domain.BusinessEvent, autoPost bool) domain.JournalEntry {
	t.Helper()
	res, err := e.svc.Ledger.JournalEvent(context.Background(), testTenant, event, testUser, autoPost)
	require.NoError(t, err)
	require.NotEmpty(t, res.Entries)
	return res.Entries[0]
}

// putLegacy stores an entry as-is, bypassing construction checks, the way
// rows imported from an older system arrive.
func (e *env) putLegacy(t *testing.T, entry domain.JournalEntry) {
	t.Helper()
	entry.TenantID = testTenant
	_, err := e.store.SaveEntries(context.Background(), testTenant, []domain.JournalEntry{entry}, portsrepo.SaveOptions{})
	require.NoError(t, err)
}
