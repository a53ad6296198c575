package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant-a"

func entry(id, reference string) domain.JournalEntry {
	return domain.JournalEntry{
		EntryID:       id,
		TenantID:      tenant,
		EntryDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Reference:     reference,
		SourceType:    domain.SourceInvoice,
		SourceID:      "src-" + id,
		DebitAccount:  "1130000",
		CreditAccount: "4110000",
		DebitAmount:   decimal.NewFromInt(10),
		CreditAmount:  decimal.NewFromInt(10),
		Status:        domain.EntryPending,
	}
}

func depreciationEntry(id, vehicleID, period string) domain.JournalEntry {
	e := entry(id, "DEP-"+id)
	e.SourceType = domain.SourceDepreciation
	e.SourceID = vehicleID
	e.Period = period
	return e
}

func TestSaveEntries_ReferenceUniquePerTenant(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	_, err := s.SaveEntries(ctx, tenant, []domain.JournalEntry{entry("e1", "REF-1")}, portsrepo.SaveOptions{})
	require.NoError(t, err)

	_, err = s.SaveEntries(ctx, tenant, []domain.JournalEntry{entry("e2", "REF-1")}, portsrepo.SaveOptions{})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = s.SaveEntries(ctx, "tenant-b", []domain.JournalEntry{entry("e3", "REF-1")}, portsrepo.SaveOptions{})
	assert.NoError(t, err)

	// A batch is all or nothing.
	_, err = s.SaveEntries(ctx, tenant, []domain.JournalEntry{entry("e4", "REF-4"), entry("e5", "REF-1")}, portsrepo.SaveOptions{})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	_, err = s.FindEntryByID(ctx, tenant, "e4")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSaveEntries_OneLiveDepreciationPerPeriod(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	_, err := s.SaveEntries(ctx, tenant, []domain.JournalEntry{depreciationEntry("d1", "veh-1", "2024-03")}, portsrepo.SaveOptions{})
	require.NoError(t, err)

	_, err = s.SaveEntries(ctx, tenant, []domain.JournalEntry{depreciationEntry("d2", "veh-1", "2024-03")}, portsrepo.SaveOptions{})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = s.SaveEntries(ctx, tenant, []domain.JournalEntry{depreciationEntry("d3", "veh-1", "2024-04")}, portsrepo.SaveOptions{})
	assert.NoError(t, err)

	// Once reversed, the period may be booked again.
	at := time.Now()
	require.NoError(t, s.UpdateEntryStatus(ctx, tenant, "d1", domain.EntryPending, domain.EntryPosted, nil, "u", at))
	require.NoError(t, s.UpdateEntryStatus(ctx, tenant, "d1", domain.EntryPosted, domain.EntryReversed, nil, "u", at))
	_, err = s.SaveEntries(ctx, tenant, []domain.JournalEntry{depreciationEntry("d4", "veh-1", "2024-03")}, portsrepo.SaveOptions{})
	assert.NoError(t, err)

	live, err := s.FindDepreciationEntry(ctx, tenant, "veh-1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "d4", live.EntryID)
}

func TestSaveEntries_DryRun(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	ids, err := s.SaveEntries(ctx, tenant, []domain.JournalEntry{entry("e1", "REF-1")}, portsrepo.SaveOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids)

	_, err = s.FindEntryByID(ctx, tenant, "e1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateEntryStatus_CompareAndSet(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	_, err := s.SaveEntries(ctx, tenant, []domain.JournalEntry{entry("e1", "REF-1")}, portsrepo.SaveOptions{})
	require.NoError(t, err)

	at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateEntryStatus(ctx, tenant, "e1", domain.EntryPending, domain.EntryPosted, nil, "u1", at))

	err = s.UpdateEntryStatus(ctx, tenant, "e1", domain.EntryPending, domain.EntryPosted, nil, "u2", at)
	assert.ErrorIs(t, err, apperrors.ErrStateTransition)

	stored, err := s.FindEntryByID(ctx, tenant, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryPosted, stored.Status)
	assert.Equal(t, "u1", stored.LastUpdatedBy)
	require.NotNil(t, stored.PostedAt)
	assert.Equal(t, at, *stored.PostedAt)

	assert.ErrorIs(t, s.DeleteEntry(ctx, tenant, "e1"), apperrors.ErrStateTransition)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.SaveEntries(ctx, tenant, []domain.JournalEntry{entry("e1", "REF-1")}, portsrepo.SaveOptions{}); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.FindEntryByID(ctx, tenant, "e1")
			require.NoError(t, err)
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.FindEntryByID(ctx, tenant, "e1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWithinTx_CancelledContext(t *testing.T) {
	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WithinTx(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}

func TestGetBalance(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	pending := entry("e1", "REF-1")
	posted := entry("e2", "REF-2")
	posted.Status = domain.EntryPosted
	other := entry("e3", "REF-3")
	other.Status = domain.EntryPosted
	other.DebitAccount = "1110001"
	other.CreditAccount = "1130000"
	other.DebitAmount = decimal.NewFromInt(4)
	other.CreditAmount = decimal.NewFromInt(4)
	_, err := s.SaveEntries(ctx, tenant, []domain.JournalEntry{pending, posted, other}, portsrepo.SaveOptions{})
	require.NoError(t, err)

	balance, err := s.GetBalance(ctx, tenant, "1130000", nil)
	require.NoError(t, err)
	assert.Equal(t, "6", balance.String())
}

func TestCorrections_OneOpenPerFingerprint(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	log := domain.CorrectionLog{CorrectionID: "c1", TenantID: tenant, Fingerprint: "fp", Status: domain.CorrectionDetected}

	require.NoError(t, s.SaveCorrection(ctx, log))

	dup := log
	dup.CorrectionID = "c2"
	assert.ErrorIs(t, s.SaveCorrection(ctx, dup), apperrors.ErrDuplicate)

	closed := log
	closed.Status = domain.CorrectionIgnored
	require.NoError(t, s.UpdateCorrection(ctx, closed, domain.CorrectionDetected))
	assert.NoError(t, s.SaveCorrection(ctx, dup))

	err := s.UpdateCorrection(ctx, closed, domain.CorrectionDetected)
	assert.ErrorIs(t, err, apperrors.ErrStateTransition)
}
