package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/configstore"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_ledger/internal/core/ports/services"
	"github.com/SscSPs/fleet_ledger/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock JournalRepository ---
type MockJournalRepository struct {
	mock.Mock
}

var _ portsrepo.JournalRepositoryWithTx = (*MockJournalRepository)(nil)

func (m *MockJournalRepository) FindEntryByID(ctx context.Context, tenantID, entryID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, tenantID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) FindEntriesByReference(ctx context.Context, tenantID string, references []string) ([]domain.JournalEntry, error) {
	args := m.Called(ctx, tenantID, references)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) FindEntries(ctx context.Context, tenantID string, filter domain.EntryFilter) ([]domain.JournalEntry, *string, error) {
	args := m.Called(ctx, tenantID, filter)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.JournalEntry), next, args.Error(2)
}

func (m *MockJournalRepository) FindDepreciationEntry(ctx context.Context, tenantID, vehicleID, period string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, tenantID, vehicleID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) ListPostedEntries(ctx context.Context, tenantID string, from, to *time.Time) ([]domain.JournalEntry, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) GetBalance(ctx context.Context, tenantID, accountCode string, asOf *time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, accountCode, asOf)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockJournalRepository) SaveEntries(ctx context.Context, tenantID string, entries []domain.JournalEntry, opts portsrepo.SaveOptions) ([]string, error) {
	args := m.Called(ctx, tenantID, entries, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockJournalRepository) UpdateEntryStatus(ctx context.Context, tenantID, entryID string, from, to domain.EntryStatus, notes *string, userID string, at time.Time) error {
	args := m.Called(ctx, tenantID, entryID, from, to, notes, userID, at)
	return args.Error(0)
}

func (m *MockJournalRepository) DeleteEntry(ctx context.Context, tenantID, entryID string) error {
	args := m.Called(ctx, tenantID, entryID)
	return args.Error(0)
}

// WithinTx runs fn directly; the mock has no transactions of its own.
func (m *MockJournalRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Test Suite Setup ---
type LedgerServiceTestSuite struct {
	suite.Suite
	mockJournalRepo *MockJournalRepository
	service         portssvc.LedgerSvcFacade
	tenantID        string
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	templates, err := configstore.NewTemplateStore("", nil)
	suite.Require().NoError(err)
	resolver := services.NewTemplateService(templates)
	builder := services.NewJournalBuilder(3)

	suite.mockJournalRepo = new(MockJournalRepository)
	posting := services.NewPostingService(suite.mockJournalRepo, suite.mockJournalRepo, time.Second)
	suite.service = services.NewLedgerService(suite.mockJournalRepo, suite.mockJournalRepo, resolver, builder, posting, time.Second)
	suite.tenantID = testTenant
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (suite *LedgerServiceTestSuite) TestJournalEvent_PersistenceFailure() {
	storeErr := apperrors.NewPersistenceError("database unavailable", errors.New("connection refused"))
	suite.mockJournalRepo.On("SaveEntries", mock.Anything, suite.tenantID, mock.AnythingOfType("[]domain.JournalEntry"), portsrepo.SaveOptions{}).
		Return(nil, storeErr).Once()

	_, err := suite.service.JournalEvent(context.Background(), suite.tenantID, invoiceEvent("inv-90", "40"), testUser, true)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrPersistence)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "FindEntriesByReference", mock.Anything, mock.Anything, mock.Anything)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "UpdateEntryStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockJournalRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestJournalEvent_SavesBuiltEntry() {
	var saved []domain.JournalEntry
	suite.mockJournalRepo.On("SaveEntries", mock.Anything, suite.tenantID, mock.AnythingOfType("[]domain.JournalEntry"), portsrepo.SaveOptions{}).
		Run(func(args mock.Arguments) { saved = args.Get(2).([]domain.JournalEntry) }).
		Return([]string{"entry-1"}, nil).Once()

	res, err := suite.service.JournalEvent(context.Background(), suite.tenantID, invoiceEvent("inv-91", "40"), testUser, false)

	suite.Require().NoError(err)
	suite.True(res.Created)
	suite.Equal([]string{"entry-1"}, res.EntryIDs)
	suite.Require().Len(saved, 1)
	suite.Equal(domain.EntryPending, saved[0].Status)
	suite.Equal(suite.tenantID, saved[0].TenantID)
	suite.Equal("INV-C-100-inv-91", saved[0].Reference)
	suite.mockJournalRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestGetEntry_NotFound() {
	suite.mockJournalRepo.On("FindEntryByID", mock.Anything, suite.tenantID, "nope").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.GetEntry(context.Background(), suite.tenantID, "nope")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	var appErr *apperrors.AppError
	suite.Require().ErrorAs(err, &appErr)
	suite.Equal(404, appErr.Code)
}

func (suite *LedgerServiceTestSuite) TestGetBalance_PassesAsOf() {
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	suite.mockJournalRepo.On("GetBalance", mock.Anything, suite.tenantID, "1110001", &asOf).
		Return(decimal.RequireFromString("1200.500"), nil).Once()

	balance, err := suite.service.GetBalance(context.Background(), suite.tenantID, "1110001", &asOf)

	suite.Require().NoError(err)
	suite.Equal("1200.500", balance.StringFixed(3))
	suite.mockJournalRepo.AssertExpectations(suite.T())
}
