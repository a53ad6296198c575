package services_test

import (
	"testing"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_CategoryOverride(t *testing.T) {
	e := newEnv(t)

	resolved, err := e.svc.Templates.Resolve(domain.SourceInvoice, "individual")
	require.NoError(t, err)
	assert.Equal(t, "1130001", resolved.DebitAccount)
	assert.Equal(t, "4110001", resolved.CreditAccount)
	assert.Equal(t, "builtin-1", resolved.TemplateVersion)
	assert.Nil(t, resolved.Clearance)
}

func TestResolve_PartialOverrideKeepsBaseLeg(t *testing.T) {
	e := newEnv(t)

	resolved, err := e.svc.Templates.Resolve(domain.SourcePayment, "individual")
	require.NoError(t, err)
	assert.Equal(t, "1110001", resolved.DebitAccount)
	assert.Equal(t, "1130001", resolved.CreditAccount)
}

func TestResolve_UnknownCategoryFallsBackToBase(t *testing.T) {
	e := newEnv(t)

	resolved, err := e.svc.Templates.Resolve(domain.SourceInvoice, "embassy")
	require.NoError(t, err)
	assert.Equal(t, "1130000", resolved.DebitAccount)
	assert.Equal(t, "4110000", resolved.CreditAccount)
}

func TestResolve_UnknownSourceType(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Templates.Resolve(domain.SourceType("fuel_card"), "individual")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnknownTemplate)

	var entryErr *apperrors.EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, "fuel_card", entryErr.SourceType)
}

func TestResolve_ContractCompletionCarriesClearance(t *testing.T) {
	e := newEnv(t)

	resolved, err := e.svc.Templates.Resolve(domain.SourceContractCompletion, "company")
	require.NoError(t, err)
	assert.Equal(t, "2150002", resolved.DebitAccount)
	assert.Equal(t, "1110001", resolved.CreditAccount)
	require.NotNil(t, resolved.Clearance)
	assert.Equal(t, "2150002", resolved.Clearance.DebitAccount)
	assert.Equal(t, "1130002", resolved.Clearance.CreditAccount)

	clearance, err := e.svc.Templates.ResolveClearance("company")
	require.NoError(t, err)
	assert.Equal(t, *resolved.Clearance, clearance)
}
