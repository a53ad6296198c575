package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: bad date", apperrors.ErrValidation), http.StatusBadRequest},
		{"unbalanced", &apperrors.EntryError{Kind: apperrors.ErrUnbalancedConstruction}, http.StatusBadRequest},
		{"invalid account", &apperrors.EntryError{Kind: apperrors.ErrInvalidAccountCode, Account: "12"}, http.StatusBadRequest},
		{"unknown template", &apperrors.EntryError{Kind: apperrors.ErrUnknownTemplate}, http.StatusUnprocessableEntity},
		{"not found", apperrors.NewNotFoundError("entry x"), http.StatusNotFound},
		{"state transition", fmt.Errorf("%w: reversed", apperrors.ErrStateTransition), http.StatusConflict},
		{"reference collision", &apperrors.EntryError{Kind: apperrors.ErrDuplicate, Reference: "INV-1"}, http.StatusConflict},
		{"conflict", apperrors.ErrConflict, http.StatusConflict},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden},
		{"persistence", apperrors.NewPersistenceError("store down", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"persistence wins over kind", &apperrors.EntryError{Kind: apperrors.ErrValidation, Err: apperrors.ErrPersistence}, http.StatusServiceUnavailable},
		{"app error code", apperrors.NewAppError(http.StatusTooManyRequests, "slow down", nil), http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Nil(t, errorMessages(nil))
	assert.Equal(t, []string{"one"}, errorMessages(errors.New("one")))
	assert.Equal(t, []string{"a", "b"}, errorMessages(errors.Join(errors.New("a"), errors.New("b"))))
}
