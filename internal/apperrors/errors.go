package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates that the caller may not act on the requested tenant.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates that the resource is in a state that does not allow the operation.
var ErrConflict = errors.New("conflict")

// ErrInternal is returned when the failure should not be exposed in detail.
var ErrInternal = errors.New("internal error")

// Journal engine taxonomy.
var (
	// ErrUnknownTemplate means no account template is registered for the event type.
	ErrUnknownTemplate = errors.New("unknown account template")

	// ErrUnbalancedConstruction means an entry would violate debit == credit,
	// amount > 0 or debit account != credit account.
	ErrUnbalancedConstruction = errors.New("unbalanced journal construction")

	// ErrInvalidAccountCode means an account code is not a 7 digit numeric string.
	ErrInvalidAccountCode = errors.New("invalid account code")

	// ErrPersistence means the store was unavailable, timed out or rejected the
	// transaction. The whole operation may be retried by the caller.
	ErrPersistence = errors.New("persistence error")

	// ErrStateTransition means the requested lifecycle transition is not allowed.
	ErrStateTransition = errors.New("illegal state transition")
)

// AppError carries an HTTP-ish status code alongside a wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError wraps ErrNotFound with a message.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}

// NewPersistenceError wraps a store failure so it matches ErrPersistence.
func NewPersistenceError(message string, err error) *AppError {
	if err == nil {
		return &AppError{Code: 503, Message: message, Err: ErrPersistence}
	}
	return &AppError{Code: 503, Message: message, Err: fmt.Errorf("%w: %w", ErrPersistence, err)}
}

// EntryError describes a failure while producing or mutating a journal entry,
// with enough context for manual remediation.
type EntryError struct {
	Kind       error
	SourceType string
	SourceID   string
	Reference  string
	Account    string
	Detail     string
	Err        error
}

func (e *EntryError) Error() string {
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("journal entry error")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	ctx := make([]string, 0, 4)
	if e.SourceType != "" {
		ctx = append(ctx, "source_type="+e.SourceType)
	}
	if e.SourceID != "" {
		ctx = append(ctx, "source_id="+e.SourceID)
	}
	if e.Reference != "" {
		ctx = append(ctx, "reference="+e.Reference)
	}
	if e.Account != "" {
		ctx = append(ctx, "account="+e.Account)
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the taxonomy kind and the underlying cause to errors.Is.
func (e *EntryError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
