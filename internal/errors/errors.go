package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Category is the coarse, stable class of an error. Callers branch on it.
type Category string

const (
	CategoryValidation               Category = "validation"
	CategoryNetwork                  Category = "network"
	CategoryRejection                Category = "rejection"
	CategoryPersistenceInconsistency Category = "persistence_inconsistency"
	CategoryTimeout                  Category = "timeout"
	CategoryNotFound                 Category = "not_found"
	CategoryInternal                 Category = "internal"
)

type ErrorCode string

const (
	InvalidInput             ErrorCode = "invalid_input"
	InvalidSender            ErrorCode = "invalid_sender"
	InvalidRecipient         ErrorCode = "invalid_recipient"
	InvalidAmount            ErrorCode = "invalid_amount"
	InvalidNote              ErrorCode = "invalid_note"
	InvalidAddress           ErrorCode = "invalid_address"
	MissingCredential        ErrorCode = "missing_credential"
	InvalidCredential        ErrorCode = "invalid_credential"
	NetworkUnavailable       ErrorCode = "network_unavailable"
	RejectedByNetwork        ErrorCode = "rejected_by_network"
	PersistenceInconsistency ErrorCode = "persistence_inconsistency"
	ConfirmationTimeout      ErrorCode = "confirmation_timeout"
	TransactionNotFound      ErrorCode = "transaction_not_found"
	DuplicateTransaction     ErrorCode = "duplicate_transaction"
	InternalError            ErrorCode = "internal_error"
)

var codeCategories = map[ErrorCode]Category{
	InvalidInput:             CategoryValidation,
	InvalidSender:            CategoryValidation,
	InvalidRecipient:         CategoryValidation,
	InvalidAmount:            CategoryValidation,
	InvalidNote:              CategoryValidation,
	InvalidAddress:           CategoryValidation,
	MissingCredential:        CategoryValidation,
	InvalidCredential:        CategoryValidation,
	NetworkUnavailable:       CategoryNetwork,
	RejectedByNetwork:        CategoryRejection,
	PersistenceInconsistency: CategoryPersistenceInconsistency,
	ConfirmationTimeout:      CategoryTimeout,
	TransactionNotFound:      CategoryNotFound,
	DuplicateTransaction:     CategoryInternal,
	InternalError:            CategoryInternal,
}

// CategoryOf returns the category a code belongs to.
func CategoryOf(code ErrorCode) Category {
	if c, ok := codeCategories[code]; ok {
		return c
	}
	return CategoryInternal
}

type AppError struct {
	Category Category  `json:"category"`
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Details  string    `json:"details,omitempty"`

	cause error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches another AppError by code so predefined errors work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Category: CategoryOf(code),
		Code:     code,
		Message:  message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return NewAppError(code, fmt.Sprintf(format, args...))
}

// Wrap builds an AppError that keeps err as its cause and its text as details.
func Wrap(code ErrorCode, message string, err error) *AppError {
	appErr := NewAppError(code, message)
	if err != nil {
		appErr.cause = err
		appErr.Details = err.Error()
	}
	return appErr
}

// HTTPStatus maps the error to the status code the handlers answer with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case DuplicateTransaction:
		return http.StatusConflict
	}
	switch e.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryRejection:
		return http.StatusUnprocessableEntity
	case CategoryNetwork:
		return http.StatusBadGateway
	case CategoryTimeout:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// As extracts the AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCategory reports whether err carries an AppError of the given category.
func IsCategory(err error, category Category) bool {
	appErr, ok := As(err)
	return ok && appErr.Category == category
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Predefined errors for common cases
var (
	ErrTransactionNotFound  = NewAppError(TransactionNotFound, "transaction not found")
	ErrDuplicateTransaction = NewAppError(DuplicateTransaction, "transaction already recorded")
	ErrMissingCredential    = NewAppError(MissingCredential, "mnemonic is required: provide it in the request or configure a default")
	ErrConfirmationTimeout  = NewAppError(ConfirmationTimeout, "transaction not confirmed within the round bound")
)
