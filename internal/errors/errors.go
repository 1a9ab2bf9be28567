package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput           ErrorCode = "invalid_input"
	InvalidAmount          ErrorCode = "invalid_amount"
	InsufficientFunds      ErrorCode = "insufficient_funds"
	AccountNotFound        ErrorCode = "account_not_found"
	SelfTransferNotAllowed ErrorCode = "self_transfer_not_allowed"
	DuplicateAccount       ErrorCode = "duplicate_account"
	InternalError          ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps an error code to the status the transport layer should
// answer with. The core never writes HTTP responses itself.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount, SelfTransferNotAllowed:
		return http.StatusBadRequest
	case AccountNotFound:
		return http.StatusNotFound
	case InsufficientFunds:
		return http.StatusUnprocessableEntity
	case DuplicateAccount:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// Predefined errors for common cases
var (
	ErrInvalidAmount     = NewAppError(InvalidAmount, "amount must be greater than zero")
	ErrInsufficientFunds = NewAppError(InsufficientFunds, "withdrawal would breach the minimum balance")
	ErrAccountNotFound   = NewAppError(AccountNotFound, "account not found")
	ErrSelfTransfer      = NewAppError(SelfTransferNotAllowed, "source and destination accounts are the same")
	ErrDuplicateAccount  = NewAppError(DuplicateAccount, "account already exists")
)
