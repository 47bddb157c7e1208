package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Authentication & Authorization Errors (AUTH_*)
	ErrorCodeAuthMissing  ErrorCode = "AUTH_MISSING"
	ErrorCodeAuthInvalid  ErrorCode = "AUTH_INVALID"
	ErrorCodeAuthExpired  ErrorCode = "AUTH_EXPIRED"
	ErrorCodePinInvalid   ErrorCode = "AUTH_PIN_INVALID"
	ErrorCodePinLocked    ErrorCode = "AUTH_PIN_LOCKED"
	ErrorCodeAccessDenied ErrorCode = "AUTH_ACCESS_DENIED"

	// Account Errors (ACCOUNT_*)
	ErrorCodeAccountNotFound  ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrorCodeAccountSuspended ErrorCode = "ACCOUNT_SUSPENDED"
	ErrorCodeAccountExists    ErrorCode = "ACCOUNT_EXISTS"
	ErrorCodeSelfTransfer     ErrorCode = "ACCOUNT_SELF_TRANSFER"

	// Ledger Errors (LEDGER_*)
	ErrorCodeInsufficientFunds ErrorCode = "LEDGER_INSUFFICIENT_FUNDS"
	ErrorCodeDuplicateRef      ErrorCode = "LEDGER_DUPLICATE_REFERENCE"
	ErrorCodeEntryNotFound     ErrorCode = "LEDGER_ENTRY_NOT_FOUND"
	ErrorCodeTierLimitExceeded ErrorCode = "LEDGER_TIER_LIMIT_EXCEEDED"

	// Vendor Gateway Errors (VENDOR_*)
	ErrorCodeVendorError       ErrorCode = "VENDOR_ERROR"
	ErrorCodeVendorTimeout     ErrorCode = "VENDOR_TIMEOUT"
	ErrorCodeVendorDeclined    ErrorCode = "VENDOR_DECLINED"
	ErrorCodeVendorUnavailable ErrorCode = "VENDOR_UNAVAILABLE"

	// Settlement Errors (SETTLEMENT_*)
	ErrorCodeSettlementNotFound ErrorCode = "SETTLEMENT_NOT_FOUND"
	ErrorCodeSettlementFinal    ErrorCode = "SETTLEMENT_ALREADY_FINAL"

	// Webhook Errors (WEBHOOK_*)
	ErrorCodeWebhookSignature ErrorCode = "WEBHOOK_BAD_SIGNATURE"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Resource Errors
	ErrorCodeNotFound    ErrorCode = "RESOURCE_NOT_FOUND"
	ErrorCodeConflict    ErrorCode = "RESOURCE_CONFLICT"
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error with the detail field added. The
// receiver is untouched so the package-level sentinels stay immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Err:     e.Err,
		Details: details,
		Code:    e.Code,
		Message: e.Message,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAccountNotFound ||
		code == ErrorCodeEntryNotFound ||
		code == ErrorCodeSettlementNotFound ||
		code == ErrorCodeNotFound
}

// IsAuthError checks if an error is authentication/authorization related
func IsAuthError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAuthMissing ||
		code == ErrorCodeAuthInvalid ||
		code == ErrorCodeAuthExpired ||
		code == ErrorCodePinInvalid ||
		code == ErrorCodeAccessDenied
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField
}

// IsVendorError checks if an error came from the banking vendor
func IsVendorError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeVendorError ||
		code == ErrorCodeVendorTimeout ||
		code == ErrorCodeVendorDeclined ||
		code == ErrorCodeVendorUnavailable
}

// Structured error instances
var (
	ErrAuthMissing  = NewDomainError(ErrorCodeAuthMissing, "authentication required")
	ErrAuthInvalid  = NewDomainError(ErrorCodeAuthInvalid, "invalid authentication token")
	ErrAuthExpired  = NewDomainError(ErrorCodeAuthExpired, "authentication token expired")
	ErrPinInvalid   = NewDomainError(ErrorCodePinInvalid, "invalid transaction PIN")
	ErrPinLocked    = NewDomainError(ErrorCodePinLocked, "too many failed PIN attempts")
	ErrAccessDenied = NewDomainError(ErrorCodeAccessDenied, "access denied")

	ErrAccountNotFound  = NewDomainError(ErrorCodeAccountNotFound, "account not found")
	ErrAccountSuspended = NewDomainError(ErrorCodeAccountSuspended, "account is suspended")
	ErrAccountExists    = NewDomainError(ErrorCodeAccountExists, "account already exists")
	ErrSelfTransfer     = NewDomainError(ErrorCodeSelfTransfer, "cannot transfer to your own account")

	ErrInsufficientFunds = NewDomainError(ErrorCodeInsufficientFunds, "insufficient balance")
	ErrDuplicateRef      = NewDomainError(ErrorCodeDuplicateRef, "reference already processed")
	ErrEntryNotFound     = NewDomainError(ErrorCodeEntryNotFound, "ledger entry not found")
	ErrTierLimitExceeded = NewDomainError(ErrorCodeTierLimitExceeded, "amount exceeds KYC tier limit")

	ErrVendorError       = NewDomainError(ErrorCodeVendorError, "banking vendor error")
	ErrVendorTimeout     = NewDomainError(ErrorCodeVendorTimeout, "banking vendor timeout")
	ErrVendorDeclined    = NewDomainError(ErrorCodeVendorDeclined, "declined by banking vendor")
	ErrVendorUnavailable = NewDomainError(ErrorCodeVendorUnavailable, "banking vendor unavailable")

	ErrSettlementNotFound = NewDomainError(ErrorCodeSettlementNotFound, "pending settlement not found")
	ErrSettlementFinal    = NewDomainError(ErrorCodeSettlementFinal, "settlement already finalized")

	ErrWebhookSignature = NewDomainError(ErrorCodeWebhookSignature, "invalid webhook signature")

	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")

	ErrNotFound    = NewDomainError(ErrorCodeNotFound, "resource not found")
	ErrConflict    = NewDomainError(ErrorCodeConflict, "resource conflict")
	ErrRateLimited = NewDomainError(ErrorCodeRateLimited, "too many requests")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
