package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidDiscount     = errors.New("discount exceeds bill amount")
	ErrInsufficientAdvance = errors.New("insufficient advance balance")
	ErrInsufficientBalance = errors.New("insufficient reseller balance")
	ErrInvalidBillState    = errors.New("invalid bill state")
	ErrBillNotFound        = errors.New("bill not found")
	ErrApprovalNotFound    = errors.New("payment approval not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrResellerNotFound    = errors.New("reseller not found")
	ErrPackageNotFound     = errors.New("package not found")
	ErrAlreadyProcessed    = errors.New("request already processed")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrTransactionTimeout  = errors.New("transaction timed out")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidDiscount     = "INVALID_DISCOUNT"
	ErrCodeInsufficientAdvance = "INSUFFICIENT_ADVANCE"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeInvalidBillState    = "INVALID_BILL_STATE"
	ErrCodeBillNotFound        = "BILL_NOT_FOUND"
	ErrCodeApprovalNotFound    = "APPROVAL_NOT_FOUND"
	ErrCodeCustomerNotFound    = "CUSTOMER_NOT_FOUND"
	ErrCodeResellerNotFound    = "RESELLER_NOT_FOUND"
	ErrCodePackageNotFound     = "PACKAGE_NOT_FOUND"
	ErrCodeAlreadyProcessed    = "ALREADY_PROCESSED"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeTransactionTimeout  = "TRANSACTION_TIMEOUT"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeCacheError          = "CACHE_ERROR"
)

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrValidation)
}

func WrapInvalidDiscount(discount, amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidDiscount,
		fmt.Sprintf("Discount %s exceeds bill amount %s", discount, amount),
		ErrInvalidDiscount,
	)
}

func WrapInsufficientAdvance(requested, available string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientAdvance,
		fmt.Sprintf("Advance draw %s exceeds available advance balance %s", requested, available),
		ErrInsufficientAdvance,
	)
}

func WrapInsufficientBalance(balance, price string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientBalance,
		fmt.Sprintf("Reseller balance %s is below package price %s", balance, price),
		ErrInsufficientBalance,
	)
}

func WrapInvalidBillState(billID, reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidBillState,
		fmt.Sprintf("Bill %s cannot accept payment: %s", billID, reason),
		ErrInvalidBillState,
	)
}

// WrapBillNotFound matches both ErrBillNotFound and ErrInvalidBillState.
func WrapBillNotFound(billID string) *BusinessError {
	return NewBusinessError(
		ErrCodeBillNotFound,
		fmt.Sprintf("Bill with ID %s not found", billID),
		fmt.Errorf("%w: %w", ErrInvalidBillState, ErrBillNotFound),
	)
}

func WrapApprovalNotFound(approvalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeApprovalNotFound,
		fmt.Sprintf("Payment approval with ID %s not found", approvalID),
		ErrApprovalNotFound,
	)
}

func WrapCustomerNotFound(customerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCustomerNotFound,
		fmt.Sprintf("Customer with ID %s not found", customerID),
		ErrCustomerNotFound,
	)
}

func WrapResellerNotFound(resellerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeResellerNotFound,
		fmt.Sprintf("Reseller with ID %s not found", resellerID),
		ErrResellerNotFound,
	)
}

func WrapPackageNotFound(packageID string) *BusinessError {
	return NewBusinessError(
		ErrCodePackageNotFound,
		fmt.Sprintf("Package with ID %s not found", packageID),
		ErrPackageNotFound,
	)
}

func WrapAlreadyProcessed(approvalID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyProcessed,
		fmt.Sprintf("Payment approval %s is already %s", approvalID, status),
		ErrAlreadyProcessed,
	)
}

func WrapConcurrencyConflict(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		"transaction could not be serialized, retry the request",
		fmt.Errorf("%w: %w", ErrConcurrencyConflict, err),
	)
}

func WrapTransactionTimeout(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeTransactionTimeout,
		"transaction timed out and was rolled back",
		fmt.Errorf("%w: %w", ErrTransactionTimeout, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// Code extracts the BusinessError code, or "" for foreign errors.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsRetryable reports whether the caller may retry the whole read-compute-write.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrTransactionTimeout)
}

// IsBusiness reports whether err already carries a BusinessError.
func IsBusiness(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}
