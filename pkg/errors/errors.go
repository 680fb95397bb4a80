package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrInvalidPlanParameters   = errors.New("invalid plan parameters")
	ErrMisalignedPaymentAmount = errors.New("payment amount is not aligned to the installment schedule")
	ErrInvalidPaymentAmount    = errors.New("invalid payment amount")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrContractNotFound        = errors.New("contract not found")
	ErrPlanNotFound            = errors.New("payment plan not found")
	ErrContractAlreadySettled  = errors.New("contract is already settled")
	ErrContractLocked          = errors.New("contract is locked by another payment")
	ErrConcurrentUpdate        = errors.New("contract was modified concurrently")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
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
	ErrCodeInvalidPlanParameters   = "INVALID_PLAN_PARAMETERS"
	ErrCodeMisalignedPaymentAmount = "MISALIGNED_PAYMENT_AMOUNT"
	ErrCodeInvalidPaymentAmount    = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidPaymentMethod    = "INVALID_PAYMENT_METHOD"
	ErrCodeContractNotFound        = "CONTRACT_NOT_FOUND"
	ErrCodePlanNotFound            = "PLAN_NOT_FOUND"
	ErrCodeContractAlreadySettled  = "CONTRACT_ALREADY_SETTLED"
	ErrCodeContractLocked          = "CONTRACT_LOCKED"
	ErrCodeConcurrentUpdate        = "CONCURRENT_UPDATE"
	ErrCodeDatabaseError           = "DATABASE_ERROR"
	ErrCodeCacheError              = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapInvalidPlanParameters(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPlanParameters,
		reason,
		ErrInvalidPlanParameters,
	)
}

// WrapMisalignedPayment carries the smallest amount the caller may retry with.
func WrapMisalignedPayment(amount, minimum, finalInstallment decimal.Decimal) *BusinessError {
	err := NewBusinessError(
		ErrCodeMisalignedPaymentAmount,
		fmt.Sprintf("Payment amount %s must be a multiple of %s or equal to the final installment %s", amount, minimum, finalInstallment),
		ErrMisalignedPaymentAmount,
	)
	err.Details = map[string]interface{}{
		"minimum_amount":    minimum,
		"final_installment": finalInstallment,
	}
	return err
}

func WrapInvalidPaymentAmount(amount decimal.Decimal) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapInvalidPaymentMethod(method string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentMethod,
		fmt.Sprintf("Invalid payment method: %q", method),
		ErrInvalidPaymentMethod,
	)
}

func WrapContractNotFound(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractNotFound,
		fmt.Sprintf("Contract with ID %s not found", contractID),
		ErrContractNotFound,
	)
}

func WrapPlanNotFound(planID string) *BusinessError {
	return NewBusinessError(
		ErrCodePlanNotFound,
		fmt.Sprintf("Payment plan with ID %s not found", planID),
		ErrPlanNotFound,
	)
}

func WrapContractAlreadySettled(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractAlreadySettled,
		fmt.Sprintf("Contract with ID %s is already settled", contractID),
		ErrContractAlreadySettled,
	)
}

func WrapContractLocked(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractLocked,
		fmt.Sprintf("Contract with ID %s is processing another payment", contractID),
		ErrContractLocked,
	)
}

func WrapConcurrentUpdate(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentUpdate,
		fmt.Sprintf("Contract with ID %s changed while the payment was applied", contractID),
		ErrConcurrentUpdate,
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

// HTTPStatus maps an error returned by the service layer to a response status.
func HTTPStatus(err error) int {
	var be *BusinessError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}

	switch be.Code {
	case ErrCodeInvalidPlanParameters, ErrCodeMisalignedPaymentAmount, ErrCodeInvalidPaymentAmount, ErrCodeInvalidPaymentMethod:
		return http.StatusBadRequest
	case ErrCodeContractNotFound, ErrCodePlanNotFound:
		return http.StatusNotFound
	case ErrCodeContractAlreadySettled, ErrCodeContractLocked, ErrCodeConcurrentUpdate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
