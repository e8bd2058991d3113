package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/response"
)

// statusFor maps a BusinessError code to its HTTP status
func statusFor(code string) int {
	switch code {
	case customError.ErrCodeValidation:
		return http.StatusBadRequest
	case customError.ErrCodeBillNotFound,
		customError.ErrCodeApprovalNotFound,
		customError.ErrCodeCustomerNotFound,
		customError.ErrCodeResellerNotFound,
		customError.ErrCodePackageNotFound:
		return http.StatusNotFound
	case customError.ErrCodeInvalidDiscount,
		customError.ErrCodeInsufficientAdvance,
		customError.ErrCodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case customError.ErrCodeInvalidBillState,
		customError.ErrCodeAlreadyProcessed,
		customError.ErrCodeConcurrencyConflict:
		return http.StatusConflict
	case customError.ErrCodeTransactionTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := customError.Code(err)
	status := statusFor(code)

	message := "internal server error"
	var be *customError.BusinessError
	if errors.As(err, &be) && status != http.StatusInternalServerError {
		message = be.Message
	}
	if status == http.StatusInternalServerError {
		if code == "" {
			code = customError.ErrCodeDatabaseError
		}
		log.Error("request failed", zap.String("code", code), zap.Error(err))
	}

	response.Failure(w, status, code, message, customError.IsRetryable(err))
}
