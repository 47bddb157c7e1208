package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
)

// errorResponse is the wire shape of every non-2xx body.
type errorResponse struct {
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// statusForCode maps domain error codes onto HTTP statuses. Anything unmapped
// is a 500: an unexpected failure should look like one.
func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeAuthMissing, domain.ErrorCodeAuthInvalid, domain.ErrorCodeAuthExpired, domain.ErrorCodePinInvalid:
		return http.StatusUnauthorized
	case domain.ErrorCodeAccessDenied, domain.ErrorCodeAccountSuspended:
		return http.StatusForbidden
	case domain.ErrorCodePinLocked, domain.ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrorCodeAccountNotFound, domain.ErrorCodeEntryNotFound,
		domain.ErrorCodeSettlementNotFound, domain.ErrorCodeNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeAccountExists, domain.ErrorCodeSelfTransfer,
		domain.ErrorCodeConflict, domain.ErrorCodeDuplicateRef, domain.ErrorCodeSettlementFinal:
		return http.StatusConflict
	case domain.ErrorCodeValidationFailed, domain.ErrorCodeValidationAmountInvalid,
		domain.ErrorCodeValidationMissingField, domain.ErrorCodeWebhookSignature:
		return http.StatusBadRequest
	case domain.ErrorCodeInsufficientFunds, domain.ErrorCodeTierLimitExceeded, domain.ErrorCodeVendorDeclined:
		return http.StatusUnprocessableEntity
	case domain.ErrorCodeVendorTimeout, domain.ErrorCodeVendorUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrorCodeVendorError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError renders a domain error. Internal detail never leaks: unknown
// errors get a generic message and a server-side log entry.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var derr *domain.DomainError
	if !errors.As(err, &derr) {
		logger.Error("unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: "internal server error",
			Code:    string(domain.ErrorCodeInternalError),
		})
		return
	}

	status := statusForCode(derr.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("code", string(derr.Code)), zap.Error(err))
	}
	resp := errorResponse{Message: derr.Message, Code: string(derr.Code)}
	if len(derr.Details) > 0 {
		resp.Details = derr.Details
	}
	writeJSON(w, status, resp)
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrValidationFailed.WithDetail("body", "invalid json")
	}
	return nil
}
