package vfd

import (
	"net/http"

	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// ResponseCodeInfo describes how one vendor status code maps onto the
// normalized outcome model.
type ResponseCodeInfo struct {
	Code        string
	Display     string
	Description string
	Status      ports.OutcomeStatus
	IsRetriable bool
}

// Vendor status codes shared across the wallet, cards and bills products.
var responseCodes = map[string]ResponseCodeInfo{
	"00": {
		Code:        "00",
		Display:     "SUCCESS",
		Description: "Transaction completed",
		Status:      ports.OutcomeSucceeded,
	},
	"09": {
		Code:        "09",
		Display:     "PENDING",
		Description: "Transaction accepted, awaiting settlement",
		Status:      ports.OutcomePending,
	},
	"91": {
		Code:        "91",
		Display:     "TIMEOUT",
		Description: "Issuer or switch timeout",
		Status:      ports.OutcomeFailed,
		IsRetriable: true,
	},
	"96": {
		Code:        "96",
		Display:     "SYSTEM ERROR",
		Description: "Vendor system malfunction",
		Status:      ports.OutcomeFailed,
		IsRetriable: true,
	},
	"99": {
		Code:        "99",
		Display:     "FAILED",
		Description: "Transaction failed",
		Status:      ports.OutcomeFailed,
	},
	"108": {
		Code:        "108",
		Display:     "NOT FOUND",
		Description: "Transaction not found",
		Status:      ports.OutcomeFailed,
	},
}

// GetResponseCodeInfo looks up a vendor status code. Unknown codes map to a
// non-retriable failure so an unrecognized response can never move money.
func GetResponseCodeInfo(code string) ResponseCodeInfo {
	if info, ok := responseCodes[code]; ok {
		return info
	}
	return ResponseCodeInfo{
		Code:        code,
		Display:     "UNKNOWN",
		Description: "Unrecognized vendor status code",
		Status:      ports.OutcomeFailed,
	}
}

// outcomeFromEnvelope normalizes a vendor envelope plus transport status into
// the tri-state outcome. HTTP 202 means accepted-for-processing regardless of
// the body code.
func outcomeFromEnvelope(env *envelope, httpStatus int) *ports.Outcome {
	info := GetResponseCodeInfo(env.Status)
	status := info.Status
	if httpStatus == http.StatusAccepted && status != ports.OutcomeSucceeded {
		status = ports.OutcomePending
	}
	return &ports.Outcome{
		Status:    status,
		Code:      env.Status,
		Message:   env.Message,
		Retriable: info.IsRetriable,
	}
}
