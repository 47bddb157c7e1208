package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/services"
)

// FundingHandlers serves card-funded and hosted-checkout wallet top-ups.
type FundingHandlers struct {
	funding  *services.FundingService
	accounts *services.AccountService
	logger   *zap.Logger
}

func NewFundingHandlers(funding *services.FundingService, accounts *services.AccountService, logger *zap.Logger) *FundingHandlers {
	return &FundingHandlers{funding: funding, accounts: accounts, logger: logger}
}

type initiateFundingRequest struct {
	Reference  string `json:"reference"`
	CardNumber string `json:"card_number"`
	CVV        string `json:"cvv"`
	ExpiryYYMM string `json:"expiry"`
	Amount     int64  `json:"amount"`
}

type fundingOutcomeResponse struct {
	Status          ports.OutcomeStatus `json:"status"`
	Message         string              `json:"message,omitempty"`
	VendorReference string              `json:"vendor_reference,omitempty"`
}

func outcomeResponse(o *ports.Outcome) fundingOutcomeResponse {
	return fundingOutcomeResponse{
		Status:          o.Status,
		Message:         o.Message,
		VendorReference: o.VendorReference,
	}
}

func (h *FundingHandlers) Initiate(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req initiateFundingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	outcome, err := h.funding.InitiateFunding(r.Context(), services.InitiateFundingParams{
		UserID:     userID,
		Reference:  req.Reference,
		CardNumber: req.CardNumber,
		CVV:        req.CVV,
		ExpiryYYMM: req.ExpiryYYMM,
		Amount:     req.Amount,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if outcome.Pending() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcomeResponse(outcome))
}

type authorizeFundingRequest struct {
	OTP string `json:"otp,omitempty"`
	PIN string `json:"pin,omitempty"`
}

func (h *FundingHandlers) Authorize(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	var req authorizeFundingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	outcome, err := h.funding.AuthorizeFunding(r.Context(), reference, req.OTP, req.PIN)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse(outcome))
}

type gatewayFundingRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

// InitiateGateway opens a Paystack hosted checkout. The receipt email always
// comes from the authenticated profile, never from the request body.
func (h *FundingHandlers) InitiateGateway(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req gatewayFundingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	initiation, err := h.funding.InitiateGatewayFunding(r.Context(), services.InitiateGatewayFundingParams{
		UserID:    userID,
		Email:     account.Email,
		Reference: req.Reference,
		Amount:    req.Amount,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, initiation)
}

func (h *FundingHandlers) VerifyGateway(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	settlement, err := h.funding.VerifyGatewayFunding(r.Context(), reference)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := UserID(r.Context())
	if settlement.UserID != userID {
		writeError(w, h.logger, domain.ErrAccessDenied)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

func (h *FundingHandlers) Status(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	settlement, err := h.funding.FundingStatus(r.Context(), reference)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := UserID(r.Context())
	if settlement.UserID != userID {
		writeError(w, h.logger, domain.ErrAccessDenied)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}
