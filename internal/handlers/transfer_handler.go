package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// TransferHandlers serves wallet-to-wallet and external transfers.
type TransferHandlers struct {
	transfers *services.TransferService
	logger    *zap.Logger
}

func NewTransferHandlers(transfers *services.TransferService, logger *zap.Logger) *TransferHandlers {
	return &TransferHandlers{transfers: transfers, logger: logger}
}

type internalTransferRequest struct {
	ToAccountNumber string `json:"to_account_number"`
	Reference       string `json:"reference"`
	Narration       string `json:"narration"`
	PIN             string `json:"pin"`
	Amount          int64  `json:"amount"`
}

type internalTransferResponse struct {
	Entry    domain.Entry `json:"entry"`
	Replayed bool         `json:"replayed"`
}

func (h *TransferHandlers) Internal(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req internalTransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, applied, err := h.transfers.InternalTransfer(r.Context(), services.InternalTransferParams{
		FromUserID:      userID,
		ToAccountNumber: req.ToAccountNumber,
		Reference:       req.Reference,
		Narration:       req.Narration,
		PIN:             req.PIN,
		Amount:          req.Amount,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	status := http.StatusCreated
	if !applied {
		status = http.StatusOK
	}
	writeJSON(w, status, internalTransferResponse{Entry: result.DebitEntry, Replayed: !applied})
}

type externalTransferRequest struct {
	RecipientAccount string `json:"recipient_account"`
	RecipientBank    string `json:"recipient_bank"`
	RecipientName    string `json:"recipient_name"`
	Reference        string `json:"reference"`
	Narration        string `json:"narration"`
	PIN              string `json:"pin"`
	Amount           int64  `json:"amount"`
}

type externalTransferResponse struct {
	Entry    *domain.Entry           `json:"entry"`
	Status   domain.SettlementStatus `json:"status"`
	Reversed bool                    `json:"reversed"`
}

func (h *TransferHandlers) External(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req externalTransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.transfers.ExternalTransfer(r.Context(), services.ExternalTransferParams{
		FromUserID:       userID,
		RecipientAccount: req.RecipientAccount,
		RecipientBank:    req.RecipientBank,
		RecipientName:    req.RecipientName,
		Reference:        req.Reference,
		Narration:        req.Narration,
		PIN:              req.PIN,
		Amount:           req.Amount,
	})
	if err != nil {
		// A reversed decline still reports what happened to the money.
		if result != nil {
			writeJSON(w, statusForCode(domain.GetErrorCode(err)), externalTransferResponse{
				Entry:    result.Entry,
				Status:   result.Status,
				Reversed: result.Reversed,
			})
			return
		}
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.Status == domain.SettlementStatusPending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, externalTransferResponse{
		Entry:    result.Entry,
		Status:   result.Status,
		Reversed: result.Reversed,
	})
}

func (h *TransferHandlers) Banks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.transfers.Banks(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"banks": banks})
}

func (h *TransferHandlers) ValidateRecipient(w http.ResponseWriter, r *http.Request) {
	accountNumber := r.URL.Query().Get("account_number")
	bankCode := r.URL.Query().Get("bank_code")
	if accountNumber == "" || bankCode == "" {
		writeError(w, h.logger, domain.ErrValidationMissingField.WithDetail("fields", "account_number, bank_code"))
		return
	}

	recipient, err := h.transfers.ValidateRecipient(r.Context(), accountNumber, bankCode)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipient)
}
