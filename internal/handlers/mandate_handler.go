package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// MandateHandlers serves direct-debit mandate management.
type MandateHandlers struct {
	mandates *services.MandateService
	logger   *zap.Logger
}

func NewMandateHandlers(mandates *services.MandateService, logger *zap.Logger) *MandateHandlers {
	return &MandateHandlers{mandates: mandates, logger: logger}
}

type createMandateRequest struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Frequency     string `json:"frequency"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Reference     string `json:"reference"`
	Narration     string `json:"narration"`
	Amount        int64  `json:"amount"`
}

func (h *MandateHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req createMandateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	mandate, err := h.mandates.Create(r.Context(), services.CreateMandateParams{
		UserID:        userID,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		Frequency:     domain.MandateFrequency(req.Frequency),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Reference:     req.Reference,
		Narration:     req.Narration,
		Amount:        req.Amount,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, mandate)
}

func (h *MandateHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	mandates, err := h.mandates.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if mandates == nil {
		mandates = []domain.Mandate{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mandates": mandates})
}

func (h *MandateHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	mandateID := chi.URLParam(r, "mandateID")

	mandate, err := h.mandates.Get(r.Context(), userID, mandateID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mandate)
}

type cancelMandateRequest struct {
	Reason string `json:"reason"`
}

func (h *MandateHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	mandateID := chi.URLParam(r, "mandateID")
	var req cancelMandateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	mandate, err := h.mandates.Cancel(r.Context(), userID, mandateID, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mandate)
}
