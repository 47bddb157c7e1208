package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// InvoiceHandlers serves invoice issuance and settlement.
type InvoiceHandlers struct {
	invoices *services.InvoiceService
	logger   *zap.Logger
}

func NewInvoiceHandlers(invoices *services.InvoiceService, logger *zap.Logger) *InvoiceHandlers {
	return &InvoiceHandlers{invoices: invoices, logger: logger}
}

type createInvoiceRequest struct {
	PayerAccountNumber string `json:"payer_account_number"`
	Memo               string `json:"memo"`
	Amount             int64  `json:"amount"`
}

func (h *InvoiceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req createInvoiceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	invoice, err := h.invoices.Create(r.Context(), userID, req.PayerAccountNumber, req.Memo, req.Amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, invoice)
}

type payInvoiceRequest struct {
	PIN string `json:"pin"`
}

func (h *InvoiceHandlers) Pay(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	invoiceID := chi.URLParam(r, "invoiceID")
	var req payInvoiceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	invoice, err := h.invoices.Pay(r.Context(), userID, invoiceID, req.PIN)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *InvoiceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	invoiceID := chi.URLParam(r, "invoiceID")

	invoice, err := h.invoices.Get(r.Context(), userID, invoiceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (h *InvoiceHandlers) ListIssued(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	invoices, err := h.invoices.ListIssued(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if invoices == nil {
		invoices = []domain.Invoice{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invoices": invoices})
}
