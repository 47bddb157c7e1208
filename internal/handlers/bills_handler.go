package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// BillsHandlers serves bill payments and airtime purchases.
type BillsHandlers struct {
	bills  *services.BillsService
	logger *zap.Logger
}

func NewBillsHandlers(bills *services.BillsService, logger *zap.Logger) *BillsHandlers {
	return &BillsHandlers{bills: bills, logger: logger}
}

func (h *BillsHandlers) Providers(w http.ResponseWriter, r *http.Request) {
	providers, err := h.bills.Providers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": providers})
}

func (h *BillsHandlers) Services(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	items, err := h.bills.Services(r.Context(), providerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"services": items})
}

func (h *BillsHandlers) ValidateCustomer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	providerID, serviceID, customerID := q.Get("provider_id"), q.Get("service_id"), q.Get("customer_id")
	if providerID == "" || serviceID == "" || customerID == "" {
		writeError(w, h.logger, domain.ErrValidationMissingField.WithDetail("fields", "provider_id, service_id, customer_id"))
		return
	}

	name, err := h.bills.ValidateCustomer(r.Context(), providerID, serviceID, customerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"customer_name": name})
}

type payBillRequest struct {
	ProviderID string `json:"provider_id"`
	ServiceID  string `json:"service_id"`
	CustomerID string `json:"customer_id"`
	Reference  string `json:"reference"`
	Narration  string `json:"narration"`
	PIN        string `json:"pin"`
	Airtime    bool   `json:"airtime,omitempty"`
	Amount     int64  `json:"amount"`
}

type payBillResponse struct {
	Entry    *domain.Entry           `json:"entry"`
	Status   domain.SettlementStatus `json:"status"`
	Reversed bool                    `json:"reversed"`
}

func (h *BillsHandlers) Pay(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req payBillRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	category := domain.CategoryBillPayment
	if req.Airtime {
		category = domain.CategoryAirtime
	}

	result, err := h.bills.PayBill(r.Context(), services.PayBillParams{
		UserID:     userID,
		ProviderID: req.ProviderID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		Reference:  req.Reference,
		Narration:  req.Narration,
		PIN:        req.PIN,
		Category:   category,
		Amount:     req.Amount,
	})
	if err != nil {
		if result != nil {
			writeJSON(w, statusForCode(domain.GetErrorCode(err)), payBillResponse{
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
	writeJSON(w, status, payBillResponse{Entry: result.Entry, Status: result.Status, Reversed: result.Reversed})
}

func (h *BillsHandlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	settlement, err := h.bills.PaymentStatus(r.Context(), reference)
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
