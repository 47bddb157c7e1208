package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// SubscriptionHandlers serves the recurring-payment registry.
type SubscriptionHandlers struct {
	subs   *services.SubscriptionService
	logger *zap.Logger
}

func NewSubscriptionHandlers(subs *services.SubscriptionService, logger *zap.Logger) *SubscriptionHandlers {
	return &SubscriptionHandlers{subs: subs, logger: logger}
}

type createSubscriptionRequest struct {
	MerchantName  string     `json:"merchant_name"`
	Frequency     string     `json:"frequency"`
	NextBillingAt *time.Time `json:"next_billing_at,omitempty"`
	Amount        int64      `json:"amount"`
}

func (h *SubscriptionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req createSubscriptionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var next time.Time
	if req.NextBillingAt != nil {
		next = *req.NextBillingAt
	}
	sub, err := h.subs.Create(r.Context(), userID, req.MerchantName, req.Amount,
		domain.SubscriptionFrequency(req.Frequency), next)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	subs, err := h.subs.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

type updateSubscriptionRequest struct {
	Status string `json:"status"`
}

func (h *SubscriptionHandlers) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	subscriptionID := chi.URLParam(r, "subscriptionID")
	var req updateSubscriptionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sub, err := h.subs.SetStatus(r.Context(), userID, subscriptionID,
		domain.SubscriptionStatus(req.Status))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	subscriptionID := chi.URLParam(r, "subscriptionID")

	if err := h.subs.Delete(r.Context(), userID, subscriptionID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
