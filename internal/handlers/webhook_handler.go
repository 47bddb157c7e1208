package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

const webhookSignatureHeader = "x-vfd-signature"

// WebhookHandlers receives asynchronous settlement callbacks from the
// processor. Every payload must carry an HMAC-SHA256 signature of the raw
// body; unsigned or mis-signed requests are rejected before any state is
// touched.
type WebhookHandlers struct {
	secret  []byte
	funding *services.FundingService
	cards   *services.CardService
	logger  *zap.Logger
}

func NewWebhookHandlers(secret string, funding *services.FundingService, cards *services.CardService, logger *zap.Logger) *WebhookHandlers {
	return &WebhookHandlers{secret: []byte(secret), funding: funding, cards: cards, logger: logger}
}

func (h *WebhookHandlers) verify(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, domain.ErrWebhookSignature
	}

	sig, err := hex.DecodeString(r.Header.Get(webhookSignatureHeader))
	if err != nil || len(sig) == 0 {
		return nil, domain.ErrWebhookSignature
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, domain.ErrWebhookSignature
	}
	return body, nil
}

type cardWebhookPayload struct {
	Event        string `json:"event"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	VendorRef    string `json:"vendor_ref"`
	VendorCardID string `json:"vendor_card_id"`
	MaskedPAN    string `json:"masked_pan"`
}

// Cards handles callbacks for card funding confirmations and card issuance
// results, dispatched by the event field.
func (h *WebhookHandlers) Cards(w http.ResponseWriter, r *http.Request) {
	body, err := h.verify(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var payload cardWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, h.logger, domain.ErrValidationFailed)
		return
	}
	if payload.Reference == "" {
		writeError(w, h.logger, domain.ErrValidationMissingField.WithDetail("field", "reference"))
		return
	}

	switch payload.Event {
	case "card.issued":
		err = h.cards.FinalizeOrder(r.Context(), payload.Reference, payload.Status == "successful", payload.VendorCardID, payload.MaskedPAN, "webhook")
	case "card.funding":
		status := domain.SettlementStatusFailed
		if payload.Status == "successful" {
			status = domain.SettlementStatusCompleted
		}
		err = h.funding.SettleFunding(r.Context(), payload.Reference, status, payload.VendorRef, "webhook")
	default:
		writeError(w, h.logger, domain.ErrValidationFailed.WithDetail("event", payload.Event))
		return
	}
	if err != nil {
		// A replayed callback for an already-final settlement is fine.
		if domain.IsDomainError(err, domain.ErrorCodeSettlementFinal) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "already processed"})
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

type creditWebhookPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	VendorRef string `json:"vendor_ref"`
}

// Credit handles bank-transfer funding confirmations.
func (h *WebhookHandlers) Credit(w http.ResponseWriter, r *http.Request) {
	body, err := h.verify(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var payload creditWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, h.logger, domain.ErrValidationFailed)
		return
	}
	if payload.Reference == "" {
		writeError(w, h.logger, domain.ErrValidationMissingField.WithDetail("field", "reference"))
		return
	}

	status := domain.SettlementStatusFailed
	if payload.Status == "successful" {
		status = domain.SettlementStatusCompleted
	}
	if err := h.funding.SettleFunding(r.Context(), payload.Reference, status, payload.VendorRef, "webhook"); err != nil {
		if domain.IsDomainError(err, domain.ErrorCodeSettlementFinal) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "already processed"})
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
