package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// CardHandlers serves virtual card issuance and controls.
type CardHandlers struct {
	cards    *services.CardService
	accounts *services.AccountService
	logger   *zap.Logger
}

func NewCardHandlers(cards *services.CardService, accounts *services.AccountService, logger *zap.Logger) *CardHandlers {
	return &CardHandlers{cards: cards, accounts: accounts, logger: logger}
}

type orderCardRequest struct {
	Reference string `json:"reference"`
	PIN       string `json:"pin"`
}

func (h *CardHandlers) Order(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req orderCardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	card, err := h.cards.OrderCard(r.Context(), userID, account.FullName, req.Reference, req.PIN)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusCreated
	if card.Status == domain.CardStatusPending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, card)
}

func (h *CardHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	cards, err := h.cards.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if cards == nil {
		cards = []domain.VirtualCard{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (h *CardHandlers) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

func (h *CardHandlers) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *CardHandlers) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	userID, _ := UserID(r.Context())
	cardID := chi.URLParam(r, "cardID")

	card, err := h.cards.SetBlocked(r.Context(), userID, cardID, blocked)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}
