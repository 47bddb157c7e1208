package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// LoanHandlers serves loan application and repayment.
type LoanHandlers struct {
	loans  *services.LoanService
	logger *zap.Logger
}

func NewLoanHandlers(loans *services.LoanService, logger *zap.Logger) *LoanHandlers {
	return &LoanHandlers{loans: loans, logger: logger}
}

type applyLoanRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

func (h *LoanHandlers) Apply(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req applyLoanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.loans.Apply(r.Context(), userID, req.Reference, req.Amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

type repayLoanRequest struct {
	Reference string `json:"reference"`
	PIN       string `json:"pin"`
	Amount    int64  `json:"amount"`
}

func (h *LoanHandlers) Repay(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	loanID := chi.URLParam(r, "loanID")
	var req repayLoanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.loans.Repay(r.Context(), userID, loanID, req.Reference, req.PIN, req.Amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *LoanHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	loans, err := h.loans.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if loans == nil {
		loans = []domain.Loan{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"loans": loans})
}
