package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// PayrollHandlers serves payroll batch management and execution.
type PayrollHandlers struct {
	payroll *services.PayrollService
	logger  *zap.Logger
}

func NewPayrollHandlers(payroll *services.PayrollService, logger *zap.Logger) *PayrollHandlers {
	return &PayrollHandlers{payroll: payroll, logger: logger}
}

type payrollEmployeeRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
}

type createBatchRequest struct {
	Title     string                   `json:"title"`
	Employees []payrollEmployeeRequest `json:"employees"`
}

func (h *PayrollHandlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req createBatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	employees := make([]services.EmployeeInput, 0, len(req.Employees))
	for _, e := range req.Employees {
		employees = append(employees, services.EmployeeInput{
			Name:          e.Name,
			AccountNumber: e.AccountNumber,
			Amount:        e.Amount,
		})
	}

	batch, err := h.payroll.CreateBatch(r.Context(), userID, req.Title, employees)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, batch)
}

type executeBatchRequest struct {
	Reference string `json:"reference"`
	PIN       string `json:"pin"`
}

func (h *PayrollHandlers) ExecuteBatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	batchID := chi.URLParam(r, "batchID")
	var req executeBatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Reference == "" {
		writeError(w, h.logger, domain.ErrValidationMissingField.WithDetail("field", "reference"))
		return
	}

	batch, err := h.payroll.ExecuteBatch(r.Context(), userID, batchID, req.Reference, req.PIN)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (h *PayrollHandlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	batchID := chi.URLParam(r, "batchID")

	batch, employees, err := h.payroll.GetBatch(r.Context(), userID, batchID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if employees == nil {
		employees = []domain.PayrollEmployee{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"batch": batch, "employees": employees})
}

func (h *PayrollHandlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	batches, err := h.payroll.ListBatches(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if batches == nil {
		batches = []domain.PayrollBatch{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"batches": batches})
}
