package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/ledger"
)

// PayrollService executes batched salary payouts as internal transfers. Each
// employee payout gets a reference derived from the execution reference and
// the employee row, so re-running a batch never pays anyone twice.
type PayrollService struct {
	engine   *ledger.Engine
	payroll  ports.PayrollRepository
	accounts ports.AccountRepository
	pins     *AccountService
	logger   *zap.Logger
}

// NewPayrollService creates a payroll service.
func NewPayrollService(
	engine *ledger.Engine,
	payroll ports.PayrollRepository,
	accounts ports.AccountRepository,
	pins *AccountService,
	logger *zap.Logger,
) *PayrollService {
	return &PayrollService{
		engine:   engine,
		payroll:  payroll,
		accounts: accounts,
		pins:     pins,
		logger:   logger,
	}
}

// EmployeeInput is one payout line when creating a batch.
type EmployeeInput struct {
	Name          string
	AccountNumber string
	Amount        int64
}

// CreateBatch stages a payroll batch in draft state.
func (s *PayrollService) CreateBatch(ctx context.Context, ownerID, title string, employees []EmployeeInput) (*domain.PayrollBatch, error) {
	if title == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "title")
	}
	if len(employees) == 0 {
		return nil, domain.ErrValidationFailed.WithDetail("field", "employees")
	}

	var total int64
	for _, e := range employees {
		if e.Amount <= 0 {
			return nil, domain.ErrValidationAmountInvalid.WithDetail("employee", e.Name)
		}
		total += e.Amount
	}

	batch := &domain.PayrollBatch{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Title:   title,
		Status:  domain.PayrollStatusDraft,
		Total:   total,
	}
	if err := s.payroll.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	for _, e := range employees {
		if err := s.payroll.AddEmployee(ctx, &domain.PayrollEmployee{
			ID:            uuid.New().String(),
			BatchID:       batch.ID,
			Name:          e.Name,
			AccountNumber: e.AccountNumber,
			Status:        domain.EmployeeStatusPending,
			Amount:        e.Amount,
		}); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

// ExecuteBatch pays every pending employee in the batch. Each payout is an
// independent internal transfer; one failing (unknown account, insufficient
// funds mid-run) does not abort the rest. The batch ends completed or partial.
func (s *PayrollService) ExecuteBatch(ctx context.Context, ownerID, batchID, executionRef, pin string) (*domain.PayrollBatch, error) {
	if err := s.pins.VerifyPIN(ctx, ownerID, pin); err != nil {
		return nil, err
	}

	batch, err := s.payroll.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.OwnerID != ownerID {
		return nil, domain.ErrAccessDenied
	}
	if batch.Status == domain.PayrollStatusCompleted {
		return batch, nil
	}

	owner, err := s.accounts.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	employees, err := s.payroll.ListEmployees(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if err := s.payroll.UpdateBatchStatus(ctx, batchID, domain.PayrollStatusExecuting); err != nil {
		return nil, err
	}

	failed := 0
	for _, emp := range employees {
		if emp.Status == domain.EmployeeStatusPaid {
			continue
		}

		if err := s.payEmployee(ctx, owner, batch, emp, executionRef); err != nil {
			failed++
			s.logger.Warn("payroll payout failed",
				zap.String("batch_id", batchID),
				zap.String("employee_id", emp.ID),
				zap.Error(err))
			if uerr := s.payroll.UpdateEmployeeStatus(ctx, emp.ID, domain.EmployeeStatusFailed); uerr != nil {
				return nil, uerr
			}
			continue
		}
		if err := s.payroll.UpdateEmployeeStatus(ctx, emp.ID, domain.EmployeeStatusPaid); err != nil {
			return nil, err
		}
	}

	final := domain.PayrollStatusCompleted
	if failed > 0 {
		final = domain.PayrollStatusPartial
	}
	if err := s.payroll.UpdateBatchStatus(ctx, batchID, final); err != nil {
		return nil, err
	}

	batch.Status = final
	s.logger.Info("payroll batch executed",
		zap.String("batch_id", batchID),
		zap.Int("employees", len(employees)),
		zap.Int("failed", failed))
	return batch, nil
}

func (s *PayrollService) payEmployee(ctx context.Context, owner *domain.Account, batch *domain.PayrollBatch, emp domain.PayrollEmployee, executionRef string) error {
	recipient, err := s.accounts.GetByAccountNumber(ctx, emp.AccountNumber)
	if err != nil {
		return err
	}
	if recipient.ID == owner.ID {
		return domain.ErrSelfTransfer
	}

	_, _, err = s.engine.Transfer(ctx, ledger.TransferParams{
		FromUserID: owner.ID,
		ToUserID:   recipient.ID,
		Reference:  fmt.Sprintf("%s-emp-%s", executionRef, emp.ID),
		Narration:  fmt.Sprintf("Salary: %s", batch.Title),
		Category:   domain.CategoryPayroll,
		FromPartyDesc: map[string]string{
			"name":           emp.Name,
			"account_number": emp.AccountNumber,
			"direction":      "to",
		},
		ToPartyDesc: map[string]string{
			"name":      owner.FullName,
			"direction": "from",
		},
		Amount: emp.Amount,
	})
	return err
}

// GetBatch returns a batch with ownership enforced.
func (s *PayrollService) GetBatch(ctx context.Context, ownerID, batchID string) (*domain.PayrollBatch, []domain.PayrollEmployee, error) {
	batch, err := s.payroll.GetBatch(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	if batch.OwnerID != ownerID {
		return nil, nil, domain.ErrAccessDenied
	}
	employees, err := s.payroll.ListEmployees(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	return batch, employees, nil
}

// ListBatches returns the owner's batches.
func (s *PayrollService) ListBatches(ctx context.Context, ownerID string) ([]domain.PayrollBatch, error) {
	return s.payroll.ListBatches(ctx, ownerID)
}
