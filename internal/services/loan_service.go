package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/ledger"
)

// Loan product terms: flat rate in basis points over the whole term.
const (
	loanRateBps    int64 = 500 // 5% flat
	loanTermMonths       = 3

	// Tier-gated principal caps, in kobo.
	loanCapTier2 int64 = 10_000_000  // NGN 100,000
	loanCapTier3 int64 = 100_000_000 // NGN 1,000,000
)

// LoanService disburses and collects short-term loans. Disbursement credits
// the wallet through the engine; repayments debit it, so a loan's cash flow
// is fully visible in the ledger.
type LoanService struct {
	engine   *ledger.Engine
	loans    ports.LoanRepository
	accounts ports.AccountRepository
	pins     *AccountService
	logger   *zap.Logger
}

// NewLoanService creates a loan service.
func NewLoanService(
	engine *ledger.Engine,
	loans ports.LoanRepository,
	accounts ports.AccountRepository,
	pins *AccountService,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		engine:   engine,
		loans:    loans,
		accounts: accounts,
		pins:     pins,
		logger:   logger,
	}
}

// Apply requests and immediately disburses a loan. Tier 1 accounts cannot
// borrow; higher tiers are capped by principal.
func (s *LoanService) Apply(ctx context.Context, userID, reference string, principal int64) (*domain.Loan, error) {
	if principal <= 0 {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", principal)
	}
	if reference == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reference")
	}

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, domain.ErrAccountSuspended
	}

	var limit int64
	switch account.KYCTier {
	case domain.KYCTier2:
		limit = loanCapTier2
	case domain.KYCTier3:
		limit = loanCapTier3
	default:
		return nil, domain.ErrTierLimitExceeded.WithDetail("reason", "loans require tier 2 or higher")
	}
	if principal > limit {
		return nil, domain.ErrTierLimitExceeded.
			WithDetail("limit", limit).
			WithDetail("amount", principal)
	}

	for _, existing := range s.activeLoans(ctx, userID) {
		if existing.Reference == reference {
			return &existing, nil
		}
		return nil, domain.ErrConflict.WithDetail("reason", "outstanding loan exists")
	}

	loan := &domain.Loan{
		ID:         uuid.New().String(),
		UserID:     userID,
		Reference:  reference,
		Status:     domain.LoanStatusPending,
		Principal:  principal,
		RateBps:    loanRateBps,
		TermMonths: loanTermMonths,
	}
	loan.Outstanding = loan.TotalRepayable()

	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, err
	}

	_, _, err = s.engine.Credit(ctx, ledger.MutationParams{
		UserID:    userID,
		Reference: reference,
		Narration: "Loan disbursement",
		Category:  domain.CategoryLoan,
		Amount:    principal,
		Party:     map[string]string{"loan_id": loan.ID},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	loan.Status = domain.LoanStatusActive
	loan.DisbursedAt = &now
	if err := s.loans.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.logger.Info("loan disbursed",
		zap.String("loan_id", loan.ID),
		zap.String("user_id", userID),
		zap.Int64("principal", principal))
	return loan, nil
}

// Repay debits the wallet against the outstanding balance. Overpayment is
// clamped; the final repayment closes the loan.
func (s *LoanService) Repay(ctx context.Context, userID, loanID, reference, pin string, amount int64) (*domain.Loan, error) {
	if err := s.pins.VerifyPIN(ctx, userID, pin); err != nil {
		return nil, err
	}
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != userID {
		return nil, domain.ErrAccessDenied
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, domain.ErrConflict.WithDetail("status", string(loan.Status))
	}
	if amount <= 0 {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", amount)
	}

	applied := loan.ApplyRepayment(amount)

	_, fresh, err := s.engine.Debit(ctx, ledger.MutationParams{
		UserID:    userID,
		Reference: reference,
		Narration: "Loan repayment",
		Category:  domain.CategoryLoan,
		Amount:    applied,
		Party:     map[string]string{"loan_id": loan.ID},
	})
	if err != nil {
		return nil, err
	}
	if !fresh {
		// Replayed repayment: return the stored state untouched.
		return s.loans.GetByID(ctx, loanID)
	}

	if err := s.loans.Update(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// List returns the user's loans.
func (s *LoanService) List(ctx context.Context, userID string) ([]domain.Loan, error) {
	return s.loans.ListByUser(ctx, userID)
}

func (s *LoanService) activeLoans(ctx context.Context, userID string) []domain.Loan {
	loans, err := s.loans.ListByUser(ctx, userID)
	if err != nil {
		return nil
	}
	var active []domain.Loan
	for _, l := range loans {
		if l.Status == domain.LoanStatusActive || l.Status == domain.LoanStatusPending {
			active = append(active, l)
		}
	}
	return active
}
