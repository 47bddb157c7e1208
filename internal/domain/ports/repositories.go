package ports

import (
	"context"

	"github.com/ovomonie/banking-service/internal/domain"
)

// AccountRepository manages user account rows. Balance is read-only here;
// mutation goes through the LedgerStore.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Account, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	UpdateKYC(ctx context.Context, id string, tier domain.KYCTier, bvnVerified, selfieVerified bool) error
	UpdatePinHash(ctx context.Context, id string, pinHash string) error
	ListIDs(ctx context.Context) ([]string, error)
}

// SettlementRepository stages and finalizes asynchronous vendor flows.
type SettlementRepository interface {
	Create(ctx context.Context, s *domain.PendingSettlement) error
	GetByReference(ctx context.Context, reference string) (*domain.PendingSettlement, error)
	// MarkFinal transitions pending -> completed/failed. It must be a guarded
	// update (WHERE status = 'pending') so concurrent webhook deliveries and
	// reconciler polls settle at most once; returns false when already final.
	MarkFinal(ctx context.Context, reference string, status domain.SettlementStatus, vendorRef string) (bool, error)
	ListStalePending(ctx context.Context, olderThanMinutes int, limit int) ([]domain.PendingSettlement, error)
}

// CardRepository manages virtual card rows.
type CardRepository interface {
	Create(ctx context.Context, card *domain.VirtualCard) error
	GetByID(ctx context.Context, id string) (*domain.VirtualCard, error)
	GetByVendorCardID(ctx context.Context, vendorCardID string) (*domain.VirtualCard, error)
	GetByReference(ctx context.Context, reference string) (*domain.VirtualCard, error)
	ListByUser(ctx context.Context, userID string) ([]domain.VirtualCard, error)
	UpdateStatus(ctx context.Context, id string, status domain.CardStatus, vendorCardID, maskedPAN string) error
}

// LoanRepository manages loan rows.
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Loan, error)
	Update(ctx context.Context, loan *domain.Loan) error
}

// PayrollRepository manages payroll batches and their employees.
type PayrollRepository interface {
	CreateBatch(ctx context.Context, batch *domain.PayrollBatch) error
	GetBatch(ctx context.Context, id string) (*domain.PayrollBatch, error)
	ListBatches(ctx context.Context, ownerID string) ([]domain.PayrollBatch, error)
	UpdateBatchStatus(ctx context.Context, id string, status domain.PayrollStatus) error
	AddEmployee(ctx context.Context, employee *domain.PayrollEmployee) error
	ListEmployees(ctx context.Context, batchID string) ([]domain.PayrollEmployee, error)
	UpdateEmployeeStatus(ctx context.Context, id string, status domain.EmployeeStatus) error
}

// InvoiceRepository manages invoice rows.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	ListByIssuer(ctx context.Context, issuerID string) ([]domain.Invoice, error)
	// MarkPaid is a guarded unpaid -> paid transition; returns false when the
	// invoice was already paid.
	MarkPaid(ctx context.Context, id string) (bool, error)
}

// SecurityQuestionRepository stores each user's recovery question set.
type SecurityQuestionRepository interface {
	// Upsert replaces the user's question set; a user has at most one row.
	Upsert(ctx context.Context, q *domain.SecurityQuestions) error
	GetByUser(ctx context.Context, userID string) (*domain.SecurityQuestions, error)
}

// SubscriptionRepository manages recurring merchant payment rows.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error)
	UpdateStatus(ctx context.Context, id string, status domain.SubscriptionStatus) error
	Delete(ctx context.Context, id string) error
}

// MandateRepository manages direct-debit mandate rows.
type MandateRepository interface {
	Create(ctx context.Context, m *domain.Mandate) error
	GetByID(ctx context.Context, id string) (*domain.Mandate, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Mandate, error)
	// MarkCancelled is a guarded active -> cancelled transition; returns
	// false when the mandate was already cancelled.
	MarkCancelled(ctx context.Context, id string) (bool, error)
}

// NotificationRepository manages notification rows.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}
