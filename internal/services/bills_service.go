package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/ledger"
	"github.com/ovomonie/banking-service/pkg/observability"
)

// BillsService sells airtime, data, power and other vendor-catalogued bills.
// Debit-first like external transfers: the wallet pays before the vendor is
// called, and a vendor failure is reversed with a compensating credit.
type BillsService struct {
	engine   *ledger.Engine
	accounts ports.AccountRepository
	settles  ports.SettlementRepository
	bills    ports.BillsGateway
	pins     *AccountService
	logger   *zap.Logger
}

// NewBillsService creates a bills service.
func NewBillsService(
	engine *ledger.Engine,
	accounts ports.AccountRepository,
	settles ports.SettlementRepository,
	bills ports.BillsGateway,
	pins *AccountService,
	logger *zap.Logger,
) *BillsService {
	return &BillsService{
		engine:   engine,
		accounts: accounts,
		settles:  settles,
		bills:    bills,
		pins:     pins,
		logger:   logger,
	}
}

// Providers lists biller categories.
func (s *BillsService) Providers(ctx context.Context) ([]ports.BillProvider, error) {
	return s.bills.Providers(ctx)
}

// Services lists purchasable items under a provider.
func (s *BillsService) Services(ctx context.Context, providerID string) ([]ports.BillService, error) {
	return s.bills.Services(ctx, providerID)
}

// ValidateCustomer resolves a meter/smartcard/phone to a customer name.
func (s *BillsService) ValidateCustomer(ctx context.Context, providerID, serviceID, customerID string) (string, error) {
	return s.bills.ValidateCustomer(ctx, providerID, serviceID, customerID)
}

// PayBillParams describes a bill purchase.
type PayBillParams struct {
	UserID     string
	ProviderID string
	ServiceID  string
	CustomerID string
	Reference  string
	Narration  string
	PIN        string
	Category   domain.Category // bill_payment or airtime
	Amount     int64
}

// PayBillResult reports how a bill purchase landed.
type PayBillResult struct {
	Entry    *domain.Entry
	Status   domain.SettlementStatus
	Reversed bool
}

// PayBill debits the wallet, then purchases from the vendor. Failed purchases
// are reversed; pending ones are staged for the reconciler.
func (s *BillsService) PayBill(ctx context.Context, p PayBillParams) (*PayBillResult, error) {
	if err := s.pins.VerifyPIN(ctx, p.UserID, p.PIN); err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, domain.ErrAccountSuspended
	}

	category := p.Category
	if category == "" {
		category = domain.CategoryBillPayment
	}

	entry, applied, err := s.engine.Debit(ctx, ledger.MutationParams{
		UserID:    p.UserID,
		Reference: p.Reference,
		Narration: p.Narration,
		Category:  category,
		Amount:    p.Amount,
		Party: map[string]string{
			"provider_id": p.ProviderID,
			"service_id":  p.ServiceID,
			"customer_id": p.CustomerID,
		},
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.replayedBill(ctx, entry, p.Reference)
	}

	outcome, err := s.bills.Pay(ctx, ports.BillPayment{
		ProviderID: p.ProviderID,
		ServiceID:  p.ServiceID,
		CustomerID: p.CustomerID,
		Reference:  p.Reference + "-vendor",
		Amount:     p.Amount,
	})
	if err != nil {
		s.logger.Warn("bill payment vendor call failed, staging for reconciliation",
			zap.String("reference", p.Reference),
			zap.Error(err))
		return s.stageBill(ctx, entry, p, "")
	}

	switch {
	case outcome.Succeeded():
		observability.RecordSettlement(string(domain.SettlementKindBillPayment), "completed", "inline")
		return &PayBillResult{Entry: entry, Status: domain.SettlementStatusCompleted}, nil

	case outcome.Pending():
		return s.stageBill(ctx, entry, p, outcome.VendorReference)

	default:
		reversal, _, rerr := s.engine.Credit(ctx, ledger.MutationParams{
			UserID:    p.UserID,
			Reference: p.Reference + "-reversal",
			Narration: "Reversal: " + p.Narration,
			Category:  domain.CategoryReversal,
			Amount:    p.Amount,
			Party:     map[string]string{"reversal_of": p.Reference},
		})
		if rerr != nil {
			s.logger.Error("bill payment reversal failed",
				zap.String("reference", p.Reference),
				zap.Error(rerr))
			return nil, rerr
		}
		observability.RecordSettlement(string(domain.SettlementKindBillPayment), "failed", "inline")
		return &PayBillResult{
			Entry:    reversal,
			Status:   domain.SettlementStatusFailed,
			Reversed: true,
		}, domain.ErrVendorDeclined.WithDetail("vendor_message", outcome.Message)
	}
}

func (s *BillsService) stageBill(ctx context.Context, entry *domain.Entry, p PayBillParams, vendorRef string) (*PayBillResult, error) {
	err := s.settles.Create(ctx, &domain.PendingSettlement{
		ID:              uuid.New().String(),
		UserID:          p.UserID,
		Kind:            domain.SettlementKindBillPayment,
		Status:          domain.SettlementStatusPending,
		Reference:       p.Reference,
		VendorReference: vendorRef,
		Amount:          p.Amount,
		Detail: map[string]string{
			"provider_id": p.ProviderID,
			"customer_id": p.CustomerID,
		},
	})
	if err != nil {
		return nil, err
	}
	observability.RecordSettlement(string(domain.SettlementKindBillPayment), "pending", "inline")
	return &PayBillResult{Entry: entry, Status: domain.SettlementStatusPending}, nil
}

func (s *BillsService) replayedBill(ctx context.Context, entry *domain.Entry, reference string) (*PayBillResult, error) {
	settlement, err := s.settles.GetByReference(ctx, reference)
	if err != nil {
		if domain.IsNotFoundError(err) {
			if _, rerr := s.engine.EntryByReference(ctx, reference+"-reversal"); rerr == nil {
				return &PayBillResult{Entry: entry, Status: domain.SettlementStatusFailed, Reversed: true}, nil
			}
			return &PayBillResult{Entry: entry, Status: domain.SettlementStatusCompleted}, nil
		}
		return nil, err
	}
	return &PayBillResult{Entry: entry, Status: settlement.Status}, nil
}

// PaymentStatus polls a staged bill payment.
func (s *BillsService) PaymentStatus(ctx context.Context, reference string) (*domain.PendingSettlement, error) {
	return s.settles.GetByReference(ctx, reference)
}
