package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/ledger"
	"github.com/ovomonie/banking-service/pkg/observability"
)

// TransferService moves money between accounts, both in-house and over the
// vendor rails. Every path ends in the ledger engine; this layer adds PIN
// verification, KYC tier limits and the vendor outcome handling.
type TransferService struct {
	engine   *ledger.Engine
	accounts ports.AccountRepository
	store    ports.LedgerStore
	settles  ports.SettlementRepository
	wallet   ports.WalletGateway
	pins     *AccountService
	logger   *zap.Logger
}

// NewTransferService creates a transfer service.
func NewTransferService(
	engine *ledger.Engine,
	accounts ports.AccountRepository,
	store ports.LedgerStore,
	settles ports.SettlementRepository,
	wallet ports.WalletGateway,
	pins *AccountService,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		engine:   engine,
		accounts: accounts,
		store:    store,
		settles:  settles,
		wallet:   wallet,
		pins:     pins,
		logger:   logger,
	}
}

// checkDebitAllowance enforces the sender's tier limits: per-transaction cap
// and the rolling daily debit total.
func (s *TransferService) checkDebitAllowance(ctx context.Context, account *domain.Account, amount int64) error {
	if !account.IsActive() {
		return domain.ErrAccountSuspended
	}
	if amount > account.KYCTier.SingleTransferLimit() {
		return domain.ErrTierLimitExceeded.
			WithDetail("limit", account.KYCTier.SingleTransferLimit()).
			WithDetail("amount", amount)
	}

	since := time.Now().UTC().Truncate(24 * time.Hour)
	debited, err := s.store.DebitedSince(ctx, account.ID, since)
	if err != nil {
		return err
	}
	if debited+amount > account.KYCTier.DailyDebitLimit() {
		return domain.ErrTierLimitExceeded.
			WithDetail("daily_limit", account.KYCTier.DailyDebitLimit()).
			WithDetail("debited_today", debited)
	}
	return nil
}

// InternalTransferParams describes a wallet-to-wallet transfer.
type InternalTransferParams struct {
	FromUserID      string
	ToAccountNumber string
	Reference       string
	Narration       string
	PIN             string
	Amount          int64
}

// InternalTransfer moves funds between two accounts in one atomic ledger
// operation. A replayed reference returns the original entries unchanged.
func (s *TransferService) InternalTransfer(ctx context.Context, p InternalTransferParams) (*ledger.TransferResult, bool, error) {
	if err := s.pins.VerifyPIN(ctx, p.FromUserID, p.PIN); err != nil {
		return nil, false, err
	}

	sender, err := s.accounts.GetByID(ctx, p.FromUserID)
	if err != nil {
		return nil, false, err
	}
	recipient, err := s.accounts.GetByAccountNumber(ctx, p.ToAccountNumber)
	if err != nil {
		return nil, false, err
	}
	if sender.ID == recipient.ID {
		return nil, false, domain.ErrSelfTransfer
	}
	if err := s.checkDebitAllowance(ctx, sender, p.Amount); err != nil {
		return nil, false, err
	}

	return s.engine.Transfer(ctx, ledger.TransferParams{
		FromUserID: sender.ID,
		ToUserID:   recipient.ID,
		Reference:  p.Reference,
		Narration:  p.Narration,
		Category:   domain.CategoryTransfer,
		FromPartyDesc: map[string]string{
			"name":           recipient.FullName,
			"account_number": recipient.AccountNumber,
			"direction":      "to",
		},
		ToPartyDesc: map[string]string{
			"name":           sender.FullName,
			"account_number": sender.AccountNumber,
			"direction":      "from",
		},
		Amount: p.Amount,
	})
}

// ExternalTransferParams describes a transfer to another bank.
type ExternalTransferParams struct {
	FromUserID       string
	RecipientAccount string
	RecipientBank    string
	RecipientName    string
	Reference        string
	Narration        string
	PIN              string
	Amount           int64
}

// ExternalTransferResult reports how an outbound transfer landed.
type ExternalTransferResult struct {
	Entry    *domain.Entry
	Status   domain.SettlementStatus
	Reversed bool
}

// ExternalTransfer debits the sender first, then hands the money to the
// vendor. A failed vendor call is reversed with a compensating credit; a
// pending outcome is staged and settled later by webhook or reconciler. The
// debit/stage/reverse choreography means at no point can the vendor hold
// money the ledger has not accounted for.
func (s *TransferService) ExternalTransfer(ctx context.Context, p ExternalTransferParams) (*ExternalTransferResult, error) {
	if err := s.pins.VerifyPIN(ctx, p.FromUserID, p.PIN); err != nil {
		return nil, err
	}

	sender, err := s.accounts.GetByID(ctx, p.FromUserID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDebitAllowance(ctx, sender, p.Amount); err != nil {
		return nil, err
	}

	entry, applied, err := s.engine.Debit(ctx, ledger.MutationParams{
		UserID:    p.FromUserID,
		Reference: p.Reference,
		Narration: p.Narration,
		Category:  domain.CategoryTransfer,
		Amount:    p.Amount,
		Party: map[string]string{
			"name":           p.RecipientName,
			"account_number": p.RecipientAccount,
			"bank_code":      p.RecipientBank,
			"rail":           "external",
		},
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// Replayed reference: the vendor leg already ran (or is staged).
		// Report the prior state instead of calling the vendor again.
		return s.replayedExternal(ctx, entry, p.Reference)
	}

	outcome, err := s.wallet.Transfer(ctx, ports.ExternalTransfer{
		RecipientAccount: p.RecipientAccount,
		RecipientBank:    p.RecipientBank,
		RecipientName:    p.RecipientName,
		Narration:        p.Narration,
		Reference:        p.Reference + "-vendor",
		Amount:           p.Amount,
	})
	if err != nil {
		// Transport-level failure: the vendor may or may not have seen the
		// request, so stage it for the reconciler instead of reversing.
		s.logger.Warn("external transfer vendor call failed, staging for reconciliation",
			zap.String("reference", p.Reference),
			zap.Error(err))
		return s.stageExternal(ctx, entry, p, "")
	}

	switch {
	case outcome.Succeeded():
		observability.RecordSettlement(string(domain.SettlementKindExternalTransfer), "completed", "inline")
		return &ExternalTransferResult{Entry: entry, Status: domain.SettlementStatusCompleted}, nil

	case outcome.Pending():
		return s.stageExternal(ctx, entry, p, outcome.VendorReference)

	default:
		reversal, _, rerr := s.engine.Credit(ctx, ledger.MutationParams{
			UserID:    p.FromUserID,
			Reference: p.Reference + "-reversal",
			Narration: "Reversal: " + p.Narration,
			Category:  domain.CategoryReversal,
			Amount:    p.Amount,
			Party:     map[string]string{"reversal_of": p.Reference},
		})
		if rerr != nil {
			// The debit stands with no matching payout. Loudest possible
			// log; the drift audit will also flag the account.
			s.logger.Error("external transfer reversal failed",
				zap.String("reference", p.Reference),
				zap.Error(rerr))
			return nil, rerr
		}
		observability.RecordSettlement(string(domain.SettlementKindExternalTransfer), "failed", "inline")
		return &ExternalTransferResult{
			Entry:    reversal,
			Status:   domain.SettlementStatusFailed,
			Reversed: true,
		}, domain.ErrVendorDeclined.WithDetail("vendor_message", outcome.Message)
	}
}

func (s *TransferService) stageExternal(ctx context.Context, entry *domain.Entry, p ExternalTransferParams, vendorRef string) (*ExternalTransferResult, error) {
	err := s.settles.Create(ctx, &domain.PendingSettlement{
		ID:              uuid.New().String(),
		UserID:          p.FromUserID,
		Kind:            domain.SettlementKindExternalTransfer,
		Status:          domain.SettlementStatusPending,
		Reference:       p.Reference,
		VendorReference: vendorRef,
		Amount:          p.Amount,
		Detail: map[string]string{
			"recipient_account": p.RecipientAccount,
			"recipient_bank":    p.RecipientBank,
		},
	})
	if err != nil {
		return nil, err
	}
	observability.RecordSettlement(string(domain.SettlementKindExternalTransfer), "pending", "inline")
	return &ExternalTransferResult{Entry: entry, Status: domain.SettlementStatusPending}, nil
}

func (s *TransferService) replayedExternal(ctx context.Context, entry *domain.Entry, reference string) (*ExternalTransferResult, error) {
	settlement, err := s.settles.GetByReference(ctx, reference)
	if err != nil {
		if domain.IsNotFoundError(err) {
			// No staged row: the original attempt resolved inline, either
			// completed or declined-and-reversed. The reversal entry tells
			// them apart.
			if _, rerr := s.engine.EntryByReference(ctx, reference+"-reversal"); rerr == nil {
				return &ExternalTransferResult{Entry: entry, Status: domain.SettlementStatusFailed, Reversed: true}, nil
			}
			return &ExternalTransferResult{Entry: entry, Status: domain.SettlementStatusCompleted}, nil
		}
		return nil, err
	}
	return &ExternalTransferResult{Entry: entry, Status: settlement.Status}, nil
}

// Banks lists the institutions reachable for external transfers.
func (s *TransferService) Banks(ctx context.Context) ([]ports.Bank, error) {
	return s.wallet.Banks(ctx)
}

// ValidateRecipient resolves an external account name before the user commits.
func (s *TransferService) ValidateRecipient(ctx context.Context, accountNumber, bankCode string) (*ports.Recipient, error) {
	return s.wallet.ValidateRecipient(ctx, accountNumber, bankCode)
}
