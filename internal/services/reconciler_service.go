package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/ledger"
	"github.com/ovomonie/banking-service/pkg/observability"
	"github.com/ovomonie/banking-service/pkg/resilience"
)

const (
	// A settlement is stale once it has sat pending this long. Webhooks and
	// user-driven status polls get first crack; the reconciler is the backstop.
	defaultStaleAfterMinutes = 10
	defaultReconcileBatch    = 100
	vendorPollAttempts       = 3
)

// ReconcilerService sweeps stale pending settlements, polls the vendor for
// their terminal state, and audits ledger balances against the entry log.
// It is the component that guarantees no debit stays unresolved forever.
type ReconcilerService struct {
	engine   *ledger.Engine
	settles  ports.SettlementRepository
	accounts ports.AccountRepository
	store    ports.LedgerStore
	wallet   ports.WalletGateway
	cards    ports.CardGateway
	bills    ports.BillsGateway
	payments ports.PaymentGateway
	funding  *FundingService
	orders   *CardService
	notifier SettlementNotifier
	logger   *zap.Logger

	StaleAfterMinutes int
	BatchSize         int
}

// NewReconcilerService creates the reconciliation sweep.
func NewReconcilerService(
	engine *ledger.Engine,
	settles ports.SettlementRepository,
	accounts ports.AccountRepository,
	store ports.LedgerStore,
	wallet ports.WalletGateway,
	cards ports.CardGateway,
	bills ports.BillsGateway,
	payments ports.PaymentGateway,
	funding *FundingService,
	orders *CardService,
	notifier SettlementNotifier,
	logger *zap.Logger,
) *ReconcilerService {
	return &ReconcilerService{
		engine:            engine,
		settles:           settles,
		accounts:          accounts,
		store:             store,
		wallet:            wallet,
		cards:             cards,
		bills:             bills,
		payments:          payments,
		funding:           funding,
		orders:            orders,
		notifier:          notifier,
		logger:            logger,
		StaleAfterMinutes: defaultStaleAfterMinutes,
		BatchSize:         defaultReconcileBatch,
	}
}

// Run executes one full reconciliation pass: settle stale vendor flows, then
// audit every account balance against its ledger sum.
func (s *ReconcilerService) Run(ctx context.Context) error {
	if err := s.ReconcileSettlements(ctx); err != nil {
		return err
	}
	return s.AuditBalances(ctx)
}

// ReconcileSettlements resolves settlements that have been pending longer
// than the stale cutoff by asking the vendor what actually happened.
func (s *ReconcilerService) ReconcileSettlements(ctx context.Context) error {
	stale, err := s.settles.ListStalePending(ctx, s.StaleAfterMinutes, s.BatchSize)
	if err != nil {
		return fmt.Errorf("listing stale settlements: %w", err)
	}
	observability.SetStalePendingSettlements(float64(len(stale)))
	if len(stale) == 0 {
		return nil
	}

	s.logger.Info("reconciling stale settlements", zap.Int("count", len(stale)))
	for _, settlement := range stale {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.reconcileOne(ctx, settlement); err != nil {
			// One stuck settlement must not block the rest of the batch.
			s.logger.Warn("settlement reconciliation failed",
				zap.String("reference", settlement.Reference),
				zap.String("kind", string(settlement.Kind)),
				zap.Error(err))
		}
	}
	return nil
}

func (s *ReconcilerService) reconcileOne(ctx context.Context, settlement domain.PendingSettlement) error {
	switch settlement.Kind {
	case domain.SettlementKindExternalTransfer:
		return s.reconcileExternalTransfer(ctx, settlement)
	case domain.SettlementKindCardFunding:
		return s.reconcileCardFunding(ctx, settlement)
	case domain.SettlementKindGatewayFunding:
		return s.reconcileGatewayFunding(ctx, settlement)
	case domain.SettlementKindBillPayment:
		return s.reconcileBillPayment(ctx, settlement)
	case domain.SettlementKindCardOrder:
		return s.reconcileCardOrder(ctx, settlement)
	default:
		return fmt.Errorf("unknown settlement kind %q", settlement.Kind)
	}
}

// pollVendor runs a vendor status call with retries on transient failures.
func (s *ReconcilerService) pollVendor(ctx context.Context, poll func() (*ports.Outcome, error)) (*ports.Outcome, error) {
	var outcome *ports.Outcome
	err := resilience.Retry(ctx, vendorPollAttempts, resilience.ReconcilerBackoff(), domain.IsVendorError, func() error {
		var perr error
		outcome, perr = poll()
		return perr
	})
	return outcome, err
}

func (s *ReconcilerService) reconcileExternalTransfer(ctx context.Context, settlement domain.PendingSettlement) error {
	outcome, err := s.pollVendor(ctx, func() (*ports.Outcome, error) {
		return s.wallet.TransferStatus(ctx, settlement.Reference+"-vendor")
	})
	if err != nil {
		return err
	}

	switch {
	case outcome.Succeeded():
		won, err := s.settles.MarkFinal(ctx, settlement.Reference, domain.SettlementStatusCompleted, outcome.VendorReference)
		if err != nil {
			return err
		}
		if won {
			observability.RecordSettlement(string(settlement.Kind), "completed", "reconciler")
			s.notifySettled(ctx, settlement, domain.SettlementStatusCompleted, outcome.VendorReference)
		}
		return nil

	case outcome.Pending():
		// Still in flight at the vendor. Next sweep picks it up again.
		return nil

	default:
		won, err := s.settles.MarkFinal(ctx, settlement.Reference, domain.SettlementStatusFailed, outcome.VendorReference)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		observability.RecordSettlement(string(settlement.Kind), "failed", "reconciler")
		s.notifySettled(ctx, settlement, domain.SettlementStatusFailed, outcome.VendorReference)
		return s.reverseDebit(ctx, settlement, outcome.Message)
	}
}

func (s *ReconcilerService) reconcileBillPayment(ctx context.Context, settlement domain.PendingSettlement) error {
	outcome, err := s.pollVendor(ctx, func() (*ports.Outcome, error) {
		return s.bills.PaymentStatus(ctx, settlement.Reference+"-vendor")
	})
	if err != nil {
		return err
	}

	switch {
	case outcome.Succeeded():
		won, err := s.settles.MarkFinal(ctx, settlement.Reference, domain.SettlementStatusCompleted, outcome.VendorReference)
		if err != nil {
			return err
		}
		if won {
			observability.RecordSettlement(string(settlement.Kind), "completed", "reconciler")
			s.notifySettled(ctx, settlement, domain.SettlementStatusCompleted, outcome.VendorReference)
		}
		return nil

	case outcome.Pending():
		return nil

	default:
		won, err := s.settles.MarkFinal(ctx, settlement.Reference, domain.SettlementStatusFailed, outcome.VendorReference)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		observability.RecordSettlement(string(settlement.Kind), "failed", "reconciler")
		s.notifySettled(ctx, settlement, domain.SettlementStatusFailed, outcome.VendorReference)
		return s.reverseDebit(ctx, settlement, outcome.Message)
	}
}

func (s *ReconcilerService) reconcileCardFunding(ctx context.Context, settlement domain.PendingSettlement) error {
	outcome, err := s.pollVendor(ctx, func() (*ports.Outcome, error) {
		return s.cards.FundingStatus(ctx, settlement.Reference)
	})
	if err != nil {
		return err
	}

	switch {
	case outcome.Succeeded():
		return ignoreFinal(s.funding.SettleFunding(ctx, settlement.Reference, domain.SettlementStatusCompleted, outcome.VendorReference, "reconciler"))
	case outcome.Pending():
		return nil
	default:
		if outcome.Retriable {
			// Vendor says try again later, not a final decline.
			return nil
		}
		return ignoreFinal(s.funding.SettleFunding(ctx, settlement.Reference, domain.SettlementStatusFailed, outcome.VendorReference, "reconciler"))
	}
}

// reconcileGatewayFunding asks the payment gateway whether an abandoned
// hosted checkout was ever paid. Unpaid sessions stay pending until they are
// failed by webhook or expire at the gateway.
func (s *ReconcilerService) reconcileGatewayFunding(ctx context.Context, settlement domain.PendingSettlement) error {
	outcome, err := s.pollVendor(ctx, func() (*ports.Outcome, error) {
		return s.payments.Verify(ctx, settlement.Reference)
	})
	if err != nil {
		return err
	}

	switch {
	case outcome.Succeeded():
		return ignoreFinal(s.funding.SettleFunding(ctx, settlement.Reference, domain.SettlementStatusCompleted, outcome.VendorReference, "reconciler"))
	case outcome.Pending():
		return nil
	default:
		return ignoreFinal(s.funding.SettleFunding(ctx, settlement.Reference, domain.SettlementStatusFailed, outcome.VendorReference, "reconciler"))
	}
}

// reconcileCardOrder re-submits the issuance request under the original
// reference. The vendor deduplicates on reference, so a request it already
// processed comes back with its prior result rather than a second card.
func (s *ReconcilerService) reconcileCardOrder(ctx context.Context, settlement domain.PendingSettlement) error {
	account, err := s.accounts.GetByID(ctx, settlement.UserID)
	if err != nil {
		return err
	}

	issued, outcome, err := s.cards.IssueCard(ctx, ports.CardIssueRequest{
		Reference: settlement.Reference,
		UserName:  account.FullName,
	})
	if err != nil {
		return err
	}

	switch {
	case outcome.Succeeded():
		return ignoreFinal(s.orders.FinalizeOrder(ctx, settlement.Reference, true, issued.VendorCardID, issued.MaskedPAN, "reconciler"))
	case outcome.Pending():
		return nil
	default:
		if outcome.Retriable {
			return nil
		}
		return ignoreFinal(s.orders.FinalizeOrder(ctx, settlement.Reference, false, "", "", "reconciler"))
	}
}

func (s *ReconcilerService) notifySettled(ctx context.Context, settlement domain.PendingSettlement, status domain.SettlementStatus, vendorRef string) {
	settlement.Status = status
	settlement.VendorReference = vendorRef
	s.notifier.NotifySettlement(ctx, settlement)
}

// reverseDebit returns a failed debit-first flow's funds to the customer.
// The -reversal reference makes the credit idempotent across sweeps.
func (s *ReconcilerService) reverseDebit(ctx context.Context, settlement domain.PendingSettlement, vendorMessage string) error {
	_, applied, err := s.engine.Credit(ctx, ledger.MutationParams{
		UserID:    settlement.UserID,
		Reference: settlement.Reference + "-reversal",
		Narration: "Reversal: " + string(settlement.Kind) + " " + settlement.Reference,
		Category:  domain.CategoryReversal,
		Amount:    settlement.Amount,
		Party:     map[string]string{"reversal_of": settlement.Reference},
	})
	if err != nil {
		return fmt.Errorf("reversing %s: %w", settlement.Reference, err)
	}
	if applied {
		s.logger.Info("reversed failed settlement",
			zap.String("reference", settlement.Reference),
			zap.String("kind", string(settlement.Kind)),
			zap.Int64("amount", settlement.Amount),
			zap.String("vendor_message", vendorMessage))
	}
	return nil
}

// AuditBalances compares every account's stored balance against the sum of
// its ledger entries. Any mismatch means an invariant was broken and is
// surfaced through metrics and logs; the audit never mutates.
func (s *ReconcilerService) AuditBalances(ctx context.Context) error {
	ids, err := s.accounts.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts for audit: %w", err)
	}

	var drifted int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		account, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			s.logger.Warn("balance audit skipped account", zap.String("user_id", id), zap.Error(err))
			continue
		}
		sum, err := s.store.SumDeltas(ctx, id)
		if err != nil {
			s.logger.Warn("balance audit sum failed", zap.String("user_id", id), zap.Error(err))
			continue
		}
		if account.Balance == sum {
			continue
		}

		drifted++
		direction := "over"
		if account.Balance < sum {
			direction = "under"
		}
		observability.RecordBalanceDrift(direction)
		s.logger.Error("balance drift detected",
			zap.String("user_id", id),
			zap.Int64("balance", account.Balance),
			zap.Int64("ledger_sum", sum),
			zap.String("direction", direction))
	}

	if drifted > 0 {
		s.logger.Error("balance audit finished with drift", zap.Int("accounts", drifted))
	} else {
		s.logger.Info("balance audit clean", zap.Int("accounts", len(ids)))
	}
	return nil
}
