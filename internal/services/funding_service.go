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

// FundingService tops up wallets from external debit cards. The inversion of
// the transfer flow: money is credited only AFTER the vendor confirms the
// charge, never on initiation.
type FundingService struct {
	engine   *ledger.Engine
	settles  ports.SettlementRepository
	cards    ports.CardGateway
	payments ports.PaymentGateway
	notifier SettlementNotifier
	logger   *zap.Logger
}

// NewFundingService creates a funding service.
func NewFundingService(
	engine *ledger.Engine,
	settles ports.SettlementRepository,
	cards ports.CardGateway,
	payments ports.PaymentGateway,
	notifier SettlementNotifier,
	logger *zap.Logger,
) *FundingService {
	return &FundingService{
		engine:   engine,
		settles:  settles,
		cards:    cards,
		payments: payments,
		notifier: notifier,
		logger:   logger,
	}
}

// InitiateFundingParams describes a card top-up request.
type InitiateFundingParams struct {
	UserID     string
	Reference  string
	CardNumber string
	CVV        string
	ExpiryYYMM string
	Amount     int64
}

// InitiateFunding starts the card charge and stages a pending settlement. The
// wallet is untouched: the credit happens in SettleFunding once the charge is
// confirmed by OTP/PIN authorization, webhook or reconciler poll.
func (s *FundingService) InitiateFunding(ctx context.Context, p InitiateFundingParams) (*ports.Outcome, error) {
	if p.Amount <= 0 {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", p.Amount)
	}
	if p.Reference == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reference")
	}

	// Stage before calling the vendor so a crash between the two leaves a
	// pending row the reconciler can resolve, not an orphan charge.
	err := s.settles.Create(ctx, &domain.PendingSettlement{
		ID:        uuid.New().String(),
		UserID:    p.UserID,
		Kind:      domain.SettlementKindCardFunding,
		Status:    domain.SettlementStatusPending,
		Reference: p.Reference,
		Amount:    p.Amount,
	})
	if err != nil {
		if domain.GetErrorCode(err) == domain.ErrorCodeConflict {
			// Duplicate initiation: report the staged state.
			settlement, gerr := s.settles.GetByReference(ctx, p.Reference)
			if gerr != nil {
				return nil, gerr
			}
			return outcomeForSettlement(settlement), nil
		}
		return nil, err
	}

	outcome, err := s.cards.InitiateFunding(ctx, ports.CardFundingInitiation{
		Reference:  p.Reference,
		CardNumber: p.CardNumber,
		CVV:        p.CVV,
		ExpiryYYMM: p.ExpiryYYMM,
		Amount:     p.Amount,
	})
	if err != nil {
		return nil, err
	}

	switch {
	case outcome.Succeeded():
		if err := ignoreFinal(s.SettleFunding(ctx, p.Reference, domain.SettlementStatusCompleted, outcome.VendorReference, "inline")); err != nil {
			return nil, err
		}
	case !outcome.Pending():
		if err := ignoreFinal(s.SettleFunding(ctx, p.Reference, domain.SettlementStatusFailed, outcome.VendorReference, "inline")); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// AuthorizeFunding completes a pending charge with the OTP or PIN the issuer
// asked for, and credits the wallet if the vendor confirms.
func (s *FundingService) AuthorizeFunding(ctx context.Context, reference, otp, pin string) (*ports.Outcome, error) {
	settlement, err := s.settles.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if settlement.IsFinal() {
		return outcomeForSettlement(settlement), nil
	}

	outcome, err := s.cards.AuthorizeFunding(ctx, ports.CardFundingAuth{
		Reference: reference,
		OTP:       otp,
		PIN:       pin,
	})
	if err != nil {
		return nil, err
	}

	switch {
	case outcome.Succeeded():
		if err := ignoreFinal(s.SettleFunding(ctx, reference, domain.SettlementStatusCompleted, outcome.VendorReference, "inline")); err != nil {
			return nil, err
		}
	case !outcome.Pending():
		if err := ignoreFinal(s.SettleFunding(ctx, reference, domain.SettlementStatusFailed, outcome.VendorReference, "inline")); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// InitiateGatewayFundingParams describes a hosted-checkout top-up request.
type InitiateGatewayFundingParams struct {
	UserID    string
	Email     string
	Reference string
	Amount    int64
}

const detailAuthorizationURL = "authorization_url"

// InitiateGatewayFunding opens a hosted checkout session at the payment
// gateway and stages a pending settlement. The authorization URL is stored on
// the settlement, so a duplicate initiation returns the same checkout link
// instead of opening a second session.
func (s *FundingService) InitiateGatewayFunding(ctx context.Context, p InitiateGatewayFundingParams) (*ports.PaymentInitiation, error) {
	if p.Amount <= 0 {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", p.Amount)
	}
	if p.Reference == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reference")
	}
	if p.Email == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "email")
	}

	if settlement, err := s.settles.GetByReference(ctx, p.Reference); err == nil {
		return gatewayInitiationFor(settlement), nil
	}

	initiation, err := s.payments.Initialize(ctx, ports.PaymentInitializeRequest{
		Reference: p.Reference,
		Email:     p.Email,
		Amount:    p.Amount,
		Metadata:  map[string]string{"user_id": p.UserID},
	})
	if err != nil {
		return nil, err
	}

	err = s.settles.Create(ctx, &domain.PendingSettlement{
		ID:        uuid.New().String(),
		UserID:    p.UserID,
		Kind:      domain.SettlementKindGatewayFunding,
		Status:    domain.SettlementStatusPending,
		Reference: p.Reference,
		Amount:    p.Amount,
		Detail:    map[string]string{detailAuthorizationURL: initiation.AuthorizationURL},
	})
	if err != nil {
		if domain.GetErrorCode(err) == domain.ErrorCodeConflict {
			// Lost the staging race to a concurrent initiation; the stored
			// checkout link is the one to hand out.
			settlement, gerr := s.settles.GetByReference(ctx, p.Reference)
			if gerr != nil {
				return nil, gerr
			}
			return gatewayInitiationFor(settlement), nil
		}
		return nil, err
	}
	return initiation, nil
}

// VerifyGatewayFunding confirms a checkout with the gateway and credits the
// wallet on success. Callers invoke it after the shopper returns from the
// hosted page; the webhook and reconciler cover the ones who never do.
func (s *FundingService) VerifyGatewayFunding(ctx context.Context, reference string) (*domain.PendingSettlement, error) {
	settlement, err := s.settles.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if settlement.IsFinal() {
		return settlement, nil
	}

	outcome, err := s.payments.Verify(ctx, reference)
	if err != nil {
		// Gateway unreachable: the staged state is still the truth.
		return settlement, nil
	}
	switch {
	case outcome.Succeeded():
		if err := ignoreFinal(s.SettleFunding(ctx, reference, domain.SettlementStatusCompleted, outcome.VendorReference, "verify")); err != nil {
			return nil, err
		}
	case !outcome.Pending():
		if err := ignoreFinal(s.SettleFunding(ctx, reference, domain.SettlementStatusFailed, outcome.VendorReference, "verify")); err != nil {
			return nil, err
		}
	}
	return s.settles.GetByReference(ctx, reference)
}

func gatewayInitiationFor(s *domain.PendingSettlement) *ports.PaymentInitiation {
	return &ports.PaymentInitiation{
		AuthorizationURL: s.Detail[detailAuthorizationURL],
		Reference:        s.Reference,
	}
}

// FundingStatus reports the staged state, polling the vendor only while the
// settlement is still pending.
func (s *FundingService) FundingStatus(ctx context.Context, reference string) (*domain.PendingSettlement, error) {
	settlement, err := s.settles.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if settlement.IsFinal() {
		return settlement, nil
	}

	outcome, err := s.cards.FundingStatus(ctx, reference)
	if err != nil {
		// Vendor unreachable: the staged state is still the truth.
		return settlement, nil
	}
	switch {
	case outcome.Succeeded():
		if err := ignoreFinal(s.SettleFunding(ctx, reference, domain.SettlementStatusCompleted, outcome.VendorReference, "poll")); err != nil {
			return nil, err
		}
	case !outcome.Pending():
		if err := ignoreFinal(s.SettleFunding(ctx, reference, domain.SettlementStatusFailed, outcome.VendorReference, "poll")); err != nil {
			return nil, err
		}
	}
	return s.settles.GetByReference(ctx, reference)
}

// SettleFunding finalizes a staged card funding. The guarded status update
// makes this safe to call from the authorize path, the webhook and the
// reconciler concurrently: only the first caller credits the wallet. A
// settlement that was already final before this call returns
// ErrSettlementFinal so webhook replays can be told apart from fresh
// deliveries; losing the MarkFinal race to a concurrent caller is not an
// error.
func (s *FundingService) SettleFunding(ctx context.Context, reference string, status domain.SettlementStatus, vendorRef, via string) error {
	settlement, err := s.settles.GetByReference(ctx, reference)
	if err != nil {
		return err
	}
	if settlement.IsFinal() {
		return domain.ErrSettlementFinal.
			WithDetail("reference", reference).
			WithDetail("status", string(settlement.Status))
	}

	won, err := s.settles.MarkFinal(ctx, reference, status, vendorRef)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	observability.RecordSettlement(string(settlement.Kind), string(status), via)
	settlement.Status = status
	settlement.VendorReference = vendorRef
	s.notifier.NotifySettlement(ctx, *settlement)

	if status != domain.SettlementStatusCompleted {
		s.logger.Info("funding failed, no credit applied",
			zap.String("reference", reference),
			zap.String("kind", string(settlement.Kind)),
			zap.String("via", via))
		return nil
	}

	narration := "Wallet funding via card"
	category := domain.CategoryCardFunding
	if settlement.Kind == domain.SettlementKindGatewayFunding {
		narration = "Wallet funding via payment gateway"
		category = domain.CategoryGatewayFunding
	}
	_, _, err = s.engine.Credit(ctx, ledger.MutationParams{
		UserID:    settlement.UserID,
		Reference: reference + "-credit",
		Narration: narration,
		Category:  category,
		Amount:    settlement.Amount,
		Party:     map[string]string{"funding_reference": reference},
	})
	return err
}

// ignoreFinal drops the settlement-final replay error. Inline, poll and
// reconciler paths race the webhook for the same settlement; whoever finalized
// it first, the outcome the caller wanted has happened.
func ignoreFinal(err error) error {
	if domain.IsDomainError(err, domain.ErrorCodeSettlementFinal) {
		return nil
	}
	return err
}

func outcomeForSettlement(s *domain.PendingSettlement) *ports.Outcome {
	switch s.Status {
	case domain.SettlementStatusCompleted:
		return &ports.Outcome{Status: ports.OutcomeSucceeded, VendorReference: s.VendorReference}
	case domain.SettlementStatusFailed:
		return &ports.Outcome{Status: ports.OutcomeFailed, VendorReference: s.VendorReference}
	default:
		return &ports.Outcome{Status: ports.OutcomePending, VendorReference: s.VendorReference}
	}
}
