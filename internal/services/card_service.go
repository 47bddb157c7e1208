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

// CardIssueFee is the one-time charge for a virtual card, in kobo.
const CardIssueFee int64 = 100_000 // NGN 1,000

// CardService orders and manages virtual cards. Ordering charges the issue
// fee up front; if the vendor never confirms creation the fee is refunded
// through the ledger.
type CardService struct {
	engine   *ledger.Engine
	cards    ports.CardRepository
	settles  ports.SettlementRepository
	gateway  ports.CardGateway
	pins     *AccountService
	notifier SettlementNotifier
	logger   *zap.Logger
}

// NewCardService creates a card service.
func NewCardService(
	engine *ledger.Engine,
	cards ports.CardRepository,
	settles ports.SettlementRepository,
	gateway ports.CardGateway,
	pins *AccountService,
	notifier SettlementNotifier,
	logger *zap.Logger,
) *CardService {
	return &CardService{
		engine:   engine,
		cards:    cards,
		settles:  settles,
		gateway:  gateway,
		pins:     pins,
		notifier: notifier,
		logger:   logger,
	}
}

// OrderCard charges the issue fee and asks the vendor to create a card. The
// card row stays pending until the vendor confirms via webhook or poll.
func (s *CardService) OrderCard(ctx context.Context, userID, userName, reference, pin string) (*domain.VirtualCard, error) {
	if err := s.pins.VerifyPIN(ctx, userID, pin); err != nil {
		return nil, err
	}
	if reference == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reference")
	}

	if existing, err := s.cards.GetByReference(ctx, reference); err == nil {
		return existing, nil
	}

	_, applied, err := s.engine.Debit(ctx, ledger.MutationParams{
		UserID:    userID,
		Reference: reference,
		Narration: "Virtual card issuance fee",
		Category:  domain.CategoryCardOrder,
		Amount:    CardIssueFee,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// Fee already charged but no card row: fall through and create it.
		s.logger.Warn("card order fee replayed without card row",
			zap.String("reference", reference))
	}

	card := &domain.VirtualCard{
		ID:        uuid.New().String(),
		UserID:    userID,
		Reference: reference,
		Status:    domain.CardStatusPending,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}
	if err := s.settles.Create(ctx, &domain.PendingSettlement{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      domain.SettlementKindCardOrder,
		Status:    domain.SettlementStatusPending,
		Reference: reference,
		Amount:    CardIssueFee,
	}); err != nil {
		return nil, err
	}

	issued, outcome, err := s.gateway.IssueCard(ctx, ports.CardIssueRequest{
		Reference: reference,
		UserName:  userName,
	})
	if err != nil {
		// Vendor unreachable: leave the order pending for the reconciler.
		s.logger.Warn("card issue vendor call failed, left pending",
			zap.String("reference", reference),
			zap.Error(err))
		return card, nil
	}

	switch {
	case outcome.Succeeded():
		if err := ignoreFinal(s.FinalizeOrder(ctx, reference, true, issued.VendorCardID, issued.MaskedPAN, "inline")); err != nil {
			return nil, err
		}
		return s.cards.GetByReference(ctx, reference)
	case outcome.Pending():
		return card, nil
	default:
		if err := ignoreFinal(s.FinalizeOrder(ctx, reference, false, "", "", "inline")); err != nil {
			return nil, err
		}
		return s.cards.GetByReference(ctx, reference)
	}
}

// FinalizeOrder resolves a pending card order: activate on success, mark
// failed and refund the fee otherwise. Guarded so webhook and reconciler
// cannot both refund.
func (s *CardService) FinalizeOrder(ctx context.Context, reference string, succeeded bool, vendorCardID, maskedPAN, via string) error {
	card, err := s.cards.GetByReference(ctx, reference)
	if err != nil {
		return err
	}
	settlement, err := s.settles.GetByReference(ctx, reference)
	if err != nil {
		return err
	}
	if settlement.IsFinal() {
		return domain.ErrSettlementFinal.
			WithDetail("reference", reference).
			WithDetail("status", string(settlement.Status))
	}

	status := domain.SettlementStatusFailed
	if succeeded {
		status = domain.SettlementStatusCompleted
	}
	won, err := s.settles.MarkFinal(ctx, reference, status, vendorCardID)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	observability.RecordSettlement(string(domain.SettlementKindCardOrder), string(status), via)
	settlement.Status = status
	settlement.VendorReference = vendorCardID
	s.notifier.NotifySettlement(ctx, *settlement)

	if succeeded {
		return s.cards.UpdateStatus(ctx, card.ID, domain.CardStatusActive, vendorCardID, maskedPAN)
	}

	if err := s.cards.UpdateStatus(ctx, card.ID, domain.CardStatusFailed, "", ""); err != nil {
		return err
	}
	_, _, err = s.engine.Credit(ctx, ledger.MutationParams{
		UserID:    card.UserID,
		Reference: reference + "-refund",
		Narration: "Refund: virtual card issuance fee",
		Category:  domain.CategoryReversal,
		Amount:    CardIssueFee,
		Party:     map[string]string{"refund_of": reference},
	})
	return err
}

// List returns the user's cards.
func (s *CardService) List(ctx context.Context, userID string) ([]domain.VirtualCard, error) {
	return s.cards.ListByUser(ctx, userID)
}

// SetBlocked freezes or unfreezes a card, mirroring the change to the vendor.
func (s *CardService) SetBlocked(ctx context.Context, userID, cardID string, blocked bool) (*domain.VirtualCard, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, domain.ErrAccessDenied
	}

	if blocked && !card.CanBlock() {
		return nil, domain.ErrConflict.WithDetail("status", string(card.Status))
	}
	if !blocked && !card.CanUnblock() {
		return nil, domain.ErrConflict.WithDetail("status", string(card.Status))
	}

	if err := s.gateway.SetCardBlocked(ctx, card.VendorCardID, blocked); err != nil {
		return nil, err
	}

	status := domain.CardStatusActive
	if blocked {
		status = domain.CardStatusBlocked
	}
	if err := s.cards.UpdateStatus(ctx, card.ID, status, "", ""); err != nil {
		return nil, err
	}
	card.Status = status
	return card, nil
}
