package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// SubscriptionService manages recurring merchant payments. The service owns
// the registry only; charging a due subscription is the merchant's pull, so
// pausing or cancelling here is what stops future debits.
type SubscriptionService struct {
	subs   ports.SubscriptionRepository
	logger *zap.Logger
}

// NewSubscriptionService creates a subscription service.
func NewSubscriptionService(subs ports.SubscriptionRepository, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{subs: subs, logger: logger}
}

// Create registers a subscription. A missing first billing date defaults to
// thirty days out.
func (s *SubscriptionService) Create(ctx context.Context, userID, merchantName string, amount int64, frequency domain.SubscriptionFrequency, nextBillingAt time.Time) (*domain.Subscription, error) {
	if strings.TrimSpace(merchantName) == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "merchant_name")
	}
	if amount <= 0 {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", amount)
	}
	if !domain.ValidSubscriptionFrequency(frequency) {
		return nil, domain.ErrValidationFailed.WithDetail("frequency", string(frequency))
	}
	if nextBillingAt.IsZero() {
		nextBillingAt = time.Now().UTC().Add(30 * 24 * time.Hour)
	}

	sub := &domain.Subscription{
		ID:            uuid.New().String(),
		UserID:        userID,
		MerchantName:  merchantName,
		Amount:        amount,
		Frequency:     frequency,
		NextBillingAt: nextBillingAt,
		Status:        domain.SubscriptionStatusActive,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// List returns the user's subscriptions, newest first.
func (s *SubscriptionService) List(ctx context.Context, userID string) ([]domain.Subscription, error) {
	return s.subs.ListByUser(ctx, userID)
}

// SetStatus pauses, resumes or cancels a subscription. Cancelled is terminal.
func (s *SubscriptionService) SetStatus(ctx context.Context, userID, subscriptionID string, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	sub, err := s.owned(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	switch status {
	case domain.SubscriptionStatusPaused, domain.SubscriptionStatusActive, domain.SubscriptionStatusCancelled:
	default:
		return nil, domain.ErrValidationFailed.WithDetail("status", string(status))
	}
	if sub.Status == domain.SubscriptionStatusCancelled {
		return nil, domain.ErrConflict.WithDetail("status", string(sub.Status))
	}
	if sub.Status == status {
		return sub, nil
	}

	if err := s.subs.UpdateStatus(ctx, subscriptionID, status); err != nil {
		return nil, err
	}
	sub.Status = status
	s.logger.Info("subscription status changed",
		zap.String("subscription_id", subscriptionID),
		zap.String("status", string(status)))
	return sub, nil
}

// Delete removes a subscription entirely.
func (s *SubscriptionService) Delete(ctx context.Context, userID, subscriptionID string) error {
	if _, err := s.owned(ctx, userID, subscriptionID); err != nil {
		return err
	}
	return s.subs.Delete(ctx, subscriptionID)
}

func (s *SubscriptionService) owned(ctx context.Context, userID, subscriptionID string) (*domain.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrAccessDenied
	}
	return sub, nil
}
