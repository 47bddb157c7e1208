package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// SettlementNotifier receives settlement transitions. Implementations must be
// best-effort: the settlement paths never fail because a notification did.
type SettlementNotifier interface {
	NotifySettlement(ctx context.Context, settlement domain.PendingSettlement)
}

// NotificationService persists user-facing notifications and fans them out to
// the message broker. It implements ledger.Notifier: every applied ledger
// entry produces exactly one notification row.
type NotificationService struct {
	repo      ports.NotificationRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewNotificationService creates a notification service.
func NewNotificationService(repo ports.NotificationRepository, publisher ports.EventPublisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// NotifyEntry records a notification for a ledger entry and publishes it.
// Best-effort: failures are logged, never propagated to the mutation path.
func (s *NotificationService) NotifyEntry(ctx context.Context, entry domain.Entry) {
	verb := "credited"
	if entry.Type == domain.EntryTypeDebit {
		verb = "debited"
	}
	naira := decimal.NewFromInt(entry.Amount).Div(decimal.NewFromInt(100)).StringFixed(2)

	n := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    entry.UserID,
		Title:     fmt.Sprintf("Account %s", verb),
		Body:      fmt.Sprintf("Your account was %s NGN %s. %s", verb, naira, entry.Narration),
		Category:  entry.Category,
		Reference: entry.Reference,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("notification write failed",
			zap.String("reference", entry.Reference),
			zap.Error(err))
		return
	}

	routingKey := fmt.Sprintf("ledger.%s.%s", entry.Category, entry.Type)
	if err := s.publisher.Publish(ctx, routingKey, entry); err != nil {
		s.logger.Warn("notification publish failed",
			zap.String("routing_key", routingKey),
			zap.Error(err))
	}
}

// NotifySettlement records a settlement transition for the user.
func (s *NotificationService) NotifySettlement(ctx context.Context, settlement domain.PendingSettlement) {
	title := "Transaction completed"
	if settlement.Status == domain.SettlementStatusFailed {
		title = "Transaction failed"
	}
	naira := decimal.NewFromInt(settlement.Amount).Div(decimal.NewFromInt(100)).StringFixed(2)

	n := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    settlement.UserID,
		Title:     title,
		Body:      fmt.Sprintf("Your %s of NGN %s is %s.", settlement.Kind, naira, settlement.Status),
		Reference: settlement.Reference,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("settlement notification write failed",
			zap.String("reference", settlement.Reference),
			zap.Error(err))
		return
	}

	routingKey := fmt.Sprintf("settlement.%s.%s", settlement.Kind, settlement.Status)
	if err := s.publisher.Publish(ctx, routingKey, settlement); err != nil {
		s.logger.Warn("settlement publish failed",
			zap.String("routing_key", routingKey),
			zap.Error(err))
	}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}
