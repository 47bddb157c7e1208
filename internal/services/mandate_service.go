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

// MandateService registers direct-debit authorizations with the vendor and
// keeps the local ownership record. The vendor executes the recurring debits
// itself; cancelling revokes at the vendor first, then marks the local row.
type MandateService struct {
	mandates ports.MandateRepository
	gateway  ports.MandateGateway
	logger   *zap.Logger
}

// NewMandateService creates a mandate service.
func NewMandateService(mandates ports.MandateRepository, gateway ports.MandateGateway, logger *zap.Logger) *MandateService {
	return &MandateService{
		mandates: mandates,
		gateway:  gateway,
		logger:   logger,
	}
}

// CreateMandateParams describes a new direct-debit authorization. Dates are
// YYYY-MM-DD as the vendor requires; Amount is in kobo.
type CreateMandateParams struct {
	UserID        string
	AccountNumber string
	BankCode      string
	Frequency     domain.MandateFrequency
	StartDate     string
	EndDate       string
	Reference     string
	Narration     string
	Amount        int64
}

const mandateDateLayout = "2006-01-02"

// Create registers the mandate with the vendor and stores the local row.
// The reference is the idempotency key: a duplicate submission conflicts
// before any vendor call happens.
func (s *MandateService) Create(ctx context.Context, p CreateMandateParams) (*domain.Mandate, error) {
	if p.Amount <= 0 {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", p.Amount)
	}
	if p.Reference == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reference")
	}
	if strings.TrimSpace(p.AccountNumber) == "" || strings.TrimSpace(p.BankCode) == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "account_number")
	}
	if !domain.ValidMandateFrequency(p.Frequency) {
		return nil, domain.ErrValidationFailed.WithDetail("frequency", string(p.Frequency))
	}
	start, err := time.Parse(mandateDateLayout, p.StartDate)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("start_date", p.StartDate)
	}
	end, err := time.Parse(mandateDateLayout, p.EndDate)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithDetail("end_date", p.EndDate)
	}
	if !end.After(start) {
		return nil, domain.ErrValidationFailed.WithDetail("end_date", "must be after start_date")
	}

	mandate := &domain.Mandate{
		ID:            uuid.New().String(),
		UserID:        p.UserID,
		AccountNumber: p.AccountNumber,
		BankCode:      p.BankCode,
		Amount:        p.Amount,
		Frequency:     p.Frequency,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		Reference:     p.Reference,
		Status:        domain.MandateStatusActive,
	}

	vendorID, err := s.gateway.CreateMandate(ctx, ports.MandateRequest{
		CustomerID:    p.UserID,
		AccountNumber: p.AccountNumber,
		BankCode:      p.BankCode,
		Amount:        p.Amount,
		Frequency:     string(p.Frequency),
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		Reference:     p.Reference,
		Narration:     p.Narration,
	})
	if err != nil {
		return nil, err
	}
	mandate.VendorMandateID = vendorID

	if err := s.mandates.Create(ctx, mandate); err != nil {
		// The vendor row exists without a local one. Revoke rather than
		// leave an authorization the user cannot see or cancel.
		if cerr := s.gateway.CancelMandate(ctx, vendorID, "registration failed"); cerr != nil {
			s.logger.Error("orphan mandate revocation failed",
				zap.String("vendor_mandate_id", vendorID),
				zap.Error(cerr))
		}
		return nil, err
	}

	s.logger.Info("mandate created",
		zap.String("mandate_id", mandate.ID),
		zap.String("vendor_mandate_id", vendorID))
	return mandate, nil
}

// List returns the user's mandates, newest first.
func (s *MandateService) List(ctx context.Context, userID string) ([]domain.Mandate, error) {
	return s.mandates.ListByUser(ctx, userID)
}

// Get returns one of the user's mandates.
func (s *MandateService) Get(ctx context.Context, userID, mandateID string) (*domain.Mandate, error) {
	return s.owned(ctx, userID, mandateID)
}

// Cancel revokes the authorization at the vendor and marks the local row.
// The guarded update means a replayed cancel is a no-op after the first.
func (s *MandateService) Cancel(ctx context.Context, userID, mandateID, reason string) (*domain.Mandate, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reason")
	}
	mandate, err := s.owned(ctx, userID, mandateID)
	if err != nil {
		return nil, err
	}
	if mandate.Status == domain.MandateStatusCancelled {
		return mandate, nil
	}

	if err := s.gateway.CancelMandate(ctx, mandate.VendorMandateID, reason); err != nil {
		return nil, err
	}
	if _, err := s.mandates.MarkCancelled(ctx, mandateID); err != nil {
		return nil, err
	}
	mandate.Status = domain.MandateStatusCancelled

	s.logger.Info("mandate cancelled",
		zap.String("mandate_id", mandateID),
		zap.String("reason", reason))
	return mandate, nil
}

func (s *MandateService) owned(ctx context.Context, userID, mandateID string) (*domain.Mandate, error) {
	mandate, err := s.mandates.GetByID(ctx, mandateID)
	if err != nil {
		return nil, err
	}
	if mandate.UserID != userID {
		return nil, domain.ErrAccessDenied
	}
	return mandate, nil
}
