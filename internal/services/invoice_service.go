package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/ledger"
)

// InvoiceService issues payment requests between account holders. Paying an
// invoice is an internal transfer keyed on the invoice reference, so double
// submission of the pay call settles exactly once.
type InvoiceService struct {
	engine    *ledger.Engine
	invoices  ports.InvoiceRepository
	accounts  ports.AccountRepository
	transfers *TransferService
	logger    *zap.Logger
}

// NewInvoiceService creates an invoice service.
func NewInvoiceService(
	engine *ledger.Engine,
	invoices ports.InvoiceRepository,
	accounts ports.AccountRepository,
	transfers *TransferService,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		engine:    engine,
		invoices:  invoices,
		accounts:  accounts,
		transfers: transfers,
		logger:    logger,
	}
}

// Create issues an invoice addressed to another account holder.
func (s *InvoiceService) Create(ctx context.Context, issuerID, payerAccountNumber, memo string, amount int64) (*domain.Invoice, error) {
	if amount <= 0 {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", amount)
	}

	issuer, err := s.accounts.GetByID(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	if payerAccountNumber == issuer.AccountNumber {
		return nil, domain.ErrSelfTransfer
	}
	// The payer must exist at issue time; invoices to unknown accounts would
	// be unpayable dead rows.
	if _, err := s.accounts.GetByAccountNumber(ctx, payerAccountNumber); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	invoice := &domain.Invoice{
		ID:                 id,
		IssuerID:           issuerID,
		PayerAccountNumber: payerAccountNumber,
		Memo:               memo,
		Reference:          "inv-" + id,
		Status:             domain.InvoiceStatusUnpaid,
		Amount:             amount,
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// Pay settles an invoice from the payer's wallet to the issuer's.
func (s *InvoiceService) Pay(ctx context.Context, payerID, invoiceID, pin string) (*domain.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	payer, err := s.accounts.GetByID(ctx, payerID)
	if err != nil {
		return nil, err
	}
	if payer.AccountNumber != invoice.PayerAccountNumber {
		return nil, domain.ErrAccessDenied
	}
	if invoice.Status == domain.InvoiceStatusPaid {
		return invoice, nil
	}

	issuer, err := s.accounts.GetByID(ctx, invoice.IssuerID)
	if err != nil {
		return nil, err
	}

	_, _, err = s.transfers.InternalTransfer(ctx, InternalTransferParams{
		FromUserID:      payerID,
		ToAccountNumber: issuer.AccountNumber,
		Reference:       invoice.Reference,
		Narration:       "Invoice: " + invoice.Memo,
		PIN:             pin,
		Amount:          invoice.Amount,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.invoices.MarkPaid(ctx, invoiceID); err != nil {
		return nil, err
	}
	s.logger.Info("invoice paid",
		zap.String("invoice_id", invoiceID),
		zap.String("payer_id", payerID))

	return s.invoices.GetByID(ctx, invoiceID)
}

// Get returns an invoice visible to either party.
func (s *InvoiceService) Get(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.IssuerID == userID {
		return invoice, nil
	}
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.AccountNumber != invoice.PayerAccountNumber {
		return nil, domain.ErrAccessDenied
	}
	return invoice, nil
}

// ListIssued returns invoices the user has issued.
func (s *InvoiceService) ListIssued(ctx context.Context, issuerID string) ([]domain.Invoice, error) {
	return s.invoices.ListByIssuer(ctx, issuerID)
}
