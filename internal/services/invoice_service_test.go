package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovomonie/banking-service/internal/domain"
)

func TestInvoiceCreateAndPay(t *testing.T) {
	env := newTestEnv(t)
	svc := env.invoiceService()
	issuer := env.seedAccount(t, domain.KYCTier1, 0)
	payer := env.seedAccount(t, domain.KYCTier2, 1_000_000)

	invoice, err := svc.Create(context.Background(), issuer.ID, payer.AccountNumber, "Logo design", 400_000)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusUnpaid, invoice.Status)
	assert.NotEmpty(t, invoice.Reference)

	paid, err := svc.Pay(context.Background(), payer.ID, invoice.ID, testPIN)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, int64(600_000), env.store.Balance(payer.ID))
	assert.Equal(t, int64(400_000), env.store.Balance(issuer.ID))
}

func TestInvoicePayTwiceMovesMoneyOnce(t *testing.T) {
	env := newTestEnv(t)
	svc := env.invoiceService()
	issuer := env.seedAccount(t, domain.KYCTier1, 0)
	payer := env.seedAccount(t, domain.KYCTier2, 1_000_000)

	invoice, err := svc.Create(context.Background(), issuer.ID, payer.AccountNumber, "Hosting", 400_000)
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), payer.ID, invoice.ID, testPIN)
	require.NoError(t, err)
	paid, err := svc.Pay(context.Background(), payer.ID, invoice.ID, testPIN)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, int64(600_000), env.store.Balance(payer.ID))
	assert.Equal(t, int64(400_000), env.store.Balance(issuer.ID))
}

func TestInvoiceOnlyNamedPayerCanPay(t *testing.T) {
	env := newTestEnv(t)
	svc := env.invoiceService()
	issuer := env.seedAccount(t, domain.KYCTier1, 0)
	payer := env.seedAccount(t, domain.KYCTier2, 1_000_000)
	stranger := env.seedAccount(t, domain.KYCTier2, 1_000_000)

	invoice, err := svc.Create(context.Background(), issuer.ID, payer.AccountNumber, "Consulting", 400_000)
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), stranger.ID, invoice.ID, testPIN)
	assert.Equal(t, domain.ErrorCodeAccessDenied, domain.GetErrorCode(err))
}

func TestInvoiceCannotBillSelf(t *testing.T) {
	env := newTestEnv(t)
	svc := env.invoiceService()
	issuer := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.Create(context.Background(), issuer.ID, issuer.AccountNumber, "Self deal", 400_000)
	assert.Equal(t, domain.ErrorCodeSelfTransfer, domain.GetErrorCode(err))
}

func TestInvoiceGetVisibility(t *testing.T) {
	env := newTestEnv(t)
	svc := env.invoiceService()
	issuer := env.seedAccount(t, domain.KYCTier1, 0)
	payer := env.seedAccount(t, domain.KYCTier2, 1_000_000)
	stranger := env.seedAccount(t, domain.KYCTier1, 0)

	invoice, err := svc.Create(context.Background(), issuer.ID, payer.AccountNumber, "Design", 100_000)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), issuer.ID, invoice.ID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), payer.ID, invoice.ID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), stranger.ID, invoice.ID)
	assert.Equal(t, domain.ErrorCodeAccessDenied, domain.GetErrorCode(err))
}
