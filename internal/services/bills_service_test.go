package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

func billParams(userID, reference string, amount int64) PayBillParams {
	return PayBillParams{
		UserID:     userID,
		ProviderID: "1",
		ServiceID:  "10",
		CustomerID: "45021579863",
		Reference:  reference,
		Narration:  "IKEDC prepaid",
		PIN:        testPIN,
		Amount:     amount,
	}
}

func TestPayBillSucceeded(t *testing.T) {
	env := newTestEnv(t)
	env.bills.payOutcome = &ports.Outcome{Status: ports.OutcomeSucceeded, Code: "00"}
	svc := env.billsService()
	account := env.seedAccount(t, domain.KYCTier1, 500_000)

	result, err := svc.PayBill(context.Background(), billParams(account.ID, "bill-001", 200_000))
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCompleted, result.Status)
	assert.Equal(t, domain.CategoryBillPayment, result.Entry.Category)
	assert.Equal(t, int64(300_000), env.store.Balance(account.ID))
}

func TestPayBillAirtimeCategory(t *testing.T) {
	env := newTestEnv(t)
	env.bills.payOutcome = &ports.Outcome{Status: ports.OutcomeSucceeded, Code: "00"}
	svc := env.billsService()
	account := env.seedAccount(t, domain.KYCTier1, 500_000)

	p := billParams(account.ID, "air-001", 100_000)
	p.Category = domain.CategoryAirtime
	result, err := svc.PayBill(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryAirtime, result.Entry.Category)
}

func TestPayBillDeclinedReverses(t *testing.T) {
	env := newTestEnv(t)
	env.bills.payOutcome = &ports.Outcome{Status: ports.OutcomeFailed, Code: "99", Message: "invalid meter"}
	svc := env.billsService()
	account := env.seedAccount(t, domain.KYCTier1, 500_000)

	result, err := svc.PayBill(context.Background(), billParams(account.ID, "bill-bad", 200_000))
	assert.Equal(t, domain.ErrorCodeVendorDeclined, domain.GetErrorCode(err))
	require.NotNil(t, result)
	assert.True(t, result.Reversed)
	assert.Equal(t, int64(500_000), env.store.Balance(account.ID))
}

func TestPayBillReplayAfterReversalReportsFailure(t *testing.T) {
	env := newTestEnv(t)
	env.bills.payOutcome = &ports.Outcome{Status: ports.OutcomeFailed, Code: "99", Message: "invalid meter"}
	svc := env.billsService()
	account := env.seedAccount(t, domain.KYCTier1, 500_000)

	p := billParams(account.ID, "bill-rev-replay", 200_000)
	_, err := svc.PayBill(context.Background(), p)
	require.Equal(t, domain.ErrorCodeVendorDeclined, domain.GetErrorCode(err))
	require.Equal(t, 1, env.bills.payCalls)

	result, err := svc.PayBill(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusFailed, result.Status)
	assert.True(t, result.Reversed)
	assert.Equal(t, 1, env.bills.payCalls, "replay must not reach the vendor")
	assert.Equal(t, int64(500_000), env.store.Balance(account.ID))
}

func TestPayBillPendingStages(t *testing.T) {
	env := newTestEnv(t)
	env.bills.payOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09", VendorReference: "vfd-b"}
	svc := env.billsService()
	account := env.seedAccount(t, domain.KYCTier1, 500_000)

	result, err := svc.PayBill(context.Background(), billParams(account.ID, "bill-pend", 200_000))
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusPending, result.Status)
	assert.Equal(t, int64(300_000), env.store.Balance(account.ID))

	settlement, err := env.settles.GetByReference(context.Background(), "bill-pend")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementKindBillPayment, settlement.Kind)
}

func TestPayBillReplay(t *testing.T) {
	env := newTestEnv(t)
	env.bills.payOutcome = &ports.Outcome{Status: ports.OutcomeSucceeded, Code: "00"}
	svc := env.billsService()
	account := env.seedAccount(t, domain.KYCTier1, 500_000)

	p := billParams(account.ID, "bill-replay", 200_000)
	_, err := svc.PayBill(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, 1, env.bills.payCalls)

	result, err := svc.PayBill(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCompleted, result.Status)
	assert.Equal(t, 1, env.bills.payCalls, "replay must not reach the vendor")
	assert.Equal(t, int64(300_000), env.store.Balance(account.ID))
}
