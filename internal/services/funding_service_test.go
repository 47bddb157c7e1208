package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

func fundingParams(userID, reference string, amount int64) InitiateFundingParams {
	return InitiateFundingParams{
		UserID:     userID,
		Reference:  reference,
		CardNumber: "5399831234567890",
		CVV:        "123",
		ExpiryYYMM: "2709",
		Amount:     amount,
	}
}

func TestInitiateFundingPendingDoesNotCredit(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	outcome, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-001", 500_000))
	require.NoError(t, err)
	assert.True(t, outcome.Pending())
	// Money appears only after the vendor confirms the charge.
	assert.Equal(t, int64(0), env.store.Balance(account.ID))

	settlement, err := env.settles.GetByReference(context.Background(), "fund-001")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementKindCardFunding, settlement.Kind)
	assert.Equal(t, domain.SettlementStatusPending, settlement.Status)
}

func TestInitiateFundingImmediateSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomeSucceeded, Code: "00", VendorReference: "vfd-f1"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 100_000)

	outcome, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-ok", 500_000))
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, int64(600_000), env.store.Balance(account.ID))

	entry, err := env.store.EntryByReference(context.Background(), "fund-ok-credit")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryCardFunding, entry.Category)
}

func TestAuthorizeFundingCreditsOnConfirm(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09"}
	env.cardGW.authorizeOutcome = &ports.Outcome{Status: ports.OutcomeSucceeded, Code: "00", VendorReference: "vfd-f2"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-otp", 250_000))
	require.NoError(t, err)

	outcome, err := svc.AuthorizeFunding(context.Background(), "fund-otp", "123456", "")
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, int64(250_000), env.store.Balance(account.ID))

	settlement, err := env.settles.GetByReference(context.Background(), "fund-otp")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCompleted, settlement.Status)
	assert.Equal(t, "vfd-f2", settlement.VendorReference)
}

func TestAuthorizeFundingDeclineNeverCredits(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09"}
	env.cardGW.authorizeOutcome = &ports.Outcome{Status: ports.OutcomeFailed, Code: "99", Message: "insufficient funds on card"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-bad", 250_000))
	require.NoError(t, err)

	outcome, err := svc.AuthorizeFunding(context.Background(), "fund-bad", "000000", "")
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeFailed, outcome.Status)
	assert.Equal(t, int64(0), env.store.Balance(account.ID))

	settlement, err := env.settles.GetByReference(context.Background(), "fund-bad")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusFailed, settlement.Status)
}

func TestAuthorizeFundingAfterFinalReturnsStoredState(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomeSucceeded, Code: "00"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-done", 100_000))
	require.NoError(t, err)

	// A late OTP submission against a settled funding must not reach the
	// vendor or move money again.
	env.cardGW.authorizeErr = domain.ErrVendorError
	outcome, err := svc.AuthorizeFunding(context.Background(), "fund-done", "123456", "")
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, int64(100_000), env.store.Balance(account.ID))
}

func TestInitiateFundingDuplicateReportsStagedState(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	p := fundingParams(account.ID, "fund-dup", 100_000)
	_, err := svc.InitiateFunding(context.Background(), p)
	require.NoError(t, err)

	outcome, err := svc.InitiateFunding(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, outcome.Pending())
	assert.Equal(t, int64(0), env.store.Balance(account.ID))
}

func TestSettleFundingConcurrentCreditsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-race", 400_000))
	require.NoError(t, err)

	// Webhook, reconciler and a status poll all settle at once.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.SettleFunding(context.Background(), "fund-race", domain.SettlementStatusCompleted, "vfd-r", "webhook")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(400_000), env.store.Balance(account.ID))
}

func TestSettleFundingNotifiesUser(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-note", 300_000))
	require.NoError(t, err)
	require.NoError(t, svc.SettleFunding(context.Background(), "fund-note", domain.SettlementStatusFailed, "vfd-n", "webhook"))

	// A failed funding never credits, so the settlement notification is the
	// only way the user learns the charge did not go through.
	notes, err := env.notes.ListByUser(context.Background(), account.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Transaction failed", notes[0].Title)
	assert.Equal(t, "fund-note", notes[0].Reference)
}

func TestSettleFundingAlreadyFinalReturnsSettlementFinal(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-fin", 200_000))
	require.NoError(t, err)
	require.NoError(t, svc.SettleFunding(context.Background(), "fund-fin", domain.SettlementStatusCompleted, "vfd-f", "webhook"))

	// A redelivered webhook for a settled funding is reported as such, not
	// silently swallowed, so the handler can answer "already processed".
	err = svc.SettleFunding(context.Background(), "fund-fin", domain.SettlementStatusCompleted, "vfd-f", "webhook")
	assert.Equal(t, domain.ErrorCodeSettlementFinal, domain.GetErrorCode(err))
	assert.Equal(t, int64(200_000), env.store.Balance(account.ID), "credited once")
}

func TestFundingStatusPollSettles(t *testing.T) {
	env := newTestEnv(t)
	env.cardGW.initiateOutcome = &ports.Outcome{Status: ports.OutcomePending, Code: "09"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.InitiateFunding(context.Background(), fundingParams(account.ID, "fund-poll", 150_000))
	require.NoError(t, err)

	env.cardGW.statusOutcome = &ports.Outcome{Status: ports.OutcomeSucceeded, Code: "00", VendorReference: "vfd-p"}
	settlement, err := svc.FundingStatus(context.Background(), "fund-poll")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCompleted, settlement.Status)
	assert.Equal(t, int64(150_000), env.store.Balance(account.ID))
}

func TestInitiateGatewayFundingStagesPending(t *testing.T) {
	env := newTestEnv(t)
	env.payments.initiation = &ports.PaymentInitiation{
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		AccessCode:       "abc123",
		Reference:        "psk-001",
	}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	initiation, err := svc.InitiateGatewayFunding(context.Background(), InitiateGatewayFundingParams{
		UserID:    account.ID,
		Email:     "adaku@example.com",
		Reference: "psk-001",
		Amount:    500_000,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", initiation.AuthorizationURL)
	assert.Equal(t, int64(0), env.store.Balance(account.ID))

	settlement, err := env.settles.GetByReference(context.Background(), "psk-001")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementKindGatewayFunding, settlement.Kind)
	assert.Equal(t, domain.SettlementStatusPending, settlement.Status)
	assert.Equal(t, "https://checkout.paystack.com/abc123", settlement.Detail["authorization_url"])
}

func TestInitiateGatewayFundingReplayReturnsStoredURL(t *testing.T) {
	env := newTestEnv(t)
	env.payments.initiation = &ports.PaymentInitiation{
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		Reference:        "psk-replay",
	}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	params := InitiateGatewayFundingParams{
		UserID:    account.ID,
		Email:     "adaku@example.com",
		Reference: "psk-replay",
		Amount:    500_000,
	}
	_, err := svc.InitiateGatewayFunding(context.Background(), params)
	require.NoError(t, err)

	again, err := svc.InitiateGatewayFunding(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", again.AuthorizationURL)
	// The gateway saw exactly one session for the reference.
	assert.Equal(t, 1, env.payments.initCalls)
}

func TestVerifyGatewayFundingCreditsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.payments.initiation = &ports.PaymentInitiation{
		AuthorizationURL: "https://checkout.paystack.com/ok",
		Reference:        "psk-ok",
	}
	env.payments.verifyOutcome = &ports.Outcome{Status: ports.OutcomeSucceeded, Code: "success", VendorReference: "psk-ok"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 100_000)

	_, err := svc.InitiateGatewayFunding(context.Background(), InitiateGatewayFundingParams{
		UserID:    account.ID,
		Email:     "adaku@example.com",
		Reference: "psk-ok",
		Amount:    500_000,
	})
	require.NoError(t, err)

	settlement, err := svc.VerifyGatewayFunding(context.Background(), "psk-ok")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCompleted, settlement.Status)
	assert.Equal(t, int64(600_000), env.store.Balance(account.ID))

	entry, err := env.store.EntryByReference(context.Background(), "psk-ok-credit")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryGatewayFunding, entry.Category)

	// Re-verifying an already settled checkout is idempotent.
	settlement, err = svc.VerifyGatewayFunding(context.Background(), "psk-ok")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusCompleted, settlement.Status)
	assert.Equal(t, int64(600_000), env.store.Balance(account.ID))
}

func TestVerifyGatewayFundingAbandonedDoesNotCredit(t *testing.T) {
	env := newTestEnv(t)
	env.payments.initiation = &ports.PaymentInitiation{
		AuthorizationURL: "https://checkout.paystack.com/gone",
		Reference:        "psk-gone",
	}
	env.payments.verifyOutcome = &ports.Outcome{Status: ports.OutcomeFailed, Code: "abandoned"}
	svc := env.fundingService()
	account := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.InitiateGatewayFunding(context.Background(), InitiateGatewayFundingParams{
		UserID:    account.ID,
		Email:     "adaku@example.com",
		Reference: "psk-gone",
		Amount:    500_000,
	})
	require.NoError(t, err)

	settlement, err := svc.VerifyGatewayFunding(context.Background(), "psk-gone")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusFailed, settlement.Status)
	assert.Equal(t, int64(0), env.store.Balance(account.ID))
}
