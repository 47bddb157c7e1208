package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovomonie/banking-service/internal/domain"
)

func TestLoanApply(t *testing.T) {
	env := newTestEnv(t)
	svc := env.loanService()
	account := env.seedAccount(t, domain.KYCTier2, 0)

	loan, err := svc.Apply(context.Background(), account.ID, "loan-001", 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	// 5% flat over the term.
	assert.Equal(t, int64(1_050_000), loan.Outstanding)
	assert.Equal(t, int64(1_000_000), env.store.Balance(account.ID), "principal disbursed to wallet")
}

func TestLoanApplyTierGate(t *testing.T) {
	env := newTestEnv(t)
	svc := env.loanService()
	tier1 := env.seedAccount(t, domain.KYCTier1, 0)

	_, err := svc.Apply(context.Background(), tier1.ID, "loan-t1", 1_000_000)
	assert.Equal(t, domain.ErrorCodeTierLimitExceeded, domain.GetErrorCode(err))

	// Tier 2 cap is 10,000,000 kobo.
	tier2 := env.seedAccount(t, domain.KYCTier2, 0)
	_, err = svc.Apply(context.Background(), tier2.ID, "loan-big", 20_000_000)
	assert.Equal(t, domain.ErrorCodeTierLimitExceeded, domain.GetErrorCode(err))
}

func TestLoanSingleActiveRule(t *testing.T) {
	env := newTestEnv(t)
	svc := env.loanService()
	account := env.seedAccount(t, domain.KYCTier2, 0)

	first, err := svc.Apply(context.Background(), account.ID, "loan-a", 1_000_000)
	require.NoError(t, err)

	// Same reference replays the existing loan.
	replay, err := svc.Apply(context.Background(), account.ID, "loan-a", 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, int64(1_000_000), env.store.Balance(account.ID), "disbursed once")

	// A second loan while one is outstanding is refused.
	_, err = svc.Apply(context.Background(), account.ID, "loan-b", 500_000)
	assert.Equal(t, domain.ErrorCodeConflict, domain.GetErrorCode(err))
}

func TestLoanRepay(t *testing.T) {
	env := newTestEnv(t)
	svc := env.loanService()
	// Seed covers the interest so the full repayment fits.
	account := env.seedAccount(t, domain.KYCTier2, 100_000)

	loan, err := svc.Apply(context.Background(), account.ID, "loan-r", 1_000_000)
	require.NoError(t, err)

	partial, err := svc.Repay(context.Background(), account.ID, loan.ID, "repay-1", testPIN, 500_000)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, partial.Status)
	assert.Equal(t, int64(550_000), partial.Outstanding)
	assert.Equal(t, int64(600_000), env.store.Balance(account.ID))

	settled, err := svc.Repay(context.Background(), account.ID, loan.ID, "repay-2", testPIN, 550_000)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusRepaid, settled.Status)
	assert.Equal(t, int64(0), settled.Outstanding)

	// A loan can be taken again once the previous one is repaid.
	_, err = svc.Apply(context.Background(), account.ID, "loan-next", 500_000)
	assert.NoError(t, err)
}

func TestLoanApplyReusedReferenceAfterRepayConflicts(t *testing.T) {
	env := newTestEnv(t)
	svc := env.loanService()
	account := env.seedAccount(t, domain.KYCTier2, 100_000)

	loan, err := svc.Apply(context.Background(), account.ID, "loan-reuse", 1_000_000)
	require.NoError(t, err)

	_, err = svc.Repay(context.Background(), account.ID, loan.ID, "repay-full", testPIN, 1_050_000)
	require.NoError(t, err)

	// The repaid loan no longer blocks new applications, but its reference
	// is burned: reusing it is a conflict, not a server error.
	_, err = svc.Apply(context.Background(), account.ID, "loan-reuse", 1_000_000)
	assert.Equal(t, domain.ErrorCodeConflict, domain.GetErrorCode(err))
	assert.Equal(t, int64(50_000), env.store.Balance(account.ID), "no second disbursement")
}

func TestLoanRepayOwnership(t *testing.T) {
	env := newTestEnv(t)
	svc := env.loanService()
	borrower := env.seedAccount(t, domain.KYCTier2, 0)
	other := env.seedAccount(t, domain.KYCTier2, 1_000_000)

	loan, err := svc.Apply(context.Background(), borrower.ID, "loan-own", 1_000_000)
	require.NoError(t, err)

	_, err = svc.Repay(context.Background(), other.ID, loan.ID, "repay-x", testPIN, 100_000)
	assert.Equal(t, domain.ErrorCodeAccessDenied, domain.GetErrorCode(err))
}
