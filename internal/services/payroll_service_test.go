package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovomonie/banking-service/internal/domain"
)

func TestPayrollExecuteBatch(t *testing.T) {
	env := newTestEnv(t)
	svc := env.payrollService()
	owner := env.seedAccount(t, domain.KYCTier3, 10_000_000)
	alice := env.seedAccount(t, domain.KYCTier1, 0)
	bob := env.seedAccount(t, domain.KYCTier1, 0)

	batch, err := svc.CreateBatch(context.Background(), owner.ID, "August salaries", []EmployeeInput{
		{Name: alice.FullName, AccountNumber: alice.AccountNumber, Amount: 2_000_000},
		{Name: bob.FullName, AccountNumber: bob.AccountNumber, Amount: 3_000_000},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PayrollStatusDraft, batch.Status)
	assert.Equal(t, int64(5_000_000), batch.Total)

	executed, err := svc.ExecuteBatch(context.Background(), owner.ID, batch.ID, "run-1", testPIN)
	require.NoError(t, err)
	assert.Equal(t, domain.PayrollStatusCompleted, executed.Status)
	assert.Equal(t, int64(5_000_000), env.store.Balance(owner.ID))
	assert.Equal(t, int64(2_000_000), env.store.Balance(alice.ID))
	assert.Equal(t, int64(3_000_000), env.store.Balance(bob.ID))
}

func TestPayrollPartialThenResume(t *testing.T) {
	env := newTestEnv(t)
	svc := env.payrollService()
	owner := env.seedAccount(t, domain.KYCTier3, 10_000_000)
	alice := env.seedAccount(t, domain.KYCTier1, 0)

	batch, err := svc.CreateBatch(context.Background(), owner.ID, "Contractors", []EmployeeInput{
		{Name: alice.FullName, AccountNumber: alice.AccountNumber, Amount: 2_000_000},
		{Name: "Ghost", AccountNumber: "0000000000", Amount: 1_000_000},
	})
	require.NoError(t, err)

	executed, err := svc.ExecuteBatch(context.Background(), owner.ID, batch.ID, "run-1", testPIN)
	require.NoError(t, err)
	assert.Equal(t, domain.PayrollStatusPartial, executed.Status)
	assert.Equal(t, int64(2_000_000), env.store.Balance(alice.ID))
	assert.Equal(t, int64(8_000_000), env.store.Balance(owner.ID))

	// Re-running the batch retries only the failed line; alice's payout
	// reference replays and she is not paid twice.
	executed, err = svc.ExecuteBatch(context.Background(), owner.ID, batch.ID, "run-1", testPIN)
	require.NoError(t, err)
	assert.Equal(t, domain.PayrollStatusPartial, executed.Status)
	assert.Equal(t, int64(2_000_000), env.store.Balance(alice.ID))
	assert.Equal(t, int64(8_000_000), env.store.Balance(owner.ID))
}

func TestPayrollCompletedBatchIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.payrollService()
	owner := env.seedAccount(t, domain.KYCTier3, 10_000_000)
	alice := env.seedAccount(t, domain.KYCTier1, 0)

	batch, err := svc.CreateBatch(context.Background(), owner.ID, "Salaries", []EmployeeInput{
		{Name: alice.FullName, AccountNumber: alice.AccountNumber, Amount: 1_000_000},
	})
	require.NoError(t, err)

	_, err = svc.ExecuteBatch(context.Background(), owner.ID, batch.ID, "run-1", testPIN)
	require.NoError(t, err)
	_, err = svc.ExecuteBatch(context.Background(), owner.ID, batch.ID, "run-2", testPIN)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), env.store.Balance(alice.ID))
}

func TestPayrollOwnership(t *testing.T) {
	env := newTestEnv(t)
	svc := env.payrollService()
	owner := env.seedAccount(t, domain.KYCTier3, 10_000_000)
	alice := env.seedAccount(t, domain.KYCTier1, 0)
	stranger := env.seedAccount(t, domain.KYCTier1, 0)

	batch, err := svc.CreateBatch(context.Background(), owner.ID, "Salaries", []EmployeeInput{
		{Name: alice.FullName, AccountNumber: alice.AccountNumber, Amount: 1_000_000},
	})
	require.NoError(t, err)

	_, err = svc.ExecuteBatch(context.Background(), stranger.ID, batch.ID, "run-x", testPIN)
	assert.Equal(t, domain.ErrorCodeAccessDenied, domain.GetErrorCode(err))

	_, _, err = svc.GetBatch(context.Background(), stranger.ID, batch.ID)
	assert.Equal(t, domain.ErrorCodeAccessDenied, domain.GetErrorCode(err))
}

func TestPayrollCreateBatchValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := env.payrollService()
	owner := env.seedAccount(t, domain.KYCTier3, 10_000_000)

	_, err := svc.CreateBatch(context.Background(), owner.ID, "", []EmployeeInput{
		{Name: "X", AccountNumber: "0000000001", Amount: 100},
	})
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.CreateBatch(context.Background(), owner.ID, "Empty", nil)
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.CreateBatch(context.Background(), owner.ID, "Zero pay", []EmployeeInput{
		{Name: "X", AccountNumber: "0000000001", Amount: 0},
	})
	assert.True(t, domain.IsValidationError(err))
}
